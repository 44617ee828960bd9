package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/httputil"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/validator"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/indexer"
)

const (
	maxBulkBody   = 32 << 20
	maxUpdateBody = 1 << 20
)

// Indexer is the write side used by IndexerHandler.
type Indexer interface {
	StartImport(ctx context.Context, index, locale string) (indexer.ImportSession, error)
	Add(ctx context.Context, sess indexer.ImportSession, products []domain.Product) error
	Done(ctx context.Context, sess indexer.ImportSession) error
	Cancel(ctx context.Context, sess indexer.ImportSession) error
	Upsert(ctx context.Context, index string, products []domain.Product) error
	Delete(ctx context.Context, index string, ids []string) error
}

// --- Request DTOs ---

// BulkImportRequest is the JSON request body of a full import batch.
type BulkImportRequest struct {
	Session   indexer.ImportSession `json:"session" validate:"required"`
	Documents []domain.Product      `json:"documents" validate:"required,min=1,max=1000,dive"`
}

// UpdateRequest is the JSON request body of a single document update.
type UpdateRequest struct {
	Documents []domain.Product `json:"documents" validate:"required,min=1,max=500,dive"`
}

// IndexerHandler handles HTTP requests for the indexer endpoints.
type IndexerHandler struct {
	indexer Indexer
	logger  *slog.Logger
}

// NewIndexerHandler creates a new indexer HTTP handler.
func NewIndexerHandler(x Indexer, logger *slog.Logger) *IndexerHandler {
	return &IndexerHandler{indexer: x, logger: logger}
}

// --- Handlers ---

// Start handles POST /indexer-api/v1/full/start/{index}
func (h *IndexerHandler) Start(w http.ResponseWriter, r *http.Request) {
	sess, err := h.indexer.StartImport(r.Context(), chi.URLParam(r, "index"), r.URL.Query().Get("locale"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: sess})
}

// Add handles POST /indexer-api/v1/full/add
func (h *IndexerHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req BulkImportRequest
	if !decode(w, r, maxBulkBody, &req) {
		return
	}

	if err := h.indexer.Add(r.Context(), req.Session, req.Documents); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"indexed": len(req.Documents)}})
}

// Done handles POST /indexer-api/v1/full/done
func (h *IndexerHandler) Done(w http.ResponseWriter, r *http.Request) {
	var sess indexer.ImportSession
	if !decode(w, r, maxUpdateBody, &sess) {
		return
	}

	if err := h.indexer.Done(r.Context(), sess); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"index": sess.FinalIndexName, "status": "published"}})
}

// Cancel handles POST /indexer-api/v1/full/cancel
func (h *IndexerHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var sess indexer.ImportSession
	if !decode(w, r, maxUpdateBody, &sess) {
		return
	}

	if err := h.indexer.Cancel(r.Context(), sess); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"index": sess.FinalIndexName, "status": "cancelled"}})
}

// Upsert handles PUT /indexer-api/v1/update/{index}
func (h *IndexerHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if !decode(w, r, maxUpdateBody, &req) {
		return
	}

	if err := h.indexer.Upsert(r.Context(), chi.URLParam(r, "index"), req.Documents); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"indexed": len(req.Documents)}})
}

// Delete handles DELETE /indexer-api/v1/update/{index}?id=...
func (h *IndexerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["id"]
	if len(ids) == 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "at least one id is required"},
		})
		return
	}

	if err := h.indexer.Delete(r.Context(), chi.URLParam(r, "index"), ids); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"deleted": len(ids)}})
}

// decode reads and validates a JSON body, writing the error response itself.
func decode(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := validator.DecodeAndValidate(r, v); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}
