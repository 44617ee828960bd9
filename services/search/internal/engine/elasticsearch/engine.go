// Package elasticsearch implements engine.Engine on top of Elasticsearch.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/httpclient"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/tracing"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

const backendName = "search index"

// Config configures the engine.
type Config struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
	Breaker  httpclient.CircuitBreakerConfig
}

// Engine is an Elasticsearch-backed implementation of engine.Engine. Every
// request goes through a circuit breaker; an open breaker and transport
// failures surface as BackendUnavailable errors.
type Engine struct {
	client    *elasticsearch.Client
	transport *httpclient.BreakerTransport
	logger    *slog.Logger
}

var _ engine.Engine = (*Engine)(nil)

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an engine for the cluster at cfg.URL.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.Breaker.Name == "" {
		cfg.Breaker = httpclient.DefaultCircuitBreakerConfig("elasticsearch")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := httpclient.NewBreakerTransport(
		httpclient.New(httpclient.Config{Timeout: timeout, MaxConnsPerHost: 100}),
		cfg.Breaker,
		logger,
	)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	return &Engine{client: client, transport: transport, logger: logger}, nil
}

// BreakerCheck fails while the cluster's circuit breaker is open.
func (e *Engine) BreakerCheck(ctx context.Context) error {
	return e.transport.Check(ctx)
}

// perform runs one API call and turns failures into application errors.
// The caller owns the returned response body.
func (e *Engine) perform(op string, call func() (*esapi.Response, error), allow ...int) (*esapi.Response, error) {
	res, err := call()
	if err != nil {
		return nil, apperrors.BackendUnavailable(backendName, fmt.Errorf("elasticsearch %s: %w", op, err))
	}
	if !res.IsError() {
		return res, nil
	}
	for _, status := range allow {
		if res.StatusCode == status {
			return res, nil
		}
	}
	defer func() { _ = res.Body.Close() }()

	var errResp esErrorResponse
	_ = json.NewDecoder(res.Body).Decode(&errResp)
	cause := fmt.Errorf("elasticsearch %s: status %d: %s: %s", op, res.StatusCode, errResp.Error.Type, errResp.Error.Reason)

	switch {
	case errResp.Error.Type == "index_not_found_exception":
		return nil, errors.Join(apperrors.ErrNotFound, cause)
	case res.StatusCode >= http.StatusInternalServerError:
		return nil, apperrors.BackendUnavailable(backendName, cause)
	default:
		return nil, cause
	}
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.perform("ping", func() (*esapi.Response, error) {
		return e.client.Ping(e.client.Ping.WithContext(ctx))
	})
	if err != nil {
		return err
	}
	return res.Body.Close()
}

// Search executes req against index.
func (e *Engine) Search(ctx context.Context, index string, req *engine.Request) (resp *engine.Response, err error) {
	ctx, end := tracing.Start(ctx, "elasticsearch.search", attribute.String("ocs.index", index))
	defer func() { end(err) }()

	body, err := json.Marshal(searchBody(req))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.perform("search", func() (*esapi.Response, error) {
		return e.client.Search(
			e.client.Search.WithIndex(index),
			e.client.Search.WithBody(bytes.NewReader(body)),
			e.client.Search.WithContext(ctx),
			e.client.Search.WithTrackTotalHits(true),
		)
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var raw searchResponse
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}
	return raw.toResponse(req.Aggregations)
}

// Get fetches one document source.
func (e *Engine) Get(ctx context.Context, index, id string) (map[string]any, bool, error) {
	res, err := e.perform("get", func() (*esapi.Response, error) {
		return e.client.Get(index, id, e.client.Get.WithContext(ctx))
	}, http.StatusNotFound)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = res.Body.Close() }()

	var doc struct {
		Found  bool           `json:"found"`
		Source map[string]any `json:"_source"`
		Error  *struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, false, fmt.Errorf("elasticsearch get: decode response: %w", err)
	}
	if doc.Error != nil && doc.Error.Type == "index_not_found_exception" {
		return nil, false, apperrors.NotFound("index", index)
	}
	if !doc.Found {
		return nil, false, nil
	}
	return doc.Source, true, nil
}

// Index adds or replaces documents using the bulk NDJSON API.
func (e *Engine) Index(ctx context.Context, index string, docs []engine.IndexDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		if err := enc.Encode(map[string]any{"index": map[string]any{"_index": index, "_id": d.ID}}); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := enc.Encode(d.Source); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document %s: %w", d.ID, err)
		}
	}
	return e.bulk(ctx, "bulk index", buf.Bytes(), len(docs))
}

// Delete removes documents by id. Missing documents are ignored.
func (e *Engine) Delete(ctx context.Context, index string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, id := range ids {
		if err := enc.Encode(map[string]any{"delete": map[string]any{"_index": index, "_id": id}}); err != nil {
			return fmt.Errorf("elasticsearch bulk delete: encode action: %w", err)
		}
	}
	return e.bulk(ctx, "bulk delete", buf.Bytes(), len(ids))
}

// esBulkResponse is the structure used to decode Elasticsearch bulk responses.
type esBulkResponse struct {
	Errors bool                         `json:"errors"`
	Items  []map[string]esBulkItemState `json:"items"`
}

type esBulkItemState struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func (e *Engine) bulk(ctx context.Context, op string, body []byte, count int) error {
	res, err := e.perform(op, func() (*esapi.Response, error) {
		return e.client.Bulk(bytes.NewReader(body), e.client.Bulk.WithContext(ctx))
	})
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch %s: decode response: %w", op, err)
	}

	if bulkResp.Errors {
		var errMsgs []string
		for _, item := range bulkResp.Items {
			for _, state := range item {
				if state.Error.Type != "" && state.Status != http.StatusNotFound {
					errMsgs = append(errMsgs, fmt.Sprintf("id=%s: %s: %s", state.ID, state.Error.Type, state.Error.Reason))
				}
			}
		}
		if len(errMsgs) > 0 {
			return fmt.Errorf("elasticsearch %s: partial errors: %s", op, strings.Join(errMsgs, "; "))
		}
	}

	e.logger.DebugContext(ctx, "bulk request done", slog.String("op", op), slog.Int("count", count))
	return nil
}

// CreateIndex creates an index with the product document mapping.
func (e *Engine) CreateIndex(ctx context.Context, name string) error {
	res, err := e.perform("create index", func() (*esapi.Response, error) {
		return e.client.Indices.Create(name,
			e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
			e.client.Indices.Create.WithContext(ctx),
		)
	})
	if err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "elasticsearch index created", slog.String("index", name))
	return res.Body.Close()
}

// DeleteIndex removes an index. A missing index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context, name string) error {
	res, err := e.perform("delete index", func() (*esapi.Response, error) {
		return e.client.Indices.Delete([]string{name}, e.client.Indices.Delete.WithContext(ctx))
	}, http.StatusNotFound)
	if err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "elasticsearch index deleted", slog.String("index", name))
	return res.Body.Close()
}

// Indices lists concrete index names starting with prefix.
func (e *Engine) Indices(ctx context.Context, prefix string) ([]string, error) {
	res, err := e.perform("cat indices", func() (*esapi.Response, error) {
		return e.client.Cat.Indices(
			e.client.Cat.Indices.WithIndex(prefix+"*"),
			e.client.Cat.Indices.WithFormat("json"),
			e.client.Cat.Indices.WithH("index"),
			e.client.Cat.Indices.WithS("index"),
			e.client.Cat.Indices.WithContext(ctx),
		)
	}, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	var rows []struct {
		Index string `json:"index"`
	}
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("elasticsearch cat indices: decode response: %w", err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Index)
	}
	return out, nil
}

// SwapAlias refreshes index and atomically moves alias onto it.
func (e *Engine) SwapAlias(ctx context.Context, alias, index string) ([]string, error) {
	res, err := e.perform("refresh", func() (*esapi.Response, error) {
		return e.client.Indices.Refresh(
			e.client.Indices.Refresh.WithIndex(index),
			e.client.Indices.Refresh.WithContext(ctx),
		)
	})
	if err != nil {
		return nil, err
	}
	_ = res.Body.Close()

	current, err := e.AliasTargets(ctx, alias)
	if err != nil {
		return nil, err
	}

	actions := []map[string]any{{"add": map[string]any{"index": index, "alias": alias}}}
	var replaced []string
	for _, old := range current {
		if old == index {
			continue
		}
		replaced = append(replaced, old)
		actions = append(actions, map[string]any{"remove": map[string]any{"index": old, "alias": alias}})
	}
	body, err := json.Marshal(map[string]any{"actions": actions})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch update aliases: marshal: %w", err)
	}

	res, err = e.perform("update aliases", func() (*esapi.Response, error) {
		return e.client.Indices.UpdateAliases(bytes.NewReader(body), e.client.Indices.UpdateAliases.WithContext(ctx))
	})
	if err != nil {
		return nil, err
	}
	_ = res.Body.Close()

	e.logger.InfoContext(ctx, "alias swapped",
		slog.String("alias", alias),
		slog.String("index", index),
		slog.Any("replaced", replaced),
	)
	return replaced, nil
}

// AliasTargets returns the indexes alias points to, sorted.
func (e *Engine) AliasTargets(ctx context.Context, alias string) ([]string, error) {
	res, err := e.perform("get alias", func() (*esapi.Response, error) {
		return e.client.Indices.GetAlias(
			e.client.Indices.GetAlias.WithName(alias),
			e.client.Indices.GetAlias.WithContext(ctx),
		)
	}, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	var byIndex map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&byIndex); err != nil {
		return nil, fmt.Errorf("elasticsearch get alias: decode response: %w", err)
	}
	out := make([]string, 0, len(byIndex))
	for name := range byIndex {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
