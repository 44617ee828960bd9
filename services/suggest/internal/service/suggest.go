package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/suggester"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	DefaultMaxIdle = 30 * time.Minute
)

// Suggester is the slice of suggester.Manager the service depends on.
type Suggester interface {
	Get(ctx context.Context, name string) (*suggester.QuerySuggester, error)
	Acquire(ctx context.Context, name string) (*suggester.QuerySuggester, error)
	Destroy(name string) bool
	Rebuild(ctx context.Context, name string) error
	Active() []string
}

// SuggestService tracks index usage and tears down suggesters that have
// been idle for longer than the configured period.
type SuggestService struct {
	suggesters Suggester
	idle       *ttlcache.Cache[string, struct{}]
	logger     *slog.Logger
}

// NewSuggestService creates the service. A non-positive maxIdle selects
// DefaultMaxIdle.
func NewSuggestService(suggesters Suggester, maxIdle time.Duration, logger *slog.Logger) *SuggestService {
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	s := &SuggestService{
		suggesters: suggesters,
		idle:       ttlcache.New[string, struct{}](ttlcache.WithTTL[string, struct{}](maxIdle)),
		logger:     logger,
	}
	s.idle.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, struct{}]) {
		// Explicit deletes tear down through Destroy.
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		if s.idle.Has(item.Key()) {
			return
		}
		s.logger.Info("shutting down idle suggester", slog.String("index", item.Key()))
		s.suggesters.Destroy(item.Key())
	})
	return s
}

// Start launches the idle expiry loop. It runs until Stop is called.
func (s *SuggestService) Start() {
	go s.idle.Start()
}

// Stop ends the idle expiry loop.
func (s *SuggestService) Stop() {
	s.idle.Stop()
}

// touch resets the idle timer of index.
func (s *SuggestService) touch(index string) {
	s.idle.Set(index, struct{}{}, ttlcache.DefaultTTL)
}

// Suggest returns ranked suggestions for query on index. filter is a
// comma separated tag list; a non-positive limit selects DefaultLimit.
func (s *SuggestService) Suggest(ctx context.Context, index, query string, limit int, filter string) ([]domain.Suggestion, error) {
	if index == "" {
		return nil, apperrors.InvalidParameter("index", "must not be empty")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		return nil, apperrors.InvalidParameter("limit", "must not exceed "+strconv.Itoa(MaxLimit))
	}

	s.touch(index)
	qs, err := s.suggesters.Acquire(ctx, index)
	if err != nil {
		return nil, err
	}
	defer qs.Release()

	raw, err := qs.Suggest(ctx, query, limit, parseTags(filter))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Suggestion, len(raw))
	for i, sg := range raw {
		out[i] = mapSuggestion(sg)
	}
	return out, nil
}

// Warmup builds the suggester of index ahead of the first request.
func (s *SuggestService) Warmup(ctx context.Context, index string) error {
	if index == "" {
		return apperrors.InvalidParameter("index", "must not be empty")
	}
	s.touch(index)
	_, err := s.suggesters.Get(ctx, index)
	return err
}

// Destroy tears down the suggester of index. It reports whether one was live.
func (s *SuggestService) Destroy(index string) bool {
	s.idle.Delete(index)
	return s.suggesters.Destroy(index)
}

// Refresh rebuilds every live suggester from its data source. Failures
// keep the previous suggester and are logged.
func (s *SuggestService) Refresh(ctx context.Context) {
	for _, name := range s.suggesters.Active() {
		if err := s.suggesters.Rebuild(ctx, name); err != nil {
			s.logger.Error("suggester refresh failed",
				slog.String("index", name),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Active lists the indexes with a live suggester.
func (s *SuggestService) Active() []string {
	return s.suggesters.Active()
}

func parseTags(filter string) []string {
	if filter == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(filter, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// mapSuggestion prepares a suggestion for clients. The label and match
// group keys leave the payload, the type key moves to Type, and the weight
// is added to the payload when absent.
func mapSuggestion(in domain.Suggestion) domain.Suggestion {
	out := domain.Suggestion{
		Label:   in.Label,
		Weight:  in.Weight,
		Payload: make(map[string]string, len(in.Payload)+1),
	}
	for k, v := range in.Payload {
		switch k {
		case domain.PayloadLabel, domain.PayloadMatchGroup:
		case domain.PayloadType:
			out.Type = v
		default:
			out.Payload[k] = v
		}
	}
	if _, ok := out.Payload[domain.PayloadWeight]; !ok {
		out.Payload[domain.PayloadWeight] = strconv.FormatInt(in.Weight, 10)
	}
	return out
}
