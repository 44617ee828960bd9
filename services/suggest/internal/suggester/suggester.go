package suggester

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/text/language"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/tracing"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/ranking"
	"go.opentelemetry.io/otel/attribute"
)

// QuerySuggester answers suggest requests for one index. Uses handed out by
// Manager.Acquire are counted; teardown waits until all are released.
type QuerySuggester struct {
	name   string
	index  Index
	locale language.Tag
	logger *slog.Logger

	mu      sync.Mutex
	refs    int
	retired bool
	drained chan struct{}
}

// New creates a suggester for the named index.
func New(name string, index Index, locale language.Tag, logger *slog.Logger) *QuerySuggester {
	return &QuerySuggester{name: name, index: index, locale: locale, logger: logger, drained: make(chan struct{})}
}

// acquire registers a use. It fails once the suggester is retired.
func (s *QuerySuggester) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return false
	}
	s.refs++
	return true
}

// Release ends a use started by Manager.Acquire.
func (s *QuerySuggester) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs--
	if s.refs == 0 && s.retired {
		close(s.drained)
	}
}

// retire refuses new uses. The returned channel is closed once the last
// outstanding use is released.
func (s *QuerySuggester) retire() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.retired {
		s.retired = true
		if s.refs == 0 {
			close(s.drained)
		}
	}
	return s.drained
}

// Name returns the index name.
func (s *QuerySuggester) Name() string {
	return s.name
}

// Suggest returns at most limit ranked suggestions for term.
func (s *QuerySuggester) Suggest(ctx context.Context, term string, limit int, tags []string) (_ []domain.Suggestion, err error) {
	ctx, end := tracing.Start(ctx, "suggester.Suggest",
		attribute.String("suggest.index", s.name),
		attribute.Int("suggest.limit", limit),
	)
	defer func() { end(err) }()

	groups, err := s.index.Lookup(ctx, term, tags, limit)
	if err != nil {
		return nil, apperrors.BackendUnavailable("suggest index", err)
	}
	return ranking.Rank(s.locale, term, groups, limit), nil
}

// Close releases the index.
func (s *QuerySuggester) Close() error {
	return s.index.Close()
}
