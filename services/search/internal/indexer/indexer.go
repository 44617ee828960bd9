package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/kafka"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/tracing"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
)

// TempIndexPrefix starts the name of every index built by an import session.
const TempIndexPrefix = "ocs-"

// ImportSession identifies a running full import. The final index name is
// the alias the temporary index is published under.
type ImportSession struct {
	FinalIndexName     string `json:"finalIndexName" validate:"required"`
	TemporaryIndexName string `json:"temporaryIndexName" validate:"required"`
}

// SettingsSource provides the current index field configuration.
type SettingsSource interface {
	Settings() *domain.Settings
}

// Indexer builds indexes through import sessions and applies single
// document updates to published indexes.
type Indexer struct {
	engine    engine.Engine
	settings  SettingsSource
	publisher kafka.Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]ImportSession // final index -> session
}

// New creates an Indexer. A nil publisher disables index.updated events.
func New(eng engine.Engine, settings SettingsSource, publisher kafka.Publisher, logger *slog.Logger) *Indexer {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	return &Indexer{
		engine:    eng,
		settings:  settings,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]ImportSession),
	}
}

// TemporaryIndexName returns the name of a fresh index for index. Names have
// the form ocs-[<locale>-]<millis>-<index>: the locale segment never contains
// a dash and starts with a letter, so the index name is exactly what follows
// the timestamp.
func TemporaryIndexName(index, locale string, at time.Time) string {
	if l := localeSegment(locale); l != "" {
		return fmt.Sprintf("%s%s-%d-%s", TempIndexPrefix, l, at.UnixMilli(), index)
	}
	return fmt.Sprintf("%s%d-%s", TempIndexPrefix, at.UnixMilli(), index)
}

func localeSegment(locale string) string {
	l := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, strings.ToLower(locale))
	if l == "" || l[0] < 'a' || l[0] > 'z' {
		return ""
	}
	return l
}

func tempIndexPattern(index string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(TempIndexPrefix) + `(?:[a-z][a-z0-9_]*-)?\d+-` + regexp.QuoteMeta(index) + `$`)
}

// StartImport opens an import session for index and creates its temporary
// index. Only one session per index may run; an unpublished temporary index
// left behind by another process counts as a running session.
func (x *Indexer) StartImport(ctx context.Context, index, locale string) (sess ImportSession, err error) {
	ctx, end := tracing.Start(ctx, "indexer.StartImport")
	defer func() { end(err) }()

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, running := x.sessions[index]; running {
		ImportSessions.WithLabelValues("conflict").Inc()
		return ImportSession{}, apperrors.ConcurrentSessionConflict(index)
	}
	orphan, err := x.unpublishedIndex(ctx, index)
	if err != nil {
		return ImportSession{}, err
	}
	if orphan != "" {
		x.logger.Warn("unpublished import index found",
			slog.String("index", index),
			slog.String("temporary_index", orphan),
		)
		ImportSessions.WithLabelValues("conflict").Inc()
		return ImportSession{}, apperrors.ConcurrentSessionConflict(index)
	}

	sess = ImportSession{
		FinalIndexName:     index,
		TemporaryIndexName: TemporaryIndexName(index, locale, x.now()),
	}
	if err := x.engine.CreateIndex(ctx, sess.TemporaryIndexName); err != nil {
		return ImportSession{}, fmt.Errorf("create index %s: %w", sess.TemporaryIndexName, err)
	}
	x.sessions[index] = sess
	ActiveSessions.Inc()

	x.logger.Info("import session started",
		slog.String("index", index),
		slog.String("temporary_index", sess.TemporaryIndexName),
	)
	return sess, nil
}

func (x *Indexer) unpublishedIndex(ctx context.Context, index string) (string, error) {
	candidates, err := x.engine.Indices(ctx, TempIndexPrefix)
	if err != nil {
		return "", fmt.Errorf("list indices: %w", err)
	}
	published, err := x.engine.AliasTargets(ctx, index)
	if err != nil {
		return "", fmt.Errorf("alias targets of %s: %w", index, err)
	}
	pattern := tempIndexPattern(index)
	for _, name := range candidates {
		if pattern.MatchString(name) && !slices.Contains(published, name) {
			return name, nil
		}
	}
	return "", nil
}

// Add converts products with the field configuration of the session's
// index and writes them into the temporary index.
func (x *Indexer) Add(ctx context.Context, sess ImportSession, products []domain.Product) (err error) {
	ctx, end := tracing.Start(ctx, "indexer.Add")
	defer func() { end(err) }()

	if err := x.checkSession(sess); err != nil {
		return err
	}
	docs, err := x.convert(sess.FinalIndexName, products)
	if err != nil {
		return err
	}
	if err := x.engine.Index(ctx, sess.TemporaryIndexName, docs); err != nil {
		return fmt.Errorf("index into %s: %w", sess.TemporaryIndexName, err)
	}
	DocumentsIndexed.WithLabelValues("import").Add(float64(len(docs)))
	return nil
}

// Done publishes the temporary index under the final index name, removes
// the indexes it replaces and announces the update.
func (x *Indexer) Done(ctx context.Context, sess ImportSession) (err error) {
	ctx, end := tracing.Start(ctx, "indexer.Done")
	defer func() { end(err) }()

	if err := x.checkSession(sess); err != nil {
		return err
	}

	replaced, err := x.engine.SwapAlias(ctx, sess.FinalIndexName, sess.TemporaryIndexName)
	if err != nil {
		return fmt.Errorf("publish %s as %s: %w", sess.TemporaryIndexName, sess.FinalIndexName, err)
	}
	x.release(sess, "done")

	for _, old := range replaced {
		if err := x.engine.DeleteIndex(ctx, old); err != nil {
			x.logger.Warn("failed to delete replaced index",
				slog.String("index", old),
				slog.String("error", err.Error()),
			)
		}
	}

	x.logger.Info("import session done",
		slog.String("index", sess.FinalIndexName),
		slog.String("temporary_index", sess.TemporaryIndexName),
		slog.Int("replaced", len(replaced)),
	)
	x.announce(ctx, sess)
	return nil
}

// Cancel drops the temporary index of sess. Sessions left behind by another
// process can be cancelled as long as the name belongs to the index and is
// not published.
func (x *Indexer) Cancel(ctx context.Context, sess ImportSession) (err error) {
	ctx, end := tracing.Start(ctx, "indexer.Cancel")
	defer func() { end(err) }()

	if err := x.checkSession(sess); err != nil {
		if !tempIndexPattern(sess.FinalIndexName).MatchString(sess.TemporaryIndexName) {
			return err
		}
	}
	published, err := x.engine.AliasTargets(ctx, sess.FinalIndexName)
	if err != nil {
		return fmt.Errorf("alias targets of %s: %w", sess.FinalIndexName, err)
	}
	if slices.Contains(published, sess.TemporaryIndexName) {
		return apperrors.InvalidParameter("temporaryIndexName", "index "+sess.TemporaryIndexName+" is published")
	}
	if err := x.engine.DeleteIndex(ctx, sess.TemporaryIndexName); err != nil {
		return fmt.Errorf("delete index %s: %w", sess.TemporaryIndexName, err)
	}
	x.release(sess, "cancelled")

	x.logger.Info("import session cancelled",
		slog.String("index", sess.FinalIndexName),
		slog.String("temporary_index", sess.TemporaryIndexName),
	)
	return nil
}

// Sessions returns the open sessions ordered by index.
func (x *Indexer) Sessions() []ImportSession {
	x.mu.Lock()
	defer x.mu.Unlock()

	out := make([]ImportSession, 0, len(x.sessions))
	for _, s := range x.sessions {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b ImportSession) int {
		return strings.Compare(a.FinalIndexName, b.FinalIndexName)
	})
	return out
}

// Upsert converts products and writes them into the published index.
func (x *Indexer) Upsert(ctx context.Context, index string, products []domain.Product) (err error) {
	ctx, end := tracing.Start(ctx, "indexer.Upsert")
	defer func() { end(err) }()

	docs, err := x.convert(index, products)
	if err != nil {
		return err
	}
	if err := x.engine.Index(ctx, index, docs); err != nil {
		return fmt.Errorf("upsert into %s: %w", index, err)
	}
	DocumentsIndexed.WithLabelValues("upsert").Add(float64(len(docs)))
	return nil
}

// Delete removes documents from the published index.
func (x *Indexer) Delete(ctx context.Context, index string, ids []string) (err error) {
	ctx, end := tracing.Start(ctx, "indexer.Delete")
	defer func() { end(err) }()

	if err := x.engine.Delete(ctx, index, ids); err != nil {
		return fmt.Errorf("delete from %s: %w", index, err)
	}
	DocumentsIndexed.WithLabelValues("delete").Add(float64(len(ids)))
	return nil
}

func (x *Indexer) checkSession(sess ImportSession) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	open, ok := x.sessions[sess.FinalIndexName]
	if !ok || open.TemporaryIndexName != sess.TemporaryIndexName {
		return apperrors.NotFound("import session", sess.TemporaryIndexName)
	}
	return nil
}

func (x *Indexer) release(sess ImportSession, outcome string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if open, ok := x.sessions[sess.FinalIndexName]; ok && open.TemporaryIndexName == sess.TemporaryIndexName {
		delete(x.sessions, sess.FinalIndexName)
		ActiveSessions.Dec()
	}
	ImportSessions.WithLabelValues(outcome).Inc()
}

func (x *Indexer) convert(index string, products []domain.Product) ([]engine.IndexDocument, error) {
	fields, err := domain.NewFieldIndex(x.settings.Settings().IndexFields(index))
	if err != nil {
		return nil, fmt.Errorf("fields of index %s: %w", index, err)
	}
	conv := NewConverter(fields)

	docs := make([]engine.IndexDocument, 0, len(products))
	for _, p := range products {
		if p.ID == "" {
			return nil, apperrors.InvalidParameter("id", "document without id")
		}
		docs = append(docs, conv.Convert(p))
	}
	return docs, nil
}

func (x *Indexer) announce(ctx context.Context, sess ImportSession) {
	event, err := kafka.NewEvent(ctx, kafka.EventTypeIndexUpdated, sess.FinalIndexName, "search-service", kafka.IndexUpdated{
		Index: sess.TemporaryIndexName,
		Alias: sess.FinalIndexName,
	})
	if err != nil {
		x.logger.Error("failed to create index updated event", slog.String("error", err.Error()))
		return
	}
	if err := x.publisher.Publish(ctx, kafka.TopicIndexUpdated, event); err != nil {
		x.logger.Error("failed to publish index updated event",
			slog.String("index", sess.FinalIndexName),
			slog.String("error", err.Error()),
		)
	}
}
