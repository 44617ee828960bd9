package suggester

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// BuildFunc constructs the suggester of an index.
type BuildFunc func(ctx context.Context, name string) (*QuerySuggester, error)

// Manager keeps at most one live suggester per index name. Concurrent
// misses for a name share one construction. A name being torn down cannot
// be rebuilt until its teardown has returned.
type Manager struct {
	build  BuildFunc
	logger *slog.Logger
	flight singleflight.Group

	mu      sync.Mutex
	active  map[string]*QuerySuggester
	closing map[string]chan struct{}
}

// NewManager creates a manager that builds suggesters with build.
func NewManager(build BuildFunc, logger *slog.Logger) *Manager {
	return &Manager{
		build:   build,
		logger:  logger,
		active:  make(map[string]*QuerySuggester),
		closing: make(map[string]chan struct{}),
	}
}

// Get returns the live suggester of name, building it if absent. A caller
// whose ctx ends stops waiting; the construction continues for the others.
func (m *Manager) Get(ctx context.Context, name string) (*QuerySuggester, error) {
	m.mu.Lock()
	s, ok := m.active[name]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	ch := m.flight.DoChan(name, func() (any, error) {
		if s, ok := m.awaitSlot(name); ok {
			return s, nil
		}
		s, err := m.build(context.WithoutCancel(ctx), name)
		if err != nil {
			SuggestersBuilt.WithLabelValues("error").Inc()
			return nil, err
		}
		m.mu.Lock()
		m.active[name] = s
		ActiveSuggesters.Set(float64(len(m.active)))
		m.mu.Unlock()

		SuggestersBuilt.WithLabelValues("ok").Inc()
		m.logger.Info("query suggester created", slog.String("index", name))
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get suggester for %s: %w", name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*QuerySuggester), nil
	}
}

// Acquire returns the live suggester of name like Get and registers a use of
// it. The suggester is not torn down before the caller calls Release.
func (m *Manager) Acquire(ctx context.Context, name string) (*QuerySuggester, error) {
	for {
		s, err := m.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if s.acquire() {
			return s, nil
		}
		// Retired between lookup and acquire; the slot now holds a
		// replacement or is free.
	}
}

// awaitSlot blocks while name is being torn down. It returns the live
// suggester if one appeared meanwhile.
func (m *Manager) awaitSlot(name string) (*QuerySuggester, bool) {
	for {
		m.mu.Lock()
		if s, ok := m.active[name]; ok {
			m.mu.Unlock()
			return s, true
		}
		done, closing := m.closing[name]
		m.mu.Unlock()
		if !closing {
			return nil, false
		}
		<-done
	}
}

// Destroy removes the suggester of name and tears it down. It reports
// whether a suggester was live. Each suggester is torn down exactly once.
func (m *Manager) Destroy(name string) bool {
	m.mu.Lock()
	s, ok := m.active[name]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.active, name)
	ActiveSuggesters.Set(float64(len(m.active)))
	done := make(chan struct{})
	m.closing[name] = done
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.closing, name)
		m.mu.Unlock()
		close(done)
	}()

	m.teardown(s)
	return true
}

// Rebuild replaces the live suggester of name with a fresh one. The old
// suggester is torn down after the swap. Nothing happens when name is not
// live or the construction fails.
func (m *Manager) Rebuild(ctx context.Context, name string) error {
	m.mu.Lock()
	_, ok := m.active[name]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	fresh, err := m.build(ctx, name)
	if err != nil {
		SuggestersBuilt.WithLabelValues("error").Inc()
		return fmt.Errorf("rebuild suggester %s: %w", name, err)
	}
	SuggestersBuilt.WithLabelValues("ok").Inc()

	m.mu.Lock()
	old, ok := m.active[name]
	if ok {
		m.active[name] = fresh
	}
	m.mu.Unlock()

	if !ok {
		// Destroyed while rebuilding.
		m.teardown(fresh)
		return nil
	}
	m.teardown(old)
	m.logger.Info("query suggester rebuilt", slog.String("index", name))
	return nil
}

// Active returns the names of the live suggesters, sorted.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.active))
	for name := range m.active {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close tears down every live suggester.
func (m *Manager) Close() {
	for _, name := range m.Active() {
		m.Destroy(name)
	}
}

// teardown waits for outstanding uses of s to be released, then closes it.
// Errors and panics are logged, never propagated.
func (m *Manager) teardown(s *QuerySuggester) {
	<-s.retire()

	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			m.logger.Error("query suggester teardown panicked",
				slog.String("index", s.Name()),
				slog.Any("panic", r),
			)
		}
		Teardowns.WithLabelValues(outcome).Inc()
	}()

	if err := s.Close(); err != nil {
		outcome = "error"
		m.logger.Error("query suggester teardown failed",
			slog.String("index", s.Name()),
			slog.String("error", err.Error()),
		)
		return
	}
	m.logger.Info("query suggester destroyed", slog.String("index", s.Name()))
}
