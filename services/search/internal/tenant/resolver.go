// Package tenant resolves the effective search configuration of tenants.
package tenant

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
)

// Resolver merges the default and tenant specific settings into one
// SearchConfiguration per tenant and caches the result. Concurrent first
// resolutions of a tenant may both compute; the first stored result wins.
// A result computed across an Update or invalidation is returned but not
// cached.
type Resolver struct {
	settings     atomic.Pointer[domain.Settings]
	allowUnknown bool
	cache        sync.Map // tenant -> *domain.SearchConfiguration
	logger       *slog.Logger
	merge        func(string, *domain.Settings, domain.TenantConfig) (*domain.SearchConfiguration, error)

	mu  sync.Mutex // serializes cache writes against invalidation
	gen uint64
}

// NewResolver creates a resolver over settings. With allowUnknown, tenants
// without settings of their own resolve to the defaults.
func NewResolver(settings *domain.Settings, allowUnknown bool, logger *slog.Logger) *Resolver {
	r := &Resolver{allowUnknown: allowUnknown, logger: logger, merge: Merge}
	if settings == nil {
		settings = &domain.Settings{}
	}
	r.settings.Store(settings)
	return r
}

// Resolve returns the effective configuration of tenant.
func (r *Resolver) Resolve(tenant string) (*domain.SearchConfiguration, error) {
	if cached, ok := r.cache.Load(tenant); ok {
		return cached.(*domain.SearchConfiguration), nil
	}

	r.mu.Lock()
	gen := r.gen
	s := r.settings.Load()
	r.mu.Unlock()

	override, known := s.Tenants[tenant]
	if !known && !r.allowUnknown {
		return nil, apperrors.UnknownTenant(tenant)
	}

	sc, err := r.merge(tenant, s, override)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return sc, nil
	}
	actual, loaded := r.cache.LoadOrStore(tenant, sc)
	if !loaded {
		r.logger.Info("tenant configuration resolved",
			slog.String("tenant", tenant),
			slog.String("index", sc.IndexName),
			slog.Int("fields", sc.Fields.Len()),
		)
	}
	return actual.(*domain.SearchConfiguration), nil
}

// Tenants lists the tenants with their own settings, sorted.
func (r *Resolver) Tenants() []string {
	s := r.settings.Load()
	out := make([]string, 0, len(s.Tenants))
	for name := range s.Tenants {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Settings returns the current settings snapshot.
func (r *Resolver) Settings() *domain.Settings {
	return r.settings.Load()
}

// Update replaces the settings and drops every cached configuration.
func (r *Resolver) Update(settings *domain.Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.Store(settings)
	r.clear()
}

// Invalidate drops the cached configuration of tenant.
func (r *Resolver) Invalidate(tenant string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.cache.Delete(tenant)
}

// InvalidateAll drops every cached configuration.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clear()
}

func (r *Resolver) clear() {
	r.gen++
	r.cache.Range(func(key, _ any) bool {
		r.cache.Delete(key)
		return true
	})
}

// Merge builds the effective configuration of tenant. Each part comes from
// the tenant override if set, else from the defaults. The index name falls
// back to the tenant name. A disable flag on the override drops the part
// instead of falling back.
func Merge(tenant string, s *domain.Settings, override domain.TenantConfig) (*domain.SearchConfiguration, error) {
	def := s.DefaultTenant
	sc := &domain.SearchConfiguration{
		Tenant:         tenant,
		IndexName:      firstNonEmpty(override.IndexName, def.IndexName, tenant),
		VariantPicking: firstNonEmpty(override.VariantPicking, def.VariantPicking),
	}

	fields, err := domain.NewFieldIndex(s.IndexFields(sc.IndexName))
	if err != nil {
		return nil, fmt.Errorf("tenant %s: index %s: %w", tenant, sc.IndexName, err)
	}
	sc.Fields = fields

	switch {
	case override.DisableFacets:
		sc.FacetsDisabled = true
	case !override.FacetConfiguration.IsEmpty():
		sc.FacetConfiguration = override.FacetConfiguration
	default:
		sc.FacetConfiguration = def.FacetConfiguration
	}

	switch {
	case override.DisableScorings:
	case !override.ScoringConfiguration.IsEmpty():
		sc.ScoringConfiguration = override.ScoringConfiguration
	default:
		sc.ScoringConfiguration = def.ScoringConfiguration
	}

	switch {
	case override.DisableQueryConfig:
	case len(override.QueryConfigs) > 0:
		sc.QueryConfigs = override.QueryConfigs
	default:
		sc.QueryConfigs = def.QueryConfigs
	}

	switch {
	case override.DisableSortingConfig:
	case len(override.SortConfigs) > 0:
		sc.SortConfigs = override.SortConfigs
	default:
		sc.SortConfigs = def.SortConfigs
	}
	return sc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
