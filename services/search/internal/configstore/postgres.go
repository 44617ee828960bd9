package configstore

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/database"
	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
)

// Row scopes of the search_settings table.
const (
	ScopeDefaultTenant = "default_tenant"
	ScopeTenant        = "tenant"
	ScopeDefaultIndex  = "default_index"
	ScopeIndex         = "index"
)

// PostgresStore keeps each tenant and index configuration as one JSONB row.
type PostgresStore struct {
	db database.DBTX
}

// NewPostgresStore creates a store on db.
func NewPostgresStore(db database.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load reads and validates all rows.
func (s *PostgresStore) Load(ctx context.Context) (_ *domain.Settings, err error) {
	query := `
		SELECT scope, name, config
		FROM search_settings
		ORDER BY scope, name`

	ctx, end := database.TraceQuery(ctx, "LoadSearchSettings", query)
	defer func() { end(err) }()

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	settings := &domain.Settings{
		Tenants: map[string]domain.TenantConfig{},
		Indexes: map[string]domain.IndexConfig{},
	}
	for rows.Next() {
		var scope, name string
		var raw []byte
		if err := rows.Scan(&scope, &name, &raw); err != nil {
			return nil, fmt.Errorf("scan settings row: %w", err)
		}
		if err := decodeRow(settings, scope, name, raw); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings rows: %w", err)
	}

	if err := Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func decodeRow(s *domain.Settings, scope, name string, raw []byte) error {
	var err error
	switch scope {
	case ScopeDefaultTenant:
		err = json.Unmarshal(raw, &s.DefaultTenant)
	case ScopeTenant:
		var tc domain.TenantConfig
		if err = json.Unmarshal(raw, &tc); err == nil {
			s.Tenants[name] = tc
		}
	case ScopeDefaultIndex:
		err = json.Unmarshal(raw, &s.DefaultIndex)
	case ScopeIndex:
		var ic domain.IndexConfig
		if err = json.Unmarshal(raw, &ic); err == nil {
			s.Indexes[name] = ic
		}
	default:
		return fmt.Errorf("settings row %s/%s: unknown scope", scope, name)
	}
	if err != nil {
		return fmt.Errorf("decode settings row %s/%s: %w", scope, name, err)
	}
	return nil
}

// Save replaces the stored settings with s in one transaction.
func (s *PostgresStore) Save(ctx context.Context, settings *domain.Settings) (err error) {
	if err := Validate(settings); err != nil {
		return err
	}

	ctx, end := database.TraceQuery(ctx, "SaveSearchSettings", "DELETE/INSERT search_settings")
	defer func() { end(err) }()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save settings: %w", err)
	}
	if err := replaceAll(ctx, tx, settings); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}

func replaceAll(ctx context.Context, db execer, settings *domain.Settings) error {
	if _, err := db.Exec(ctx, `DELETE FROM search_settings`); err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	if err := upsert(ctx, db, ScopeDefaultTenant, "", settings.DefaultTenant); err != nil {
		return err
	}
	for _, name := range slices.Sorted(maps.Keys(settings.Tenants)) {
		if err := upsert(ctx, db, ScopeTenant, name, settings.Tenants[name]); err != nil {
			return err
		}
	}
	if err := upsert(ctx, db, ScopeDefaultIndex, "", settings.DefaultIndex); err != nil {
		return err
	}
	for _, name := range slices.Sorted(maps.Keys(settings.Indexes)) {
		if err := upsert(ctx, db, ScopeIndex, name, settings.Indexes[name]); err != nil {
			return err
		}
	}
	return nil
}

// PutTenant stores the configuration of one tenant.
func (s *PostgresStore) PutTenant(ctx context.Context, name string, tc domain.TenantConfig) error {
	return upsert(ctx, s.db, ScopeTenant, name, tc)
}

// DeleteTenant removes the configuration of one tenant.
func (s *PostgresStore) DeleteTenant(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM search_settings WHERE scope = $1 AND name = $2`, ScopeTenant, name)
	if err != nil {
		return fmt.Errorf("delete tenant %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("tenant", name)
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsert(ctx context.Context, db execer, scope, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", scope, name, err)
	}
	query := `
		INSERT INTO search_settings (scope, name, config, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (scope, name) DO UPDATE SET config = EXCLUDED.config, updated_at = NOW()`
	if _, err := db.Exec(ctx, query, scope, name, raw); err != nil {
		return fmt.Errorf("store %s %s: %w", scope, name, err)
	}
	return nil
}
