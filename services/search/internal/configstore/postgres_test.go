package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/database"
	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

var settingsColumns = []string{"scope", "name", "config"}

func TestPostgresStore_Load(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewPostgresStore(mock)

	want := validSettings()
	mock.ExpectQuery("SELECT .+ FROM search_settings").
		WillReturnRows(pgxmock.NewRows(settingsColumns).
			AddRow(ScopeDefaultIndex, "", mustJSON(t, want.DefaultIndex)).
			AddRow(ScopeDefaultTenant, "", mustJSON(t, want.DefaultTenant)).
			AddRow(ScopeIndex, "acme-products", mustJSON(t, domain.IndexConfig{Fields: []domain.Field{{Name: "title"}}})).
			AddRow(ScopeTenant, "acme", mustJSON(t, want.Tenants["acme"])),
		)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want.DefaultTenant, got.DefaultTenant)
	assert.Equal(t, want.DefaultIndex, got.DefaultIndex)
	assert.Equal(t, "acme-products", got.Tenants["acme"].IndexName)
	assert.Len(t, got.Indexes["acme-products"].Fields, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load_UnknownScope(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewPostgresStore(mock)

	mock.ExpectQuery("SELECT .+ FROM search_settings").
		WillReturnRows(pgxmock.NewRows(settingsColumns).AddRow("tenants", "acme", []byte(`{}`)))

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scope")
}

func TestPostgresStore_Load_InvalidRow(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewPostgresStore(mock)

	mock.ExpectQuery("SELECT .+ FROM search_settings").
		WillReturnRows(pgxmock.NewRows(settingsColumns).
			AddRow(ScopeTenant, "acme", []byte(`{"variantPicking":"pickRandom"}`)))

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VariantPicking")
}

func TestPostgresStore_Load_QueryError(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewPostgresStore(mock)

	mock.ExpectQuery("SELECT .+ FROM search_settings").
		WillReturnError(errors.New("connection refused"))

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load settings")
}

func TestPostgresStore_Save(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewPostgresStore(mock)

	s := validSettings()
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM search_settings").WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("INSERT INTO search_settings").
		WithArgs(ScopeDefaultTenant, "", mustJSON(t, s.DefaultTenant)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO search_settings").
		WithArgs(ScopeTenant, "acme", mustJSON(t, s.Tenants["acme"])).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO search_settings").
		WithArgs(ScopeDefaultIndex, "", mustJSON(t, s.DefaultIndex)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_RollsBack(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewPostgresStore(mock)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM search_settings").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err := store.Save(context.Background(), validSettings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear settings")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_RejectsInvalid(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewPostgresStore(mock)

	s := validSettings()
	s.DefaultIndex.Fields = append(s.DefaultIndex.Fields, domain.Field{Name: "title"})

	require.Error(t, store.Save(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteTenant(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewPostgresStore(mock)

	mock.ExpectExec("DELETE FROM search_settings WHERE scope").
		WithArgs(ScopeTenant, "acme").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM search_settings WHERE scope").
		WithArgs(ScopeTenant, "ghost").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, store.DeleteTenant(context.Background(), "acme"))
	err := store.DeleteTenant(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutTenant(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewPostgresStore(mock)

	tc := domain.TenantConfig{IndexName: "globex-products"}
	mock.ExpectExec("INSERT INTO search_settings").
		WithArgs(ScopeTenant, "globex", mustJSON(t, tc)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.PutTenant(context.Background(), "globex", tc))
	assert.NoError(t, mock.ExpectationsWereMet())
}
