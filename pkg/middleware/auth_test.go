package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedHandler(t *testing.T, tokens map[string]string, seen **Principal) http.Handler {
	t.Helper()
	return Auth(StaticTokens(tokens))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestAuth_ValidToken(t *testing.T) {
	var seen *Principal
	h := authedHandler(t, map[string]string{"feeder": "s3cret"}, &seen)

	req := httptest.NewRequest(http.MethodPost, "/indexer-api/v1/full/add", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "feeder", seen.Name)
}

func TestAuth_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic czNjcmV0"},
		{"unknown token", "Bearer nope"},
		{"no token", "Bearer"},
		{"blank token", "Bearer   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *Principal
			h := authedHandler(t, map[string]string{"feeder": "s3cret"}, &seen)

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, `Bearer realm="indexer"`, rec.Header().Get("WWW-Authenticate"))
			assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
			assert.Nil(t, seen)
		})
	}
}

func TestAuth_SchemeIsCaseInsensitive(t *testing.T) {
	var seen *Principal
	h := authedHandler(t, map[string]string{"catalog-feeder": "s3cret"}, &seen)

	req := httptest.NewRequest(http.MethodPut, "/indexer-api/v1/update/products", nil)
	req.Header.Set("Authorization", "bearer s3cret")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen)
	assert.Equal(t, "catalog-feeder", seen.Name)
}

func TestStaticTokens_EmptyTableRejectsEverything(t *testing.T) {
	validate := StaticTokens(map[string]string{"feeder": ""})
	_, err := validate("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
