package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/httputil"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/logger"
)

type principalKey struct{}

// ErrInvalidToken is returned by validators for unknown tokens.
var ErrInvalidToken = errors.New("invalid token")

// Principal is the feeder behind an indexer API token.
type Principal struct {
	Name string `json:"name"`
}

// TokenValidator resolves a bearer token to a principal.
type TokenValidator func(token string) (*Principal, error)

// StaticTokens returns a validator over a fixed name->token table. Tokens
// are compared in constant time and empty tokens never match.
func StaticTokens(tokens map[string]string) TokenValidator {
	return func(token string) (*Principal, error) {
		for name, want := range tokens {
			if want != "" && subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1 {
				return &Principal{Name: name}, nil
			}
		}
		return nil, ErrInvalidToken
	}
}

// Auth guards the indexer API. Requests need "Authorization: Bearer <token>";
// the resolved principal is stored in the context and added to the request
// logger as "principal".
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				rejectUnauthorized(w, r, "missing bearer token")
				return
			}
			principal, err := validate(token)
			if err != nil {
				rejectUnauthorized(w, r, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("principal", principal.Name)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// PrincipalFromContext returns the authenticated caller, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

func rejectUnauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="indexer"`)
	logger.FromContext(r.Context()).WarnContext(r.Context(), "indexer request rejected",
		slog.String("reason", reason),
		slog.String("path", r.URL.Path),
	)
	httputil.WriteError(w, r, apperrors.Unauthorized(reason), nil)
}
