package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IndexerAudience is the audience of tokens accepted by the indexer API.
const IndexerAudience = "ocs-indexer"

// JWTTokens validates HS256 tokens signed with secret. The subject names the
// principal; tokens need an expiry and the IndexerAudience.
func JWTTokens(secret string) TokenValidator {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(IndexerAudience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	return func(token string) (*Principal, error) {
		if secret == "" {
			return nil, ErrInvalidToken
		}
		var claims jwt.RegisteredClaims
		if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return key, nil }); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		if claims.Subject == "" {
			return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
		}
		return &Principal{Name: claims.Subject}, nil
	}
}

// IssueIndexerToken signs a token for JWTTokens naming subject, valid for ttl.
func IssueIndexerToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("issue indexer token: empty secret")
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Audience:  jwt.ClaimStrings{IndexerAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    "ocsctl",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign indexer token: %w", err)
	}
	return signed, nil
}

// AnyOf accepts a token when one of validators does. The error of the last
// validator is returned otherwise.
func AnyOf(validators ...TokenValidator) TokenValidator {
	return func(token string) (*Principal, error) {
		err := ErrInvalidToken
		for _, v := range validators {
			p, verr := v(token)
			if verr == nil {
				return p, nil
			}
			err = verr
		}
		return nil, err
	}
}
