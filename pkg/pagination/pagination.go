// Package pagination reads limit/offset query parameters and derives the
// position of the following page.
package pagination

import (
	"net/url"
	"strconv"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
)

// Query parameter names.
const (
	KeyLimit  = "limit"
	KeyOffset = "offset"
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NonNegative reads key from q. ok is false when the parameter is absent or
// empty; malformed and negative values yield an INVALID_PARAMETER error.
func NonNegative(q url.Values, key string) (n int, ok bool, err error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(raw)
	if err != nil {
		return 0, false, apperrors.InvalidParameter(key, "not a number")
	}
	if n < 0 {
		return 0, false, apperrors.InvalidParameter(key, "must not be negative")
	}
	return n, true, nil
}

// FromQuery extracts limit and offset. A missing limit falls back to
// defaultLimit and larger limits are capped at maxLimit.
func FromQuery(q url.Values, defaultLimit, maxLimit int) (Params, error) {
	p := Params{Limit: defaultLimit}

	limit, ok, err := NonNegative(q, KeyLimit)
	if err != nil {
		return Params{}, err
	}
	if ok {
		p.Limit = min(limit, maxLimit)
	}

	offset, _, err := NonNegative(q, KeyOffset)
	if err != nil {
		return Params{}, err
	}
	p.Offset = offset
	return p, nil
}

// Next is the offset of the following page.
func (p Params) Next() int {
	return p.Offset + p.Limit
}

// HasNext reports whether total matches extend past the current page.
func (p Params) HasNext(total int64) bool {
	return total > int64(p.Next())
}
