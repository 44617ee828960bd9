package pagination

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SrinivasareddyGatla/open-commerce-search/pkg/errors"
)

func TestFromQuery_Defaults(t *testing.T) {
	p, err := FromQuery(url.Values{}, 12, 100)
	require.NoError(t, err)

	assert.Equal(t, 12, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

func TestFromQuery_CustomValues(t *testing.T) {
	p, err := FromQuery(url.Values{"limit": {"24"}, "offset": {"48"}}, 12, 100)
	require.NoError(t, err)

	assert.Equal(t, 24, p.Limit)
	assert.Equal(t, 48, p.Offset)
}

func TestFromQuery_CapsLimit(t *testing.T) {
	p, err := FromQuery(url.Values{"limit": {"500"}}, 12, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Limit)
}

func TestFromQuery_ZeroLimit(t *testing.T) {
	p, err := FromQuery(url.Values{"limit": {"0"}}, 12, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Limit)
}

func TestFromQuery_Invalid(t *testing.T) {
	cases := []url.Values{
		{"limit": {"ten"}},
		{"limit": {"-1"}},
		{"offset": {"x"}},
		{"offset": {"-5"}},
	}
	for _, q := range cases {
		_, err := FromQuery(q, 12, 100)
		require.Error(t, err, q.Encode())
		assert.True(t, errors.Is(err, apperrors.ErrInvalidParameter), q.Encode())
	}
}

func TestNonNegative(t *testing.T) {
	n, ok, err := NonNegative(url.Values{"limit": {"7"}}, "limit")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok, err = NonNegative(url.Values{"limit": {""}}, "limit")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = NonNegative(url.Values{"limit": {"-2"}}, "limit")
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "must not be negative")
}

func TestParams_Next(t *testing.T) {
	p := Params{Limit: 20, Offset: 40}

	assert.Equal(t, 60, p.Next())
	assert.True(t, p.HasNext(61))
	assert.False(t, p.HasNext(60))
	assert.False(t, Params{Limit: 20}.HasNext(20))
}
