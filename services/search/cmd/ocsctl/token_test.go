package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/middleware"
)

func TestTokenCmd(t *testing.T) {
	t.Setenv("INDEXER_JWT_SECRET", "ci-secret")

	var out bytes.Buffer
	cmd := newTokenCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"nightly-import", "--ttl", "10m"})
	require.NoError(t, cmd.Execute())

	p, err := middleware.JWTTokens("ci-secret")(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "nightly-import", p.Name)
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	t.Setenv("INDEXER_JWT_SECRET", "")

	cmd := newTokenCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"nightly-import"})
	assert.ErrorContains(t, cmd.Execute(), "INDEXER_JWT_SECRET")
}
