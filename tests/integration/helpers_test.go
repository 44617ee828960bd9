package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/httpclient"
)

// The suite talks to running services. Ports default to the compose setup
// and can be moved with SEARCH_PORT and SUGGEST_PORT.
func searchPort() int  { return envPort("SEARCH_PORT", 8010) }
func suggestPort() int { return envPort("SUGGEST_PORT", 8011) }

func envPort(key string, fallback int) int {
	port, err := strconv.Atoi(os.Getenv(key))
	if err != nil || port <= 0 {
		return fallback
	}
	return port
}

func indexerToken() string { return os.Getenv("INDEXER_API_TOKEN") }

func baseURL(port int) string {
	return "http://localhost:" + strconv.Itoa(port)
}

// client does not retry so failures surface at the request that caused them.
var client = httpclient.New(httpclient.Config{
	Timeout:         10 * time.Second,
	MaxConnsPerHost: 4,
	UserAgent:       "ocs-integration-tests",
})

// uniqueName returns a lowercase index name that is fresh for every run.
func uniqueName(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// skipIfNotRunning skips the test when the service does not answer its
// liveness probe.
func skipIfNotRunning(t *testing.T, port int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, baseURL(port)+"/health/live")
	if err != nil {
		t.Skipf("service on port %d not reachable: %v", port, err)
	}
	_ = resp.Body.Close()
}

func httpGet(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	return send(t, http.MethodGet, url, nil, "")
}

func httpPostWithAuth(t *testing.T, url string, body any, token string) (int, map[string]any) {
	t.Helper()
	return send(t, http.MethodPost, url, body, token)
}

// send issues one request and decodes the JSON response. Bodies that are
// not JSON come back under "raw".
func send(t *testing.T, method, url string, body any, token string) (int, map[string]any) {
	t.Helper()

	var payload io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err, "encode request body")
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, payload)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(context.Background(), req)
	require.NoError(t, err, "%s %s", method, url)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "read response of %s %s", method, url)

	decoded := map[string]any{}
	if len(raw) > 0 && json.Unmarshal(raw, &decoded) != nil {
		decoded = map[string]any{"raw": string(raw)}
	}
	return resp.StatusCode, decoded
}

func requireStatus(t *testing.T, got, want int, body map[string]any) {
	t.Helper()
	require.Equal(t, want, got, "unexpected status, body: %v", body)
}

// extractField walks a decoded JSON document along a dotted path. Numeric
// segments index arrays: "data.slices.0.matchCount".
func extractField(data map[string]any, path string) any {
	var node any = data
	for _, seg := range strings.Split(path, ".") {
		switch v := node.(type) {
		case map[string]any:
			node = v[seg]
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(v) {
				return nil
			}
			node = v[i]
		default:
			return nil
		}
	}
	return node
}

func extractString(t *testing.T, data map[string]any, path string) string {
	t.Helper()
	v := extractField(data, path)
	s, ok := v.(string)
	require.True(t, ok, fmt.Sprintf("expected string at %q, got %#v", path, v))
	return s
}
