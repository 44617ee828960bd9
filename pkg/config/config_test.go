package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceConfig struct {
	Port      int           `env:"OCS_TEST_PORT" envDefault:"8010" validate:"gte=1,lte=65535"`
	Engine    string        `env:"OCS_TEST_ENGINE" envDefault:"memory" validate:"oneof=memory elasticsearch"`
	CacheTTL  time.Duration `env:"OCS_TEST_CACHE_TTL" envDefault:"10m"`
	Brokers   []string      `env:"OCS_TEST_BROKERS" envSeparator:","`
	APIToken  string        `env:"OCS_TEST_TOKEN"`
	WatchFile bool          `env:"OCS_TEST_WATCH" envDefault:"true"`
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, cfg serviceConfig)
		wantErr string
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg serviceConfig) {
				assert.Equal(t, 8010, cfg.Port)
				assert.Equal(t, "memory", cfg.Engine)
				assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
				assert.Empty(t, cfg.Brokers)
				assert.True(t, cfg.WatchFile)
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"OCS_TEST_PORT":    "9090",
				"OCS_TEST_ENGINE":  "elasticsearch",
				"OCS_TEST_BROKERS": "k1:9092,k2:9092",
				"OCS_TEST_WATCH":   "false",
			},
			check: func(t *testing.T, cfg serviceConfig) {
				assert.Equal(t, 9090, cfg.Port)
				assert.Equal(t, "elasticsearch", cfg.Engine)
				assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
				assert.False(t, cfg.WatchFile)
			},
		},
		{
			name:    "unparsable value",
			env:     map[string]string{"OCS_TEST_CACHE_TTL": "ten minutes"},
			wantErr: "parse config",
		},
		{
			name:    "violated validate tag",
			env:     map[string]string{"OCS_TEST_PORT": "70000"},
			wantErr: "invalid config: Port must be less than or equal to 65535",
		},
		{
			name:    "value outside oneof",
			env:     map[string]string{"OCS_TEST_ENGINE": "solr"},
			wantErr: "Engine must be one of: memory elasticsearch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			var cfg serviceConfig
			err := Load(&cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

type catalogDoc struct {
	IndexName string   `yaml:"indexName"`
	Locale    string   `yaml:"locale"`
	Fields    []string `yaml:"fields"`
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "search.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML_Expansion(t *testing.T) {
	t.Setenv("OCS_TEST_INDEX", "products-de")
	t.Setenv("OCS_TEST_EMPTY", "")

	tests := []struct {
		name   string
		doc    string
		index  string
		locale string
	}{
		{"plain", "indexName: products\nlocale: en\n", "products", "en"},
		{"set variable", "indexName: ${OCS_TEST_INDEX}\n", "products-de", ""},
		{"default used when unset", "indexName: ${OCS_TEST_MISSING:-fallback}\n", "fallback", ""},
		{"default used when empty", "locale: ${OCS_TEST_EMPTY:-de}\n", "", "de"},
		{"set variable beats default", "indexName: ${OCS_TEST_INDEX:-other}\n", "products-de", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc catalogDoc
			require.NoError(t, LoadYAML(writeYAML(t, tt.doc), &doc))
			assert.Equal(t, tt.index, doc.IndexName)
			assert.Equal(t, tt.locale, doc.Locale)
		})
	}
}

func TestLoadYAML_ListsAndEmptyDocument(t *testing.T) {
	doc := catalogDoc{IndexName: "keep"}
	require.NoError(t, LoadYAML(writeYAML(t, ""), &doc))
	assert.Equal(t, "keep", doc.IndexName)

	require.NoError(t, DecodeYAML([]byte("fields: [title, brand]\n"), &doc))
	assert.Equal(t, []string{"title", "brand"}, doc.Fields)
}

func TestLoadYAML_Errors(t *testing.T) {
	var doc catalogDoc

	err := LoadYAML(writeYAML(t, "indexName: p\nindexNmae: typo\n"), &doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.yaml: decode yaml")

	err = LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"), &doc)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
