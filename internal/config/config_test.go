package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/square-listmonk-sync/internal/domain"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
	"run_every": 3600,
	"listmonk_domain": "lists.example.com",
	"listmonk_list_ids": [3, 7],
	"listmonk_confirmation": true,
	"listmonk_overwrite": false
}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3600, cfg.RunEvery)
	assert.Equal(t, "lists.example.com", cfg.ListmonkDomain)
	assert.Equal(t, []int{3, 7}, cfg.ListmonkListIDs)
	assert.True(t, cfg.ListmonkConfirmation)
	assert.False(t, cfg.ListmonkOverwrite)

	// Defaults
	assert.Equal(t, 60, cfg.HTTPTimeoutSeconds)
	assert.Equal(t, 0, cfg.SquareMaxRetries)
	assert.True(t, cfg.RedactPII)
	assert.Equal(t, "square-listmonk-sync", cfg.Lock.Key)
	assert.Equal(t, 1800, cfg.Lock.TTLSeconds)
	assert.Empty(t, cfg.StatusAddr)

	assert.Equal(t, "1h0m0s", cfg.Interval().String())
	assert.Equal(t, domain.StatusConfirmed, cfg.SubscriptionStatus())
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
run_every: 600
listmonk_domain: lists.example.com
listmonk_list_ids: [1]
listmonk_confirmation: false
listmonk_overwrite: true
log_level: debug
redact_pii: false
status_addr: ":9090"
lock:
  redis_url: "redis://localhost:6379/0"
  ttl_seconds: 120
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 600, cfg.RunEvery)
	assert.True(t, cfg.ListmonkOverwrite)
	assert.Equal(t, domain.StatusUnconfirmed, cfg.SubscriptionStatus())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.RedactPII)
	assert.Equal(t, ":9090", cfg.StatusAddr)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Lock.RedisURL)
	assert.Equal(t, "2m0s", cfg.Lock.TTL().String())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.json"))
	assert.Error(t, err)
}

func TestLoad_Malformed(t *testing.T) {
	path := writeConfig(t, "config.json", `{"run_every": 60,`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingField(t *testing.T) {
	path := writeConfig(t, "config.json", `{
	"run_every": 60,
	"listmonk_domain": "lists.example.com",
	"listmonk_list_ids": [1],
	"listmonk_confirmation": true
}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "listmonk_overwrite")
}

func TestValidate(t *testing.T) {
	valid := Config{RunEvery: 60, ListmonkDomain: "lists.example.com", ListmonkListIDs: []int{1}}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero interval", func(c *Config) { c.RunEvery = 0 }},
		{"empty domain", func(c *Config) { c.ListmonkDomain = " " }},
		{"domain with scheme", func(c *Config) { c.ListmonkDomain = "https://lists.example.com" }},
		{"domain with path", func(c *Config) { c.ListmonkDomain = "lists.example.com/admin" }},
		{"non-positive list id", func(c *Config) { c.ListmonkListIDs = []int{0} }},
		{"negative retries", func(c *Config) { c.SquareMaxRetries = -1 }},
		{"two lock backends", func(c *Config) {
			c.Lock.RedisURL = "redis://localhost:6379"
			c.Lock.DatabaseURL = "postgres://localhost/sync"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("SQUARE_API_TOKEN", "sq-token")
	t.Setenv("LISTMONK_USER", "admin")
	t.Setenv("LISTMONK_PASSWORD", "secret")

	creds, err := LoadCredentials()
	require.NoError(t, err)

	assert.Equal(t, "sq-token", creds.SquareAPIToken)
	assert.Equal(t, "admin", creds.ListmonkUsername)
	assert.Equal(t, "secret", creds.ListmonkPassword)
	assert.NotContains(t, creds.String(), "secret")
	assert.NotContains(t, creds.String(), "sq-token")
}

func TestLoadCredentials_Missing(t *testing.T) {
	t.Setenv("SQUARE_API_TOKEN", "sq-token")
	t.Setenv("LISTMONK_USER", "admin")
	t.Setenv("LISTMONK_PASSWORD", "")

	_, err := LoadCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LISTMONK_PASSWORD")
}

func TestSquareBaseURL(t *testing.T) {
	t.Setenv("SQUARE_BASE_URL", "")
	assert.Equal(t, "https://connect.squareup.com", SquareBaseURL())

	t.Setenv("SQUARE_BASE_URL", "https://connect.squareupsandbox.com/")
	assert.Equal(t, "https://connect.squareupsandbox.com", SquareBaseURL())
}
