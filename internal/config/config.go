package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/square-listmonk-sync/internal/domain"
)

// DefaultPath is where the config file is read from when no flag is given.
const DefaultPath = "config.json"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the operator-supplied run settings. It is loaded once at
// startup and passed by value; nothing mutates it afterwards.
type Config struct {
	// RunEvery is how often the sync runs, in seconds.
	RunEvery int `json:"run_every" yaml:"run_every"`

	// ListmonkDomain is the bare host of the listmonk instance, without
	// scheme or path.
	ListmonkDomain string `json:"listmonk_domain" yaml:"listmonk_domain"`

	// ListmonkListIDs are the lists imported subscribers are added to.
	ListmonkListIDs []int `json:"listmonk_list_ids" yaml:"listmonk_list_ids"`

	// ListmonkConfirmation marks imported subscribers as confirmed.
	ListmonkConfirmation bool `json:"listmonk_confirmation" yaml:"listmonk_confirmation"`

	// ListmonkOverwrite lets the import overwrite existing subscribers.
	ListmonkOverwrite bool `json:"listmonk_overwrite" yaml:"listmonk_overwrite"`

	HTTPTimeoutSeconds   int        `json:"http_timeout_seconds" yaml:"http_timeout_seconds"`
	SquareMaxRetries     int        `json:"square_max_retries" yaml:"square_max_retries"`
	LogLevel             string     `json:"log_level" yaml:"log_level"`
	RedactPII            bool       `json:"redact_pii" yaml:"redact_pii"`
	StatusAddr           string     `json:"status_addr" yaml:"status_addr"`
	StatusAllowedOrigins []string   `json:"status_allowed_origins" yaml:"status_allowed_origins"`
	Lock                 LockConfig `json:"lock" yaml:"lock"`
}

// LockConfig selects an optional cross-process run lock. With neither URL
// set only the in-process guard is used.
type LockConfig struct {
	RedisURL    string `json:"redis_url" yaml:"redis_url"`
	DatabaseURL string `json:"database_url" yaml:"database_url"`
	Key         string `json:"key" yaml:"key"`
	TTLSeconds  int    `json:"ttl_seconds" yaml:"ttl_seconds"`
}

// TTL returns the Redis lock expiry as a duration.
func (c LockConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Interval returns the run interval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.RunEvery) * time.Second
}

// HTTPTimeout returns the per-request timeout for both API clients.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// SubscriptionStatus maps the confirmation flag to listmonk's status token.
func (c Config) SubscriptionStatus() domain.SubscriptionStatus {
	if c.ListmonkConfirmation {
		return domain.StatusConfirmed
	}
	return domain.StatusUnconfirmed
}

// Validate checks the settings that cannot be defaulted.
func (c Config) Validate() error {
	if c.RunEvery <= 0 {
		return fmt.Errorf("%w: run_every must be a positive number of seconds", ErrInvalidConfig)
	}
	domainName := strings.TrimSpace(c.ListmonkDomain)
	if domainName == "" {
		return fmt.Errorf("%w: listmonk_domain is required", ErrInvalidConfig)
	}
	if strings.Contains(domainName, "://") || strings.ContainsAny(domainName, "/?#") {
		return fmt.Errorf("%w: listmonk_domain must be a bare host without scheme or path, got %q", ErrInvalidConfig, c.ListmonkDomain)
	}
	for _, id := range c.ListmonkListIDs {
		if id <= 0 {
			return fmt.Errorf("%w: listmonk_list_ids must be positive, got %d", ErrInvalidConfig, id)
		}
	}
	if c.HTTPTimeoutSeconds < 0 {
		return fmt.Errorf("%w: http_timeout_seconds must not be negative", ErrInvalidConfig)
	}
	if c.SquareMaxRetries < 0 {
		return fmt.Errorf("%w: square_max_retries must not be negative", ErrInvalidConfig)
	}
	if c.Lock.RedisURL != "" && c.Lock.DatabaseURL != "" {
		return fmt.Errorf("%w: lock.redis_url and lock.database_url are mutually exclusive", ErrInvalidConfig)
	}
	return nil
}

// requiredKeys are the settings every config file must spell out.
var requiredKeys = []string{
	"run_every",
	"listmonk_domain",
	"listmonk_list_ids",
	"listmonk_confirmation",
	"listmonk_overwrite",
}

// Load reads and parses the configuration file. Files ending in .yaml or
// .yml are parsed as YAML, anything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s, does it exist? %w", path, err)
	}

	cfg := Config{RedactPII: true}
	var present map[string]interface{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &present); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &present); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	for _, key := range requiredKeys {
		if _, ok := present[key]; !ok {
			return nil, fmt.Errorf("%w: missing field %q in %s", ErrInvalidConfig, key, path)
		}
	}

	// Defaults
	cfg.ListmonkDomain = strings.TrimSpace(cfg.ListmonkDomain)
	if cfg.HTTPTimeoutSeconds == 0 {
		cfg.HTTPTimeoutSeconds = 60
	}
	if cfg.Lock.Key == "" {
		cfg.Lock.Key = "square-listmonk-sync"
	}
	if cfg.Lock.TTLSeconds == 0 {
		cfg.Lock.TTLSeconds = 30 * 60
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Credentials are the secrets read from the environment at startup.
type Credentials struct {
	SquareAPIToken   string
	ListmonkUsername string
	ListmonkPassword string
}

// String keeps secrets out of log lines and %v formatting.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{SquareAPIToken:%s ListmonkUsername:%s ListmonkPassword:%s}",
		mask(c.SquareAPIToken), c.ListmonkUsername, mask(c.ListmonkPassword))
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

// LoadCredentials reads the required secrets. A .env file in the working
// directory is loaded first if present; real environment variables win.
func LoadCredentials() (Credentials, error) {
	_ = godotenv.Load()

	var creds Credentials
	for _, v := range []struct {
		name string
		dst  *string
	}{
		{"SQUARE_API_TOKEN", &creds.SquareAPIToken},
		{"LISTMONK_USER", &creds.ListmonkUsername},
		{"LISTMONK_PASSWORD", &creds.ListmonkPassword},
	} {
		val := os.Getenv(v.name)
		if val == "" {
			return Credentials{}, fmt.Errorf("missing the %s environment variable", v.name)
		}
		*v.dst = val
	}
	return creds, nil
}

// SquareBaseURL returns the Square API origin, honouring SQUARE_BASE_URL so
// the sandbox can be targeted.
func SquareBaseURL() string {
	if v := strings.TrimRight(os.Getenv("SQUARE_BASE_URL"), "/"); v != "" {
		return v
	}
	return "https://connect.squareup.com"
}
