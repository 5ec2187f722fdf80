// Package config loads formflow settings from defaults, an optional YAML file
// and FORMFLOW_* environment variables, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FORMFLOW_"

type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	Debounce DebounceConfig `yaml:"debounce"`
	Search   SearchConfig   `yaml:"search"`
	Upload   UploadConfig   `yaml:"upload"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Rules    RulesConfig    `yaml:"rules"`
}

type StoreConfig struct {
	Backend    string         `yaml:"backend"`
	SQLitePath string         `yaml:"sqlite_path"`
	Seed       string         `yaml:"seed"`
	Supabase   SupabaseConfig `yaml:"supabase"`
}

type SupabaseConfig struct {
	URL            string            `yaml:"url"`
	Key            string            `yaml:"key"`
	Bucket         string            `yaml:"bucket"`
	CategoryColumn string            `yaml:"category_column"`
	Tables         map[string]string `yaml:"tables"`
}

type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
}

type DebounceConfig struct {
	Category time.Duration `yaml:"category"`
	Service  time.Duration `yaml:"service"`
	Provider time.Duration `yaml:"provider"`
	User     time.Duration `yaml:"user"`
	Search   time.Duration `yaml:"search"`
}

type SearchConfig struct {
	DefaultLimit int    `yaml:"default_limit"`
	MaxLimit     int    `yaml:"max_limit"`
	EmptyMode    string `yaml:"empty_mode"`
}

type UploadConfig struct {
	Prefix  string `yaml:"prefix"`
	BaseURL string `yaml:"base_url"`
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RulesConfig points at optional rule sources layered over the built-in
// catalog. OpenAPISchemas maps entity names to component schema names.
type RulesConfig struct {
	File           string            `yaml:"file"`
	OpenAPI        string            `yaml:"openapi"`
	OpenAPISchemas map[string]string `yaml:"openapi_schemas"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:    BackendMemory,
			SQLitePath: "formflow.db",
			Supabase: SupabaseConfig{
				Bucket:         "category-icons",
				CategoryColumn: "category_id",
			},
		},
		Breaker: BreakerConfig{
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
		Debounce: DebounceConfig{
			Category: 500 * time.Millisecond,
			Service:  600 * time.Millisecond,
			Provider: 800 * time.Millisecond,
			User:     800 * time.Millisecond,
			Search:   300 * time.Millisecond,
		},
		Search: SearchConfig{
			DefaultLimit: 50,
			MaxLimit:     200,
			EmptyMode:    "none",
		},
		Upload: UploadConfig{
			Prefix:  "icons",
			BaseURL: "http://localhost:8080/uploads",
		},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an injectable environment lookup.
func LoadWith(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if lookup != nil {
		if err := cfg.applyEnv(lookup); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(c)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"STORE_BACKEND":     &c.Store.Backend,
		"SQLITE_PATH":       &c.Store.SQLitePath,
		"SEED":              &c.Store.Seed,
		"SUPABASE_URL":      &c.Store.Supabase.URL,
		"SUPABASE_KEY":      &c.Store.Supabase.Key,
		"SUPABASE_BUCKET":   &c.Store.Supabase.Bucket,
		"SEARCH_EMPTY_MODE": &c.Search.EmptyMode,
		"UPLOAD_BASE_URL":   &c.Upload.BaseURL,
		"HTTP_ADDR":         &c.HTTP.Addr,
		"LOG_LEVEL":         &c.Log.Level,
		"LOG_FORMAT":        &c.Log.Format,
		"RULES_FILE":        &c.Rules.File,
		"RULES_OPENAPI":     &c.Rules.OpenAPI,
	}
	for key, target := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*target = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup(EnvPrefix + "BREAKER_ENABLED"); ok {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sBREAKER_ENABLED: %w", EnvPrefix, err)
		}
		c.Breaker.Enabled = enabled
	}

	durations := map[string]*time.Duration{
		"DEBOUNCE_CATEGORY": &c.Debounce.Category,
		"DEBOUNCE_SERVICE":  &c.Debounce.Service,
		"DEBOUNCE_PROVIDER": &c.Debounce.Provider,
		"DEBOUNCE_USER":     &c.Debounce.User,
		"DEBOUNCE_SEARCH":   &c.Debounce.Search,
	}
	for key, target := range durations {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*target = d
	}

	if v, ok := lookup(EnvPrefix + "HTTP_ALLOWED_ORIGINS"); ok {
		c.HTTP.AllowedOrigins = splitList(v)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	case BackendSupabase:
		if c.Store.Supabase.URL == "" || c.Store.Supabase.Key == "" {
			errs = append(errs, errors.New("store.supabase.url and store.supabase.key are required for the supabase backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q must be memory, sqlite or supabase", c.Store.Backend))
	}

	if c.Breaker.FailureThreshold <= 0 || c.Breaker.FailureThreshold > 1 {
		errs = append(errs, fmt.Errorf("breaker.failure_threshold %v must be in (0, 1]", c.Breaker.FailureThreshold))
	}
	for name, d := range map[string]time.Duration{
		"category": c.Debounce.Category,
		"service":  c.Debounce.Service,
		"provider": c.Debounce.Provider,
		"user":     c.Debounce.User,
		"search":   c.Debounce.Search,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("debounce.%s must be positive", name))
		}
	}
	switch c.Search.EmptyMode {
	case "none", "all":
	default:
		errs = append(errs, fmt.Errorf("search.empty_mode %q must be none or all", c.Search.EmptyMode))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}
	if c.Rules.OpenAPI != "" && len(c.Rules.OpenAPISchemas) == 0 {
		errs = append(errs, errors.New("rules.openapi_schemas is required when rules.openapi is set"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
}
