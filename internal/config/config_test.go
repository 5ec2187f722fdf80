package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWith("", env(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != BackendMemory || cfg.Debounce.Category != 500*time.Millisecond || cfg.Debounce.Search != 300*time.Millisecond {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formflow.yaml")
	data := `
store:
  backend: sqlite
  sqlite_path: /tmp/market.db
debounce:
  service: 750ms
log:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadWith(path, env(map[string]string{
		"FORMFLOW_LOG_LEVEL":            "warn",
		"FORMFLOW_DEBOUNCE_USER":        "1s",
		"FORMFLOW_HTTP_ALLOWED_ORIGINS": "http://a.test, http://b.test",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.SQLitePath != "/tmp/market.db" {
		t.Fatalf("file values not applied: %+v", cfg.Store)
	}
	if cfg.Debounce.Service != 750*time.Millisecond || cfg.Debounce.User != time.Second {
		t.Fatalf("unexpected debounce: %+v", cfg.Debounce)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "console" {
		t.Fatalf("env must override file: %+v", cfg.Log)
	}
	if len(cfg.HTTP.AllowedOrigins) != 2 || cfg.HTTP.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.HTTP.AllowedOrigins)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("stroe:\n  backend: memory\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWith(path, env(nil)); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	_, err := LoadWith("", env(map[string]string{
		"FORMFLOW_STORE_BACKEND":     "supabase",
		"FORMFLOW_SEARCH_EMPTY_MODE": "top",
	}))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"supabase.url", "search.empty_mode"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}

	if _, err := LoadWith("", env(map[string]string{"FORMFLOW_DEBOUNCE_SEARCH": "soon"})); err == nil {
		t.Fatalf("expected duration parse error")
	}
}
