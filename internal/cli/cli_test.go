package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/pkg/prompt"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

const seedYAML = `categories:
  - id: cat-elder
    name: Elder Care
  - id: cat-plumbing
    name: Plumbing
services:
  - id: svc-transport
    name: Elder Transport
    category_id: cat-elder
    duration_minutes: 90
users:
  - id: usr-ben
    name: Ben Elder
    email: ben@example.com
`

func noEnv(string) (string, bool) { return "", false }

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func run(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	if opts == nil {
		opts = &RootOptions{}
	}
	opts.lookupEnv = noEnv
	cmd := newRootCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type answers map[string]string

type scriptedDriver struct {
	answers answers
	info    []string
}

func (d *scriptedDriver) answer(message string) string {
	for prefix, v := range d.answers {
		if strings.HasPrefix(message, prefix) {
			return v
		}
	}
	return ""
}

func (d *scriptedDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	return d.answer(cfg.Message), nil
}

func (d *scriptedDriver) Select(context.Context, prompt.SelectConfig) (int, error) { return 0, nil }

func (d *scriptedDriver) Confirm(context.Context, prompt.ConfirmConfig) (bool, error) {
	return false, nil
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.info = append(d.info, msg)
	return nil
}

func TestSearchCommand_JSON(t *testing.T) {
	out, err := run(t, nil, "--seed", writeSeed(t), "--output", "json", "search", "elder")
	if err != nil {
		t.Fatalf("search: %v\n%s", err, out)
	}
	var payload struct {
		Results []struct {
			Name         string `json:"name"`
			CategoryName string `json:"categoryName"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	var names []string
	for _, r := range payload.Results {
		names = append(names, r.Name)
	}
	if diff := testsupport.Diff([]string{"Elder Care", "Elder Transport", "Ben Elder"}, names); diff != "" {
		t.Fatalf("unexpected results (-want +got):\n%s", diff)
	}
}

func TestSearchCommand_HumanNoResults(t *testing.T) {
	out, err := run(t, nil, "search", "--type", "users", "nobody")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if strings.TrimSpace(out) != "No results" {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := run(t, nil, "search", "--type", "planets", "x"); err == nil {
		t.Fatalf("expected unknown type error")
	}
}

func TestCheckCommand(t *testing.T) {
	seed := writeSeed(t)

	out, err := run(t, nil, "--seed", seed, "check", "category", " plumbing ")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if strings.TrimSpace(out) != "A category with this name already exists" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = run(t, nil, "--seed", seed, "check", "category", "Gardening")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if strings.TrimSpace(out) != "Gardening is available" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = run(t, nil, "--seed", seed, "check", "service", "Elder Transport", "--scope", "cat-plumbing")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "is available") {
		t.Fatalf("expected name free in another category, got %q", out)
	}
}

func TestRulesCommand(t *testing.T) {
	out, err := run(t, nil, "rules", "category")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	for _, want := range []string{"category:", "Category name cannot contain numbers", "A category with this name already exists"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "service:") {
		t.Fatalf("expected only the category rules:\n%s", out)
	}
}

func TestCreateCommand_Category(t *testing.T) {
	driver := &scriptedDriver{answers: answers{
		"Category name": "Home Repair",
		"Description":   "Fix everything at home",
	}}
	out, err := run(t, &RootOptions{driver: driver}, "--seed", writeSeed(t), "create", "category")
	if err != nil {
		t.Fatalf("create: %v\n%s", err, out)
	}
	if !strings.HasPrefix(out, `Created category "Home Repair"`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCreateCommand_IconOnlyForCategories(t *testing.T) {
	if _, err := run(t, &RootOptions{driver: &scriptedDriver{}}, "create", "user", "--icon", "x.png"); err == nil {
		t.Fatalf("expected --icon to be rejected for users")
	}
}

func TestRootRejectsBadOutput(t *testing.T) {
	if _, err := run(t, nil, "--output", "xml", "rules"); err == nil {
		t.Fatalf("expected invalid --output error")
	}
	if _, err := run(t, nil, "--backend", "mongo", "rules"); err == nil {
		t.Fatalf("expected invalid backend error")
	}
}

func TestRouter(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Seed = writeSeed(t)
	logger := testLogger(t)
	app, closer, err := openApp(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	defer closer()

	httpCfg := cfg.HTTP
	httpCfg.AllowedOrigins = []string{"https://admin.example.com"}
	h, err := newRouter(app, httpCfg, logger)
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unique?entity=category&name=PLUMBING", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"available":false`) {
		t.Fatalf("unexpected unique response %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=elder", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Fatalf("expected CORS header, got %q", got)
	}
}
