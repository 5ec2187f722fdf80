package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/store"
)

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Config{URL: "https://example.supabase.co"}, nil); err == nil {
		t.Fatalf("expected error without key")
	}
}

func TestClassify(t *testing.T) {
	s := &Store{logger: zap.NewNop()}

	err := s.classify("create", entity.Category, errors.New(`(23505) duplicate key value violates unique constraint "categories_name_key"`))
	rejected, ok := store.IsRejected(err)
	if !ok || rejected.Field != "name" || !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected name conflict, got %v", err)
	}

	err = s.classify("create", entity.Provider, errors.New("(23505) duplicate key"))
	if rejected, ok := store.IsRejected(err); !ok || rejected.Field != "email" {
		t.Fatalf("expected email conflict, got %v", err)
	}

	err = s.classify("create", entity.Service, errors.New(`(23502) null value in column "price"`))
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	err = s.classify("list", entity.Service, errors.New("dial tcp: connection refused"))
	if !store.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestListReconcilesRows(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/services" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("category_id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"svc-1","title":"Elder Transport","categoryId":"home","durationMinutes":90,"price":450}]`))
	}))
	defer server.Close()

	s, err := New(Config{URL: server.URL, Key: "test-key"}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	records, err := s.List(context.Background(), entity.Service, store.Filter{CategoryID: "home"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotQuery != "eq.home" {
		t.Fatalf("expected category filter pushed down, got %q", gotQuery)
	}
	want := []entity.Record{{
		ID:              "svc-1",
		Type:            entity.Service,
		Name:            "Elder Transport",
		CategoryID:      "home",
		DurationMinutes: 90,
		Attributes:      map[string]any{"price": float64(450)},
	}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestTablesFallBackToDefaults(t *testing.T) {
	s := NewWithClient(nil, Config{Tables: map[entity.Type]string{entity.Provider: " providers "}}, nil)

	if table, _ := s.table(entity.Provider); table != "providers" {
		t.Fatalf("expected override, got %q", table)
	}
	if table, _ := s.table(entity.Category); table != "categories" {
		t.Fatalf("expected default, got %q", table)
	}
	if _, err := s.table(entity.Type("widget")); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown type, got %v", err)
	}
}
