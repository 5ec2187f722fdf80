package uniqueness

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/store/memory"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

func TestCheckUnique_CaseAndWhitespaceVariantsConflict(t *testing.T) {
	fetcher := memory.New(memory.WithRecords(
		entity.Record{ID: "c1", Type: entity.Category, Name: "plumbing "},
	))
	checker := New(fetcher)

	available, err := checker.CheckUnique(context.Background(), Query{Entity: entity.Category, Name: " Plumbing"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if available {
		t.Fatalf("expected \" Plumbing\" to conflict with \"plumbing \"")
	}

	available, err = checker.CheckUnique(context.Background(), Query{Entity: entity.Category, Name: "Plumbing Repairs"})
	if err != nil || !available {
		t.Fatalf("expected distinct name to be available, got %v %v", available, err)
	}
}

func TestCheckUnique_ExcludesEditedRecord(t *testing.T) {
	fetcher := memory.New(memory.WithRecords(
		entity.Record{ID: "c1", Type: entity.Category, Name: "Cleaning"},
	))
	checker := New(fetcher)

	available, err := checker.CheckUnique(context.Background(), Query{Entity: entity.Category, Name: "cleaning", ExcludeID: "c1"})
	if err != nil || !available {
		t.Fatalf("record being edited must not conflict with itself, got %v %v", available, err)
	}
}

func TestCheckUnique_ServicesScopedByCategory(t *testing.T) {
	fetcher := memory.New(memory.WithRecords(
		entity.Record{ID: "s1", Type: entity.Service, Name: "Deep Clean", CategoryID: "home"},
	))
	checker := New(fetcher)
	ctx := context.Background()

	q := Query{Entity: entity.Service, Name: "deep clean", ScopeField: "category_id", ScopeValue: "office"}
	if available, err := checker.CheckUnique(ctx, q); err != nil || !available {
		t.Fatalf("expected name free in another category, got %v %v", available, err)
	}

	q.ScopeValue = "home"
	if available, err := checker.CheckUnique(ctx, q); err != nil || available {
		t.Fatalf("expected conflict within category, got %v %v", available, err)
	}

	// categories are not scoped even when a scope value is supplied elsewhere
	cats := memory.New(memory.WithRecords(entity.Record{ID: "c1", Type: entity.Category, Name: "Home"}))
	if available, _ := New(cats).CheckUnique(ctx, Query{Entity: entity.Category, Name: "home"}); available {
		t.Fatalf("expected category conflict")
	}
}

func TestCheckUnique_EmailColumn(t *testing.T) {
	fetcher := memory.New(memory.WithRecords(
		entity.Record{ID: "u1", Type: entity.User, Name: "Asha", Email: "Asha@Example.com"},
	))
	checker := New(fetcher)

	available, err := checker.CheckUnique(context.Background(), Query{Entity: entity.User, Column: "email", Name: "asha@example.com "})
	if err != nil || available {
		t.Fatalf("expected email conflict, got %v %v", available, err)
	}
}

func TestCheckUnique_TransportFailureIsUnverified(t *testing.T) {
	fetcher := testsupport.NewScriptedFetcher()
	cause := errors.New("connection reset")
	fetcher.Fail(entity.Category, cause)
	checker := New(fetcher)

	available, err := checker.CheckUnique(context.Background(), Query{Entity: entity.Category, Name: "Plumbing"})
	if available {
		t.Fatalf("failure must never report available")
	}
	if !IsUnverified(err) {
		t.Fatalf("expected unverified error, got %v", err)
	}
	if !errors.Is(err, cause) || !store.IsTransport(err) {
		t.Fatalf("expected the cause to stay reachable, got %v", err)
	}
}

func TestCheckUnique_BlankCandidate(t *testing.T) {
	checker := New(testsupport.NewScriptedFetcher())
	if _, err := checker.CheckUnique(context.Background(), Query{Entity: entity.Category, Name: "   "}); !errors.Is(err, ErrEmptyCandidate) {
		t.Fatalf("expected ErrEmptyCandidate, got %v", err)
	}
}
