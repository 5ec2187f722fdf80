package formflow

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/store/memory"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newApp(t *testing.T, opts ...Option) (*App, *testsupport.FakeClock, *memory.Store) {
	t.Helper()
	st := memory.New(memory.WithRecords(testsupport.MarketplaceRecords()...))
	clock := testsupport.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	app, err := New(st, append([]Option{WithClock(clock)}, opts...)...)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app, clock, st
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

func TestApp_FormUsesConfiguredWindow(t *testing.T) {
	app, clock, _ := newApp(t, WithDebounce(entity.Category, 2*time.Second))
	w, err := app.Form(entity.Category)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	defer w.Close()

	if err := w.SetField("name", "Plumbing"); err != nil {
		t.Fatalf("set: %v", err)
	}
	clock.Advance(time.Second)
	if clock.Pending() != 1 {
		t.Fatalf("expected the check to wait for the configured window, pending=%d", clock.Pending())
	}

	clock.Advance(time.Second)
	w.Wait()
	got, _ := w.Snapshot().Field("name")
	if got.Uniqueness != form.StatusTaken || got.Error != "A category with this name already exists" {
		t.Fatalf("expected taken after the window, got %+v", got)
	}
}

func TestApp_CategoryFormSubmits(t *testing.T) {
	app, _, st := newApp(t)
	cw, err := app.CategoryForm()
	if err != nil {
		t.Fatalf("category form: %v", err)
	}
	defer cw.Close()

	if err := cw.SetField("name", "Home Repair"); err != nil {
		t.Fatalf("set: %v", err)
	}
	rec, err := cw.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.Name != "Home Repair" || st.Len(entity.Category) != 4 {
		t.Fatalf("unexpected record %+v (categories %d)", rec, st.Len(entity.Category))
	}
}

func TestApp_APIServesSharedChecker(t *testing.T) {
	app, _, _ := newApp(t)
	h := app.API().UniqueHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unique?entity=user&name=ben@example.com", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"available":false`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
