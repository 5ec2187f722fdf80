package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type hit struct {
	Entity       entity.Type
	Name         string
	CategoryName string
	Duration     string
}

func hits(results []Result) []hit {
	out := make([]hit, 0, len(results))
	for _, r := range results {
		out = append(out, hit{Entity: r.Entity, Name: r.Name, CategoryName: r.CategoryName, Duration: r.Duration})
	}
	return out
}

func TestSearch_GeneralOrdersByTypeThenName(t *testing.T) {
	ctrl := New(testsupport.NewScriptedFetcher(testsupport.MarketplaceRecords()...))

	results, err := ctrl.Search(context.Background(), "elder", General)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []hit{
		{Entity: entity.Category, Name: "Elder Care"},
		{Entity: entity.Service, Name: "Elder Transport", CategoryName: "Elder Care", Duration: "1 hr 30 mins"},
		{Entity: entity.User, Name: "Ben Elder"},
	}
	if diff := testsupport.Diff(want, hits(results)); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestSearch_ServicesResolveCategoryNames(t *testing.T) {
	fetcher := testsupport.NewScriptedFetcher(testsupport.MarketplaceRecords()...)
	fetcher.Add(entity.Record{ID: "svc-odd", Type: entity.Service, Name: "Odd Jobs", DurationMinutes: 60})
	ctrl := New(fetcher, WithEmptySearchMode(EmptySearchAll))

	results, err := ctrl.Search(context.Background(), "", Services)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []hit{
		{Entity: entity.Service, Name: "Deep Clean", CategoryName: "Cleaning", Duration: "3 hours"},
		{Entity: entity.Service, Name: "Elder Transport", CategoryName: "Elder Care", Duration: "1 hr 30 mins"},
		{Entity: entity.Service, Name: "Odd Jobs", CategoryName: Uncategorized, Duration: "1 hour"},
		{Entity: entity.Service, Name: "Tap Fitting", CategoryName: "Plumbing", Duration: "45 mins"},
	}
	if diff := testsupport.Diff(want, hits(results)); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestSearch_MatchesDescriptionAndEmail(t *testing.T) {
	ctrl := New(testsupport.NewScriptedFetcher(testsupport.MarketplaceRecords()...))
	ctx := context.Background()

	cats, err := ctrl.Search(ctx, "TAPS", Categories)
	if err != nil || len(cats) != 1 || cats[0].Name != "Plumbing" {
		t.Fatalf("expected description match on Plumbing, got %+v %v", cats, err)
	}
	users, err := ctrl.Search(ctx, "asha@", Users)
	if err != nil || len(users) != 1 || users[0].Email != "asha@example.com" {
		t.Fatalf("expected email match, got %+v %v", users, err)
	}
}

func TestSearch_FailedSliceDegradesToEmpty(t *testing.T) {
	fetcher := testsupport.NewScriptedFetcher(testsupport.MarketplaceRecords()...)
	fetcher.Fail(entity.User, errors.New("timeout"))
	ctrl := New(fetcher)

	results, err := ctrl.Search(context.Background(), "elder", General)
	if err != nil {
		t.Fatalf("partial failure must not fail the search: %v", err)
	}
	if len(results) != 2 || results[0].Entity != entity.Category || results[1].Entity != entity.Service {
		t.Fatalf("expected category and service only, got %+v", hits(results))
	}
}

func TestSearch_BlankQueryAndLimits(t *testing.T) {
	fetcher := testsupport.NewScriptedFetcher(testsupport.MarketplaceRecords()...)
	ctx := context.Background()

	if results, err := New(fetcher).Search(ctx, "   ", General); err != nil || len(results) != 0 {
		t.Fatalf("blank query in none mode must return nothing, got %+v %v", results, err)
	}

	all := New(fetcher, WithEmptySearchMode(EmptySearchAll), WithMaxLimit(4))
	results, err := all.SearchLimit(ctx, "", General, 100)
	if err != nil || len(results) != 4 {
		t.Fatalf("expected limit clamped to 4, got %d %v", len(results), err)
	}
	if results, _ := all.SearchLimit(ctx, "", General, -1); len(results) != 0 {
		t.Fatalf("negative limit must return nothing")
	}
}

func TestSearch_UnknownType(t *testing.T) {
	ctrl := New(testsupport.NewScriptedFetcher())
	if _, err := ctrl.Search(context.Background(), "x", Type("teams")); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if _, err := ParseType("Teams"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType from ParseType, got %v", err)
	}
	if got, err := ParseType(" Services "); err != nil || got != Services {
		t.Fatalf("unexpected parse %q %v", got, err)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{
		0:   "",
		1:   "1 min",
		45:  "45 mins",
		60:  "1 hour",
		90:  "1 hr 30 mins",
		120: "2 hours",
		121: "2 hrs 1 min",
	}
	for minutes, want := range cases {
		if got := FormatDuration(minutes); got != want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", minutes, got, want)
		}
	}
}

func TestDebouncedSearch_DeliversLatestOnly(t *testing.T) {
	fetcher := testsupport.NewScriptedFetcher(testsupport.MarketplaceRecords()...)
	fetcher.Gate(false)
	clock := testsupport.NewFakeClock(time.Time{})
	ctrl := New(fetcher, WithClock(clock))

	var mu sync.Mutex
	var got []Response
	ds := NewDebouncedSearch(ctrl, func(r Response) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, r)
	})
	defer ds.Close()

	ds.Search("pl", Categories)
	clock.Advance(DefaultWindow)
	first := fetcher.Next(t)

	// superseding cancels the first fetch through its context
	ds.Search("plumb", Categories)
	clock.Advance(DefaultWindow)
	second := fetcher.Next(t)
	second.Release()
	first.Release()
	ds.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected one delivery, got %d", len(got))
	}
	if got[0].Query != "plumb" || got[0].Err != nil || len(got[0].Results) != 1 || got[0].Results[0].Name != "Plumbing" {
		t.Fatalf("unexpected response %+v", got[0])
	}
}

func TestDebouncedSearch_CloseDropsPending(t *testing.T) {
	fetcher := testsupport.NewScriptedFetcher(testsupport.MarketplaceRecords()...)
	clock := testsupport.NewFakeClock(time.Time{})
	delivered := false
	ds := NewDebouncedSearch(New(fetcher, WithClock(clock)), func(Response) { delivered = true })

	ds.Search("elder", General)
	ds.Close()
	ds.Close()
	clock.Advance(time.Second)
	ds.Wait()

	if delivered || fetcher.Lists() != 0 {
		t.Fatalf("closed search must not fetch or deliver")
	}
}

func TestSearch_ReturnsEveryMatchWhileSearchLimitClamps(t *testing.T) {
	fetcher := testsupport.NewScriptedFetcher(testsupport.MarketplaceRecords()...)
	ctrl := New(fetcher, WithDefaultLimit(2), WithMaxLimit(2))
	ctx := context.Background()

	results, err := ctrl.Search(ctx, "elder", General)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 || results[2].Name != "Ben Elder" {
		t.Fatalf("expected all three matches with the user last, got %+v", hits(results))
	}

	limited, err := ctrl.SearchLimit(ctx, "elder", General, 0)
	if err != nil {
		t.Fatalf("search limit: %v", err)
	}
	if len(limited) != 2 || limited[1].Name != "Elder Transport" {
		t.Fatalf("expected the default limit to keep the first two, got %+v", hits(limited))
	}
}
