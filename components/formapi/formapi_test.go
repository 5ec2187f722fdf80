package formapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/search"
	"github.com/goliatone/go-formflow/pkg/store/memory"
	"github.com/goliatone/go-formflow/pkg/testsupport"
	"github.com/goliatone/go-formflow/pkg/uniqueness"
)

type searchPayload struct {
	Data []search.Result `json:"data"`
}

func newComponent(fns ...OptionFn) *Component {
	st := memory.New(memory.WithRecords(testsupport.MarketplaceRecords()...))
	base := []OptionFn{
		WithSearch(search.New(st)),
		WithChecker(uniqueness.New(st)),
	}
	return New(append(base, fns...)...)
}

func serve(t *testing.T, h http.Handler, req *http.Request) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Result()
}

func TestSearchHandler_GeneralQuery(t *testing.T) {
	h := newComponent().SearchHandler()
	res := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/search?q=elder", nil))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON content-type, got %q", ct)
	}

	var payload searchPayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var names []string
	for _, r := range payload.Data {
		names = append(names, r.Name)
	}
	if diff := testsupport.Diff([]string{"Elder Care", "Elder Transport", "Ben Elder"}, names); diff != "" {
		t.Fatalf("unexpected results (-want +got):\n%s", diff)
	}
	if payload.Data[1].CategoryName != "Elder Care" || payload.Data[1].Duration != "1 hr 30 mins" {
		t.Fatalf("expected resolved service display fields, got %+v", payload.Data[1])
	}
}

func TestSearchHandler_EmptyQueryReturnsEmptyArray(t *testing.T) {
	h := newComponent().SearchHandler()
	res := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/search?type=services", nil))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.StatusCode)
	}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["data"]) != "[]" {
		t.Fatalf("expected empty data array, got %s", raw["data"])
	}
}

func TestSearchHandler_RejectsUnknownTypeAndMethod(t *testing.T) {
	h := newComponent().SearchHandler()
	if res := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/search?q=a&type=planets", nil)); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown type, got %d", res.StatusCode)
	}
	res := serve(t, h, httptest.NewRequest(http.MethodPost, "/api/search", nil))
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.StatusCode)
	}
	if allow := res.Header.Get("Allow"); !strings.Contains(allow, http.MethodGet) {
		t.Fatalf("expected Allow header, got %q", allow)
	}
}

func TestUniqueHandler(t *testing.T) {
	h := newComponent().UniqueHandler()

	cases := []struct {
		name      string
		url       string
		status    int
		available bool
	}{
		{"taken ignoring case", "/api/unique?entity=category&name=%20plumbing%20", http.StatusOK, false},
		{"free", "/api/unique?entity=category&name=Gardening", http.StatusOK, true},
		{"own record excluded", "/api/unique?entity=category&name=Plumbing&exclude=cat-plumbing", http.StatusOK, true},
		{"scoped to category", "/api/unique?entity=service&name=Tap%20Fitting&scope=cat-elder", http.StatusOK, true},
		{"taken in category", "/api/unique?entity=service&name=tap%20fitting&scope=cat-plumbing", http.StatusOK, false},
		{"email column", "/api/unique?entity=user&name=ASHA@example.com", http.StatusOK, false},
		{"blank name", "/api/unique?entity=category&name=%20", http.StatusBadRequest, false},
		{"unknown entity", "/api/unique?entity=planet&name=x", http.StatusBadRequest, false},
		{"not a unique field", "/api/unique?entity=category&field=description&name=x", http.StatusBadRequest, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := serve(t, h, httptest.NewRequest(http.MethodGet, tc.url, nil))
			if res.StatusCode != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, res.StatusCode)
			}
			if tc.status != http.StatusOK {
				return
			}
			var payload uniqueResponse
			if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if payload.Available != tc.available {
				t.Fatalf("expected available=%v, got %+v", tc.available, payload)
			}
		})
	}
}

func TestUniqueHandler_TransportFailureIsUnavailable(t *testing.T) {
	fetcher := testsupport.NewScriptedFetcher()
	fetcher.Fail(entity.Category, errors.New("connection reset"))
	h := UniqueHandler(NewOptions(WithChecker(uniqueness.New(fetcher))))

	res := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/unique?entity=category&name=Plumbing", nil))
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.StatusCode)
	}
	var payload errorResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error != "Unable to validate right now. Please try again." {
		t.Fatalf("unexpected error message %q", payload.Error)
	}
}

func TestValidateHandler(t *testing.T) {
	h := newComponent().ValidateHandler()

	post := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return serve(t, h, req)
	}

	res := post(`{"entity":"category","field":"name","value":"abc123"}`)
	var payload validateResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Valid || payload.Error != "Category name cannot contain numbers" {
		t.Fatalf("unexpected response %+v", payload)
	}

	res = post(`{"entity":"service","field":"offer_price","value":"900","values":{"price":"800"}}`)
	payload = validateResponse{}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Valid || payload.Error != "Offer price must be less than the price" {
		t.Fatalf("expected cross-field failure, got %+v", payload)
	}

	res = post(`{"entity":"category","field":"name","value":"Home Repair"}`)
	payload = validateResponse{}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.Valid {
		t.Fatalf("expected valid, got %+v", payload)
	}

	if res := post(`{"entity":"category","field":"colour","value":"x"}`); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", res.StatusCode)
	}
	if res := post(`{"entity":"category","bogus":1}`); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown body field, got %d", res.StatusCode)
	}
	if res := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/validate", nil)); res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.StatusCode)
	}
}

func TestValidateHandler_DateRangeFollowsClock(t *testing.T) {
	clock := testsupport.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	h := newComponent(WithClock(clock)).ValidateHandler()

	validate := func(dob string) validateResponse {
		t.Helper()
		body := `{"entity":"provider","field":"date_of_birth","value":"` + dob + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		var payload validateResponse
		if err := json.NewDecoder(serve(t, h, req).Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return payload
	}

	if got := validate("2006-06-02"); got.Valid || got.Error != "Provider must be between 18 and 70 years old" {
		t.Fatalf("expected under-age rejection, got %+v", got)
	}
	if got := validate("1976-06-02"); !got.Valid {
		t.Fatalf("expected 48 year old to pass, got %+v", got)
	}

	clock.Advance(24 * time.Hour)
	if got := validate("2006-06-02"); !got.Valid {
		t.Fatalf("expected 18th birthday to pass once the clock reaches it, got %+v", got)
	}
}

func TestGuardStatus(t *testing.T) {
	h := newComponent(WithGuard(func(*http.Request) error {
		return StatusError{Code: http.StatusUnauthorized}
	})).SearchHandler()
	if res := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/search?q=a", nil)); res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}

	h = newComponent(WithGuard(func(*http.Request) error { return errors.New("nope") })).UniqueHandler()
	if res := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/unique?entity=category&name=a", nil)); res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.StatusCode)
	}
}

func TestRegisterRoutes_MountsUnderBasePath(t *testing.T) {
	mux := http.NewServeMux()
	patterns, err := newComponent().RegisterRoutes(mux, "/admin/")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	want := []string{"/admin/api/search", "/admin/api/unique", "/admin/api/validate"}
	if diff := testsupport.Diff(want, patterns); diff != "" {
		t.Fatalf("unexpected patterns (-want +got):\n%s", diff)
	}

	res := serve(t, mux, httptest.NewRequest(http.MethodGet, "/admin/api/unique?entity=category&name=Gardening", nil))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected mounted route to answer, got %d", res.StatusCode)
	}

	if _, err := RegisterRoutes(nil, "/"); err == nil {
		t.Fatalf("expected error for nil mux")
	}
}

func TestMountPath(t *testing.T) {
	cases := []struct {
		base, route, want string
	}{
		{"", "/api/search", "/api/search"},
		{"/", "api/search", "/api/search"},
		{"admin", "/api/search", "/admin/api/search"},
		{"/admin/", "", "/admin/"},
	}
	for _, tc := range cases {
		if got := mountPath(tc.base, tc.route); got != tc.want {
			t.Fatalf("mountPath(%q, %q) = %q, want %q", tc.base, tc.route, got, tc.want)
		}
	}
}
