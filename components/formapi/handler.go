package formapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/search"
	"github.com/goliatone/go-formflow/pkg/uniqueness"
	"github.com/goliatone/go-formflow/pkg/validation"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type searchResponse struct {
	Data []search.Result `json:"data"`
}

type uniqueResponse struct {
	Entity    entity.Type `json:"entity"`
	Field     string      `json:"field"`
	Name      string      `json:"name"`
	Available bool        `json:"available"`
}

type validateRequest struct {
	Entity string            `json:"entity"`
	Field  string            `json:"field"`
	Value  string            `json:"value"`
	Values map[string]string `json:"values,omitempty"`
}

type validateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SearchHandler serves GET ?q=&type=&limit= with {"data": [...]}.
func SearchHandler(opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) || !guard(w, r, opts) {
			return
		}
		if opts.Search == nil {
			writeError(w, StatusError{Code: http.StatusServiceUnavailable, Err: errors.New("search is not configured")})
			return
		}
		q := r.URL.Query()
		kind, err := search.ParseType(q.Get(opts.TypeParam))
		if err != nil {
			writeError(w, StatusError{Code: http.StatusBadRequest, Err: err})
			return
		}

		results, err := opts.Search.SearchLimit(r.Context(), q.Get(opts.SearchParam), kind, parseInt(q.Get(opts.LimitParam)))
		if err != nil {
			opts.Logger.Warn("search failed", zap.String("query", q.Get(opts.SearchParam)), zap.Error(err))
			writeError(w, StatusError{Code: http.StatusServiceUnavailable, Err: err})
			return
		}
		if results == nil {
			results = []search.Result{}
		}
		writeJSON(w, r, http.StatusOK, searchResponse{Data: results})
	})
}

// UniqueHandler serves GET ?entity=&name=&field=&exclude=&scope= and reports
// whether name is free. A check that cannot complete answers 503.
func UniqueHandler(opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) || !guard(w, r, opts) {
			return
		}
		if opts.Checker == nil {
			writeError(w, StatusError{Code: http.StatusServiceUnavailable, Err: errors.New("uniqueness checks are not configured")})
			return
		}
		q := r.URL.Query()
		t, err := entity.ParseType(q.Get("entity"))
		if err != nil {
			writeError(w, StatusError{Code: http.StatusBadRequest, Err: err})
			return
		}
		set, err := opts.Catalog.Lookup(t)
		if err != nil {
			writeError(w, StatusError{Code: http.StatusBadRequest, Err: err})
			return
		}
		field := strings.TrimSpace(q.Get("field"))
		if field == "" {
			if fields := set.UniqueFields(); len(fields) > 0 {
				field = fields[0]
			}
		}
		rule, ok := set.Unique(field)
		if !ok {
			writeError(w, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("%s has no unique field %q", t, field)})
			return
		}
		name := q.Get("name")
		if strings.TrimSpace(name) == "" {
			writeError(w, StatusError{Code: http.StatusBadRequest, Err: errors.New("name is required")})
			return
		}

		query := uniqueness.Query{
			Entity:     t,
			Column:     rule.Column,
			Name:       name,
			ExcludeID:  strings.TrimSpace(q.Get("exclude")),
			ScopeField: rule.ScopeField,
		}
		if rule.ScopeField != "" {
			query.ScopeValue = strings.TrimSpace(q.Get("scope"))
		}
		available, err := opts.Checker.CheckUnique(r.Context(), query)
		if err != nil {
			opts.Logger.Warn("uniqueness check failed", zap.String("entity", string(t)), zap.String("query", name), zap.Error(err))
			writeError(w, StatusError{Code: http.StatusServiceUnavailable, Err: errors.New(form.UnverifiedMessage)})
			return
		}
		writeJSON(w, r, http.StatusOK, uniqueResponse{Entity: t, Field: field, Name: strings.TrimSpace(name), Available: available})
	})
}

// ValidateHandler serves POST {entity, field, value, values} and returns the
// first local rule the value fails.
func ValidateHandler(opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		if !guard(w, r, opts) {
			return
		}

		var req validateRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, opts.MaxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("invalid body: %w", err)})
			return
		}
		t, err := entity.ParseType(req.Entity)
		if err != nil {
			writeError(w, StatusError{Code: http.StatusBadRequest, Err: err})
			return
		}
		set, err := opts.Catalog.Lookup(t)
		if err != nil {
			writeError(w, StatusError{Code: http.StatusBadRequest, Err: err})
			return
		}
		if !set.Has(req.Field) {
			writeError(w, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("%s has no field %q", t, req.Field)})
			return
		}

		values := make(map[string]string, len(req.Values)+1)
		for k, v := range req.Values {
			values[k] = v
		}
		values[req.Field] = req.Value
		resp := validateResponse{Valid: true}
		if err := opts.Engine.Validate(req.Field, req.Value, set, validation.Context{Values: values, Now: opts.Clock.Now}); err != nil {
			resp = validateResponse{Valid: false, Error: err.Error()}
		}
		writeJSON(w, r, http.StatusOK, resp)
	})
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func guard(w http.ResponseWriter, r *http.Request, opts Options) bool {
	if opts.Guard == nil {
		return true
	}
	if err := opts.Guard(r); err != nil {
		writeGuardError(w, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if r != nil && r.Method == http.MethodHead {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code = httpErr.StatusCode()
	}
	writeJSON(w, nil, code, errorResponse{Error: err.Error()})
}

func writeGuardError(w http.ResponseWriter, err error) {
	if w == nil {
		return
	}
	if err == nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code = httpErr.StatusCode()
		if code <= 0 {
			code = http.StatusForbidden
		}
	}
	http.Error(w, http.StatusText(code), code)
}

func parseInt(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
