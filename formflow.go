package formflow

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/components/formapi"
	"github.com/goliatone/go-formflow/pkg/debounce"
	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/notify"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/search"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/uniqueness"
	"github.com/goliatone/go-formflow/pkg/upload"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/workflow"
)

// Record aliases entity.Record for callers that only import the root package.
type Record = entity.Record

// State aliases form.State.
type State = form.State

// ErrNoStore is returned by New when no store is supplied.
var ErrNoStore = errors.New("formflow: store is required")

// App wires one store to the validation engine, the uniqueness checker, the
// search controller and the entity workflows. Every form it builds shares the
// same collaborators.
type App struct {
	store    store.Store
	catalog  *rules.Catalog
	engine   *validation.Engine
	checker  *uniqueness.Checker
	search   *search.Controller
	uploads  *upload.Service
	notifier notify.Notifier
	logger   *zap.Logger
	clock    debounce.Clock
	windows  map[entity.Type]time.Duration
	searchFn []search.OptionFn
}

// Option customises an App.
type Option func(*App)

// WithCatalog replaces the built-in rule catalog.
func WithCatalog(catalog *rules.Catalog) Option {
	return func(a *App) {
		if catalog != nil {
			a.catalog = catalog
		}
	}
}

// WithEngine replaces the default validation engine.
func WithEngine(engine *validation.Engine) Option {
	return func(a *App) {
		if engine != nil {
			a.engine = engine
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(a *App) {
		if n != nil {
			a.notifier = n
		}
	}
}

// WithUploads enables icon uploads on the category form.
func WithUploads(svc *upload.Service) Option {
	return func(a *App) {
		if svc != nil {
			a.uploads = svc
		}
	}
}

func WithClock(clock debounce.Clock) Option {
	return func(a *App) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithDebounce overrides the uniqueness window for forms of type t.
func WithDebounce(t entity.Type, d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.windows[t] = d
		}
	}
}

// WithSearchOptions forwards options to the search controller.
func WithSearchOptions(fns ...search.OptionFn) Option {
	return func(a *App) {
		a.searchFn = append(a.searchFn, fns...)
	}
}

// New builds an App over st.
func New(st store.Store, opts ...Option) (*App, error) {
	if st == nil {
		return nil, ErrNoStore
	}
	a := &App{
		store:    st,
		catalog:  rules.DefaultCatalog(),
		engine:   validation.New(),
		notifier: notify.Discard,
		logger:   zap.NewNop(),
		clock:    debounce.RealClock(),
		windows:  map[entity.Type]time.Duration{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(a)
	}
	a.checker = uniqueness.New(st, uniqueness.WithLogger(a.logger))
	fns := []search.OptionFn{search.WithLogger(a.logger), search.WithClock(a.clock)}
	a.search = search.New(st, append(fns, a.searchFn...)...)
	return a, nil
}

func (a *App) Store() store.Store           { return a.store }
func (a *App) Catalog() *rules.Catalog      { return a.catalog }
func (a *App) Checker() *uniqueness.Checker { return a.checker }
func (a *App) Search() *search.Controller   { return a.search }
func (a *App) Engine() *validation.Engine   { return a.engine }
func (a *App) Uploads() *upload.Service     { return a.uploads }

// Deps returns the collaborators handed to every workflow.
func (a *App) Deps() workflow.Deps {
	return workflow.Deps{
		Store:    a.store,
		Checker:  a.checker,
		Engine:   a.engine,
		Notifier: a.notifier,
		Logger:   a.logger,
		Clock:    a.clock,
		Catalog:  a.catalog,
		Uploads:  a.uploads,
	}
}

// Form builds the workflow for t.
func (a *App) Form(t entity.Type, opts ...form.Option) (*workflow.Workflow, error) {
	return workflow.New(t, a.Deps(), a.formOptions(t, opts)...)
}

// CategoryForm builds the category workflow, including icon uploads.
func (a *App) CategoryForm(opts ...form.Option) (*workflow.CategoryWorkflow, error) {
	return workflow.NewCategory(a.Deps(), a.formOptions(entity.Category, opts)...)
}

// ServiceForm builds the service workflow with the offer projection.
func (a *App) ServiceForm(opts ...form.Option) (*workflow.ServiceWorkflow, error) {
	return workflow.NewService(a.Deps(), a.formOptions(entity.Service, opts)...)
}

// DebouncedSearch returns a latest-only search bound to listener.
func (a *App) DebouncedSearch(listener func(search.Response)) *search.DebouncedSearch {
	return search.NewDebouncedSearch(a.search, listener)
}

// API returns the HTTP component serving search, uniqueness and validation.
func (a *App) API(fns ...formapi.OptionFn) *formapi.Component {
	base := []formapi.OptionFn{
		formapi.WithSearch(a.search),
		formapi.WithChecker(a.checker),
		formapi.WithEngine(a.engine),
		formapi.WithCatalog(a.catalog),
		formapi.WithLogger(a.logger),
		formapi.WithClock(a.clock),
	}
	return formapi.New(append(base, fns...)...)
}

func (a *App) formOptions(t entity.Type, opts []form.Option) []form.Option {
	out := make([]form.Option, 0, len(opts)+1)
	if d, ok := a.windows[t]; ok {
		out = append(out, form.WithDebounce(d))
	}
	return append(out, opts...)
}
