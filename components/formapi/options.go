package formapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/debounce"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/search"
	"github.com/goliatone/go-formflow/pkg/validation"
)

type GuardFunc func(r *http.Request) error

type Options struct {
	SearchPath   string
	UniquePath   string
	ValidatePath string
	SearchParam  string
	TypeParam    string
	LimitParam   string
	// MaxBodyBytes caps POST bodies.
	MaxBodyBytes int64
	Guard        GuardFunc

	Search  *search.Controller
	Checker form.UniquenessChecker
	Engine  *validation.Engine
	Catalog *rules.Catalog
	Logger  *zap.Logger
	// Clock anchors relative date bounds such as today-18y.
	Clock debounce.Clock
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		SearchPath:   "/api/search",
		UniquePath:   "/api/unique",
		ValidatePath: "/api/validate",
		SearchParam:  "q",
		TypeParam:    "type",
		LimitParam:   "limit",
		MaxBodyBytes: 64 << 10,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	def := DefaultOptions()
	opts.SearchPath = orDefault(opts.SearchPath, def.SearchPath)
	opts.UniquePath = orDefault(opts.UniquePath, def.UniquePath)
	opts.ValidatePath = orDefault(opts.ValidatePath, def.ValidatePath)
	opts.SearchParam = orDefault(opts.SearchParam, def.SearchParam)
	opts.TypeParam = orDefault(opts.TypeParam, def.TypeParam)
	opts.LimitParam = orDefault(opts.LimitParam, def.LimitParam)
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = def.MaxBodyBytes
	}
	if opts.Engine == nil {
		opts.Engine = validation.New()
	}
	if opts.Catalog == nil {
		opts.Catalog = rules.DefaultCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = debounce.RealClock()
	}
	return opts
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func WithSearch(ctrl *search.Controller) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Search = ctrl
	}
}

func WithChecker(checker form.UniquenessChecker) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Checker = checker
	}
}

func WithEngine(engine *validation.Engine) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Engine = engine
	}
}

func WithCatalog(catalog *rules.Catalog) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Catalog = catalog
	}
}

func WithLogger(logger *zap.Logger) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Logger = logger
	}
}

func WithClock(clock debounce.Clock) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Clock = clock
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}

func WithSearchPath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.SearchPath = path
	}
}

func WithUniquePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.UniquePath = path
	}
}

func WithValidatePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.ValidatePath = path
	}
}
