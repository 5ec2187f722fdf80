// Package workflow composes form controllers for the marketplace entities:
// categories, services, providers and user accounts.
package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/debounce"
	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/notify"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/sanitize"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/uniqueness"
	"github.com/goliatone/go-formflow/pkg/upload"
	"github.com/goliatone/go-formflow/pkg/validation"
)

var (
	ErrNoStore   = errors.New("workflow: store is required")
	ErrNoUploads = errors.New("workflow: upload service is not configured")
)

// Deps are shared by every workflow. Store is required; the rest default.
type Deps struct {
	Store    store.Store
	Checker  form.UniquenessChecker
	Engine   *validation.Engine
	Notifier notify.Notifier
	Logger   *zap.Logger
	Clock    debounce.Clock
	Catalog  *rules.Catalog
	Uploads  *upload.Service
}

// SelectOption is one entry of a dropdown.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Workflow is a form controller bound to one entity and its store.
type Workflow struct {
	*form.Controller
	store  store.Store
	logger *zap.Logger
}

// CategoryWorkflow adds icon uploads.
type CategoryWorkflow struct {
	*Workflow
	uploads *upload.Service
}

// ServiceWorkflow keeps the offer fields in step.
type ServiceWorkflow struct {
	*Workflow
}

// NewCategory builds the category form.
func NewCategory(deps Deps, opts ...form.Option) (*CategoryWorkflow, error) {
	w, err := build(entity.Category, deps, categoryAssembler, nil, opts)
	if err != nil {
		return nil, err
	}
	return &CategoryWorkflow{Workflow: w, uploads: deps.Uploads}, nil
}

// NewService builds the service form with the offer projection.
func NewService(deps Deps, opts ...form.Option) (*ServiceWorkflow, error) {
	w, err := build(entity.Service, deps, serviceAssembler, []form.Option{form.WithProjection(OfferProjection)}, opts)
	if err != nil {
		return nil, err
	}
	return &ServiceWorkflow{Workflow: w}, nil
}

// NewProvider builds the service provider form.
func NewProvider(deps Deps, opts ...form.Option) (*Workflow, error) {
	return build(entity.Provider, deps, providerAssembler, []form.Option{form.WithEntityLabel("Provider")}, opts)
}

// NewUser builds the user account form.
func NewUser(deps Deps, opts ...form.Option) (*Workflow, error) {
	return build(entity.User, deps, userAssembler, nil, opts)
}

// New builds the workflow for t.
func New(t entity.Type, deps Deps, opts ...form.Option) (*Workflow, error) {
	switch t {
	case entity.Category:
		w, err := NewCategory(deps, opts...)
		if err != nil {
			return nil, err
		}
		return w.Workflow, nil
	case entity.Service:
		w, err := NewService(deps, opts...)
		if err != nil {
			return nil, err
		}
		return w.Workflow, nil
	case entity.Provider:
		return NewProvider(deps, opts...)
	case entity.User:
		return NewUser(deps, opts...)
	default:
		return nil, fmt.Errorf("workflow: unsupported entity %q", t)
	}
}

func build(t entity.Type, deps Deps, assembler func(*rules.RuleSet) form.Assembler, extra, opts []form.Option) (*Workflow, error) {
	if deps.Store == nil {
		return nil, ErrNoStore
	}
	catalog := deps.Catalog
	if catalog == nil {
		catalog = rules.DefaultCatalog()
	}
	set, err := catalog.Lookup(t)
	if err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	checker := deps.Checker
	if checker == nil {
		checker = uniqueness.New(deps.Store, uniqueness.WithLogger(logger))
	}

	all := []form.Option{form.WithAssembler(assembler(set))}
	all = append(all, extra...)
	all = append(all, opts...)
	ctrl, err := form.New(set, form.Deps{
		Engine:   deps.Engine,
		Checker:  checker,
		Mutator:  deps.Store,
		Fetcher:  deps.Store,
		Notifier: deps.Notifier,
		Logger:   logger,
		Clock:    deps.Clock,
	}, all...)
	if err != nil {
		return nil, err
	}
	return &Workflow{Controller: ctrl, store: deps.Store, logger: logger}, nil
}

// CategoryOptions loads the category dropdown sorted by name.
func (w *Workflow) CategoryOptions(ctx context.Context) ([]SelectOption, error) {
	records, err := w.store.List(ctx, entity.Category, store.Filter{})
	if err != nil {
		w.logger.Warn("category options unavailable", zap.Error(err))
		return nil, fmt.Errorf("workflow: load categories: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return strings.ToLower(records[i].Name) < strings.ToLower(records[j].Name)
	})
	out := make([]SelectOption, 0, len(records))
	for _, rec := range records {
		out = append(out, SelectOption{Value: rec.ID, Label: rec.Name})
	}
	return out, nil
}

// AttachIcon uploads file and sets icon_url to its public URL. SVG markup is
// sanitized before it is stored.
func (w *CategoryWorkflow) AttachIcon(ctx context.Context, file upload.File) (upload.Stored, error) {
	if w.uploads == nil {
		return upload.Stored{}, ErrNoUploads
	}
	if isSVG(file.ContentType, file.Name) && file.Body != nil {
		body, err := sanitizedSVG(file.Body)
		if err != nil {
			return upload.Stored{}, err
		}
		file.ContentType = "image/svg+xml"
		file.Body = body
	}
	stored, err := w.uploads.Upload(ctx, file)
	if err != nil {
		return upload.Stored{}, err
	}
	if err := w.SetField("icon_url", stored.PublicURL); err != nil {
		return stored, err
	}
	return stored, nil
}

func isSVG(contentType, name string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "image/svg+xml" {
		return true
	}
	return strings.TrimSpace(contentType) == "" && strings.HasSuffix(strings.ToLower(name), ".svg")
}

func sanitizedSVG(r io.Reader) (io.Reader, error) {
	raw, err := io.ReadAll(io.LimitReader(r, upload.MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("workflow: read icon: %w", err)
	}
	if int64(len(raw)) > upload.MaxImageSize {
		return nil, upload.ErrTooLarge
	}
	clean := sanitize.SVG(string(raw))
	if clean == "" {
		return nil, fmt.Errorf("%w: svg has no drawable content", upload.ErrNotImage)
	}
	return bytes.NewReader([]byte(clean)), nil
}
