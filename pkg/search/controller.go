package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/store"
)

// Controller filters and orders records fetched through a store.Fetcher.
// It holds no per-query state and is safe for concurrent use.
type Controller struct {
	fetcher store.Fetcher
	opts    Options
}

// New returns a Controller reading from fetcher.
func New(fetcher store.Fetcher, fns ...OptionFn) *Controller {
	return &Controller{fetcher: fetcher, opts: NewOptions(fns...)}
}

// Options returns the resolved options.
func (c *Controller) Options() Options {
	if c == nil {
		return NewOptions()
	}
	return c.opts
}

// Search runs query against t and returns every match in display order.
func (c *Controller) Search(ctx context.Context, query string, t Type) ([]Result, error) {
	return c.run(ctx, query, t, unlimited)
}

// SearchLimit runs query against t and returns at most limit results. A
// failed fetch empties its slice; only cancellation fails the search.
func (c *Controller) SearchLimit(ctx context.Context, query string, t Type, limit int) ([]Result, error) {
	if c == nil {
		return nil, errors.New("search: fetcher is required")
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	limit = clampLimit(limit, c.opts)
	if limit == 0 {
		return nil, nil
	}
	return c.run(ctx, query, t, limit)
}

// unlimited disables truncation in run.
const unlimited = -1

func (c *Controller) run(ctx context.Context, query string, t Type, limit int) ([]Result, error) {
	if c == nil || c.fetcher == nil {
		return nil, errors.New("search: fetcher is required")
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" && c.opts.EmptySearchMode != EmptySearchAll {
		return nil, nil
	}

	sets := c.fetch(ctx, query, sources(t))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Result
	switch t {
	case Categories:
		out = matchCategories(sets[entity.Category], needle)
	case Services:
		out = matchServices(sets[entity.Service], sets[entity.Category], needle)
	case Users:
		out = matchUsers(sets[entity.User], needle)
	case General:
		out = append(out, matchCategories(sets[entity.Category], needle)...)
		out = append(out, matchServices(sets[entity.Service], sets[entity.Category], needle)...)
		out = append(out, matchUsers(sets[entity.User], needle)...)
	}
	sortResults(out)
	if limit != unlimited && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sources lists the collections t needs. Services also load categories to
// resolve display names.
func sources(t Type) []entity.Type {
	switch t {
	case Categories:
		return []entity.Type{entity.Category}
	case Services:
		return []entity.Type{entity.Service, entity.Category}
	case Users:
		return []entity.Type{entity.User}
	default:
		return []entity.Type{entity.Category, entity.Service, entity.User}
	}
}

func (c *Controller) fetch(ctx context.Context, query string, types []entity.Type) map[entity.Type][]entity.Record {
	lists := make([][]entity.Record, len(types))
	var g errgroup.Group
	for i, t := range types {
		i, t := i, t
		g.Go(func() error {
			records, err := c.fetcher.List(ctx, t, store.Filter{})
			if err != nil {
				if ctx.Err() == nil {
					c.opts.Logger.Warn("search slice unavailable",
						zap.String("entity", string(t)),
						zap.String("query", query),
						zap.Error(err),
					)
				}
				return nil
			}
			lists[i] = records
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[entity.Type][]entity.Record, len(types))
	for i, t := range types {
		out[t] = lists[i]
	}
	return out
}

func contains(value, needle string) bool {
	return strings.Contains(strings.ToLower(value), needle)
}

func matchCategories(records []entity.Record, needle string) []Result {
	var out []Result
	for _, rec := range records {
		if !contains(rec.Name, needle) && !contains(rec.Description, needle) {
			continue
		}
		out = append(out, Result{
			Entity:      entity.Category,
			ID:          rec.ID,
			Name:        rec.Name,
			Description: rec.Description,
			Record:      rec,
		})
	}
	return out
}

func matchServices(records, categories []entity.Record, needle string) []Result {
	names := make(map[string]string, len(categories))
	for _, cat := range categories {
		names[cat.ID] = cat.Name
	}
	var out []Result
	for _, rec := range records {
		if !contains(rec.Name, needle) && !contains(rec.Description, needle) {
			continue
		}
		out = append(out, Result{
			Entity:       entity.Service,
			ID:           rec.ID,
			Name:         rec.Name,
			Description:  rec.Description,
			CategoryID:   rec.CategoryID,
			CategoryName: categoryName(rec, names),
			Duration:     FormatDuration(rec.DurationMinutes),
			Record:       rec,
		})
	}
	return out
}

func categoryName(rec entity.Record, names map[string]string) string {
	if name := names[rec.CategoryID]; rec.CategoryID != "" && name != "" {
		return name
	}
	if name := strings.TrimSpace(rec.CategoryName); name != "" {
		return name
	}
	return Uncategorized
}

func matchUsers(records []entity.Record, needle string) []Result {
	var out []Result
	for _, rec := range records {
		if !contains(rec.Name, needle) && !contains(rec.Email, needle) {
			continue
		}
		out = append(out, Result{
			Entity: entity.User,
			ID:     rec.ID,
			Name:   rec.Name,
			Email:  rec.Email,
			Record: rec,
		})
	}
	return out
}

func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if pa, pb := precedence[a.Entity], precedence[b.Entity]; pa != pb {
			return pa < pb
		}
		na, nb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if na != nb {
			return na < nb
		}
		return a.ID < b.ID
	})
}
