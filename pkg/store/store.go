package store

import (
	"context"

	"github.com/goliatone/go-formflow/pkg/entity"
)

// Filter narrows List results. Zero values mean no narrowing.
type Filter struct {
	// CategoryID restricts services to a single parent category.
	CategoryID string
}

// Fetcher is the data-fetch collaborator.
type Fetcher interface {
	List(ctx context.Context, t entity.Type, filter Filter) ([]entity.Record, error)
	Get(ctx context.Context, t entity.Type, id string) (entity.Record, error)
}

// Mutator is the data-mutation collaborator. Implementations return
// *RejectedError for validation rejections and *TransportError for failures
// talking to the backing store.
type Mutator interface {
	Create(ctx context.Context, t entity.Type, payload entity.Payload) (entity.Record, error)
	Update(ctx context.Context, t entity.Type, id string, payload entity.Payload) (entity.Record, error)
	Delete(ctx context.Context, t entity.Type, id string) error
}

// Store combines both collaborators, which is what every adapter provides.
type Store interface {
	Fetcher
	Mutator
}

// Matches reports whether rec satisfies filter. Adapters that cannot push a
// filter down to their backend apply it with this helper.
func (f Filter) Matches(rec entity.Record) bool {
	if f.CategoryID != "" && rec.CategoryID != f.CategoryID {
		return false
	}
	return true
}

// UniqueColumn returns the column an entity type must keep unique, together
// with the scope column (empty when unscoped). Services are unique per
// category; categories are unique across the whole table.
func UniqueColumn(t entity.Type) (column, scope string) {
	switch t {
	case entity.Category:
		return "name", ""
	case entity.Service:
		return "name", "category_id"
	case entity.User, entity.Provider:
		return "email", ""
	default:
		return "", ""
	}
}
