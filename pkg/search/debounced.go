package search

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/debounce"
)

// Response is delivered to a DebouncedSearch listener.
type Response struct {
	Query   string
	Type    Type
	Results []Result
	Err     error
}

// DebouncedSearch runs the latest query after the controller window.
// Responses for superseded queries are dropped.
type DebouncedSearch struct {
	ctrl     *Controller
	deb      *debounce.Debouncer
	listener func(Response)
	mu       sync.Mutex
}

// NewDebouncedSearch wraps ctrl. listener runs on the timer goroutine, or
// inline for Flush.
func NewDebouncedSearch(ctrl *Controller, listener func(Response)) *DebouncedSearch {
	opts := ctrl.Options()
	return &DebouncedSearch{
		ctrl:     ctrl,
		deb:      debounce.New(opts.Window, debounce.WithClock(opts.Clock)),
		listener: listener,
	}
}

// Search schedules query, superseding any earlier one.
func (d *DebouncedSearch) Search(query string, t Type) {
	d.deb.Trigger(func(ctx context.Context, token debounce.Token) {
		results, err := d.ctrl.Search(ctx, query, t)
		d.mu.Lock()
		defer d.mu.Unlock()
		if !d.deb.Current(token) {
			d.ctrl.opts.Logger.Debug("stale search result discarded",
				zap.String("query", query),
				zap.String("type", string(t)),
				zap.Uint64("generation", uint64(token)),
			)
			return
		}
		if d.listener != nil {
			d.listener(Response{Query: query, Type: t, Results: results, Err: err})
		}
	})
}

// Flush runs a pending query now.
func (d *DebouncedSearch) Flush() bool { return d.deb.Flush() }

// Close cancels pending and in-flight queries. It is idempotent.
func (d *DebouncedSearch) Close() { d.deb.Close() }

// Wait blocks until scheduled queries have run or been discarded.
func (d *DebouncedSearch) Wait() { d.deb.Wait() }
