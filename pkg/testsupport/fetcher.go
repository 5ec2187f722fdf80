package testsupport

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/store"
)

// Call is a gated List call waiting for the test to resolve it.
type Call struct {
	Type   entity.Type
	Filter store.Filter

	done chan error
	once sync.Once
}

// Release resolves the call with the fetcher's records at release time.
func (c *Call) Release() { c.resolve(nil) }

// Fail resolves the call with err.
func (c *Call) Fail(err error) {
	if err == nil {
		err = fmt.Errorf("testsupport: scripted failure")
	}
	c.resolve(err)
}

func (c *Call) resolve(err error) {
	c.once.Do(func() { c.done <- err })
}

// ScriptedFetcher is a store.Fetcher whose responses tests control. Records
// are served from memory; per-type failures can be injected, and gating lets
// tests resolve List calls in any order.
type ScriptedFetcher struct {
	mu           sync.Mutex
	records      []entity.Record
	errs         map[entity.Type]error
	gated        bool
	ignoreCancel bool
	lists        int
	calls        chan *Call
}

var _ store.Fetcher = (*ScriptedFetcher)(nil)

// NewScriptedFetcher serves the supplied records.
func NewScriptedFetcher(records ...entity.Record) *ScriptedFetcher {
	return &ScriptedFetcher{
		records: append([]entity.Record(nil), records...),
		errs:    make(map[entity.Type]error),
		calls:   make(chan *Call, 64),
	}
}

// Gate makes every following List call block until the test resolves it via
// Next. With ignoreCancel the call keeps waiting after its context is
// cancelled, simulating a transport that cannot be interrupted.
func (f *ScriptedFetcher) Gate(ignoreCancel bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gated = true
	f.ignoreCancel = ignoreCancel
}

// Ungate restores immediate responses.
func (f *ScriptedFetcher) Ungate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gated = false
}

// Add appends records.
func (f *ScriptedFetcher) Add(records ...entity.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, records...)
}

// Fail makes calls for t return err. A nil err clears the failure.
func (f *ScriptedFetcher) Fail(t entity.Type, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, t)
		return
	}
	f.errs[t] = err
}

// Lists reports how many List calls were received.
func (f *ScriptedFetcher) Lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

// Next waits for the next gated call.
func (f *ScriptedFetcher) Next(tb testing.TB) *Call {
	tb.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(2 * time.Second):
		tb.Fatalf("testsupport: timed out waiting for a gated fetch")
		return nil
	}
}

// List implements store.Fetcher.
func (f *ScriptedFetcher) List(ctx context.Context, t entity.Type, filter store.Filter) ([]entity.Record, error) {
	f.mu.Lock()
	f.lists++
	gated, ignoreCancel := f.gated, f.ignoreCancel
	f.mu.Unlock()

	if gated {
		call := &Call{Type: t, Filter: filter, done: make(chan error, 1)}
		f.calls <- call
		if ignoreCancel {
			if err := <-call.done; err != nil {
				return nil, store.Transport("list", t, err)
			}
		} else {
			select {
			case err := <-call.done:
				if err != nil {
					return nil, store.Transport("list", t, err)
				}
			case <-ctx.Done():
				return nil, store.Transport("list", t, ctx.Err())
			}
		}
	}
	return f.snapshot(t, filter)
}

// Get implements store.Fetcher. It is never gated.
func (f *ScriptedFetcher) Get(_ context.Context, t entity.Type, id string) (entity.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[t]; err != nil {
		return entity.Record{}, store.Transport("get", t, err)
	}
	for _, rec := range f.records {
		if rec.Type == t && rec.ID == id {
			return rec, nil
		}
	}
	return entity.Record{}, fmt.Errorf("%w: %s %q", store.ErrNotFound, t, id)
}

func (f *ScriptedFetcher) snapshot(t entity.Type, filter store.Filter) ([]entity.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[t]; err != nil {
		return nil, store.Transport("list", t, err)
	}
	out := make([]entity.Record, 0)
	for _, rec := range f.records {
		if rec.Type == t && filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}
