package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/debounce"
	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/notify"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/uniqueness"
	"github.com/goliatone/go-formflow/pkg/validation"
)

type field struct {
	state   FieldState
	initial string
	unique  *rules.UniqueRule
	deb     *debounce.Debouncer
	cause   error
	// checked is the value key the current uniqueness verdict belongs to;
	// pending is the key of the scheduled or running check.
	checked string
	pending string
}

func (f *field) setError(source ErrorSource, message string, cause error) {
	f.state.Error = message
	f.state.ErrorSource = source
	f.cause = cause
}

func (f *field) clearError() {
	f.state.Error = ""
	f.state.ErrorSource = SourceNone
	f.cause = nil
}

// Controller owns the state of one entity form. Field edits validate
// synchronously; uniqueness checks run after the debounce window and only the
// latest check per field may update state.
type Controller struct {
	set         *rules.RuleSet
	deps        Deps
	window      time.Duration
	noun        string
	projections []Projection
	assemble    Assembler
	listeners   []Listener
	onSuccess   func(entity.Record)
	dependents  map[string][]string

	mu          sync.Mutex
	order       []string
	fields      map[string]*field
	recordID    string
	submitting  bool
	submitError string
	closed      bool
	version     uint64

	emitMu  sync.Mutex
	emitted uint64
}

// New builds a controller for set. Missing optional collaborators fall back
// to defaults: a fresh validation engine, a real clock, a no-op logger and a
// discarding notifier.
func New(set *rules.RuleSet, deps Deps, opts ...Option) (*Controller, error) {
	if set == nil {
		return nil, errors.New("form: rule set is required")
	}
	if deps.Engine == nil {
		deps.Engine = validation.New()
	}
	if deps.Clock == nil {
		deps.Clock = debounce.RealClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard
	}
	if len(set.UniqueFields()) > 0 && deps.Checker == nil {
		return nil, fmt.Errorf("form: %s rules declare unique fields but no checker was supplied", set.Entity())
	}

	c := &Controller{
		set:        set,
		deps:       deps,
		window:     set.Debounce(),
		noun:       rules.HumanizeField(string(set.Entity())),
		assemble:   DefaultAssembler,
		dependents: make(map[string][]string),
		order:      set.Fields(),
		fields:     make(map[string]*field),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}

	for _, name := range c.order {
		f := &field{
			initial: set.Default(name),
			state: FieldState{
				Name:  name,
				Label: set.Label(name),
				Value: set.Default(name),
			},
		}
		if rule, ok := set.Unique(name); ok {
			rule := rule
			f.unique = &rule
			f.state.Unique = true
			f.state.Uniqueness = StatusUnknown
			f.deb = debounce.New(c.window, debounce.WithClock(deps.Clock))
			if rule.ScopeField != "" {
				c.dependents[rule.ScopeField] = append(c.dependents[rule.ScopeField], name)
			}
		}
		for _, rule := range set.Rules(name) {
			if rule.Other != "" {
				c.dependents[rule.Other] = append(c.dependents[rule.Other], name)
			}
		}
		c.fields[name] = f
	}

	c.mu.Lock()
	for _, name := range c.order {
		c.evaluateLocked(name, false)
	}
	c.mu.Unlock()
	return c, nil
}

// Entity returns the entity type edited by this form.
func (c *Controller) Entity() entity.Type { return c.set.Entity() }

// Rules returns the rule set driving the form.
func (c *Controller) Rules() *rules.RuleSet { return c.set }

// SetField updates a value, marks it touched and dirty, validates it and
// applies projections. Locally valid unique fields get a debounced check.
func (c *Controller) SetField(name, value string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	f, ok := c.fields[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	f.state.Value = value
	f.state.Touched = true
	f.state.Dirty = value != f.initial
	c.evaluateLocked(name, true)
	c.propagateLocked(name)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
	return nil
}

// BlurField marks the field touched and validates it again. A failed or
// missing uniqueness verdict is retried.
func (c *Controller) BlurField(name string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	f, ok := c.fields[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	f.state.Touched = true
	c.evaluateLocked(name, true)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
	return nil
}

// Submit validates every field, settles pending uniqueness checks and calls
// the mutator once. On success the form resets and leaves edit mode.
func (c *Controller) Submit(ctx context.Context) (entity.Record, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return entity.Record{}, ErrClosed
	}
	if c.submitting {
		c.mu.Unlock()
		return entity.Record{}, ErrSubmitInProgress
	}
	c.submitting = true
	c.submitError = ""
	var flush []*debounce.Debouncer
	for _, name := range c.order {
		f := c.fields[name]
		f.state.Touched = true
		c.evaluateLocked(name, false)
		if f.deb != nil && f.state.Validating && f.deb.Pending() {
			flush = append(flush, f.deb)
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)

	for _, deb := range flush {
		deb.Flush()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return entity.Record{}, ErrClosed
	}
	if blocked := c.blockedLocked(); blocked != nil {
		c.submitting = false
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.emit(snap)
		return entity.Record{}, blocked
	}
	values := c.valuesLocked()
	recordID := c.recordID
	c.mu.Unlock()

	payload, err := c.assemble(values)
	if err != nil {
		return entity.Record{}, c.failSubmit(ctx, "assemble", err)
	}
	if c.deps.Mutator == nil {
		return entity.Record{}, c.failSubmit(ctx, "create", errors.New("no mutator configured"))
	}

	op := "create"
	var rec entity.Record
	if recordID != "" {
		op = "update"
		rec, err = c.deps.Mutator.Update(ctx, c.set.Entity(), recordID, payload)
	} else {
		rec, err = c.deps.Mutator.Create(ctx, c.set.Entity(), payload)
	}
	if err != nil {
		return entity.Record{}, c.failSubmit(ctx, op, err)
	}

	c.mu.Lock()
	c.submitting = false
	if !c.closed {
		c.resetLocked(false)
	}
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)

	verb := "created"
	if op == "update" {
		verb = "updated"
	}
	c.deps.Notifier.Notify(ctx, notify.Success(c.set.Entity(), fmt.Sprintf("%s %s successfully", c.noun, verb)))
	c.deps.Logger.Info("form submitted",
		zap.String("entity", string(c.set.Entity())),
		zap.String("op", op),
		zap.String("id", rec.ID),
	)
	if c.onSuccess != nil {
		c.onSuccess(rec)
	}
	return rec, nil
}

// Load switches to edit mode for id, seeding values from the stored record.
// Stored unique values count as available.
func (c *Controller) Load(ctx context.Context, id string) error {
	if c.deps.Fetcher == nil {
		return ErrNoFetcher
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	rec, err := c.deps.Fetcher.Get(ctx, c.set.Entity(), id)
	if err != nil {
		return fmt.Errorf("form: load %s %q: %w", c.set.Entity(), id, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.recordID = rec.ID
	if c.recordID == "" {
		c.recordID = id
	}
	for _, name := range c.order {
		c.fields[name].initial = rec.Value(name)
	}
	c.resetLocked(true)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
	return nil
}

// Reset restores the initial values: defaults, or the loaded record in edit
// mode. Pending checks are discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.resetLocked(true)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// Close stops timers and discards in-flight results. Mutating calls return
// ErrClosed afterwards. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, name := range c.order {
		f := c.fields[name]
		if f.deb == nil {
			continue
		}
		f.deb.Close()
		f.pending = ""
		f.state.Validating = false
	}
}

// Wait blocks until scheduled checks have run or been discarded. Pending
// debounce timers must fire for Wait to return.
func (c *Controller) Wait() {
	for _, name := range c.order {
		if deb := c.fields[name].deb; deb != nil {
			deb.Wait()
		}
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// evaluateLocked recomputes the error for name. retry re-schedules a failed
// uniqueness check for an unchanged value.
func (c *Controller) evaluateLocked(name string, retry bool) {
	f := c.fields[name]
	err := c.deps.Engine.Validate(name, f.state.Value, c.set, c.validationContextLocked())
	if err != nil {
		c.cancelCheckLocked(f)
		f.setError(SourceLocal, err.Error(), err)
		if f.unique != nil {
			f.state.Uniqueness = StatusUnknown
			f.checked = ""
		}
		return
	}
	if f.unique == nil {
		f.clearError()
		return
	}
	if strings.TrimSpace(f.state.Value) == "" {
		c.cancelCheckLocked(f)
		f.clearError()
		f.state.Uniqueness = StatusUnknown
		f.checked = ""
		return
	}

	key := c.keyLocked(f)
	switch {
	case f.checked == key && f.state.Uniqueness == StatusAvailable:
		c.cancelCheckLocked(f)
		f.clearError()
	case f.checked == key && f.state.Uniqueness == StatusTaken:
		c.cancelCheckLocked(f)
		f.setError(SourceUniqueness, c.takenMessage(f), ErrNameTaken)
	case f.checked == key && f.state.Uniqueness == StatusFailed && !retry:
		// the transport error stays until the user retries
	case f.state.Validating && f.pending == key:
		// a check for this value is already scheduled
	default:
		c.scheduleLocked(name, f, key)
	}
}

func (c *Controller) scheduleLocked(name string, f *field, key string) {
	f.pending = key
	f.checked = ""
	f.state.Validating = true
	f.state.Uniqueness = StatusUnknown
	f.clearError()
	token := f.deb.Trigger(func(ctx context.Context, token debounce.Token) {
		c.runCheck(ctx, name, token)
	})
	c.deps.Logger.Debug("uniqueness check scheduled",
		zap.String("entity", string(c.set.Entity())),
		zap.String("field", name),
		zap.Uint64("generation", uint64(token)),
	)
}

func (c *Controller) cancelCheckLocked(f *field) {
	if f.deb == nil {
		return
	}
	if f.state.Validating || f.deb.Pending() {
		f.deb.Cancel()
	}
	f.pending = ""
	f.state.Validating = false
	if f.state.Uniqueness == StatusChecking {
		f.state.Uniqueness = StatusUnknown
	}
}

func (c *Controller) runCheck(ctx context.Context, name string, token debounce.Token) {
	c.mu.Lock()
	f := c.fields[name]
	if c.closed || !f.deb.Current(token) {
		c.mu.Unlock()
		return
	}
	query := c.queryLocked(f)
	key := c.keyLocked(f)
	f.state.Uniqueness = StatusChecking
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)

	available, err := c.deps.Checker.CheckUnique(ctx, query)

	c.mu.Lock()
	if c.closed || !f.deb.Current(token) {
		c.mu.Unlock()
		c.deps.Logger.Debug("stale uniqueness result discarded",
			zap.String("entity", string(c.set.Entity())),
			zap.String("field", name),
			zap.String("query", query.Name),
			zap.Uint64("generation", uint64(token)),
		)
		return
	}
	f.pending = ""
	f.checked = key
	f.state.Validating = false
	switch {
	case err != nil:
		f.state.Uniqueness = StatusFailed
		f.setError(SourceTransport, UnverifiedMessage, err)
		c.deps.Logger.Warn("uniqueness check failed",
			zap.String("entity", string(c.set.Entity())),
			zap.String("field", name),
			zap.Error(err),
		)
	case available:
		f.state.Uniqueness = StatusAvailable
		f.clearError()
	default:
		f.state.Uniqueness = StatusTaken
		f.setError(SourceUniqueness, c.takenMessage(f), ErrNameTaken)
	}
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// propagateLocked applies projections for a change to name and revalidates
// every field depending on the changed values.
func (c *Controller) propagateLocked(name string) {
	changed := map[string]bool{name: true}
	for _, project := range c.projections {
		updates := project(name, c.valuesLocked())
		for key, value := range updates {
			if key == name {
				continue
			}
			g, ok := c.fields[key]
			if !ok || g.state.Value == value {
				continue
			}
			g.state.Value = value
			g.state.Dirty = value != g.initial
			changed[key] = true
		}
	}

	revalidate := map[string]bool{}
	for key := range changed {
		if key != name {
			revalidate[key] = true
		}
		for _, dep := range c.dependents[key] {
			if dep != name {
				revalidate[dep] = true
			}
		}
	}
	for _, field := range c.order {
		if revalidate[field] {
			c.evaluateLocked(field, false)
		}
	}
}

func (c *Controller) blockedLocked() *BlockedError {
	blocked := &BlockedError{}
	for _, name := range c.order {
		f := c.fields[name]
		if f.state.Validating {
			blocked.Pending = append(blocked.Pending, name)
			continue
		}
		if f.state.Error != "" {
			blocked.Fields = append(blocked.Fields, &FieldError{
				Field:   name,
				Message: f.state.Error,
				Source:  f.state.ErrorSource,
				Err:     f.cause,
			})
		}
	}
	if len(blocked.Fields) == 0 && len(blocked.Pending) == 0 {
		return nil
	}
	return blocked
}

func (c *Controller) failSubmit(ctx context.Context, op string, err error) error {
	c.mu.Lock()
	c.submitting = false
	message := c.submitMessage(err)
	if rejected, ok := store.IsRejected(err); ok && rejected.Field != "" {
		if f, ok := c.fields[rejected.Field]; ok {
			c.cancelCheckLocked(f)
			if errors.Is(err, store.ErrConflict) {
				if f.unique != nil {
					f.state.Uniqueness = StatusTaken
					f.checked = c.keyLocked(f)
				}
				f.setError(SourceUniqueness, c.takenMessage(f), fmt.Errorf("%w: %w", ErrNameTaken, err))
			} else {
				reason := rejected.Reason
				if reason == "" {
					reason = f.state.Label + " was rejected"
				}
				f.setError(SourceStore, reason, err)
			}
		}
	}
	c.submitError = message
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)

	c.deps.Notifier.Notify(ctx, notify.Failure(c.set.Entity(), message))
	c.deps.Logger.Warn("form submission failed",
		zap.String("entity", string(c.set.Entity())),
		zap.String("op", op),
		zap.Error(err),
	)
	return &SubmissionError{Entity: c.set.Entity(), Op: op, Err: err}
}

func (c *Controller) submitMessage(err error) string {
	if store.IsTransport(err) {
		return "Unable to save right now. Please try again."
	}
	if rejected, ok := store.IsRejected(err); ok {
		if _, known := c.fields[rejected.Field]; known {
			return "Please fix the highlighted fields"
		}
		if rejected.Reason != "" {
			return fmt.Sprintf("Could not save %s: %s", strings.ToLower(c.noun), rejected.Reason)
		}
	}
	return fmt.Sprintf("Could not save %s: %v", strings.ToLower(c.noun), err)
}

func (c *Controller) resetLocked(keepRecord bool) {
	if !keepRecord {
		c.recordID = ""
		for _, name := range c.order {
			c.fields[name].initial = c.set.Default(name)
		}
	}
	c.submitError = ""
	for _, name := range c.order {
		f := c.fields[name]
		c.cancelCheckLocked(f)
		f.state.Value = f.initial
		f.state.Touched = false
		f.state.Dirty = false
		f.clearError()
		f.checked = ""
		if f.unique != nil {
			f.state.Uniqueness = StatusUnknown
		}
	}
	if c.recordID != "" {
		for _, name := range c.order {
			f := c.fields[name]
			if f.unique != nil && strings.TrimSpace(f.state.Value) != "" {
				f.checked = c.keyLocked(f)
				f.state.Uniqueness = StatusAvailable
			}
		}
	}
	for _, name := range c.order {
		c.evaluateLocked(name, false)
	}
}

func (c *Controller) queryLocked(f *field) uniqueness.Query {
	q := uniqueness.Query{
		Entity:    c.set.Entity(),
		Column:    f.unique.Column,
		Name:      f.state.Value,
		ExcludeID: c.recordID,
	}
	if scope := f.unique.ScopeField; scope != "" {
		q.ScopeField = scope
		if g, ok := c.fields[scope]; ok {
			q.ScopeValue = strings.TrimSpace(g.state.Value)
		}
	}
	return q
}

func (c *Controller) keyLocked(f *field) string {
	key := strings.ToLower(strings.TrimSpace(f.state.Value))
	if scope := f.unique.ScopeField; scope != "" {
		if g, ok := c.fields[scope]; ok {
			key += "\x00" + strings.TrimSpace(g.state.Value)
		}
	}
	return key
}

func (c *Controller) takenMessage(f *field) string {
	if f.unique != nil && f.unique.Message != "" {
		return f.unique.Message
	}
	return f.state.Label + " is already taken"
}

func (c *Controller) validationContextLocked() validation.Context {
	return validation.Context{Values: c.valuesLocked(), Now: c.deps.Clock.Now}
}

func (c *Controller) valuesLocked() map[string]string {
	out := make(map[string]string, len(c.order))
	for _, name := range c.order {
		out[name] = c.fields[name].state.Value
	}
	return out
}

func (c *Controller) snapshotLocked() State {
	state := State{
		Entity:      c.set.Entity(),
		Fields:      make([]FieldState, 0, len(c.order)),
		Submitting:  c.submitting,
		SubmitError: c.submitError,
		RecordID:    c.recordID,
	}
	c.version++
	state.Version = c.version
	for _, name := range c.order {
		state.Fields = append(state.Fields, c.fields[name].state)
	}
	return state
}

// emit delivers state to the listeners one snapshot at a time. A snapshot
// older than the last one delivered is dropped, so a goroutine that lost the
// race to emit never overwrites a newer render.
func (c *Controller) emit(state State) {
	if len(c.listeners) == 0 {
		return
	}
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if state.Version <= c.emitted {
		return
	}
	c.emitted = state.Version
	for _, listener := range c.listeners {
		listener(state)
	}
}
