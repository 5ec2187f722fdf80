// Package prompt drives a form controller from interactive terminal prompts.
package prompt

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/store"
)

// Choice is one selectable value for a field.
type Choice struct {
	Value string
	Label string
}

// Option configures a Session.
type Option func(*Session)

// WithChoices turns field into a select prompt over choices.
func WithChoices(field string, choices []Choice) Option {
	return func(s *Session) {
		if field == "" || len(choices) == 0 {
			return
		}
		s.choices[field] = append([]Choice(nil), choices...)
	}
}

// WithSkip leaves field out of the prompts; its default is submitted.
func WithSkip(fields ...string) Option {
	return func(s *Session) {
		for _, f := range fields {
			s.skip[f] = true
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session asks for every field of a form, then submits it. Fields the submit
// rejects are asked again.
type Session struct {
	driver  Driver
	ctrl    *form.Controller
	choices map[string][]Choice
	skip    map[string]bool
	logger  *zap.Logger
}

// NewSession binds driver to ctrl.
func NewSession(driver Driver, ctrl *form.Controller, opts ...Option) *Session {
	s := &Session{
		driver:  driver,
		ctrl:    ctrl,
		choices: make(map[string][]Choice),
		skip:    make(map[string]bool),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Run prompts until the form submits, the user declines a retry, or the
// driver fails.
func (s *Session) Run(ctx context.Context) (entity.Record, error) {
	if s == nil || s.driver == nil || s.ctrl == nil {
		return entity.Record{}, errors.New("prompt: driver and controller are required")
	}
	fields := make([]string, 0)
	for _, name := range s.ctrl.Rules().Fields() {
		if !s.skip[name] {
			fields = append(fields, name)
		}
	}

	for {
		for _, name := range fields {
			if err := s.ask(ctx, name); err != nil {
				return entity.Record{}, err
			}
		}

		rec, err := s.ctrl.Submit(ctx)
		if err == nil {
			return rec, nil
		}

		var blocked *form.BlockedError
		switch {
		case errors.As(err, &blocked):
			fields = fields[:0]
			for _, fe := range blocked.Fields {
				if err := s.driver.Info(ctx, fmt.Sprintf("%s: %s", s.ctrl.Rules().Label(fe.Field), fe.Message)); err != nil {
					return entity.Record{}, err
				}
				fields = append(fields, fe.Field)
			}
			if len(fields) == 0 {
				return entity.Record{}, err
			}
		case store.IsTransport(err):
			retry, cerr := s.driver.Confirm(ctx, ConfirmConfig{Message: "Unable to save right now. Try again?", Default: true})
			if cerr != nil {
				return entity.Record{}, cerr
			}
			if !retry {
				return entity.Record{}, err
			}
			fields = fields[:0]
		default:
			state := s.ctrl.Snapshot()
			fields = fields[:0]
			for name, msg := range state.Errors() {
				fields = append(fields, name)
				s.logger.Debug("field rejected by store", zap.String("field", name), zap.String("reason", msg))
			}
			if len(fields) == 0 {
				return entity.Record{}, err
			}
			if ierr := s.driver.Info(ctx, state.SubmitError); ierr != nil {
				return entity.Record{}, ierr
			}
		}
	}
}

func (s *Session) ask(ctx context.Context, name string) error {
	set := s.ctrl.Rules()
	label := set.Label(name)
	if !set.Required(name) {
		label += " (optional)"
	}
	current, _ := s.ctrl.Snapshot().Field(name)

	if choices := s.choices[name]; len(choices) > 0 {
		labels := make([]string, len(choices))
		def := -1
		for i, c := range choices {
			labels[i] = c.Label
			if c.Value == current.Value {
				def = i
			}
		}
		idx, err := s.driver.Select(ctx, SelectConfig{Message: label, Options: labels, DefaultIndex: def})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(choices) {
			return fmt.Errorf("prompt: invalid selection for %s", name)
		}
		return s.ctrl.SetField(name, choices[idx].Value)
	}

	value, err := s.driver.Input(ctx, InputConfig{
		Message:   label,
		Default:   current.Value,
		Validator: func(v string) error { return s.check(name, v) },
	})
	if err != nil {
		return err
	}
	return s.ctrl.SetField(name, value)
}

// check applies v and reports a local rule failure. Uniqueness resolves at
// submit.
func (s *Session) check(name, v string) error {
	if err := s.ctrl.SetField(name, v); err != nil {
		return err
	}
	state, _ := s.ctrl.Snapshot().Field(name)
	if state.ErrorSource == form.SourceLocal && state.Error != "" {
		return errors.New(state.Error)
	}
	return nil
}
