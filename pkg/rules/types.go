package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-formflow/pkg/entity"
)

// Kind identifies a single declarative constraint.
type Kind string

const (
	KindRequired             Kind = "required"
	KindNoEdgeWhitespace     Kind = "no_edge_whitespace"
	KindNoRepeatedWhitespace Kind = "no_repeated_whitespace"
	KindMinLength            Kind = "min_length"
	KindMaxLength            Kind = "max_length"
	KindPattern              Kind = "pattern"
	KindForbidPattern        Kind = "forbid_pattern"
	KindNumber               Kind = "number"
	KindInteger              Kind = "integer"
	KindRange                Kind = "range"
	KindDate                 Kind = "date"
	KindDateRange            Kind = "date_range"
	KindLessThanField        Kind = "less_than_field"
	KindPhone                Kind = "phone"
	KindEmail                Kind = "email"
	KindImageURL             Kind = "image_url"
)

var knownKinds = map[Kind]struct{}{
	KindRequired: {}, KindNoEdgeWhitespace: {}, KindNoRepeatedWhitespace: {},
	KindMinLength: {}, KindMaxLength: {}, KindPattern: {}, KindForbidPattern: {},
	KindNumber: {}, KindInteger: {}, KindRange: {}, KindDate: {}, KindDateRange: {},
	KindLessThanField: {}, KindPhone: {}, KindEmail: {}, KindImageURL: {},
}

// Valid reports whether k is a supported rule kind.
func (k Kind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// FieldRule binds one constraint to one form field. Message is a template
// rendered by the validation engine; an empty message selects the default
// template for the kind.
type FieldRule struct {
	Field   string   `json:"field" yaml:"field"`
	Kind    Kind     `json:"kind" yaml:"kind"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
	Length  int      `json:"length,omitempty" yaml:"length,omitempty"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinDate string   `json:"minDate,omitempty" yaml:"minDate,omitempty"`
	MaxDate string   `json:"maxDate,omitempty" yaml:"maxDate,omitempty"`
	Other   string   `json:"other,omitempty" yaml:"other,omitempty"`

	re *regexp.Regexp
}

// Regexp returns the compiled pattern for pattern/forbid_pattern rules.
func (r FieldRule) Regexp() *regexp.Regexp {
	return r.re
}

// UniqueRule marks a field whose value must not collide with an existing
// record. ScopeField, when set, restricts the comparison to records sharing
// the same value for that field (services are unique per category).
type UniqueRule struct {
	Field      string `json:"field" yaml:"field"`
	Column     string `json:"column,omitempty" yaml:"column,omitempty"`
	ScopeField string `json:"scopeField,omitempty" yaml:"scopeField,omitempty"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty"`
}

// FieldSpec groups the rules declared for a single field.
type FieldSpec struct {
	Name    string
	Label   string
	Default string
	Rules   []FieldRule
}

// RuleSet is the immutable collection of rules for one entity form. Fields
// keep their declared order; rules within a field are evaluated in order.
type RuleSet struct {
	entity   entity.Type
	order    []string
	fields   map[string]FieldSpec
	unique   map[string]UniqueRule
	debounce time.Duration
}

var (
	ErrEmptyFieldName = errors.New("rules: field name is required")
	ErrDuplicateField = errors.New("rules: duplicate field")
)

// Entity reports the entity type these rules apply to.
func (s *RuleSet) Entity() entity.Type {
	if s == nil {
		return ""
	}
	return s.entity
}

// Fields returns the field names in declared order.
func (s *RuleSet) Fields() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Has reports whether the field is declared.
func (s *RuleSet) Has(field string) bool {
	if s == nil {
		return false
	}
	_, ok := s.fields[field]
	return ok
}

// Rules returns a copy of the rules bound to field.
func (s *RuleSet) Rules(field string) []FieldRule {
	if s == nil {
		return nil
	}
	spec, ok := s.fields[field]
	if !ok {
		return nil
	}
	return append([]FieldRule(nil), spec.Rules...)
}

// Label returns the human readable label for field, defaulting to a title
// cased version of the field name.
func (s *RuleSet) Label(field string) string {
	if s != nil {
		if spec, ok := s.fields[field]; ok && spec.Label != "" {
			return spec.Label
		}
	}
	return HumanizeField(field)
}

// Default returns the initial value for field.
func (s *RuleSet) Default(field string) string {
	if s == nil {
		return ""
	}
	return s.fields[field].Default
}

// Unique returns the uniqueness rule bound to field, if any.
func (s *RuleSet) Unique(field string) (UniqueRule, bool) {
	if s == nil {
		return UniqueRule{}, false
	}
	rule, ok := s.unique[field]
	return rule, ok
}

// UniqueFields lists fields carrying a uniqueness rule, in declared order.
func (s *RuleSet) UniqueFields() []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, name := range s.order {
		if _, ok := s.unique[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Required reports whether field carries a required rule.
func (s *RuleSet) Required(field string) bool {
	for _, rule := range s.Rules(field) {
		if rule.Kind == KindRequired {
			return true
		}
	}
	return false
}

// Debounce reports the uniqueness debounce window for this form.
func (s *RuleSet) Debounce() time.Duration {
	if s == nil {
		return 0
	}
	return s.debounce
}

// Specs returns copies of every field spec in declared order.
func (s *RuleSet) Specs() []FieldSpec {
	if s == nil {
		return nil
	}
	out := make([]FieldSpec, 0, len(s.order))
	for _, name := range s.order {
		spec := s.fields[name]
		spec.Rules = append([]FieldRule(nil), spec.Rules...)
		out = append(out, spec)
	}
	return out
}

// HumanizeField converts snake_case field names into labels ("offer_price" ->
// "Offer price").
func HumanizeField(field string) string {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return ""
	}
	trimmed = strings.TrimSuffix(trimmed, "_id")
	words := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	if len(words) == 0 {
		return ""
	}
	label := strings.ToLower(strings.Join(words, " "))
	return strings.ToUpper(label[:1]) + label[1:]
}

func compileRule(rule FieldRule) (FieldRule, error) {
	if !rule.Kind.Valid() {
		return rule, fmt.Errorf("rules: field %q: unknown kind %q", rule.Field, rule.Kind)
	}
	switch rule.Kind {
	case KindPattern, KindForbidPattern:
		if rule.Pattern == "" {
			return rule, fmt.Errorf("rules: field %q: %s requires a pattern", rule.Field, rule.Kind)
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return rule, fmt.Errorf("rules: field %q: compile pattern: %w", rule.Field, err)
		}
		rule.re = re
	case KindMinLength, KindMaxLength:
		if rule.Length <= 0 {
			return rule, fmt.Errorf("rules: field %q: %s requires a positive length", rule.Field, rule.Kind)
		}
	case KindRange:
		if rule.Min == nil && rule.Max == nil {
			return rule, fmt.Errorf("rules: field %q: range requires min or max", rule.Field)
		}
		if rule.Min != nil && rule.Max != nil && *rule.Min > *rule.Max {
			return rule, fmt.Errorf("rules: field %q: range min exceeds max", rule.Field)
		}
	case KindDateRange:
		if rule.MinDate == "" && rule.MaxDate == "" {
			return rule, fmt.Errorf("rules: field %q: date_range requires minDate or maxDate", rule.Field)
		}
		for _, bound := range []string{rule.MinDate, rule.MaxDate} {
			if bound == "" {
				continue
			}
			if _, err := ResolveDateBound(bound, time.Now()); err != nil {
				return rule, fmt.Errorf("rules: field %q: %w", rule.Field, err)
			}
		}
	case KindLessThanField:
		if strings.TrimSpace(rule.Other) == "" {
			return rule, fmt.Errorf("rules: field %q: less_than_field requires other", rule.Field)
		}
	}
	return rule, nil
}

// Float is a helper for declaring numeric bounds inline.
func Float(v float64) *float64 {
	return &v
}
