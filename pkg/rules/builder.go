package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formflow/pkg/entity"
)

// NewRuleSet validates and compiles the supplied field specs into an
// immutable RuleSet.
func NewRuleSet(t entity.Type, debounce time.Duration, specs []FieldSpec, unique []UniqueRule) (*RuleSet, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("rules: unknown entity type %q", t)
	}
	set := &RuleSet{
		entity:   t,
		fields:   make(map[string]FieldSpec, len(specs)),
		unique:   make(map[string]UniqueRule, len(unique)),
		debounce: debounce,
	}

	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, ErrEmptyFieldName
		}
		if _, exists := set.fields[name]; exists {
			return nil, fmt.Errorf("%w %q", ErrDuplicateField, name)
		}
		compiled := make([]FieldRule, 0, len(spec.Rules))
		for _, rule := range spec.Rules {
			rule.Field = name
			built, err := compileRule(rule)
			if err != nil {
				return nil, err
			}
			compiled = append(compiled, built)
		}
		spec.Name = name
		spec.Rules = compiled
		set.fields[name] = spec
		set.order = append(set.order, name)
	}

	for _, rule := range unique {
		field := strings.TrimSpace(rule.Field)
		if _, ok := set.fields[field]; !ok {
			return nil, fmt.Errorf("rules: unique rule references unknown field %q", rule.Field)
		}
		if rule.ScopeField != "" {
			if _, ok := set.fields[rule.ScopeField]; !ok {
				return nil, fmt.Errorf("rules: unique rule on %q scopes by unknown field %q", field, rule.ScopeField)
			}
		}
		if rule.Column == "" {
			rule.Column = field
		}
		rule.Field = field
		set.unique[field] = rule
	}

	for _, spec := range set.fields {
		for _, rule := range spec.Rules {
			if rule.Kind != KindLessThanField {
				continue
			}
			if _, ok := set.fields[rule.Other]; !ok {
				return nil, fmt.Errorf("rules: field %q compares against unknown field %q", spec.Name, rule.Other)
			}
		}
	}

	return set, nil
}

// Builder offers a fluent way to declare rule sets in code.
type Builder struct {
	entity   entity.Type
	debounce time.Duration
	specs    []FieldSpec
	unique   []UniqueRule
	errs     []error
}

// NewBuilder starts a rule set declaration for t.
func NewBuilder(t entity.Type) *Builder {
	return &Builder{entity: t}
}

// Debounce sets the uniqueness debounce window.
func (b *Builder) Debounce(d time.Duration) *Builder {
	b.debounce = d
	return b
}

// Field starts a new field declaration. Subsequent rule calls attach to it.
func (b *Builder) Field(name, label string) *Builder {
	b.specs = append(b.specs, FieldSpec{Name: name, Label: label})
	return b
}

// Default sets the initial value for the current field.
func (b *Builder) Default(value string) *Builder {
	if spec := b.current(); spec != nil {
		spec.Default = value
	}
	return b
}

// Rule attaches an arbitrary rule to the current field.
func (b *Builder) Rule(rule FieldRule) *Builder {
	spec := b.current()
	if spec == nil {
		b.errs = append(b.errs, errors.New("rules: rule declared before any field"))
		return b
	}
	spec.Rules = append(spec.Rules, rule)
	return b
}

func (b *Builder) Required(msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindRequired, Message: msg})
}

func (b *Builder) NoEdgeWhitespace(msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindNoEdgeWhitespace, Message: msg})
}

func (b *Builder) NoRepeatedWhitespace(msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindNoRepeatedWhitespace, Message: msg})
}

func (b *Builder) MinLength(n int, msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindMinLength, Length: n, Message: msg})
}

func (b *Builder) MaxLength(n int, msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindMaxLength, Length: n, Message: msg})
}

func (b *Builder) Pattern(pattern, msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindPattern, Pattern: pattern, Message: msg})
}

func (b *Builder) Forbid(pattern, msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindForbidPattern, Pattern: pattern, Message: msg})
}

func (b *Builder) Number(msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindNumber, Message: msg})
}

func (b *Builder) Integer(msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindInteger, Message: msg})
}

func (b *Builder) Range(min, max *float64, msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindRange, Min: min, Max: max, Message: msg})
}

func (b *Builder) Date(msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindDate, Message: msg})
}

func (b *Builder) DateRange(minDate, maxDate, msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindDateRange, MinDate: minDate, MaxDate: maxDate, Message: msg})
}

func (b *Builder) LessThan(other, msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindLessThanField, Other: other, Message: msg})
}

func (b *Builder) Phone(msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindPhone, Message: msg})
}

func (b *Builder) Email(msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindEmail, Message: msg})
}

func (b *Builder) ImageURL(msg string) *Builder {
	return b.Rule(FieldRule{Kind: KindImageURL, Message: msg})
}

// Unique marks the current field for asynchronous uniqueness checking.
func (b *Builder) Unique(column, scopeField, msg string) *Builder {
	spec := b.current()
	if spec == nil {
		b.errs = append(b.errs, errors.New("rules: unique declared before any field"))
		return b
	}
	b.unique = append(b.unique, UniqueRule{
		Field:      spec.Name,
		Column:     column,
		ScopeField: scopeField,
		Message:    msg,
	})
	return b
}

// Build compiles the declaration.
func (b *Builder) Build() (*RuleSet, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return NewRuleSet(b.entity, b.debounce, b.specs, b.unique)
}

// MustBuild is Build for package level declarations; it panics on error.
func (b *Builder) MustBuild() *RuleSet {
	set, err := b.Build()
	if err != nil {
		panic(err)
	}
	return set
}

func (b *Builder) current() *FieldSpec {
	if len(b.specs) == 0 {
		return nil
	}
	return &b.specs[len(b.specs)-1]
}
