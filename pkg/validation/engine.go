package validation

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formflow/pkg/rules"
)

// Context supplies sibling values for cross-field rules and the clock used
// by relative date bounds.
type Context struct {
	Values map[string]string
	Now    func() time.Time
}

func (c Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Error describes the first rule a field failed.
type Error struct {
	Field   string
	Kind    rules.Kind
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Engine evaluates rule sets. It keeps no per-call state, so repeated calls
// with the same inputs return the same result.
type Engine struct {
	validate *validator.Validate
	messages *messageRenderer
}

// Option configures an Engine.
type Option func(*Engine)

// WithMessages overrides default message templates per rule kind.
func WithMessages(templates map[rules.Kind]string) Option {
	return func(e *Engine) {
		for kind, tpl := range templates {
			if strings.TrimSpace(tpl) == "" {
				continue
			}
			e.messages.defaults[kind] = tpl
		}
	}
}

// WithValidator swaps the go-playground validator instance used for format
// checks such as email.
func WithValidator(v *validator.Validate) Option {
	return func(e *Engine) {
		if v != nil {
			e.validate = v
		}
	}
}

// New constructs an Engine with the default message templates.
func New(opts ...Option) *Engine {
	e := &Engine{
		validate: validator.New(),
		messages: newMessageRenderer(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// Validate runs the rules bound to field in declared order and returns the
// first failure, or nil when the value satisfies every rule. Unknown fields
// pass.
func (e *Engine) Validate(field, value string, set *rules.RuleSet, ctx Context) error {
	if set == nil {
		return nil
	}
	label := set.Label(field)
	trimmed := strings.TrimSpace(value)

	for _, rule := range set.Rules(field) {
		if rule.Kind != rules.KindRequired && trimmed == "" {
			continue
		}
		ok, params := e.check(rule, value, trimmed, ctx)
		if ok {
			continue
		}
		if rule.Other != "" {
			if params == nil {
				params = map[string]any{}
			}
			params["other"] = set.Label(rule.Other)
		}
		return &Error{
			Field:   field,
			Kind:    rule.Kind,
			Message: e.messages.render(rule, label, value, params),
		}
	}
	return nil
}

// ValidateAll validates every declared field against values. The result only
// contains failing fields.
func (e *Engine) ValidateAll(set *rules.RuleSet, ctx Context) map[string]error {
	if set == nil {
		return nil
	}
	out := make(map[string]error)
	for _, field := range set.Fields() {
		if err := e.Validate(field, ctx.Values[field], set, ctx); err != nil {
			out[field] = err
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (e *Engine) check(rule rules.FieldRule, raw, trimmed string, ctx Context) (bool, map[string]any) {
	switch rule.Kind {
	case rules.KindRequired:
		return trimmed != "", nil
	case rules.KindNoEdgeWhitespace:
		return raw == trimmed, nil
	case rules.KindNoRepeatedWhitespace:
		return !hasRepeatedWhitespace(raw), nil
	case rules.KindMinLength:
		return utf8.RuneCountInString(trimmed) >= rule.Length, map[string]any{"min": rule.Length, "length": rule.Length}
	case rules.KindMaxLength:
		return utf8.RuneCountInString(trimmed) <= rule.Length, map[string]any{"max": rule.Length, "length": rule.Length}
	case rules.KindPattern:
		re := rule.Regexp()
		return re == nil || re.MatchString(trimmed), nil
	case rules.KindForbidPattern:
		re := rule.Regexp()
		return re == nil || !re.MatchString(raw), nil
	case rules.KindNumber:
		_, ok := parseNumber(trimmed)
		return ok, nil
	case rules.KindInteger:
		n, ok := parseNumber(trimmed)
		return ok && n == math.Trunc(n), nil
	case rules.KindRange:
		return checkRange(rule, trimmed)
	case rules.KindDate:
		_, err := time.Parse(rules.DateLayout, trimmed)
		return err == nil, nil
	case rules.KindDateRange:
		return checkDateRange(rule, trimmed, ctx.now())
	case rules.KindLessThanField:
		return checkLessThan(rule, trimmed, ctx)
	case rules.KindPhone:
		_, err := NormalizePhone(trimmed)
		return err == nil, nil
	case rules.KindEmail:
		return e.validate.Var(trimmed, "email") == nil, nil
	case rules.KindImageURL:
		return isAbsoluteURL(trimmed), nil
	default:
		return true, nil
	}
}

func parseNumber(raw string) (float64, bool) {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func checkRange(rule rules.FieldRule, trimmed string) (bool, map[string]any) {
	params := map[string]any{}
	if rule.Min != nil {
		params["min"] = formatNumber(*rule.Min)
	}
	if rule.Max != nil {
		params["max"] = formatNumber(*rule.Max)
	}
	n, ok := parseNumber(trimmed)
	if !ok {
		// the number rule owns the parse failure message
		return true, params
	}
	if rule.Min != nil && n < *rule.Min {
		return false, params
	}
	if rule.Max != nil && n > *rule.Max {
		return false, params
	}
	return true, params
}

func checkDateRange(rule rules.FieldRule, trimmed string, now time.Time) (bool, map[string]any) {
	params := map[string]any{}
	var minDay, maxDay time.Time
	if rule.MinDate != "" {
		if bound, err := rules.ResolveDateBound(rule.MinDate, now); err == nil {
			minDay = bound
			params["min"] = bound.Format(rules.DateLayout)
		}
	}
	if rule.MaxDate != "" {
		if bound, err := rules.ResolveDateBound(rule.MaxDate, now); err == nil {
			maxDay = bound
			params["max"] = bound.Format(rules.DateLayout)
		}
	}
	day, err := time.ParseInLocation(rules.DateLayout, trimmed, now.Location())
	if err != nil {
		return true, params
	}
	if !minDay.IsZero() && day.Before(minDay) {
		return false, params
	}
	if !maxDay.IsZero() && day.After(maxDay) {
		return false, params
	}
	return true, params
}

func checkLessThan(rule rules.FieldRule, trimmed string, ctx Context) (bool, map[string]any) {
	params := map[string]any{}
	value, ok := parseNumber(trimmed)
	if !ok {
		return true, params
	}
	other, ok := parseNumber(strings.TrimSpace(ctx.Values[rule.Other]))
	if !ok {
		// nothing to compare against until the other field is valid
		return true, params
	}
	return value < other, params
}

func hasRepeatedWhitespace(value string) bool {
	prevSpace := false
	for _, r := range strings.TrimSpace(value) {
		space := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if space && prevSpace {
			return true
		}
		prevSpace = space
	}
	return false
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return fmt.Sprintf("%g", v)
}
