package validation

import (
	"html"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-formflow/pkg/rules"
)

var defaultTemplates = map[rules.Kind]string{
	rules.KindRequired:             "{{ label }} is required",
	rules.KindNoEdgeWhitespace:     "{{ label }} cannot start or end with spaces",
	rules.KindNoRepeatedWhitespace: "{{ label }} cannot contain consecutive spaces",
	rules.KindMinLength:            "{{ label }} must be at least {{ min }} characters",
	rules.KindMaxLength:            "{{ label }} must be at most {{ max }} characters",
	rules.KindPattern:              "{{ label }} has an invalid format",
	rules.KindForbidPattern:        "{{ label }} contains characters that are not allowed",
	rules.KindNumber:               "{{ label }} must be a valid number",
	rules.KindInteger:              "{{ label }} must be a whole number",
	rules.KindRange: "{% if min and max %}{{ label }} must be between {{ min }} and {{ max }}" +
		"{% elif min %}{{ label }} must be at least {{ min }}" +
		"{% else %}{{ label }} must be at most {{ max }}{% endif %}",
	rules.KindDate: "{{ label }} must be a valid date (YYYY-MM-DD)",
	rules.KindDateRange: "{% if min and max %}{{ label }} must be between {{ min }} and {{ max }}" +
		"{% elif min %}{{ label }} must be on or after {{ min }}" +
		"{% else %}{{ label }} must be on or before {{ max }}{% endif %}",
	rules.KindLessThanField: "{{ label }} must be less than {{ other }}",
	rules.KindPhone:         "Please enter a valid 10-digit mobile number",
	rules.KindEmail:         "Please enter a valid email address",
	rules.KindImageURL:      "{{ label }} must be a valid http(s) URL",
}

// messageRenderer renders pongo2 message templates. Compiled templates are
// cached by source text.
type messageRenderer struct {
	defaults map[rules.Kind]string

	mu    sync.RWMutex
	cache map[string]*pongo2.Template
}

func newMessageRenderer() *messageRenderer {
	defaults := make(map[rules.Kind]string, len(defaultTemplates))
	for kind, tpl := range defaultTemplates {
		defaults[kind] = tpl
	}
	return &messageRenderer{
		defaults: defaults,
		cache:    make(map[string]*pongo2.Template),
	}
}

func (m *messageRenderer) render(rule rules.FieldRule, label, value string, params map[string]any) string {
	source := strings.TrimSpace(rule.Message)
	if source == "" {
		source = m.defaults[rule.Kind]
	}
	if source == "" {
		return label + " is invalid"
	}
	if !strings.Contains(source, "{{") && !strings.Contains(source, "{%") {
		return source
	}

	tpl, err := m.template(source)
	if err != nil {
		return source
	}

	ctx := pongo2.Context{
		"label": label,
		"field": rule.Field,
		"value": value,
	}
	for key, param := range params {
		ctx[key] = param
	}
	out, err := tpl.Execute(ctx)
	if err != nil {
		return source
	}
	// messages are plain text; undo pongo2's HTML autoescaping
	return strings.TrimSpace(html.UnescapeString(out))
}

func (m *messageRenderer) template(source string) (*pongo2.Template, error) {
	m.mu.RLock()
	tpl, ok := m.cache[source]
	m.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	tpl, err := pongo2.FromString(source)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cache[source] = tpl
	m.mu.Unlock()
	return tpl, nil
}
