package rules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/entity"
)

// OpenAPI vendor extensions understood by FromOpenAPI.
const (
	extUnique     = "x-unique"
	extLabel      = "x-label"
	extFieldOrder = "x-field-order"
	extDebounce   = "x-debounce-ms"
	extMessages   = "x-messages"
	extForbid     = "x-forbid-pattern"
	extLessThan   = "x-less-than"
	extDateRange  = "x-date-range"
)

// FromOpenAPI derives a rule set from the named component schema of an
// OpenAPI 3 document. Standard keywords map onto rule kinds (minLength,
// maxLength, pattern, minimum, maximum, format email/date, integer type);
// a handful of x- extensions cover uniqueness and cross-field rules.
func FromOpenAPI(ctx context.Context, raw []byte, schemaName string, t entity.Type) (*RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("rules openapi: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("rules openapi: load document: %w", err)
	}
	if doc.Components == nil || doc.Components.Schemas == nil {
		return nil, errors.New("rules openapi: document has no component schemas")
	}
	ref, ok := doc.Components.Schemas[schemaName]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("rules openapi: schema %q not found", schemaName)
	}
	schema := ref.Value

	required := make(map[string]struct{}, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = struct{}{}
	}

	specs := make([]FieldSpec, 0, len(schema.Properties))
	var unique []UniqueRule
	for _, name := range propertyOrder(schema) {
		propRef := schema.Properties[name]
		if propRef == nil || propRef.Value == nil {
			continue
		}
		prop := propRef.Value
		if prop.ReadOnly {
			continue
		}
		_, isRequired := required[name]
		spec := FieldSpec{
			Name:  name,
			Label: extensionString(prop.Extensions, extLabel),
			Rules: propertyRules(prop, isRequired),
		}
		if def, ok := prop.Default.(string); ok {
			spec.Default = def
		}
		specs = append(specs, spec)

		if rule, ok := uniqueExtension(name, prop.Extensions); ok {
			unique = append(unique, rule)
		}
	}

	debounce := time.Duration(extensionInt(schema.Extensions, extDebounce)) * time.Millisecond
	return NewRuleSet(t, debounce, specs, unique)
}

func propertyRules(prop *openapi3.Schema, required bool) []FieldRule {
	messages := extensionMessages(prop.Extensions)
	msg := func(kind Kind) string { return messages[string(kind)] }

	var out []FieldRule
	if required {
		out = append(out, FieldRule{Kind: KindRequired, Message: msg(KindRequired)})
	}

	isInteger := prop.Type != nil && prop.Type.Is(openapi3.TypeInteger)
	isNumber := prop.Type != nil && prop.Type.Is(openapi3.TypeNumber)
	switch {
	case isInteger:
		out = append(out, FieldRule{Kind: KindInteger, Message: msg(KindInteger)})
	case isNumber:
		out = append(out, FieldRule{Kind: KindNumber, Message: msg(KindNumber)})
	}

	if pattern := extensionString(prop.Extensions, extForbid); pattern != "" {
		out = append(out, FieldRule{Kind: KindForbidPattern, Pattern: pattern, Message: msg(KindForbidPattern)})
	}
	if prop.Pattern != "" {
		out = append(out, FieldRule{Kind: KindPattern, Pattern: prop.Pattern, Message: msg(KindPattern)})
	}
	if prop.MinLength > 0 {
		out = append(out, FieldRule{Kind: KindMinLength, Length: int(prop.MinLength), Message: msg(KindMinLength)})
	}
	if prop.MaxLength != nil && *prop.MaxLength > 0 {
		out = append(out, FieldRule{Kind: KindMaxLength, Length: int(*prop.MaxLength), Message: msg(KindMaxLength)})
	}
	if prop.Min != nil || prop.Max != nil {
		out = append(out, FieldRule{Kind: KindRange, Min: copyFloat(prop.Min), Max: copyFloat(prop.Max), Message: msg(KindRange)})
	}

	switch strings.ToLower(prop.Format) {
	case "email":
		out = append(out, FieldRule{Kind: KindEmail, Message: msg(KindEmail)})
	case "date":
		out = append(out, FieldRule{Kind: KindDate, Message: msg(KindDate)})
	case "phone", "tel":
		out = append(out, FieldRule{Kind: KindPhone, Message: msg(KindPhone)})
	case "uri", "url":
		out = append(out, FieldRule{Kind: KindImageURL, Message: msg(KindImageURL)})
	}

	if bounds, ok := prop.Extensions[extDateRange].(map[string]any); ok {
		minDate, _ := bounds["min"].(string)
		maxDate, _ := bounds["max"].(string)
		if minDate != "" || maxDate != "" {
			out = append(out, FieldRule{Kind: KindDateRange, MinDate: minDate, MaxDate: maxDate, Message: msg(KindDateRange)})
		}
	}
	if other := extensionString(prop.Extensions, extLessThan); other != "" {
		out = append(out, FieldRule{Kind: KindLessThanField, Other: other, Message: msg(KindLessThanField)})
	}
	return out
}

// propertyOrder honours x-field-order and appends remaining properties
// alphabetically.
func propertyOrder(schema *openapi3.Schema) []string {
	var order []string
	seen := make(map[string]struct{}, len(schema.Properties))
	if raw, ok := schema.Extensions[extFieldOrder].([]any); ok {
		for _, item := range raw {
			name, ok := item.(string)
			if !ok {
				continue
			}
			if _, exists := schema.Properties[name]; !exists {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			order = append(order, name)
		}
	}

	rest := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func uniqueExtension(field string, ext map[string]any) (UniqueRule, bool) {
	raw, ok := ext[extUnique]
	if !ok {
		return UniqueRule{}, false
	}
	switch typed := raw.(type) {
	case bool:
		if !typed {
			return UniqueRule{}, false
		}
		return UniqueRule{Field: field}, true
	case map[string]any:
		rule := UniqueRule{Field: field}
		rule.Column, _ = typed["column"].(string)
		rule.ScopeField, _ = typed["scope"].(string)
		rule.Message, _ = typed["message"].(string)
		return rule, true
	default:
		return UniqueRule{}, false
	}
}

func extensionString(ext map[string]any, key string) string {
	value, _ := ext[key].(string)
	return strings.TrimSpace(value)
}

func extensionInt(ext map[string]any, key string) int {
	switch value := ext[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	default:
		return 0
	}
}

func extensionMessages(ext map[string]any) map[string]string {
	raw, ok := ext[extMessages].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		if s, ok := value.(string); ok {
			out[key] = s
		}
	}
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
