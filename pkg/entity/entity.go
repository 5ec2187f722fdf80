package entity

import (
	"fmt"
	"strings"
)

// Type identifies a marketplace entity managed through the admin forms.
type Type string

const (
	Category Type = "category"
	Service  Type = "service"
	User     Type = "user"
	Provider Type = "provider"
)

// Types lists the supported entity types in display precedence order.
func Types() []Type {
	return []Type{Category, Service, User, Provider}
}

// ParseType normalises raw input ("Categories", " service ") into a Type.
func ParseType(raw string) (Type, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.TrimSuffix(value, "s")
	if value == "categorie" {
		value = string(Category)
	}
	for _, t := range Types() {
		if string(t) == value {
			return t, nil
		}
	}
	return "", fmt.Errorf("entity: unknown type %q", raw)
}

// Valid reports whether t is a known entity type.
func (t Type) Valid() bool {
	switch t {
	case Category, Service, User, Provider:
		return true
	default:
		return false
	}
}

func (t Type) String() string { return string(t) }

// Record is the canonical shape every store adapter returns. Alternate column
// names are reconciled once by FromRow so business logic never has to guess.
type Record struct {
	ID              string         `json:"id" yaml:"id"`
	Type            Type           `json:"type" yaml:"type"`
	Name            string         `json:"name" yaml:"name"`
	Description     string         `json:"description,omitempty" yaml:"description,omitempty"`
	Email           string         `json:"email,omitempty" yaml:"email,omitempty"`
	CategoryID      string         `json:"category_id,omitempty" yaml:"category_id,omitempty"`
	CategoryName    string         `json:"category_name,omitempty" yaml:"category_name,omitempty"`
	DurationMinutes int            `json:"duration_minutes,omitempty" yaml:"duration_minutes,omitempty"`
	Attributes      map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Value returns the named canonical column as a string. Unknown columns fall
// back to Attributes.
func (r Record) Value(column string) string {
	switch column {
	case "id":
		return r.ID
	case "name":
		return r.Name
	case "description":
		return r.Description
	case "email":
		return r.Email
	case "category_id":
		return r.CategoryID
	case "category_name":
		return r.CategoryName
	case "duration_minutes":
		if r.DurationMinutes == 0 {
			return ""
		}
		return fmt.Sprint(r.DurationMinutes)
	}
	if r.Attributes == nil {
		return ""
	}
	if value, ok := r.Attributes[column]; ok && value != nil {
		return fmt.Sprint(value)
	}
	return ""
}

// Payload carries create/update values keyed by canonical column names.
type Payload map[string]any

// Clone returns a shallow copy of the payload.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
