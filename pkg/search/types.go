package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formflow/pkg/entity"
)

// Type selects the collections a query runs against.
type Type string

const (
	Categories Type = "categories"
	Services   Type = "services"
	Users      Type = "users"
	General    Type = "general"
)

var ErrUnknownType = errors.New("search: unknown type")

// ParseType accepts the wire names; blank selects General.
func ParseType(raw string) (Type, error) {
	value := Type(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return General, nil
	}
	if !value.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
	}
	return value, nil
}

// Valid reports whether t is a known search type.
func (t Type) Valid() bool {
	switch t {
	case Categories, Services, Users, General:
		return true
	default:
		return false
	}
}

// Result is one matched record with its display fields resolved.
type Result struct {
	Entity       entity.Type   `json:"entity"`
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Email        string        `json:"email,omitempty"`
	CategoryID   string        `json:"categoryId,omitempty"`
	CategoryName string        `json:"categoryName,omitempty"`
	Duration     string        `json:"duration,omitempty"`
	Record       entity.Record `json:"-"`
}

// Uncategorized is shown for services whose category cannot be resolved.
const Uncategorized = "Uncategorized"

var precedence = map[entity.Type]int{
	entity.Category: 0,
	entity.Service:  1,
	entity.User:     2,
}

// FormatDuration renders minutes as "45 mins", "1 hour" or "1 hr 30 mins".
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	hours, mins := minutes/60, minutes%60
	switch {
	case hours == 0:
		return plural(mins, "min", "mins")
	case mins == 0:
		return plural(hours, "hour", "hours")
	default:
		return plural(hours, "hr", "hrs") + " " + plural(mins, "min", "mins")
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
