package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Alternate column names seen in existing tables, in lookup order.
var (
	nameColumns         = []string{"name", "full_name", "title"}
	categoryIDColumns   = []string{"category_id", "categoryId", "category", "service_category_id"}
	categoryNameColumns = []string{"category_name", "categoryName"}
	durationColumns     = []string{"duration_minutes", "durationMinutes", "duration"}
)

var canonicalColumns = map[string]struct{}{
	"id": {}, "name": {}, "full_name": {}, "title": {}, "description": {}, "email": {},
	"category_id": {}, "categoryId": {}, "category": {}, "service_category_id": {},
	"category_name": {}, "categoryName": {},
	"duration_minutes": {}, "durationMinutes": {}, "duration": {},
}

// FromRow converts a raw store row into a Record, reconciling the alternate
// column names listed above. Columns that do not map onto a canonical field
// are preserved in Attributes.
func FromRow(t Type, row map[string]any) Record {
	rec := Record{Type: t}
	if len(row) == 0 {
		return rec
	}

	rec.ID = stringValue(row["id"])
	rec.Name = firstString(row, nameColumns)
	rec.Description = stringValue(row["description"])
	rec.Email = stringValue(row["email"])
	rec.CategoryID, rec.CategoryName = categoryRef(row)
	if rec.CategoryName == "" {
		rec.CategoryName = firstString(row, categoryNameColumns)
	}
	for _, column := range durationColumns {
		if minutes, ok := intValue(row[column]); ok {
			rec.DurationMinutes = minutes
			break
		}
	}

	for key, value := range row {
		if _, ok := canonicalColumns[key]; ok {
			continue
		}
		if rec.Attributes == nil {
			rec.Attributes = make(map[string]any)
		}
		rec.Attributes[key] = value
	}
	return rec
}

// ToRow flattens a record back into canonical column names.
func ToRow(rec Record) map[string]any {
	row := make(map[string]any, len(rec.Attributes)+8)
	for key, value := range rec.Attributes {
		row[key] = value
	}
	row["id"] = rec.ID
	row["name"] = rec.Name
	if rec.Description != "" {
		row["description"] = rec.Description
	}
	if rec.Email != "" {
		row["email"] = rec.Email
	}
	if rec.CategoryID != "" {
		row["category_id"] = rec.CategoryID
	}
	if rec.DurationMinutes > 0 {
		row["duration_minutes"] = rec.DurationMinutes
	}
	return row
}

// ApplyPayload returns rec with payload columns written onto it. It is used by
// stores that keep records natively rather than as rows.
func ApplyPayload(rec Record, payload Payload) Record {
	row := ToRow(rec)
	for key, value := range payload {
		row[key] = value
	}
	out := FromRow(rec.Type, row)
	if out.CategoryName == "" {
		out.CategoryName = rec.CategoryName
	}
	return out
}

// categoryRef resolves the category id through the alternate column chain.
// A nested object ({"id": .., "name": ..}) under "category" is also accepted.
func categoryRef(row map[string]any) (string, string) {
	for _, column := range categoryIDColumns {
		raw, ok := row[column]
		if !ok || raw == nil {
			continue
		}
		if nested, ok := raw.(map[string]any); ok {
			id := stringValue(nested["id"])
			if id == "" {
				continue
			}
			return id, stringValue(nested["name"])
		}
		if id := stringValue(raw); id != "" {
			return id, ""
		}
	}
	return "", ""
}

func firstString(row map[string]any, columns []string) string {
	for _, column := range columns {
		if value := stringValue(row[column]); value != "" {
			return value
		}
	}
	return ""
}

func stringValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case []byte:
		return strings.TrimSpace(string(typed))
	case float64:
		if typed == math.Trunc(typed) {
			return strconv.FormatInt(int64(typed), 10)
		}
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

func intValue(value any) (int, bool) {
	switch typed := value.(type) {
	case int:
		return typed, true
	case int32:
		return int(typed), true
	case int64:
		return int(typed), true
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return 0, false
		}
		return int(math.Round(typed)), true
	case json.Number:
		n, err := typed.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return 0, false
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
