package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-day layout accepted by date rules.
const DateLayout = "2006-01-02"

// ResolveDateBound turns a bound expression into a calendar day relative to
// now. Accepted forms are an absolute date ("2024-01-31"), "today", and
// offsets such as "today-18y", "today+30d", "-2m" (years, months, days).
func ResolveDateBound(bound string, now time.Time) (time.Time, error) {
	expr := strings.ToLower(strings.TrimSpace(bound))
	if expr == "" {
		return time.Time{}, fmt.Errorf("rules: empty date bound")
	}
	if day, err := time.ParseInLocation(DateLayout, expr, now.Location()); err == nil {
		return day, nil
	}

	today := TruncateDay(now)
	expr = strings.TrimPrefix(expr, "today")
	if expr == "" {
		return today, nil
	}

	sign := 1
	switch expr[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return time.Time{}, fmt.Errorf("rules: invalid date bound %q", bound)
	}
	expr = expr[1:]
	if len(expr) < 2 {
		return time.Time{}, fmt.Errorf("rules: invalid date bound %q", bound)
	}

	unit := expr[len(expr)-1]
	amount, err := strconv.Atoi(expr[:len(expr)-1])
	if err != nil || amount < 0 {
		return time.Time{}, fmt.Errorf("rules: invalid date bound %q", bound)
	}
	amount *= sign

	switch unit {
	case 'y':
		return today.AddDate(amount, 0, 0), nil
	case 'm':
		return today.AddDate(0, amount, 0), nil
	case 'd':
		return today.AddDate(0, 0, amount), nil
	default:
		return time.Time{}, fmt.Errorf("rules: invalid date bound unit in %q", bound)
	}
}

// TruncateDay drops the clock portion of t, keeping its location.
func TruncateDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
