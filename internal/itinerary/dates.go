// Package itinerary turns a plan's date range and its flat stop list into
// per-day buckets, and remaps stop dates when the range is edited.
package itinerary

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO 8601 calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// ErrInvalidRange is returned when a start date falls after its end date
// or either date cannot be parsed.
var ErrInvalidRange = errors.New("invalid date range")

// ParseDate parses an ISO date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ExpandDates returns every calendar date from start to end inclusive.
// An inverted or unparseable range yields an empty slice.
func ExpandDates(start, end string) []string {
	from, err := ParseDate(start)
	if err != nil {
		return []string{}
	}
	to, err := ParseDate(end)
	if err != nil {
		return []string{}
	}
	if from.After(to) {
		return []string{}
	}

	dates := make([]string, 0, daysBetween(from, to)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates
}

// DayOffset returns the number of whole days from one date to another.
// The result is negative when to precedes from.
func DayOffset(from, to string) (int, error) {
	a, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	b, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	return daysBetween(a, b), nil
}

// daysBetween counts calendar days between two UTC midnights. It works on Unix
// seconds because a time.Duration saturates after about 292 years.
func daysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / secondsPerDay)
}

// AddDays shifts an ISO date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// RangeLength returns the number of days in the inclusive range, or 0 if the range is invalid.
func RangeLength(start, end string) int {
	n, err := DayOffset(start, end)
	if err != nil || n < 0 {
		return 0
	}
	return n + 1
}

// ValidateRange checks that both dates parse and start <= end.
func ValidateRange(start, end string) error {
	from, err := ParseDate(start)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	to, err := ParseDate(end)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if from.After(to) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start, end)
	}
	return nil
}

// InRange reports whether date falls within [start, end].
func InRange(date, start, end string) bool {
	d, err := ParseDate(date)
	if err != nil {
		return false
	}
	from, err := ParseDate(start)
	if err != nil {
		return false
	}
	to, err := ParseDate(end)
	if err != nil {
		return false
	}
	return !d.Before(from) && !d.After(to)
}
