package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	isoDate   = "2006-01-02"
	clockTime = "15:04"
)

// FormatDate formats a date string (YYYY-MM-DD) for display.
func FormatDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return "Unknown"
	}
	t, err := time.Parse(isoDate, date)
	if err != nil {
		return date
	}
	return t.Format("Jan 02, 2006")
}

// FormatDateHuman formats a date relative to today.
// "Today", "Tomorrow", "Yesterday", "in 3d", "3d ago", "Jan 15", "Jan 15 '24"
func FormatDateHuman(date string) string {
	return formatDateHumanAt(date, time.Now())
}

func formatDateHumanAt(date string, now time.Time) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return "Unknown"
	}
	t, err := time.Parse(isoDate, date)
	if err != nil {
		return date
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(t.Sub(today).Hours() / 24)

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days == -1:
		return "Yesterday"
	case days > 1 && days < 7:
		return fmt.Sprintf("in %dd", days)
	case days < -1 && days > -7:
		return fmt.Sprintf("%dd ago", -days)
	case t.Year() == now.Year():
		return t.Format("Jan 02")
	default:
		return t.Format("Jan 02 '06")
	}
}

// FormatDayHeading renders a bucket heading such as "Day 1 · Wed, Dec 25".
func FormatDayHeading(date string, index int) string {
	t, err := time.Parse(isoDate, strings.TrimSpace(date))
	if err != nil {
		return fmt.Sprintf("Day %d · %s", index+1, date)
	}
	return fmt.Sprintf("Day %d · %s", index+1, t.Format("Mon, Jan 02"))
}

// FormatDateRange renders an inclusive range such as "Dec 25 – Dec 27, 2024".
func FormatDateRange(start, end string) string {
	s, err1 := time.Parse(isoDate, start)
	e, err2 := time.Parse(isoDate, end)
	if err1 != nil || err2 != nil {
		return start + " – " + end
	}
	if s.Year() == e.Year() {
		return s.Format("Jan 02") + " – " + e.Format("Jan 02, 2006")
	}
	return s.Format("Jan 02, 2006") + " – " + e.Format("Jan 02, 2006")
}

// TodayISO returns today's date in ISO 8601 format (YYYY-MM-DD).
func TodayISO() string {
	return time.Now().Format(isoDate)
}

// ValidateDate validates a date string in YYYY-MM-DD format.
func ValidateDate(date string) error {
	_, err := time.Parse(isoDate, date)
	return err
}

// ValidateTime validates a time-of-day string in HH:MM format.
func ValidateTime(t string) error {
	_, err := time.Parse(clockTime, t)
	return err
}

// ParseDateInput parses flexible user input and normalizes to ISO (YYYY-MM-DD).
// Empty input is allowed and returns "".
func ParseDateInput(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", nil
	}

	layouts := []string{
		isoDate,
		"January 2, 2006",
		"Jan 2, 2006",
		"Jan 2 2006",
		"1/2/2006",
		"01/02/2006",
		"2006/01/02",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), nil
		}
	}

	return "", fmt.Errorf("invalid date format")
}

// ParseTimeInput parses a time of day and normalizes it to HH:MM.
// Accepts "9:05", "09:05", "0905", "9", "9am", "2:30 pm".
func ParseTimeInput(input string) (string, error) {
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(input), " ", ""))
	if s == "" {
		return "", fmt.Errorf("time is required")
	}

	for _, layout := range []string{"15:04", "3:04pm", "3pm", "1504"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(clockTime), nil
		}
	}
	if h, err := strconv.Atoi(s); err == nil && h >= 0 && h < 24 && len(s) <= 2 {
		return fmt.Sprintf("%02d:00", h), nil
	}

	return "", fmt.Errorf("invalid time format")
}

// ValidateCoordinates checks latitude and longitude ranges.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %.6f out of range", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %.6f out of range", lon)
	}
	return nil
}

// FormatCoords renders coordinates such as "37.5512°N 126.9882°E".
func FormatCoords(lat, lon float64) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns, lat = "S", -lat
	}
	if lon < 0 {
		ew, lon = "W", -lon
	}
	return fmt.Sprintf("%.4f°%s %.4f°%s", lat, ns, lon, ew)
}

// Pluralize returns "1 stop" or "3 stops".
func Pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

// TruncateString truncates a string to maxLen and adds "..." if needed.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
