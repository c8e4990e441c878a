package util

import (
	"testing"
	"time"
)

func TestParseTimeInput(t *testing.T) {
	cases := map[string]string{
		"9:05":    "09:05",
		"09:05":   "09:05",
		"0905":    "09:05",
		"9":       "09:00",
		"21":      "21:00",
		"9am":     "09:00",
		"2:30 pm": "14:30",
		"12pm":    "12:00",
	}
	for in, want := range cases {
		got, err := ParseTimeInput(in)
		if err != nil || got != want {
			t.Fatalf("ParseTimeInput(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "25:00", "noon", "123"} {
		if _, err := ParseTimeInput(bad); err == nil {
			t.Fatalf("ParseTimeInput(%q) should fail", bad)
		}
	}
}

func TestParseDateInput(t *testing.T) {
	for in, want := range map[string]string{
		"2024-12-25":   "2024-12-25",
		"Dec 25, 2024": "2024-12-25",
		"12/25/2024":   "2024-12-25",
		"":             "",
	} {
		got, err := ParseDateInput(in)
		if err != nil || got != want {
			t.Fatalf("ParseDateInput(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDateInput("soon"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFormatDateHumanAt(t *testing.T) {
	now := time.Date(2024, 12, 25, 15, 0, 0, 0, time.UTC)
	for in, want := range map[string]string{
		"2024-12-25": "Today",
		"2024-12-26": "Tomorrow",
		"2024-12-24": "Yesterday",
		"2024-12-28": "in 3d",
		"2024-12-20": "5d ago",
		"2024-03-01": "Mar 01",
		"2023-03-01": "Mar 01 '23",
		"":           "Unknown",
	} {
		if got := formatDateHumanAt(in, now); got != want {
			t.Fatalf("formatDateHumanAt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDayHeadingAndRange(t *testing.T) {
	if got := FormatDayHeading("2024-12-25", 0); got != "Day 1 · Wed, Dec 25" {
		t.Fatalf("heading = %q", got)
	}
	if got := FormatDateRange("2024-12-30", "2025-01-02"); got != "Dec 30, 2024 – Jan 02, 2025" {
		t.Fatalf("range = %q", got)
	}
	if got := FormatDateRange("2024-12-25", "2024-12-27"); got != "Dec 25 – Dec 27, 2024" {
		t.Fatalf("range = %q", got)
	}
}

func TestValidateCoordinatesAndFormat(t *testing.T) {
	if err := ValidateCoordinates(91, 0); err == nil {
		t.Fatalf("expected latitude error")
	}
	if err := ValidateCoordinates(0, -181); err == nil {
		t.Fatalf("expected longitude error")
	}
	if got := FormatCoords(-33.8568, 151.2153); got != "33.8568°S 151.2153°E" {
		t.Fatalf("coords = %q", got)
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("Gyeongbokgung Palace", 10); got != "Gyeongb..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := TruncateString("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
