package utils

import (
	"testing"
	"time"
)

func TestParseFormatDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.March || d.Day() != 15 {
		t.Errorf("unexpected date: %v", d)
	}
	if got := FormatDate(d); got != "2024-03-15" {
		t.Errorf("FormatDate = %q", got)
	}
}

func TestMidnight(t *testing.T) {
	ts := time.Date(2024, 6, 3, 17, 45, 12, 999, time.UTC)
	m := Midnight(ts)
	if m.Hour() != 0 || m.Minute() != 0 || m.Second() != 0 || m.Nanosecond() != 0 {
		t.Errorf("Midnight did not truncate: %v", m)
	}
	if m.Day() != 3 {
		t.Errorf("Midnight changed the day: %v", m)
	}
}

func TestBusinessDaysEnding(t *testing.T) {
	// 2024-06-07 is a Friday.
	end := time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	days := BusinessDaysEnding(end, 5)
	if len(days) != 5 {
		t.Fatalf("expected 5 days, got %d", len(days))
	}
	if !days[4].Equal(end) {
		t.Errorf("last day = %v, want %v", days[4], end)
	}
	// Monday through Friday of the same week.
	if days[0].Weekday() != time.Monday {
		t.Errorf("first day weekday = %v, want Monday", days[0].Weekday())
	}
	for i := 1; i < len(days); i++ {
		if !days[i].After(days[i-1]) {
			t.Errorf("days not ascending at %d", i)
		}
		if !IsBusinessDay(days[i]) {
			t.Errorf("day %v is not a business day", days[i])
		}
	}
}

func TestBusinessDaysEndingOnWeekend(t *testing.T) {
	// 2024-06-09 is a Sunday; the range should end on Friday 06-07.
	end := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	days := BusinessDaysEnding(end, 3)
	want := time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	if !days[2].Equal(want) {
		t.Errorf("last day = %v, want %v", days[2], want)
	}
}

func TestNearestOnOrBefore(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}

	// Exact hit.
	if got := NearestOnOrBefore(dates, dates[1]); got != 1 {
		t.Errorf("exact: got %d, want 1", got)
	}
	// Between observations snaps backward.
	target := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	if got := NearestOnOrBefore(dates, target); got != 1 {
		t.Errorf("between: got %d, want 1", got)
	}
	// Before all observations clamps to the first.
	target = time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	if got := NearestOnOrBefore(dates, target); got != 0 {
		t.Errorf("before: got %d, want 0", got)
	}
	// After all observations returns the last.
	target = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if got := NearestOnOrBefore(dates, target); got != 2 {
		t.Errorf("after: got %d, want 2", got)
	}
}

func TestLookbackDays(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"1M", 21},
		{"3M", 63},
		{"6M", 126},
		{"1Y", 252},
		{"2Y", 504},
		{"", 0},
		{"M", 0},
		{"10X", 0},
	}
	for _, tt := range tests {
		if got := LookbackDays(tt.label); got != tt.want {
			t.Errorf("LookbackDays(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}
