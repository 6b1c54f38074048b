// Package utils provides date and formatting helpers shared across the
// pipeline, report, and API layers.
package utils

import (
	"time"
)

// DateLayout is the wire format for all dates in raw files, the
// processed dataset, and API query parameters.
const DateLayout = "2006-01-02"

// ParseDate parses a "2006-01-02" date string as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate formats a time.Time to "2006-01-02".
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// TodayString returns today's date as "2006-01-02".
func TodayString() string {
	return time.Now().UTC().Format(DateLayout)
}

// Midnight truncates a time to UTC midnight. Dates from heterogeneous
// sources must be normalized this way before joining.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay reports whether t falls on a weekday. Exchange holidays
// are not modeled; bond data sources simply have no observation on them.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// PrevBusinessDay returns the closest weekday strictly before t.
func PrevBusinessDay(t time.Time) time.Time {
	prev := t.AddDate(0, 0, -1)
	for !IsBusinessDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// BusinessDaysEnding returns n weekdays in ascending order, the last of
// which is the closest weekday on or before end.
func BusinessDaysEnding(end time.Time, n int) []time.Time {
	end = Midnight(end)
	for !IsBusinessDay(end) {
		end = end.AddDate(0, 0, -1)
	}
	days := make([]time.Time, n)
	cur := end
	for i := n - 1; i >= 0; i-- {
		days[i] = cur
		cur = PrevBusinessDay(cur)
	}
	return days
}

// NearestOnOrBefore returns the index of the latest date in dates that
// is on or before target, or 0 if every date is after target. dates
// must be sorted ascending.
func NearestOnOrBefore(dates []time.Time, target time.Time) int {
	idx := 0
	for i, d := range dates {
		if d.After(target) {
			break
		}
		idx = i
	}
	return idx
}

// LookbackDays converts a lookback label like "3M" or "1Y" to an
// approximate trading-day count (21 rows per month, 252 per year).
// Unknown labels return 0.
func LookbackDays(label string) int {
	if len(label) < 2 {
		return 0
	}
	n := 0
	for _, c := range label[:len(label)-1] {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	switch label[len(label)-1] {
	case 'M', 'm':
		return n * 21
	case 'Y', 'y':
		return n * 252
	}
	return 0
}
