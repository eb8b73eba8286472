package utils

import (
	"fmt"
	"time"
)

// FormatTime formats a time.Time as HH:MM in 24-hour format
func FormatTime(t time.Time) string {
	return t.Format("15:04")
}

// FormatDate formats a time.Time as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDate parses a date string in YYYY-MM-DD format
func ParseDate(dateStr string) (time.Time, error) {
	return time.Parse("2006-01-02", dateStr)
}

// CombineDateTime combines a YYYY-MM-DD date and an HH:MM time into a single
// local wall-clock timestamp. No timezone semantics are attached to due
// dates; they are interpreted in the server's local time.
func CombineDateTime(dateStr, timeStr string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+timeStr, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date/time %q %q: %w", dateStr, timeStr, err)
	}
	return t, nil
}

// SplitDateTime splits a timestamp back into the due date and due time fields
func SplitDateTime(t time.Time) (dateStr, timeStr string) {
	return FormatDate(t), FormatTime(t)
}
