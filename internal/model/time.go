package model

import "time"

// TimeLayout is how timestamps are stored and shown: ISO-8601 in UTC with
// millisecond precision, e.g. 2026-10-17T09:30:00.000Z.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
