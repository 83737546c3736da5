package provider

import "time"

// NowISO formats the current instant the way every adapter stamps
// fee_estimates_timestamp and, where an upstream supplies no timestamp
// of its own, a transaction's timestamp: ISO-8601 UTC, millisecond
// precision, explicit +00:00 offset (spec.md §6).
func NowISO() string {
	return FormatISO(time.Now().UTC())
}

// FormatISO renders t in the wire timestamp format.
func FormatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000+00:00")
}
