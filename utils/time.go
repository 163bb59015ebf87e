// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// ISOTimestampLayout is RFC3339 with microsecond precision, used for every timestamp the API returns
const ISOTimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// FormatISO formats t in UTC using ISOTimestampLayout
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOTimestampLayout)
}

// FormatISOPtr formats t in UTC, returning nil for a nil time
func FormatISOPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatISO(*t)
	return &s
}
