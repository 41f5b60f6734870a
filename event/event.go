// Package event defines the application event record stored in DynamoDB and
// the canonical timestamp format used for its sort key.
//
// # Timestamp Format
//
// Events are range-queried by their created_at sort key, so the stored
// timestamp must sort lexically in the same order as chronological time.
// [TimeLayout] is fixed-width, zero-padded, microsecond-precision UTC:
//
//	2023-01-02T15:04:05.000000Z
//
// The same layout is used on the write path ([FormatTime]) and the read path
// ([ParseTime], [DayOf]). Mixing formats would make range queries silently
// return wrong results.
package event

import (
	"fmt"
	"time"
)

// TimeLayout is the canonical created_at layout. Fixed-width and always UTC,
// so byte-wise ordering of formatted values matches chronological ordering.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// DayLayout is the calendar-date layout used for aggregation keys and for
// the start_date/end_date request fields.
const DayLayout = "2006-01-02"

// Event is a single application event. Records are written once and never
// mutated; the store key is (Application, CreatedAt).
type Event struct {
	// Application is the partition key. Required, non-empty.
	Application string `json:"application"`

	// CreatedAt is the sort key, formatted with [TimeLayout].
	// Required, non-empty.
	CreatedAt string `json:"created_at"`

	// Operation is a free-form label for the action that produced the event.
	// Required at the write boundary.
	Operation string `json:"operation"`

	// CurrentMediaTime is the client playback position at the time of the
	// event. Write-boundary only; aggregation never reads it.
	CurrentMediaTime float64 `json:"currentMediaTime"`

	// SourceIP and UserAgent are captured from the write request context.
	SourceIP  string `json:"source_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// FormatTime renders t as a created_at value, converting to UTC first.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a created_at value. The input must match [TimeLayout]
// exactly; anything else is an error.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid created_at timestamp %q: %w", s, err)
	}

	return t, nil
}

// DayOf returns the calendar date (YYYY-MM-DD) of a created_at value. It
// parses the full timestamp rather than slicing the string, so malformed
// records are reported instead of miscounted.
func DayOf(createdAt string) (string, error) {
	t, err := ParseTime(createdAt)
	if err != nil {
		return "", err
	}

	return t.Format(DayLayout), nil
}
