package models

import (
	"time"
)

// Event is a single schedule entry. The same type serves both the parsed
// (transient) and persisted form; ID is empty until the store assigns one.
type Event struct {
	ID          string
	Subject     string
	Start       time.Time
	End         time.Time
	Location    string
	Description string
	NaturalKey  string
}

// Duration is End - Start and may be zero or negative for malformed rows;
// such events stay timed events and are never rejected.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// IsStrictAllDay reports whether the event covers an exact whole number of
// days: the duration is a non-negative multiple of 24h and both bounds sit
// at local midnight.
func (e Event) IsStrictAllDay() bool {
	d := e.Duration()
	if d < 0 || d%(24*time.Hour) != 0 {
		return false
	}

	return atMidnight(e.Start) && atMidnight(e.End)
}

// IsLongForm reports whether the event meets the near-24h duration
// threshold used by the transparency-policy variants. Midnight alignment
// is deliberately not required here.
func (e Event) IsLongForm(threshold time.Duration) bool {
	return e.Duration() >= threshold
}

func atMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}

// FieldsEqual compares the five mutable fields with exact equality.
// Subject changes are possible even though the subject also feeds the
// natural key, because the key is derived from raw input text.
func (e Event) FieldsEqual(other Event) bool {
	return e.Subject == other.Subject &&
		e.Start.Equal(other.Start) &&
		e.End.Equal(other.End) &&
		e.Location == other.Location &&
		e.Description == other.Description
}
