package models

import (
	"fmt"
	"time"
)

// TimeMode selects how row timestamps are interpreted and how the
// generated document represents them. It applies to a whole sync or
// generation cycle; documents never mix modes.
type TimeMode string

const (
	// TimeModeNaive parses and emits floating local times without any
	// zone reference or VTIMEZONE block.
	TimeModeNaive TimeMode = "naive"
	// TimeModeDeclared parses naive wall-clock values but declares a
	// fixed zone in the document and tags every timestamp with it,
	// without converting the numeric values.
	TimeModeDeclared TimeMode = "declared"
	// TimeModeZoned attaches the configured zone at parse time and
	// converts to that zone's wall clock on output.
	TimeModeZoned TimeMode = "zoned"
)

func ParseTimeMode(s string) (TimeMode, error) {
	switch TimeMode(s) {
	case TimeModeNaive, TimeModeDeclared, TimeModeZoned:
		return TimeMode(s), nil
	default:
		return "", fmt.Errorf("unknown time mode %q", s)
	}
}

// TransparencyPolicy controls the free/busy marking of long-form events.
type TransparencyPolicy string

const (
	// PolicyNone disables the threshold classification entirely; all-day
	// detection falls back to the strict midnight-aligned rule and no
	// TRANSP property is emitted.
	PolicyNone TransparencyPolicy = ""
	// PolicyFree marks long-form events TRANSPARENT.
	PolicyFree TransparencyPolicy = "free"
	// PolicyBusy marks long-form events OPAQUE.
	PolicyBusy TransparencyPolicy = "busy"
)

func ParseTransparencyPolicy(s string) (TransparencyPolicy, error) {
	switch TransparencyPolicy(s) {
	case PolicyNone, PolicyFree, PolicyBusy:
		return TransparencyPolicy(s), nil
	default:
		return PolicyNone, fmt.Errorf("unknown transparency policy %q", s)
	}
}

// DefaultLongFormThreshold mirrors the 23h cutoff observed in the
// threshold-mode deployments.
const DefaultLongFormThreshold = 23 * time.Hour

// CalendarProfile is the process-wide calendar configuration, threaded
// explicitly into the parser and serializer so all three modes can be
// exercised side by side in tests.
type CalendarProfile struct {
	Mode TimeMode
	// ZoneID is the IANA identifier declared in the document. Empty in
	// naive mode.
	ZoneID   string
	Location *time.Location
	// LongFormThreshold is only consulted when a slot carries a
	// transparency policy.
	LongFormThreshold time.Duration
}

// NewCalendarProfile validates the mode/zone pairing. The zone is
// required for the declared and zoned modes and ignored for naive.
func NewCalendarProfile(
	mode TimeMode,
	zoneID string,
	threshold time.Duration,
) (CalendarProfile, error) {
	profile := CalendarProfile{
		Mode:              mode,
		LongFormThreshold: threshold,
	}
	if threshold <= 0 {
		profile.LongFormThreshold = DefaultLongFormThreshold
	}

	if mode == TimeModeNaive {
		return profile, nil
	}

	if zoneID == "" {
		return CalendarProfile{}, fmt.Errorf(
			"time mode %q requires a timezone", mode,
		)
	}

	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		return CalendarProfile{}, fmt.Errorf(
			"unknown timezone %q: %w", zoneID, err,
		)
	}

	profile.ZoneID = zoneID
	profile.Location = loc

	return profile, nil
}

// ParseLocation is the location row timestamps are parsed in. Naive and
// declared values are carried as zone-less wall clocks (represented in
// UTC internally); zoned values belong to the configured zone from the
// moment they are parsed.
func (p CalendarProfile) ParseLocation() *time.Location {
	if p.Mode == TimeModeZoned {
		return p.Location
	}
	return time.UTC
}

// Slot names one published document and the transparency policy it is
// generated under. Deployments publish either a single default slot or a
// free/busy pair.
type Slot struct {
	Filename string
	Policy   TransparencyPolicy
}
