package services

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// zoneTransition is one offset change of a civil zone within the probed
// year: the instant it happens and the offsets on both sides.
type zoneTransition struct {
	at         time.Time
	fromOffset int
	toOffset   int
	name       string
	isDST      bool
}

// buildVTimezone synthesizes a VTIMEZONE block for an IANA zone from the
// zone database: one STANDARD/DAYLIGHT pair with yearly recurrence rules
// when the zone observes DST, a single STANDARD block otherwise.
func buildVTimezone(zoneID string, loc *time.Location) *ics.VTimezone {
	tz := ics.NewTimezone(zoneID)
	tz.SetProperty(ics.ComponentProperty("X-LIC-LOCATION"), zoneID)

	transitions := findTransitions(loc, time.Now().Year())

	if len(transitions) == 0 {
		addFixedBlock(tz, loc)
		return tz
	}

	for _, tr := range transitions {
		addTransitionBlock(tz, tr)
	}

	return tz
}

func addFixedBlock(tz *ics.VTimezone, loc *time.Location) {
	ref := time.Date(time.Now().Year(), time.January, 1, 12, 0, 0, 0, loc)
	name, offset := ref.Zone()

	std := tz.AddStandard()
	std.SetProperty(
		ics.ComponentProperty(ics.PropertyTzoffsetfrom),
		formatUTCOffset(offset),
	)
	std.SetProperty(
		ics.ComponentProperty(ics.PropertyTzoffsetto),
		formatUTCOffset(offset),
	)
	std.SetProperty(ics.ComponentProperty(ics.PropertyTzname), name)
	std.SetProperty(ics.ComponentPropertyDtStart, "19700101T000000")
}

func addTransitionBlock(tz *ics.VTimezone, tr zoneTransition) {
	var block *ics.ComponentBase
	if tr.isDST {
		daylight := &ics.Daylight{} //nolint:exhaustruct //built up below
		tz.Components = append(tz.Components, daylight)
		block = &daylight.ComponentBase
	} else {
		block = &tz.AddStandard().ComponentBase
	}

	block.SetProperty(
		ics.ComponentProperty(ics.PropertyTzoffsetfrom),
		formatUTCOffset(tr.fromOffset),
	)
	block.SetProperty(
		ics.ComponentProperty(ics.PropertyTzoffsetto),
		formatUTCOffset(tr.toOffset),
	)
	block.SetProperty(ics.ComponentProperty(ics.PropertyTzname), tr.name)

	// DTSTART is the local wall clock at the transition, expressed in
	// the offset being left (RFC 5545 section 3.8.2.4 form 3).
	wall := tr.at.UTC().Add(time.Duration(tr.fromOffset) * time.Second)
	block.SetProperty(
		ics.ComponentPropertyDtStart,
		wall.Format(icalFloatingFormat),
	)
	block.SetProperty(ics.ComponentPropertyRrule, yearlyRule(wall))
}

// findTransitions scans one calendar year for offset changes and
// bisects each to second precision. Zones without DST yield none.
func findTransitions(loc *time.Location, year int) []zoneTransition {
	transitions := []zoneTransition{}

	cursor := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := cursor.AddDate(1, 0, 0)

	for cursor.Before(end) {
		next := cursor.Add(24 * time.Hour)

		_, before := cursor.In(loc).Zone()
		_, after := next.In(loc).Zone()

		if before != after {
			at := bisectTransition(cursor, next, loc)
			name, toOffset := at.In(loc).Zone()
			transitions = append(transitions, zoneTransition{
				at:         at,
				fromOffset: before,
				toOffset:   toOffset,
				name:       name,
				isDST:      at.In(loc).IsDST(),
			})
		}

		cursor = next
	}

	return transitions
}

// bisectTransition narrows [lo, hi) down to the first instant of the new
// offset.
func bisectTransition(lo, hi time.Time, loc *time.Location) time.Time {
	_, before := lo.In(loc).Zone()

	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2)
		if _, offset := mid.In(loc).Zone(); offset == before {
			lo = mid
		} else {
			hi = mid
		}
	}

	return hi
}

// yearlyRule approximates the transition as a yearly nth-weekday rule
// derived from the wall-clock transition date, e.g.
// FREQ=YEARLY;BYMONTH=3;BYDAY=2SU. When the date falls in the last
// weekday slot of its month, the "-1" ordinal is used so the rule also
// holds in months with five of that weekday.
func yearlyRule(wall time.Time) string {
	ordinal := (wall.Day()-1)/7 + 1

	daysInMonth := time.Date(
		wall.Year(), wall.Month(), 1, 0, 0, 0, 0, time.UTC,
	).AddDate(0, 1, -1).Day()
	if daysInMonth-wall.Day() < 7 {
		ordinal = -1
	}

	return fmt.Sprintf(
		"FREQ=YEARLY;BYMONTH=%d;BYDAY=%d%s",
		int(wall.Month()),
		ordinal,
		weekdayAbbrev(wall.Weekday()),
	)
}

func weekdayAbbrev(d time.Weekday) string {
	return [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}[d]
}

func formatUTCOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}

	return fmt.Sprintf("%s%02d%02d", sign, seconds/3600, (seconds%3600)/60)
}
