package services

import (
	"log/slog"
	"time"

	ics "github.com/arran4/golang-ical"

	"calfeed.dev/internal/models"
)

const (
	icalFloatingFormat = "20060102T150405"
	icalDateFormat     = "20060102"
)

// CalendarService turns the persisted event set into a calendar document
// under the configured time-representation profile.
type CalendarService struct {
	logger  *slog.Logger
	profile models.CalendarProfile
	now     func() time.Time
}

// Generate renders the full document for one publish slot. The policy
// selects the all-day classification rule: PolicyNone uses the strict
// midnight-aligned rule, free/busy use the duration threshold and stamp
// the matching TRANSP value.
func (s *CalendarService) Generate(
	events []models.Event,
	policy models.TransparencyPolicy,
) string {
	cal := ics.NewCalendarFor("calfeed")
	cal.SetXWRCalName("calfeed")

	if s.profile.Mode != models.TimeModeNaive {
		cal.SetXWRTimezone(s.profile.ZoneID)
	}

	now := s.now()
	for _, event := range events {
		s.addEvent(cal, event, policy, now)
	}

	if s.profile.Mode != models.TimeModeNaive {
		cal.AddVTimezone(buildVTimezone(s.profile.ZoneID, s.profile.Location))
	}

	s.logger.Info(
		"generated calendar document",
		slog.Int("events", len(events)),
		slog.String("mode", string(s.profile.Mode)),
	)

	return cal.Serialize()
}

func (s *CalendarService) addEvent(
	cal *ics.Calendar,
	event models.Event,
	policy models.TransparencyPolicy,
	now time.Time,
) {
	// The UID is the natural key, so identifiers stay stable across
	// regenerations and subscription clients can detect changes.
	vevent := cal.AddEvent(event.NaturalKey)

	vevent.SetSummary(event.Subject)
	if event.Location != "" {
		vevent.SetLocation(event.Location)
	}
	if event.Description != "" {
		vevent.SetDescription(event.Description)
	}

	start := s.wallClock(event.Start)
	end := s.wallClock(event.End)

	if s.isAllDay(event, policy) {
		vevent.SetAllDayStartAt(startOfDay(start))
		vevent.SetAllDayEndAt(startOfDay(end))

		switch policy {
		case models.PolicyFree:
			vevent.SetTimeTransparency(ics.TransparencyTransparent)
		case models.PolicyBusy:
			vevent.SetTimeTransparency(ics.TransparencyOpaque)
		case models.PolicyNone:
			// no TRANSP property
		}
	} else {
		s.setTimed(vevent, ics.ComponentPropertyDtStart, start)
		s.setTimed(vevent, ics.ComponentPropertyDtEnd, end)
	}

	s.setStamps(vevent, now)
}

func (s *CalendarService) isAllDay(
	event models.Event,
	policy models.TransparencyPolicy,
) bool {
	if policy == models.PolicyNone {
		return event.IsStrictAllDay()
	}
	return event.IsLongForm(s.profile.LongFormThreshold)
}

// wallClock is the value an event bound is rendered from. Zoned values
// are converted to the configured zone; naive and declared values already
// carry the wall clock to emit.
func (s *CalendarService) wallClock(t time.Time) time.Time {
	if s.profile.Mode == models.TimeModeZoned {
		return t.In(s.profile.Location)
	}
	return t
}

// setTimed emits DTSTART/DTEND without ever routing through the
// library's UTC setters: naive documents must stay free of the trailing
// "Z" marker, declared and zoned documents reference the declared zone.
func (s *CalendarService) setTimed(
	vevent *ics.VEvent,
	prop ics.ComponentProperty,
	t time.Time,
) {
	value := t.Format(icalFloatingFormat)

	if s.profile.Mode == models.TimeModeNaive {
		vevent.SetProperty(prop, value)
		return
	}

	vevent.SetProperty(prop, value, &ics.KeyValues{
		Key:   string(ics.ParameterTzid),
		Value: []string{s.profile.ZoneID},
	})
}

func (s *CalendarService) setStamps(vevent *ics.VEvent, now time.Time) {
	if s.profile.Mode == models.TimeModeNaive {
		// Keep the whole document zone-free, stamps included.
		vevent.SetProperty(
			ics.ComponentPropertyCreated,
			now.Format(icalFloatingFormat),
		)
		vevent.SetProperty(
			ics.ComponentPropertyDtstamp,
			now.Format(icalFloatingFormat),
		)
		return
	}

	vevent.SetCreatedTime(now)
	vevent.SetDtStampTime(now)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
