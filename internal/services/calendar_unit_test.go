package services_test

import (
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xdoubleu/essentia/v2/pkg/logging"

	"calfeed.dev/internal/models"
	"calfeed.dev/internal/services"
)

func calendarService(
	t *testing.T,
	mode models.TimeMode,
	zoneID string,
) *services.CalendarService {
	profile, err := models.NewCalendarProfile(mode, zoneID, 0)
	require.Nil(t, err)

	return services.NewCalendarService(logging.NewNopLogger(), profile)
}

func timedEvent() models.Event {
	start := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	//nolint:exhaustruct //minimal fixture
	return models.Event{
		Subject:    "Meeting",
		Start:      start,
		End:        start.Add(time.Hour),
		Location:   "Room1",
		NaturalKey: "Meeting|2024-01-10|09:00",
	}
}

func TestGenerateNaive(t *testing.T) {
	service := calendarService(t, models.TimeModeNaive, "")

	doc := service.Generate([]models.Event{timedEvent()}, models.PolicyNone)

	assert.Contains(t, doc, "BEGIN:VCALENDAR")
	assert.Contains(t, doc, "UID:Meeting|2024-01-10|09:00")
	assert.Contains(t, doc, "SUMMARY:Meeting")
	assert.Contains(t, doc, "LOCATION:Room1")
	assert.Contains(t, doc, "DTSTART:20240110T090000")
	assert.Contains(t, doc, "DTEND:20240110T100000")

	// the whole document is zone-free: no UTC markers, no zone references
	assert.NotRegexp(t, `\d{6}Z`, doc)
	assert.NotContains(t, doc, "TZID")
	assert.NotContains(t, doc, "X-WR-TIMEZONE")
	assert.NotContains(t, doc, "BEGIN:VTIMEZONE")
}

func TestGenerateDeclaredZone(t *testing.T) {
	service := calendarService(t, models.TimeModeDeclared, "America/Chicago")

	doc := service.Generate([]models.Event{timedEvent()}, models.PolicyNone)

	// values stay at the parsed wall clock, only tagged with the zone
	assert.Contains(t, doc, "X-WR-TIMEZONE:America/Chicago")
	assert.Contains(t, doc, "DTSTART;TZID=America/Chicago:20240110T090000")
	assert.Contains(t, doc, "DTEND;TZID=America/Chicago:20240110T100000")
	assert.Contains(t, doc, "BEGIN:VTIMEZONE")
	assert.Contains(t, doc, "TZID:America/Chicago")
}

func TestGenerateZonedConvertsInstants(t *testing.T) {
	service := calendarService(t, models.TimeModeZoned, "America/Chicago")

	// persisted instant is UTC; January is CST (-0600)
	event := timedEvent()
	event.Start = time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	event.End = event.Start.Add(time.Hour)

	doc := service.Generate([]models.Event{event}, models.PolicyNone)

	assert.Contains(t, doc, "DTSTART;TZID=America/Chicago:20240110T090000")
	assert.Contains(t, doc, "DTEND;TZID=America/Chicago:20240110T100000")
}

func TestGenerateVTimezoneRules(t *testing.T) {
	service := calendarService(t, models.TimeModeDeclared, "America/Chicago")

	doc := service.Generate(nil, models.PolicyNone)

	// second Sunday of March, 2:00 standard time, into -0500
	assert.Contains(t, doc, "BEGIN:DAYLIGHT")
	assert.Contains(t, doc, "TZOFFSETFROM:-0600")
	assert.Contains(t, doc, "TZOFFSETTO:-0500")
	assert.Contains(t, doc, "RRULE:FREQ=YEARLY;BYMONTH=3;BYDAY=2SU")
	assert.Contains(t, doc, "TZNAME:CDT")

	// first Sunday of November, back to standard time
	assert.Contains(t, doc, "BEGIN:STANDARD")
	assert.Contains(t, doc, "RRULE:FREQ=YEARLY;BYMONTH=11;BYDAY=1SU")
	assert.Contains(t, doc, "TZNAME:CST")
}

func TestGenerateVTimezoneFixedZone(t *testing.T) {
	service := calendarService(t, models.TimeModeDeclared, "Asia/Tokyo")

	doc := service.Generate(nil, models.PolicyNone)

	assert.Contains(t, doc, "TZID:Asia/Tokyo")
	assert.Contains(t, doc, "TZOFFSETFROM:+0900")
	assert.Contains(t, doc, "TZOFFSETTO:+0900")
	assert.NotContains(t, doc, "BEGIN:DAYLIGHT")
}

func TestGenerateStrictAllDay(t *testing.T) {
	service := calendarService(t, models.TimeModeNaive, "")

	//nolint:exhaustruct //minimal fixture
	event := models.Event{
		Subject:    "Offsite",
		Start:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC),
		NaturalKey: "Offsite|2024-02-01|",
	}

	doc := service.Generate([]models.Event{event}, models.PolicyNone)

	assert.Contains(t, doc, "DTSTART;VALUE=DATE:20240201")
	assert.Contains(t, doc, "DTEND;VALUE=DATE:20240203")
	assert.NotContains(t, doc, "TRANSP")
}

func TestGenerateThresholdAllDay(t *testing.T) {
	service := calendarService(t, models.TimeModeNaive, "")

	// 23h30m is under 24h but over the threshold, and not midnight aligned
	//nolint:exhaustruct //minimal fixture
	event := models.Event{
		Subject:    "Shift",
		Start:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC),
		NaturalKey: "Shift|2024-03-01|10:00",
	}

	free := service.Generate([]models.Event{event}, models.PolicyFree)
	assert.Contains(t, free, "DTSTART;VALUE=DATE:20240301")
	assert.Contains(t, free, "DTEND;VALUE=DATE:20240302")
	assert.Contains(t, free, "TRANSP:TRANSPARENT")

	busy := service.Generate([]models.Event{event}, models.PolicyBusy)
	assert.Contains(t, busy, "TRANSP:OPAQUE")

	// without a policy the strict rule applies and the event stays timed
	none := service.Generate([]models.Event{event}, models.PolicyNone)
	assert.Contains(t, none, "DTSTART:20240301T100000")
	assert.NotContains(t, none, "TRANSP")
}

func TestGenerateShortEventStaysTimedUnderPolicy(t *testing.T) {
	service := calendarService(t, models.TimeModeNaive, "")

	doc := service.Generate([]models.Event{timedEvent()}, models.PolicyFree)

	assert.Contains(t, doc, "DTSTART:20240110T090000")
	assert.NotContains(t, doc, "VALUE=DATE")
	assert.NotContains(t, doc, "TRANSP")
}

func TestGenerateNegativeDurationStaysTimed(t *testing.T) {
	service := calendarService(t, models.TimeModeNaive, "")

	// malformed rows with end before start pass through unchanged
	//nolint:exhaustruct //minimal fixture
	event := models.Event{
		Subject:    "Glitch",
		Start:      time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC),
		NaturalKey: "Glitch|2024-01-10|09:00",
	}

	none := service.Generate([]models.Event{event}, models.PolicyNone)
	assert.Contains(t, none, "DTSTART:20240110T090000")
	assert.Contains(t, none, "DTEND:20240110T080000")
	assert.NotContains(t, none, "VALUE=DATE")

	// a policy does not reclassify it either, the duration is under the
	// threshold
	free := service.Generate([]models.Event{event}, models.PolicyFree)
	assert.Contains(t, free, "DTSTART:20240110T090000")
	assert.NotContains(t, free, "VALUE=DATE")
	assert.NotContains(t, free, "TRANSP")
}

func TestGenerateZeroDurationTimedUnlessMidnight(t *testing.T) {
	service := calendarService(t, models.TimeModeNaive, "")

	//nolint:exhaustruct //minimal fixture
	event := models.Event{
		Subject:    "Ping",
		Start:      time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		NaturalKey: "Ping|2024-01-10|09:00",
	}

	doc := service.Generate([]models.Event{event}, models.PolicyNone)
	assert.Contains(t, doc, "DTSTART:20240110T090000")
	assert.Contains(t, doc, "DTEND:20240110T090000")
	assert.NotContains(t, doc, "VALUE=DATE")

	// at midnight the zero-length span is a whole multiple of 24h
	event.Start = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	event.End = event.Start

	doc = service.Generate([]models.Event{event}, models.PolicyNone)
	assert.Contains(t, doc, "DTSTART;VALUE=DATE:20240110")
}

func TestGenerateRoundTrip(t *testing.T) {
	service := calendarService(t, models.TimeModeDeclared, "America/Chicago")

	events := []models.Event{
		timedEvent(),
		{
			Subject:    "Review",
			Start:      time.Date(2024, 1, 11, 14, 0, 0, 0, time.UTC),
			End:        time.Date(2024, 1, 11, 15, 0, 0, 0, time.UTC),
			NaturalKey: "Review|2024-01-11|14:00",
		},
	}

	doc := service.Generate(events, models.PolicyNone)

	parsed, err := ics.ParseCalendar(strings.NewReader(doc))
	require.Nil(t, err)

	uids := []string{}
	for _, vevent := range parsed.Events() {
		uids = append(
			uids,
			vevent.GetProperty(ics.ComponentPropertyUniqueId).Value,
		)
	}

	assert.ElementsMatch(
		t,
		[]string{"Meeting|2024-01-10|09:00", "Review|2024-01-11|14:00"},
		uids,
	)
}
