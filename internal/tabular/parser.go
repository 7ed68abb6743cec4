package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"calfeed.dev/internal/models"
)

// RequiredColumns must all be present in the header row. Values may be
// blank for Location and Description.
var RequiredColumns = []string{
	"Subject",
	"Start Date",
	"Start Time",
	"End Date",
	"End Time",
	"Location",
	"Description",
}

// ValidationError reports header problems found before any row parsing.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid table: %s", strings.Join(e.Reasons, "; "))
}

// ParseError reports the first unparseable date-time value. It aborts the
// whole batch; rows are never skipped individually.
type ParseError struct {
	Row   int
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf(
		"row %d: cannot parse date-time %q: %v", e.Row, e.Value, e.Err,
	)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NaturalKey derives the row identity from the raw column strings, not
// from the parsed timestamps. Rows whose raw subject and start texts match
// collide onto the same key even when locale-ambiguous parses differ.
func NaturalKey(subject, startDate, startTime string) string {
	return subject + "|" + startDate + "|" + startTime
}

// ParseTable reads a whole CSV table and returns one event per data row,
// in input order. Duplicate natural keys are preserved here; the sync
// layer collapses them to the last-seen row.
func ParseTable(
	r io.Reader,
	profile models.CalendarProfile,
) ([]models.Event, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &ValidationError{
			Reasons: []string{"empty or unreadable table"},
		}
	}

	columns, reasons := indexColumns(header)
	if len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}

	events := []models.Event{}
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ValidationError{
				Reasons: []string{fmt.Sprintf("row %d: %v", row, err)},
			}
		}

		event, err := parseRow(record, columns, row, profile)
		if err != nil {
			return nil, err
		}

		events = append(events, *event)
		row++
	}

	return events, nil
}

func indexColumns(header []string) (map[string]int, []string) {
	columns := map[string]int{}
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	reasons := []string{}
	for _, name := range RequiredColumns {
		if _, ok := columns[name]; !ok {
			reasons = append(
				reasons,
				fmt.Sprintf("missing required column: %s", name),
			)
		}
	}

	return columns, reasons
}

func parseRow(
	record []string,
	columns map[string]int,
	row int,
	profile models.CalendarProfile,
) (*models.Event, error) {
	field := func(name string) string {
		idx := columns[name]
		if idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	subject := field("Subject")
	startDate := field("Start Date")
	startTime := field("Start Time")

	start, err := ParseDateTime(startDate, startTime, profile.ParseLocation())
	if err != nil {
		return nil, &ParseError{
			Row:   row,
			Value: strings.TrimSpace(startDate + " " + startTime),
			Err:   err,
		}
	}

	endDate := field("End Date")
	endTime := field("End Time")

	end, err := ParseDateTime(endDate, endTime, profile.ParseLocation())
	if err != nil {
		return nil, &ParseError{
			Row:   row,
			Value: strings.TrimSpace(endDate + " " + endTime),
			Err:   err,
		}
	}

	return &models.Event{
		Subject:     subject,
		Start:       start,
		End:         end,
		Location:    field("Location"),
		Description: field("Description"),
		NaturalKey:  NaturalKey(subject, startDate, startTime),
	}, nil
}

// dateTimeLayouts is probed in order, most specific first. The same
// fallthrough technique is used for the ICS timestamp variants in the
// calendar service.
var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 3:04 PM",
	"2006-01-02 3:04PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04PM",
	"1/2/06 3:04 PM",
	"1/2/06 15:04",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 15:04",
	"2 Jan 2006 15:04",
	"January 2, 2006 3:04 PM",
}

var dateOnlyLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"1/2/06",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// ParseDateTime concatenates the raw date and time texts with a single
// space and interprets the result as a wall-clock value in loc. A blank
// time text yields midnight.
func ParseDateTime(
	dateText, timeText string,
	loc *time.Location,
) (time.Time, error) {
	dateText = strings.TrimSpace(dateText)
	timeText = strings.TrimSpace(timeText)

	if dateText == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if timeText == "" {
		return parseWith(dateOnlyLayouts, dateText, loc)
	}

	return parseWith(dateTimeLayouts, dateText+" "+timeText, loc)
}

func parseWith(
	layouts []string,
	value string,
	loc *time.Location,
) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date-time format")
}
