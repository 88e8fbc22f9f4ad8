package document

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate is returned for date or time strings that cannot be read.
var ErrInvalidDate = errors.New("invalid date or time")

const dateLayout = "2006-01-02"

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"}

// FormatDateTime joins a date and a time of day into a FHIR dateTime in loc.
// A missing time yields the date alone, and partial dates (year, or year and
// month) pass through unchanged. A missing date yields "".
func FormatDateTime(date, clock string, loc *time.Location) (string, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return "", nil
	}
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t.In(loc).Format(time.RFC3339), nil
	}
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		if clock == "" && isPartialDate(date) {
			return date, nil
		}
		return "", fmt.Errorf("%w: date %q", ErrInvalidDate, date)
	}
	if clock == "" {
		return day.Format(dateLayout), nil
	}

	for _, layout := range clockLayouts {
		tod, err := time.Parse(layout, strings.ToUpper(clock))
		if err != nil {
			continue
		}
		t := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, loc)
		return t.Format(time.RFC3339), nil
	}
	return "", fmt.Errorf("%w: time %q", ErrInvalidDate, clock)
}

// FormatDate reduces a date or dateTime to a FHIR date. Partial dates (year, or
// year and month) are kept as they are.
func FormatDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if _, err := time.Parse(dateLayout, value); err == nil || isPartialDate(value) {
		return value, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Format(dateLayout), nil
	}
	return "", fmt.Errorf("%w: date %q", ErrInvalidDate, value)
}

// isPartialDate reports whether value is a FHIR year or year-month.
func isPartialDate(value string) bool {
	for _, layout := range []string{"2006-01", "2006"} {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}
