// Package civiltime interprets user-facing dates in the application's fixed
// civil timezone (Asia/Shanghai, UTC+8, no DST).
//
// Records are stored as UTC instants but every date the user types or sees is
// a Beijing-time calendar date. All range comparisons must go through the
// boundary helpers here; truncating an instant in the server's local zone
// drops late-evening records into the wrong day.
package civiltime

import (
	"fmt"
	"strings"
	"time"
)

// Zone is the fixed civil timezone. China abolished DST in 1991, so a fixed
// offset is correct year-round and avoids depending on the host tzdata.
var Zone = time.FixedZone("Asia/Shanghai", 8*60*60)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// Day is a calendar day in the civil timezone.
type Day struct {
	Year  int
	Month time.Month
	Date  int
}

// Month is a calendar month in the civil timezone.
type Month struct {
	Year  int
	Month time.Month
}

// ParseDate parses a YYYY-MM-DD string into a civil day.
func ParseDate(s string) (Day, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), Zone)
	if err != nil {
		return Day{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Day{Year: t.Year(), Month: t.Month(), Date: t.Day()}, nil
}

// ParseMonth parses a YYYY-MM string into a civil month.
func ParseMonth(s string) (Month, error) {
	t, err := time.ParseInLocation(monthLayout, strings.TrimSpace(s), Zone)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// ParseInstant parses a date-only or datetime string into an instant in the
// civil timezone. A bare date lands on the start of that civil day.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", dateLayout} {
		if t, err := time.ParseInLocation(layout, s, Zone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse instant %q: unrecognized format", s)
}

// DayOf returns the civil day an instant falls on.
func DayOf(t time.Time) Day {
	local := t.In(Zone)
	return Day{Year: local.Year(), Month: local.Month(), Date: local.Day()}
}

// MonthOf returns the civil month an instant falls in.
func MonthOf(t time.Time) Month {
	local := t.In(Zone)
	return Month{Year: local.Year(), Month: local.Month()}
}

// StartOfDay returns the instant at 00:00:00 civil time on d.
func (d Day) StartOfDay() time.Time {
	return time.Date(d.Year, d.Month, d.Date, 0, 0, 0, 0, Zone)
}

// EndOfDay returns the last instant of d. Using the last nanosecond rather
// than midnight of the next day keeps inclusive `<=` range queries correct.
func (d Day) EndOfDay() time.Time {
	return time.Date(d.Year, d.Month, d.Date, 23, 59, 59, 999999999, Zone)
}

// String renders the day as YYYY-MM-DD.
func (d Day) String() string {
	return d.StartOfDay().Format(dateLayout)
}

// StartOfMonth returns the first instant of m.
func (m Month) StartOfMonth() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, Zone)
}

// EndOfMonth returns the last instant of m.
func (m Month) EndOfMonth() time.Time {
	firstOfNext := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, Zone).AddDate(0, 1, 0)
	return firstOfNext.Add(-time.Nanosecond)
}

// String renders the month as YYYY-MM.
func (m Month) String() string {
	return m.StartOfMonth().Format(monthLayout)
}

// FormatDate renders an instant as a YYYY-MM-DD string in the civil timezone.
// Used for CSV rows and anywhere a stored instant is shown as a date.
func FormatDate(t time.Time) string {
	return t.In(Zone).Format(dateLayout)
}
