// Package localtime is the calendar collaborator: every date, hour,
// minute, and weekday in the system is derived from one configured IANA
// locale, never from the server's own zone.
package localtime

import (
	"fmt"
	"time"
)

// Layouts accepted from query parameters.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Clock decomposes moments into the rig's local calendar.
type Clock struct {
	loc *time.Location
}

// New loads the IANA locale the wall reports in.
func New(locale string) (*Clock, error) {
	loc, err := time.LoadLocation(locale)
	if err != nil {
		return nil, fmt.Errorf("failed to load locale %q: %w", locale, err)
	}
	return &Clock{loc: loc}, nil
}

// NewFixed builds a Clock on an already-loaded location. Used by tests.
func NewFixed(loc *time.Location) *Clock {
	return &Clock{loc: loc}
}

// Location returns the configured location.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now returns the current moment in the configured locale.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

// DayKey returns the bucket key for t's local calendar date: midnight UTC
// of that date. Keys derived this way compare equal exactly when the local
// dates are equal, regardless of the zone t carries.
func (c *Clock) DayKey(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthKey returns the bucket key for t's local calendar month: midnight
// UTC of the first day of that month.
func (c *Clock) MonthKey(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Today returns the day key for the current moment.
func (c *Clock) Today() time.Time {
	return c.DayKey(c.Now())
}

// ThisMonth returns the month key for the current moment.
func (c *Clock) ThisMonth() time.Time {
	return c.MonthKey(c.Now())
}

// DayBounds returns the [start, end) instants covering the local calendar
// date of the given day key.
func (c *Clock) DayBounds(dayKey time.Time) (time.Time, time.Time) {
	start := time.Date(dayKey.Year(), dayKey.Month(), dayKey.Day(), 0, 0, 0, 0, c.loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// HourBounds returns the [start, end) instants covering the local hour
// containing t.
func (c *Clock) HourBounds(t time.Time) (time.Time, time.Time) {
	lt := t.In(c.loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), 0, 0, 0, c.loc)
	return start.UTC(), start.Add(time.Hour).UTC()
}

// HourOf returns the local hour (0-23) of t.
func (c *Clock) HourOf(t time.Time) int {
	return t.In(c.loc).Hour()
}

// MinuteOf returns the local minute (0-59) of t.
func (c *Clock) MinuteOf(t time.Time) int {
	return t.In(c.loc).Minute()
}

// WeekStart returns the day key of the Monday of the week containing the
// given day key.
func (c *Clock) WeekStart(dayKey time.Time) time.Time {
	// time.Weekday counts Sunday as 0; the dashboard week runs Mon-Sun
	offset := (int(dayKey.Weekday()) + 6) % 7
	return dayKey.AddDate(0, 0, -offset)
}

// WeekdayLabel formats a day key the way the weekly view keys its entries.
func WeekdayLabel(dayKey time.Time) string {
	return dayKey.Format("Monday, 2006-01-02")
}

// ParseDate parses a YYYY-MM-DD query parameter into a day key.
func (c *Clock) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, c.loc)
	if err != nil {
		return time.Time{}, err
	}
	return c.DayKey(t), nil
}

// ParseDateTime parses a YYYY-MM-DD HH:MM:SS query parameter as a local
// moment.
func (c *Clock) ParseDateTime(s string) (time.Time, error) {
	return time.ParseInLocation(DateTimeLayout, s, c.loc)
}
