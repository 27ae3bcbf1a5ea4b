// Package calendar owns the single definition of a "calendar day" used by the
// daily post gate, the friends feed window and the capture countdown. All
// three must agree at day boundaries, so they all go through Calendar.
package calendar

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a civil date with no zone attached.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayFromDate reads the civil date of t in t's own location. Used when
// scanning DATE columns, which the driver returns as UTC midnight.
func DayFromDate(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DayFromDate(t), nil
}

func (d Day) IsZero() bool {
	return d == (Day{})
}

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Date returns UTC midnight of d, the representation stored in DATE columns.
func (d Day) Date() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Day) AddDays(n int) Day {
	return DayFromDate(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Day) Prev() Day {
	return d.AddDays(-1)
}

func (d Day) Before(o Day) bool {
	return d.Date().Before(o.Date())
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Calendar resolves instants to local calendar days in one configured zone.
type Calendar struct {
	loc *time.Location
}

// New returns a Calendar for loc; a nil loc means time.Local.
func New(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{loc: loc}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// DayOf returns the local calendar day containing t.
func (c *Calendar) DayOf(t time.Time) Day {
	return DayFromDate(t.In(c.loc))
}

// Midnight returns the local midnight that starts d.
func (c *Calendar) Midnight(d Day) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, c.loc)
}

// Bounds returns the half-open window [local midnight, next local midnight)
// containing t. The window is not always 24h long across DST changes.
func (c *Calendar) Bounds(t time.Time) (start, end time.Time) {
	d := c.DayOf(t)
	return c.Midnight(d), c.Midnight(d.AddDays(1))
}

// Contains reports whether instant falls inside the calendar day of t.
func (c *Calendar) Contains(t, instant time.Time) bool {
	start, end := c.Bounds(t)
	return !instant.Before(start) && instant.Before(end)
}

func (c *Calendar) NextMidnight(t time.Time) time.Time {
	_, end := c.Bounds(t)
	return end
}

// UntilReset is the capture countdown: time left before the next post is
// allowed, i.e. until the next local midnight.
func (c *Calendar) UntilReset(t time.Time) time.Duration {
	return c.NextMidnight(t).Sub(t)
}

// CalendarDay is one cell of the memories calendar.
type CalendarDay struct {
	Date    Day    `json:"date"`
	HasPost bool   `json:"hasPost"`
	PostID  string `json:"postId,omitempty"`
	IsToday bool   `json:"isToday"`
}

type CalendarResponse struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Days  []*CalendarDay `json:"days"`
}

// MonthDays lists every day of the given month in order.
func MonthDays(year int, month time.Month) []Day {
	first := Day{Year: year, Month: month, Day: 1}
	var days []Day
	for d := first; d.Month == month; d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}
