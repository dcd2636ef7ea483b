package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar-date layout used for storage keys and JSON.
const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// Supported calendar years. DaysSince works on time.Duration, which cannot
// span more than about 292 years.
const (
	MinYear = 1900
	MaxYear = 2199
)

// Date is a calendar date. The wrapped time is always midnight UTC, so
// comparisons and arithmetic never see a time of day or a zone offset.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day. Out-of-range values are
// normalized the way time.Date does (Feb 31 becomes Mar 2 or Mar 3).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses "2006-01-02". Anything after a 'T' (time of day, offset)
// is dropped before parsing so the calendar day is never shifted.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	if y := d.Year(); y < MinYear || y > MaxYear {
		return fmt.Errorf("%w: %d not in %d..%d", ErrInvalidYear, y, MinYear, MaxYear)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// Between reports whether d lies in [start, end], both ends inclusive.
func (d Date) Between(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

// AddDays moves the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths moves the date by n calendar months using time.AddDate
// normalization: Jan 31 + 1 month is Mar 2 in a leap year, Mar 3 otherwise.
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

// WithDay returns the same year and month at the given day.
func (d Date) WithDay(day int) Date {
	return NewDate(d.Year(), d.Month(), day)
}

// FirstOfMonth returns the 1st of d's month.
func (d Date) FirstOfMonth() Date {
	return d.WithDay(1)
}

// LastOfMonth returns the last day of d's month.
func (d Date) LastOfMonth() Date {
	return NewDate(d.Year(), d.Month()+1, 0)
}

// DaysSince returns the whole number of days from o to d (negative when d is earlier).
func (d Date) DaysSince(o Date) int {
	return int(d.Time.Sub(o.Time) / (24 * time.Hour))
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
