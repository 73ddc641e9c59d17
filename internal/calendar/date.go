package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCalendarUnit indicates a month or day outside the valid calendar range.
var ErrInvalidCalendarUnit = errors.New("calendar: invalid calendar unit")

// Layout is the wire format for calendar dates.
const Layout = "2006-01-02"

// Date identifies a single civil calendar day without a timezone.
// The zero value is not a valid date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate constructs a Date from its components. The components are not
// validated; use Valid to check dates received from untrusted input.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf extracts the calendar day of a timestamp in the timestamp's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a date in 2006-01-02 form.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(Layout, value)
	if err != nil {
		return Date{}, fmt.Errorf("calendar: parse date %q: %w", value, err)
	}
	return DateOf(t), nil
}

// String renders the date in 2006-01-02 form.
func (d Date) String() string {
	return d.Time().Format(Layout)
}

// Time returns the date as a UTC midnight timestamp.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// At combines the date with a clock time in the supplied location.
func (d Date) At(hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Valid reports whether the date names an existing calendar day.
func (d Date) Valid() bool {
	if d.Month < time.January || d.Month > time.December {
		return false
	}
	days, err := DaysInMonth(d.Year, d.Month)
	if err != nil {
		return false
	}
	return d.Day >= 1 && d.Day <= days
}

// Compare orders two dates chronologically, returning -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

// Before reports whether d falls before other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d falls after other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// Equal reports whether both dates name the same day.
func (d Date) Equal(other Date) bool { return d.Compare(other) == 0 }

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// AddWeeks returns the date shifted by n seven-day weeks.
func (d Date) AddWeeks(n int) Date {
	return d.AddDays(n * 7)
}

// AddMonths steps the year and month components by n months, keeping the day
// component untouched. The result may name a nonexistent day (for example
// January 31 stepped into February); callers that need a real calendar day
// must clamp against DaysInMonth.
func (d Date) AddMonths(n int) Date {
	year, month := stepMonth(d.Year, d.Month, n)
	return Date{Year: year, Month: month, Day: d.Day}
}

// AddYears steps the year component by n, keeping month and day untouched.
// February 29 stepped into a non-leap year names a nonexistent day, as with
// AddMonths.
func (d Date) AddYears(n int) Date {
	return Date{Year: d.Year + n, Month: d.Month, Day: d.Day}
}

// IsLeapYear reports whether the year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) (int, error) {
	switch month {
	case time.January, time.March, time.May, time.July, time.August, time.October, time.December:
		return 31, nil
	case time.April, time.June, time.September, time.November:
		return 30, nil
	case time.February:
		if IsLeapYear(year) {
			return 29, nil
		}
		return 28, nil
	default:
		return 0, fmt.Errorf("%w: month %d", ErrInvalidCalendarUnit, int(month))
	}
}

// LastDayOfMonth returns the final calendar day of the given month.
func LastDayOfMonth(year int, month time.Month) (Date, error) {
	days, err := DaysInMonth(year, month)
	if err != nil {
		return Date{}, err
	}
	return Date{Year: year, Month: month, Day: days}, nil
}

// stepMonth advances a year/month pair by n months, carrying into the year.
func stepMonth(year int, month time.Month, n int) (int, time.Month) {
	total := year*12 + int(month) - 1 + n
	y := total / 12
	m := total%12 + 1
	if m <= 0 {
		m += 12
		y--
	}
	return y, time.Month(m)
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
