package shared

import (
	"regexp"
	"strconv"
	"time"
)

var (
	monthPattern = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[0-2])$`)
	dateLayout   = "2006-01-02"
)

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayWindow covers the calendar day containing t.
func DayWindow(t time.Time) Window {
	start := StartOfDay(t)
	return Window{From: start, To: start.AddDate(0, 0, 1)}
}

// TrailingDays covers the n calendar days ending with the day containing t.
func TrailingDays(t time.Time, n int) Window {
	if n < 1 {
		n = 1
	}
	day := DayWindow(t)
	return Window{From: day.From.AddDate(0, 0, -(n - 1)), To: day.To}
}

// MonthWindow covers the calendar month containing t.
func MonthWindow(t time.Time) Window {
	y, m, _ := t.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	return Window{From: start, To: start.AddDate(0, 1, 0)}
}

// MonthLabel formats the month containing t as YYYY-MM.
func MonthLabel(t time.Time) string {
	return t.Format("2006-01")
}

// ParseMonth parses YYYY-MM into the calendar month window in loc.
func ParseMonth(value string, loc *time.Location) (Window, error) {
	match := monthPattern.FindStringSubmatch(value)
	if match == nil {
		return Window{}, ErrInvalidMonth
	}
	year, _ := strconv.Atoi(match[1])
	month, _ := strconv.Atoi(match[2])
	if loc == nil {
		loc = time.UTC
	}
	return MonthWindow(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)), nil
}

// ParseDate parses YYYY-MM-DD at midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateLayout)
}
