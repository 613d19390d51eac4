package zoned

import "time"

const dayKeyLayout = "2006-01-02"

// StartOfDay floors t to 00:00 of its civil day, in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's civil day, in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DayKey is a stable per-civil-day grouping key.
func DayKey(t time.Time) string {
	return t.Format(dayKeyLayout)
}

// DayIn rebuilds 00:00 of the civil day named by a DayKey in loc.
func DayIn(key string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(dayKeyLayout, key, loc)
	return t, err == nil
}

// SameDay compares civil days, reading b in a's location.
func SameDay(a, b time.Time) bool {
	return DayKey(a) == DayKey(b.In(a.Location()))
}

// NextDay advances to 00:00 of the following civil day. AddDate keeps this
// correct across DST transitions.
func NextDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// StartOfWeek floors t to the first day of its week. firstDay uses
// time.Weekday numbering (0=Sunday .. 6=Saturday); out of range values are
// reduced modulo 7.
func StartOfWeek(t time.Time, firstDay int) time.Time {
	firstDay = ((firstDay % 7) + 7) % 7
	diff := (int(t.Weekday()) - firstDay + 7) % 7
	return StartOfDay(t).AddDate(0, 0, -diff)
}

// StartOfMonth and EndOfMonth bound the calendar month containing t.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func EndOfMonth(t time.Time) time.Time {
	return EndOfDay(StartOfMonth(t).AddDate(0, 1, -1))
}
