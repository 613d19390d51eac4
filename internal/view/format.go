package view

import (
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/goodsign/monday"
	"golang.org/x/text/cases"

	"calgrid/internal/model"
	"calgrid/internal/zoned"
)

const rangeSep = " – "

// Formatter renders the labels the grid shows. The locale only affects
// names; interval arithmetic never depends on it.
type Formatter struct {
	loc   *time.Location
	names monday.Locale
	upper cases.Caser
}

func NewFormatter(n *zoned.Normalizer) Formatter {
	return Formatter{
		loc:   n.Location(),
		names: n.NamesLocale(),
		upper: cases.Upper(n.Tag()),
	}
}

func (f Formatter) format(t time.Time, layout string) string {
	return monday.Format(t.In(f.loc), layout, f.names)
}

// WeekdayLetter is the narrow weekday label used in month column headers,
// e.g. "M" for Monday.
func (f Formatter) WeekdayLetter(t time.Time) string {
	name := f.format(t, "Monday")
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return ""
	}
	return f.upper.String(name[:size])
}

// DayNumber is the day-of-month shown in each month cell.
func (f Formatter) DayNumber(t time.Time) string {
	return strconv.Itoa(t.In(f.loc).Day())
}

// MonthTitle labels the toolbar of a month grid.
func (f Formatter) MonthTitle(t time.Time) string {
	return f.format(t, "January 2006")
}

// DayRangeHeader titles a week grid, dropping the repeated month and year:
//
//	January 5 – 11, 2026
//	January 26 – February 1, 2026
//	December 29, 2025 – January 4, 2026
func (f Formatter) DayRangeHeader(start, end time.Time) string {
	start, end = start.In(f.loc), end.In(f.loc)
	sameYear := start.Year() == end.Year()
	sameMonth := sameYear && start.Month() == end.Month()
	switch {
	case sameMonth:
		return f.format(start, "January 2") + rangeSep + f.format(end, "2, 2006")
	case sameYear:
		return f.format(start, "January 2") + rangeSep + f.format(end, "January 2, 2006")
	default:
		return f.format(start, "January 2, 2006") + rangeSep + f.format(end, "January 2, 2006")
	}
}

// WeekHeader is the two-line header of a week grid column.
type WeekHeader struct {
	Letter string `json:"letter"`
	Number string `json:"number"`
}

func (f Formatter) WeekHeader(t time.Time) WeekHeader {
	return WeekHeader{Letter: f.WeekdayLetter(t), Number: f.DayNumber(t)}
}

// EventTime is the 24-hour "HH:MM - HH:MM" label of a timed instance. All-day
// instances have no time label.
func (f Formatter) EventTime(inst model.RenderInstance) string {
	if inst.AllDay {
		return ""
	}
	return inst.Start.In(f.loc).Format("15:04") + " - " + inst.End.In(f.loc).Format("15:04")
}
