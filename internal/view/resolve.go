// Package view maps logical calendar views onto the grid's native layouts and
// computes per-cell adornments and display formats.
package view

import (
	"strings"
	"time"

	"calgrid/internal/model"
	"calgrid/internal/zoned"
)

// Logical views a host may request. Quarter and day have no grid layout of
// their own.
const (
	Quarter  = "quarter"
	Month    = "month"
	Week     = "week"
	WorkWeek = "work_week"
	Day      = "day"
	Agenda   = "agenda"
)

const (
	agendaLength    = 7
	dayAgendaLength = 1
)

// Resolution is the grid layout chosen for a requested view. Length is the
// number of listed days for agenda grids and zero otherwise.
type Resolution struct {
	Requested string         `json:"requested"`
	Grid      model.GridView `json:"grid"`
	Length    int            `json:"length,omitempty"`
}

// Resolve maps requested onto a native grid view. Unknown requests use
// fallback, which itself defaults to the month grid.
func Resolve(requested string, fallback model.GridView) Resolution {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case Quarter:
		return Resolution{Requested: Quarter, Grid: model.GridMonth}
	case Day:
		return Resolution{Requested: Day, Grid: model.GridAgenda, Length: dayAgendaLength}
	case Agenda:
		return Resolution{Requested: Agenda, Grid: model.GridAgenda, Length: agendaLength}
	case Month:
		return Resolution{Requested: Month, Grid: model.GridMonth}
	case Week:
		return Resolution{Requested: Week, Grid: model.GridWeek}
	case WorkWeek, "workweek", "work-week":
		return Resolution{Requested: WorkWeek, Grid: model.GridWorkWeek}
	}

	switch fallback {
	case model.GridWeek, model.GridWorkWeek:
		return Resolution{Requested: string(fallback), Grid: fallback}
	case model.GridAgenda:
		return Resolution{Requested: Agenda, Grid: model.GridAgenda, Length: agendaLength}
	default:
		return Resolution{Requested: Month, Grid: model.GridMonth}
	}
}

// Range lists the civil days the grid lays out around focus. Month grids
// always cover whole weeks, so they spill into adjacent months.
func Range(focus time.Time, res Resolution, firstDay int) []time.Time {
	var start time.Time
	var n int
	switch res.Grid {
	case model.GridMonth:
		start = zoned.StartOfWeek(zoned.StartOfMonth(focus), firstDay)
		end := zoned.StartOfWeek(zoned.EndOfMonth(focus), firstDay).AddDate(0, 0, 6)
		for d := start; !d.After(end); d = zoned.NextDay(d) {
			n++
		}
	case model.GridWeek:
		start, n = zoned.StartOfWeek(focus, firstDay), 7
	case model.GridWorkWeek:
		start, n = zoned.StartOfWeek(focus, int(time.Monday)), 5
	case model.GridAgenda:
		start, n = zoned.StartOfDay(focus), res.Length
		if n <= 0 {
			n = agendaLength
		}
	default:
		start, n = zoned.StartOfDay(focus), 1
	}

	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, start)
		start = zoned.NextDay(start)
	}
	return days
}
