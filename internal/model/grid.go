package model

// GridView is a layout the calendar grid renders natively.
type GridView string

const (
	GridMonth    GridView = "month"
	GridWeek     GridView = "week"
	GridWorkWeek GridView = "work_week"
	GridDay      GridView = "day"
	GridAgenda   GridView = "agenda"
)

// IsMonthLike reports whether the grid draws one cell per civil day, which
// is the only layout where multi-day markers are split and aggregated.
func (g GridView) IsMonthLike() bool {
	return g == GridMonth
}
