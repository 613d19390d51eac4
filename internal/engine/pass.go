package engine

import (
	"time"

	"calgrid/internal/aggregate"
	"calgrid/internal/expand"
	"calgrid/internal/model"
	"calgrid/internal/view"
	"calgrid/internal/window"
	"calgrid/internal/zoned"
)

// Item is a render instance plus the presentation hints the grid needs.
type Item struct {
	model.RenderInstance
	Style     view.Style `json:"style"`
	TimeLabel string     `json:"time_label,omitempty"`
	// Overflow is the number of markers beyond GridOptions.MaxVisibleMarkers.
	Overflow int `json:"overflow,omitempty"`
}

// Pass is the complete output of one pipeline run.
type Pass struct {
	Generation uint64 `json:"generation"`
	Zone       string `json:"zone"`
	Locale     string `json:"locale"`

	Window model.DisplayWindow `json:"window"`
	View   view.Resolution     `json:"view"`
	Views  []model.GridView    `json:"views"`
	Focus  time.Time           `json:"focus"`
	Title  string              `json:"title"`

	Instances []model.RenderInstance `json:"-"`
	Items     []Item                 `json:"items"`

	Cells       []view.Cell       `json:"cells"`
	Weekdays    []string          `json:"weekdays"`
	WeekHeaders []view.WeekHeader `json:"week_headers,omitempty"`

	Options  view.GridOptions `json:"options"`
	Messages view.Messages    `json:"messages"`

	Truncated   []string `json:"truncated,omitempty"`
	Substituted int      `json:"substituted"`
	Fallbacks   int      `json:"fallbacks"`
}

// compute runs normalize → window → expand → aggregate → view. Must hold mu.
func (e *Engine) compute() Pass {
	n := e.norm
	w := window.Compute(e.opts.Window, n)
	res := e.resolution()

	zevs := e.zonedEvents(n)
	x := expand.Expand(zevs, expand.Config{
		Window: w,
		Grid:   res.Grid,
		Icons:  e.icons,
	})
	insts := aggregate.Aggregate(x.Instances, res.Grid)

	opts := view.DefaultGridOptions(e.opts.FirstDayOfWeek)
	f := view.NewFormatter(n)
	cells := view.NewCells(n, w, e.opts.Selected, e.opts.Flags)
	focus := e.focusDate(n, w)
	days := view.Range(focus, res, e.opts.FirstDayOfWeek)

	p := Pass{
		Generation:  e.gen,
		Zone:        n.Zone(),
		Locale:      n.Locale(),
		Window:      w,
		View:        res,
		Views:       view.Views(e.opts.ViewSet, e.opts.DatePicker),
		Focus:       focus,
		Instances:   insts,
		Items:       make([]Item, 0, len(insts)),
		Cells:       make([]view.Cell, 0, len(days)),
		Options:     opts,
		Messages:    view.DefaultMessages(),
		Truncated:   x.Truncated,
		Substituted: substituted(zevs),
		Fallbacks:   x.Fallbacks,
	}

	for _, inst := range insts {
		p.Items = append(p.Items, Item{
			RenderInstance: inst,
			Style:          view.EventStyle(inst),
			TimeLabel:      f.EventTime(inst),
			Overflow:       aggregate.Overflow(inst, opts.MaxVisibleMarkers),
		})
	}
	for _, d := range days {
		p.Cells = append(p.Cells, cells.Cell(d))
	}
	for i := 0; i < len(days) && i < 7; i++ {
		p.Weekdays = append(p.Weekdays, f.WeekdayLetter(days[i]))
	}

	switch res.Grid {
	case model.GridMonth:
		p.Title = f.MonthTitle(focus)
	case model.GridWeek, model.GridWorkWeek:
		for _, d := range days {
			p.WeekHeaders = append(p.WeekHeaders, f.WeekHeader(d))
		}
		p.Title = f.DayRangeHeader(days[0], days[len(days)-1])
	default:
		p.Title = f.DayRangeHeader(days[0], days[len(days)-1])
	}
	return p
}

func (e *Engine) resolution() view.Resolution {
	res := view.Resolve(e.requested, e.opts.DefaultView)
	if e.opts.DatePicker && res.Grid != model.GridMonth {
		res = view.Resolution{Requested: res.Requested, Grid: model.GridMonth}
	}
	return res
}

// focusDate picks the displayed date: explicit navigation first, then the
// configured focus, then today, clamped to the window start when today is
// outside the window.
func (e *Engine) focusDate(n *zoned.Normalizer, w model.DisplayWindow) time.Time {
	if d, ok := zoned.DayIn(e.focus, n.Location()); ok {
		return d
	}
	if !e.opts.Focus.IsZero() {
		if t, ok := n.Normalize(e.opts.Focus); ok {
			return zoned.StartOfDay(t)
		}
	}
	today := zoned.StartOfDay(n.Now())
	if !w.Empty && !window.Contains(today, w) {
		return zoned.StartOfDay(w.Start)
	}
	return today
}

func substituted(evs []model.ZonedEvent) int {
	var c int
	for _, ev := range evs {
		if ev.StartSubstituted || ev.EndSubstituted {
			c++
		}
	}
	return c
}
