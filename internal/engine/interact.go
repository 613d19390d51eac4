package engine

import (
	"time"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
	"calgrid/internal/view"
	"calgrid/internal/window"
	"calgrid/internal/zoned"
)

// civilDay converts t to 00:00 of its civil day in the active zone and
// reports whether that day is inside the current window. Must hold mu.
func (e *Engine) civilDay(t time.Time) (time.Time, bool) {
	day := zoned.StartOfDay(e.norm.In(t))
	w := window.Compute(e.opts.Window, e.norm)
	return day, window.Contains(day, w)
}

// OnDaySelected forwards a click on a date cell. Cells outside the window
// are not interactive, so such clicks are ignored and false is returned.
func (e *Engine) OnDaySelected(t time.Time) bool {
	e.mu.Lock()
	day, ok := e.civilDay(t)
	e.mu.Unlock()

	if !ok {
		appLog.Debug("ignoring selection outside window", "date", zoned.DayKey(day))
		return false
	}
	e.host.DaySelected(day)
	return true
}

// OnEventSelected forwards a click on an instance as the civil day it
// starts on.
func (e *Engine) OnEventSelected(inst model.RenderInstance) {
	e.mu.Lock()
	day := zoned.StartOfDay(e.norm.In(inst.Start))
	e.mu.Unlock()

	e.host.EventSelected(day)
}

// OnShowMore expands a crowded day. It always returns the logical view to
// the month grid focused on that day, whatever the default view is.
func (e *Engine) OnShowMore(t time.Time) {
	e.mu.Lock()
	day := zoned.StartOfDay(e.norm.In(t))
	e.requested = view.Month
	e.focus = zoned.DayKey(day)
	e.invalidate()
	e.mu.Unlock()

	e.host.ShowMore(day)
}
