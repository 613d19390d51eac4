// Package aggregate collapses same-day marker instances into composites.
package aggregate

import (
	"calgrid/internal/model"
	"calgrid/internal/zoned"
)

// Aggregate groups Icons instances by civil day on month-like grids.
//
// EventInfo instances pass through unchanged, in order, and come first.
// Each day's Icons instances become one composite: Start/End, Header,
// Color and EventType come from the first member, Description is
// empty, and Markers lists every member in arrival order. Duplicate markers
// are kept. Composites already in the input keep their markers and take
// in any other markers of the same day, so there is at most one composite
// per civil day and Aggregate(Aggregate(x)) == Aggregate(x). Days appear in
// first-seen order.
func Aggregate(instances []model.RenderInstance, grid model.GridView) []model.RenderInstance {
	if !grid.IsMonthLike() {
		return instances
	}

	out := make([]model.RenderInstance, 0, len(instances))
	var groups []*model.RenderInstance
	byDay := make(map[string]*model.RenderInstance)

	for _, inst := range instances {
		if inst.DisplayMode != model.Icons {
			out = append(out, inst)
			continue
		}
		key := zoned.DayKey(inst.Start)
		if inst.IsComposite() {
			// Existing composites are not regrouped, but they absorb
			// later markers of their day.
			if c, ok := byDay[key]; ok {
				c.Markers = append(c.Markers, inst.Markers...)
				continue
			}
			c := inst
			c.Markers = make([]model.Marker, len(inst.Markers))
			copy(c.Markers, inst.Markers)
			byDay[key] = &c
			groups = append(groups, &c)
			continue
		}

		if c, ok := byDay[key]; ok {
			c.Markers = append(c.Markers, markerOf(inst))
			continue
		}
		c := inst
		c.Description = ""
		c.Markers = []model.Marker{markerOf(inst)}
		byDay[key] = &c
		groups = append(groups, &c)
	}

	for _, c := range groups {
		out = append(out, *c)
	}
	return out
}

func markerOf(inst model.RenderInstance) model.Marker {
	return model.Marker{EventType: inst.EventType, Color: inst.Color}
}

// Overflow reports how many markers of inst are hidden when only visible
// markers fit in a cell.
func Overflow(inst model.RenderInstance, visible int) int {
	if visible < 0 {
		visible = 0
	}
	if n := len(inst.Markers) - visible; n > 0 {
		return n
	}
	return 0
}
