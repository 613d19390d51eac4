// Package window computes the active display window and filters event time
// ranges against it.
package window

import (
	"time"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
	"calgrid/internal/zoned"
)

// Config carries the optional explicit window bounds (e.g. a fiscal quarter).
type Config struct {
	Start model.Instant
	End   model.Instant
}

// Compute resolves cfg into a DisplayWindow in n's zone.
//
//   - No bounds: the calendar month containing now.
//   - One bound: the other is taken from the month of the bound present.
//   - Inverted or zero-length bounds: an empty window.
func Compute(cfg Config, n *zoned.Normalizer) model.DisplayWindow {
	if cfg.Start.IsZero() && cfg.End.IsZero() {
		now := n.Now()
		return model.DisplayWindow{
			Start: zoned.StartOfMonth(now),
			End:   zoned.EndOfMonth(now),
		}
	}

	var start, end time.Time
	switch {
	case cfg.End.IsZero():
		start, _ = n.Normalize(cfg.Start)
		end = zoned.EndOfMonth(start)
	case cfg.Start.IsZero():
		end, _ = n.Normalize(cfg.End)
		start = zoned.StartOfMonth(end)
	default:
		start, _ = n.Normalize(cfg.Start)
		end, _ = n.Normalize(cfg.End)
		if !end.After(start) {
			appLog.Warn("window bounds inverted or empty; nothing will be displayed",
				"start", start.Format(time.RFC3339),
				"end", end.Format(time.RFC3339),
			)
			return model.DisplayWindow{Start: start, End: end, Empty: true}
		}
	}

	return model.DisplayWindow{
		Start: zoned.StartOfDay(start),
		End:   zoned.EndOfDay(end),
	}
}

// Overlaps is the closed-interval overlap test between [start, end] and w.
func Overlaps(start, end time.Time, w model.DisplayWindow) bool {
	if w.Empty {
		return false
	}
	if start.After(w.End) {
		return false
	}
	if end.Before(w.Start) {
		return false
	}
	return true
}

// Clip bounds [start, end] to w. The result may be inverted when the input
// was; callers drop such ranges.
func Clip(start, end time.Time, w model.DisplayWindow) (time.Time, time.Time) {
	if start.Before(w.Start) {
		start = w.Start
	}
	if end.After(w.End) {
		end = w.End
	}
	return start, end
}

// Contains reports whether the civil day of day lies inside w.
func Contains(day time.Time, w model.DisplayWindow) bool {
	if w.Empty {
		return false
	}
	day = day.In(w.Start.Location())
	return !zoned.EndOfDay(day).Before(w.Start) && !zoned.StartOfDay(day).After(w.End)
}
