// Package expand projects zoned events onto per-day render instances for the
// active display window and grid view.
package expand

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
	"calgrid/internal/window"
	"calgrid/internal/zoned"
)

const (
	defaultMaxOccurrencesPerEvent = 5000

	// UntitledHeader is shown for records without a header.
	UntitledHeader = "Untitled Event"
)

// Config controls a single expansion pass.
type Config struct {
	// Window bounds every emitted instance.
	Window model.DisplayWindow

	// Grid is the resolved grid view; only month-like grids split multi-day
	// marker events into days.
	Grid model.GridView

	// Icons, if non-empty, lists the event types that have a marker icon.
	// Icons events of other types render as EventInfo.
	Icons map[string]bool

	// MaxOccurrencesPerEvent caps recurrence expansion. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// Result wraps the emitted instances plus bookkeeping for observability.
type Result struct {
	Instances []model.RenderInstance
	// Truncated records source refs that hit MaxOccurrencesPerEvent.
	Truncated []string
	// Dropped counts ranges that inverted after clipping.
	Dropped int
	// Fallbacks counts Icons events rendered as EventInfo.
	Fallbacks int
}

// Expand turns events into render instances:
//
//   - events that do not overlap the window are discarded
//   - recurring events are expanded into occurrences first
//   - multi-day Icons events on a month-like grid become one instance per
//     covered day, from 00:00 to 23:59:59.999
//   - everything else becomes one instance clipped to the window
//
// Input order is preserved; chunked runs ascend by day.
func Expand(events []model.ZonedEvent, cfg Config) Result {
	var res Result
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}
	if cfg.Window.Empty {
		return res
	}

	for _, ev := range events {
		mode, fellBack := effectiveMode(ev.Raw, cfg.Icons)
		if fellBack {
			res.Fallbacks++
		}

		spans, hitCap := occurrences(ev, cfg)
		if hitCap {
			ref := ev.Raw.SourceRef
			if ref == "" {
				ref = ev.Raw.Header
			}
			res.Truncated = append(res.Truncated, ref)
			appLog.Error("expand: truncated occurrences due to cap",
				errors.New("max occurrences reached"),
				"source_ref", ref,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}

		for _, sp := range spans {
			if !window.Overlaps(sp.start, sp.end, cfg.Window) {
				continue
			}
			multiDay := zoned.DayKey(sp.start) != zoned.DayKey(sp.end)
			if multiDay && mode == model.Icons && cfg.Grid.IsMonthLike() {
				chunks := chunkDays(ev.Raw, sp, cfg.Window)
				if len(chunks) == 0 {
					res.Dropped++
					continue
				}
				res.Instances = append(res.Instances, chunks...)
				continue
			}

			start, end := window.Clip(sp.start, sp.end, cfg.Window)
			if end.Before(start) {
				res.Dropped++
				appLog.Debug("expand: dropping inverted range",
					"header", ev.Raw.Header,
					"start", start.Format(time.RFC3339),
					"end", end.Format(time.RFC3339),
				)
				continue
			}
			res.Instances = append(res.Instances, makeInstance(ev.Raw, mode, start, end))
		}
	}

	return res
}

type span struct {
	start, end time.Time
}

// chunkDays emits one instance per civil day covered by sp inside w.
func chunkDays(raw model.RawEvent, sp span, w model.DisplayWindow) []model.RenderInstance {
	first := sp.start
	if first.Before(w.Start) {
		first = w.Start
	}
	last := sp.end
	if last.After(w.End) {
		last = w.End
	}

	var out []model.RenderInstance
	for day := zoned.StartOfDay(first); !day.After(zoned.StartOfDay(last)); day = zoned.NextDay(day) {
		out = append(out, makeInstance(raw, model.Icons, zoned.StartOfDay(day), zoned.EndOfDay(day)))
	}
	return out
}

// occurrences returns the concrete time spans of ev. Non-recurring events
// yield their own range; recurring ones are expanded inside the window.
func occurrences(ev model.ZonedEvent, cfg Config) ([]span, bool) {
	if ev.Raw.RRule == "" {
		return []span{{start: ev.Start, end: ev.End}}, false
	}

	r, err := rrule.StrToRRule(ev.Raw.RRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE; using the first occurrence only", err,
			"source_ref", ev.Raw.SourceRef,
			"rrule", ev.Raw.RRule,
		)
		return []span{{start: ev.Start, end: ev.End}}, false
	}
	// Wall-clock rules recur in the event's own zone so they stay put across
	// DST; occurrences are converted to the display zone afterwards.
	src := ev.SourceLoc
	if src == nil {
		src = ev.Start.Location()
	}
	display := ev.Start.Location()
	r.DTStart(ev.Start.In(src))

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(src))
	}

	// Widen the lower bound by the event duration so occurrences starting
	// before the window but running into it are kept.
	dur := ev.End.Sub(ev.Start)
	if dur < 0 {
		dur = 0
	}
	rangeStart := cfg.Window.Start.Add(-dur)
	rangeEnd := cfg.Window.End

	var out []span
	hitCap := false
	next := set.Iterator()
	for {
		s, ok := next()
		if !ok || s.After(rangeEnd) {
			break
		}
		if s.Before(rangeStart) {
			continue
		}
		if len(out) == cfg.MaxOccurrencesPerEvent {
			hitCap = true
			break
		}
		s = s.In(display)
		out = append(out, span{start: s, end: s.Add(dur)})
	}
	return out, hitCap
}

func makeInstance(raw model.RawEvent, mode model.DisplayMode, start, end time.Time) model.RenderInstance {
	header := raw.Header
	if header == "" {
		header = UntitledHeader
	}
	return model.RenderInstance{
		Start:       start,
		End:         end,
		AllDay:      raw.AllDay,
		DisplayMode: mode,
		Header:      header,
		Description: raw.Description,
		Location:    raw.Location,
		Color:       raw.Color,
		FontColor:   raw.FontColor,
		EventType:   raw.EventType,
		SourceRef:   raw.SourceRef,
	}
}
