package view

import (
	"time"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
	"calgrid/internal/window"
	"calgrid/internal/zoned"
)

// Cell class names.
const (
	ClassToday      = "cell-today"
	ClassPast       = "cell-past"
	ClassSelected   = "cell-selected"
	ClassFlagged    = "cell-flagged"
	ClassSuppressed = "cell-suppressed"
)

// Cell holds the adornments of one date cell.
type Cell struct {
	Date     string `json:"date"`
	Today    bool   `json:"today"`
	Past     bool   `json:"past"`
	Selected bool   `json:"selected"`
	Flag     string `json:"flag,omitempty"`

	// OutOfWindow cells stay in the grid for alignment but are emptied and
	// taken out of the tab and selection order.
	OutOfWindow bool     `json:"out_of_window"`
	Interactive bool     `json:"interactive"`
	TabIndex    int      `json:"tab_index"`
	Classes     []string `json:"classes"`
}

// Cells evaluates adornments against one normalizer generation. All
// comparisons are civil-day comparisons in that zone.
type Cells struct {
	today    time.Time
	window   model.DisplayWindow
	selected map[string]bool
	flags    map[string]string
}

// NewCells resolves the selected and flagged days in n's zone. Dates that
// cannot be parsed are skipped rather than replaced with today.
func NewCells(n *zoned.Normalizer, w model.DisplayWindow, selected []model.Instant, flags []model.Flag) Cells {
	c := Cells{
		today:    zoned.StartOfDay(n.Now()),
		window:   w,
		selected: make(map[string]bool, len(selected)),
		flags:    make(map[string]string, len(flags)),
	}
	for _, s := range selected {
		t, ok := n.Normalize(s)
		if !ok {
			continue
		}
		c.selected[zoned.DayKey(t)] = true
	}
	for _, f := range flags {
		t, ok := n.Normalize(f.Date)
		if !ok {
			appLog.Warn("skipping flag with invalid date", "label", f.Label)
			continue
		}
		// First flag for a day wins.
		key := zoned.DayKey(t)
		if _, dup := c.flags[key]; !dup {
			c.flags[key] = f.Label
		}
	}
	return c
}

// Today returns the start of the current civil day.
func (c Cells) Today() time.Time { return c.today }

// Cell computes the adornments for day.
func (c Cells) Cell(day time.Time) Cell {
	day = zoned.StartOfDay(day.In(c.today.Location()))
	key := zoned.DayKey(day)

	cell := Cell{
		Date:        key,
		Today:       key == zoned.DayKey(c.today),
		Past:        day.Before(c.today),
		Selected:    c.selected[key],
		Flag:        c.flags[key],
		OutOfWindow: !window.Contains(day, c.window),
	}
	cell.Interactive = !cell.OutOfWindow
	if !cell.Interactive {
		cell.TabIndex = -1
	}

	cell.Classes = []string{}
	if cell.OutOfWindow {
		// Suppressed cells carry no other state.
		cell.Classes = append(cell.Classes, ClassSuppressed)
		cell.Selected = false
		cell.Flag = ""
		return cell
	}
	if cell.Today {
		cell.Classes = append(cell.Classes, ClassToday)
	}
	if cell.Past {
		cell.Classes = append(cell.Classes, ClassPast)
	}
	if cell.Selected {
		cell.Classes = append(cell.Classes, ClassSelected)
	}
	if cell.Flag != "" {
		cell.Classes = append(cell.Classes, ClassFlagged)
	}
	return cell
}

// IsToday / IsPast / IsSelected are convenience predicates over Cell.
func (c Cells) IsToday(t time.Time) bool    { return c.Cell(t).Today }
func (c Cells) IsPast(t time.Time) bool     { return c.Cell(t).Past }
func (c Cells) IsSelected(t time.Time) bool { return c.Cell(t).Selected }
