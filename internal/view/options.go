package view

import "calgrid/internal/model"

// ViewSetStandard limits the toolbar to week and month.
const ViewSetStandard = "standard"

// Views lists the grid views offered in the toolbar.
func Views(set string, datePicker bool) []model.GridView {
	if datePicker {
		return []model.GridView{model.GridMonth}
	}
	if set == ViewSetStandard {
		return []model.GridView{model.GridWeek, model.GridMonth}
	}
	return []model.GridView{model.GridMonth, model.GridWeek, model.GridWorkWeek, model.GridDay, model.GridAgenda}
}

// Messages are the toolbar navigation labels.
type Messages struct {
	Previous string `json:"previous"`
	Next     string `json:"next"`
}

func DefaultMessages() Messages {
	return Messages{Previous: "‹", Next: "›"}
}

// GridOptions are the fixed layout options passed to the grid.
type GridOptions struct {
	StepMinutes        int    `json:"step"`
	Timeslots          int    `json:"timeslots"`
	ShowAllEvents      bool   `json:"show_all_events"`
	DayLayoutAlgorithm string `json:"day_layout_algorithm"`
	FirstDayOfWeek     int    `json:"first_day_of_week"`
	MaxVisibleMarkers  int    `json:"max_visible_markers"`
}

func DefaultGridOptions(firstDay int) GridOptions {
	return GridOptions{
		StepMinutes:        60,
		Timeslots:          1,
		ShowAllEvents:      true,
		DayLayoutAlgorithm: "no-overlap",
		FirstDayOfWeek:     firstDay,
		MaxVisibleMarkers:  3,
	}
}

// Style is the inline style of an event block.
type Style struct {
	BackgroundColor string `json:"background_color"`
	Color           string `json:"color,omitempty"`
}

// EventStyle keeps marker instances transparent so only their icons show.
func EventStyle(inst model.RenderInstance) Style {
	bg := inst.Color
	if inst.DisplayMode == model.Icons {
		bg = "transparent"
	}
	return Style{BackgroundColor: bg, Color: inst.FontColor}
}
