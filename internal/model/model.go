package model

import (
	"time"
)

// DisplayMode selects how an event is drawn on the grid.
type DisplayMode string

const (
	// Icons renders the event as a compact per-day marker.
	Icons DisplayMode = "icons"
	// EventInfo renders the event as a header/description block.
	EventInfo DisplayMode = "eventInfo"
)

// ParseDisplayMode maps host strings onto a DisplayMode. Anything that is
// not recognisably "icons" falls back to EventInfo.
func ParseDisplayMode(s string) (DisplayMode, bool) {
	switch s {
	case "icons", "Icons", "icon":
		return Icons, true
	case "eventInfo", "EventInfo", "event_info", "info":
		return EventInfo, true
	default:
		return EventInfo, false
	}
}

// RawEvent is a domain record as handed over by the host. Start and End may
// be epoch milliseconds, zoned or naive date values, or text.
type RawEvent struct {
	Header      string      `yaml:"header" json:"header"`
	Description string      `yaml:"description" json:"description"`
	Location    string      `yaml:"location" json:"location"`
	Start       Instant     `yaml:"start" json:"start"`
	End         Instant     `yaml:"end" json:"end"`
	AllDay      bool        `yaml:"all_day" json:"all_day"`
	DisplayMode DisplayMode `yaml:"display_mode" json:"display_mode"`
	Color       string      `yaml:"color" json:"color"`
	FontColor   string      `yaml:"font_color" json:"font_color"`
	EventType   string      `yaml:"event_type" json:"event_type"`
	SourceRef   string      `yaml:"source_ref" json:"source_ref"`

	// RRule is an optional RFC 5545 recurrence rule (without the "RRULE:"
	// prefix); ExDates removes individual occurrences.
	RRule   string    `yaml:"rrule,omitempty" json:"rrule,omitempty"`
	ExDates []Instant `yaml:"exdates,omitempty" json:"exdates,omitempty"`
}

// ZonedEvent is a RawEvent whose times have been resolved in the active zone.
type ZonedEvent struct {
	Raw   RawEvent
	Start time.Time
	End   time.Time

	// ExDates resolved in the same zone as Start.
	ExDates []time.Time

	// SourceLoc is the location recurrence rules are evaluated in: the
	// event's own zone when the raw start carried one, else the active zone.
	SourceLoc *time.Location

	// StartSubstituted / EndSubstituted report that the raw value could not
	// be parsed and "now" was used instead.
	StartSubstituted bool
	EndSubstituted   bool
}

// Marker is one entry of an aggregated Icons instance.
type Marker struct {
	EventType string `json:"event_type"`
	Color     string `json:"color"`
}

// RenderInstance is the unit the calendar grid consumes. Markers is non-nil
// only on aggregated composites.
type RenderInstance struct {
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	AllDay      bool        `json:"all_day"`
	DisplayMode DisplayMode `json:"display_mode"`
	Header      string      `json:"header"`
	Description string      `json:"description"`
	Location    string      `json:"location,omitempty"`
	Color       string      `json:"color"`
	FontColor   string      `json:"font_color,omitempty"`
	EventType   string      `json:"event_type"`
	SourceRef   string      `json:"source_ref,omitempty"`
	Markers     []Marker    `json:"markers,omitempty"`
}

// IsComposite reports whether the instance was produced by day aggregation.
func (ri RenderInstance) IsComposite() bool {
	return ri.Markers != nil
}

// DisplayWindow is the inclusive range eligible for display. Start sits at
// start-of-day and End at end-of-day in the active zone.
type DisplayWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// Empty is set for inverted or zero-length explicit bounds; nothing
	// overlaps an empty window.
	Empty bool `json:"empty"`
}

// Flag marks a day with a label (holiday, deadline, ...).
type Flag struct {
	Date  Instant `yaml:"date" json:"date"`
	Label string  `yaml:"label" json:"label"`
}
