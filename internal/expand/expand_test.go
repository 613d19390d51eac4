package expand

import (
	"testing"
	"time"
	_ "time/tzdata"

	"calgrid/internal/model"
)

func at(m time.Month, d, h int) time.Time {
	return time.Date(2024, m, d, h, 0, 0, 0, time.UTC)
}

var january = model.DisplayWindow{
	Start: at(time.January, 1, 0),
	End:   time.Date(2024, 1, 31, 23, 59, 59, 999e6, time.UTC),
}

func zonedEvent(raw model.RawEvent, start, end time.Time) model.ZonedEvent {
	return model.ZonedEvent{Raw: raw, Start: start, End: end}
}

func TestExpandDiscardsEventsOutsideWindow(t *testing.T) {
	ev := zonedEvent(model.RawEvent{Header: "later"}, at(time.February, 2, 10), at(time.February, 2, 11))
	res := Expand([]model.ZonedEvent{ev}, Config{Window: january, Grid: model.GridMonth})
	if len(res.Instances) != 0 {
		t.Fatalf("instances = %d, want 0", len(res.Instances))
	}
}

func TestExpandChunksMultiDayMarkers(t *testing.T) {
	raw := model.RawEvent{Header: "trip", DisplayMode: model.Icons, EventType: "travel", Color: "#ff0000"}
	ev := zonedEvent(raw, at(time.January, 1, 10), at(time.January, 3, 12))

	res := Expand([]model.ZonedEvent{ev}, Config{Window: january, Grid: model.GridMonth})
	if len(res.Instances) != 3 {
		t.Fatalf("instances = %d, want 3", len(res.Instances))
	}
	for i, inst := range res.Instances {
		wantDay := i + 1
		if inst.Start.Day() != wantDay || inst.Start.Hour() != 0 {
			t.Fatalf("instance %d starts %v", i, inst.Start)
		}
		if inst.End.Day() != wantDay || inst.End.Format("15:04:05.000") != "23:59:59.999" {
			t.Fatalf("instance %d ends %v", i, inst.End)
		}
		if inst.DisplayMode != model.Icons {
			t.Fatalf("instance %d mode = %s", i, inst.DisplayMode)
		}
	}
}

func TestExpandKeepsMultiDayMarkerWholeOnWeekGrid(t *testing.T) {
	raw := model.RawEvent{Header: "trip", DisplayMode: model.Icons, EventType: "travel"}
	ev := zonedEvent(raw, at(time.January, 1, 10), at(time.January, 3, 12))

	res := Expand([]model.ZonedEvent{ev}, Config{Window: january, Grid: model.GridWeek})
	if len(res.Instances) != 1 {
		t.Fatalf("instances = %d, want 1", len(res.Instances))
	}
}

func TestExpandClipsEventInfo(t *testing.T) {
	raw := model.RawEvent{Header: "holiday", DisplayMode: model.EventInfo}
	ev := zonedEvent(raw, time.Date(2023, 12, 30, 9, 0, 0, 0, time.UTC), at(time.January, 2, 17))

	res := Expand([]model.ZonedEvent{ev}, Config{Window: january, Grid: model.GridMonth})
	if len(res.Instances) != 1 {
		t.Fatalf("instances = %d, want 1", len(res.Instances))
	}
	inst := res.Instances[0]
	if !inst.Start.Equal(january.Start) {
		t.Fatalf("start = %v, want window start", inst.Start)
	}
	if !inst.End.Equal(at(time.January, 2, 17)) {
		t.Fatalf("end = %v", inst.End)
	}
}

func TestExpandKeepsEventInfoWholeOnEveryGrid(t *testing.T) {
	raw := model.RawEvent{Header: "conference", DisplayMode: model.EventInfo}
	ev := zonedEvent(raw, at(time.January, 8, 9), at(time.January, 10, 17))

	for _, grid := range []model.GridView{model.GridMonth, model.GridWeek, model.GridWorkWeek, model.GridDay, model.GridAgenda} {
		res := Expand([]model.ZonedEvent{ev}, Config{Window: january, Grid: grid})
		if len(res.Instances) != 1 {
			t.Fatalf("%s: instances = %d, want 1", grid, len(res.Instances))
		}
		inst := res.Instances[0]
		if !inst.Start.Equal(ev.Start) || !inst.End.Equal(ev.End) {
			t.Fatalf("%s: instance %v..%v, want %v..%v", grid, inst.Start, inst.End, ev.Start, ev.End)
		}
	}
}

func TestExpandDropsInvertedRange(t *testing.T) {
	ev := zonedEvent(model.RawEvent{Header: "backwards"}, at(time.January, 5, 10), at(time.January, 4, 10))
	res := Expand([]model.ZonedEvent{ev}, Config{Window: january, Grid: model.GridMonth})
	if len(res.Instances) != 0 || res.Dropped != 1 {
		t.Fatalf("instances = %d dropped = %d, want 0 and 1", len(res.Instances), res.Dropped)
	}
}

func TestExpandEmptyWindow(t *testing.T) {
	ev := zonedEvent(model.RawEvent{}, at(time.January, 5, 10), at(time.January, 5, 11))
	empty := model.DisplayWindow{Start: january.End, End: january.Start, Empty: true}
	if res := Expand([]model.ZonedEvent{ev}, Config{Window: empty}); len(res.Instances) != 0 {
		t.Fatalf("instances = %d, want 0", len(res.Instances))
	}
}

func TestExpandDefaultsHeader(t *testing.T) {
	ev := zonedEvent(model.RawEvent{}, at(time.January, 5, 10), at(time.January, 5, 11))
	res := Expand([]model.ZonedEvent{ev}, Config{Window: january, Grid: model.GridMonth})
	if len(res.Instances) != 1 || res.Instances[0].Header != UntitledHeader {
		t.Fatalf("instances = %+v", res.Instances)
	}
}

func TestExpandRecurrence(t *testing.T) {
	raw := model.RawEvent{Header: "standup", RRule: "FREQ=DAILY;COUNT=5", SourceRef: "team/standup"}
	ev := zonedEvent(raw, at(time.January, 1, 10), at(time.January, 1, 11))
	ev.ExDates = []time.Time{at(time.January, 3, 10)}

	res := Expand([]model.ZonedEvent{ev}, Config{Window: january, Grid: model.GridMonth})
	if len(res.Instances) != 4 {
		t.Fatalf("instances = %d, want 4", len(res.Instances))
	}
	for _, inst := range res.Instances {
		if inst.Start.Day() == 3 {
			t.Fatal("excluded occurrence was emitted")
		}
		if inst.End.Sub(inst.Start) != time.Hour {
			t.Fatalf("duration = %v", inst.End.Sub(inst.Start))
		}
	}
}

func TestExpandRecurrenceCap(t *testing.T) {
	raw := model.RawEvent{RRule: "FREQ=DAILY;COUNT=10", SourceRef: "cap/1"}
	ev := zonedEvent(raw, at(time.January, 1, 10), at(time.January, 1, 11))

	res := Expand([]model.ZonedEvent{ev}, Config{Window: january, Grid: model.GridMonth, MaxOccurrencesPerEvent: 2})
	if len(res.Instances) != 2 {
		t.Fatalf("instances = %d, want 2", len(res.Instances))
	}
	if len(res.Truncated) != 1 || res.Truncated[0] != "cap/1" {
		t.Fatalf("truncated = %v", res.Truncated)
	}
}

func TestExpandRecurrenceStopsAtCap(t *testing.T) {
	raw := model.RawEvent{RRule: "FREQ=SECONDLY", SourceRef: "cap/secondly"}
	ev := zonedEvent(raw, at(time.January, 1, 10), at(time.January, 1, 10))

	res := Expand([]model.ZonedEvent{ev}, Config{Window: january, Grid: model.GridMonth, MaxOccurrencesPerEvent: 3})
	if len(res.Instances) != 3 {
		t.Fatalf("instances = %d, want 3", len(res.Instances))
	}
	if len(res.Truncated) != 1 || res.Truncated[0] != "cap/secondly" {
		t.Fatalf("truncated = %v", res.Truncated)
	}
	for i, inst := range res.Instances {
		if want := at(time.January, 1, 10).Add(time.Duration(i) * time.Second); !inst.Start.Equal(want) {
			t.Fatalf("instance %d = %v, want %v", i, inst.Start, want)
		}
	}
}

// 09:00 in Berlin is 08:00Z before the switch to summer time on 2025-03-30
// and 07:00Z after it.
func TestExpandRecurrenceFollowsSourceZoneAcrossDST(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	start := time.Date(2025, 3, 20, 9, 0, 0, 0, berlin)
	raw := model.RawEvent{Header: "sync", RRule: "FREQ=WEEKLY;COUNT=4", SourceRef: "team/sync"}
	ev := zonedEvent(raw, start.UTC(), start.Add(time.Hour).UTC())
	ev.SourceLoc = berlin
	ev.ExDates = []time.Time{time.Date(2025, 4, 10, 9, 0, 0, 0, berlin).UTC()}

	spring := model.DisplayWindow{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 30, 23, 59, 59, 999e6, time.UTC),
	}
	res := Expand([]model.ZonedEvent{ev}, Config{Window: spring, Grid: model.GridMonth})

	want := []string{"2025-03-20T08:00:00Z", "2025-03-27T08:00:00Z", "2025-04-03T07:00:00Z"}
	if len(res.Instances) != len(want) {
		t.Fatalf("instances = %d, want %d", len(res.Instances), len(want))
	}
	for i, inst := range res.Instances {
		if got := inst.Start.Format(time.RFC3339); got != want[i] {
			t.Fatalf("instance %d = %s, want %s", i, got, want[i])
		}
		if inst.Start.Location() != time.UTC {
			t.Fatalf("instance %d location = %v, want display zone", i, inst.Start.Location())
		}
	}
}

func TestEffectiveModeFallbacks(t *testing.T) {
	icons := map[string]bool{"birthday": true}
	tests := []struct {
		name     string
		raw      model.RawEvent
		icons    map[string]bool
		want     model.DisplayMode
		fellBack bool
	}{
		{"event info", model.RawEvent{DisplayMode: model.EventInfo}, nil, model.EventInfo, false},
		{"unset", model.RawEvent{}, nil, model.EventInfo, false},
		{"unknown mode", model.RawEvent{DisplayMode: "sparkles"}, nil, model.EventInfo, true},
		{"marker", model.RawEvent{DisplayMode: model.Icons, EventType: "birthday"}, icons, model.Icons, false},
		{"no type or color", model.RawEvent{DisplayMode: model.Icons}, nil, model.EventInfo, true},
		{"bad color", model.RawEvent{DisplayMode: model.Icons, Color: "#12"}, nil, model.EventInfo, true},
		{"unregistered type", model.RawEvent{DisplayMode: model.Icons, EventType: "party"}, icons, model.EventInfo, true},
		{"any type without registry", model.RawEvent{DisplayMode: model.Icons, EventType: "party"}, nil, model.Icons, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fellBack := effectiveMode(tt.raw, tt.icons)
			if got != tt.want || fellBack != tt.fellBack {
				t.Fatalf("got %s/%v, want %s/%v", got, fellBack, tt.want, tt.fellBack)
			}
		})
	}
}

func TestValidColor(t *testing.T) {
	for _, c := range []string{"", "#fff", "#A1B2C3", "rebeccapurple", "rgb(1, 2, 3)", "hsla(10, 50%, 50%, 0.5)"} {
		if !ValidColor(c) {
			t.Fatalf("ValidColor(%q) = false", c)
		}
	}
	for _, c := range []string{"#12", "#ggg", "url(x)", "12px"} {
		if ValidColor(c) {
			t.Fatalf("ValidColor(%q) = true", c)
		}
	}
}
