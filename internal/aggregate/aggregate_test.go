package aggregate

import (
	"reflect"
	"testing"
	"time"

	"calgrid/internal/model"
)

func marker(day int, typ, color string) model.RenderInstance {
	start := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
	return model.RenderInstance{
		Start:       start,
		End:         start.Add(24*time.Hour - time.Millisecond),
		DisplayMode: model.Icons,
		Header:      typ,
		Description: "details",
		EventType:   typ,
		Color:       color,
	}
}

func info(day int, header string) model.RenderInstance {
	start := time.Date(2024, 1, day, 9, 0, 0, 0, time.UTC)
	return model.RenderInstance{Start: start, End: start.Add(time.Hour), DisplayMode: model.EventInfo, Header: header}
}

func TestAggregateOneCompositePerDay(t *testing.T) {
	in := []model.RenderInstance{marker(1, "travel", "red"), marker(2, "travel", "red"), marker(3, "travel", "red")}
	out := Aggregate(in, model.GridMonth)
	if len(out) != 3 {
		t.Fatalf("composites = %d, want 3", len(out))
	}
	for i, c := range out {
		if !c.IsComposite() || len(c.Markers) != 1 {
			t.Fatalf("composite %d = %+v", i, c)
		}
		if c.Start.Day() != i+1 {
			t.Fatalf("composite %d is on day %d", i, c.Start.Day())
		}
	}
}

func TestAggregateMergesSameDay(t *testing.T) {
	in := []model.RenderInstance{
		marker(5, "birthday", "#f00"),
		info(5, "meeting"),
		marker(5, "holiday", "#0f0"),
	}
	out := Aggregate(in, model.GridMonth)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Header != "meeting" || out[0].IsComposite() {
		t.Fatalf("event info should come first, got %+v", out[0])
	}

	c := out[1]
	want := []model.Marker{{EventType: "birthday", Color: "#f00"}, {EventType: "holiday", Color: "#0f0"}}
	if !reflect.DeepEqual(c.Markers, want) {
		t.Fatalf("markers = %+v, want %+v", c.Markers, want)
	}
	if c.Description != "" {
		t.Fatalf("description = %q, want empty", c.Description)
	}
	if c.Header != "birthday" || c.Color != "#f00" {
		t.Fatalf("composite should take the first member's fields, got %+v", c)
	}
}

func TestAggregateKeepsDuplicates(t *testing.T) {
	out := Aggregate([]model.RenderInstance{marker(7, "x", "red"), marker(7, "x", "red")}, model.GridMonth)
	if len(out) != 1 || len(out[0].Markers) != 2 {
		t.Fatalf("out = %+v", out)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	in := []model.RenderInstance{
		marker(1, "a", "red"),
		marker(1, "b", "blue"),
		info(2, "lunch"),
		marker(3, "c", "green"),
	}
	once := Aggregate(in, model.GridMonth)
	twice := Aggregate(once, model.GridMonth)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("not idempotent:\n%+v\n%+v", once, twice)
	}
}

func TestAggregateFoldsMarkersIntoExistingComposite(t *testing.T) {
	composite := Aggregate([]model.RenderInstance{marker(5, "a", "red")}, model.GridMonth)[0]

	tests := []struct {
		name string
		in   []model.RenderInstance
		want []model.Marker
	}{
		{
			name: "marker after composite",
			in:   []model.RenderInstance{composite, marker(5, "b", "blue")},
			want: []model.Marker{{EventType: "a", Color: "red"}, {EventType: "b", Color: "blue"}},
		},
		{
			name: "marker before composite",
			in:   []model.RenderInstance{marker(5, "b", "blue"), composite},
			want: []model.Marker{{EventType: "b", Color: "blue"}, {EventType: "a", Color: "red"}},
		},
		{
			name: "two composites",
			in:   []model.RenderInstance{composite, composite},
			want: []model.Marker{{EventType: "a", Color: "red"}, {EventType: "a", Color: "red"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Aggregate(tt.in, model.GridMonth)
			if len(out) != 1 {
				t.Fatalf("composites = %d, want 1", len(out))
			}
			if !reflect.DeepEqual(out[0].Markers, tt.want) {
				t.Fatalf("markers = %+v, want %+v", out[0].Markers, tt.want)
			}
		})
	}
	if len(composite.Markers) != 1 {
		t.Fatalf("input composite mutated: %+v", composite.Markers)
	}
}

func TestAggregatePassThroughOnTimeGrids(t *testing.T) {
	in := []model.RenderInstance{marker(1, "a", "red"), marker(1, "b", "blue")}
	for _, g := range []model.GridView{model.GridWeek, model.GridWorkWeek, model.GridDay, model.GridAgenda} {
		if out := Aggregate(in, g); !reflect.DeepEqual(out, in) {
			t.Fatalf("%s: instances changed", g)
		}
	}
}

func TestOverflow(t *testing.T) {
	c := model.RenderInstance{Markers: make([]model.Marker, 5)}
	if got := Overflow(c, 3); got != 2 {
		t.Fatalf("Overflow = %d, want 2", got)
	}
	if got := Overflow(c, 10); got != 0 {
		t.Fatalf("Overflow = %d, want 0", got)
	}
}
