package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// Raw property names; not every library version exports a constant for them.
const (
	propColor        = ical.ComponentProperty("COLOR")
	propCategories   = ical.ComponentProperty("CATEGORIES")
	propRecurrenceID = ical.ComponentProperty("RECURRENCE-ID")
)

// ParseICS parses a single ICS payload into raw calendar records.
//
//   - Timed DTSTART/DTEND values keep the zone the library resolved;
//     floating ones are read in the display zone.
//   - All-day values stay naive dates so they are read in the display zone;
//     the exclusive DTEND is turned into the inclusive end of the prior day.
//   - RRULE and EXDATE are carried over; expansion happens in the pipeline.
//     EXDATE and RECURRENCE-ID honour their own TZID.
//   - RECURRENCE-ID overrides become standalone records and exclude the
//     occurrence they replace from the base series.
func ParseICS(src Source, body []byte) ([]model.RawEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]model.RawEvent, 0)
	baseIdx := make(map[string]int)
	overridden := make(map[string][]model.Instant)

	for _, ve := range cal.Events() {
		uid, ev := parseVEvent(src, ve)

		if rid := ve.GetProperty(propRecurrenceID); rid != nil && rid.Value != "" {
			overridden[uid] = append(overridden[uid], propInstant(rid.Value, rid.ICalParameters))
			ev.RRule = ""
			events = append(events, ev)
			continue
		}

		baseIdx[uid] = len(events)
		events = append(events, ev)
	}

	for uid, ids := range overridden {
		if i, ok := baseIdx[uid]; ok && events[i].RRule != "" {
			events[i].ExDates = append(events[i].ExDates, ids...)
		}
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (string, model.RawEvent) {
	ev := model.RawEvent{
		DisplayMode: model.DisplayMode(src.DisplayMode),
		Color:       src.Color,
		EventType:   src.EventType,
	}

	uid := ""
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		uid = p.Value
	}
	if uid == "" {
		uid = uuid.NewString()
		appLog.Debug("vevent without UID; generated one", "id", src.ID, "uid", uid)
	}
	ev.SourceRef = src.ID + "/" + uid

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Header = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}
	if p := ve.GetProperty(propColor); p != nil && p.Value != "" {
		ev.Color = p.Value
	}
	if p := ve.GetProperty(propCategories); p != nil && p.Value != "" {
		ev.EventType = strings.TrimSpace(strings.SplitN(p.Value, ",", 2)[0])
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	ev.AllDay = dtStart != nil && isDateValue(dtStart)

	if ev.AllDay {
		ev.Start = model.Text(dtStart.Value)
		ev.End = model.Text(inclusiveEnd(dtStart.Value, ve.GetProperty(ical.ComponentPropertyDtEnd)))
	} else {
		if start, err := ve.GetStartAt(); err == nil && !isFloating(dtStart) {
			ev.Start = model.At(start)
		} else if dtStart != nil {
			// Floating or unreadable: let the normalizer try, and flag it if
			// it cannot.
			ev.Start = propInstant(dtStart.Value, dtStart.ICalParameters)
		}
		dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd)
		if end, err := ve.GetEndAt(); err == nil && !isFloating(dtEnd) {
			ev.End = model.At(end)
		} else if dtEnd != nil {
			ev.End = propInstant(dtEnd.Value, dtEnd.ICalParameters)
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ev.ExDates = append(ev.ExDates, propInstant(part, p.ICalParameters))
			}
		}
	}

	return uid, ev
}

// isDateValue detects VALUE=DATE or a bare YYYYMMDD value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// isFloating reports a DATE-TIME with neither a TZID nor a UTC suffix.
func isFloating(p *ical.IANAProperty) bool {
	if p == nil {
		return false
	}
	if _, ok := p.ICalParameters[string(ical.ParameterTzid)]; ok {
		return false
	}
	return !strings.HasSuffix(strings.TrimSpace(p.Value), "Z")
}

// propInstant resolves a DATE-TIME value. UTC and TZID values become
// instants; floating values stay naive text read in the display zone.
func propInstant(value string, params map[string][]string) model.Instant {
	value = strings.TrimSpace(value)
	if strings.HasSuffix(value, "Z") {
		if t, err := time.Parse("20060102T150405Z", value); err == nil {
			return model.At(t)
		}
	}
	if tz := params[string(ical.ParameterTzid)]; len(tz) == 1 {
		loc, err := time.LoadLocation(tz[0])
		if err != nil {
			appLog.Warn("unknown TZID; reading value in the display zone", "tzid", tz[0], "value", value)
			return model.Text(value)
		}
		if t, err := time.ParseInLocation("20060102T150405", value, loc); err == nil {
			return model.At(t)
		}
	}
	return model.Text(value)
}

// inclusiveEnd converts an exclusive all-day DTEND into the last millisecond
// of the previous day, as naive text.
func inclusiveEnd(start string, dtEnd *ical.IANAProperty) string {
	const layout = "20060102"
	endDay := start
	if dtEnd != nil && dtEnd.Value != "" {
		if t, err := time.Parse(layout, dtEnd.Value); err == nil {
			prev := t.AddDate(0, 0, -1)
			if s, err := time.Parse(layout, start); err == nil && prev.Before(s) {
				prev = s
			}
			endDay = prev.Format(layout)
		}
	}
	t, err := time.Parse(layout, endDay)
	if err != nil {
		return endDay
	}
	return t.Format("2006-01-02") + "T23:59:59.999"
}
