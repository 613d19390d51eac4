package zoned

import "calgrid/internal/model"

// Event resolves a raw record into the active zone.
func (n *Normalizer) Event(raw model.RawEvent) model.ZonedEvent {
	start, startOK := n.Normalize(raw.Start)
	end := start
	endOK := true
	// A missing end collapses to the start, as the host widget does.
	if !raw.End.IsZero() {
		end, endOK = n.Normalize(raw.End)
	}

	ze := model.ZonedEvent{
		Raw:              raw,
		Start:            start,
		End:              end,
		StartSubstituted: !startOK,
		EndSubstituted:   !endOK,
		SourceLoc:        n.loc,
	}
	// Recurrence follows the wall clock of the zone the event was written in.
	if raw.Start.Kind() == model.KindTime && startOK {
		ze.SourceLoc = raw.Start.Time().Location()
	}
	for _, ex := range raw.ExDates {
		if t, ok := n.Normalize(ex); ok {
			ze.ExDates = append(ze.ExDates, t)
		}
	}
	return ze
}

// Events resolves a batch, preserving order.
func (n *Normalizer) Events(raw []model.RawEvent) []model.ZonedEvent {
	out := make([]model.ZonedEvent, 0, len(raw))
	for _, r := range raw {
		out = append(out, n.Event(r))
	}
	return out
}
