package expand

import (
	"regexp"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

var (
	hexColor   = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	namedColor = regexp.MustCompile(`^[a-zA-Z]+$`)
	funcColor  = regexp.MustCompile(`^(?:rgb|rgba|hsl|hsla)\([0-9.,%\s]+\)$`)
)

// ValidColor accepts hex, named and rgb()/hsl() CSS colors. An empty color is
// valid; the grid falls back to its own palette.
func ValidColor(c string) bool {
	if c == "" {
		return true
	}
	return hexColor.MatchString(c) || namedColor.MatchString(c) || funcColor.MatchString(c)
}

// effectiveMode decides how raw is drawn. Icons events without a usable
// marker render as EventInfo instead of disappearing.
func effectiveMode(raw model.RawEvent, icons map[string]bool) (model.DisplayMode, bool) {
	mode, known := model.ParseDisplayMode(string(raw.DisplayMode))
	if !known {
		if raw.DisplayMode != "" {
			appLog.Warn("unknown display mode; rendering event info",
				"mode", string(raw.DisplayMode),
				"header", raw.Header,
			)
			return model.EventInfo, true
		}
		return model.EventInfo, false
	}
	if mode != model.Icons {
		return mode, false
	}

	switch {
	case raw.EventType == "" && raw.Color == "":
		appLog.Debug("marker has neither type nor color; rendering event info", "header", raw.Header)
		return model.EventInfo, true
	case !ValidColor(raw.Color):
		appLog.Warn("unknown marker color; rendering event info", "color", raw.Color, "header", raw.Header)
		return model.EventInfo, true
	case len(icons) > 0 && !icons[raw.EventType]:
		appLog.Warn("no icon for event type; rendering event info", "event_type", raw.EventType, "header", raw.Header)
		return model.EventInfo, true
	}
	return model.Icons, false
}
