// Package zoned resolves raw event times into civil date-times anchored to a
// selected time zone and locale.
//
// A Normalizer is immutable: switching zone or locale yields a new value, so
// callers can swap generations atomically and no package-level zone state
// exists.
package zoned

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goodsign/monday"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"golang.org/x/text/language"

	appLog "calgrid/internal/log"
	"calgrid/internal/metrics"
	"calgrid/internal/model"
)

var (
	ErrUnknownZone   = errors.New("zoned: unknown time zone")
	ErrUnknownLocale = errors.New("zoned: unsupported locale")
)

const (
	DefaultZone   = "UTC"
	DefaultLocale = "en-US"
)

// Normalizer converts instants into time.Time values in its location.
type Normalizer struct {
	zone string
	loc  *time.Location

	locale string
	tag    language.Tag
	names  monday.Locale

	now func() time.Time
}

// New builds a Normalizer. Both identifiers must be valid.
func New(zone, locale string) (*Normalizer, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return nil, err
	}
	tag, names, err := resolveLocale(locale)
	if err != nil {
		return nil, err
	}
	return &Normalizer{
		zone:   zone,
		loc:    loc,
		locale: locale,
		tag:    tag,
		names:  names,
		now:    time.Now,
	}, nil
}

// WithZone returns a copy bound to zone. On failure the receiver stays usable
// and the error wraps ErrUnknownZone.
func (n *Normalizer) WithZone(zone string) (*Normalizer, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return n, err
	}
	cp := *n
	cp.zone = zone
	cp.loc = loc
	return &cp, nil
}

// WithLocale returns a copy bound to locale.
func (n *Normalizer) WithLocale(locale string) (*Normalizer, error) {
	tag, names, err := resolveLocale(locale)
	if err != nil {
		return n, err
	}
	cp := *n
	cp.locale = locale
	cp.tag = tag
	cp.names = names
	return &cp, nil
}

// WithClock returns a copy whose notion of "now" comes from now.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	cp := *n
	cp.now = now
	return &cp
}

func (n *Normalizer) Zone() string               { return n.zone }
func (n *Normalizer) Location() *time.Location   { return n.loc }
func (n *Normalizer) Locale() string             { return n.locale }
func (n *Normalizer) Tag() language.Tag          { return n.tag }
func (n *Normalizer) NamesLocale() monday.Locale { return n.names }

// Key identifies the (zone, locale) pair for cache invalidation.
func (n *Normalizer) Key() string {
	return n.zone + "|" + n.locale
}

// Now returns the current time in the active zone.
func (n *Normalizer) Now() time.Time {
	return n.now().In(n.loc)
}

// In converts t into the active zone.
func (n *Normalizer) In(t time.Time) time.Time {
	return t.In(n.loc)
}

// Normalize resolves in to a time in the active zone. When the value cannot
// be interpreted, now is substituted, the substitution is logged and counted,
// and ok is false.
func (n *Normalizer) Normalize(in model.Instant) (t time.Time, ok bool) {
	switch in.Kind() {
	case model.KindEpochMillis:
		return time.UnixMilli(in.Millis()).In(n.loc), true
	case model.KindTime:
		if !in.Time().IsZero() {
			return in.Time().In(n.loc), true
		}
	case model.KindText:
		if t, ok := n.parseText(in.Text()); ok {
			return t, true
		}
	}

	metrics.InvalidInstants.Inc()
	appLog.Warn("invalid instant; substituting now", "value", in.String(), "zone", n.zone)
	return n.Now(), false
}

var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"20060102T150405Z",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"20060102T150405",
		"20060102",
	}
	epochPattern = regexp.MustCompile(`^-?\d{9,}$`)

	// Structured-looking text that failed every layout is corrupt, not prose.
	numericPattern = regexp.MustCompile(`^[\d\s\-:T./+Z]+$`)
)

func (n *Normalizer) parseText(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(n.loc), true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return t, true
		}
	}
	if epochPattern.MatchString(s) {
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).In(n.loc), true
		}
	}

	if numericPattern.MatchString(s) {
		return time.Time{}, false
	}
	r, err := naturalParser().Parse(s, n.Now())
	if err != nil || r == nil {
		return time.Time{}, false
	}
	// Only a phrase covering the whole input counts.
	if r.Index != 0 || len(r.Text) != len(s) {
		return time.Time{}, false
	}
	return r.Time.In(n.loc), true
}

var (
	naturalOnce sync.Once
	natural     *when.Parser
)

func naturalParser() *when.Parser {
	naturalOnce.Do(func() {
		natural = when.New(nil)
		natural.Add(en.All...)
		natural.Add(common.All...)
	})
	return natural
}

var offsetPattern = regexp.MustCompile(`^(?:UTC|GMT)?([+-])(\d{1,2})(?::?(\d{2}))?$`)

// LoadZone resolves an IANA name, "Local", "UTC", or a fixed offset such as
// "UTC-4" or "+05:30".
func LoadZone(zone string) (*time.Location, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrUnknownZone)
	}
	if m := offsetPattern.FindStringSubmatch(zone); m != nil {
		hours, _ := strconv.Atoi(m[2])
		mins := 0
		if m[3] != "" {
			mins, _ = strconv.Atoi(m[3])
		}
		if hours > 14 || mins > 59 {
			return nil, fmt.Errorf("%w: offset out of range %q", ErrUnknownZone, zone)
		}
		secs := hours*3600 + mins*60
		if m[1] == "-" {
			secs = -secs
		}
		return time.FixedZone(zone, secs), nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownZone, zone, err)
	}
	return loc, nil
}

// resolveLocale validates a BCP 47 tag and maps it onto the closest locale
// with localized day and month names.
func resolveLocale(locale string) (language.Tag, monday.Locale, error) {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	if err != nil {
		return language.Und, "", fmt.Errorf("%w: %q: %v", ErrUnknownLocale, locale, err)
	}
	base, _ := tag.Base()
	region, _ := tag.Region()
	want := monday.Locale(base.String() + "_" + region.String())
	for _, l := range monday.ListLocales() {
		if l == want {
			return tag, l, nil
		}
	}
	return language.Und, "", fmt.Errorf("%w: %q has no localized names", ErrUnknownLocale, locale)
}
