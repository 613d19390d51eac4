// Package engine runs the projection pipeline (normalize, window, expand,
// aggregate, resolve view) and holds the inputs and the last computed pass.
//
// A pass is a pure function of the inputs. The engine only adds:
//
//   - memoization keyed by an input generation counter and today's date
//   - a stale flag that is set synchronously when the zone or locale changes
//     and cleared once the full pipeline has re-run, so consumers never see
//     instances from two zone interpretations
package engine

import (
	"sync"
	"time"

	appLog "calgrid/internal/log"
	"calgrid/internal/metrics"
	"calgrid/internal/model"
	"calgrid/internal/window"
	"calgrid/internal/zoned"
)

// Options are the host-supplied scalars of a pass.
type Options struct {
	Zone           string
	Locale         string
	FirstDayOfWeek int

	Window window.Config

	// RequestedView is the logical view ("quarter", "day", "month", ...).
	RequestedView string
	// DefaultView is used when RequestedView is unknown.
	DefaultView model.GridView
	// ViewSet selects the toolbar views; see view.Views.
	ViewSet string
	// DatePicker locks the grid to the month layout.
	DatePicker bool

	Flags    []model.Flag
	Selected []model.Instant
	// Focus is the initially displayed date. Zero means today, or the
	// window start when today is outside the window.
	Focus model.Instant

	// Icons lists event types that have a marker icon; empty accepts any.
	Icons []string

	// Clock overrides time.Now, mainly for tests.
	Clock func() time.Time
}

// Host receives interaction callbacks. Dates are civil days (00:00) in the
// active zone.
type Host interface {
	DaySelected(date time.Time)
	EventSelected(date time.Time)
	ShowMore(date time.Time)
}

// HostFuncs adapts plain functions to Host. Nil fields are ignored.
type HostFuncs struct {
	OnDaySelected   func(time.Time)
	OnEventSelected func(time.Time)
	OnShowMore      func(time.Time)
}

func (h HostFuncs) DaySelected(d time.Time) {
	if h.OnDaySelected != nil {
		h.OnDaySelected(d)
	}
}

func (h HostFuncs) EventSelected(d time.Time) {
	if h.OnEventSelected != nil {
		h.OnEventSelected(d)
	}
}

func (h HostFuncs) ShowMore(d time.Time) {
	if h.OnShowMore != nil {
		h.OnShowMore(d)
	}
}

type passKey struct {
	gen   uint64
	today string
}

type zonedCache struct {
	key    string
	gen    uint64
	events []model.ZonedEvent
}

// Engine is safe for concurrent use; every pass runs under one lock.
type Engine struct {
	mu   sync.Mutex
	host Host

	norm   *zoned.Normalizer
	opts   Options
	icons  map[string]bool
	events []model.RawEvent

	requested string
	// focus is a civil DayKey, rebuilt in the active zone; empty when unset.
	focus string

	gen       uint64
	eventsGen uint64
	stale     bool

	zc      zonedCache
	last    *Pass
	lastKey passKey
}

// New builds an engine. An unusable zone or locale is replaced by UTC /
// en-US with a warning; construction never fails.
func New(opts Options, host Host) *Engine {
	if host == nil {
		host = HostFuncs{}
	}
	e := &Engine{
		host:      host,
		opts:      opts,
		requested: opts.RequestedView,
	}
	e.icons = iconSet(opts.Icons)
	e.norm = initialNormalizer(opts)
	return e
}

func initialNormalizer(opts Options) *zoned.Normalizer {
	zone, locale := opts.Zone, opts.Locale
	if zone == "" {
		zone = zoned.DefaultZone
	}
	if locale == "" {
		locale = zoned.DefaultLocale
	}

	n, err := zoned.New(zoned.DefaultZone, zoned.DefaultLocale)
	if err != nil {
		// Both defaults are built in; this only fails on a broken tzdata.
		panic(err)
	}
	if nz, err := n.WithZone(zone); err != nil {
		appLog.Warn("unsupported zone; using default", "zone", zone, "default", zoned.DefaultZone, "err", err)
	} else {
		n = nz
	}
	if nl, err := n.WithLocale(locale); err != nil {
		appLog.Warn("unsupported locale; using default", "locale", locale, "default", zoned.DefaultLocale, "err", err)
	} else {
		n = nl
	}
	if opts.Clock != nil {
		n = n.WithClock(opts.Clock)
	}
	return n
}

func iconSet(types []string) map[string]bool {
	if len(types) == 0 {
		return nil
	}
	m := make(map[string]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

// invalidate must be called with mu held.
func (e *Engine) invalidate() {
	e.gen++
	e.last = nil
}

// SetEvents replaces the raw records.
func (e *Engine) SetEvents(events []model.RawEvent) {
	cp := make([]model.RawEvent, len(events))
	copy(cp, events)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = cp
	e.eventsGen++
	e.invalidate()
}

// SetZone switches the active zone. The previous pass is marked stale
// immediately; Current reports nothing until Render has re-run. An
// unsupported zone leaves the engine untouched and returns the error.
func (e *Engine) SetZone(zone string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.norm.WithZone(zone)
	if err != nil {
		metrics.ZoneChanges.WithLabelValues("zone", "rejected").Inc()
		appLog.Warn("zone change rejected; keeping previous zone", "zone", zone, "current", e.norm.Zone(), "err", err)
		return err
	}
	metrics.ZoneChanges.WithLabelValues("zone", "applied").Inc()
	e.norm = n
	e.stale = true
	e.invalidate()
	return nil
}

// SetLocale switches the formatting locale, with the same stale semantics
// as SetZone.
func (e *Engine) SetLocale(locale string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.norm.WithLocale(locale)
	if err != nil {
		metrics.ZoneChanges.WithLabelValues("locale", "rejected").Inc()
		appLog.Warn("locale change rejected; keeping previous locale", "locale", locale, "current", e.norm.Locale(), "err", err)
		return err
	}
	metrics.ZoneChanges.WithLabelValues("locale", "applied").Inc()
	e.norm = n
	e.stale = true
	e.invalidate()
	return nil
}

// SetView changes the requested logical view.
func (e *Engine) SetView(requested string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requested = requested
	e.invalidate()
}

// SetWindow replaces the explicit window bounds.
func (e *Engine) SetWindow(cfg window.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Window = cfg
	e.invalidate()
}

// SetSelection replaces the selected and flagged days.
func (e *Engine) SetSelection(selected []model.Instant, flags []model.Flag) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Selected = selected
	e.opts.Flags = flags
	e.invalidate()
}

// Navigate moves the focus date.
func (e *Engine) Navigate(date time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focus = zoned.DayKey(e.norm.In(date))
	e.invalidate()
}

// Normalize resolves a host-supplied instant in the active zone.
func (e *Engine) Normalize(in model.Instant) (time.Time, bool) {
	e.mu.Lock()
	n := e.norm
	e.mu.Unlock()
	return n.Normalize(in)
}

// Stale reports whether a zone or locale change is waiting for Render.
func (e *Engine) Stale() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stale
}

// Current returns the last pass. ok is false while a zone or locale change
// is pending or before the first Render; consumers should then show a
// neutral recomputing state.
func (e *Engine) Current() (Pass, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stale || e.last == nil {
		return Pass{}, false
	}
	return *e.last, true
}

// Render runs the full pipeline, or returns the memoized pass when no input
// changed since the last one.
func (e *Engine) Render() Pass {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := passKey{gen: e.gen, today: zoned.DayKey(e.norm.Now())}
	if e.last != nil && !e.stale && key == e.lastKey {
		return *e.last
	}

	start := time.Now()
	p := e.compute()
	e.last = &p
	e.lastKey = key
	e.stale = false

	metrics.RenderPasses.Inc()
	metrics.RenderInstances.Set(float64(len(p.Instances)))
	appLog.Debug("render pass",
		"generation", p.Generation,
		"zone", p.Zone,
		"grid", string(p.View.Grid),
		"instances", len(p.Instances),
		appLog.Since(start),
	)
	return p
}

// zonedEvents returns the events resolved in n's zone, reusing the previous
// result while zone, locale and events are unchanged. Must hold mu.
func (e *Engine) zonedEvents(n *zoned.Normalizer) []model.ZonedEvent {
	if e.zc.events != nil && e.zc.key == n.Key() && e.zc.gen == e.eventsGen {
		return e.zc.events
	}
	e.zc = zonedCache{
		key:    n.Key(),
		gen:    e.eventsGen,
		events: n.Events(e.events),
	}
	return e.zc.events
}
