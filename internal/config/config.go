package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"calgrid/internal/engine"
	"calgrid/internal/ics"
	"calgrid/internal/model"
	"calgrid/internal/window"
)

// SourceConfig describes a single ICS subscription feeding the calendar.
type SourceConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// DisplayMode applies to every event of this feed ("icons" or "eventInfo").
	DisplayMode string `yaml:"display_mode" json:"display_mode"`
	// Color and EventType are applied when the VEVENT carries none.
	Color     string `yaml:"color" json:"color"`
	EventType string `yaml:"event_type" json:"event_type"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the display zone: an IANA name or a fixed offset ("UTC-4").
	Timezone string `yaml:"timezone" json:"timezone"`

	// Locale is a BCP 47 tag used for day and month names.
	Locale string `yaml:"locale" json:"locale"`

	// WeekStart is the first day of the week, 0=Sunday .. 6=Saturday.
	// Weekday names ("monday") are accepted in the YAML file.
	WeekStart Weekday `yaml:"week_start" json:"week_start"`

	// DefaultView is the grid used when View is unknown: "week" or "month".
	DefaultView string `yaml:"default_view" json:"default_view"`
	// View is the requested logical view ("quarter", "day", "agenda", ...).
	View string `yaml:"view" json:"view"`
	// ViewSet is "standard" (week, month) or "all".
	ViewSet string `yaml:"view_set" json:"view_set"`

	// WindowStart / WindowEnd bound the displayed range, e.g. a fiscal
	// quarter. Both empty means the current month.
	WindowStart model.Instant `yaml:"window_start" json:"window_start"`
	WindowEnd   model.Instant `yaml:"window_end" json:"window_end"`

	// FocusDate is the initially displayed date.
	FocusDate model.Instant `yaml:"focus_date" json:"focus_date"`

	IsDatePicker bool            `yaml:"is_date_picker" json:"is_date_picker"`
	Flags        []model.Flag    `yaml:"flags" json:"flags"`
	SelectedDays []model.Instant `yaml:"selected_days" json:"selected_days"`

	// Icons lists event types that have a marker icon. Empty accepts any.
	Icons []string `yaml:"icons" json:"icons"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for reloading the ICS sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Sources is the list of subscribed ICS feeds.
	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// Events are static records merged with the feed events.
	Events []model.RawEvent `yaml:"events" json:"events"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "UTC",
		Locale:      "en-US",
		WeekStart:   Weekday(time.Monday),
		DefaultView: "month",
		View:        "month",
		ViewSet:     "all",
		LogLevel:    "info",
		RefreshCron: "*/15 * * * *",
		Sources:     []SourceConfig{},
		Events:      []model.RawEvent{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Locale == "" {
		c.Locale = "en-US"
	}
	if c.WeekStart < 0 || c.WeekStart > 6 {
		c.WeekStart = Weekday(time.Monday)
	}
	switch c.DefaultView {
	case "week", "month":
		// ok
	default:
		// Unknown value; fall back to month to avoid surprising layouts.
		c.DefaultView = "month"
	}
	if c.View == "" {
		c.View = c.DefaultView
	}
	if c.ViewSet == "" {
		c.ViewSet = "all"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	if c.Events == nil {
		c.Events = []model.RawEvent{}
	}
}

// ApplyEnv overrides selected fields from CALGRID_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CALGRID_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("CALGRID_LOCALE"); v != "" {
		c.Locale = v
	}
	if v := os.Getenv("CALGRID_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("CALGRID_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// EngineOptions maps the configuration onto the projection engine inputs.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		Zone:           c.Timezone,
		Locale:         c.Locale,
		FirstDayOfWeek: int(c.WeekStart),
		Window: window.Config{
			Start: c.WindowStart,
			End:   c.WindowEnd,
		},
		RequestedView: c.View,
		DefaultView:   model.GridView(c.DefaultView),
		ViewSet:       c.ViewSet,
		DatePicker:    c.IsDatePicker,
		Flags:         c.Flags,
		Selected:      c.SelectedDays,
		Focus:         c.FocusDate,
		Icons:         c.Icons,
	}
}

// ICSSources returns the feeds to fetch. Sources without a URL are skipped;
// a missing ID falls back to the name, then the URL.
func (c *Config) ICSSources() []ics.Source {
	sources := make([]ics.Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		if src.URL == "" {
			continue
		}
		id := src.ID
		if id == "" {
			if src.Name != "" {
				id = src.Name
			} else {
				id = src.URL
			}
		}
		sources = append(sources, ics.Source{
			ID:          id,
			Name:        src.Name,
			URL:         src.URL,
			DisplayMode: src.DisplayMode,
			Color:       src.Color,
			EventType:   src.EventType,
		})
	}
	return sources
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	return Parse(data)
}

// Parse decodes a YAML document and normalizes it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Weekday is a first-day-of-week value that decodes from an integer or a
// weekday name.
type Weekday int

var weekdayNames = map[string]Weekday{
	"sunday":    0,
	"monday":    1,
	"tuesday":   2,
	"wednesday": 3,
	"thursday":  4,
	"friday":    5,
	"saturday":  6,
}

func (w *Weekday) UnmarshalYAML(value *yaml.Node) error {
	s := strings.ToLower(strings.TrimSpace(value.Value))
	if n, ok := weekdayNames[s]; ok {
		*w = n
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("config: line %d: invalid week_start %q", value.Line, value.Value)
	}
	*w = Weekday(n)
	return nil
}
