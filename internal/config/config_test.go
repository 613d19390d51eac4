package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"calgrid/internal/model"
)

const sample = `
listen: 0.0.0.0:9090
timezone: UTC-4
locale: de-DE
week_start: sunday
view: quarter
window_start: 2024-01-01
window_end: 1711929599999
is_date_picker: true
flags:
  - date: 2024-02-14
    label: deadline
icons: [birthday, holiday]
sources:
  - url: https://example.com/private.ics?token=abc
    name: team
    display_mode: icons
    color: "#ff0000"
  - url: ""
    id: skipped
events:
  - header: Launch
    start: 2024-03-01T09:00:00Z
    end: "2024-03-01T10:00"
    display_mode: eventInfo
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9090" || cfg.Timezone != "UTC-4" || cfg.Locale != "de-DE" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.WeekStart != Weekday(time.Sunday) {
		t.Fatalf("week_start = %d", cfg.WeekStart)
	}
	if cfg.DefaultView != "month" || cfg.ViewSet != "all" || cfg.RefreshCron == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}

	if cfg.WindowStart.Kind() != model.KindText || cfg.WindowStart.Text() != "2024-01-01" {
		t.Fatalf("window_start = %s", cfg.WindowStart)
	}
	if cfg.WindowEnd.Kind() != model.KindEpochMillis || cfg.WindowEnd.Millis() != 1711929599999 {
		t.Fatalf("window_end = %s", cfg.WindowEnd)
	}
	if len(cfg.Flags) != 1 || cfg.Flags[0].Label != "deadline" {
		t.Fatalf("flags = %+v", cfg.Flags)
	}

	if len(cfg.Events) != 1 {
		t.Fatalf("events = %d", len(cfg.Events))
	}
	ev := cfg.Events[0]
	if ev.Start.Kind() != model.KindTime || ev.End.Kind() != model.KindText {
		t.Fatalf("event instants = %s / %s", ev.Start, ev.End)
	}

	opts := cfg.EngineOptions()
	if opts.FirstDayOfWeek != 0 || !opts.DatePicker || opts.RequestedView != "quarter" || len(opts.Icons) != 2 {
		t.Fatalf("engine options = %+v", opts)
	}
}

func TestParseRejectsBadWeekday(t *testing.T) {
	if _, err := Parse([]byte("week_start: someday\n")); err == nil {
		t.Fatal("expected error")
	}
}

func TestNormalize(t *testing.T) {
	cfg := &Config{WeekStart: 9, DefaultView: "agenda"}
	cfg.Normalize()
	if cfg.WeekStart != Weekday(time.Monday) || cfg.DefaultView != "month" || cfg.View != "month" {
		t.Fatalf("normalized = %+v", cfg)
	}
	if cfg.Timezone != "UTC" || cfg.Locale != "en-US" || cfg.Sources == nil || cfg.Events == nil {
		t.Fatalf("normalized = %+v", cfg)
	}
}

func TestICSSources(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	srcs := cfg.ICSSources()
	if len(srcs) != 1 {
		t.Fatalf("sources = %d, want 1", len(srcs))
	}
	if srcs[0].ID != "team" || srcs[0].DisplayMode != "icons" || srcs[0].Color != "#ff0000" {
		t.Fatalf("source = %+v", srcs[0])
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CALGRID_TIMEZONE", "Europe/Berlin")
	t.Setenv("CALGRID_LISTEN", ":1234")
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Timezone != "Europe/Berlin" || cfg.Listen != ":1234" || cfg.Locale != "en-US" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != DefaultConfig().Listen {
		t.Fatalf("listen = %q", cfg.Listen)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("perm = %v, want 0600", info.Mode().Perm())
	}

	cfg.Timezone = "UTC+9"
	cfg.WeekStart = Weekday(time.Wednesday)
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Timezone != "UTC+9" || again.WeekStart != Weekday(time.Wednesday) {
		t.Fatalf("reloaded = %+v", again)
	}
}
