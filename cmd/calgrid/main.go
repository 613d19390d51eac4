package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"calgrid/internal/config"
	"calgrid/internal/engine"
	"calgrid/internal/ics"
	appLog "calgrid/internal/log"
	"calgrid/internal/metrics"
	"calgrid/internal/web"
)

const version = "0.1.0"

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "calgrid",
		Usage:   "Project calendar events onto a month/week/agenda grid.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "./config.yaml", EnvVars: []string{"CALGRID_CONFIG"}, Usage: "YAML config path; created with defaults if missing"},
			&cli.StringFlag{Name: "cache-dir", Value: "./var/ics-cache", EnvVars: []string{"CALGRID_CACHE_DIR"}, Usage: "ICS download cache"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error; overrides the config"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			renderCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		appLog.Error("calgrid failed", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, applies CALGRID_* overrides and the
// log level.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.ApplyEnv()

	level := cfg.LogLevel
	if v := c.String("log-level"); v != "" {
		level = v
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	appLog.Info("effective config",
		"config_path", path,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"locale", cfg.Locale,
		"view", cfg.View,
		"sources", len(cfg.Sources),
		"static_events", len(cfg.Events),
		"refresh", cfg.RefreshCron,
	)
	return cfg, nil
}

// reload fetches every feed and hands the merged records to the engine.
func reload(ctx context.Context, eng *engine.Engine, fetcher *ics.Fetcher, cfg *config.Config) {
	events, errs := fetcher.LoadEvents(ctx, cfg.ICSSources())
	if len(errs) > 0 {
		appLog.Error("one or more ICS sources failed", errors.Join(errs...), "error_count", len(errs))
	}
	events = append(events, cfg.Events...)
	eng.SetEvents(events)
	appLog.Info("events loaded", "count", len(events))
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the projection API and refresh feeds on a schedule.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address; overrides the config"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if v := c.String("listen"); v != "" {
				cfg.Listen = v
			}
			if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := web.NewServer(cfg)
			fetcher := ics.NewFetcher(c.String("cache-dir"))
			reload(ctx, srv.Engine(), fetcher, cfg)
			srv.Engine().Render()

			sched := cron.New()
			if _, err := sched.AddFunc(cfg.RefreshCron, func() {
				reload(ctx, srv.Engine(), fetcher, cfg)
			}); err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshCron, err)
			}
			sched.Start()
			defer func() {
				<-sched.Stop().Done()
			}()

			appLog.Info("calgrid started", "version", version)
			err = srv.Run(ctx)
			appLog.Info("calgrid exiting")
			return err
		},
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Compute one pass and print it as JSON.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "zone", Usage: "display zone; overrides the config"},
			&cli.StringFlag{Name: "view", Usage: "requested view; overrides the config"},
			&cli.BoolFlag{Name: "offline", Usage: "skip ICS sources and use the static events only"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if v := c.String("zone"); v != "" {
				cfg.Timezone = v
			}
			if v := c.String("view"); v != "" {
				cfg.View = v
			}

			eng := engine.New(cfg.EngineOptions(), nil)
			if c.Bool("offline") {
				eng.SetEvents(cfg.Events)
			} else {
				reload(c.Context, eng, ics.NewFetcher(c.String("cache-dir")), cfg)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(eng.Render())
		},
	}
}
