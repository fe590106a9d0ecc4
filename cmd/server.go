package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/cal-admin/internal/auth"
	"github.com/example/cal-admin/internal/calcom"
	"github.com/example/cal-admin/internal/config"
	"github.com/example/cal-admin/internal/db"
	"github.com/example/cal-admin/internal/migrate"
	"github.com/example/cal-admin/internal/store"
	"github.com/example/cal-admin/internal/web"
	"github.com/example/cal-admin/internal/workflow"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the admin console",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			log := newLogger(cfg.LogLevel)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}
			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			authStore := auth.NewStore(auth.NewPGUserStore(d), cfg.CookieHashKey, cfg.CookieBlockKey, cfg.SessionTTL)

			cal := calcom.New(cfg.CalAPIURL, cfg.CalAPIKey,
				calcom.WithTimeout(cfg.CalRequestTimeout),
				calcom.WithDefaults(cfg.DefaultLanguage, cfg.DefaultTimeZone),
			)
			bookings := store.NewBookingStore(cal)
			events := store.NewEventStore(cal)

			loc, err := time.LoadLocation(cfg.DefaultTimeZone)
			if err != nil {
				return fmt.Errorf("load timezone %q: %w", cfg.DefaultTimeZone, err)
			}
			flow := workflow.New(bookings, events, loc)

			var metrics *web.Metrics
			if cfg.MetricsEnabled {
				metrics = web.NewMetrics()
			}

			srv, err := web.NewServer(log, authStore, bookings, events, flow, metrics)
			if err != nil {
				return err
			}

			log.Info("listening", slog.String("addr", cfg.ListenAddr))
			return web.Start(ctx, cfg.ListenAddr, srv.Routes())
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	return cmd
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
