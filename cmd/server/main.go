// Command server runs the reminder backend: the HTTP API, the background
// dispatch loop that delivers due reminders, and supporting observability
// endpoints (/healthz, /metrics, optional OTLP tracing).
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/remindkit/go-reminder-backend/internal/clock"
	"github.com/remindkit/go-reminder-backend/internal/config"
	"github.com/remindkit/go-reminder-backend/internal/dispatch"
	httpapi "github.com/remindkit/go-reminder-backend/internal/http"
	"github.com/remindkit/go-reminder-backend/internal/notify"
	"github.com/remindkit/go-reminder-backend/internal/observability"
	"github.com/remindkit/go-reminder-backend/internal/repo"
	"github.com/remindkit/go-reminder-backend/internal/services"
	"github.com/remindkit/go-reminder-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	log := newLogger(cfg)
	log.Info().Str("version", version).Msg("starting reminder backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op unless OTEL_ENABLED).
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Storage.
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// Outbound mail: real SMTP when a host is configured, log-only otherwise.
	var notifier notify.Notifier
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(
			sysutil.HostPort(cfg.SMTP.Host, cfg.SMTP.Port),
			cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password,
		)
		log.Info().Str("host", cfg.SMTP.Host).Int("port", cfg.SMTP.Port).Msg("smtp notifier enabled")
	} else {
		notifier = &notify.LogNotifier{Log: log}
		log.Info().Msg("no SMTP host configured; logging deliveries instead")
	}

	clk := clock.NewRealClock()
	svc := services.NewReminderService(db, clk, dispatch.NewPollScheduler(), log)
	svc.TitleLocale = language.English
	svc.RetentionDays = cfg.RetentionDays

	// Background delivery loop.
	if cfg.Dispatch.Enabled {
		d := dispatch.New(db, notifier, recipientFromEnv(), clk, log, dispatch.Options{
			Interval:    cfg.Dispatch.Interval,
			BatchLimit:  cfg.Dispatch.BatchLimit,
			Workers:     cfg.Dispatch.Workers,
			SendTimeout: cfg.Dispatch.SendTimeout,
		})
		go d.Start(ctx)
	} else {
		log.Warn().Msg("dispatch loop disabled; reminders will not be delivered")
	}

	// HTTP transport.
	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, svc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}

// newLogger builds the process logger from config: JSON to stdout by
// default, pretty console output when LOG_PRETTY is set.
func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var w = zerolog.New(os.Stdout)
	if cfg.LogPretty {
		w = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return w.Level(level).With().Timestamp().Logger()
}

// recipientFromEnv resolves delivery addresses without a live accounts
// service: REMINDER_RECIPIENT overrides everything, otherwise the owner id
// is used verbatim when it already looks like an address.
func recipientFromEnv() dispatch.RecipientResolver {
	override := os.Getenv("REMINDER_RECIPIENT")
	return dispatch.RecipientFunc(func(_ context.Context, userID string) (string, error) {
		if override != "" {
			return override, nil
		}
		if sysutil.LooksLikeEmail(userID) {
			return userID, nil
		}
		return "", errors.New("no recipient address for user " + userID)
	})
}
