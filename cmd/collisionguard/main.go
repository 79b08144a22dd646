package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"collisionguard.dev/internal/app"
	"collisionguard.dev/internal/auth"
	"collisionguard.dev/internal/config"
	"collisionguard.dev/internal/dispatch"
	"collisionguard.dev/internal/geoindex"
	"collisionguard.dev/internal/history"
	"collisionguard.dev/internal/ingress"
	"collisionguard.dev/internal/report"
	"collisionguard.dev/internal/session"
	"collisionguard.dev/internal/telemetry"
	"collisionguard.dev/internal/utils"
)

// version is surfaced on /v1/healthcheck and tagged onto every Sentry
// event.
const version = "1.0.0"

// historyClearInterval/historyStaleThreshold bound how often the
// process-local speed-history buffer sweeps vehicles that stopped
// reporting.
const (
	historyClearInterval  = 30 * time.Second
	historyStaleThreshold = 2 * time.Minute
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg := config.Load(logger)

	report.SetupSentry()
	defer report.FlushSentry()

	reporter := report.NewReporter(cfg.Env, version)
	reporter.ConfigureScope()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	geoIndex, err := geoindex.NewIndex()
	if err != nil {
		fatal(reporter, logger, "failed to open geo index", err)
	}
	defer geoIndex.Close()

	telemetryStore, err := telemetry.NewStore()
	if err != nil {
		fatal(reporter, logger, "failed to open telemetry store", err)
	}
	defer telemetryStore.Close()

	historyBuffer := history.NewBuffer()
	go historyBuffer.ClearRoutine(ctx, historyClearInterval, historyStaleThreshold)

	sessions := session.NewRegistry()
	dispatcher := dispatch.New(sessions, logger)

	engine := ingress.New(cfg, geoIndex, telemetryStore, historyBuffer, sessions, dispatcher, logger, cfg.WorkerPoolSize)

	client := app.NewPooledClient()
	validator := auth.New(client, cfg.AuthValidateURL)

	application := &app.Application{
		Config:    cfg,
		Logger:    logger,
		Client:    client,
		Version:   version,
		Reporter:  reporter,
		GeoIndex:  geoIndex,
		Telemetry: telemetryStore,
		History:   historyBuffer,
		Sessions:  sessions,
		Engine:    engine,
		Auth:      validator,
	}

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      application.Routes(ctx),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("collisionguard listening", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(reporter, logger, "server failed", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func fatal(reporter *report.Reporter, logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	reporter.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
		Tags:  utils.MakeMap("startup_stage", msg),
		Level: sentry.LevelFatal,
	})
	report.FlushSentry()
	os.Exit(1)
}
