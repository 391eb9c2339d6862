// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-activation/internal/app"
	"pos-activation/internal/config"
	"pos-activation/internal/infra/api"
	"pos-activation/internal/infra/logging"
	"pos-activation/internal/infra/metrics"
	"pos-activation/internal/infra/sched"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", config.DefaultPath, "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, dev secret)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}
	logger.Info().
		Str("driver", cfg.Database.Driver).
		Str("database", logging.Redact(cfg.Database.URL, cfg.Runtime.Dev)).
		Bool("throttling", cfg.Redis.URL != "" && cfg.Redemption.AttemptsPerMinute > 0).
		Msg("configuration loaded")

	// ---- Stores and use cases ----
	svc, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer svc.Close()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, svc.Repos.Driver)

	// ---- Pool stats worker ----
	worker := sched.NewPoolStatsWorker(15*time.Second, svc.Repos.Driver, svc.Repos.Stats, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- HTTP server ----
	srv := api.NewServer(api.Deps{
		Features:   svc.Features,
		Keys:       svc.Keys,
		Redemption: svc.Redemption,
		Ledger:     svc.Ledger,
		Gate:       svc.Gate,
		Auth:       api.NewAuthManager(cfg.Auth),
		Ping:       svc.Repos.Ping,
	}, cfg.HTTP, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("store", svc.Repos.Driver).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
