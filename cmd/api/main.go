package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"valutatrade-hub/config"
	httpHandler "valutatrade-hub/internal/adapter/http/handler"
	"valutatrade-hub/internal/app"
	"valutatrade-hub/internal/scheduler"
	"valutatrade-hub/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml or ./config/config.yaml)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, logCloser := newLogger(cfg.Log)
	defer logCloser.Close()

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret is required (set VTH_JWT_SECRET)")
	}
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting ValutaTrade Hub")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// Scheduled refresh
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler.Spec, application.Updater, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure scheduler")
		}
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	router := httpHandler.SetupRouter(application.RouterDeps())

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Scheduler did not stop cleanly")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLogger adds the JSON action-log file when log.file is set.
func newLogger(cfg config.LogConfig) (zerolog.Logger, io.Closer) {
	if cfg.File == "" {
		return logger.New(cfg.Level, cfg.Pretty), nopCloser{}
	}
	log, closer, err := logger.NewWithFile(cfg.Level, cfg.Pretty, cfg.File)
	if err != nil {
		fallback := logger.New(cfg.Level, cfg.Pretty)
		fallback.Warn().Err(err).Str("file", cfg.File).Msg("log file unavailable, logging to stdout only")
		return fallback, nopCloser{}
	}
	return log, closer
}
