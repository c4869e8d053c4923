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

	"quotaflow-go/internal/config"
	"quotaflow-go/internal/credential"
	"quotaflow-go/internal/events"
	"quotaflow-go/internal/logging"
	mw "quotaflow-go/internal/middleware"
	tracing "quotaflow-go/internal/monitoring/tracing"
	srv "quotaflow-go/internal/server"
	"quotaflow-go/internal/upstream"
	upgem "quotaflow-go/internal/upstream/gemini"
	"quotaflow-go/internal/version"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("QUOTAFLOW_CONFIG"), "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	cm, err := config.NewConfigManager(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	defer cm.Close()

	cfg := cm.GetConfig()
	if *debug {
		cfg.Logging.Debug = true
	}
	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traceShutdown, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		log.WithError(err).Warn("failed to initialize tracing")
	}
	if traceShutdown != nil {
		defer func() {
			if err := traceShutdown(context.Background()); err != nil {
				log.WithError(err).Warn("failed to shutdown tracing")
			}
		}()
	}
	log.WithFields(log.Fields{"version": version.Version, "config": cm.Path()}).Info("Starting quotaflow-go")

	hub := events.NewHub()
	cm.SetEventPublisher(hub)
	unsubscribe := subscribeEventLogging(hub)
	defer unsubscribe()

	creds, err := loadCredentials(ctx, cfg.Credentials)
	if err != nil {
		log.WithError(err).Fatal("failed to load credentials")
	}
	if len(creds) == 0 {
		log.Warn("No credentials configured; requests will fail unless an override credential is set")
	}
	pool := credential.NewPool(creds, credential.WithPublisher(hub))

	prefStore := openPreferenceStore(ctx, cfg.Storage)
	defer func() {
		if prefStore != nil {
			_ = prefStore.Close()
		}
	}()
	overrides := newOverrideReader(prefStore, cfg.Preferences.OverrideKey)

	runner := upstream.NewRunner(pool, overrides, runnerOptions(cfg, hub)...)
	runner.SetRequestTimeout(cfg.Retry.RequestTimeout())

	features := srv.NewFeatureRegistry(cfg.Features)
	cm.OnChange(func(next *config.Config) {
		features.Update(next.Features)
		runner.SetOptions(runnerOptions(next, hub)...)
		runner.SetRequestTimeout(next.Retry.RequestTimeout())
	})

	engine := srv.BuildEngine(cfg, srv.Dependencies{
		Runner:    runner,
		Pool:      pool,
		Generator: upgem.New(cfg.Upstream),
		Features:  features,
		Store:     prefStore,
		Overrides: overrides,
		Publisher: hub,
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	mw.SafeGo("http-server", func() {
		log.WithField("addr", httpSrv.Addr).Info("HTTP API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped")
			cancel()
		}
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("Shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
	log.Info("Server stopped")
}
