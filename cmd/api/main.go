package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"chronicle/reorder/internal/app"
	"chronicle/reorder/internal/config"
	"chronicle/reorder/internal/gitrepo"
	"chronicle/reorder/internal/layout"
	"chronicle/reorder/internal/ledger"
	"chronicle/reorder/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.LogLevel).Warn("unknown log level; using info")
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		logger.WithError(err).Fatal("failed to create repos dir")
	}
	gitService := gitrepo.New(cfg.ReposDir)

	var gestures interface {
		app.GestureLedger
		Close() error
	}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisLedger, err := ledger.NewRedisLedger(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Fatal("redis connection failed")
		}
		logger.Info("using redis for gesture claims")
		gestures = redisLedger
	} else {
		logger.Info("using process memory for gesture claims")
		gestures = ledger.NewMemoryLedger()
	}
	defer gestures.Close()

	service := app.New(cfg, gitService, gestures, logger)

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("database connection failed")
		}
		defer db.Close()

		if cfg.AutoMigrate {
			applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
			if err != nil {
				logger.WithError(err).Fatal("migrations failed")
			}
			logger.WithField("applied", applied).Info("migrations complete")
		}
		service.WithMoveLog(store.NewPostgresStore(db))
	} else {
		logger.Warn("DATABASE_URL not set; move audit log disabled")
	}

	if cfg.Layout == config.LayoutBrowser {
		if layout.Available() {
			service.WithMeasurer(layout.NewBrowser())
		} else {
			logger.Warn("no headless browser found; gesture replays use the stacked layout")
		}
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.Addr).Info("reorder API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
}
