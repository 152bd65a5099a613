package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	app "github.com/hirewire/pipeline/internal/app"
	"github.com/hirewire/pipeline/internal/app/httpapi"
	"github.com/hirewire/pipeline/internal/app/metrics"
	"github.com/hirewire/pipeline/internal/app/services/notify"
	"github.com/hirewire/pipeline/internal/app/storage/postgres"
	"github.com/hirewire/pipeline/internal/config"
	"github.com/hirewire/pipeline/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("pipeline").WithError(err).Error("configuration failed")
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}).WithField("component", "pipeline")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores := app.Stores{}
	if cfg.Database.DSN != "" {
		db, err := sqlx.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.WithError(err).Error("open database")
			os.Exit(1)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		defer db.Close()

		if err := postgres.Apply(ctx, db); err != nil {
			log.WithError(err).Error("apply migrations")
			os.Exit(1)
		}
		store := postgres.New(db)
		stores = app.Stores{Applications: store, Jobs: store, Companies: store}
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_DSN not set; using in-memory storage")
	}

	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer cache.Close()
		if err := cache.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable; statistics cache disabled")
			cache = nil
		}
	}

	templates, err := notify.LoadTemplates(cfg.Notify.Templates)
	if err != nil {
		log.WithError(err).Error("load notification templates")
		os.Exit(1)
	}
	sender := notify.NewLogSender(log).WithTemplates(templates)

	application, err := app.New(stores, app.Options{
		Sender:        sender,
		NotifyBuffer:  cfg.Notify.Buffer,
		Cache:         cache,
		SweepSchedule: cfg.Offers.SweepSchedule,
	}, log)
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	api, err := httpapi.NewHandler(application, httpapi.Config{
		AuditFile: cfg.Audit.File,
		AuditSize: cfg.Audit.Size,
	})
	if err != nil {
		log.WithError(err).Error("build http handler")
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", api)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      metrics.InstrumentHandler(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start services")
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("http server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown incomplete")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("service shutdown incomplete")
	}
	log.Info("pipeline stopped")
}
