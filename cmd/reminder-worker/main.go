package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bananabill/backend/internal/bills"
	"github.com/bananabill/backend/internal/farmers"
	"github.com/bananabill/backend/internal/reminders"
	"github.com/bananabill/backend/internal/sequence"
	"github.com/bananabill/backend/pkg/config"
	"github.com/bananabill/backend/pkg/db"
	"github.com/bananabill/backend/pkg/logger"
	"github.com/bananabill/backend/pkg/metrics"
	"github.com/bananabill/backend/pkg/migrate"
	"github.com/bananabill/backend/pkg/outbox"
	"github.com/bananabill/backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "reminder-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "reminder-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	farmerService, err := farmers.NewService(farmers.ServiceParams{
		Repo: farmers.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create farmer service", err)
		os.Exit(1)
	}

	numberer, err := sequence.NewNumberer(sequence.NumbererParams{
		Store:       sequence.NewStore(dbClient.DB()),
		MaxPerMonth: cfg.Billing.MaxBillsPerMonth,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bill numberer", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	billService, err := bills.NewService(bills.ServiceParams{
		Repo:     bills.NewRepository(dbClient.DB()),
		Farmers:  farmerService,
		Numberer: numberer,
		Calc:     bills.NewCalculator(cfg.Billing),
		Outbox:   outboxService,
		Tx:       dbClient.WithTx,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bill service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(registry)

	job, err := reminders.NewJob(reminders.JobParams{
		Bills:   billService,
		Emitter: outboxService,
		Locker:  redisClient,
		Tx:      dbClient.WithTx,
		Metrics: jobMetrics,
		Config:  cfg.Reminder,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reminder job", err)
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(":"+cfg.App.Port, mux); err != nil && err != http.ErrServerClosed {
			logg.Error(context.Background(), "metrics server stopped", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting reminder worker")

	interval := cfg.Reminder.PollInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// kick the first run immediately instead of waiting a full interval
	if err := job.Run(ctx); err != nil {
		logg.Error(ctx, "reminder run failed", err)
	}

	for {
		select {
		case <-ctx.Done():
			if !errors.Is(ctx.Err(), context.Canceled) {
				logg.Error(ctx, "reminder worker stopped unexpectedly", ctx.Err())
				os.Exit(1)
			}
			logg.Info(ctx, "reminder worker shutting down gracefully")
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				logg.Error(ctx, "reminder run failed", err)
			}
		}
	}
}
