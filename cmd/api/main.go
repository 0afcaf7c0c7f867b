package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/bananabill/backend/api/routes"
	"github.com/bananabill/backend/internal/bills"
	"github.com/bananabill/backend/internal/farmers"
	"github.com/bananabill/backend/internal/payments"
	"github.com/bananabill/backend/internal/sequence"
	"github.com/bananabill/backend/pkg/config"
	"github.com/bananabill/backend/pkg/db"
	"github.com/bananabill/backend/pkg/logger"
	"github.com/bananabill/backend/pkg/migrate"
	"github.com/bananabill/backend/pkg/outbox"
	"github.com/bananabill/backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	numberer, err := sequence.NewNumberer(sequence.NumbererParams{
		Store:       sequence.NewStore(dbClient.DB()),
		MaxPerMonth: cfg.Billing.MaxBillsPerMonth,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bill numberer", err)
		os.Exit(1)
	}

	farmerService, err := farmers.NewService(farmers.ServiceParams{
		Repo: farmers.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create farmer service", err)
		os.Exit(1)
	}

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

	paymentService, err := payments.NewService(payments.ServiceParams{
		Bills:   bills.NewRepository(dbClient.DB()),
		History: payments.NewHistoryRepository(dbClient.DB()),
		Outbox:  outboxService,
		Tx:      dbClient.WithTx,
		Billing: cfg.Billing,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, redisClient, billService, paymentService, farmerService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
