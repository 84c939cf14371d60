// Command worker records clicks published to RabbitMQ by the API when
// CLICKS_DISPATCHER=amqp.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gamassss/shortlink/internal/config"
	"github.com/gamassss/shortlink/internal/dispatch"
	"github.com/gamassss/shortlink/internal/logger"
	"github.com/gamassss/shortlink/internal/repository/postgres"
	"github.com/gamassss/shortlink/internal/service"
	"github.com/gamassss/shortlink/internal/tracing"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := logger.Initialize(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.OutputPath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
		Service:    "shortlink-worker",
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	log := logger.Get()

	if cfg.Database.Driver != config.DriverPostgres {
		log.Error("The click worker needs STORE_DRIVER=postgres", "store", cfg.Database.Driver)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Setup(cfg.Tracing.ServiceName+"-worker", os.Stdout)
		if err != nil {
			log.Error("Failed to setup tracing", "error", err)
			os.Exit(1)
		}
		defer shutdown(context.Background())
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		log.Error("Invalid database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error("Failed to setup database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	accountant := service.NewClickAccountant(postgres.NewClickRepository(dbPool), nil)

	consumer, err := dispatch.NewAMQPConsumer(cfg.Clicks.AMQPURL, cfg.Clicks.AMQPQueue, accountant, dispatch.PoolConfig{
		Workers:       cfg.Clicks.Workers,
		RecordTimeout: cfg.Clicks.RecordTimeout,
	})
	if err != nil {
		log.Error("Failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	if err := consumer.Run(ctx); err != nil {
		log.Error("Click consumer stopped", "error", err)
		return
	}

	log.Info("Click worker stopped")
}
