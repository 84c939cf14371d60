package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gamassss/shortlink/internal/config"
	"github.com/gamassss/shortlink/internal/dispatch"
	"github.com/gamassss/shortlink/internal/handler"
	"github.com/gamassss/shortlink/internal/logger"
	"github.com/gamassss/shortlink/internal/metadata"
	"github.com/gamassss/shortlink/internal/metrics"
	"github.com/gamassss/shortlink/internal/middleware"
	"github.com/gamassss/shortlink/internal/repository/memory"
	"github.com/gamassss/shortlink/internal/repository/postgres"
	redisRepo "github.com/gamassss/shortlink/internal/repository/redis"
	"github.com/gamassss/shortlink/internal/service"
	"github.com/gamassss/shortlink/internal/tracing"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const version = "1.0.0"

// closingDispatcher is the dispatcher main owns and drains on shutdown.
type closingDispatcher interface {
	dispatch.Dispatcher
	Close(ctx context.Context) error
}

type stores struct {
	links  service.LinkRepository
	clicks service.ClickRepository
	pool   *pgxpool.Pool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	loggerConfig := logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.OutputPath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
		Service:    "shortlink-api",
	}

	if err := logger.Initialize(loggerConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	log := logger.Get()
	log.Info("Starting ShortLink API",
		"port", cfg.Server.Port,
		"store", cfg.Database.Driver,
		"dispatcher", cfg.Clicks.Dispatcher,
		"log_level", cfg.Log.Level,
	)

	shutdownTracing := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		shutdownTracing, err = tracing.Setup(cfg.Tracing.ServiceName, os.Stdout)
		if err != nil {
			log.Error("Failed to setup tracing", "error", err)
			os.Exit(1)
		}
	}

	health := handler.NewHealthHandler(version)

	st, err := setupStores(cfg, log)
	if err != nil {
		log.Error("Failed to setup store", "error", err)
		os.Exit(1)
	}
	if st.pool != nil {
		health.WithCheck("database", st.pool.Ping)
	}

	var (
		cache       service.LinkCache
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = setupRedis(cfg)
		if err != nil {
			log.Error("Failed to setup redis", "error", err)
			os.Exit(1)
		}
		cache = redisRepo.NewLinkCache(redisClient)
		health.WithCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	m := metrics.New()

	fetcher := metadata.NewFetcher(metadata.Config{
		Timeout:   cfg.Metadata.Timeout,
		UserAgent: cfg.Metadata.UserAgent,
	}, m)

	var linkFetcher service.MetadataFetcher
	if cfg.Metadata.Enabled {
		linkFetcher = fetcher
	}

	linkService := service.NewLinkService(st.links, cache, linkFetcher, m, service.LinkServiceConfig{
		CodeLength:  cfg.Shortener.CodeLength,
		MaxAttempts: cfg.Shortener.MaxAttempts,
	})
	resolver := service.NewResolver(st.links, cache, cfg.Redis.CacheTTL, m)
	analyticsService := service.NewAnalyticsService(st.links, st.clicks)

	dispatcher, err := setupDispatcher(cfg, service.NewClickAccountant(st.clicks, m), m, health)
	if err != nil {
		log.Error("Failed to setup click dispatcher", "error", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.Handlers{
		Links:     handler.NewLinkHandler(linkService, cfg.Server.BaseURL),
		Redirect:  handler.NewRedirectHandler(resolver, dispatcher, cfg.Server.FallbackURL, m),
		Analytics: handler.NewAnalyticsHandler(analyticsService),
		Metadata:  handler.NewMetadataHandler(fetcher),
		Health:    health,
	}, middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer), m)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", "error", err)
	}

	// Clicks still queued need the store, so drain before closing it.
	if err := dispatcher.Close(ctx); err != nil {
		log.Error("Click dispatcher did not drain", "error", err)
	}

	if st.pool != nil {
		st.pool.Close()
		log.Info("Database connection closed")
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis", "error", err)
		}
	}

	if err := shutdownTracing(ctx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	log.Info("Graceful shutdown completed")
}

func setupStores(cfg *config.Config, log *slog.Logger) (*stores, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("Using in-memory store; links are lost on restart")
		store := memory.NewStore()
		return &stores{links: store, clicks: store}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.URL, log); err != nil {
			return nil, err
		}
	}

	pool, err := setupDatabase(cfg)
	if err != nil {
		return nil, err
	}

	return &stores{
		links:  postgres.NewLinkRepository(pool),
		clicks: postgres.NewClickRepository(pool),
		pool:   pool,
	}, nil
}

func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	dbConfig := cfg.Database
	poolConfig, err := pgxpool.ParseConfig(dbConfig.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(dbConfig.MaxConns)
	poolConfig.MinConns = int32(dbConfig.MinConns)
	poolConfig.MaxConnLifetime = dbConfig.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = dbConfig.MaxConnIdleTime

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return dbPool, nil
}

func setupRedis(cfg *config.Config) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return redisClient, nil
}

func setupDispatcher(cfg *config.Config, recorder dispatch.Recorder, m *metrics.Metrics, health *handler.HealthHandler) (closingDispatcher, error) {
	if cfg.Clicks.Dispatcher == config.DispatcherAMQP {
		if cfg.Database.Driver == config.DriverMemory {
			return nil, errors.New("the amqp dispatcher needs a shared store; use STORE_DRIVER=postgres")
		}

		publisher, err := dispatch.NewAMQPPublisher(cfg.Clicks.AMQPURL, cfg.Clicks.AMQPQueue, m)
		if err != nil {
			return nil, err
		}
		health.WithCheck("amqp", publisher.Ping)
		return publisher, nil
	}

	return dispatch.NewPool(recorder, dispatch.PoolConfig{
		Workers:       cfg.Clicks.Workers,
		QueueSize:     cfg.Clicks.QueueSize,
		RecordTimeout: cfg.Clicks.RecordTimeout,
	}, m), nil
}
