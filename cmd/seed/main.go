// Command seed fills the links tables with synthetic data for load tests.
// Codes are prefixed by tier (hot_, warm_, cold_) so a load script can pick a
// cache-friendly or cache-hostile key set.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/gamassss/shortlink/internal/config"
	"github.com/gamassss/shortlink/internal/logger"
	"github.com/gamassss/shortlink/internal/repository/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertLink = `
	WITH l AS (
		INSERT INTO links (id, destination, short_code, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, short_code
	)
	INSERT INTO link_codes (code, link_id) SELECT short_code, id FROM l`

type tier struct {
	prefix      string
	count       int
	destination string
	age         time.Duration
}

type seeder struct {
	pool      *pgxpool.Pool
	batchSize int
	workers   int
	log       *slog.Logger
}

func main() {
	hot := flag.Int("hot", 100, "links in the hot tier")
	warm := flag.Int("warm", 10000, "links in the warm tier")
	cold := flag.Int("cold", 100000, "links in the cold tier")
	batchSize := flag.Int("batch", 5000, "rows per batch")
	workers := flag.Int("workers", 4, "parallel writers for the cold tier")
	truncate := flag.Bool("truncate", true, "remove existing links first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := logger.Initialize(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	log := logger.Get()

	if err := postgres.Migrate(cfg.Database.URL, log); err != nil {
		log.Error("Failed to migrate", "error", err)
		return
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Error("Unable to connect to database", "error", err)
		return
	}
	defer pool.Close()

	s := &seeder{pool: pool, batchSize: *batchSize, workers: *workers, log: log}

	if *truncate {
		if _, err := pool.Exec(ctx, "TRUNCATE links CASCADE"); err != nil {
			log.Error("Failed to clear data", "error", err)
			return
		}
	}

	start := time.Now()
	tiers := []tier{
		{prefix: "hot", count: *hot, destination: "https://youtube.com/watch?v=%07d", age: time.Minute},
		{prefix: "warm", count: *warm, destination: "https://github.com/repo/%07d", age: time.Hour},
	}
	for _, t := range tiers {
		if err := s.insertRange(ctx, t, 1, t.count); err != nil {
			log.Error("Failed to insert links", "tier", t.prefix, "error", err)
			return
		}
		log.Info("Tier inserted", "tier", t.prefix, "links", t.count)
	}

	coldTier := tier{prefix: "cold", count: *cold, destination: "https://example.com/page/%07d", age: time.Second}
	if err := s.insertParallel(ctx, coldTier); err != nil {
		log.Error("Failed to insert links", "tier", coldTier.prefix, "error", err)
		return
	}
	log.Info("Tier inserted", "tier", coldTier.prefix, "links", coldTier.count)

	for _, table := range []string{"links", "link_codes"} {
		if _, err := pool.Exec(ctx, "ANALYZE "+table); err != nil {
			log.Warn("Failed to analyze table", "table", table, "error", err)
		}
	}

	if err := s.verify(ctx, *hot+*warm+*cold); err != nil {
		log.Warn("Data verification failed", "error", err)
	}

	log.Info("Seeding completed", "duration", time.Since(start))
}

func (s *seeder) insertParallel(ctx context.Context, t tier) error {
	if t.count == 0 {
		return nil
	}

	workers := s.workers
	if workers < 1 || workers > t.count {
		workers = 1
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	perWorker := t.count / workers

	for id := 0; id < workers; id++ {
		from := id*perWorker + 1
		to := from + perWorker - 1
		if id == workers-1 {
			to = t.count
		}

		wg.Add(1)
		go func(id, from, to int) {
			defer wg.Done()
			if err := s.insertRange(ctx, t, from, to); err != nil {
				errs <- fmt.Errorf("worker %d: %w", id, err)
			}
		}(id, from, to)
	}

	wg.Wait()
	close(errs)

	return <-errs
}

func (s *seeder) insertRange(ctx context.Context, t tier, from, to int) error {
	now := time.Now()

	for i := from; i <= to; i += s.batchSize {
		end := min(i+s.batchSize-1, to)

		batch := &pgx.Batch{}
		for j := i; j <= end; j++ {
			batch.Queue(insertLink,
				uuid.New(),
				fmt.Sprintf(t.destination, j),
				fmt.Sprintf("%s_%07d", t.prefix, j),
				now.Add(-time.Duration(j)*t.age),
			)
		}

		if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("batch %d-%d: %w", i, end, err)
		}

		s.log.Debug("Batch inserted", "tier", t.prefix, "from", i, "to", end)
	}

	return nil
}

func (s *seeder) verify(ctx context.Context, expected int) error {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM link_codes").Scan(&count); err != nil {
		return err
	}

	if count != int64(expected) {
		return fmt.Errorf("expected %d codes but got %d", expected, count)
	}

	return nil
}
