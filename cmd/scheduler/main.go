package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadscore_backend/internal/leadscore"
	"leadscore_backend/internal/scheduler"
	"leadscore_backend/platform/config"
	"leadscore_backend/platform/db"
	"leadscore_backend/platform/logger"
	"leadscore_backend/platform/metrics"
	"leadscore_backend/platform/redis"
	"leadscore_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	redisClient, err := redis.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	if redisClient == nil {
		panic("REDIS_URL is required for the scheduler")
	}
	defer func() { _ = redisClient.Close() }()

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize rescore queue client", "error", err)
		panic("failed to initialize rescore queue client: " + err.Error())
	}
	defer func() { _ = queue.Close() }()

	// Worker-side scoring wiring (no HTTP handlers required).
	leadScoreModule, err := leadscore.NewModule(pool, cfg, leadscore.Options{
		Redis:   redisClient,
		Queue:   queue,
		Metrics: metrics.New(prometheus.DefaultRegisterer),
	}, validator.New(), log)
	if err != nil {
		log.Error("failed to initialize lead scoring module", "error", err)
		panic("failed to initialize lead scoring module: " + err.Error())
	}

	sweep := scheduler.NewStaleScoreSweep(leadScoreModule.Service(), log, cfg.GetScoreSweepInterval(), cfg.GetScoreStaleAfter())
	go sweep.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, leadScoreModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
