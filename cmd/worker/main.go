package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/SISIYAM/apars/internal/absence"
	"github.com/SISIYAM/apars/internal/config"
	"github.com/SISIYAM/apars/internal/dateutil"
	"github.com/SISIYAM/apars/internal/logging"
	"github.com/SISIYAM/apars/internal/queue"
	"github.com/SISIYAM/apars/internal/store"
)

// Worker consumes queued compute jobs and runs the absence calculator. When
// CALC_BRANCHES is set it also enqueues one job per branch every day at the
// configured UTC hour, so absences materialize without anyone calling the
// API.
func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("schema setup failed")
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "apars:jobs")
	}

	calculator := absence.NewCalculator(absence.NewSQLStore(db.Client), logger)

	if len(cfg.Branches) > 0 {
		go runDailySweep(ctx, q, cfg.Branches, cfg.RunAtHourUTC, logger)
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("queue consume init failed")
	}

	logger.Info().Msg("worker started, waiting for jobs")
	for msg := range messages {
		if msg.Type != "calculate" {
			continue
		}

		job, err := queue.DecodeComputeJob(msg)
		if err != nil {
			logger.Warn().Err(err).Msg("bad job payload, dropping")
			continue
		}

		logger.Info().Str("date", job.Date).Str("branch", job.Branch).Msg("processing job")
		absent, err := calculator.Compute(ctx, job.Date, job.Branch)
		if err != nil {
			logger.Error().Err(err).Str("date", job.Date).Str("branch", job.Branch).Msg("compute failed")
			continue
		}
		logger.Info().
			Str("date", job.Date).
			Str("branch", job.Branch).
			Int("absent_students", len(absent)).
			Msg("job done")
	}

	logger.Info().Msg("worker stopped")
}

// runDailySweep enqueues a compute job per branch once per UTC day at the
// given hour.
func runDailySweep(ctx context.Context, q queue.Queue, branches []string, hourUTC int, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastRun string
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			day := now.UTC().Format(dateutil.DayFormat)
			if now.UTC().Hour() != hourUTC || day == lastRun {
				continue
			}
			lastRun = day
			for _, branch := range branches {
				msg, err := queue.NewComputeMessage(queue.ComputeJob{Date: day, Branch: branch})
				if err == nil {
					err = q.Publish(ctx, msg)
				}
				if err != nil {
					logger.Error().Err(err).Str("branch", branch).Msg("sweep enqueue failed")
					continue
				}
				logger.Info().Str("date", day).Str("branch", branch).Msg("sweep job enqueued")
			}
		}
	}
}
