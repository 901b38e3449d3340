// cmd/worker/main.go
package main

import (
	"context"
	"os"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/kolwatch/kolwatch/internal/config"
	"github.com/kolwatch/kolwatch/internal/jobs"
	"github.com/kolwatch/kolwatch/internal/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to connect to database")
	}
	defer pool.Close()
	st := store.New(pool)

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency:    8,
		StrictPriority: false,
		Queues: map[string]int{
			"background": 10,
			"default":    5,
		},
	})

	resolver := &jobs.Resolver{Store: st, Log: logger}
	approver := &jobs.Approver{
		Store: st,
		Thresholds: jobs.ApprovalThresholds{
			MinFollowers: cfg.AutoApproveMinFollowers,
			MinScore:     cfg.AutoApproveMinScore,
		},
		Log: logger,
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TaskResolveCalls, resolver.Handle)
	mux.HandleFunc(jobs.TaskProcessApprovals, approver.Handle)

	logger.Info().Msg("worker running")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}
