package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/ivanivanho-work/template-stamper/internal/adapter/repo"
	"github.com/ivanivanho-work/template-stamper/internal/infra"
	"github.com/ivanivanho-work/template-stamper/internal/orchestrator"
	"github.com/ivanivanho-work/template-stamper/internal/render"
	"github.com/ivanivanho-work/template-stamper/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	jobs := repo.NewJobRepository(runner)
	templates := repo.NewTemplateRepository(runner)

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: blob store init failed")
	}

	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	defer redisClient.Close()

	progress := render.NewProgressSink(jobs, render.NewProgressCache(redisClient), logger)

	o := orchestrator.New(orchestrator.Options{
		Jobs:      jobs,
		Templates: templates,
		Store:     store,
		Backend:   render.NewClient(cfg.RenderURL, cfg.RenderWebhookURL, cfg.RenderTimeout),
		Progress:  progress,
		Mode:      cfg.RenderMode,
		InputTTL:  cfg.InputURLTTL,
		OutputTTL: cfg.OutputURLTTL,
		Logger:    logger,
	})

	reaper := orchestrator.NewReaper(jobs, cfg.ReaperInterval, cfg.ReaperAfter, logger)
	go reaper.Run(ctx)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword},
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues:      map[string]int{"default": 1},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(orchestrator.TypeRenderJob, o.HandleRenderTask)

	go func() {
		logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker started")
		if err := srv.Run(mux); err != nil {
			logger.Fatal().Err(err).Msg("worker: task server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	srv.Shutdown()
}

func newStore(ctx context.Context, cfg *infra.Config) (storage.Store, error) {
	if cfg.MinioAccessKey != "" {
		return storage.NewMinioStore(ctx, cfg)
	}
	return storage.NewFileStore(cfg.StoragePath, cfg.PublicBaseURL)
}
