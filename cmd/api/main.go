package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/ivanivanho-work/template-stamper/internal/adapter/repo"
	"github.com/ivanivanho-work/template-stamper/internal/http/handlers"
	"github.com/ivanivanho-work/template-stamper/internal/http/httpapi"
	"github.com/ivanivanho-work/template-stamper/internal/infra"
	"github.com/ivanivanho-work/template-stamper/internal/infra/geoip"
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
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize blob store")
	}

	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	enqueuer := orchestrator.NewEnqueuer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer enqueuer.Close()

	geoResolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}

	app := &handlers.App{
		Jobs:      repo.NewJobRepository(runner),
		Templates: repo.NewTemplateRepository(runner),
		Assets:    repo.NewAssetRepository(runner),
		Store:     store,
		Enqueuer:  enqueuer,
		Artifacts: render.NewClient(cfg.RenderURL, cfg.RenderWebhookURL, cfg.RenderTimeout),
		Progress:  render.NewProgressCache(redisClient),
		Geo:       geoResolver,
		OutputTTL: cfg.OutputURLTTL,
		Logger:    logger,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// newStore prefers MinIO; without credentials it falls back to the local
// filesystem store, which is enough for development.
func newStore(ctx context.Context, cfg *infra.Config) (storage.Store, error) {
	if cfg.MinioAccessKey != "" {
		return storage.NewMinioStore(ctx, cfg)
	}
	return storage.NewFileStore(cfg.StoragePath, cfg.PublicBaseURL)
}
