package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"promovid/internal/frames"
	"promovid/internal/http/handlers"
	"promovid/internal/http/httpapi"
	"promovid/internal/infra"
	"promovid/internal/jobstore"
	"promovid/internal/orchestrator"
	"promovid/internal/prompt"
	"promovid/internal/providers/runware"
	"promovid/internal/providers/vision"
	"promovid/internal/storage"
	"promovid/internal/styles"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	uploads, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure upload storage")
	}
	videos, err := storage.NewFileStore(cfg.VideoDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure video storage")
	}

	registry, err := styles.NewRegistry(styles.Options{CatalogPath: cfg.StyleCatalogPath})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load style catalog")
	}

	provider, err := runware.NewClient(runware.Options{
		APIKey:  cfg.RunwareAPIKey,
		BaseURL: cfg.RunwareAPIURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure video provider")
	}

	visionClient, err := vision.NewClient(vision.Options{
		BaseURL: cfg.VisionBaseURL,
		Model:   cfg.VisionModel,
		Uploads: uploads,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure vision client")
	}

	orch := orchestrator.New(orchestrator.Options{
		Store:         jobstore.NewMemoryStore(),
		Registry:      registry,
		Frames:        frames.NewResolver(uploads),
		Composer:      prompt.NewComposer(),
		Provider:      provider,
		Analyzer:      visionClient,
		Uploads:       uploads,
		Videos:        videos,
		PublicBaseURL: cfg.PublicBaseURL,
		PollInterval:  cfg.PollInterval,
		PollAttempts:  cfg.PollAttempts,
		Logger:        logger,
	})

	app := &handlers.App{
		Logger:         logger,
		Orch:           orch,
		Registry:       registry,
		Uploads:        uploads,
		Videos:         videos,
		Vision:         visionClient,
		PublicBaseURL:  cfg.PublicBaseURL,
		ProviderKeySet: cfg.RunwareAPIKey != "",
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		UploadDir:      uploads.BasePath(),
		VideoDir:       videos.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("generation tasks did not settle before shutdown")
	}
	logger.Info().Msg("server stopped")
}
