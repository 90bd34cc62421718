package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"veostudio/internal/http/handlers"
	httpapi "veostudio/internal/http/httpapi"
	"veostudio/internal/infra"
	"veostudio/internal/metrics"
	"veostudio/internal/providers/genai"
	"veostudio/internal/storage"
	"veostudio/internal/videogen"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewRotatingLogger(cfg.AppEnv, cfg)

	metrics.Init()

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.VeoModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure gemini client")
	}

	poller := videogen.NewPoller(client, videogen.PollerOptions{
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollMaxAttempts,
		Logger:      &logger,
	})
	fetcher := videogen.NewFetcher(client, store, &logger)
	resources := videogen.NewResourceManager(&logger)
	controller := videogen.NewController(client, poller, fetcher, resources, videogen.ControllerOptions{
		Model:  client.Model(),
		Logger: &logger,
	})

	app := handlers.NewApp(controller, store, logger)
	router := httpapi.NewRouter(app, cfg, logger)
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

	// Session-scoped artifacts do not outlive the process.
	controller.Clear()
	logger.Info().Msg("server stopped")
}
