package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"productshot/internal/bootstrap"
	"productshot/internal/http/handlers"
	httpapi "productshot/internal/http/httpapi"
	"productshot/internal/infra"
	"productshot/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	tp, err := infra.InitTracer(ctx, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracing")
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	model, err := bootstrap.Model(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build model client")
	}

	runner := pipeline.New(model, pipeline.Options{
		MaxConcurrency: cfg.PipelineMaxConcurrency,
		Logger:         &logger,
	})
	app := handlers.NewApp(runner, &logger, cfg.MaxUploadBytes)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("model_mode", cfg.ModelMode).Msg("API listening")
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
