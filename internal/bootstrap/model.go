// Package bootstrap assembles the model client shared by the API server and
// the CLI.
package bootstrap

import (
	"context"
	"net/http"

	"productshot/internal/infra"
	"productshot/internal/infra/credentials"
	"productshot/internal/pipeline"
	"productshot/internal/providers/genai"
)

// Model returns the synthetic model or a Gemini client. The Gemini key comes
// from the environment, then from the credential store when a database is
// configured. A missing key is not fatal here; runs report it.
func Model(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (pipeline.Model, error) {
	if cfg.UseSynthetic() {
		return genai.NewSynthetic(logger), nil
	}

	key := cfg.GeminiAPIKey
	if key == "" && cfg.DatabaseURL != "" {
		key = storedKey(ctx, cfg, logger)
	}
	if key == "" {
		logger.Warn().Msg("GEMINI_API_KEY is not set; runs will fail until it is configured")
	}

	return genai.NewClient(genai.Options{
		APIKey:         key,
		BaseURL:        cfg.GeminiBaseURL,
		SelectionModel: cfg.GeminiSelectionModel,
		ImageModel:     cfg.GeminiImageModel,
		HTTPClient:     &http.Client{Timeout: cfg.GeminiTimeout},
		Logger:         logger,
	})
}

func storedKey(ctx context.Context, cfg *infra.Config, logger *infra.Logger) string {
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("credential store unavailable")
		return ""
	}
	defer pool.Close()

	store := credentials.NewStore(infra.NewSQLRunner(pool, *logger))
	key, err := credentials.ResolveGeminiKey(ctx, "", store)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load gemini key from credential store")
		return ""
	}
	return key
}
