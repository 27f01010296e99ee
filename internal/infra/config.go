package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Model modes accepted by MODEL_MODE.
const (
	ModelModeGemini    = "gemini"
	ModelModeSynthetic = "synthetic"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	GeminiAPIKey         string
	GeminiBaseURL        string
	GeminiSelectionModel string
	GeminiImageModel     string
	GeminiTimeout        time.Duration
	ModelMode            string

	PipelineMaxConcurrency int
	SampleFrameCount       int
	MaxUploadBytes         int64

	CORSAllowedOrigins []string
	OTLPEndpoint       string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// The Gemini key is optional here; runs fail with a configuration error when it is missing.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:                 getEnv("APP_ENV", "development"),
		Port:                   getEnv("PORT", "8080"),
		DatabaseURL:            strings.TrimSpace(os.Getenv("DATABASE_URL")),
		GeminiAPIKey:           strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:          getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiSelectionModel:   getEnv("GEMINI_SELECTION_MODEL", "gemini-2.5-flash"),
		GeminiImageModel:       getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiTimeout:          time.Second * time.Duration(getEnvInt("GEMINI_TIMEOUT_SECONDS", 120)),
		ModelMode:              strings.ToLower(getEnv("MODEL_MODE", ModelModeGemini)),
		PipelineMaxConcurrency: getEnvInt("PIPELINE_MAX_CONCURRENCY", 5),
		SampleFrameCount:       getEnvInt("SAMPLE_FRAME_COUNT", 30),
		MaxUploadBytes:         int64(getEnvInt("MAX_UPLOAD_MB", 64)) << 20,
		CORSAllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		OTLPEndpoint:           strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		HTTPReadTimeout:        time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 60)),
		HTTPWriteTimeout:       time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 600)),
		HTTPIdleTimeout:        time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	switch cfg.ModelMode {
	case ModelModeGemini, ModelModeSynthetic:
	default:
		return nil, fmt.Errorf("MODEL_MODE must be %q or %q, got %q", ModelModeGemini, ModelModeSynthetic, cfg.ModelMode)
	}

	if cfg.GeminiTimeout <= 0 {
		return nil, fmt.Errorf("GEMINI_TIMEOUT_SECONDS must be positive")
	}

	if cfg.PipelineMaxConcurrency < 1 {
		return nil, fmt.Errorf("PIPELINE_MAX_CONCURRENCY must be at least 1")
	}

	if cfg.SampleFrameCount < 1 {
		return nil, fmt.Errorf("SAMPLE_FRAME_COUNT must be at least 1")
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	return cfg, nil
}

// UseSynthetic reports whether the offline model is selected.
func (c *Config) UseSynthetic() bool {
	return c != nil && c.ModelMode == ModelModeSynthetic
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
