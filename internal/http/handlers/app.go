package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"productshot/internal/domain"
	"productshot/internal/infra"
)

// Runner executes the product-shot pipeline over uploaded frames.
type Runner interface {
	Run(ctx context.Context, frames []domain.Frame) (*domain.ProcessedData, error)
}

type App struct {
	Pipeline       Runner
	Logger         zerolog.Logger
	MaxUploadBytes int64
}

func NewApp(pipeline Runner, logger *infra.Logger, maxUploadBytes int64) *App {
	app := &App{Pipeline: pipeline, Logger: zerolog.New(io.Discard), MaxUploadBytes: maxUploadBytes}
	if logger != nil {
		app.Logger = logger.With().Str("component", "http").Logger()
	}
	return app
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, errorResponse{Error: message})
}
