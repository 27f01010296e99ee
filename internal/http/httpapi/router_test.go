package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"productshot/internal/domain"
	"productshot/internal/http/handlers"
)

type noopRunner struct{}

func (noopRunner) Run(ctx context.Context, frames []domain.Frame) (*domain.ProcessedData, error) {
	return &domain.ProcessedData{IdentifiedProduct: domain.DefaultProductName}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	app := handlers.NewApp(noopRunner{}, nil, 1<<20)
	srv := httptest.NewServer(NewRouter(app, Options{Logger: zerolog.New(io.Discard), AllowedOrigins: []string{"*"}}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("healthz = %d, request id %q", resp.StatusCode, resp.Header.Get("X-Request-ID"))
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "productshot_http_request_duration_seconds") {
		t.Fatalf("metrics = %d, missing http histogram", resp.StatusCode)
	}
}

func TestRouterRejectsWrongMethod(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/v1/process-video")
	if err != nil {
		t.Fatalf("GET process-video: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
