package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage labels.
const (
	StageSampling     = "sampling"
	StageSelection    = "selection"
	StageSegmentation = "segmentation"
	StageEnhancement  = "enhancement"
)

var (
	PipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "productshot_pipeline_runs_total",
		Help: "Total number of pipeline runs, by outcome",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "productshot_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	}, []string{"stage"})

	ModelCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "productshot_model_calls_total",
		Help: "Total number of model calls, by stage and result",
	}, []string{"stage", "result"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "productshot_frames_sampled_total",
		Help: "Total number of frames captured from source videos",
	})

	FramesReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "productshot_frames_received_total",
		Help: "Total number of candidate frames handed to the pipeline",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "productshot_http_request_duration_seconds",
		Help:    "Duration of HTTP requests, by method and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
