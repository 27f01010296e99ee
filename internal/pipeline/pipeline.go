// Package pipeline turns a batch of candidate frames into enhanced product
// shots. A run is strictly staged: selection, then segmentation fan-out,
// then enhancement fan-out, each stage fully settling before the next starts.
package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"productshot/internal/domain"
	"productshot/internal/infra"
	"productshot/internal/metrics"
)

// DefaultMaxConcurrency allows every selected frame to be in flight at once.
const DefaultMaxConcurrency = domain.MaxSelectedFrames

// Model is the generative vision model consumed by the pipeline.
type Model interface {
	// AnalyzeFrames sends all images with the instruction in one call and
	// returns the model's JSON text.
	AnalyzeFrames(ctx context.Context, instruction string, images []domain.Image) (string, error)
	// EditImage returns a single generated image conditioned on src.
	EditImage(ctx context.Context, instruction string, src domain.Image) (domain.Image, error)
}

// CredentialChecker is implemented by models that need credentials.
type CredentialChecker interface {
	HasCredentials() bool
}

// Options configures a Pipeline.
type Options struct {
	MaxConcurrency int
	Logger         *infra.Logger
}

// Pipeline owns a model client and runs frames through every stage.
type Pipeline struct {
	model       Model
	concurrency int
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// New builds a Pipeline around model.
func New(model Model, opts Options) *Pipeline {
	logger := zerolog.New(io.Discard)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	concurrency := opts.MaxConcurrency
	if concurrency <= 0 {
		concurrency = DefaultMaxConcurrency
	}
	return &Pipeline{
		model:       model,
		concurrency: concurrency,
		logger:      logger,
		tracer:      otel.Tracer("productshot/pipeline"),
	}
}

// Run processes frames and returns the assembled views. The returned error is
// one of the fatal kinds: input, configuration, selection or total
// segmentation failure. Per-frame failures never surface here.
func (p *Pipeline) Run(ctx context.Context, frames []domain.Frame) (*domain.ProcessedData, error) {
	runID := uuid.NewString()
	log := p.logger.With().Str("run_id", runID).Logger()

	ctx, span := p.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("frames.count", len(frames)),
	))
	defer span.End()

	data, err := p.run(ctx, log, frames)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.PipelineRunsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		log.Error().Err(err).Msg("pipeline: run failed")
		return nil, err
	}
	metrics.PipelineRunsTotal.WithLabelValues("succeeded").Inc()
	log.Info().
		Str("product", data.IdentifiedProduct).
		Int("views", len(data.GeneratedViews)).
		Msg("pipeline: run completed")
	return data, nil
}

func (p *Pipeline) run(ctx context.Context, log zerolog.Logger, frames []domain.Frame) (*domain.ProcessedData, error) {
	if len(frames) == 0 {
		return nil, domain.ErrNoFrames
	}
	if checker, ok := p.model.(CredentialChecker); ok && !checker.HasCredentials() {
		return nil, domain.ErrMissingCredentials
	}
	metrics.FramesReceivedTotal.Add(float64(len(frames)))

	var selection domain.Selection
	err := p.stage(ctx, metrics.StageSelection, func(ctx context.Context) error {
		var err error
		selection, err = p.selectFrames(ctx, frames)
		return err
	})
	if err != nil {
		return nil, err
	}

	chosen := resolveFrames(log, frames, selection.Indices)
	log.Info().
		Str("product", selection.ProductName).
		Ints("indices", selection.Indices).
		Int("chosen", len(chosen)).
		Msg("pipeline: frames selected")

	var segmented []domain.SegmentationOutcome
	err = p.stage(ctx, metrics.StageSegmentation, func(ctx context.Context) error {
		var err error
		segmented, err = p.segment(ctx, log, selection.ProductName, chosen)
		return err
	})
	if err != nil {
		return nil, err
	}

	var enhanced []domain.EnhancementOutcome
	_ = p.stage(ctx, metrics.StageEnhancement, func(ctx context.Context) error {
		enhanced = p.enhance(ctx, log, segmented)
		return nil
	})

	return assemble(selection.ProductName, segmented, enhanced), nil
}

// stage wraps fn in a span and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name)
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// resolveFrames maps selected indices to frames, dropping any index that does
// not name a sampled frame and any repeat of an index already chosen. Each
// chosen frame is re-indexed by its position in frames.
func resolveFrames(log zerolog.Logger, frames []domain.Frame, indices []int) []domain.Frame {
	chosen := make([]domain.Frame, 0, len(indices))
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(frames) {
			log.Warn().Int("frame_index", idx).Int("frames", len(frames)).Msg("pipeline: discarding out-of-range frame index")
			continue
		}
		if _, dup := seen[idx]; dup {
			log.Warn().Int("frame_index", idx).Msg("pipeline: discarding repeated frame index")
			continue
		}
		seen[idx] = struct{}{}
		frame := frames[idx]
		frame.Index = idx
		chosen = append(chosen, frame)
	}
	return chosen
}

// assemble pairs each segmentation outcome with the enhancement outcome at
// the same position, keeping selection order.
func assemble(product string, segmented []domain.SegmentationOutcome, enhanced []domain.EnhancementOutcome) *domain.ProcessedData {
	views := make([]domain.GeneratedView, 0, len(segmented))
	for i, s := range segmented {
		if s.Segmented == nil {
			continue
		}
		enhancedImage := s.Segmented.Data
		if i < len(enhanced) {
			e := enhanced[i]
			if e.SourceIndex == s.SourceIndex && !e.Fallback && !e.Enhanced.IsZero() {
				enhancedImage = e.Enhanced.Data
			}
		}
		views = append(views, domain.GeneratedView{
			OriginalFrame:  s.Original.Data,
			SegmentedImage: s.Segmented.Data,
			EnhancedImage:  enhancedImage,
		})
	}
	return &domain.ProcessedData{IdentifiedProduct: product, GeneratedViews: views}
}

func outcomeLabel(err error) string {
	switch {
	case domain.IsInputError(err):
		return "invalid_input"
	case errors.Is(err, domain.ErrMissingCredentials):
		return "misconfigured"
	case errors.Is(err, domain.ErrSelectionFailed):
		return "selection_failed"
	case errors.Is(err, domain.ErrSegmentationFailed):
		return "segmentation_failed"
	default:
		return "failed"
	}
}
