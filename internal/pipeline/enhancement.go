package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"productshot/internal/domain"
	"productshot/internal/metrics"
)

// enhance renders each cut-out on a studio backdrop. A failed call keeps the
// cut-out as the final image, so every input yields exactly one outcome.
func (p *Pipeline) enhance(ctx context.Context, log zerolog.Logger, segmented []domain.SegmentationOutcome) []domain.EnhancementOutcome {
	results := fanOut(ctx, p.concurrency, segmented, func(ctx context.Context, s domain.SegmentationOutcome) (domain.Image, error) {
		src := *s.Segmented
		src.MIMEType = src.MIME(domain.DefaultImageMIME)
		return p.model.EditImage(ctx, enhancementInstruction, src)
	})

	outcomes := make([]domain.EnhancementOutcome, len(segmented))
	for i, res := range results {
		s := segmented[i]
		if res.err == nil && !res.value.IsZero() {
			metrics.ModelCallsTotal.WithLabelValues(metrics.StageEnhancement, "ok").Inc()
			outcomes[i] = domain.EnhancementOutcome{SourceIndex: s.SourceIndex, Enhanced: res.value}
			continue
		}
		if res.err == nil {
			res.err = domain.ErrNoImagePayload
		}
		metrics.ModelCallsTotal.WithLabelValues(metrics.StageEnhancement, "fallback").Inc()
		log.Warn().Err(res.err).Int("frame_index", s.SourceIndex).Msg("pipeline: enhancement failed, keeping segmented image")
		outcomes[i] = domain.EnhancementOutcome{SourceIndex: s.SourceIndex, Enhanced: *s.Segmented, Fallback: true}
	}
	return outcomes
}
