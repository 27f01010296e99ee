package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"productshot/internal/domain"
	"productshot/internal/metrics"
)

// segment asks the model for a transparent cut-out of the product in each
// chosen frame. Frames whose call fails or returns no image are dropped; if
// none survive the run cannot continue.
func (p *Pipeline) segment(ctx context.Context, log zerolog.Logger, product string, frames []domain.Frame) ([]domain.SegmentationOutcome, error) {
	instruction := segmentationInstruction(product)
	results := fanOut(ctx, p.concurrency, frames, func(ctx context.Context, f domain.Frame) (domain.Image, error) {
		return p.model.EditImage(ctx, instruction, f.Image)
	})

	outcomes := make([]domain.SegmentationOutcome, 0, len(frames))
	for i, res := range results {
		frame := frames[i]
		if res.err == nil && res.value.IsZero() {
			res.err = domain.ErrNoImagePayload
		}
		if res.err != nil {
			metrics.ModelCallsTotal.WithLabelValues(metrics.StageSegmentation, "error").Inc()
			log.Warn().Err(res.err).Int("frame_index", frame.Index).Msg("pipeline: segmentation failed, dropping frame")
			continue
		}
		metrics.ModelCallsTotal.WithLabelValues(metrics.StageSegmentation, "ok").Inc()
		segmented := res.value
		outcomes = append(outcomes, domain.SegmentationOutcome{
			SourceIndex: frame.Index,
			Original:    frame.Image,
			Segmented:   &segmented,
		})
	}

	if len(outcomes) == 0 {
		return nil, domain.ErrSegmentationFailed
	}
	return outcomes, nil
}
