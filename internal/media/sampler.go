// Package media captures candidate still frames from a source video.
package media

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog"

	"productshot/internal/domain"
	"productshot/internal/infra"
	"productshot/internal/metrics"
)

const (
	// DefaultFrameCount is the number of candidates sampled per video.
	DefaultFrameCount = 30
	// FrameMIME is the encoding of every captured frame.
	FrameMIME = "image/jpeg"

	minDuration = 1.0
)

// ErrDurationTooShort is returned for durations that are not finite or not
// longer than one second.
var ErrDurationTooShort = fmt.Errorf("%w: video duration invalid or too short", domain.ErrInvalidInput)

// Decoder seeks within a single video and captures the frame at the current
// position. Implementations hold one position and are used sequentially.
type Decoder interface {
	SeekTo(ctx context.Context, seconds float64) error
	CaptureFrame(ctx context.Context) ([]byte, error)
}

// Timestamps returns count evenly spaced positions strictly inside
// (0, duration): duration/(count+1)*i for i in 1..count. A non-positive count
// selects DefaultFrameCount.
func Timestamps(duration float64, count int) ([]float64, error) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= minDuration {
		return nil, ErrDurationTooShort
	}
	if count <= 0 {
		count = DefaultFrameCount
	}
	step := duration / float64(count+1)
	out := make([]float64, count)
	for i := range out {
		out[i] = step * float64(i+1)
	}
	return out, nil
}

// Sampler drives a Decoder over a set of timestamps.
type Sampler struct {
	// OnFrame, when set, is called after each captured frame.
	OnFrame func(done, total int)
	Logger  *infra.Logger
}

// Sample captures count frames from dec, one seek and one capture at a time.
// Any failure aborts the whole run; no partial frame set is returned.
func (s *Sampler) Sample(ctx context.Context, dec Decoder, duration float64, count int) ([]domain.Frame, error) {
	stamps, err := Timestamps(duration, count)
	if err != nil {
		return nil, err
	}
	log := s.logger()
	start := time.Now()

	frames := make([]domain.Frame, 0, len(stamps))
	for i, ts := range stamps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := dec.SeekTo(ctx, ts); err != nil {
			return nil, fmt.Errorf("%w: seek to %.3fs: %v", domain.ErrInvalidInput, ts, err)
		}
		data, err := dec.CaptureFrame(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: capture frame at %.3fs: %v", domain.ErrInvalidInput, ts, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty frame at %.3fs", domain.ErrInvalidInput, ts)
		}
		frames = append(frames, domain.Frame{Index: i, Image: domain.Image{Data: data, MIMEType: FrameMIME}})
		if s.OnFrame != nil {
			s.OnFrame(i+1, len(stamps))
		}
	}

	metrics.FramesSampledTotal.Add(float64(len(frames)))
	metrics.StageDuration.WithLabelValues(metrics.StageSampling).Observe(time.Since(start).Seconds())
	log.Debug().Float64("duration", duration).Int("frames", len(frames)).Msg("media: sampled video")
	return frames, nil
}

func (s *Sampler) logger() zerolog.Logger {
	if s == nil || s.Logger == nil {
		return zerolog.New(io.Discard)
	}
	return *s.Logger
}
