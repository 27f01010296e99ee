package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"productshot/internal/domain"
	"productshot/internal/metrics"
)

// selectionPayload mirrors the JSON the model is asked for. Both fields are
// optional; defaults are applied in parseSelection.
type selectionPayload struct {
	ProductName      string    `json:"product_name"`
	BestFrameIndices []float64 `json:"best_frame_indices"`
}

// selectFrames issues the single batched analysis call. Transport errors and
// malformed payloads are fatal; there is no retry.
func (p *Pipeline) selectFrames(ctx context.Context, frames []domain.Frame) (domain.Selection, error) {
	text, err := p.model.AnalyzeFrames(ctx, selectionInstruction, domain.Images(frames))
	if err != nil {
		metrics.ModelCallsTotal.WithLabelValues(metrics.StageSelection, "error").Inc()
		return domain.Selection{}, wrapSelection(err)
	}
	selection, err := parseSelection(text, len(frames))
	if err != nil {
		metrics.ModelCallsTotal.WithLabelValues(metrics.StageSelection, "malformed").Inc()
		return domain.Selection{}, wrapSelection(err)
	}
	metrics.ModelCallsTotal.WithLabelValues(metrics.StageSelection, "ok").Inc()
	return selection, nil
}

func wrapSelection(err error) error {
	if errors.Is(err, domain.ErrMissingCredentials) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrSelectionFailed, err)
}

// parseSelection decodes the model's answer and applies the documented
// defaults: a placeholder product name, and the first frames when no
// indices were returned. Index lists are truncated to MaxSelectedFrames.
// Range checking is left to the caller.
func parseSelection(raw string, frameCount int) (domain.Selection, error) {
	fragment := extractJSONFragment(raw)
	if fragment == "" {
		return domain.Selection{}, errors.New("empty selection payload")
	}
	var payload selectionPayload
	if err := json.Unmarshal([]byte(fragment), &payload); err != nil {
		return domain.Selection{}, err
	}

	selection := domain.Selection{ProductName: strings.TrimSpace(norm.NFC.String(payload.ProductName))}
	if selection.ProductName == "" {
		selection.ProductName = domain.DefaultProductName
	}

	if len(payload.BestFrameIndices) == 0 {
		selection.Indices = defaultIndices(frameCount)
		return selection, nil
	}

	raw64 := payload.BestFrameIndices
	if len(raw64) > domain.MaxSelectedFrames {
		raw64 = raw64[:domain.MaxSelectedFrames]
	}
	selection.Indices = make([]int, 0, len(raw64))
	for _, v := range raw64 {
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return domain.Selection{}, errors.New("frame index is not an integer")
		}
		selection.Indices = append(selection.Indices, int(v))
	}
	return selection, nil
}

func defaultIndices(frameCount int) []int {
	n := min(domain.MaxSelectedFrames, frameCount)
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func extractJSONFragment(raw string) string {
	text := trimCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return ""
	}
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
