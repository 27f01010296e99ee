package genai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strconv"

	"github.com/rs/zerolog"

	"productshot/internal/domain"
	"productshot/internal/infra"
)

const syntheticSize = 512

// Synthetic is an offline stand-in for the Gemini models. Every answer is
// derived from a hash of the inputs, so repeated runs on the same frames
// produce byte-identical output.
type Synthetic struct {
	logger *infra.Logger
}

// NewSynthetic returns a deterministic model. A nil logger discards output.
func NewSynthetic(logger *infra.Logger) *Synthetic {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Synthetic{logger: logger}
}

// HasCredentials always reports true; the synthetic model needs none.
func (s *Synthetic) HasCredentials() bool {
	return true
}

// AnalyzeFrames names a generic product and picks frames spread evenly over
// the candidate set.
func (s *Synthetic) AnalyzeFrames(ctx context.Context, instruction string, images []domain.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	count := min(domain.MaxSelectedFrames, len(images))
	indices := make([]int, count)
	for i := range indices {
		indices[i] = i * len(images) / count
	}
	payload, err := json.Marshal(map[string]any{
		"product_name":       domain.DefaultProductName,
		"best_frame_indices": indices,
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug().Int("images", len(images)).Ints("indices", indices).Msg("genai: synthetic frame analysis")
	return string(payload), nil
}

// EditImage renders a striped PNG seeded by the instruction and source bytes.
func (s *Synthetic) EditImage(ctx context.Context, instruction string, src domain.Image) (domain.Image, error) {
	if err := ctx.Err(); err != nil {
		return domain.Image{}, err
	}
	sum := sha256.Sum256(src.Data)
	seed := deterministicSeed(instruction, hex.EncodeToString(sum[:]))
	data := renderSyntheticImage(syntheticSize, syntheticSize, seed)
	if data == nil {
		return domain.Image{}, domain.ErrNoImagePayload
	}
	return domain.Image{Data: data, MIMEType: "image/png"}, nil
}

func renderSyntheticImage(width, height int, seed string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripeHeight := max(32, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		stripe := image.Rect(0, y, width, min(height, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	diagonal := colorFromSeed(seed, 2)
	for x := 0; x < max(width, height); x += max(16, width/32) {
		for y := 0; y < height; y++ {
			xx := x + y
			if xx >= width {
				break
			}
			img.Set(xx, y, diagonal)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if seed == "" {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{
		R: parseHexByte(segment[0:2]),
		G: parseHexByte(segment[2:4]),
		B: parseHexByte(segment[4:6]),
		A: 255,
	}
}

func parseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(hasher, "%v|", part)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
