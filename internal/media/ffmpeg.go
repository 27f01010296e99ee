package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegDecoder reads frames by shelling out to ffmpeg and ffprobe. It keeps
// a single seek position and is not safe for concurrent use.
type FFmpegDecoder struct {
	FFmpegPath  string
	FFprobePath string

	path     string
	position float64
}

// NewFFmpegDecoder returns a decoder for the video at path.
func NewFFmpegDecoder(path string) (*FFmpegDecoder, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("media: video path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("media: open video: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("media: %s is a directory", path)
	}
	return &FFmpegDecoder{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe", path: path}, nil
}

// CheckTools reports an error when ffmpeg or ffprobe is not on PATH.
func (d *FFmpegDecoder) CheckTools() error {
	for _, tool := range []string{d.FFmpegPath, d.FFprobePath} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("media: %s not found: %w", tool, err)
		}
	}
	return nil
}

// Duration probes the container duration in seconds.
func (d *FFmpegDecoder) Duration(ctx context.Context) (float64, error) {
	cmd := exec.CommandContext(ctx, d.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		d.path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("media: ffprobe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseDuration(string(out))
}

// SeekTo sets the position used by the next capture.
func (d *FFmpegDecoder) SeekTo(ctx context.Context, seconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return fmt.Errorf("media: invalid seek position %v", seconds)
	}
	d.position = seconds
	return nil
}

// CaptureFrame encodes the frame at the current position as a JPEG.
func (d *FFmpegDecoder) CaptureFrame(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, d.FFmpegPath, d.captureArgs()...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("media: ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("media: no frame decoded at %.3fs", d.position)
	}
	return out, nil
}

func (d *FFmpegDecoder) captureArgs() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(d.position, 'f', 3, 64),
		"-i", d.path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-",
	}
}

func parseDuration(raw string) (float64, error) {
	text := strings.TrimSpace(raw)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	if text == "" || text == "N/A" {
		return 0, errors.New("media: duration unavailable")
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("media: parse duration %q: %w", text, err)
	}
	return v, nil
}
