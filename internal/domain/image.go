package domain

import "strings"

// DefaultImageMIME is assumed for generated images that arrive without a type.
const DefaultImageMIME = "image/png"

// Image is an encoded still image together with its MIME type.
type Image struct {
	Data     []byte
	MIMEType string
}

// IsZero reports whether the image carries no bytes.
func (i Image) IsZero() bool {
	return len(i.Data) == 0
}

// MIME returns the image MIME type, falling back to fallback when unset.
func (i Image) MIME(fallback string) string {
	if m := strings.TrimSpace(i.MIMEType); m != "" {
		return m
	}
	return fallback
}

// Frame is a candidate still captured from the source video. Index is its
// zero-based position in the sampled sequence.
type Frame struct {
	Index int
	Image
}

// Images returns the images of frames in order.
func Images(frames []Frame) []Image {
	out := make([]Image, len(frames))
	for i, f := range frames {
		out[i] = f.Image
	}
	return out
}
