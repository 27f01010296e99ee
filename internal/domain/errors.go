package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNoFrames           = fmt.Errorf("%w: no frames were uploaded", ErrInvalidInput)
	ErrMissingCredentials = errors.New("GEMINI_API_KEY is not set")
	ErrSelectionFailed    = errors.New("frame selection failed")
	ErrSegmentationFailed = errors.New("AI failed to segment the product from any frames")
	ErrNoImagePayload     = errors.New("response contained no image payload")
	ErrProviderFailure    = errors.New("provider failure")
)

// IsInputError reports whether err was caused by the caller's input rather
// than by configuration or a remote failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
