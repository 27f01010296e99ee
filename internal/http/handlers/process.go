package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"productshot/internal/domain"
	"productshot/internal/middleware"
	"productshot/internal/storage"
	"productshot/pkg/zip"
)

const (
	msgNoFrames           = "No frames were uploaded."
	msgMissingKey         = "GEMINI_API_KEY is not set."
	msgSegmentationFailed = "AI failed to segment the product from any frames."
	msgSelectionFailed    = "AI failed to identify the product in the uploaded frames."
	msgUploadTooLarge     = "Upload is too large."
	msgNotMultipart       = "Request must be multipart/form-data."
	msgUnreadableUpload   = "Upload could not be read."
	msgProcessingFailed   = "Failed to process the video frames."
)

var errNotMultipart = fmt.Errorf("%w: request is not multipart", domain.ErrInvalidInput)

// ProcessVideo runs the pipeline over every file part of a multipart upload,
// in body order, and returns the generated views as JSON or, with
// ?format=zip, as an archive.
func (a *App) ProcessVideo(w http.ResponseWriter, r *http.Request) {
	log := a.Logger.With().Str("request_id", middleware.RequestIDFromContext(r.Context())).Logger()

	if a.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	}
	frames, err := readFrames(r)
	if err != nil {
		log.Warn().Err(err).Msg("process-video: rejected upload")
		a.fail(w, err)
		return
	}
	log.Info().Int("frames", len(frames)).Msg("process-video: upload received")

	data, err := a.Pipeline.Run(r.Context(), frames)
	if err != nil {
		a.fail(w, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "zip") {
		a.writeArchive(w, data)
		return
	}
	a.json(w, http.StatusOK, data)
}

func (a *App) writeArchive(w http.ResponseWriter, data *domain.ProcessedData) {
	assets, err := storage.ViewAssets(data)
	if err != nil {
		a.Logger.Error().Err(err).Msg("process-video: build archive")
		a.error(w, http.StatusInternalServerError, msgProcessingFailed)
		return
	}
	archive, err := zip.ArchiveAssets(assets, time.Now().UTC())
	if err != nil {
		a.Logger.Error().Err(err).Msg("process-video: build archive")
		a.error(w, http.StatusInternalServerError, msgProcessingFailed)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="product-shots.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// fail maps pipeline and upload errors to a status and user-facing message.
func (a *App) fail(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		a.error(w, http.StatusBadRequest, msgUploadTooLarge)
	case errors.Is(err, domain.ErrNoFrames):
		a.error(w, http.StatusBadRequest, msgNoFrames)
	case errors.Is(err, errNotMultipart):
		a.error(w, http.StatusBadRequest, msgNotMultipart)
	case domain.IsInputError(err):
		a.error(w, http.StatusBadRequest, msgUnreadableUpload)
	case errors.Is(err, domain.ErrMissingCredentials):
		a.error(w, http.StatusInternalServerError, msgMissingKey)
	case errors.Is(err, domain.ErrSegmentationFailed):
		a.error(w, http.StatusInternalServerError, msgSegmentationFailed)
	case errors.Is(err, domain.ErrSelectionFailed):
		a.error(w, http.StatusInternalServerError, msgSelectionFailed)
	default:
		a.error(w, http.StatusInternalServerError, msgProcessingFailed)
	}
}

// readFrames collects file parts in the order they appear in the body.
// Non-file fields and empty files are skipped.
func readFrames(r *http.Request) ([]domain.Frame, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return nil, errNotMultipart
	}
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, errNotMultipart
	}

	var frames []domain.Frame
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapReadError(err)
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}
		var buf bytes.Buffer
		_, err = io.Copy(&buf, part)
		_ = part.Close()
		if err != nil {
			return nil, wrapReadError(err)
		}
		if buf.Len() == 0 {
			continue
		}
		data := buf.Bytes()
		frames = append(frames, domain.Frame{
			Index: len(frames),
			Image: domain.Image{Data: data, MIMEType: partMIME(part.Header.Get("Content-Type"), data)},
		})
	}
	if len(frames) == 0 {
		return nil, domain.ErrNoFrames
	}
	return frames, nil
}

func wrapReadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: read upload: %v", domain.ErrInvalidInput, err)
}

// partMIME trusts a declared image type and sniffs everything else.
func partMIME(declared string, data []byte) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	return http.DetectContentType(data)
}
