package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"productshot/internal/domain"
)

type stubRunner struct {
	frames []domain.Frame
	calls  int
	data   *domain.ProcessedData
	err    error
}

func (s *stubRunner) Run(ctx context.Context, frames []domain.Frame) (*domain.ProcessedData, error) {
	s.calls++
	s.frames = frames
	return s.data, s.err
}

type filePart struct {
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="frames"; filename=%q`, f.name))
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = w.Write(f.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error
}

var (
	jpegBytes = []byte("\xff\xd8\xff\xe0jpeg-frame")
	pngBytes  = []byte("\x89PNG\r\n\x1a\npng-image")
)

func TestProcessVideoKeepsFrameOrder(t *testing.T) {
	runner := &stubRunner{data: &domain.ProcessedData{
		IdentifiedProduct: "Blue Sneaker",
		GeneratedViews: []domain.GeneratedView{
			{OriginalFrame: jpegBytes, SegmentedImage: pngBytes, EnhancedImage: pngBytes},
		},
	}}
	app := NewApp(runner, nil, 1<<20)

	body, contentType := multipartBody(t, map[string]string{"note": "ignored"},
		filePart{name: "frame_2.jpg", contentType: "image/jpeg", data: []byte("second")},
		filePart{name: "frame_1.jpg", data: jpegBytes},
		filePart{name: "empty.jpg", contentType: "image/jpeg"},
		filePart{name: "frame_3.webp", contentType: "image/webp", data: []byte("third")},
	)
	req := httptest.NewRequest(http.MethodPost, "/v1/process-video", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.ProcessVideo(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(runner.frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(runner.frames))
	}
	wantData := []string{"second", string(jpegBytes), "third"}
	wantMIME := []string{"image/jpeg", "image/jpeg", "image/webp"}
	for i, f := range runner.frames {
		if f.Index != i || string(f.Data) != wantData[i] || f.MIMEType != wantMIME[i] {
			t.Fatalf("frame %d = index %d data %q mime %q", i, f.Index, f.Data, f.MIMEType)
		}
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["identifiedProduct"] != "Blue Sneaker" {
		t.Fatalf("identifiedProduct = %v", resp["identifiedProduct"])
	}
	views := resp["generatedViews"].([]any)
	view := views[0].(map[string]any)
	for _, key := range []string{"originalFrame", "segmentedImage", "enhancedImage"} {
		if _, ok := view[key].(string); !ok {
			t.Fatalf("view missing %s: %v", key, view)
		}
	}
}

func TestProcessVideoWithoutFrames(t *testing.T) {
	runner := &stubRunner{}
	app := NewApp(runner, nil, 1<<20)
	body, contentType := multipartBody(t, map[string]string{"product": "x"})
	req := httptest.NewRequest(http.MethodPost, "/v1/process-video", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.ProcessVideo(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "No frames were uploaded." {
		t.Fatalf("error = %q", msg)
	}
	if runner.calls != 0 {
		t.Fatal("pipeline must not run without frames")
	}
}

func TestProcessVideoRejectsNonMultipart(t *testing.T) {
	app := NewApp(&stubRunner{}, nil, 1<<20)
	req := httptest.NewRequest(http.MethodPost, "/v1/process-video", strings.NewReader(`{"frames":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.ProcessVideo(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProcessVideoRejectsOversizedUpload(t *testing.T) {
	runner := &stubRunner{}
	app := NewApp(runner, nil, 64)
	body, contentType := multipartBody(t, nil, filePart{name: "f.jpg", contentType: "image/jpeg", data: bytes.Repeat([]byte("x"), 4096)})
	req := httptest.NewRequest(http.MethodPost, "/v1/process-video", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.ProcessVideo(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if runner.calls != 0 {
		t.Fatal("pipeline must not run for oversized uploads")
	}
}

func TestProcessVideoRejectsTruncatedMultipart(t *testing.T) {
	runner := &stubRunner{}
	app := NewApp(runner, nil, 1<<20)
	body := "--b\r\nContent-Disposition: form-data; name=\"frames\"; filename=\"a.jpg\"\r\n\r\nabc"
	req := httptest.NewRequest(http.MethodPost, "/v1/process-video", strings.NewReader(body))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	rec := httptest.NewRecorder()
	app.ProcessVideo(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Upload could not be read." {
		t.Fatalf("error = %q", msg)
	}
	if runner.calls != 0 {
		t.Fatal("pipeline must not run for an unreadable upload")
	}
}

func TestProcessVideoMapsPipelineErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{err: domain.ErrNoFrames, status: http.StatusBadRequest, msg: "No frames were uploaded."},
		{err: fmt.Errorf("%w: bad part", domain.ErrInvalidInput), status: http.StatusBadRequest, msg: "Upload could not be read."},
		{err: domain.ErrMissingCredentials, status: http.StatusInternalServerError, msg: "GEMINI_API_KEY is not set."},
		{err: domain.ErrSegmentationFailed, status: http.StatusInternalServerError, msg: "AI failed to segment the product from any frames."},
		{err: fmt.Errorf("%w: %w", domain.ErrSelectionFailed, io.ErrUnexpectedEOF), status: http.StatusInternalServerError, msg: msgSelectionFailed},
		{err: context.DeadlineExceeded, status: http.StatusInternalServerError, msg: msgProcessingFailed},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			app := NewApp(&stubRunner{err: tt.err}, nil, 1<<20)
			body, contentType := multipartBody(t, nil, filePart{name: "f.jpg", data: jpegBytes})
			req := httptest.NewRequest(http.MethodPost, "/v1/process-video", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			app.ProcessVideo(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if msg := decodeError(t, rec); msg != tt.msg {
				t.Fatalf("error = %q, want %q", msg, tt.msg)
			}
		})
	}
}

func TestProcessVideoZipFormat(t *testing.T) {
	runner := &stubRunner{data: &domain.ProcessedData{
		IdentifiedProduct: "Mug",
		GeneratedViews: []domain.GeneratedView{
			{OriginalFrame: jpegBytes, SegmentedImage: pngBytes, EnhancedImage: pngBytes},
			{OriginalFrame: jpegBytes, SegmentedImage: pngBytes, EnhancedImage: pngBytes},
		},
	}}
	app := NewApp(runner, nil, 1<<20)
	body, contentType := multipartBody(t, nil, filePart{name: "f.jpg", data: jpegBytes})
	req := httptest.NewRequest(http.MethodPost, "/v1/process-video?format=zip", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.ProcessVideo(rec, req)

	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("status = %d, content-type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	archive := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := "view_01_original.jpg,view_01_segmented.png,view_01_enhanced.png,view_02_original.jpg,view_02_segmented.png,view_02_enhanced.png,result.json"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("entries = %s", got)
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewApp(&stubRunner{}, nil, 0).Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestOpenAPIJSONIsValidJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	NewApp(&stubRunner{}, nil, 0).OpenAPIJSON(rec, httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil))
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("openapi document is not JSON: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/v1/process-video"]; !ok {
		t.Fatal("process-video path missing from openapi document")
	}
}
