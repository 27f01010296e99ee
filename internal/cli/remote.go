package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"productshot/internal/domain"
)

type remoteError struct {
	Error string `json:"error"`
}

// processRemote uploads frames, in order, to a running API.
func processRemote(ctx context.Context, client *http.Client, server string, frames []domain.Frame) (*domain.ProcessedData, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, f := range frames {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="frames"; filename=%q`, frameName(f.Index)))
		h.Set("Content-Type", f.MIME("image/jpeg"))
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("build upload: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("build upload: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	endpoint := strings.TrimRight(server, "/") + "/v1/process-video"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var apiErr remoteError
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var data domain.ProcessedData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode server response: %w", err)
	}
	return &data, nil
}
