package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"productshot/internal/domain"
	"productshot/internal/infra"
)

const (
	DefaultBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	DefaultSelectionModel = "gemini-2.5-flash"
	DefaultImageModel     = "gemini-2.5-flash-image"

	defaultTimeout = 120 * time.Second
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey         string
	BaseURL        string
	SelectionModel string
	ImageModel     string
	HTTPClient     *http.Client
	Logger         *infra.Logger
}

// Client talks to the Gemini generateContent endpoint. One instance is built
// at startup and shared by every pipeline run; it holds no per-call state.
type Client struct {
	apiKey         string
	baseURL        string
	selectionModel string
	imageModel     string
	httpClient     *http.Client
	logger         *infra.Logger
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiGenerationConfig struct {
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with a generous timeout will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}

	return &Client{
		apiKey:         strings.TrimSpace(opts.APIKey),
		baseURL:        baseURL,
		selectionModel: firstNonEmpty(opts.SelectionModel, DefaultSelectionModel),
		imageModel:     firstNonEmpty(opts.ImageModel, DefaultImageModel),
		httpClient:     client,
		logger:         logger,
	}, nil
}

// HasCredentials reports whether an API key is configured.
func (c *Client) HasCredentials() bool {
	return c != nil && c.apiKey != ""
}

// SelectionModel returns the model used for multi-frame analysis.
func (c *Client) SelectionModel() string {
	return c.selectionModel
}

// ImageModel returns the model used for image edits.
func (c *Client) ImageModel() string {
	return c.imageModel
}

// AnalyzeFrames sends the instruction and every image in a single request and
// returns the JSON text produced by the model.
func (c *Client) AnalyzeFrames(ctx context.Context, instruction string, images []domain.Image) (string, error) {
	if !c.HasCredentials() {
		return "", domain.ErrMissingCredentials
	}
	parts := make([]geminiPart, 0, len(images)+1)
	parts = append(parts, geminiPart{Text: instruction})
	for _, img := range images {
		parts = append(parts, inlinePart(img, "image/jpeg"))
	}
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}

	start := time.Now()
	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, c.selectionModel, payload, &response); err != nil {
		return "", err
	}

	text := extractText(response)
	if text == "" {
		return "", fmt.Errorf("%w: empty analysis response", domain.ErrProviderFailure)
	}

	c.logger.Debug().
		Str("model", c.selectionModel).
		Int("images", len(images)).
		Dur("elapsed", time.Since(start)).
		Msg("genai: analyzed frames")

	return text, nil
}

// EditImage asks the image model to transform src according to instruction
// and returns the first image found in the response.
func (c *Client) EditImage(ctx context.Context, instruction string, src domain.Image) (domain.Image, error) {
	if !c.HasCredentials() {
		return domain.Image{}, domain.ErrMissingCredentials
	}
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				inlinePart(src, domain.DefaultImageMIME),
				{Text: instruction},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}

	start := time.Now()
	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, c.imageModel, payload, &response); err != nil {
		return domain.Image{}, err
	}

	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			asset, err := c.decodeInlineAsset(ctx, part)
			if err != nil {
				return domain.Image{}, err
			}
			if asset.IsZero() {
				continue
			}
			c.logger.Debug().
				Str("model", c.imageModel).
				Int("bytes", len(asset.Data)).
				Dur("elapsed", time.Since(start)).
				Msg("genai: edited image")
			return asset, nil
		}
	}
	return domain.Image{}, domain.ErrNoImagePayload
}

func inlinePart(img domain.Image, fallbackMIME string) geminiPart {
	return geminiPart{InlineData: &geminiInlineData{
		MimeType: img.MIME(fallbackMIME),
		Data:     base64.StdEncoding.EncodeToString(img.Data),
	}}
}

func (c *Client) invokeGemini(ctx context.Context, model string, payload any, out any) error {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: invoke gemini: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%w: gemini status %d: %s", domain.ErrProviderFailure, resp.StatusCode, apiErr.Error.Message)
		}
		if msg := strings.TrimSpace(string(data)); msg != "" {
			return fmt.Errorf("%w: gemini status %d: %s", domain.ErrProviderFailure, resp.StatusCode, msg)
		}
		return fmt.Errorf("%w: gemini status %d", domain.ErrProviderFailure, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode gemini response: %v", domain.ErrProviderFailure, err)
	}
	return nil
}

func (c *Client) decodeInlineAsset(ctx context.Context, part geminiPart) (domain.Image, error) {
	if part.InlineData != nil && part.InlineData.Data != "" {
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return domain.Image{}, fmt.Errorf("%w: decode inline data: %v", domain.ErrProviderFailure, err)
		}
		return domain.Image{Data: data, MIMEType: part.InlineData.MimeType}, nil
	}

	if part.FileData != nil && part.FileData.FileURI != "" {
		data, mime, err := c.downloadFile(ctx, part.FileData.FileURI)
		if err != nil {
			return domain.Image{}, err
		}
		return domain.Image{Data: data, MIMEType: firstNonEmpty(part.FileData.MimeType, mime)}, nil
	}

	return domain.Image{}, nil
}

func (c *Client) downloadFile(ctx context.Context, uri string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	// The key only travels to the configured API host.
	if strings.HasPrefix(target, c.baseURL+"/") {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: download file: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("%w: download file status %d: %s", domain.ErrProviderFailure, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func extractText(resp geminiGenerateContentResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
