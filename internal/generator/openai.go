package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// OpenAI calls the /v1/images/generations endpoint.
type OpenAI struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries uint64
	backoff    time.Duration
	logger     *slog.Logger
}

var _ Generator = (*OpenAI)(nil)

type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries uint64
}

func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("generator: OpenAI API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &OpenAI{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		backoff:    time.Second,
		logger:     logger.With(slog.String("component", "openai")),
	}, nil
}

type imagesRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imagesResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

// HTTPError is a non-2xx reply from the API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (o *OpenAI) Generate(ctx context.Context, req Request) (*Image, error) {
	body := imagesRequest{
		Model:          req.Model,
		Prompt:         req.Prompt,
		N:              1,
		Size:           req.Size,
		Quality:        req.Quality,
		Style:          req.Style,
		ResponseFormat: "b64_json",
	}

	var resp imagesResponse
	if err := o.do(ctx, "/v1/images/generations", body, &resp); err != nil {
		return nil, fmt.Errorf("generator: generating image: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("generator: no image returned")
	}

	item := resp.Data[0]
	img := &Image{
		URL:           strings.TrimSpace(item.URL),
		RevisedPrompt: strings.TrimSpace(item.RevisedPrompt),
	}
	if b64 := strings.TrimSpace(item.B64JSON); b64 != "" {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("generator: decoding image base64: %w", err)
		}
		img.Data = raw
	}
	if len(img.Data) == 0 && img.URL == "" {
		return nil, errors.New("generator: image response has neither data nor url")
	}
	return img, nil
}

// do retries rate limits, server errors and network failures with
// exponential backoff. Other errors return immediately.
func (o *OpenAI) do(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	attempt := 0
	b := retry.WithMaxRetries(o.maxRetries, retry.NewExponential(o.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		raw, err := o.doOnce(ctx, path, payload)
		if err != nil {
			if retryable(err) {
				o.logger.Warn("openai request retrying",
					slog.String("path", path),
					slog.Int("attempt", attempt),
					slog.String("error", err.Error()),
				)
				return retry.RetryableError(err)
			}
			return err
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
}

func (o *OpenAI) doOnce(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
