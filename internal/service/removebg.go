package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

// MaxUploadSize bounds images sent for background removal.
const MaxUploadSize = 10 << 20

// RemovedBackground is the upstream response, relayed as-is.
type RemovedBackground struct {
	ContentType string
	Data        []byte
}

// BackgroundRemover forwards images to an external background removal
// endpoint.
type BackgroundRemover struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewBackgroundRemover(endpoint string, client *http.Client, logger *slog.Logger) *BackgroundRemover {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &BackgroundRemover{endpoint: endpoint, client: client, logger: logger}
}

// Enabled reports whether an endpoint is configured.
func (b *BackgroundRemover) Enabled() bool {
	return b.endpoint != ""
}

// Remove sends the image as the multipart field "file".
func (b *BackgroundRemover) Remove(ctx context.Context, filename string, image io.Reader) (*RemovedBackground, error) {
	if !b.Enabled() {
		return nil, fmt.Errorf("removing background: no endpoint configured")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("removing background: %w", err)
	}
	if _, err := io.Copy(part, io.LimitReader(image, MaxUploadSize)); err != nil {
		return nil, fmt.Errorf("removing background: reading upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("removing background: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("removing background: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("removing background: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4*MaxUploadSize))
	if err != nil {
		return nil, fmt.Errorf("removing background: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b.logger.Error("background removal rejected",
			slog.Int("status", resp.StatusCode),
			slog.Int("body_bytes", len(data)),
		)
		return nil, fmt.Errorf("removing background: upstream status %d", resp.StatusCode)
	}

	b.logger.Info("background removed",
		slog.String("filename", filename),
		slog.Duration("elapsed", time.Since(start)),
	)
	return &RemovedBackground{
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
