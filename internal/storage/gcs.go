package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores objects in a Google Cloud Storage bucket. Objects are read
// through a CDN domain in front of the bucket when one is configured.
type GCS struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

var _ Store = (*GCS)(nil)

// NewGCS uses Application Default Credentials. cdnBaseURL may be empty, in
// which case the public storage.googleapis.com URL is used.
func NewGCS(ctx context.Context, bucket, cdnBaseURL string) (*GCS, error) {
	client, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	if err != nil {
		return nil, fmt.Errorf("storage: creating GCS client: %w", err)
	}
	if cdnBaseURL == "" {
		cdnBaseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCS{client: client, bucket: bucket, baseURL: cdnBaseURL}, nil
}

func (g *GCS) Put(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if w.ContentType == "" {
		w.ContentType = ContentTypeForKey(key)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: writing %s to GCS: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: closing GCS writer for %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s in GCS: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("storage: reading %s from GCS: %w", key, err)
	}
	return data, nil
}

func (g *GCS) URL(key string) string {
	return joinURL(g.baseURL, key)
}

func (g *GCS) Close() error {
	return g.client.Close()
}
