// Package storage puts generated images where clients can fetch them.
//
// Objects are addressed by key ("logos/<id>.png"). URL returns the public
// address of a key, whether or not the object exists yet, so a record can
// carry its final URL before upload completes.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNotExist is returned by Get for a missing key.
var ErrNotExist = errors.New("storage: object does not exist")

type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	URL(key string) string
}

// ContentTypeForKey guesses a content type from the key's extension.
func ContentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
