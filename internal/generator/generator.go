// Package generator talks to text-to-image backends.
package generator

import (
	"context"
)

// Request is one image generation call. Fields are passed to the backend
// as-is; defaults are applied by the caller.
type Request struct {
	Prompt  string
	Model   string
	Size    string
	Quality string
	Style   string
}

// Image is a generated image. Backends fill Data, URL, or both; callers
// download URL when Data is empty.
type Image struct {
	Data          []byte
	URL           string
	RevisedPrompt string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (*Image, error)
}
