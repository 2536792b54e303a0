package generator

import (
	"bytes"
	"context"
	"hash/fnv"
	"image/color"
	"time"

	"github.com/fogleman/gg"
)

// Mock renders a placeholder logo locally. It stands in for the real
// backend in development and tests.
type Mock struct {
	Delay time.Duration
	Err   error // returned instead of an image when set
}

var _ Generator = (*Mock)(nil)

func (m *Mock) Generate(ctx context.Context, req Request) (*Image, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	data, err := placeholder(req.Prompt, 256)
	if err != nil {
		return nil, err
	}
	return &Image{Data: data, RevisedPrompt: req.Prompt}, nil
}

// placeholder draws a disc whose colour is derived from the prompt, so
// different prompts give visibly different images.
func placeholder(prompt string, size int) ([]byte, error) {
	h := fnv.New32a()
	h.Write([]byte(prompt))
	sum := h.Sum32()

	dc := gg.NewContext(size, size)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.RGBA{R: uint8(sum >> 16), G: uint8(sum >> 8), B: uint8(sum), A: 255})
	dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)*0.4)
	dc.Fill()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
