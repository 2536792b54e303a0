// Package imaging places a generated logo on product mock-up backgrounds.
//
// A Template is a background image (a t-shirt in a given colour). Composite
// scales the logo to fit the print area and centres it on the template.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// Template is a named background. Name ends up in the output key
// ("<logo>_<name>.png").
type Template struct {
	Name  string
	Image image.Image
}

// printArea is the fraction of the template's shorter side the logo may
// occupy.
const printArea = 0.45

// DefaultTemplateNames are the shirt colours every logo is rendered on.
var DefaultTemplateNames = []string{"black", "grey", "white"}

var shirtColors = map[string]color.Color{
	"black": color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff},
	"grey":  color.RGBA{R: 0x8c, G: 0x8c, B: 0x8c, A: 0xff},
	"white": color.RGBA{R: 0xf4, G: 0xf4, B: 0xf4, A: 0xff},
}

// LoadTemplates reads <dir>/<name>.png (or .jpg) for each name. With an
// empty dir the built-in flat shirt renders are used.
func LoadTemplates(dir string, names []string) ([]Template, error) {
	out := make([]Template, 0, len(names))
	for _, name := range names {
		if dir == "" {
			img, err := renderShirt(name, 1200, 1400)
			if err != nil {
				return nil, err
			}
			out = append(out, Template{Name: name, Image: img})
			continue
		}

		img, err := loadFirst(filepath.Join(dir, name+".png"), filepath.Join(dir, name+".jpg"))
		if err != nil {
			return nil, fmt.Errorf("imaging: loading template %s: %w", name, err)
		}
		out = append(out, Template{Name: name, Image: img})
	}
	return out, nil
}

func loadFirst(paths ...string) (image.Image, error) {
	var lastErr error
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			lastErr = err
			continue
		}
		return gg.LoadImage(p)
	}
	return nil, lastErr
}

// renderShirt draws a flat t-shirt silhouette on a light backdrop.
func renderShirt(name string, w, h int) (image.Image, error) {
	c, ok := shirtColors[name]
	if !ok {
		return nil, fmt.Errorf("imaging: no built-in template %q", name)
	}

	dc := gg.NewContext(w, h)
	dc.SetRGB255(0xe9, 0xe9, 0xe9)
	dc.Clear()

	fw, fh := float64(w), float64(h)
	dc.MoveTo(fw*0.30, fh*0.08)
	dc.LineTo(fw*0.42, fh*0.05)
	dc.QuadraticTo(fw*0.50, fh*0.12, fw*0.58, fh*0.05)
	dc.LineTo(fw*0.70, fh*0.08)
	dc.LineTo(fw*0.95, fh*0.25)
	dc.LineTo(fw*0.85, fh*0.37)
	dc.LineTo(fw*0.75, fh*0.30)
	dc.LineTo(fw*0.75, fh*0.95)
	dc.LineTo(fw*0.25, fh*0.95)
	dc.LineTo(fw*0.25, fh*0.30)
	dc.LineTo(fw*0.15, fh*0.37)
	dc.LineTo(fw*0.05, fh*0.25)
	dc.ClosePath()
	dc.SetColor(c)
	dc.Fill()

	return dc.Image(), nil
}

// Composite returns tpl with logo scaled into the print area and centred,
// encoded as PNG.
func Composite(tpl Template, logo image.Image) ([]byte, error) {
	tb := tpl.Image.Bounds()
	dc := gg.NewContext(tb.Dx(), tb.Dy())
	dc.DrawImage(tpl.Image, 0, 0)

	scaled := fit(logo, int(float64(min(tb.Dx(), tb.Dy()))*printArea))
	dc.DrawImageAnchored(scaled, tb.Dx()/2, tb.Dy()/2, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("imaging: encoding %s composite: %w", tpl.Name, err)
	}
	return buf.Bytes(), nil
}

// fit scales img down so neither side exceeds limit. Smaller images are
// returned unchanged.
func fit(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return img
	}

	scale := float64(limit) / float64(w)
	if h > w {
		scale = float64(limit) / float64(h)
	}
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Decode reads a PNG or JPEG.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decoding image: %w", err)
	}
	return img, nil
}

// Mockup is one rendered template.
type Mockup struct {
	Template string
	Data     []byte
}

// CompositeAll renders logo onto every template concurrently. It returns
// the first error, after all renders have stopped. Results keep the
// templates' order.
func CompositeAll(ctx context.Context, templates []Template, logo image.Image) ([]Mockup, error) {
	out := make([]Mockup, len(templates))
	g, ctx := errgroup.WithContext(ctx)

	for i, tpl := range templates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := Composite(tpl, logo)
			if err != nil {
				return err
			}
			out[i] = Mockup{Template: tpl.Name, Data: data}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodePNG re-encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
