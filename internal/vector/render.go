package vector

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Default canvas size used when the caller passes a non-positive dimension.
const (
	DefaultWidth  = 200
	DefaultHeight = 200
)

var (
	// ErrEmptyDocument is returned for a zero-length document.
	ErrEmptyDocument = errors.New("empty vector document")

	// ErrZeroSize is returned when the document has no usable width or height.
	ErrZeroSize = errors.New("vector document has zero size")
)

// RenderError reports a document that could not be rasterized.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("vector render failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Render parses an SVG document and draws it centered on a transparent
// width x height canvas, preserving its aspect ratio.
//
// Failures are always returned as *RenderError; no partial image is returned.
func Render(data []byte, width, height int) (image.Image, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &RenderError{Err: ErrEmptyDocument}
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	vb := icon.ViewBox
	if !(vb.W > 0 && vb.H > 0) || math.IsInf(vb.W, 0) || math.IsInf(vb.H, 0) {
		return nil, &RenderError{Err: ErrZeroSize}
	}

	scale := math.Min(float64(width)/vb.W, float64(height)/vb.H)
	offX := (float64(width) - vb.W*scale) / 2
	offY := (float64(height) - vb.H*scale) / 2
	icon.Transform = rasterx.Identity.
		Translate(offX, offY).
		Scale(scale, scale).
		Translate(-vb.X, -vb.Y)

	canvas := imaging.New(width, height, color.Transparent)
	scanner := rasterx.NewScannerGV(width, height, canvas, canvas.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)
	icon.Draw(raster, 1.0)

	return canvas, nil
}

// Rasterize renders an SVG document like Render and encodes the result as
// PNG.
func Rasterize(data []byte, width, height int) ([]byte, error) {
	img, err := Render(data, width, height)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, &RenderError{Err: fmt.Errorf("failed to encode png: %w", err)}
	}
	return buf.Bytes(), nil
}

// sniffLen is how much of a payload Sniff inspects.
const sniffLen = 1024

// Sniff reports whether data looks like an SVG document. It only inspects
// the first kilobyte.
func Sniff(data []byte) bool {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	head = bytes.TrimSpace(head)
	if len(head) == 0 || head[0] != '<' {
		return false
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}
