package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"
)

// DefaultMaxPixels is the pixel count Decode accepts.
const DefaultMaxPixels = 50_000_000

var (
	// ErrEmpty is returned when there are no bytes to decode.
	ErrEmpty = errors.New("empty image data")

	// ErrTooLarge is returned when an image would exceed the pixel limit.
	ErrTooLarge = errors.New("image exceeds pixel limit")
)

// DecodedImage is a ready-to-display raster image with its metadata.
//
// A DecodedImage is never modified after it is built. The same handle may be
// held by the memory cache and by any number of consumers at once; a newer
// image always replaces an older one by substitution.
type DecodedImage struct {
	// Image holds the pixels. Callers must treat it as read-only.
	Image image.Image `json:"-"`

	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the source encoding: "png", "jpeg", "gif", "bmp", "tiff",
	// or "svg" for rasterized vector documents.
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the pixel type carries an alpha channel.
	HasAlpha bool `json:"has_alpha"`

	// SizeBytes is the length of the encoded payload the image came from.
	SizeBytes int `json:"size_bytes"`
}

// Decode decodes raster bytes into a DecodedImage, allowing at most
// DefaultMaxPixels pixels.
func Decode(data []byte) (*DecodedImage, error) {
	return DecodeLimit(data, DefaultMaxPixels)
}

// DecodeLimit decodes raster bytes into a DecodedImage.
//
// The header is read first and images declaring more than maxPixels pixels
// are rejected before any pixel buffer is allocated. EXIF orientation is
// applied to JPEG images so the pixels come out upright.
//
// # Errors
//
//   - ErrEmpty if data has no bytes
//   - ErrTooLarge if the declared dimensions exceed maxPixels
//   - A wrapped decode error if data is not a supported raster format
func DecodeLimit(data []byte, maxPixels int) (*DecodedImage, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if err := CheckSize(cfg.Width, cfg.Height, maxPixels); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return newDecoded(img, format, len(data)), nil
}

// CheckSize returns ErrTooLarge when a width x height canvas holds more than
// maxPixels pixels. A maxPixels below 1 selects DefaultMaxPixels.
func CheckSize(width, height, maxPixels int) error {
	if maxPixels < 1 {
		maxPixels = DefaultMaxPixels
	}
	if int64(width)*int64(height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d is over %d pixels", ErrTooLarge, width, height, maxPixels)
	}
	return nil
}

// FromImage wraps an already decoded image. format names the payload the
// pixels came from and size is the length of that payload.
func FromImage(img image.Image, format string, size int) *DecodedImage {
	return newDecoded(img, format, size)
}

func newDecoded(img image.Image, format string, size int) *DecodedImage {
	bounds := img.Bounds()

	// Alpha and color depth follow the concrete pixel type.
	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.Paletted:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	return &DecodedImage{
		Image:      img,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     format,
		ColorDepth: colorDepth,
		HasAlpha:   hasAlpha,
		SizeBytes:  size,
	}
}

// PNG encodes the image as PNG.
func (d *DecodedImage) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, d.Image, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the image to path. The format follows the file extension.
func (d *DecodedImage) Save(path string) error {
	if err := imaging.Save(d.Image, path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
