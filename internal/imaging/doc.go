// Package imaging holds the decoded-image type shared by every stage of the
// loader, plus the raster decode and encode helpers built on
// github.com/disintegration/imaging.
//
// # Immutability
//
// A DecodedImage is built once and never mutated. The memory cache hands the
// same pointer to every caller that hits the same key, so consumers must not
// draw into Image. To change pixels, copy them (imaging.Clone) and wrap the
// result with FromImage.
//
// # Supported Formats
//
// Decode accepts PNG, JPEG and GIF, and BMP and TIFF through the decoders
// that disintegration/imaging registers from golang.org/x/image. Vector
// documents are handled by package vector and arrive here as pixels via
// FromImage with Format "svg".
//
// # Size Limit
//
// DecodeLimit reads the header before the pixels and refuses images whose
// declared width times height exceeds the limit, so a small payload cannot
// claim a huge canvas. CheckSize applies the same bound to canvases sized by
// callers, such as SVG rasterization targets.
//
// # Metadata
//
// Width and Height come from the decoded bounds. ColorDepth and HasAlpha are
// derived from the concrete image type:
//   - *image.RGBA64, *image.NRGBA64 -> "16-bit", alpha
//   - *image.Gray16 -> "16-bit"
//   - *image.RGBA, *image.NRGBA, *image.Paletted -> "8-bit", alpha
//   - everything else -> "8-bit"
package imaging
