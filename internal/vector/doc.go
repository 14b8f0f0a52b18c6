// Package vector rasterizes SVG documents into fixed-size bitmaps.
//
// Parsing and path rendering use github.com/srwiley/oksvg and
// github.com/srwiley/rasterx, which cover the SVG subset that icons and
// simple illustrations use (paths, basic shapes, gradients, groups and
// transforms). Text elements and filters are ignored.
//
// # Scaling
//
// The document viewBox (or width/height when there is no viewBox) is scaled
// uniformly by min(width/docWidth, height/docHeight) and centered on a
// transparent canvas of exactly width x height pixels. A 100x50 document
// rendered at 200x200 is drawn at 200x100 with 50 transparent rows above
// and below.
package vector
