// Package cache implements the two cache tiers used by the loader.
//
// Memory is a bounded, least-recently-used map from cache key to decoded
// image. Disk is a flat directory of raw payloads named by cache key. Both
// are keyed by locator.Key and both follow first-writer-wins: once a key is
// present, later writes for it are ignored until the tier is cleared.
//
// A Store bundles the two tiers. It is constructed explicitly and passed to
// the loader; there is no package-level cache, so tests can build isolated
// stores in temporary directories.
//
// # Disk Layout
//
//	<root>/ImageCache/_img_photo.png.cache
//	<root>/ImageCache/_icons_logo.svg.cache
//
// There is no index file. Presence is a plain stat. Writes go to a hidden
// temporary file in the same directory and are renamed into place, so a
// reader never sees a partially written entry.
//
// # Thread Safety
//
// Memory, Disk and Store are safe for concurrent use.
package cache
