package locator

import (
	"net/url"
	"strings"
)

const (
	keySuffix    = ".cache"
	vectorSuffix = ".svg"
)

// Key is a cache key. It is also used verbatim as the disk cache file name.
type Key string

// KeyFor derives the cache key for a URL from its path alone.
func KeyFor(u *url.URL) Key {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	return Key(strings.ReplaceAll(p, "/", "_") + keySuffix)
}

// String returns the key as a string.
func (k Key) String() string {
	return string(k)
}

// IsVector reports whether the entry under this key holds an SVG document.
func (k Key) IsVector() bool {
	return IsVectorName(strings.TrimSuffix(string(k), keySuffix))
}

// Vector returns the key under which a vector payload for the same locator
// is stored. Keys that already mark a vector document are returned as is.
func (k Key) Vector() Key {
	if k.IsVector() {
		return k
	}
	return Key(strings.TrimSuffix(string(k), keySuffix) + vectorSuffix + keySuffix)
}
