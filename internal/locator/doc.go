// Package locator classifies image locator strings and derives cache keys.
//
// A locator is whatever the caller hands over to identify an image: an
// http(s) URL, a path on the local filesystem, or a "resource://" reference
// into the embedded resource tree. Classification is cheap and never fails;
// strings that match nothing come back as Unresolved and are treated as
// local paths by the loader.
//
// # Cache Keys
//
// Remote locators map to a Key built from the URL path with every "/"
// replaced by "_" and a ".cache" suffix:
//
//	https://cdn.example/img/logo.png  ->  _img_logo.png.cache
//
// The same key names the in-memory entry and the on-disk file. Host and
// query string are not part of the key, so two hosts serving the same path
// share an entry.
package locator
