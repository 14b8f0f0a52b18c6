package locator

import (
	"io/fs"
	"net/url"
	"os"
	"strings"
)

// ResourcePrefix marks a locator that names an embedded resource.
const ResourcePrefix = "resource://"

// Kind identifies how a locator will be resolved.
type Kind int

const (
	// Unresolved strings matched no rule. The loader reads them as local paths.
	Unresolved Kind = iota
	// RemoteHTTP is an absolute http or https URL.
	RemoteHTTP
	// LocalFile is a path that exists on the local filesystem.
	LocalFile
	// EmbeddedResource is a "resource://" reference.
	EmbeddedResource
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case RemoteHTTP:
		return "remote"
	case LocalFile:
		return "file"
	case EmbeddedResource:
		return "resource"
	default:
		return "unresolved"
	}
}

// Locator is a classified locator string.
type Locator struct {
	// Raw is the input exactly as supplied.
	Raw string

	// Kind is the classification result.
	Kind Kind

	// Name is the path to read for LocalFile and Unresolved locators, the
	// resource name with the prefix stripped for EmbeddedResource, and the
	// URL path for RemoteHTTP.
	Name string

	// URL is set only for RemoteHTTP locators.
	URL *url.URL
}

// IsEmpty reports whether the locator was built from an empty string.
func (l Locator) IsEmpty() bool {
	return strings.TrimSpace(l.Raw) == ""
}

// IsVector reports whether the locator names an SVG document.
func (l Locator) IsVector() bool {
	return IsVectorName(l.Name)
}

// Key returns the cache key for a remote locator. ok is false for every
// other kind.
func (l Locator) Key() (key Key, ok bool) {
	if l.Kind != RemoteHTTP || l.URL == nil {
		return "", false
	}
	return KeyFor(l.URL), true
}

// StatFunc reports file information for a path. os.Stat satisfies it.
type StatFunc func(name string) (fs.FileInfo, error)

// Classifier turns locator strings into Locators.
type Classifier struct {
	// Stat checks whether a local file exists. Defaults to os.Stat.
	Stat StatFunc
}

// Classify applies the classification rules in order: remote URL, existing
// local file, embedded resource, unresolved. It never panics; malformed input
// simply fails every rule.
func (c Classifier) Classify(input string) Locator {
	loc := Locator{Raw: input, Kind: Unresolved, Name: input}
	if strings.TrimSpace(input) == "" {
		return loc
	}

	if u, err := url.Parse(input); err == nil && u.IsAbs() && u.Host != "" {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			loc.Kind = RemoteHTTP
			loc.URL = u
			loc.Name = u.Path
			return loc
		}
	}

	stat := c.Stat
	if stat == nil {
		stat = os.Stat
	}
	if info, err := stat(input); err == nil && !info.IsDir() {
		loc.Kind = LocalFile
		return loc
	}

	if strings.HasPrefix(input, ResourcePrefix) {
		loc.Kind = EmbeddedResource
		loc.Name = strings.TrimPrefix(input, ResourcePrefix)
		return loc
	}

	return loc
}

// Classify classifies input using the local filesystem.
func Classify(input string) Locator {
	return Classifier{}.Classify(input)
}

// IsVectorName reports whether name ends in ".svg", ignoring case.
func IsVectorName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".svg")
}
