package locator

import (
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	tests := []struct {
		name     string
		input    string
		wantKind Kind
		wantName string
	}{
		{"https url", "https://cdn.example/img.png", RemoteHTTP, "/img.png"},
		{"http url with query", "http://cdn.example/a/b.svg?x=1", RemoteHTTP, "/a/b.svg"},
		{"upper-case scheme", "HTTPS://cdn.example/img.png", RemoteHTTP, "/img.png"},
		{"existing file", existing, LocalFile, existing},
		{"resource", "resource://icons/logo.svg", EmbeddedResource, "icons/logo.svg"},
		{"ftp url", "ftp://cdn.example/img.png", Unresolved, "ftp://cdn.example/img.png"},
		{"missing file", filepath.Join(dir, "nope.png"), Unresolved, filepath.Join(dir, "nope.png")},
		{"directory", dir, Unresolved, dir},
		{"malformed", "http://[::1", Unresolved, "http://[::1"},
		{"scheme without host", "http:foo.png", Unresolved, "http:foo.png"},
		{"empty", "", Unresolved, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := Classify(tt.input)
			assert.Equal(t, tt.wantKind, loc.Kind)
			assert.Equal(t, tt.wantName, loc.Name)
			assert.Equal(t, tt.input, loc.Raw)
			if tt.wantKind == RemoteHTTP {
				require.NotNil(t, loc.URL)
			} else {
				assert.Nil(t, loc.URL)
			}
		})
	}
}

func TestClassify_EmptySkipsFilesystem(t *testing.T) {
	calls := 0
	c := Classifier{Stat: func(name string) (fs.FileInfo, error) {
		calls++
		return nil, fs.ErrNotExist
	}}

	loc := c.Classify("")
	assert.True(t, loc.IsEmpty())
	assert.Equal(t, Unresolved, loc.Kind)

	loc = c.Classify("   ")
	assert.True(t, loc.IsEmpty())
	assert.Zero(t, calls)
}

func TestClassify_RemoteSkipsFilesystem(t *testing.T) {
	c := Classifier{Stat: func(name string) (fs.FileInfo, error) {
		t.Fatalf("unexpected stat of %q", name)
		return nil, nil
	}}
	assert.Equal(t, RemoteHTTP, c.Classify("https://cdn.example/img.png").Kind)
}

func TestIsVectorName(t *testing.T) {
	assert.True(t, IsVectorName("logo.svg"))
	assert.True(t, IsVectorName("/a/LOGO.SVG"))
	assert.False(t, IsVectorName("logo.svgz"))
	assert.False(t, IsVectorName("logo.png"))
	assert.False(t, IsVectorName(""))
}

func TestKeyFor(t *testing.T) {
	mustParse := func(s string) *url.URL {
		u, err := url.Parse(s)
		require.NoError(t, err)
		return u
	}

	tests := []struct {
		in   string
		want Key
	}{
		{"https://cdn.example/img.png", "_img.png.cache"},
		{"https://cdn.example/a/b/c.jpg?w=10", "_a_b_c.jpg.cache"},
		{"https://cdn.example", "_.cache"},
		{"https://cdn.example/icons/logo.svg", "_icons_logo.svg.cache"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KeyFor(mustParse(tt.in)), tt.in)
	}
}

func TestKeyFor_Deterministic(t *testing.T) {
	a := Classify("https://cdn.example/a/b.png")
	b := Classify("https://cdn.example/a/b.png")
	c := Classify("https://cdn.example/a/c.png")

	ka, ok := a.Key()
	require.True(t, ok)
	kb, _ := b.Key()
	kc, _ := c.Key()

	assert.Equal(t, ka, kb)
	assert.NotEqual(t, ka, kc)
}

func TestLocatorKey_NonRemote(t *testing.T) {
	_, ok := Classify("resource://icons/logo.svg").Key()
	assert.False(t, ok)
}

func TestKey_Vector(t *testing.T) {
	raster := Key("_img_photo.cache")
	assert.False(t, raster.IsVector())
	assert.Equal(t, Key("_img_photo.svg.cache"), raster.Vector())
	assert.True(t, raster.Vector().IsVector())

	vector := Key("_icons_logo.svg.cache")
	assert.True(t, vector.IsVector())
	assert.Equal(t, vector, vector.Vector())
}
