package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ironsheep/network-image-mcp/internal/cache"
	"github.com/ironsheep/network-image-mcp/internal/fetch"
)

const logoSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50">
  <rect width="100" height="50" fill="#3366ff"/>
</svg>`

// pngBytes encodes a solid w x h PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{10, 20, 30, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// inflatedPNG returns a 1x1 PNG whose header claims width x height pixels.
func inflatedPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	binary.BigEndian.PutUint32(data[16:], uint32(width))
	binary.BigEndian.PutUint32(data[20:], uint32(height))
	binary.BigEndian.PutUint32(data[29:], crc32.ChecksumIEEE(data[12:29]))
	return data
}

// reply is what the fake CDN sends for one request. A non-nil err simulates
// a transport failure.
type reply struct {
	status      int
	body        []byte
	contentType string
	err         error
}

// fakeCDN is an http.RoundTripper that answers every host from a handler
// and records the URLs it was asked for.
type fakeCDN struct {
	mu       sync.Mutex
	handler  func(r *http.Request) reply
	requests []string
}

func newFakeCDN(handler func(r *http.Request) reply) *fakeCDN {
	return &fakeCDN{handler: handler}
}

func (c *fakeCDN) RoundTrip(r *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, r.URL.String())
	c.mu.Unlock()

	rep := c.handler(r)
	if rep.err != nil {
		return nil, rep.err
	}
	if rep.status == 0 {
		rep.status = http.StatusOK
	}
	header := http.Header{}
	if rep.contentType != "" {
		header.Set("Content-Type", rep.contentType)
	}
	return &http.Response{
		StatusCode: rep.status,
		Status:     http.StatusText(rep.status),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(rep.body)),
		Request:    r,
	}, nil
}

func (c *fakeCDN) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requests...)
}

// fetcherFunc adapts a function to the Fetcher interface.
type fetcherFunc func(ctx context.Context, rawURL string, opts fetch.Options) (*fetch.Response, error)

func (f fetcherFunc) Fetch(ctx context.Context, rawURL string, opts fetch.Options) (*fetch.Response, error) {
	return f(ctx, rawURL, opts)
}

var testResources = fstest.MapFS{
	"icons/logo.svg":   {Data: []byte(logoSVG)},
	"icons/broken.svg": {Data: []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 0 0"></svg>`)},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestLoader builds a Loader with an isolated store whose network goes
// through cdn.
func newTestLoader(t *testing.T, cdn *fakeCDN, mutate ...func(*Config)) *Loader {
	t.Helper()

	resources := fstest.MapFS{}
	for name, f := range testResources {
		resources[name] = f
	}
	resources["images/placeholder.png"] = &fstest.MapFile{Data: pngBytes(t, 3, 3)}

	cfg := Config{
		Store:     cache.NewStore(cache.Options{Root: t.TempDir(), MemoryCapacity: 16}),
		Fetcher:   fetch.New(fetch.Config{Client: &http.Client{Transport: cdn}}),
		Resources: fs.FS(resources),
		Logger:    discardLogger(),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg)
}

// collect drains a load's events.
func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("load did not finish")
			return nil
		}
	}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("load did not finish")
	}
}
