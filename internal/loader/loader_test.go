package loader

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/network-image-mcp/internal/fetch"
	"github.com/ironsheep/network-image-mcp/internal/imaging"
	"github.com/ironsheep/network-image-mcp/internal/locator"
)

func servePNG(t *testing.T, w, h int) func(*http.Request) reply {
	body := pngBytes(t, w, h)
	return func(*http.Request) reply {
		return reply{body: body, contentType: "image/png"}
	}
}

func TestLoad_NetworkOnlyWithWidth(t *testing.T) {
	cdn := newFakeCDN(servePNG(t, 4, 3))
	l := newTestLoader(t, cdn)

	events := collect(t, l.Load(context.Background(), Request{
		Locator:      "https://cdn.example/img.png",
		RequestWidth: 800,
	}))

	require.Len(t, events, 1)
	ev := events[0]
	assert.True(t, ev.Final)
	assert.Equal(t, Loaded, ev.Outcome)
	assert.Equal(t, SourceNetwork, ev.Source)
	assert.NoError(t, ev.Err)
	assert.NotEmpty(t, ev.LoadID)
	require.NotNil(t, ev.Image)
	assert.Equal(t, 4, ev.Image.Width)
	assert.Equal(t, 3, ev.Image.Height)

	assert.Equal(t, []string{"https://cdn.example/img.png?w=800"}, cdn.Requests())
	assert.Zero(t, l.Store().Memory.Len())
	_, err := os.Stat(l.Store().Disk.Dir())
	assert.True(t, os.IsNotExist(err), "strategy none must not touch the disk cache")
}

func TestLoad_WidthUnsetSendsNoWidth(t *testing.T) {
	cdn := newFakeCDN(servePNG(t, 2, 2))
	l := newTestLoader(t, cdn)

	ev := l.Resolve(context.Background(), Request{Locator: "https://cdn.example/img.png?w=640&v=2"})

	require.Equal(t, Loaded, ev.Outcome)
	assert.Equal(t, []string{"https://cdn.example/img.png?v=2"}, cdn.Requests())
}

func TestLoad_MemoryHitReturnsSameImage(t *testing.T) {
	cdn := newFakeCDN(servePNG(t, 4, 3))
	l := newTestLoader(t, cdn)
	req := Request{Locator: "https://cdn.example/img.png", Strategy: StrategyMemory}

	first := l.Resolve(context.Background(), req)
	require.Equal(t, Loaded, first.Outcome)
	assert.Equal(t, SourceNetwork, first.Source)
	require.Len(t, cdn.Requests(), 1)

	second := collect(t, l.Load(context.Background(), req))
	require.Len(t, second, 1)
	assert.Equal(t, SourceMemory, second[0].Source)
	assert.Same(t, first.Image, second[0].Image)
	assert.Len(t, cdn.Requests(), 1, "memory hit must not fetch")
	assert.NotEqual(t, first.LoadID, second[0].LoadID)
}

func TestLoad_MemoryKeyIgnoresQuery(t *testing.T) {
	cdn := newFakeCDN(servePNG(t, 4, 3))
	l := newTestLoader(t, cdn)

	first := l.Resolve(context.Background(), Request{Locator: "https://cdn.example/a/img.png?v=1", Strategy: StrategyMemory})
	second := l.Resolve(context.Background(), Request{Locator: "https://other.example/a/img.png?v=2", Strategy: StrategyMemory})

	assert.Equal(t, SourceMemory, second.Source)
	assert.Same(t, first.Image, second.Image)
	assert.True(t, l.Store().Memory.Contains(locator.Key("_a_img.png.cache")))
}

func TestLoad_ConcurrentMemoryLoadsShareOneImage(t *testing.T) {
	cdn := newFakeCDN(servePNG(t, 4, 3))
	l := newTestLoader(t, cdn)
	req := Request{Locator: "https://cdn.example/shared.png", Strategy: StrategyMemory}

	const n = 8
	results := make([]Event, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = l.Resolve(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for _, ev := range results {
		require.Equal(t, Loaded, ev.Outcome)
		assert.Same(t, results[0].Image, ev.Image)
	}
	assert.Equal(t, 1, l.Store().Memory.Len())
}

func TestLoad_DiskRoundTrip(t *testing.T) {
	cdn := newFakeCDN(servePNG(t, 5, 4))
	l := newTestLoader(t, cdn)
	req := Request{Locator: "https://cdn.example/photos/cat.png", Strategy: StrategyDisk}

	first := l.Resolve(context.Background(), req)
	require.Equal(t, Loaded, first.Outcome)
	assert.Equal(t, SourceNetwork, first.Source)

	path, ok := l.Store().Disk.Lookup(locator.Key("_photos_cat.png.cache"))
	require.True(t, ok)
	assert.FileExists(t, path)

	second := l.Resolve(context.Background(), req)
	assert.Equal(t, SourceDisk, second.Source)
	assert.Equal(t, 5, second.Image.Width)
	assert.Equal(t, 4, second.Image.Height)
	assert.Len(t, cdn.Requests(), 1, "disk hit must not fetch")
}

func TestLoad_DiskVectorByContentType(t *testing.T) {
	cdn := newFakeCDN(func(*http.Request) reply {
		return reply{body: []byte(logoSVG), contentType: "image/svg+xml; charset=utf-8"}
	})
	l := newTestLoader(t, cdn)
	req := Request{Locator: "https://cdn.example/icons/logo", Strategy: StrategyDisk}

	first := l.Resolve(context.Background(), req)
	require.Equal(t, Loaded, first.Outcome)
	assert.Equal(t, SourceVectorRendered, first.Source)
	assert.Equal(t, 200, first.Image.Width)

	vecKey := locator.Key("_icons_logo.cache").Vector()
	_, ok := l.Store().Disk.Lookup(vecKey)
	assert.True(t, ok, "vector payload is stored under the vector key")
	_, ok = l.Store().Disk.Lookup(locator.Key("_icons_logo.cache"))
	assert.False(t, ok)

	second := l.Resolve(context.Background(), req)
	assert.Equal(t, SourceDisk, second.Source)
	assert.Equal(t, 200, second.Image.Width)
	assert.Len(t, cdn.Requests(), 1)
}

func TestLoad_CorruptDiskEntryIsReplaced(t *testing.T) {
	cdn := newFakeCDN(servePNG(t, 2, 2))
	l := newTestLoader(t, cdn)
	key := locator.Key("_broken.png.cache")
	require.NoError(t, l.Store().Disk.Write(key, []byte("not an image")))
	req := Request{Locator: "https://cdn.example/broken.png", Strategy: StrategyDisk}

	ev := l.Resolve(context.Background(), req)
	assert.Equal(t, Loaded, ev.Outcome)
	assert.Equal(t, SourceNetwork, ev.Source)

	data, err := l.Store().Disk.Read(key)
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t, 2, 2), data, "the fetched payload replaces the bad entry")

	again := l.Resolve(context.Background(), req)
	assert.Equal(t, SourceDisk, again.Source)
	assert.Len(t, cdn.Requests(), 1)
}

func TestLoad_RasterBehindVectorName(t *testing.T) {
	cdn := newFakeCDN(servePNG(t, 6, 3))
	l := newTestLoader(t, cdn)
	req := Request{Locator: "https://cdn.example/art/pic.svg", Strategy: StrategyDisk}

	first := l.Resolve(context.Background(), req)
	require.Equal(t, Loaded, first.Outcome, "%v", first.Err)
	assert.Equal(t, SourceNetwork, first.Source)
	assert.Equal(t, "png", first.Image.Format)

	_, ok := l.Store().Disk.Lookup(locator.Key("_art_pic.svg.cache"))
	require.True(t, ok)

	second := l.Resolve(context.Background(), req)
	assert.Equal(t, SourceDisk, second.Source)
	assert.Equal(t, 6, second.Image.Width)
	assert.Len(t, cdn.Requests(), 1)
}

func TestLoad_OversizedImageFailsToDecode(t *testing.T) {
	cdn := newFakeCDN(func(*http.Request) reply {
		return reply{body: inflatedPNG(t, 16000, 16000), contentType: "image/png"}
	})
	l := newTestLoader(t, cdn)

	ev := l.Resolve(context.Background(), Request{
		Locator:     "https://cdn.example/bomb.png",
		Placeholder: "resource://images/placeholder.png",
	})

	assert.Equal(t, Placeholder, ev.Outcome)
	var lerr *LoadError
	require.ErrorAs(t, ev.Err, &lerr)
	assert.Equal(t, StageDecoding, lerr.Stage)
	assert.Equal(t, KindDecode, lerr.Kind)
	assert.ErrorIs(t, ev.Err, imaging.ErrTooLarge)
}

func TestLoad_MaxPixels(t *testing.T) {
	cdn := newFakeCDN(servePNG(t, 10, 10))
	l := newTestLoader(t, cdn, func(c *Config) { c.MaxPixels = 99 })
	assert.Equal(t, 99, l.MaxPixels())

	ev := l.Resolve(context.Background(), Request{Locator: "https://cdn.example/a.png"})
	assert.ErrorIs(t, ev.Err, imaging.ErrTooLarge)

	// The vector canvas is bounded too.
	ev = l.Resolve(context.Background(), Request{Locator: "resource://icons/logo.svg"})
	assert.ErrorIs(t, ev.Err, imaging.ErrTooLarge)

	assert.Equal(t, imaging.DefaultMaxPixels, newTestLoader(t, cdn).MaxPixels())
}

func TestLoad_CountsOutcomes(t *testing.T) {
	loaded := metricLoads.WithLabelValues("resource", "loaded")
	failed := metricLoads.WithLabelValues("resource", "failed")
	loadedBefore := testutil.ToFloat64(loaded)
	failedBefore := testutil.ToFloat64(failed)

	l := newTestLoader(t, newFakeCDN(servePNG(t, 1, 1)))
	l.Resolve(context.Background(), Request{Locator: "resource://icons/logo.svg"})
	l.Resolve(context.Background(), Request{Locator: "resource://icons/missing.svg"})

	assert.Equal(t, loadedBefore+1, testutil.ToFloat64(loaded))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestLoad_ThumbnailThenFull(t *testing.T) {
	thumb := pngBytes(t, 2, 2)
	full := pngBytes(t, 8, 6)
	cdn := newFakeCDN(func(r *http.Request) reply {
		if r.URL.Query().Get("w") == "200" {
			return reply{body: thumb, contentType: "image/png"}
		}
		return reply{body: full, contentType: "image/png"}
	})
	l := newTestLoader(t, cdn)

	events := collect(t, l.Load(context.Background(), Request{
		Locator:       "https://cdn.example/img.png",
		LoadThumbnail: true,
		RequestWidth:  800,
		Token:         "abc",
	}))

	require.Len(t, events, 2)
	assert.False(t, events[0].Final)
	assert.Equal(t, SourceNetwork, events[0].Source)
	assert.Equal(t, 2, events[0].Image.Width)
	assert.True(t, events[1].Final)
	assert.Equal(t, 8, events[1].Image.Width)
	assert.Equal(t, events[0].LoadID, events[1].LoadID)

	assert.Equal(t, []string{
		"https://cdn.example/img.png?token=abc&w=200",
		"https://cdn.example/img.png?token=abc&w=800",
	}, cdn.Requests())
}

func TestLoad_ThumbnailFailureFallsBackToFull(t *testing.T) {
	full := pngBytes(t, 8, 6)
	cdn := newFakeCDN(func(r *http.Request) reply {
		if r.URL.Query().Get("w") == "200" {
			return reply{status: http.StatusInternalServerError}
		}
		return reply{body: full, contentType: "image/png"}
	})
	l := newTestLoader(t, cdn)

	events := collect(t, l.Load(context.Background(), Request{
		Locator:       "https://cdn.example/img.png",
		LoadThumbnail: true,
	}))

	require.Len(t, events, 1)
	assert.True(t, events[0].Final)
	assert.Equal(t, Loaded, events[0].Outcome)
	assert.Len(t, cdn.Requests(), 2)
}

func TestLoad_ThumbnailSkippedOnCacheHit(t *testing.T) {
	cdn := newFakeCDN(servePNG(t, 4, 3))
	l := newTestLoader(t, cdn)
	req := Request{Locator: "https://cdn.example/img.png", Strategy: StrategyMemory, LoadThumbnail: true}

	first := collect(t, l.Load(context.Background(), req))
	require.Len(t, first, 2)
	requests := len(cdn.Requests())

	second := collect(t, l.Load(context.Background(), req))
	require.Len(t, second, 1)
	assert.Equal(t, SourceMemory, second[0].Source)
	assert.Len(t, cdn.Requests(), requests)
}

func TestLoad_NetworkFailures(t *testing.T) {
	tests := []struct {
		name       string
		reply      reply
		wantKind   ErrorKind
		wantStatus int
	}{
		{
			name:       "status",
			reply:      reply{status: http.StatusNotFound},
			wantKind:   KindNetworkStatus,
			wantStatus: http.StatusNotFound,
		},
		{
			name:     "transport",
			reply:    reply{err: errors.New("connection refused")},
			wantKind: KindNetworkTransport,
		},
		{
			name:     "undecodable body",
			reply:    reply{body: []byte("garbage"), contentType: "image/png"},
			wantKind: KindDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cdn := newFakeCDN(func(*http.Request) reply { return tt.reply })
			l := newTestLoader(t, cdn)

			ev := l.Resolve(context.Background(), Request{Locator: "https://cdn.example/img.png"})

			assert.Equal(t, Failed, ev.Outcome)
			assert.Nil(t, ev.Image)
			var lerr *LoadError
			require.ErrorAs(t, ev.Err, &lerr)
			assert.Equal(t, tt.wantKind, lerr.Kind)
			assert.Equal(t, tt.wantStatus, lerr.StatusCode())
		})
	}
}

func TestLoad_PlaceholderOnFailure(t *testing.T) {
	dir := t.TempDir()
	malformed := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(malformed, []byte("nope"), 0o644))

	tests := []struct {
		name     string
		req      Request
		wantKind ErrorKind
	}{
		{
			name:     "network failure without cache",
			req:      Request{Locator: "https://cdn.example/missing.png"},
			wantKind: KindNetworkStatus,
		},
		{
			name:     "disk miss then network failure",
			req:      Request{Locator: "https://cdn.example/missing.png", Strategy: StrategyDisk},
			wantKind: KindNetworkStatus,
		},
		{
			name:     "malformed local file",
			req:      Request{Locator: malformed},
			wantKind: KindDecode,
		},
		{
			name:     "missing resource",
			req:      Request{Locator: "resource://icons/nope.png"},
			wantKind: KindResourceNotFound,
		},
		{
			name:     "unparseable vector resource",
			req:      Request{Locator: "resource://icons/broken.svg"},
			wantKind: KindVectorParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cdn := newFakeCDN(func(*http.Request) reply { return reply{status: http.StatusNotFound} })
			l := newTestLoader(t, cdn)
			tt.req.Placeholder = "resource://images/placeholder.png"

			ev := l.Resolve(context.Background(), tt.req)

			assert.True(t, ev.Final)
			assert.Equal(t, Placeholder, ev.Outcome)
			assert.Equal(t, SourcePlaceholder, ev.Source)
			require.NotNil(t, ev.Image)
			assert.Equal(t, 3, ev.Image.Width)
			var lerr *LoadError
			require.ErrorAs(t, ev.Err, &lerr)
			assert.Equal(t, tt.wantKind, lerr.Kind)
		})
	}
}

func TestLoad_PlaceholderIsMemoized(t *testing.T) {
	dir := t.TempDir()
	ph := filepath.Join(dir, "placeholder.png")
	require.NoError(t, os.WriteFile(ph, pngBytes(t, 3, 3), 0o644))

	var reads atomic.Int32
	cdn := newFakeCDN(func(*http.Request) reply { return reply{status: http.StatusBadGateway} })
	l := newTestLoader(t, cdn, func(c *Config) {
		c.ReadFile = func(name string) ([]byte, error) {
			reads.Add(1)
			return os.ReadFile(name)
		}
	})
	req := Request{Locator: "https://cdn.example/x.png", Placeholder: ph}

	first := l.Resolve(context.Background(), req)
	second := l.Resolve(context.Background(), req)

	assert.Equal(t, Placeholder, first.Outcome)
	assert.Same(t, first.Image, second.Image)
	assert.Equal(t, int32(1), reads.Load())
}

func TestLoad_UnavailablePlaceholderFails(t *testing.T) {
	cdn := newFakeCDN(func(*http.Request) reply { return reply{status: http.StatusNotFound} })
	l := newTestLoader(t, cdn)

	ev := l.Resolve(context.Background(), Request{
		Locator:     "https://cdn.example/x.png",
		Placeholder: "resource://images/also-missing.png",
	})

	assert.Equal(t, Failed, ev.Outcome)
	assert.Nil(t, ev.Image)
	assert.Equal(t, SourceNone, ev.Source)
}

func TestLoad_EmptyLocator(t *testing.T) {
	var stats, reads atomic.Int32
	cdn := newFakeCDN(servePNG(t, 1, 1))
	l := newTestLoader(t, cdn, func(c *Config) {
		c.Classifier = locator.Classifier{Stat: func(name string) (fs.FileInfo, error) {
			stats.Add(1)
			return os.Stat(name)
		}}
		c.ReadFile = func(name string) ([]byte, error) {
			reads.Add(1)
			return os.ReadFile(name)
		}
	})

	ev := l.Resolve(context.Background(), Request{
		Locator:     "",
		Placeholder: "resource://images/placeholder.png",
	})

	assert.Equal(t, Placeholder, ev.Outcome)
	assert.Equal(t, SourcePlaceholder, ev.Source)
	assert.ErrorIs(t, ev.Err, ErrEmptyLocator)
	assert.Empty(t, cdn.Requests())
	assert.Zero(t, reads.Load())
	// The placeholder is classified too; it is not a local file either way.
	assert.LessOrEqual(t, stats.Load(), int32(1))

	var lerr *LoadError
	require.ErrorAs(t, ev.Err, &lerr)
	assert.Equal(t, StageClassifying, lerr.Stage)
	assert.Equal(t, KindResourceNotFound, lerr.Kind)
}

func TestLoad_ResourceVector(t *testing.T) {
	cdn := newFakeCDN(servePNG(t, 1, 1))
	l := newTestLoader(t, cdn)

	events := collect(t, l.Load(context.Background(), Request{
		Locator:       "resource://icons/logo.svg",
		Strategy:      StrategyDisk,
		LoadThumbnail: true,
	}))

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, Loaded, ev.Outcome)
	assert.Equal(t, SourceVectorRendered, ev.Source)
	assert.Equal(t, 200, ev.Image.Width)
	assert.Equal(t, 200, ev.Image.Height)
	assert.True(t, ev.Image.HasAlpha)

	assert.Empty(t, cdn.Requests())
	assert.Zero(t, l.Store().Memory.Len())
	_, err := os.Stat(l.Store().Disk.Dir())
	assert.True(t, os.IsNotExist(err), "resources are never cached")
}

func TestLoad_ResourceRaster(t *testing.T) {
	l := newTestLoader(t, newFakeCDN(servePNG(t, 1, 1)))

	ev := l.Resolve(context.Background(), Request{Locator: "resource://images/placeholder.png"})

	assert.Equal(t, Loaded, ev.Outcome)
	assert.Equal(t, SourceResource, ev.Source)
}

func TestLoad_ResourceWithoutTree(t *testing.T) {
	l := newTestLoader(t, newFakeCDN(servePNG(t, 1, 1)), func(c *Config) { c.Resources = nil })

	ev := l.Resolve(context.Background(), Request{Locator: "resource://icons/logo.svg"})

	assert.Equal(t, Failed, ev.Outcome)
	assert.ErrorIs(t, ev.Err, ErrNoResources)
}

func TestLoad_ResourceRejectsEscapes(t *testing.T) {
	l := newTestLoader(t, newFakeCDN(servePNG(t, 1, 1)))

	ev := l.Resolve(context.Background(), Request{Locator: "resource://../etc/passwd"})

	var lerr *LoadError
	require.ErrorAs(t, ev.Err, &lerr)
	assert.Equal(t, KindResourceNotFound, lerr.Kind)
}

func TestLoad_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	raster := filepath.Join(dir, "photo.png")
	svg := filepath.Join(dir, "logo.svg")
	require.NoError(t, os.WriteFile(raster, pngBytes(t, 6, 2), 0o644))
	require.NoError(t, os.WriteFile(svg, []byte(logoSVG), 0o644))

	cdn := newFakeCDN(servePNG(t, 1, 1))
	l := newTestLoader(t, cdn, func(c *Config) {
		c.VectorWidth = 64
		c.VectorHeight = 32
	})

	ev := l.Resolve(context.Background(), Request{Locator: raster, Strategy: StrategyMemory})
	assert.Equal(t, SourceFile, ev.Source)
	assert.Equal(t, 6, ev.Image.Width)
	assert.Zero(t, l.Store().Memory.Len(), "local files are never cached")

	ev = l.Resolve(context.Background(), Request{Locator: svg})
	assert.Equal(t, SourceVectorRendered, ev.Source)
	assert.Equal(t, 64, ev.Image.Width)
	assert.Equal(t, 32, ev.Image.Height)

	assert.Empty(t, cdn.Requests())
}

func TestLoad_UnresolvedReadsAsPath(t *testing.T) {
	l := newTestLoader(t, newFakeCDN(servePNG(t, 1, 1)))

	ev := l.Resolve(context.Background(), Request{Locator: "no/such/file.png"})

	assert.Equal(t, Failed, ev.Outcome)
	var lerr *LoadError
	require.ErrorAs(t, ev.Err, &lerr)
	assert.Equal(t, KindResourceNotFound, lerr.Kind)
	assert.ErrorIs(t, ev.Err, fs.ErrNotExist)
}

func TestLoad_CanceledSkipsPlaceholder(t *testing.T) {
	l := newTestLoader(t, nil, func(c *Config) {
		c.Fetcher = fetcherFunc(func(ctx context.Context, _ string, _ fetch.Options) (*fetch.Response, error) {
			<-ctx.Done()
			return nil, &fetch.Error{Err: ctx.Err()}
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev := l.Resolve(ctx, Request{
		Locator:     "https://cdn.example/img.png",
		Placeholder: "resource://images/placeholder.png",
	})

	assert.Equal(t, Failed, ev.Outcome)
	assert.Nil(t, ev.Image)
	var lerr *LoadError
	require.ErrorAs(t, ev.Err, &lerr)
	assert.Equal(t, KindCanceled, lerr.Kind)
}

func TestLoad_VectorRemoteNotMemoryCachedAsRaster(t *testing.T) {
	cdn := newFakeCDN(func(*http.Request) reply {
		return reply{body: []byte(logoSVG), contentType: "image/svg+xml"}
	})
	l := newTestLoader(t, cdn)
	req := Request{Locator: "https://cdn.example/logo.svg", Strategy: StrategyMemory}

	first := l.Resolve(context.Background(), req)
	second := l.Resolve(context.Background(), req)

	assert.Equal(t, SourceVectorRendered, first.Source)
	assert.Equal(t, SourceMemory, second.Source)
	assert.Same(t, first.Image, second.Image)
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{
		"":       StrategyNone,
		"none":   StrategyNone,
		"Memory": StrategyMemory,
		" disk ": StrategyDisk,
	} {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStrategy("redis")
	assert.Error(t, err)
}

func TestDecodedImageFromLoadIsPNGEncodable(t *testing.T) {
	l := newTestLoader(t, newFakeCDN(servePNG(t, 1, 1)))
	ev := l.Resolve(context.Background(), Request{Locator: "resource://icons/logo.svg"})
	require.Equal(t, Loaded, ev.Outcome)

	data, err := ev.Image.PNG()
	require.NoError(t, err)
	back, err := imaging.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 200, back.Width)
}
