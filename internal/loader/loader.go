package loader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ironsheep/network-image-mcp/internal/cache"
	"github.com/ironsheep/network-image-mcp/internal/fetch"
	"github.com/ironsheep/network-image-mcp/internal/imaging"
	"github.com/ironsheep/network-image-mcp/internal/locator"
	"github.com/ironsheep/network-image-mcp/internal/vector"
)

// TracerName names the tracer load spans are started from. The tracer is
// looked up per load so a provider installed later is honored.
const TracerName = "github.com/ironsheep/network-image-mcp/internal/loader"

// SpanName is the name of the span covering one load.
const SpanName = "netimage.load"

// Fetcher retrieves remote payloads. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts fetch.Options) (*fetch.Response, error)
}

// Config wires a Loader to its collaborators. Zero fields get defaults.
type Config struct {
	// Store holds both cache tiers. Defaults to cache.NewStore with default
	// options.
	Store *cache.Store

	// Fetcher performs network reads. Defaults to fetch.New with defaults.
	Fetcher Fetcher

	// Classifier classifies locators. The zero value uses os.Stat.
	Classifier locator.Classifier

	// ReadFile reads local files. Defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)

	// Resources resolves "resource://" locators. Nil means every resource
	// locator fails with ErrNoResources.
	Resources fs.FS

	// VectorWidth and VectorHeight size rasterized SVG documents.
	// Default to vector.DefaultWidth and vector.DefaultHeight.
	VectorWidth  int
	VectorHeight int

	// MaxPixels bounds the size of decoded and rasterized images. Defaults
	// to imaging.DefaultMaxPixels.
	MaxPixels int

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Loader resolves locators to decoded images.
//
// A Loader is safe for concurrent use; every call to Load runs
// independently. Loads that share a Store share its caches.
type Loader struct {
	store        *cache.Store
	fetcher      Fetcher
	classifier   locator.Classifier
	readFile     func(string) ([]byte, error)
	resources    fs.FS
	vectorWidth  int
	vectorHeight int
	maxPixels    int
	logger       *slog.Logger

	placeholders sync.Map // placeholder locator -> *imaging.DecodedImage
}

// New creates a Loader from cfg.
func New(cfg Config) *Loader {
	l := &Loader{
		store:        cfg.Store,
		fetcher:      cfg.Fetcher,
		classifier:   cfg.Classifier,
		readFile:     cfg.ReadFile,
		resources:    cfg.Resources,
		vectorWidth:  cfg.VectorWidth,
		vectorHeight: cfg.VectorHeight,
		maxPixels:    cfg.MaxPixels,
		logger:       cfg.Logger,
	}
	if l.store == nil {
		l.store = cache.NewStore(cache.Options{})
	}
	if l.fetcher == nil {
		l.fetcher = fetch.New(fetch.Config{})
	}
	if l.readFile == nil {
		l.readFile = os.ReadFile
	}
	if l.vectorWidth <= 0 {
		l.vectorWidth = vector.DefaultWidth
	}
	if l.vectorHeight <= 0 {
		l.vectorHeight = vector.DefaultHeight
	}
	if l.maxPixels <= 0 {
		l.maxPixels = imaging.DefaultMaxPixels
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Store returns the cache store the loader writes to.
func (l *Loader) Store() *cache.Store {
	return l.store
}

// MaxPixels returns the largest image, in pixels, the loader decodes.
func (l *Loader) MaxPixels() int {
	return l.maxPixels
}

// Load starts resolving req in a new goroutine and returns its events.
//
// The channel receives an optional thumbnail event followed by exactly one
// final event, then it is closed. It is buffered, so an abandoned channel
// does not leak the goroutine. Canceling ctx aborts in-flight fetches.
func (l *Loader) Load(ctx context.Context, req Request) <-chan Event {
	events := make(chan Event, 2)
	go func() {
		defer close(events)
		l.run(ctx, req, func(ev Event) { events <- ev })
	}()
	return events
}

// Resolve runs a load to completion and returns its final event. Any
// thumbnail event is discarded.
func (l *Loader) Resolve(ctx context.Context, req Request) Event {
	var final Event
	for ev := range l.Load(ctx, req) {
		if ev.Final {
			final = ev
		}
	}
	return final
}

// outcome is the terminal state of the primary locator.
type outcome struct {
	img    *imaging.DecodedImage
	source Source
	err    *LoadError
}

func (l *Loader) run(ctx context.Context, req Request, emit func(Event)) {
	id := uuid.NewString()
	log := l.logger.With("load_id", id, "locator", req.Locator)

	ctx, span := otel.Tracer(TracerName).Start(ctx, SpanName, trace.WithAttributes(
		attribute.String("netimage.load_id", id),
		attribute.String("netimage.strategy", req.Strategy.String()),
		attribute.Bool("netimage.thumbnail", req.LoadThumbnail),
	))
	defer span.End()

	loc := l.classifier.Classify(req.Locator)
	span.SetAttributes(attribute.String("netimage.kind", loc.Kind.String()))
	log.Debug("load started", "kind", loc.Kind.String(), "strategy", req.Strategy.String())

	thumbnail := func(img *imaging.DecodedImage) {
		recordEvent(SourceNetwork, false)
		emit(Event{LoadID: id, Image: img, Source: SourceNetwork})
	}

	res := l.execute(ctx, log, loc, req, thumbnail)

	final := Event{LoadID: id, Final: true}
	switch {
	case res.err == nil:
		final.Image = res.img
		final.Source = res.source
		final.Outcome = Loaded
	default:
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Kind.String())
		log.Warn("load failed", "stage", res.err.Stage.String(), "kind", res.err.Kind.String(),
			"status", res.err.StatusCode(), "error", res.err.Err)

		final.Err = res.err
		final.Outcome = Failed
		if res.err.Kind != KindCanceled && req.Placeholder != "" {
			if ph, err := l.placeholder(ctx, req.Placeholder); err == nil {
				final.Image = ph
				final.Source = SourcePlaceholder
				final.Outcome = Placeholder
			} else {
				log.Warn("placeholder unavailable", "placeholder", req.Placeholder, "error", err)
			}
		}
	}

	span.SetAttributes(
		attribute.String("netimage.outcome", final.Outcome.String()),
		attribute.String("netimage.source", final.Source.String()),
	)
	recordLoad(loc.Kind, final.Outcome)
	recordEvent(final.Source, true)
	log.Debug("load finished", "outcome", final.Outcome.String(), "source", final.Source.String())
	emit(final)
}

func (l *Loader) execute(ctx context.Context, log *slog.Logger, loc locator.Locator, req Request, thumbnail func(*imaging.DecodedImage)) outcome {
	switch loc.Kind {
	case locator.RemoteHTTP:
		return l.loadRemote(ctx, log, loc, req, thumbnail)
	case locator.EmbeddedResource:
		return l.loadResource(loc.Name)
	case locator.LocalFile:
		return l.loadFile(loc.Name)
	}

	if loc.IsEmpty() {
		return outcome{err: &LoadError{Stage: StageClassifying, Kind: KindResourceNotFound, Err: ErrEmptyLocator}}
	}
	log.Debug("locator matched no rule, reading as local file",
		"kind", KindClassificationAmbiguous.String())
	return l.loadFile(loc.Name)
}

func (l *Loader) loadRemote(ctx context.Context, log *slog.Logger, loc locator.Locator, req Request, thumbnail func(*imaging.DecodedImage)) outcome {
	key, _ := loc.Key()

	switch req.Strategy {
	case StrategyMemory:
		if img, ok := l.store.Memory.Get(key); ok {
			log.Debug("memory cache hit", "key", key.String())
			return outcome{img: img, source: SourceMemory}
		}
	case StrategyDisk:
		if img, ok := l.diskHit(log, key); ok {
			return outcome{img: img, source: SourceDisk}
		}
	}

	if req.LoadThumbnail {
		resp, err := l.fetcher.Fetch(ctx, loc.Raw, fetch.Options{Thumbnail: true, Token: req.Token})
		if err != nil {
			log.Debug("thumbnail skipped", "stage", StageThumbnailFetch.String(), "error", err)
		} else if img, _, lerr := l.decode(resp.Body, isVectorPayload(loc, resp)); lerr != nil {
			log.Debug("thumbnail skipped", "stage", StageDecoding.String(), "error", lerr.Err)
		} else {
			thumbnail(img)
		}
		if ctx.Err() != nil {
			return outcome{err: &LoadError{Stage: StageThumbnailFetch, Kind: KindCanceled, Err: ctx.Err()}}
		}
	}

	resp, err := l.fetcher.Fetch(ctx, loc.Raw, fetch.Options{Width: req.RequestWidth, Token: req.Token})
	if err != nil {
		return outcome{err: fetchError(ctx, StageFullFetch, err)}
	}

	img, source, lerr := l.decode(resp.Body, isVectorPayload(loc, resp))
	if lerr != nil {
		return outcome{err: lerr}
	}
	vec := source == SourceVectorRendered
	if !vec {
		source = SourceNetwork
	}

	switch req.Strategy {
	case StrategyMemory:
		// First writer wins: a concurrent load may already have cached this
		// key, in which case its image is the one everybody displays.
		img, _ = l.store.Memory.Put(key, img)
	case StrategyDisk:
		diskKey := key
		if vec {
			diskKey = key.Vector()
		}
		if err := l.store.Disk.Write(diskKey, resp.Body); err != nil {
			log.Warn("disk cache write failed", "key", diskKey.String(), "kind", KindDiskIO.String(), "error", err)
		}
	}

	return outcome{img: img, source: source}
}

// diskHit looks for a raster entry and then a vector entry for key. Entries
// that cannot be read count as misses; entries that cannot be decoded are
// deleted so the next write can replace them.
func (l *Loader) diskHit(log *slog.Logger, key locator.Key) (*imaging.DecodedImage, bool) {
	candidates := []locator.Key{key}
	if v := key.Vector(); v != key {
		candidates = append(candidates, v)
	}

	for _, k := range candidates {
		if _, ok := l.store.Disk.Lookup(k); !ok {
			continue
		}
		data, err := l.store.Disk.Read(k)
		if err != nil {
			log.Warn("disk cache read failed", "key", k.String(), "kind", KindDiskIO.String(), "error", err)
			continue
		}
		img, _, lerr := l.decode(data, k.IsVector())
		if lerr != nil {
			log.Warn("disk cache entry unreadable", "key", k.String(), "kind", lerr.Kind.String(), "error", lerr.Err)
			if _, err := l.store.Disk.Delete(k); err != nil {
				log.Warn("disk cache entry not deleted", "key", k.String(), "kind", KindDiskIO.String(), "error", err)
			}
			continue
		}
		log.Debug("disk cache hit", "key", k.String())
		return img, true
	}
	return nil, false
}

func (l *Loader) loadResource(name string) outcome {
	if l.resources == nil {
		return outcome{err: readError(StageFullFetch, ErrNoResources)}
	}
	name = strings.TrimPrefix(name, "/")
	if !fs.ValidPath(name) {
		return outcome{err: readError(StageFullFetch, fmt.Errorf("%w: resource %q", fs.ErrInvalid, name))}
	}

	data, err := fs.ReadFile(l.resources, name)
	if err != nil {
		return outcome{err: readError(StageFullFetch, err)}
	}

	img, source, lerr := l.decode(data, locator.IsVectorName(name) || vector.Sniff(data))
	if lerr != nil {
		return outcome{err: lerr}
	}
	if source != SourceVectorRendered {
		source = SourceResource
	}
	return outcome{img: img, source: source}
}

func (l *Loader) loadFile(path string) outcome {
	data, err := l.readFile(path)
	if err != nil {
		return outcome{err: readError(StageFullFetch, err)}
	}

	img, source, lerr := l.decode(data, locator.IsVectorName(path) || vector.Sniff(data))
	if lerr != nil {
		return outcome{err: lerr}
	}
	if source != SourceVectorRendered {
		source = SourceFile
	}
	return outcome{img: img, source: source}
}

// decode turns a payload into an image, rasterizing vector documents. The
// returned source is SourceVectorRendered for vector payloads and SourceNone
// otherwise; callers fill in the raster source.
//
// isVector is a hint from the name or content type. A hinted payload that
// fails to render and does not look like SVG is decoded as raster.
func (l *Loader) decode(data []byte, isVector bool) (*imaging.DecodedImage, Source, *LoadError) {
	if !isVector {
		img, lerr := l.decodeRaster(data)
		return img, SourceNone, lerr
	}

	if err := imaging.CheckSize(l.vectorWidth, l.vectorHeight, l.maxPixels); err != nil {
		return nil, SourceNone, &LoadError{Stage: StageDecoding, Kind: KindDecode, Err: err}
	}
	rendered, err := vector.Render(data, l.vectorWidth, l.vectorHeight)
	if err == nil {
		return imaging.FromImage(rendered, "svg", len(data)), SourceVectorRendered, nil
	}
	if !vector.Sniff(data) {
		if img, lerr := l.decodeRaster(data); lerr == nil {
			return img, SourceNone, nil
		}
	}
	return nil, SourceNone, &LoadError{Stage: StageDecoding, Kind: KindVectorParse, Err: err}
}

func (l *Loader) decodeRaster(data []byte) (*imaging.DecodedImage, *LoadError) {
	img, err := imaging.DecodeLimit(data, l.maxPixels)
	if err != nil {
		return nil, &LoadError{Stage: StageDecoding, Kind: KindDecode, Err: err}
	}
	return img, nil
}

// placeholder resolves a placeholder locator. Successful results are kept
// for the life of the Loader.
func (l *Loader) placeholder(ctx context.Context, raw string) (*imaging.DecodedImage, error) {
	if img, ok := l.placeholders.Load(raw); ok {
		return img.(*imaging.DecodedImage), nil
	}

	loc := l.classifier.Classify(raw)
	var res outcome
	switch {
	case loc.IsEmpty():
		return nil, ErrEmptyLocator
	case loc.Kind == locator.RemoteHTTP:
		resp, err := l.fetcher.Fetch(ctx, loc.Raw, fetch.Options{})
		if err != nil {
			return nil, fetchError(ctx, StageFullFetch, err)
		}
		img, _, lerr := l.decode(resp.Body, isVectorPayload(loc, resp))
		if lerr != nil {
			return nil, lerr
		}
		res.img = img
	case loc.Kind == locator.EmbeddedResource:
		res = l.loadResource(loc.Name)
	default:
		res = l.loadFile(loc.Name)
	}
	if res.err != nil {
		return nil, res.err
	}

	actual, _ := l.placeholders.LoadOrStore(raw, res.img)
	return actual.(*imaging.DecodedImage), nil
}

// isVectorPayload decides whether a fetched payload is an SVG document from
// the locator name, the response content type and the payload itself.
func isVectorPayload(loc locator.Locator, resp *fetch.Response) bool {
	if loc.IsVector() {
		return true
	}
	if mt, _, err := mime.ParseMediaType(resp.ContentType); err == nil && mt == "image/svg+xml" {
		return true
	}
	return vector.Sniff(resp.Body)
}
