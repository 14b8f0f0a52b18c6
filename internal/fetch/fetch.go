package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// ThumbnailWidth is the width requested for every thumbnail fetch.
const ThumbnailWidth = 200

// Defaults applied by New for zero-valued Config fields.
const (
	DefaultTimeout      = 20 * time.Second
	DefaultMaxBodyBytes = 32 << 20
	DefaultUserAgent    = "network-image-mcp"
)

// ErrBodyTooLarge is returned when a response exceeds the configured body cap.
var ErrBodyTooLarge = errors.New("response body too large")

// Error reports a failed fetch. StatusCode is zero for transport failures.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport reports whether the failure happened below HTTP, before any
// status code was received.
func (e *Error) Transport() bool {
	return e.StatusCode == 0
}

// Config configures a Fetcher.
type Config struct {
	// Client performs requests. Defaults to a client with Timeout.
	Client *http.Client

	// Timeout bounds each request when Client is nil. Defaults to
	// DefaultTimeout.
	Timeout time.Duration

	// MaxBodyBytes caps the response body. Defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// RateLimit is the number of requests per second allowed across the
	// Fetcher. Zero disables limiting.
	RateLimit float64

	// RateBurst is the limiter burst. Values below 1 become 1.
	RateBurst int

	// UserAgent is sent with every request. Defaults to DefaultUserAgent.
	UserAgent string
}

// Options are the per-call fetch parameters.
type Options struct {
	// Width is the requested width. Zero omits the "w" parameter.
	Width int

	// Thumbnail forces the width to ThumbnailWidth.
	Thumbnail bool

	// Token is sent as the "token" query parameter when non-empty.
	Token string
}

// ResolvedWidth returns the width that goes on the wire, or zero when the
// "w" parameter is omitted.
func (o Options) ResolvedWidth() int {
	if o.Thumbnail {
		return ThumbnailWidth
	}
	if o.Width > 0 {
		return o.Width
	}
	return 0
}

// Response is a successful fetch.
type Response struct {
	// URL is the request URL including the negotiated query.
	URL string

	// StatusCode is the 2xx status received.
	StatusCode int

	// ContentType is the response Content-Type header, possibly empty.
	ContentType string

	// Body is the full response body.
	Body []byte
}

// Fetcher issues single-attempt HTTP GETs for image payloads.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	maxBody   int64
	userAgent string
}

// New creates a Fetcher from cfg.
func New(cfg Config) *Fetcher {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Fetcher{
		client:    client,
		limiter:   limiter,
		maxBody:   maxBody,
		userAgent: userAgent,
	}
}

// BuildURL returns rawURL with the "w" and "token" query parameters set from
// opts. Existing parameters are kept; "w" and "token" are replaced rather
// than repeated.
func BuildURL(rawURL string, opts Options) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	query := u.Query()
	if w := opts.ResolvedWidth(); w > 0 {
		query.Set("w", strconv.Itoa(w))
	} else {
		query.Del("w")
	}
	if opts.Token != "" {
		query.Set("token", opts.Token)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// Fetch performs one GET against rawURL and returns the body on any 2xx
// status. It never retries. Failures are returned as *Error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	start := time.Now()
	kind := "full"
	if opts.Thumbnail {
		kind = "thumbnail"
	}

	resp, err := f.fetch(ctx, rawURL, opts)
	recordFetch(kind, resp, err, time.Since(start))
	return resp, err
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	target, err := BuildURL(rawURL, opts)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &Error{URL: target, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{URL: target, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/*, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &Error{URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &Error{URL: target, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if int64(len(body)) > f.maxBody {
		return nil, &Error{URL: target, Err: ErrBodyTooLarge}
	}

	return &Response{
		URL:         target,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
