// Package config loads settings for the network image server from defaults,
// an optional YAML file, IMAGE_MCP_* environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ironsheep/network-image-mcp/internal/cache"
	"github.com/ironsheep/network-image-mcp/internal/fetch"
	"github.com/ironsheep/network-image-mcp/internal/imaging"
	"github.com/ironsheep/network-image-mcp/internal/loader"
	"github.com/ironsheep/network-image-mcp/internal/observability"
	"github.com/ironsheep/network-image-mcp/internal/vector"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. IMAGE_MCP_CACHE_DIR.
	EnvPrefix = "IMAGE_MCP"

	// FileName is the config file name without extension.
	FileName = "network-image-mcp"

	// DefaultPlaceholder is the built-in placeholder resource.
	DefaultPlaceholder = "resource://images/placeholder.svg"
)

// Setting keys.
const (
	KeyCacheDir       = "cache_dir"
	KeyMemoryCapacity = "memory_capacity"
	KeyHTTPTimeout    = "http_timeout"
	KeyMaxBodyBytes   = "max_body_bytes"
	KeyRateLimit      = "rate_limit"
	KeyRateBurst      = "rate_burst"
	KeyVectorWidth    = "vector_width"
	KeyVectorHeight   = "vector_height"
	KeyResourceDir    = "resource_dir"
	KeyUserAgent      = "user_agent"
	KeyLogLevel       = "log_level"
	KeyMaxPixels      = "max_pixels"
	KeyMetricsAddr    = "metrics_addr"
	KeyTraceExporter  = "trace_exporter"
	KeyTraceEndpoint  = "trace_endpoint"
	KeyTraceSample    = "trace_sample_rate"
)

//go:embed assets
var assets embed.FS

// Config holds the resolved settings.
type Config struct {
	CacheDir       string        `mapstructure:"cache_dir"`
	MemoryCapacity int           `mapstructure:"memory_capacity"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
	VectorWidth    int           `mapstructure:"vector_width"`
	VectorHeight   int           `mapstructure:"vector_height"`
	ResourceDir    string        `mapstructure:"resource_dir"`
	UserAgent      string        `mapstructure:"user_agent"`
	LogLevel       string        `mapstructure:"log_level"`
	MaxPixels      int           `mapstructure:"max_pixels"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`
	TraceExporter  string        `mapstructure:"trace_exporter"`
	TraceEndpoint  string        `mapstructure:"trace_endpoint"`
	TraceSample    float64       `mapstructure:"trace_sample_rate"`
}

// New returns a viper instance with defaults, the config file search path
// and environment binding set up. Callers may bind flags to it before Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyCacheDir, cache.DefaultRoot())
	v.SetDefault(KeyMemoryCapacity, cache.DefaultMemoryCapacity)
	v.SetDefault(KeyHTTPTimeout, fetch.DefaultTimeout)
	v.SetDefault(KeyMaxBodyBytes, fetch.DefaultMaxBodyBytes)
	v.SetDefault(KeyRateLimit, 0)
	v.SetDefault(KeyRateBurst, 1)
	v.SetDefault(KeyVectorWidth, vector.DefaultWidth)
	v.SetDefault(KeyVectorHeight, vector.DefaultHeight)
	v.SetDefault(KeyResourceDir, "")
	v.SetDefault(KeyUserAgent, fetch.DefaultUserAgent)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMaxPixels, imaging.DefaultMaxPixels)
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyTraceExporter, observability.ExporterNone)
	v.SetDefault(KeyTraceEndpoint, "")
	v.SetDefault(KeyTraceSample, 1.0)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.config/" + FileName)
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file, if any, and decodes the settings. A missing
// file on the search path is not an error; a missing explicit file set with
// SetConfigFile is.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.MemoryCapacity <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyMemoryCapacity, c.MemoryCapacity)
	case c.HTTPTimeout <= 0:
		return fmt.Errorf("%s must be positive, got %s", KeyHTTPTimeout, c.HTTPTimeout)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyMaxBodyBytes, c.MaxBodyBytes)
	case c.RateLimit < 0:
		return fmt.Errorf("%s must not be negative, got %g", KeyRateLimit, c.RateLimit)
	case c.MaxPixels <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyMaxPixels, c.MaxPixels)
	case c.VectorWidth <= 0 || c.VectorHeight <= 0:
		return fmt.Errorf("vector size must be positive, got %dx%d", c.VectorWidth, c.VectorHeight)
	case !observability.ValidExporter(c.TraceExporter):
		return fmt.Errorf("unknown %s: %q", KeyTraceExporter, c.TraceExporter)
	case c.TraceSample < 0 || c.TraceSample > 1:
		return fmt.Errorf("%s must be between 0 and 1, got %g", KeyTraceSample, c.TraceSample)
	}
	if err := imaging.CheckSize(c.VectorWidth, c.VectorHeight, c.MaxPixels); err != nil {
		return fmt.Errorf("vector size: %w", err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels. The empty
// string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown %s: %q", KeyLogLevel, s)
	}
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Resources returns the tree behind "resource://" locators: resource_dir
// when set, the built-in assets otherwise.
func (c *Config) Resources() fs.FS {
	if c.ResourceDir != "" {
		return os.DirFS(c.ResourceDir)
	}
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return sub
}

// Store builds the cache store.
func (c *Config) Store() *cache.Store {
	return cache.NewStore(cache.Options{Root: c.CacheDir, MemoryCapacity: c.MemoryCapacity})
}

// Fetcher builds the HTTP fetcher.
func (c *Config) Fetcher() *fetch.Fetcher {
	return fetch.New(fetch.Config{
		Timeout:      c.HTTPTimeout,
		MaxBodyBytes: c.MaxBodyBytes,
		RateLimit:    c.RateLimit,
		RateBurst:    c.RateBurst,
		UserAgent:    c.UserAgent,
	})
}

// NewLoader wires a loader from the settings.
func (c *Config) NewLoader(logger *slog.Logger) *loader.Loader {
	return loader.New(loader.Config{
		Store:        c.Store(),
		Fetcher:      c.Fetcher(),
		Resources:    c.Resources(),
		VectorWidth:  c.VectorWidth,
		VectorHeight: c.VectorHeight,
		MaxPixels:    c.MaxPixels,
		Logger:       logger,
	})
}

// Tracing returns the span export settings. version is reported as the
// service version.
func (c *Config) Tracing(version string) observability.TracingConfig {
	return observability.TracingConfig{
		Exporter:       c.TraceExporter,
		Endpoint:       c.TraceEndpoint,
		SampleRate:     c.TraceSample,
		ServiceName:    FileName,
		ServiceVersion: version,
	}
}
