package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ironsheep/network-image-mcp/internal/config"
	"github.com/ironsheep/network-image-mcp/internal/fetch"
	"github.com/ironsheep/network-image-mcp/internal/loader"
	"github.com/ironsheep/network-image-mcp/internal/locator"
	"github.com/ironsheep/network-image-mcp/internal/observability"
	"github.com/ironsheep/network-image-mcp/internal/server"
)

// app carries state shared by the commands.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

// newRootCommand builds the command tree. Running the root command without
// a subcommand serves MCP on stdio.
func newRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "network-image-mcp",
		Short: "Resolve, cache and rasterize images over MCP",
		Long: `network-image-mcp resolves image locators (http(s) URLs, local files and
resource:// references) to decoded images, with memory and disk caching,
thumbnail-first loading, width negotiation and SVG rasterization.

Without a subcommand it serves the MCP protocol on stdin/stdout.

Environment variables use the IMAGE_MCP_ prefix, e.g.
  IMAGE_MCP_LOG_LEVEL=debug    Enable debug logging
  IMAGE_MCP_CACHE_DIR=/tmp     Put the ImageCache directory under /tmp`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		RunE:              a.runServe,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default $HOME/.config/network-image-mcp/network-image-mcp.yaml)")
	flags.String("cache-dir", "", "directory that holds the ImageCache directory")
	flags.Int("memory-capacity", 0, "number of decoded images kept in memory")
	flags.Duration("http-timeout", 0, "timeout for each HTTP request")
	flags.String("resource-dir", "", "directory served for resource:// locators")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.String("trace-exporter", "", "span exporter (none|stdout|otlp|zipkin)")
	for key, name := range map[string]string{
		config.KeyCacheDir:       "cache-dir",
		config.KeyMemoryCapacity: "memory-capacity",
		config.KeyHTTPTimeout:    "http-timeout",
		config.KeyResourceDir:    "resource-dir",
		config.KeyLogLevel:       "log-level",
		config.KeyMetricsAddr:    "metrics-addr",
		config.KeyTraceExporter:  "trace-exporter",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}

	root.AddCommand(
		a.newServeCommand(),
		a.newFetchCommand(),
		a.newCacheCommand(),
		newVersionCommand(),
	)
	return root
}

// load resolves configuration once flags are parsed.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	// stdout carries MCP traffic and command output.
	a.logger = cfg.Logger(cmd.ErrOrStderr())
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE:  a.runServe,
	}
}

// startObservability starts the metrics endpoint and span export when they
// are configured. The returned function stops both.
func (a *app) startObservability(ctx context.Context) (func(), error) {
	tp, err := observability.NewTracerProvider(ctx, a.cfg.Tracing(Version))
	if err != nil {
		return nil, err
	}

	var metrics *observability.MetricsServer
	if a.cfg.MetricsAddr != "" {
		metrics, err = observability.StartMetrics(a.cfg.MetricsAddr, a.logger)
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, err
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if metrics != nil {
			if err := metrics.Shutdown(ctx); err != nil {
				a.logger.Warn("metrics server shutdown failed", "error", err)
			}
		}
		if err := tp.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", "error", err)
		}
	}, nil
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	a.logger.Debug("starting server", "version", Version, "build_time", BuildTime, "commit", GitCommit,
		"cache_dir", a.cfg.CacheDir)

	stop, err := a.startObservability(cmd.Context())
	if err != nil {
		return err
	}
	defer stop()

	srv := server.New(a.cfg.NewLoader(a.logger), server.WithLogger(a.logger), server.WithVersion(Version))
	return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
}

type fetchFlags struct {
	strategy    string
	thumbnail   bool
	width       int
	token       string
	placeholder string
	output      string
	dryRun      bool
}

func (a *app) newFetchCommand() *cobra.Command {
	var f fetchFlags
	cmd := &cobra.Command{
		Use:   "fetch <locator>",
		Short: "Resolve one locator and report every emitted event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFetch(cmd, args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.strategy, "cache-strategy", "none", "cache tier for remote URLs (none|memory|disk)")
	flags.BoolVar(&f.thumbnail, "thumbnail", false, "fetch a 200px preview before the full image")
	flags.IntVarP(&f.width, "width", "w", 0, "width sent as the w query parameter")
	flags.StringVar(&f.token, "token", "", "token query parameter")
	flags.StringVar(&f.placeholder, "placeholder", "", "locator of the image used when the load fails, e.g. "+config.DefaultPlaceholder)
	flags.StringVarP(&f.output, "output", "o", "", "write the final image to this file")
	flags.BoolVar(&f.dryRun, "dry-run", false, "print the classification, cache key and request URLs without loading")
	return cmd
}

func (a *app) runFetch(cmd *cobra.Command, raw string, f fetchFlags) error {
	strategy, err := loader.ParseStrategy(f.strategy)
	if err != nil {
		return err
	}
	if f.dryRun {
		return a.printPlan(cmd, raw, f)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stop, err := a.startObservability(ctx)
	if err != nil {
		return err
	}
	defer stop()

	l := a.cfg.NewLoader(a.logger)
	out := cmd.OutOrStdout()

	var final loader.Event
	for ev := range l.Load(ctx, loader.Request{
		Locator:       raw,
		Strategy:      strategy,
		LoadThumbnail: f.thumbnail,
		RequestWidth:  f.width,
		Token:         f.token,
		Placeholder:   f.placeholder,
	}) {
		kind := "thumbnail"
		if ev.Final {
			kind = "final"
			final = ev
		}
		if ev.Image != nil {
			fmt.Fprintf(out, "%-9s source=%s size=%dx%d format=%s\n", kind, ev.Source, ev.Image.Width, ev.Image.Height, ev.Image.Format)
		} else {
			fmt.Fprintf(out, "%-9s source=%s\n", kind, ev.Source)
		}
	}

	fmt.Fprintf(out, "outcome   %s\n", final.Outcome)
	if final.Err != nil {
		fmt.Fprintf(out, "error     %v\n", final.Err)
	}

	if final.Image != nil && f.output != "" {
		if err := final.Image.Save(f.output); err != nil {
			return err
		}
		fmt.Fprintf(out, "saved     %s\n", f.output)
	}
	if final.Outcome == loader.Failed {
		return fmt.Errorf("load failed: %w", final.Err)
	}
	return nil
}

// printPlan shows what a load would do without performing it.
func (a *app) printPlan(cmd *cobra.Command, raw string, f fetchFlags) error {
	out := cmd.OutOrStdout()
	loc := locator.Classify(raw)
	fmt.Fprintf(out, "kind      %s\n", loc.Kind)
	fmt.Fprintf(out, "vector    %t\n", loc.IsVector())

	key, ok := loc.Key()
	if !ok {
		return nil
	}
	store := a.cfg.Store()
	fmt.Fprintf(out, "key       %s\n", key)
	fmt.Fprintf(out, "disk      %s\n", store.Disk.Path(key))

	if f.thumbnail {
		u, err := fetch.BuildURL(raw, fetch.Options{Thumbnail: true, Token: f.token})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "thumbnail %s\n", u)
	}
	u, err := fetch.BuildURL(raw, fetch.Options{Width: f.width, Token: f.token})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "full      %s\n", u)
	return nil
}

func (a *app) newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the disk cache",
		Long: `Manage the disk cache. The memory cache lives inside a running server;
clear it there with the image_cache_clear tool.`,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached image from disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.cfg.Store()
			if err := store.ClearDisk(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", store.Disk.Dir())
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <url>",
		Short: "Delete the disk entries of one URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, ok := locator.Classify(args[0]).Key()
			if !ok {
				return fmt.Errorf("not a remote URL: %q", args[0])
			}
			disk := a.cfg.Store().Disk
			removed, err := disk.Remove(key)
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "not cached %s\n", key)
				return nil
			}
			for _, k := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", disk.Path(k))
			}
			return nil
		},
	}

	cmd.AddCommand(clearCmd, removeCmd)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// Version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "network-image-mcp %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Build time: %s\n", BuildTime)
			fmt.Fprintf(cmd.OutOrStdout(), "  Git commit: %s\n", GitCommit)
		},
	}
}
