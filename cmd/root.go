// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tokwall/internal/config"
	"tokwall/internal/dom"
	"tokwall/internal/oembed"
	"tokwall/internal/tiktok"
	"tokwall/internal/wall"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagConfig    string
	flagOut       string
	flagContainer string
	flagTitle     string
	flagInterval  time.Duration
	flagTimeout   time.Duration
	flagThrottle  float64
	flagWatch     bool
	flagDebug     bool
)

// cfg holds the loaded wall definition (merged: defaults < config file < flags).
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tokwall [video URL ...]",
	Short: "Render a wall of TikTok embeds into an HTML page",
	Long: `Tokwall fetches oEmbed markup for TikTok videos and writes it into a
container element of an HTML page. Videos come from command arguments or a
tokwall.toml wall definition. With --watch the page is re-rendered on a
fixed interval until interrupted.`,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: loadConfig,
	RunE:              renderRun,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "f", "", "Wall definition file (default: tokwall.toml if present)")
	rootCmd.PersistentFlags().StringVarP(&flagOut, "out", "o", "", "Output HTML file")
	rootCmd.PersistentFlags().StringVarP(&flagContainer, "container", "c", "", "Container element id, leading # allowed")
	rootCmd.PersistentFlags().StringVar(&flagTitle, "title", "", "Page title for freshly scaffolded output")
	rootCmd.PersistentFlags().DurationVarP(&flagInterval, "interval", "i", 0, "Auto-refresh interval, 0 disables")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "Per-video oEmbed fetch timeout")
	rootCmd.PersistentFlags().Float64Var(&flagThrottle, "throttle", 0, "Max oEmbed requests per second, 0 is unlimited")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")
	rootCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "Keep re-rendering on the interval until interrupted")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges the wall definition: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath
	} else if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagOut != "" {
		cfg.Output = flagOut
	}
	if flagContainer != "" {
		cfg.Container = flagContainer
	}
	if flagTitle != "" {
		cfg.Title = flagTitle
	}
	if cmd.Flags().Changed("interval") {
		cfg.Interval = config.Duration(flagInterval)
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = config.Duration(flagTimeout)
	}
	if cmd.Flags().Changed("throttle") {
		cfg.Throttle = flagThrottle
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return nil
}

// videoList prefers command arguments over the configured list.
func videoList(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.Videos
}

// loadOrScaffold opens the output page when it exists, otherwise builds a
// fresh scaffold holding an empty wall container.
func loadOrScaffold(path, title, containerID string) (*dom.Page, error) {
	if _, err := os.Stat(path); err == nil {
		return dom.ParseFile(path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking %s: %w", path, err)
	}

	id, _ := wall.NormalizeID(containerID)
	slog.Debug("scaffolding new page", "path", path, "container", id)
	return dom.Scaffold(title, id)
}

// newController wires the oEmbed fetcher and the wall controller from the
// effective configuration.
func newController(page *dom.Page, onUpdate func()) *wall.Controller {
	var fetchOpts []oembed.Option
	if cfg.Throttle > 0 {
		fetchOpts = append(fetchOpts, oembed.WithRateLimit(cfg.Throttle))
	}
	fetcher := oembed.New(fetchOpts...)

	opts := []wall.Option{wall.WithFetchTimeout(time.Duration(cfg.Timeout))}
	if onUpdate != nil {
		opts = append(opts, wall.WithUpdateFunc(onUpdate))
	}
	return wall.New(page, fetcher, opts...)
}

// renderRun is the default command: render the wall once, or keep watching.
func renderRun(cmd *cobra.Command, args []string) error {
	videos := videoList(args)
	kept := tiktok.NormalizeVideoURLs(videos)
	if len(kept) == 0 {
		if len(videos) > 0 {
			return fmt.Errorf("none of the %d given URLs is a TikTok video link", len(videos))
		}
		return fmt.Errorf("no videos: pass TikTok URLs as arguments or list them in %s", config.DefaultPath)
	}

	page, err := loadOrScaffold(cfg.Output, cfg.Title, cfg.Container)
	if err != nil {
		return err
	}

	// The controller skips passes whose container is missing; surface that
	// as an error before rendering anything.
	if id, _ := wall.NormalizeID(cfg.Container); !page.HasElement(id) {
		return fmt.Errorf("no element with id %q in %s", id, cfg.Output)
	}

	if flagWatch {
		return watch(page, kept)
	}

	ctrl := newController(page, nil)
	<-ctrl.Initialize(kept, cfg.Container, 0)

	if err := page.WriteFile(cfg.Output); err != nil {
		return err
	}

	info, err := os.Stat(cfg.Output)
	if err != nil {
		return fmt.Errorf("checking written page: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d embeds to %s (%s)\n", len(kept), cfg.Output, humanize.Bytes(uint64(info.Size())))
	return nil
}

// watch renders the wall on the configured interval and rewrites the output
// page after every pass, until interrupted.
func watch(page *dom.Page, videos []string) error {
	interval := time.Duration(cfg.Interval)
	if interval <= 0 {
		return fmt.Errorf("--watch needs a positive --interval or a configured interval")
	}

	ctrl := newController(page, func() {
		if err := page.WriteFile(cfg.Output); err != nil {
			slog.Error("watch: writing page failed", "path", cfg.Output, "error", err)
		}
	})

	<-ctrl.Initialize(videos, cfg.Container, interval)
	fmt.Fprintf(os.Stderr, "Watching %d embeds, rewriting %s every %s (Ctrl-C to stop)\n", len(videos), cfg.Output, interval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	ctrl.Stop()
	fmt.Fprintln(os.Stderr, "Stopped")
	return nil
}
