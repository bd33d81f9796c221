package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("mediawatch", pflag.ContinueOnError)
	flags.String("config", "", "Path to a config file (default $XDG_CONFIG_HOME/mediawatch/config.yaml)")
	flags.StringP("format", "f", "text", "Output format: text, json, yaml, tui or websocket")
	flags.String("listen", "127.0.0.1:8974", "Listen address for the websocket output")
	flags.Int("interval", 1000, "Polling interval in milliseconds")
	flags.Int("timeout", 0, "Per-session fetch timeout in milliseconds (0 disables)")
	flags.String("provider", "auto", "Session provider: auto, mpris or playerctl")
	flags.StringP("color", "c", "2", "TUI accent color (ANSI code or hex)")
	flags.Bool("no-artwork", false, "Disable thumbnails and album artwork")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-file", "", "Write logs to this file instead of stderr")
	flags.Bool("debug", false, "Development logging at debug level")
	flags.Bool("once", false, "Print a single batch and exit")
	return flags
}

func main() {
	flags := newFlagSet()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := run(flags); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(flags *pflag.FlagSet) error {
	configFile, _ := flags.GetString("config")
	once, _ := flags.GetBool("once")

	v, cfg, err := loadConfig(flags, configFile)
	if err != nil {
		return err
	}
	if once && (cfg.Output.Format == "tui" || cfg.Output.Format == "websocket") {
		return fmt.Errorf("--once needs a text, json or yaml output (got %s)", cfg.Output.Format)
	}
	config.Set(cfg)
	if path := v.ConfigFileUsed(); path != "" {
		if _, err := os.Stat(path); err == nil {
			watchConfig(v)
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	request := func(ctx context.Context) (SessionManager, error) {
		return requestSessionManager(ctx, config.Get(), logger)
	}

	var thumbnails *ThumbnailExtractor
	if cfg.Thumbnail.Enabled {
		thumbnails = NewThumbnailExtractor(cfg.Thumbnail.MaxBytes)
	}
	builder := NewSnapshotBuilder(thumbnails, nil, logger)
	settings := func() ObserverSettings { return config.Get().observerSettings() }

	logger.Debugw("Starting", "format", cfg.Output.Format, "provider", cfg.Observer.Provider, "config", v.ConfigFileUsed())

	switch cfg.Output.Format {
	case "tui":
		return runTUI(ctx, request, builder, settings, cfg, logger)
	case "websocket":
		return runWebSocket(ctx, request, builder, settings, cfg, logger)
	}

	observer := NewObserver(request, builder, streamSink(cfg.Output.Format, os.Stdout), settings, nil, logger)
	if once {
		return observer.RunOnce(ctx)
	}
	return observer.Run(ctx)
}

// streamSink picks the sink for the line-oriented formats
func streamSink(format string, w io.Writer) SnapshotSink {
	switch format {
	case "json":
		return NewJSONSink(w)
	case "yaml":
		return NewYAMLSink(w)
	default:
		return NewTextSink(w)
	}
}

// runTUI runs the Bubble Tea program next to the observer. Quitting the UI
// cancels the observer and vice versa.
func runTUI(ctx context.Context, request SessionManagerRequester, builder *SnapshotBuilder,
	settings func() ObserverSettings, cfg Config, logger *zap.SugaredLogger) error {
	program := tea.NewProgram(newModel(cfg, supportsKittyGraphics()), tea.WithAltScreen(), tea.WithContext(ctx))
	observer := NewObserver(request, builder, NewTUISink(program), settings, nil, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer program.Quit()
		return observer.Run(ctx)
	})
	g.Go(func() error {
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		// The user quit; stop the observer
		return context.Canceled
	})
	return g.Wait()
}

func runWebSocket(ctx context.Context, request SessionManagerRequester, builder *SnapshotBuilder,
	settings func() ObserverSettings, cfg Config, logger *zap.SugaredLogger) error {
	sink := NewWebSocketSink(logger)
	observer := NewObserver(request, builder, sink, settings, nil, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sink.Serve(ctx, cfg.Output.Listen)
	})
	g.Go(func() error {
		return observer.Run(ctx)
	})
	return g.Wait()
}
