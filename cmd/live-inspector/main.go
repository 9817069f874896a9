// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// live-inspector is the editor side of the live debugger. It listens
// for a game's probe, mirrors the game's scene tree, and drives the
// debugger, profilers, monitors and live editing.
//
// On a terminal it runs the interactive inspector UI. With --plain, or
// when stdout is not a terminal, it runs headless: game output and
// errors go to stdout, structured logs go to stderr, and script edits
// under --watch still reload the running game.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/bureau-foundation/liveinspect/inspector"
	"github.com/bureau-foundation/liveinspect/lib/clock"
	"github.com/bureau-foundation/liveinspect/lib/config"
	"github.com/bureau-foundation/liveinspect/lib/inspectui"
	"github.com/bureau-foundation/liveinspect/lib/process"
	"github.com/bureau-foundation/liveinspect/lib/version"
	"github.com/bureau-foundation/liveinspect/transport"
)

// scriptExtensions are the files whose edits reload scripts.
var scriptExtensions = []string{".gd", ".lua", ".cs"}

type options struct {
	configPath string
	bind       string
	port       int
	watch      []string
	exportDir  string
	logOutput  string
	logLevel   string
	plain      bool
	noColor    bool
}

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("live-inspector", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to liveinspect.yaml (default: $LIVEINSPECT_CONFIG, then built-in defaults)")
	flagSet.StringVar(&opts.bind, "bind", "", "address to listen on (overrides transport.bind_address)")
	flagSet.IntVar(&opts.port, "port", 0, "first port to try (overrides transport.port)")
	flagSet.StringSliceVar(&opts.watch, "watch", nil, "directories whose script edits reload the game (overrides inspector.watch_scripts)")
	flagSet.StringVar(&opts.exportDir, "export-dir", ".", "directory for exported CSV files and graphs")
	flagSet.StringVar(&opts.logOutput, "log-output", "", "also write JSON log records to this file")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
	flagSet.BoolVar(&opts.plain, "plain", false, "run headless even on a terminal")
	flagSet.BoolVar(&opts.noColor, "no-color", os.Getenv("NO_COLOR") != "", "render the inspector without colors")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if *showVersion {
		fmt.Printf("live-inspector %s\n", version.Full())
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, flagSet, opts)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}

	ctx, cancel := process.SignalContext(context.Background())
	defer cancel()

	if opts.plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return runPlain(ctx, cfg, opts, level)
	}
	return runInteractive(ctx, cfg, opts, level)
}

// loadConfig reads the file at path, or LIVEINSPECT_CONFIG when path
// is empty. With neither, the defaults apply.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("LIVEINSPECT_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// applyFlags overrides configuration with the flags set on the command
// line.
func applyFlags(cfg *config.Config, flagSet *pflag.FlagSet, opts options) {
	if flagSet.Changed("bind") {
		cfg.Transport.BindAddress = opts.bind
	}
	if flagSet.Changed("port") {
		cfg.Transport.Port = opts.port
	}
	if flagSet.Changed("watch") {
		cfg.Inspector.WatchScripts = opts.watch
	}
}

// sessionConfig maps the configuration file onto a session.
func sessionConfig(cfg *config.Config, logger *slog.Logger, view inspector.View) inspector.Config {
	return inspector.Config{
		Listen: transport.ListenConfig{
			BindAddress: cfg.Transport.BindAddress,
			Port:        cfg.Transport.Port,
			Retries:     cfg.Transport.PortRetries,
			Options: transport.Options{
				MaxFrame:      cfg.Transport.MaxFrameBytes,
				InboxLimit:    cfg.Transport.InboxLimitBytes,
				CompressAbove: cfg.Transport.CompressThresholdBytes,
				Logger:        logger,
			},
		},
		TickBudget:             cfg.Inspector.TickBudget.Std(),
		TreeRefreshInterval:    cfg.Inspector.TreeRefreshInterval.Std(),
		InspectRefreshInterval: cfg.Inspector.InspectRefreshInterval.Std(),
		EditGrace:              cfg.Inspector.EditGrace.Std(),
		PerformanceHistory:     cfg.Inspector.PerformanceHistory,
		ProfilerFrameHistory:   cfg.Inspector.ProfilerFrameHistory,
		ProfilerMaxFunctions:   cfg.Inspector.ProfilerMaxFunctions,
		Clock:                  clock.Real(),
		Logger:                 logger,
		View:                   view,
	}
}

// openWatcher starts watching the configured script directories. It
// returns nil when none are configured.
func openWatcher(cfg *config.Config, logger *slog.Logger) (*inspector.ScriptWatcher, error) {
	if len(cfg.Inspector.WatchScripts) == 0 {
		return nil, nil
	}
	return inspector.NewScriptWatcher(cfg.Inspector.WatchScripts, scriptExtensions, logger)
}

func runInteractive(ctx context.Context, cfg *config.Config, opts options, level slog.Level) error {
	if opts.noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	tuiHandler := inspectui.NewLogHandler(level)
	var handler slog.Handler = tuiHandler
	if opts.logOutput != "" {
		fileHandler, closeFile, err := openFileLogHandler(opts.logOutput)
		if err != nil {
			return fmt.Errorf("cannot open log file %s: %w", opts.logOutput, err)
		}
		defer closeFile()
		handler = fanoutHandler{tuiHandler, fileHandler}
	}
	logger := slog.New(handler)

	feed := inspectui.NewFeed(0)
	session := inspector.New(sessionConfig(cfg, logger, feed))
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Stop()

	watcher, err := openWatcher(cfg, logger)
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	uiOptions := inspectui.Options{
		ExportDir:   opts.exportDir,
		GraphWidth:  cfg.Inspector.GraphWidth,
		GraphHeight: cfg.Inspector.GraphHeight,
	}
	if watcher != nil {
		uiOptions.ScriptChanges = watcher.Changed()
		group.Go(func() error { return watcher.Run(groupCtx) })
	}

	program := tea.NewProgram(inspectui.NewModel(session, feed, uiOptions),
		tea.WithAltScreen(), tea.WithContext(groupCtx))
	tuiHandler.SetProgram(program)

	group.Go(func() error {
		defer func() {
			if watcher != nil {
				watcher.Close()
			}
		}()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	return group.Wait()
}

func runPlain(ctx context.Context, cfg *config.Config, opts options, level slog.Level) error {
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if opts.logOutput != "" {
		fileHandler, closeFile, err := openFileLogHandler(opts.logOutput)
		if err != nil {
			return fmt.Errorf("cannot open log file %s: %w", opts.logOutput, err)
		}
		defer closeFile()
		handler = fanoutHandler{handler, fileHandler}
	}
	logger := slog.New(handler)

	session := inspector.New(sessionConfig(cfg, logger, &printView{out: os.Stdout}))
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Stop()

	watcher, err := openWatcher(cfg, logger)
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	var changes <-chan string
	if watcher != nil {
		changes = watcher.Changed()
		group.Go(func() error { return watcher.Run(groupCtx) })
	}
	group.Go(func() error {
		ticker := clock.Real().NewTicker(inspectui.FrameInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case path := <-changes:
				logger.Info("script changed", "path", path)
				if err := session.ReloadScripts(); err != nil && !errors.Is(err, inspector.ErrNotConnected) {
					logger.Warn("reloading scripts", "error", err)
				}
			case <-ticker.C:
				session.Tick()
			}
		}
	})
	return group.Wait()
}

func openFileLogHandler(path string) (slog.Handler, func(), error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return handler, func() { file.Close() }, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `live-inspector: editor-side live debugger for running games.

Listens for a game's debugger probe and mirrors its scene tree,
breakpoints, profiler, performance monitors and live edits.

Usage:
  live-inspector [flags]

Examples:
  # Interactive inspector on the default port
  live-inspector

  # Reload the game whenever a script under ./scripts changes
  live-inspector --watch scripts

  # Headless, logging to a file
  live-inspector --plain --log-output inspector.jsonl

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
