// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// probe-demo is a small game with an embedded debugger probe. It
// builds a 2D scene, animates it with simulated scripts at a fixed
// frame rate, and connects to a live-inspector so the scene can be
// inspected, edited, profiled and stopped at breakpoints.
//
// The demo reconnects when the inspector goes away and exits when the
// inspector asks it to quit.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/liveinspect/lib/clock"
	"github.com/bureau-foundation/liveinspect/lib/config"
	"github.com/bureau-foundation/liveinspect/lib/process"
	"github.com/bureau-foundation/liveinspect/lib/version"
	"github.com/bureau-foundation/liveinspect/probe"
	"github.com/bureau-foundation/liveinspect/scenegraph"
	"github.com/bureau-foundation/liveinspect/transport"
)

// redialInterval is the wait between connection attempts.
const redialInterval = 2 * time.Second

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath string
		connect    string
		sceneDir   string
		frameRate  int
		logLevel   string
	)
	flagSet := pflag.NewFlagSet("probe-demo", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to liveinspect.yaml")
	flagSet.StringVar(&connect, "connect", "", "inspector address (overrides probe.inspector_address)")
	flagSet.StringVar(&sceneDir, "scene-dir", "", "directory res:// maps to (overrides probe.scene_dir)")
	flagSet.IntVar(&frameRate, "frame-rate", 0, "game frames per second (overrides probe.frame_rate)")
	flagSet.StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("probe-demo %s\n", version.Full())
		return nil
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFile(configPath); err != nil {
			return err
		}
	}
	if flagSet.Changed("connect") {
		cfg.Probe.InspectorAddress = connect
	}
	if flagSet.Changed("scene-dir") {
		cfg.Probe.SceneDir = sceneDir
	}
	if flagSet.Changed("frame-rate") {
		cfg.Probe.FrameRate = frameRate
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := process.SignalContext(context.Background())
	defer cancel()
	return runGame(ctx, cfg, logger)
}

func runGame(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.Probe.SceneDir, 0o755); err != nil {
		return fmt.Errorf("creating scene directory: %w", err)
	}
	tree := scenegraph.NewTree(scenegraph.NewObjectDB(), scenegraph.NewClassDB())
	loader, err := scenegraph.NewResourceLoader(tree.DB(), tree.Classes(), cfg.Probe.SceneDir, cfg.Probe.ResourceCacheBytes)
	if err != nil {
		return err
	}
	defer loader.Close()

	g, err := buildScene(tree)
	if err != nil {
		return err
	}
	realClock := clock.Real()
	agent, err := probe.New(probe.Config{
		Tree:                   tree,
		Loader:                 loader,
		Clock:                  realClock,
		Logger:                 logger,
		PerformanceInterval:    cfg.Probe.PerformanceInterval.Std(),
		NetworkProfileInterval: cfg.Probe.NetworkProfileInterval.Std(),
		Stack:                  g.stack,
		ReloadScripts:          func() { logger.Info("scripts reloaded") },
		Monitors:               g.monitors,
	})
	if err != nil {
		return err
	}
	g.probe = agent
	defer agent.Detach()

	options := transport.Options{
		MaxFrame:      cfg.Transport.MaxFrameBytes,
		InboxLimit:    cfg.Transport.InboxLimitBytes,
		CompressAbove: cfg.Transport.CompressThresholdBytes,
		Logger:        logger,
	}
	frame := time.Second / time.Duration(cfg.Probe.FrameRate)
	ticker := realClock.NewTicker(frame)
	defer ticker.Stop()

	var nextDial time.Time
	last := realClock.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if !agent.Attached() && !now.Before(nextDial) {
				nextDial = now.Add(redialInterval)
				dial(ctx, agent, cfg.Probe.InspectorAddress, options, logger)
			}
			g.step(now.Sub(last))
			last = realClock.Now()
			if agent.QuitRequested() {
				logger.Info("inspector requested quit")
				return nil
			}
		}
	}
}

func dial(ctx context.Context, agent *probe.Probe, address string, options transport.Options, logger *slog.Logger) {
	conn, err := transport.Dial(ctx, address, options)
	if err != nil {
		logger.Debug("inspector not reachable", "address", address, "error", err)
		return
	}
	agent.Attach(conn)
}
