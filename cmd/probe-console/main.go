// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// probe-console runs a scripted scene with the local console debugger
// instead of a remote inspector. Breakpoints given with --break, or
// placed at the debug> prompt, stop the game loop in the terminal:
//
//	debug> bt
//	*Frame 0 - res://player.gd:11 in function 'move'
//	 Frame 1 - res://main.gd:4 in function '_process'
//
// Enter "help" at the prompt for the command list.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/liveinspect/lib/clock"
	"github.com/bureau-foundation/liveinspect/lib/process"
	"github.com/bureau-foundation/liveinspect/lib/version"
	"github.com/bureau-foundation/liveinspect/probe"
	"github.com/bureau-foundation/liveinspect/scenegraph"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		breakpoints []string
		frames      int64
		frameRate   int
	)
	flagSet := pflag.NewFlagSet("probe-console", pflag.ContinueOnError)
	flagSet.StringSliceVar(&breakpoints, "break", nil, "breakpoints as source:line (repeatable)")
	flagSet.Int64Var(&frames, "frames", 0, "stop after this many frames (0 runs until quit)")
	flagSet.IntVar(&frameRate, "frame-rate", 60, "game frames per second")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("probe-console %s\n", version.Full())
		return nil
	}
	if frameRate <= 0 {
		return fmt.Errorf("--frame-rate must be positive, got %d", frameRate)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := newScript(logger, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer s.close()
	for _, text := range breakpoints {
		source, line, ok := probe.ParseBreakpoint(text)
		if !ok {
			return fmt.Errorf("--break %q: expected source:line", text)
		}
		s.probe.SetBreakpoint(source, line, true)
	}

	ctx, cancel := process.SignalContext(context.Background())
	defer cancel()
	return s.run(ctx, clock.Real(), frameRate, frames)
}

// newScript builds the scene and a detached probe whose breaks are
// served by a console on in and out.
func newScript(logger *slog.Logger, in io.Reader, out io.Writer) (*script, error) {
	tree := scenegraph.NewTree(scenegraph.NewObjectDB(), scenegraph.NewClassDB())
	loader, err := scenegraph.NewResourceLoader(tree.DB(), tree.Classes(), ".", 0)
	if err != nil {
		return nil, err
	}
	player, err := tree.Classes().Instance(tree.DB(), "Sprite", "Player")
	if err != nil {
		loader.Close()
		return nil, err
	}
	if err := tree.Root().AddChild(player); err != nil {
		loader.Close()
		return nil, err
	}
	agent, err := probe.New(probe.Config{Tree: tree, Loader: loader, Logger: logger})
	if err != nil {
		loader.Close()
		return nil, err
	}
	return &script{
		probe:   agent,
		console: probe.NewConsole(agent, in, out),
		loader:  loader,
		player:  player,
	}, nil
}
