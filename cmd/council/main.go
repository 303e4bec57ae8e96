// cmd/council/main.go
//
// This is the entry point for the council terminal.
// Run `council` from a project directory and it opens the conversation view
// against the LLM Council backend configured in .council/config.yaml.
//
// Flow:
// 1. Make sure the .council folder exists
// 2. Start the optional event bridge so external runners can push stage events
// 3. Launch the TUI

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kingrea/council-terminal/internal/config"
	"github.com/kingrea/council-terminal/internal/eventbridge"
	"github.com/kingrea/council-terminal/internal/logbook"
	"github.com/kingrea/council-terminal/internal/tui"
)

func main() {
	// The working directory is the "project" whose .council folder we use
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	if err := config.InitCouncilDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing .council directory: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	lb, err := logbook.New(cfg.LogPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer lb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The bridge is opt-in; a disabled bridge still hands the router to the
	// app so the wiring stays the same either way
	settings := eventbridge.SettingsFromConfig(cfg)
	router := eventbridge.NewRouter(
		eventbridge.RouterWithLogger(lb),
		eventbridge.RouterWithBacklogLimit(settings.Backlog),
	)
	bridge := eventbridge.NewServer(
		settings,
		eventbridge.WithProcessor(router),
		eventbridge.WithLogger(lb),
	)
	if err := bridge.Start(ctx); err != nil && !errors.Is(err, eventbridge.ErrServerDisabled) {
		fmt.Fprintf(os.Stderr, "Error starting event bridge: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		if err := bridge.Shutdown(shutdownCtx); err != nil {
			lb.Warn("Event bridge shutdown: %v", err)
		}
	}()

	app, err := tui.NewApp(cwd, tui.WithLogbook(lb), tui.WithRouter(router))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating TUI: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	var opts []tea.ProgramOption
	if cfg.AltScreen() {
		opts = append(opts, tea.WithAltScreen()) // like vim does
	}
	p := tea.NewProgram(app, opts...)

	// Run blocks until the user quits
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
