package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vidtutor/internal/client"
	"vidtutor/internal/config"
	"vidtutor/internal/controller"
	"vidtutor/internal/tui"
	"vidtutor/internal/utils"
	"vidtutor/internal/voice"
)

func main() {
	var configPath, serverURL string
	flag.StringVar(&configPath, "config", "", "Path to client configuration file")
	flag.StringVar(&serverURL, "server", "", "Server URL (overrides config file)")
	flag.Parse()

	cfg, err := config.LoadClient(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// The terminal belongs to the UI; logs only go to a file.
	if err := utils.Setup(utils.Options{Verbose: cfg.VerboseLogging, File: cfg.LogFile}); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	backend, err := client.New(cfg.ServerURL, cfg.RequestTimeout())
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	var recognizer controller.Recognizer
	if len(cfg.RecordCommand) > 0 {
		recognizer = voice.NewCommandRecognizer(cfg.RecordCommand)
	}
	var player controller.Player
	if len(cfg.PlayerCommand) > 0 {
		player = voice.NewCommandPlayer(cfg.PlayerCommand)
	}

	bridge := tui.NewBridge()
	defer bridge.Close()

	ctrl := controller.New(backend, recognizer, player, bridge, controller.Options{
		PollInterval: cfg.PollInterval(),
		HideDelay:    cfg.HideDelay(),
		Locale:       cfg.Locale,
	})
	defer ctrl.Close()

	style := "light"
	if lipgloss.HasDarkBackground() {
		style = "dark"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	program := tea.NewProgram(tui.New(ctx, ctrl, style), tea.WithAltScreen())
	bridge.Attach(program)

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
