// ABOUTME: Entry point for the ember daemon
// ABOUTME: Wires config, store, ledger, personas, sessions, inference, and the Matrix bridge

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/emberchat/ember/internal/chat"
	"github.com/emberchat/ember/internal/config"
	"github.com/emberchat/ember/internal/ollama"
	"github.com/emberchat/ember/internal/persona"
	"github.com/emberchat/ember/internal/progress"
	"github.com/emberchat/ember/internal/session"
	"github.com/emberchat/ember/internal/store"
	"github.com/emberchat/ember/internal/watchdog"
)

const banner = `
    ╭──────────────────────────────╮
    │                              │
    │    ┏━╸┏┳┓┏┓ ┏━╸┏━┓           │
    │    ┣╸ ┃┃┃┣┻┓┣╸ ┣┳┛           │
    │    ┗━╸╹ ╹┗━┛┗━╸╹┗╸           │
    │                              │
    │       ember chat relay       │
    │                              │
    ╰──────────────────────────────╯
`

// getConfigPath returns the path to the ember config file.
// Priority: EMBER_CONFIG env var > XDG_CONFIG_HOME/ember/config.yaml > ~/.config/ember/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("EMBER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "ember", "config.yaml")
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	configPath := getConfigPath()

	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging.Level)

	// Print startup info
	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver: %s\n", cfg.Matrix.Homeserver)
	green.Print("    ▶ ")
	fmt.Printf("User:       %s\n", cfg.Matrix.UserID)
	green.Print("    ▶ ")
	fmt.Printf("Ollama:     %s (%s)\n", cfg.Ollama.URL, cfg.Ollama.Model)
	green.Print("    ▶ ")
	fmt.Printf("Database:   %s\n", cfg.Database.Path)
	if cfg.Watchdog.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Watchdog:   every %s, nudge after %s\n", cfg.Watchdog.Interval, cfg.Watchdog.Threshold)
	}
	fmt.Println()

	// Ensure database directory exists
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	// Open persistent store
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load progression ledger from the store
	ledger, err := progress.New(ctx, st, logger)
	if err != nil {
		return fmt.Errorf("loading progression ledger: %w", err)
	}

	// Load personas
	personas, err := persona.Load(cfg.Chat.PersonasPath, cfg.Chat.DefaultPersona, logger)
	if err != nil {
		return fmt.Errorf("loading personas: %w", err)
	}

	// Sessions, inference client, orchestrator
	sessions := session.NewManager(cfg.Chat.MaxHistory, personas.DefaultID(), st, logger)

	client, err := ollama.New(cfg.Ollama.URL, cfg.Ollama.Model, cfg.Ollama.Timeout, logger)
	if err != nil {
		return fmt.Errorf("creating ollama client: %w", err)
	}

	svc := chat.New(sessions, ledger, personas, client, cfg.Chat.XPPerMessage, logger)

	// Matrix bridge
	bridge, err := NewBridge(&cfg.Matrix, svc, logger)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	// Inactivity watchdog, wired to the bridge's room
	if cfg.Watchdog.Enabled {
		wd := watchdog.New(cfg.Watchdog.Interval, cfg.Watchdog.Threshold,
			bridge.LastActivity, bridge.SendNudge, logger)
		go wd.Run(ctx)
	}

	logger.Info("starting ember", "model", cfg.Ollama.Model)
	return bridge.Run(ctx)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
