// ABOUTME: Entry point for orbit-server, the reference chat protocol server
// ABOUTME: Dispatches serve, init, bootstrap, and health subcommands

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/schmitech/orbit-chat/internal/config"
	"github.com/schmitech/orbit-chat/internal/server"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
       _     _ _
  ___ | |__ (_) |_      ___  ___ _ ____   _____ _ __
 / _ \| '_ \| | __|____/ __|/ _ \ '__\ \ / / _ \ '__|
| (_) | |_) | | ||_____\__ \  __/ |   \ V /  __/ |
 \___/|_.__/|_|\__|    |___/\___|_|    \_/ \___|_|
`

// getConfigPath returns the path to the server config file.
// Priority: ORBIT_SERVER_CONFIG env var > XDG_CONFIG_HOME/orbit/server.yaml > ~/.config/orbit/server.yaml
func getConfigPath() string {
	if envPath := os.Getenv("ORBIT_SERVER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "server.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "orbit", "server.yaml")
}

// getDataPath returns the orbit data directory.
// Priority: XDG_DATA_HOME/orbit > ~/.local/share/orbit
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "orbit")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: orbit-server <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                  Start the server")
		fmt.Println("  init                   Create a new config file interactively")
		fmt.Println("  bootstrap --name NAME  Create the first API key and an admin token")
		fmt.Println("  health                 Check server readiness")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(os.Stdin)
	case "bootstrap":
		err = runBootstrap(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stdout)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("API keys:  ")
	if cfg.Auth.RequireAPIKey {
		cyan.Println("required")
	} else {
		yellow.Println("optional")
	}
	if cfg.Limits.RequestsPerSecond > 0 {
		green.Print("    ▶ ")
		fmt.Printf("Limits:    %.1f req/s, burst %d\n", cfg.Limits.RequestsPerSecond, cfg.Limits.Burst)
	}
	fmt.Println()

	logger.Info("starting orbit-server",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var status struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	_ = json.Unmarshal(body, &status)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d %s", resp.StatusCode, status.Error)
	}

	fmt.Println(status.Status)
	return nil
}
