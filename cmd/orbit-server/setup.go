// ABOUTME: First-run setup for orbit-server: interactive init and bootstrap
// ABOUTME: Writes server.yaml, issues the first API key, and saves an admin token

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/schmitech/orbit-chat/internal/auth"
	"github.com/schmitech/orbit-chat/internal/config"
	"github.com/schmitech/orbit-chat/internal/server"
	"github.com/schmitech/orbit-chat/internal/store"
)

const (
	maxKeyNameLength = 100
	adminTokenTTL    = 30 * 24 * time.Hour
)

// serverSettings are the values written into a fresh server.yaml.
type serverSettings struct {
	HTTPAddr          string
	DBPath            string
	JWTSecret         string
	RequireAPIKey     bool
	LogLevel          string
	LogFormat         string
	RequestsPerSecond float64
	Burst             int
	ChunkWords        int
	ChunkDelay        string
}

func defaultSettings() serverSettings {
	return serverSettings{
		HTTPAddr:      "localhost:3000",
		DBPath:        filepath.Join(getDataPath(), "orbit.db"),
		RequireAPIKey: true,
		LogLevel:      "info",
		LogFormat:     "text",
		ChunkWords:    config.DefaultChunkWords,
		ChunkDelay:    "0s",
	}
}

func renderConfig(s serverSettings) string {
	var sb strings.Builder

	sb.WriteString("# orbit-server configuration\n\n")

	sb.WriteString("server:\n")
	fmt.Fprintf(&sb, "  http_addr: %q\n\n", s.HTTPAddr)

	sb.WriteString("database:\n")
	fmt.Fprintf(&sb, "  path: %q\n\n", s.DBPath)

	sb.WriteString("auth:\n")
	if s.JWTSecret != "" {
		fmt.Fprintf(&sb, "  jwt_secret: %q\n", s.JWTSecret)
	} else {
		sb.WriteString("  # jwt_secret: \"${ORBIT_JWT_SECRET}\"\n")
	}
	fmt.Fprintf(&sb, "  require_api_key: %t\n\n", s.RequireAPIKey)

	sb.WriteString("logging:\n")
	fmt.Fprintf(&sb, "  level: %q\n", s.LogLevel)
	fmt.Fprintf(&sb, "  format: %q\n\n", s.LogFormat)

	if s.RequestsPerSecond > 0 {
		sb.WriteString("limits:\n")
		fmt.Fprintf(&sb, "  requests_per_second: %s\n", strconv.FormatFloat(s.RequestsPerSecond, 'f', -1, 64))
		fmt.Fprintf(&sb, "  burst: %d\n\n", s.Burst)
	}

	sb.WriteString("responder:\n")
	fmt.Fprintf(&sb, "  chunk_words: %d\n", s.ChunkWords)
	fmt.Fprintf(&sb, "  chunk_delay: %q\n", s.ChunkDelay)

	return sb.String()
}

func writeConfigFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// 0600: the file may carry the JWT secret
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

type bootstrapArgs struct {
	name    string
	adapter string
}

func parseBootstrapArgs(args []string) (bootstrapArgs, error) {
	var out bootstrapArgs
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--name" || arg == "-n":
			if i+1 >= len(args) {
				return out, fmt.Errorf("%s requires a value", arg)
			}
			i++
			out.name = args[i]
		case strings.HasPrefix(arg, "--name="):
			out.name = strings.TrimPrefix(arg, "--name=")
		case arg == "--adapter" || arg == "-a":
			if i+1 >= len(args) {
				return out, fmt.Errorf("%s requires a value", arg)
			}
			i++
			out.adapter = args[i]
		case strings.HasPrefix(arg, "--adapter="):
			out.adapter = strings.TrimPrefix(arg, "--adapter=")
		default:
			return out, fmt.Errorf("unknown argument: %s", arg)
		}
	}

	out.name = strings.TrimSpace(out.name)
	if out.name == "" {
		return out, fmt.Errorf("--name is required\n\nUsage: orbit-server bootstrap --name \"Your Name\" [--adapter NAME]")
	}
	if len(out.name) > maxKeyNameLength {
		return out, fmt.Errorf("name must be %d characters or less", maxKeyNameLength)
	}
	return out, nil
}

func runBootstrap(ctx context.Context, args []string) error {
	parsed, err := parseBootstrapArgs(args)
	if err != nil {
		return err
	}

	configPath := getConfigPath()
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		secret, err := generateSecret()
		if err != nil {
			return err
		}
		settings := defaultSettings()
		settings.JWTSecret = secret
		if err := writeConfigFile(configPath, renderConfig(settings)); err != nil {
			return err
		}
		green.Print("✓ ")
		fmt.Printf("Created config: %s\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must be set in %s before bootstrapping", configPath)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	count, err := st.CountAPIKeys(ctx)
	if err != nil {
		return fmt.Errorf("counting api keys: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("bootstrap already complete: %d API key(s) exist", count)
	}

	key, secret, err := server.IssueAPIKey(ctx, st, parsed.name, parsed.adapter, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("creating api key: %w", err)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return err
	}
	token, err := verifier.Generate(parsed.name, adminTokenTTL)
	if err != nil {
		return fmt.Errorf("generating admin token: %w", err)
	}

	tokenPath := filepath.Join(filepath.Dir(configPath), "token")
	if err := os.WriteFile(tokenPath, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("saving admin token: %w", err)
	}

	clientPath := config.ClientConfigPath()
	clientSaved := false
	if _, err := os.Stat(clientPath); errors.Is(err, fs.ErrNotExist) {
		clientCfg := &config.ClientConfig{Defaults: config.ClientDefaults{
			URL:     "http://" + clientHost(cfg.Server.HTTPAddr),
			APIKey:  secret,
			Adapter: parsed.adapter,
		}}
		if err := config.SaveClient(clientPath, clientCfg); err != nil {
			return err
		}
		clientSaved = true
	}

	fmt.Println()
	green.Print("✓ ")
	fmt.Printf("Created API key for %s (prefix %s)\n", key.Name, key.Prefix)
	fmt.Println()
	fmt.Print("  API key:     ")
	cyan.Println(secret)
	fmt.Print("  Admin token: ")
	fmt.Println(tokenPath)
	if clientSaved {
		fmt.Print("  Client:      ")
		fmt.Println(clientPath)
	}
	fmt.Println()
	yellow.Println("  The API key is shown once. Store it somewhere safe.")
	fmt.Println()
	fmt.Println("Next: orbit-server serve")

	return nil
}

// clientHost turns a listen address into one a local client can dial.
func clientHost(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

func runInit(in io.Reader) error {
	configPath := getConfigPath()
	reader := bufio.NewReader(in)

	fmt.Println()
	color.New(color.FgCyan, color.Bold).Println("orbit-server setup")
	fmt.Println()

	if _, err := os.Stat(configPath); err == nil {
		overwrite := prompt(reader, fmt.Sprintf("Config exists at %s. Overwrite? [y/N]", configPath), "n")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	settings := defaultSettings()
	settings.HTTPAddr = prompt(reader, "HTTP address", settings.HTTPAddr)
	settings.DBPath = prompt(reader, "Database path", settings.DBPath)
	settings.RequireAPIKey = isYes(prompt(reader, "Require an API key for chat? [Y/n]", "y"))
	settings.LogLevel = prompt(reader, "Log level (debug, info, warn, error)", settings.LogLevel)
	settings.LogFormat = prompt(reader, "Log format (text, json)", settings.LogFormat)

	rps, err := strconv.ParseFloat(prompt(reader, "Requests per second per key (0 disables)", "0"), 64)
	if err != nil || rps < 0 {
		return fmt.Errorf("requests per second must be a non-negative number")
	}
	settings.RequestsPerSecond = rps
	if rps > 0 {
		burst, err := strconv.Atoi(prompt(reader, "Burst", "5"))
		if err != nil || burst < 1 {
			return fmt.Errorf("burst must be a positive integer")
		}
		settings.Burst = burst
	}

	words, err := strconv.Atoi(prompt(reader, "Words per streamed chunk", strconv.Itoa(settings.ChunkWords)))
	if err != nil || words < 1 {
		return fmt.Errorf("words per chunk must be a positive integer")
	}
	settings.ChunkWords = words
	settings.ChunkDelay = prompt(reader, "Delay between chunks", settings.ChunkDelay)

	if isYes(prompt(reader, "Generate a JWT secret for admin endpoints? [Y/n]", "y")) {
		secret, err := generateSecret()
		if err != nil {
			return err
		}
		settings.JWTSecret = secret
	}

	content := renderConfig(settings)
	if _, err := config.Parse([]byte(content)); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}
	if err := writeConfigFile(configPath, content); err != nil {
		return err
	}

	fmt.Println()
	color.New(color.FgGreen).Print("✓ ")
	fmt.Printf("Config written to %s\n", configPath)
	fmt.Println()
	fmt.Println("Next: orbit-server bootstrap --name \"Your Name\"")
	return nil
}

func isYes(answer string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
