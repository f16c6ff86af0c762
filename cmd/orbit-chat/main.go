// ABOUTME: Terminal client for orbit-server with line editing and streamed replies
// ABOUTME: Reads defaults from ~/.orbit/client.toml and lets flags override them

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/peterh/liner"

	"github.com/schmitech/orbit-chat/internal/chat"
	"github.com/schmitech/orbit-chat/internal/config"
)

type options struct {
	url          string
	apiKey       string
	sessionID    string
	adapter      string
	capabilities string
	noStream     bool
	debug        bool
	save         bool
}

func main() {
	clientCfg, err := config.LoadClient(config.ClientConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := options{}
	flag.StringVar(&opts.url, "url", clientCfg.Defaults.URL, "Chat server URL")
	flag.StringVar(&opts.apiKey, "api-key", clientCfg.Defaults.APIKey, "API key sent as X-API-Key")
	flag.StringVar(&opts.sessionID, "session-id", clientCfg.Defaults.SessionID, "Session ID (a new one is generated when empty)")
	flag.StringVar(&opts.adapter, "adapter", clientCfg.Defaults.Adapter, "Adapter name sent as X-Adapter-Name")
	flag.StringVar(&opts.capabilities, "capabilities", clientCfg.Defaults.Capabilities, "Comma-separated server capabilities (history,files,threads)")
	flag.BoolVar(&opts.noStream, "no-stream", false, "Request a single JSON reply instead of a stream")
	flag.BoolVar(&opts.debug, "debug", false, "Log protocol details to stderr")
	flag.BoolVar(&opts.save, "save", false, "Save url, api-key, and adapter as the new defaults")
	flag.Parse()

	if err := run(clientCfg, opts, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run saves defaults when asked, then sends args as one message or starts
// the interactive prompt.
func run(clientCfg *config.ClientConfig, opts options, args []string, out io.Writer) error {
	if opts.save {
		clientCfg.Defaults.URL = opts.url
		clientCfg.Defaults.APIKey = opts.apiKey
		clientCfg.Defaults.Adapter = opts.adapter
		clientCfg.Defaults.Capabilities = opts.capabilities
		if err := config.SaveClient(config.ClientConfigPath(), clientCfg); err != nil {
			return err
		}
	}

	sess, err := newSession(opts, out)
	if err != nil {
		return err
	}

	// one-shot mode: orbit-chat [flags] message...
	if len(args) > 0 {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return sess.send(ctx, strings.Join(args, " "))
	}

	return runREPL(sess)
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newSession configures the process-wide chat client and wraps it.
func newSession(opts options, out io.Writer) (*session, error) {
	sessionID := opts.sessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	cfg := chat.Config{
		APIURL:      opts.url,
		APIKey:      opts.apiKey,
		SessionID:   sessionID,
		AdapterName: opts.adapter,
		Logger:      newLogger(opts.debug),
	}
	if opts.capabilities != "" {
		cfg.Capabilities = chat.ParseCapabilities(opts.capabilities)
	}

	if err := chat.Configure(cfg); err != nil {
		return nil, err
	}
	client, err := chat.Default()
	if err != nil {
		return nil, err
	}

	return &session{
		client: client,
		out:    out,
		stream: !opts.noStream,
		debug:  opts.debug,
	}, nil
}

// historyPath returns ~/.orbit/chat_history, next to the client config.
func historyPath() string {
	return filepath.Join(filepath.Dir(config.ClientConfigPath()), "chat_history")
}

func runREPL(sess *session) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	histFile := historyPath()
	if f, err := os.Open(histFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer saveHistory(line, histFile)

	cyan := color.New(color.FgCyan, color.Bold)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(sess.out, "orbit-chat connected to %s\n", sess.client.APIURL())
	gray.Fprintf(sess.out, "session %s\n", sess.client.SessionID())
	fmt.Fprintln(sess.out, "Type a message and press Enter. /help for commands. Ctrl+D to quit.")
	fmt.Fprintln(sess.out)

	for {
		input, err := line.Prompt("> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(sess.out, "\nGoodbye!")
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		// Ctrl+C during a reply stops that reply only
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT)
		quit, err := sess.handle(ctx, input)
		cancel()

		if err != nil {
			color.New(color.FgRed).Fprintf(sess.out, "[error] %v\n", err)
		}
		if quit {
			fmt.Fprintln(sess.out, "Goodbye!")
			return nil
		}
		fmt.Fprintln(sess.out)
	}
}

func saveHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}

func completeCommand(prefix string) []string {
	if !strings.HasPrefix(prefix, "/") {
		return nil
	}
	var out []string
	for _, c := range commands {
		if strings.HasPrefix(c.name, prefix) {
			out = append(out, c.name)
		}
	}
	return out
}
