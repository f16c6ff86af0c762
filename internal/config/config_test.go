// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, duration parsing, and the client TOML file

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "server.yaml")

	configContent := `
server:
  http_addr: "0.0.0.0:3000"

database:
  path: "./test.db"

auth:
  jwt_secret: "secret"
  require_api_key: true

logging:
  level: "debug"
  format: "json"

limits:
  requests_per_second: 5
  burst: 10

replay:
  ttl: "2m"
  max_entries: 500

responder:
  chunk_delay: "25ms"
  chunk_words: 3

history:
  max_messages: 100

threads:
  ttl: "12h"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:3000" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:3000")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if !cfg.Auth.RequireAPIKey {
		t.Error("Auth.RequireAPIKey = false, want true")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
	if cfg.Limits.RequestsPerSecond != 5 || cfg.Limits.Burst != 10 {
		t.Errorf("Limits = %+v, want 5/10", cfg.Limits)
	}
	if cfg.Replay.TTL != 2*time.Minute {
		t.Errorf("Replay.TTL = %v, want %v", cfg.Replay.TTL, 2*time.Minute)
	}
	if cfg.Replay.MaxEntries != 500 {
		t.Errorf("Replay.MaxEntries = %d, want 500", cfg.Replay.MaxEntries)
	}
	if cfg.Responder.ChunkDelay != 25*time.Millisecond {
		t.Errorf("Responder.ChunkDelay = %v, want %v", cfg.Responder.ChunkDelay, 25*time.Millisecond)
	}
	if cfg.Responder.ChunkWords != 3 {
		t.Errorf("Responder.ChunkWords = %d, want 3", cfg.Responder.ChunkWords)
	}
	if cfg.History.MaxMessages != 100 {
		t.Errorf("History.MaxMessages = %d, want 100", cfg.History.MaxMessages)
	}
	if cfg.Threads.TTL != 12*time.Hour {
		t.Errorf("Threads.TTL = %v, want %v", cfg.Threads.TTL, 12*time.Hour)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  http_addr: "localhost:3000"
database:
  path: "orbit.db"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Replay.TTL != DefaultReplayTTL {
		t.Errorf("Replay.TTL = %v, want %v", cfg.Replay.TTL, DefaultReplayTTL)
	}
	if cfg.Replay.MaxEntries != DefaultReplayMaxEntries {
		t.Errorf("Replay.MaxEntries = %d, want %d", cfg.Replay.MaxEntries, DefaultReplayMaxEntries)
	}
	if cfg.Responder.ChunkWords != DefaultChunkWords {
		t.Errorf("Responder.ChunkWords = %d, want %d", cfg.Responder.ChunkWords, DefaultChunkWords)
	}
	if cfg.History.MaxMessages != DefaultHistoryLimit {
		t.Errorf("History.MaxMessages = %d, want %d", cfg.History.MaxMessages, DefaultHistoryLimit)
	}
	if cfg.Threads.TTL != DefaultThreadTTL {
		t.Errorf("Threads.TTL = %v, want %v", cfg.Threads.TTL, DefaultThreadTTL)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text", cfg.Logging)
	}
	if cfg.Auth.RequireAPIKey {
		t.Error("Auth.RequireAPIKey = true, want false by default")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("ORBIT_TEST_SECRET", "from-env")
	t.Setenv("ORBIT_TEST_DB", "/tmp/orbit.db")

	cfg, err := Parse([]byte(`
server:
  http_addr: "localhost:3000"
database:
  path: "${ORBIT_TEST_DB}"
auth:
  jwt_secret: "${ORBIT_TEST_SECRET}"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "from-env")
	}
	if cfg.Database.Path != "/tmp/orbit.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/orbit.db")
	}
}

func TestLoad_UnsetEnvVarBecomesEmpty(t *testing.T) {
	got := expandEnvVars("secret: ${ORBIT_DEFINITELY_UNSET_VAR}")
	if got != "secret: " {
		t.Errorf("expandEnvVars() = %q, want %q", got, "secret: ")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing http addr",
			content: "database:\n  path: x.db\n",
			wantErr: "server.http_addr is required",
		},
		{
			name:    "missing database path",
			content: "server:\n  http_addr: localhost:1\n",
			wantErr: "database.path is required",
		},
		{
			name:    "bad duration",
			content: "server:\n  http_addr: localhost:1\ndatabase:\n  path: x.db\nreplay:\n  ttl: soon\n",
			wantErr: "parsing replay.ttl",
		},
		{
			name:    "bad log level",
			content: "server:\n  http_addr: localhost:1\ndatabase:\n  path: x.db\nlogging:\n  level: loud\n",
			wantErr: "logging.level",
		},
		{
			name:    "rate without burst",
			content: "server:\n  http_addr: localhost:1\ndatabase:\n  path: x.db\nlimits:\n  requests_per_second: 2\n",
			wantErr: "limits.burst",
		},
		{
			name:    "invalid yaml",
			content: "server: [unclosed\n",
			wantErr: "parsing config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if err == nil {
				t.Fatalf("Parse() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("Load() error = %q, want reading error", err.Error())
	}
}

func TestLoadClient_File(t *testing.T) {
	t.Setenv("ORBIT_TEST_KEY", "orbit_123")
	path := filepath.Join(t.TempDir(), "client.toml")
	content := `
[defaults]
url = "https://orbit.example.com"
api_key = "${ORBIT_TEST_KEY}"
session_id = "abc"
adapter = "qa-sql"
capabilities = "history,files"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write client config: %v", err)
	}

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}

	want := ClientDefaults{
		URL:          "https://orbit.example.com",
		APIKey:       "orbit_123",
		SessionID:    "abc",
		Adapter:      "qa-sql",
		Capabilities: "history,files",
	}
	if cfg.Defaults != want {
		t.Errorf("Defaults = %+v, want %+v", cfg.Defaults, want)
	}
}

func TestLoadClient_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadClient(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if cfg.Defaults.URL != DefaultClientURL {
		t.Errorf("Defaults.URL = %q, want %q", cfg.Defaults.URL, DefaultClientURL)
	}
}

func TestLoadClient_InvalidURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.toml")
	if err := os.WriteFile(path, []byte("[defaults]\nurl = \"ftp://nope\"\n"), 0600); err != nil {
		t.Fatalf("failed to write client config: %v", err)
	}

	_, err := LoadClient(path)
	if err == nil || !strings.Contains(err.Error(), "http or https") {
		t.Errorf("LoadClient() error = %v, want scheme error", err)
	}
}

func TestSaveClient_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.toml")
	cfg := &ClientConfig{Defaults: ClientDefaults{URL: "http://localhost:3000", SessionID: "s-9"}}

	if err := SaveClient(path, cfg); err != nil {
		t.Fatalf("SaveClient() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if loaded.Defaults.SessionID != "s-9" {
		t.Errorf("SessionID = %q, want %q", loaded.Defaults.SessionID, "s-9")
	}
}

func TestClientConfigPath_EnvOverride(t *testing.T) {
	t.Setenv("ORBIT_CLIENT_CONFIG", "/etc/orbit/client.toml")
	if got := ClientConfigPath(); got != "/etc/orbit/client.toml" {
		t.Errorf("ClientConfigPath() = %q, want env override", got)
	}
}
