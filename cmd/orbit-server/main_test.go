// ABOUTME: Tests for orbit-server setup commands, config paths, and logging
// ABOUTME: Runs init and bootstrap against temp directories

package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitech/orbit-chat/internal/auth"
	"github.com/schmitech/orbit-chat/internal/config"
	"github.com/schmitech/orbit-chat/internal/store"
)

func init() {
	color.NoColor = true
}

func TestGetConfigPath(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		t.Setenv("ORBIT_SERVER_CONFIG", "/tmp/custom.yaml")
		assert.Equal(t, "/tmp/custom.yaml", getConfigPath())
	})

	t.Run("xdg config home", func(t *testing.T) {
		t.Setenv("ORBIT_SERVER_CONFIG", "")
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		assert.Equal(t, filepath.Join("/xdg", "orbit", "server.yaml"), getConfigPath())
	})
}

func TestGetDataPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	assert.Equal(t, filepath.Join("/data", "orbit"), getDataPath())
}

func TestParseBootstrapArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    bootstrapArgs
		wantErr string
	}{
		{name: "long flag", args: []string{"--name", "Ada"}, want: bootstrapArgs{name: "Ada"}},
		{name: "short flag", args: []string{"-n", "Ada"}, want: bootstrapArgs{name: "Ada"}},
		{name: "equals form", args: []string{"--name=Ada", "--adapter=qa"}, want: bootstrapArgs{name: "Ada", adapter: "qa"}},
		{name: "adapter flag", args: []string{"-n", "Ada", "-a", "qa"}, want: bootstrapArgs{name: "Ada", adapter: "qa"}},
		{name: "missing name", args: nil, wantErr: "--name is required"},
		{name: "blank name", args: []string{"--name", "   "}, wantErr: "--name is required"},
		{name: "missing value", args: []string{"--name"}, wantErr: "requires a value"},
		{name: "unknown flag", args: []string{"--name", "Ada", "--force"}, wantErr: "unknown argument"},
		{name: "too long", args: []string{"--name", strings.Repeat("x", maxKeyNameLength+1)}, wantErr: "characters or less"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBootstrapArgs(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderConfig_ParsesBack(t *testing.T) {
	s := defaultSettings()
	s.DBPath = "/var/lib/orbit/orbit.db"
	s.JWTSecret = strings.Repeat("s", 44)
	s.RequestsPerSecond = 2.5
	s.Burst = 4
	s.ChunkWords = 3
	s.ChunkDelay = "50ms"

	cfg, err := config.Parse([]byte(renderConfig(s)))
	require.NoError(t, err)

	assert.Equal(t, "localhost:3000", cfg.Server.HTTPAddr)
	assert.Equal(t, "/var/lib/orbit/orbit.db", cfg.Database.Path)
	assert.Equal(t, s.JWTSecret, cfg.Auth.JWTSecret)
	assert.True(t, cfg.Auth.RequireAPIKey)
	assert.Equal(t, 2.5, cfg.Limits.RequestsPerSecond)
	assert.Equal(t, 4, cfg.Limits.Burst)
	assert.Equal(t, 3, cfg.Responder.ChunkWords)
	assert.Equal(t, "50ms", cfg.Responder.ChunkDelay.String())
}

func TestRenderConfig_NoSecretNoLimits(t *testing.T) {
	out := renderConfig(defaultSettings())
	assert.Contains(t, out, "# jwt_secret:")
	assert.NotContains(t, out, "limits:")

	cfg, err := config.Parse([]byte(out))
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Zero(t, cfg.Limits.RequestsPerSecond)
}

func TestClientHost(t *testing.T) {
	assert.Equal(t, "localhost:3000", clientHost(":3000"))
	assert.Equal(t, "localhost:3000", clientHost("0.0.0.0:3000"))
	assert.Equal(t, "10.0.0.5:8080", clientHost("10.0.0.5:8080"))
	assert.Equal(t, "not-an-addr", clientHost("not-an-addr"))
}

func TestIsYes(t *testing.T) {
	assert.True(t, isYes("y"))
	assert.True(t, isYes(" YES "))
	assert.False(t, isYes("n"))
	assert.False(t, isYes(""))
}

func TestRunBootstrap(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "orbit", "server.yaml")
	clientPath := filepath.Join(dir, "client.toml")
	t.Setenv("ORBIT_SERVER_CONFIG", configPath)
	t.Setenv("ORBIT_CLIENT_CONFIG", clientPath)
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	ctx := context.Background()
	require.NoError(t, runBootstrap(ctx, []string{"--name", "Ada", "--adapter", "qa"}))

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Auth.JWTSecret)

	// admin token verifies against the generated secret
	token, err := os.ReadFile(filepath.Join(dir, "orbit", "token"))
	require.NoError(t, err)
	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	require.NoError(t, err)
	subject, err := verifier.Verify(strings.TrimSpace(string(token)))
	require.NoError(t, err)
	assert.Equal(t, "Ada", subject)

	// the client config carries a working key
	clientCfg, err := config.LoadClient(clientPath)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", clientCfg.Defaults.URL)
	assert.Equal(t, "qa", clientCfg.Defaults.Adapter)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	require.NoError(t, err)
	authn := auth.NewAuthenticator(st, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	ac, err := authn.Authenticate(ctx, clientCfg.Defaults.APIKey)
	require.NoError(t, err)
	assert.Equal(t, "Ada", ac.KeyName)
	assert.Equal(t, "qa", ac.AdapterName)
	require.NoError(t, st.Close())

	// a second run refuses
	err = runBootstrap(ctx, []string{"--name", "Eve"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bootstrap already complete")
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "server.yaml")
	t.Setenv("ORBIT_SERVER_CONFIG", configPath)
	t.Setenv("XDG_DATA_HOME", dir)

	// addr, db, require key, level, format, rps, burst, words, delay, secret
	answers := strings.Join([]string{
		"127.0.0.1:4000", "", "n", "debug", "json", "1", "2", "", "10ms", "n",
	}, "\n") + "\n"

	require.NoError(t, runInit(strings.NewReader(answers)))

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4000", cfg.Server.HTTPAddr)
	assert.Equal(t, filepath.Join(dir, "orbit", "orbit.db"), cfg.Database.Path)
	assert.False(t, cfg.Auth.RequireAPIKey)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 1.0, cfg.Limits.RequestsPerSecond)
	assert.Equal(t, 2, cfg.Limits.Burst)
	assert.Equal(t, 1, cfg.Responder.ChunkWords)
	assert.Empty(t, cfg.Auth.JWTSecret)
}

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.Debug("hidden")
	logger.With("component", "store").WithGroup("req").Info("saved", "id", 7)
	logger.Error("boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INF saved component=store req.id=7")
	assert.Contains(t, out, "ERR boom")
}

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("skipped")
	logger.Warn("kept", "n", 1)

	assert.NotContains(t, buf.String(), "skipped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
}
