// ABOUTME: Terminal client configuration loaded from ~/.orbit/client.toml
// ABOUTME: Supplies default server URL, API key, session, and adapter for orbit-chat

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ClientConfig is the terminal client's configuration file.
type ClientConfig struct {
	Defaults ClientDefaults `toml:"defaults"`
}

// ClientDefaults are used when the matching flag is not given.
type ClientDefaults struct {
	URL          string `toml:"url"`
	APIKey       string `toml:"api_key"`
	SessionID    string `toml:"session_id"`
	Adapter      string `toml:"adapter"`
	Capabilities string `toml:"capabilities"`
}

// DefaultClientURL is used when neither a flag nor the file names a server.
const DefaultClientURL = "http://localhost:3000"

// ClientConfigPath returns the client config location.
// Priority: ORBIT_CLIENT_CONFIG env var > ~/.orbit/client.toml
func ClientConfigPath() string {
	if envPath := os.Getenv("ORBIT_CLIENT_CONFIG"); envPath != "" {
		return envPath
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "client.toml"
	}
	return filepath.Join(homeDir, ".orbit", "client.toml")
}

// LoadClient reads the client config. A missing file yields defaults.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg.Defaults.URL = DefaultClientURL
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading client config: %w", err)
	}

	if _, err := toml.Decode(expandEnvVars(string(data)), cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}

	if cfg.Defaults.URL == "" {
		cfg.Defaults.URL = DefaultClientURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating client config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the server URL is usable.
func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.Defaults.URL)
	if err != nil {
		return fmt.Errorf("defaults.url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("defaults.url must use http or https scheme")
	}
	if strings.TrimSpace(c.Defaults.APIKey) != c.Defaults.APIKey {
		return fmt.Errorf("defaults.api_key has surrounding whitespace")
	}
	return nil
}

// SaveClient writes cfg to path, creating the directory. The file holds an
// API key so it is only readable by the owner.
func SaveClient(path string, cfg *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening client config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("writing client config: %w", err)
	}
	return nil
}
