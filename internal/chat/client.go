// ABOUTME: Chat client configuration, validation, and session state
// ABOUTME: A Client is safe for concurrent use; only the session id is mutable

package chat

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http/httpguts"
)

// DefaultTimeout bounds connection setup and response headers for streams
// and the whole exchange for administrative calls.
const DefaultTimeout = 60 * time.Second

// Config configures a Client. Empty strings mean "absent".
type Config struct {
	APIURL      string
	APIKey      string
	SessionID   string
	AdapterName string

	// HTTPClient overrides the default client. Its own timeouts apply as is.
	HTTPClient *http.Client
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// Capabilities defaults to AllCapabilities.
	Capabilities CapabilitySet
	Logger       *slog.Logger
}

// Client talks to a chat server.
type Client struct {
	apiURL  string
	apiKey  string
	adapter string
	timeout time.Duration
	caps    CapabilitySet
	http    *http.Client
	logger  *slog.Logger

	mu        sync.RWMutex
	sessionID string
}

// New validates cfg and returns a Client. No network activity happens here.
func New(cfg Config) (*Client, error) {
	if err := validateURL(cfg.APIURL); err != nil {
		return nil, err
	}
	if !validOptionalHeader(cfg.APIKey) {
		return nil, &ConfigurationError{Message: "API key must be a valid string or null"}
	}
	if !validOptionalHeader(cfg.SessionID) {
		return nil, &ConfigurationError{Message: "Session ID must be a valid string or null"}
	}
	if !validOptionalHeader(cfg.AdapterName) {
		return nil, &ConfigurationError{Message: "Adapter name must be a valid string or null"}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = timeout
		httpClient = &http.Client{Transport: transport}
	}

	caps := cfg.Capabilities
	if caps == nil {
		caps = AllCapabilities
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		apiURL:    cfg.APIURL,
		apiKey:    cfg.APIKey,
		adapter:   cfg.AdapterName,
		timeout:   timeout,
		caps:      caps,
		http:      httpClient,
		logger:    logger.With("component", "chat_client"),
		sessionID: cfg.SessionID,
	}, nil
}

// SetSessionID replaces the stored session id. An empty id clears it.
func (c *Client) SetSessionID(id string) error {
	if !validOptionalHeader(id) {
		return &ConfigurationError{Message: "Session ID must be a valid string or null"}
	}
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
	return nil
}

// SessionID returns the stored session id, or "" when none is set.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// APIURL returns the configured base URL exactly as given.
func (c *Client) APIURL() string {
	return c.apiURL
}

// HasAPIKey reports whether a credential is configured.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// AdapterName returns the configured adapter, or "".
func (c *Client) AdapterName() string {
	return c.adapter
}

// resolveSession picks the override if given, else the stored session.
func (c *Client) resolveSession(override string) string {
	if override != "" {
		return override
	}
	return c.SessionID()
}

func validateURL(raw string) error {
	invalid := &ConfigurationError{Message: "API URL must be a valid string"}
	if strings.TrimSpace(raw) == "" || raw != strings.TrimSpace(raw) {
		return invalid
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return invalid
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid
	}
	return nil
}

// validOptionalHeader accepts "" (absent) or a value that can be sent as an
// HTTP header without surrounding whitespace.
func validOptionalHeader(v string) bool {
	if v == "" {
		return true
	}
	if v != strings.TrimSpace(v) {
		return false
	}
	return httpguts.ValidHeaderFieldValue(v)
}
