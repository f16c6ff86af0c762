// Package config handles configuration loading for orbit-server and orbit-chat.
//
// # Overview
//
// The server is configured from a YAML file with environment variable
// expansion, duration parsing, defaults, and validation. The terminal client
// reads a small TOML file of defaults.
//
// # Server Configuration File
//
// Default locations (in order):
//
//  1. Path from ORBIT_SERVER_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/orbit/server.yaml
//  3. ~/.config/orbit/server.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${ORBIT_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	replay:
//	  ttl: "5m"
//	responder:
//	  chunk_delay: "30ms"
//
// # Configuration Sections
//
//	server:
//	  http_addr: "localhost:3000"
//
//	database:
//	  path: "~/.local/share/orbit/orbit.db"
//
//	auth:
//	  jwt_secret: "${ORBIT_JWT_SECRET}"   # signs admin tokens
//	  require_api_key: true                # chat requests need X-API-Key
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text, json
//
//	limits:
//	  requests_per_second: 5   # per API key, 0 disables
//	  burst: 10
//
//	replay:
//	  ttl: "5m"          # duplicate X-Request-ID window
//	  max_entries: 10000
//
//	responder:
//	  chunk_delay: "30ms"
//	  chunk_words: 1
//
//	history:
//	  max_messages: 50   # default page size for history reads
//
//	threads:
//	  ttl: "24h"
//
// # Client Configuration File
//
// orbit-chat reads ~/.orbit/client.toml, or the path in ORBIT_CLIENT_CONFIG:
//
//	[defaults]
//	url = "http://localhost:3000"
//	api_key = "orbit_..."
//	session_id = ""
//	adapter = ""
//	capabilities = "history,files,threads"
//
// Command-line flags override file values. A missing file is not an error.
package config
