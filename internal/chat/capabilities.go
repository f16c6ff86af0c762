// ABOUTME: Capability tags for optional client operations
// ABOUTME: Operations check the client's set before any network activity

package chat

import (
	"slices"
	"strings"
)

// Capability names an optional server feature.
type Capability string

const (
	CapabilityHistory Capability = "history"
	CapabilityFiles   Capability = "files"
	CapabilityThreads Capability = "threads"
)

// AllCapabilities lists every optional operation the client knows.
var AllCapabilities = CapabilitySet{CapabilityHistory, CapabilityFiles, CapabilityThreads}

// CapabilitySet is the set of optional operations a server supports.
type CapabilitySet []Capability

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	return slices.Contains(s, c)
}

func (s CapabilitySet) String() string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = string(c)
	}
	return strings.Join(names, ",")
}

// ParseCapabilities parses a comma-separated list such as "history,files".
// Unknown names are kept so newer servers can be described.
func ParseCapabilities(s string) CapabilitySet {
	var out CapabilitySet
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		c := Capability(part)
		if !out.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Capabilities returns a copy of the client's capability set.
func (c *Client) Capabilities() CapabilitySet {
	return slices.Clone(c.caps)
}

// Supports reports whether op may be called on this client.
func (c *Client) Supports(op Capability) bool {
	return c.caps.Has(op)
}

func (c *Client) require(op Capability) error {
	if !c.caps.Has(op) {
		return &UnsupportedOperationError{Op: op}
	}
	return nil
}
