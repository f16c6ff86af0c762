// ABOUTME: Process-wide convenience client for simple single-session programs
// ABOUTME: Registry holds one shared Client; it is not isolated across concurrent callers

package chat

import (
	"context"
	"iter"
	"sync"
)

// Registry holds one shared Client. Configure replaces it for every user of
// the registry, so two goroutines configuring different servers or sessions
// will observe each other's settings. Programs with more than one
// conversation should create Clients with New instead.
type Registry struct {
	mu     sync.RWMutex
	client *Client
}

// Configure replaces the shared client.
func (r *Registry) Configure(cfg Config) error {
	client, err := New(cfg)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.client = client
	r.mu.Unlock()
	return nil
}

// Reset drops the shared client.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.client = nil
	r.mu.Unlock()
}

// Client returns the shared client or ErrNotConfigured.
func (r *Registry) Client() (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.client == nil {
		return nil, ErrNotConfigured
	}
	return r.client, nil
}

// StreamChat streams through the shared client. The client is resolved
// when ranging starts.
func (r *Registry) StreamChat(ctx context.Context, message string, opts ...ChatOption) iter.Seq2[StreamResponse, error] {
	return func(yield func(StreamResponse, error) bool) {
		client, err := r.Client()
		if err != nil {
			yield(StreamResponse{}, err)
			return
		}
		for resp, err := range client.StreamChat(ctx, message, opts...) {
			if !yield(resp, err) {
				return
			}
		}
	}
}

var defaultRegistry Registry

// Configure sets the package-level client. See Registry for its sharing
// semantics.
func Configure(cfg Config) error {
	return defaultRegistry.Configure(cfg)
}

// Reset clears the package-level client.
func Reset() {
	defaultRegistry.Reset()
}

// Default returns the package-level client or ErrNotConfigured.
func Default() (*Client, error) {
	return defaultRegistry.Client()
}

// StreamChat streams through the package-level client.
func StreamChat(ctx context.Context, message string, opts ...ChatOption) iter.Seq2[StreamResponse, error] {
	return defaultRegistry.StreamChat(ctx, message, opts...)
}
