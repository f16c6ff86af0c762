// ABOUTME: API key generation and verification for orbit-server
// ABOUTME: Keys are looked up by public prefix and checked against a bcrypt hash

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/schmitech/orbit-chat/internal/store"
)

const (
	// KeyPrefix starts every generated key.
	KeyPrefix = "orbit_"

	keyRandomBytes = 20
	prefixLength   = len(KeyPrefix) + 8

	// verifiedTTL bounds how long a successful bcrypt comparison is reused.
	verifiedTTL = time.Minute
)

// API key errors
var (
	ErrInvalidAPIKey  = errors.New("invalid API key")
	ErrInactiveAPIKey = errors.New("API key is deactivated")
)

// hashCost is a variable so tests can lower it.
var hashCost = bcrypt.DefaultCost

// KeyStore is the subset of store.Store used to check API keys.
type KeyStore interface {
	GetAPIKey(ctx context.Context, prefix string) (*store.APIKey, error)
	TouchAPIKey(ctx context.Context, prefix string, at time.Time) error
}

// GeneratedKey is a freshly minted key. Secret is shown once and never stored.
type GeneratedKey struct {
	Secret string
	Prefix string
	Hash   string
}

// GenerateAPIKey creates a random key and its bcrypt hash.
func GenerateAPIKey() (*GeneratedKey, error) {
	buf := make([]byte, keyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}
	secret := KeyPrefix + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), hashCost)
	if err != nil {
		return nil, fmt.Errorf("hashing api key: %w", err)
	}

	return &GeneratedKey{
		Secret: secret,
		Prefix: secret[:prefixLength],
		Hash:   string(hash),
	}, nil
}

// PrefixOf returns the lookup prefix of a raw key, or "" when the key is not
// in the generated format.
func PrefixOf(raw string) string {
	if !strings.HasPrefix(raw, KeyPrefix) || len(raw) <= prefixLength {
		return ""
	}
	return raw[:prefixLength]
}

type verifiedEntry struct {
	hash string
	at   time.Time
}

// Authenticator checks raw API keys against the store.
// Successful bcrypt comparisons are remembered for a minute; the stored row is
// still read on every call so deactivation takes effect immediately.
type Authenticator struct {
	keys   KeyStore
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	verified map[string]verifiedEntry
}

// NewAuthenticator creates an Authenticator backed by keys.
func NewAuthenticator(keys KeyStore, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		keys:     keys,
		logger:   logger.With("component", "auth"),
		now:      time.Now,
		verified: make(map[string]verifiedEntry),
	}
}

// Authenticate returns the identity for raw or ErrInvalidAPIKey / ErrInactiveAPIKey.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (*AuthContext, error) {
	prefix := PrefixOf(raw)
	if prefix == "" {
		return nil, ErrInvalidAPIKey
	}

	key, err := a.keys.GetAPIKey(ctx, prefix)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, fmt.Errorf("looking up api key: %w", err)
	}

	if !a.checkHash(raw, key.Hash) {
		return nil, ErrInvalidAPIKey
	}
	if !key.Active {
		return nil, ErrInactiveAPIKey
	}

	if err := a.keys.TouchAPIKey(ctx, prefix, a.now()); err != nil {
		a.logger.Warn("failed to record api key use", "prefix", prefix, "error", err)
	}

	return &AuthContext{
		KeyPrefix:   key.Prefix,
		KeyName:     key.Name,
		AdapterName: key.AdapterName,
	}, nil
}

func (a *Authenticator) checkHash(raw, hash string) bool {
	sum := sha256.Sum256([]byte(raw))
	id := hex.EncodeToString(sum[:])
	now := a.now()

	a.mu.Lock()
	entry, ok := a.verified[id]
	a.mu.Unlock()
	if ok && entry.hash == hash && now.Sub(entry.at) < verifiedTTL {
		return true
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) != nil {
		return false
	}

	a.mu.Lock()
	a.verified[id] = verifiedEntry{hash: hash, at: now}
	for k, e := range a.verified {
		if now.Sub(e.at) >= verifiedTTL {
			delete(a.verified, k)
		}
	}
	a.mu.Unlock()
	return true
}
