package credentials

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// DefaultTokenEnv is checked when no explicit token or file token exists.
const DefaultTokenEnv = "VOICEDESK_TOKEN"

// ResolverConfig holds configuration for token resolution.
type ResolverConfig struct {
	// Token is an explicit token, typically from configuration.
	Token string

	// TokenFile is the persistent store location. Empty keeps the token in memory.
	TokenFile string

	// TokenEnv names an environment variable consulted last. Default: VOICEDESK_TOKEN.
	TokenEnv string
}

// Resolve builds the token store according to the chain:
//  1. Token (explicit value)
//  2. TokenFile (persisted by a previous login)
//  3. TokenEnv (environment variable)
//
// Save always writes to the persistent layer. Clear wipes every layer so a
// sign-out is not undone by an override.
func Resolve(cfg ResolverConfig) TokenStore {
	var base TokenStore
	if cfg.TokenFile != "" {
		base = NewFileStore(cfg.TokenFile)
	} else {
		base = NewMemoryStore("")
	}

	override := strings.TrimSpace(cfg.Token)
	if override == "" {
		env := cfg.TokenEnv
		if env == "" {
			env = DefaultTokenEnv
		}
		if _, err := base.Load(); errors.Is(err, ErrNoToken) {
			override = strings.TrimSpace(os.Getenv(env))
		}
	}

	if override == "" {
		return base
	}
	return &overrideStore{base: base, override: override}
}

// overrideStore answers Load with a configured token until it is cleared.
type overrideStore struct {
	base TokenStore

	mu       sync.Mutex
	override string
}

func (s *overrideStore) Load() (string, error) {
	s.mu.Lock()
	override := s.override
	s.mu.Unlock()
	if override != "" {
		return override, nil
	}
	return s.base.Load()
}

func (s *overrideStore) Save(token string) error {
	s.mu.Lock()
	s.override = ""
	s.mu.Unlock()
	return s.base.Save(token)
}

func (s *overrideStore) Clear() error {
	s.mu.Lock()
	s.override = ""
	s.mu.Unlock()
	return s.base.Clear()
}
