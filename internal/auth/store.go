package auth

import (
	"fmt"
	"sync"
	"time"
)

// TokenStore is the durable client-side home of the session token.
type TokenStore interface {
	LoadToken() (token string, ok bool, err error)
	SaveToken(token string) error
	DeleteToken() error
}

// Store holds the current Identity and Token. The two are always set or
// cleared together, and only the Store writes to the TokenStore.
type Store struct {
	mu       sync.RWMutex
	identity *Identity
	token    string
	durable  TokenStore
}

// NewStore creates an empty Store backed by durable.
func NewStore(durable TokenStore) *Store {
	return &Store{durable: durable}
}

// Token returns the current token, or "" when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns the current identity.
func (s *Store) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// IsAuthenticated reports whether both an identity and a token are held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil && s.token != ""
}

// Set replaces the session. The token is persisted first; on failure the
// in-memory session is left as it was.
func (s *Store) Set(identity Identity, token string) error {
	if token == "" {
		return fmt.Errorf("setting session: empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.durable.SaveToken(token); err != nil {
		return fmt.Errorf("setting session: %w", err)
	}
	s.identity = &identity
	s.token = token
	return nil
}

// Clear removes the session. Memory is always cleared; the error reports a
// failure to erase the persisted token.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	s.token = ""
	if err := s.durable.DeleteToken(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Restore loads the persisted token into memory with a placeholder identity
// taken from the token's claims, if it has any. A JWT that has already
// expired is erased instead. Returns true when a session was restored.
func (s *Store) Restore(now time.Time) (bool, error) {
	token, ok, err := s.durable.LoadToken()
	if err != nil {
		return false, fmt.Errorf("restoring session: %w", err)
	}
	if !ok {
		return false, nil
	}

	claims, _ := peekClaims(token)
	if claims.expired(now) {
		return false, s.Clear()
	}

	placeholder := claims.identity
	s.mu.Lock()
	s.identity = &placeholder
	s.token = token
	s.mu.Unlock()
	return true, nil
}

// replaceIdentity swaps the identity for the one the server confirmed, but
// only while token is still the current token.
func (s *Store) replaceIdentity(token string, identity Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token || s.token == "" {
		return false
	}
	s.identity = &identity
	return true
}

// clearIf clears the session only while token is still the current token.
func (s *Store) clearIf(token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token || s.token == "" {
		return false, nil
	}
	s.identity = nil
	s.token = ""
	if err := s.durable.DeleteToken(); err != nil {
		return true, fmt.Errorf("clearing session: %w", err)
	}
	return true, nil
}
