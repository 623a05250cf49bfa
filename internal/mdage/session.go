package mdage

import (
	"sync"

	"mdage/internal/block"
)

// SessionCache remembers passphrases by ciphertext and an optional mode
// override. Entries live until ForgetAll; nothing is persisted.
type SessionCache struct {
	mu        sync.Mutex
	passwords map[string]string
	mode      *Mode
}

// NewSessionCache creates an empty session cache.
func NewSessionCache() *SessionCache {
	return &SessionCache{passwords: make(map[string]string)}
}

// Remember stores passphrase for ciphertext. Whitespace in ciphertext is
// ignored so wrapped and unwrapped payloads share an entry.
func (s *SessionCache) Remember(ciphertext, passphrase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passwords[block.Normalize(ciphertext)] = passphrase
}

func (s *SessionCache) Has(ciphertext string) bool {
	_, ok := s.Get(ciphertext)
	return ok
}

func (s *SessionCache) Get(ciphertext string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.passwords[block.Normalize(ciphertext)]
	return p, ok
}

// Len returns the number of remembered passphrases.
func (s *SessionCache) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.passwords)
}

// ForgetAll drops every passphrase and the mode override.
func (s *SessionCache) ForgetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passwords = make(map[string]string)
	s.mode = nil
}

// SetModeOverride sets or, with nil, clears the session mode.
func (s *SessionCache) SetModeOverride(m *Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == nil {
		s.mode = nil
		return
	}
	v := *m
	s.mode = &v
}

func (s *SessionCache) ModeOverride() (Mode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == nil {
		return "", false
	}
	return *s.mode, true
}
