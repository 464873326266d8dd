package handler

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

const resetCodeTTL = 10 * time.Minute

type resetEntry struct {
	code      string
	expiresAt time.Time
}

// resetStore holds pending password reset codes in memory, keyed by the
// identifier the reset was requested for. Codes are single-use and
// expire after resetCodeTTL.
type resetStore struct {
	mu      sync.Mutex
	pending map[string]resetEntry
}

func newResetStore() *resetStore {
	return &resetStore{pending: make(map[string]resetEntry)}
}

// Issue generates a fresh 4-digit code for the identifier, replacing
// any previous one.
func (s *resetStore) Issue(identifier string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	code := fmt.Sprintf("%04d", n.Int64()+1000)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[identifier] = resetEntry{
		code:      code,
		expiresAt: time.Now().Add(resetCodeTTL),
	}
	return code, nil
}

// Verify consumes the code for the identifier. A wrong or expired code
// leaves no pending entry behind either way.
func (s *resetStore) Verify(identifier, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[identifier]
	if !ok {
		return false
	}
	delete(s.pending, identifier)
	return entry.code == code && time.Now().Before(entry.expiresAt)
}
