package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/store"
)

type refreshToken struct {
	userID    uint64
	expiresAt time.Time
	revoked   bool
}

// Tokens keeps refresh token hashes in memory.  It has the same method
// set as repository.TokenRepo.
type Tokens struct {
	mu     sync.Mutex
	tokens map[string]refreshToken
	now    func() time.Time
}

// NewTokens returns an empty token store.
func NewTokens() *Tokens {
	return &Tokens{tokens: make(map[string]refreshToken), now: time.Now}
}

func (t *Tokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tokens[tokenHash]; ok {
		return store.ErrConflict
	}
	t.tokens[tokenHash] = refreshToken{userID: userID, expiresAt: exp}
	return nil
}

func (t *Tokens) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tok, ok := t.tokens[tokenHash]
	if !ok || tok.revoked || t.now().After(tok.expiresAt) {
		return 0, store.ErrNotFound
	}
	return tok.userID, nil
}

func (t *Tokens) RevokeByHash(_ context.Context, tokenHash string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tok, ok := t.tokens[tokenHash]; ok {
		tok.revoked = true
		t.tokens[tokenHash] = tok
	}
	return nil
}

func (t *Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for h, tok := range t.tokens {
		if tok.userID == userID {
			tok.revoked = true
			t.tokens[h] = tok
		}
	}
	return nil
}
