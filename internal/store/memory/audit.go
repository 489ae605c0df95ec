package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// AuditLog is an append-only in-memory audit log.
type AuditLog struct {
	mu      sync.RWMutex
	entries []model.AuditEntry
}

// NewAuditLog returns an empty log.
func NewAuditLog() *AuditLog { return &AuditLog{} }

// Append assigns the next id and stores a copy of e.
func (a *AuditLog) Append(_ context.Context, e *model.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	e.ID = uint64(len(a.entries) + 1)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	a.entries = append(a.entries, *e)
	return nil
}

// ListRecent returns up to limit entries, newest first.
func (a *AuditLog) ListRecent(_ context.Context, limit int) ([]model.AuditEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if limit <= 0 || limit > len(a.entries) {
		limit = len(a.entries)
	}
	out := make([]model.AuditEntry, 0, limit)
	for i := len(a.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.entries[i])
	}
	return out, nil
}

// Len returns the number of entries written so far.
func (a *AuditLog) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}
