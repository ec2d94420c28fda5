package repository

import (
	"context"
	"sync"

	"github.com/kinshuk1456/summit-checkin-app/internal/domain"
)

// MemoryCheckins is an in-memory ledger for tests and local development.
type MemoryCheckins struct {
	mu     sync.RWMutex
	nextID int64
	events []domain.CheckinEvent
}

var _ CheckinsRepo = (*MemoryCheckins)(nil)

func NewMemoryCheckins() *MemoryCheckins {
	return &MemoryCheckins{nextID: 1}
}

func (r *MemoryCheckins) Record(_ context.Context, ev domain.CheckinEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.Email = domain.NormalizeEmail(ev.Email)
	moved := false
	kept := r.events[:0]
	for _, existing := range r.events {
		if existing.Email == ev.Email {
			moved = true
			continue
		}
		kept = append(kept, existing)
	}
	r.events = kept

	ev.ID = r.nextID
	r.nextID++
	r.events = append(r.events, ev)
	return moved, nil
}

func (r *MemoryCheckins) ReadAll(_ context.Context) ([]domain.CheckinEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.CheckinEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

func (r *MemoryCheckins) Reset(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
	r.nextID = 1
	return nil
}

func (r *MemoryCheckins) Close() error { return nil }
