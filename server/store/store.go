// Package store keeps payloads posted to /save for the lifetime of the
// process.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyPayload is returned by Save for an empty body.
var ErrEmptyPayload = errors.New("empty payload")

// Entry is one saved payload.
type Entry struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store saves and lists payloads.
type Store interface {
	Save(ctx context.Context, data json.RawMessage) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Len() int
}

// MemoryStore is an in-memory Store. Entries are listed in insertion order.
// With a positive maxEntries the oldest entry is evicted once the bound is
// reached.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    []Entry
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore creates a store holding at most maxEntries entries. Zero or
// less means unbounded.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{maxEntries: maxEntries, now: time.Now}
}

// Save appends a copy of data.
func (s *MemoryStore) Save(ctx context.Context, data json.RawMessage) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if len(data) == 0 {
		return Entry{}, ErrEmptyPayload
	}

	e := Entry{
		ID:        uuid.New().String(),
		Data:      append(json.RawMessage(nil), data...),
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		drop := len(s.entries) - s.maxEntries + 1
		s.entries = append(s.entries[:0:0], s.entries[drop:]...)
	}
	s.entries = append(s.entries, e)
	return e, nil
}

// List returns a snapshot of the entries.
func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Len returns the number of entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
