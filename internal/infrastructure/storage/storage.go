// Package storage holds the strategy document codec and the in-memory store.
// Backends under this package persist the whole strategy set as one JSON
// document; none of them support partial writes.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"livefeed/internal/application/port"
	"livefeed/internal/domain"
)

// Encode renders the strategy document. An empty set is "[]", never "null".
func Encode(set []domain.Strategy) ([]byte, error) {
	if set == nil {
		set = []domain.Strategy{}
	}
	return json.MarshalIndent(set, "", "  ")
}

// Decode parses a strategy document. Blank input is an empty set.
func Decode(b []byte) ([]domain.Strategy, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return []domain.Strategy{}, nil
	}
	var set []domain.Strategy
	if err := json.Unmarshal(b, &set); err != nil {
		return nil, fmt.Errorf("decode strategies: %w", err)
	}
	if set == nil {
		set = []domain.Strategy{}
	}
	return set, nil
}

// MemoryStore keeps the document in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	doc []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) ([]domain.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Decode(s.doc)
}

func (s *MemoryStore) Save(ctx context.Context, set []domain.Strategy) error {
	b, err := Encode(set)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.doc = b
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var _ port.StrategyStore = (*MemoryStore)(nil)
