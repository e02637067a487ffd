// Package persistence provides apply-record stores implementing out.ApplyStore.
package persistence

import (
	"context"
	"errors"
	"sync"

	"swipe_server/core/domain"
	"swipe_server/core/port/out"
)

// Common persistence errors
var (
	ErrInvalidInput = errors.New("invalid input")
)

// MemoryApplyStore keeps apply records for the life of the process.
type MemoryApplyStore struct {
	mu      sync.Mutex
	records map[string]*domain.ApplyRecord
}

var _ out.ApplyStore = (*MemoryApplyStore)(nil)

func NewMemoryApplyStore() *MemoryApplyStore {
	return &MemoryApplyStore{records: make(map[string]*domain.ApplyRecord)}
}

// Get returns a copy of the record for cardID, or nil.
func (s *MemoryApplyStore) Get(ctx context.Context, cardID string) (*domain.ApplyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecord(s.records[cardID]), nil
}

// PutIfAbsent stores rec unless the card already has a record.
func (s *MemoryApplyStore) PutIfAbsent(ctx context.Context, rec *domain.ApplyRecord) (*domain.ApplyRecord, bool, error) {
	if rec == nil || rec.CardID == "" {
		return nil, false, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[rec.CardID]; ok {
		return cloneRecord(existing), false, nil
	}
	s.records[rec.CardID] = cloneRecord(rec)
	return cloneRecord(rec), true, nil
}

// Len returns the number of records.
func (s *MemoryApplyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func cloneRecord(rec *domain.ApplyRecord) *domain.ApplyRecord {
	if rec == nil {
		return nil
	}
	cp := *rec
	cp.Tags = append([]string(nil), rec.Tags...)
	return &cp
}
