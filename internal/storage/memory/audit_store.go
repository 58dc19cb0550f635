package memory

import (
	"context"
	"sync"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

// AuditStore is an in-memory implementation of storage.AuditStore.
type AuditStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunAudit // keyed by run_id
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{data: make(map[string]*domain.RunAudit)}
}

var _ storage.AuditStore = (*AuditStore)(nil)

// Insert appends an audit record. Returns ErrDuplicateKey if run_id exists.
func (s *AuditStore) Insert(_ context.Context, audit *domain.RunAudit) error {
	if audit == nil || audit.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[audit.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	auditCopy := *audit
	s.data[audit.RunID] = &auditCopy
	return nil
}

// GetByRunID retrieves an audit record. Returns ErrNotFound if not exists.
func (s *AuditStore) GetByRunID(_ context.Context, runID string) (*domain.RunAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	audit, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	auditCopy := *audit
	return &auditCopy, nil
}
