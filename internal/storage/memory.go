package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a thread-safe store used when a database is not configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	analyses []Analysis
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{analyses: make([]Analysis, 0)}
}

// CreateAnalysis prepends an analysis, keeping the 50 most recent.
func (s *InMemoryStore) CreateAnalysis(_ context.Context, input Analysis) (Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}
	if input.Products == nil {
		input.Products = []Product{}
	}

	s.analyses = append([]Analysis{input}, s.analyses...)
	if len(s.analyses) > 50 {
		s.analyses = s.analyses[:50]
	}

	return input, nil
}

// ListAnalyses returns a snapshot of stored analyses.
func (s *InMemoryStore) ListAnalyses(_ context.Context) ([]Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]Analysis, len(s.analyses))
	copy(snapshot, s.analyses)
	return snapshot, nil
}

// GetAnalysis returns an analysis by ID.
func (s *InMemoryStore) GetAnalysis(_ context.Context, id string) (Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.analyses {
		if a.ID == id {
			return a, nil
		}
	}
	return Analysis{}, ErrNotFound
}

// UpdateProducts replaces the products and pipeline status on an analysis.
func (s *InMemoryStore) UpdateProducts(_ context.Context, id string, products []Product, status Status) (Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, a := range s.analyses {
		if a.ID == id {
			s.analyses[idx].Products = products
			s.analyses[idx].Status = status
			return s.analyses[idx], nil
		}
	}
	return Analysis{}, ErrNotFound
}

// UpdateStatus sets only the pipeline status for an analysis.
func (s *InMemoryStore) UpdateStatus(_ context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, a := range s.analyses {
		if a.ID == id {
			s.analyses[idx].Status = status
			return nil
		}
	}
	return ErrNotFound
}

// DeleteAnalysis removes an analysis by ID.
func (s *InMemoryStore) DeleteAnalysis(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, a := range s.analyses {
		if a.ID == id {
			s.analyses = append(s.analyses[:idx], s.analyses[idx+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Close satisfies the Store interface.
func (s *InMemoryStore) Close() {}
