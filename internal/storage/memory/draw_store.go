package memory

import (
	"context"
	"sort"
	"sync"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/storage"
)

// DrawStore is an in-memory implementation of storage.DrawStore.
type DrawStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Draw // keyed by period
}

// NewDrawStore creates a new in-memory draw store.
func NewDrawStore() *DrawStore {
	return &DrawStore{
		data: make(map[string]*domain.Draw),
	}
}

var _ storage.DrawStore = (*DrawStore)(nil)

// InsertBulk adds multiple draws atomically. Fails entire batch on any duplicate.
func (s *DrawStore) InsertBulk(_ context.Context, draws []*domain.Draw) error {
	if len(draws) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(draws))
	for _, d := range draws {
		if d == nil || d.Period == "" || d.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[d.Period]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[d.Period]; exists {
			return storage.ErrDuplicateKey
		}
		batch[d.Period] = struct{}{}
	}

	for _, d := range draws {
		c := *d
		s.data[d.Period] = &c
	}
	return nil
}

// GetAll retrieves every draw, ordered by date ASC, period ASC.
func (s *DrawStore) GetAll(_ context.Context) ([]*domain.Draw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Draw, 0, len(s.data))
	for _, d := range s.data {
		c := *d
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Period < result[j].Period
	})
	return result, nil
}

// GetByPeriod retrieves a draw by period.
func (s *DrawStore) GetByPeriod(_ context.Context, period string) (*domain.Draw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.data[period]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *d
	return &c, nil
}

// Count returns the number of stored draws.
func (s *DrawStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}
