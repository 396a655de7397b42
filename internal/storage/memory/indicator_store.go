package memory

import (
	"context"
	"sort"
	"sync"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/storage"
)

// IndicatorStore is an in-memory implementation of storage.IndicatorStore.
type IndicatorStore struct {
	mu   sync.RWMutex
	data map[string]map[string]int // period -> column -> value
}

// NewIndicatorStore creates a new in-memory indicator store.
func NewIndicatorStore() *IndicatorStore {
	return &IndicatorStore{
		data: make(map[string]map[string]int),
	}
}

var _ storage.IndicatorStore = (*IndicatorStore)(nil)

// InsertBulk adds multiple cells atomically. Fails entire batch on duplicate.
func (s *IndicatorStore) InsertBulk(_ context.Context, values []*domain.IndicatorValue) error {
	if len(values) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct{ period, column string }
	batch := make(map[key]struct{}, len(values))
	for _, v := range values {
		if v == nil || v.Period == "" || v.Column == "" || v.Value < 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[v.Period][v.Column]; exists {
			return storage.ErrDuplicateKey
		}
		k := key{v.Period, v.Column}
		if _, exists := batch[k]; exists {
			return storage.ErrDuplicateKey
		}
		batch[k] = struct{}{}
	}

	for _, v := range values {
		row, ok := s.data[v.Period]
		if !ok {
			row = make(map[string]int)
			s.data[v.Period] = row
		}
		row[v.Column] = v.Value
	}
	return nil
}

// GetAll retrieves every cell, ordered by period ASC, column ASC.
func (s *IndicatorStore) GetAll(_ context.Context) ([]*domain.IndicatorValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	periods := make([]string, 0, len(s.data))
	for p := range s.data {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	var result []*domain.IndicatorValue
	for _, p := range periods {
		result = append(result, s.row(p)...)
	}
	return result, nil
}

// GetByPeriod retrieves the cells of one period, ordered by column ASC.
func (s *IndicatorStore) GetByPeriod(_ context.Context, period string) ([]*domain.IndicatorValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.row(period), nil
}

// row must be called with mu held.
func (s *IndicatorStore) row(period string) []*domain.IndicatorValue {
	cols := s.data[period]
	names := make([]string, 0, len(cols))
	for c := range cols {
		names = append(names, c)
	}
	sort.Strings(names)

	out := make([]*domain.IndicatorValue, len(names))
	for i, c := range names {
		out[i] = &domain.IndicatorValue{Period: period, Column: c, Value: cols[c]}
	}
	return out
}
