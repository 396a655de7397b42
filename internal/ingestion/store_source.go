package ingestion

import (
	"context"
	"fmt"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/storage"
)

// StoreSource reads draws from a DrawStore and, optionally, precomputed
// indicator columns from an IndicatorStore.
type StoreSource struct {
	draws      storage.DrawStore
	indicators storage.IndicatorStore // may be nil
	name       string
}

// NewStoreSource creates a source over the given stores. indicators may be nil.
func NewStoreSource(name string, draws storage.DrawStore, indicators storage.IndicatorStore) *StoreSource {
	if name == "" {
		name = "store"
	}
	return &StoreSource{draws: draws, indicators: indicators, name: name}
}

// Load reads every draw and aligns stored indicator cells to the draw order.
// Columns that do not cover every period are dropped so they get recomputed.
func (s *StoreSource) Load(ctx context.Context) (*Dataset, error) {
	draws, err := s.draws.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get draws: %w", err)
	}

	ds := &Dataset{Draws: make([]domain.Draw, len(draws))}
	rowOf := make(map[string]int, len(draws))
	for i, d := range draws {
		ds.Draws[i] = *d
		rowOf[d.Period] = i
	}

	if s.indicators == nil || len(draws) == 0 {
		return ds, nil
	}

	cells, err := s.indicators.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get indicators: %w", err)
	}
	if len(cells) == 0 {
		return ds, nil
	}

	cols := make(map[string][]int)
	filled := make(map[string]int)
	for _, c := range cells {
		row, ok := rowOf[c.Period]
		if !ok {
			continue
		}
		col, ok := cols[c.Column]
		if !ok {
			col = make([]int, len(draws))
			cols[c.Column] = col
		}
		col[row] = c.Value
		filled[c.Column]++
	}

	ds.Indicators = make(map[string][]int, len(cols))
	for name, col := range cols {
		if filled[name] == len(draws) {
			ds.Indicators[name] = col
		}
	}
	return ds, nil
}

// Name returns the source name.
func (s *StoreSource) Name() string {
	return s.name
}

var _ Source = (*StoreSource)(nil)
