// Package outcome holds the immutable, date-sorted draw series a backtest
// runs against, together with its indicator table.
package outcome

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/idhash"
	"marksix-lab/internal/indicator"
)

// ErrLoad is returned when a dataset cannot be turned into a store.
var ErrLoad = errors.New("load error")

// Store is an immutable, date-sorted series of draw records.
// Safe for concurrent reads.
type Store struct {
	id       string
	source   string
	records  []domain.DrawRecord
	byPeriod map[string]int
	table    *indicator.Table
	reused   []string // indicator columns taken from the source
}

// NewStore sorts draws ascending by date (stable on input order), assigns
// indices and derives attributes. The indicator table is computed.
func NewStore(draws []domain.Draw) (*Store, error) {
	s, _, err := build(draws)
	if err != nil {
		return nil, err
	}
	s.table = indicator.Compute(s.records)
	return s, nil
}

// build validates and sorts draws. perm[i] is the input row of record i.
func build(draws []domain.Draw) (*Store, []int, error) {
	if len(draws) == 0 {
		return nil, nil, fmt.Errorf("%w: dataset is empty", ErrLoad)
	}

	seen := make(map[string]struct{}, len(draws))
	for i, d := range draws {
		if d.Period == "" {
			return nil, nil, fmt.Errorf("%w: row %d: empty period", ErrLoad, i)
		}
		if _, dup := seen[d.Period]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate period %s", ErrLoad, d.Period)
		}
		seen[d.Period] = struct{}{}
		if d.Date.IsZero() {
			return nil, nil, fmt.Errorf("%w: period %s: missing date", ErrLoad, d.Period)
		}
		if d.Special < domain.MinNumber || d.Special > domain.MaxNumber {
			return nil, nil, fmt.Errorf("%w: period %s: special number %d out of range", ErrLoad, d.Period, d.Special)
		}
	}

	perm := make([]int, len(draws))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return draws[perm[a]].Date.Before(draws[perm[b]].Date)
	})

	s := &Store{
		records:  make([]domain.DrawRecord, len(draws)),
		byPeriod: make(map[string]int, len(draws)),
	}
	sorted := make([]domain.Draw, len(draws))
	for i, src := range perm {
		sorted[i] = draws[src]
		s.records[i] = Derive(draws[src], i)
		s.byPeriod[draws[src].Period] = i
	}
	s.id = idhash.ComputeDatasetID(sorted)
	return s, perm, nil
}

// ID identifies the draw series. Equal series yield equal ids.
func (s *Store) ID() string {
	return s.id
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Record returns the record at index i. Panics if i is out of range.
func (s *Store) Record(i int) *domain.DrawRecord {
	return &s.records[i]
}

// Records returns the record slice. Callers must not modify it.
func (s *Store) Records() []domain.DrawRecord {
	return s.records
}

// IndexOf resolves a period id to its record index.
func (s *Store) IndexOf(period string) (int, bool) {
	i, ok := s.byPeriod[period]
	return i, ok
}

// Indicators returns the indicator table.
func (s *Store) Indicators() *indicator.Table {
	return s.table
}

// IndicatorsReused returns the indicator columns taken verbatim from the source.
func (s *Store) IndicatorsReused() []string {
	return s.reused
}

// Source names the source the store was loaded from.
func (s *Store) Source() string {
	return s.source
}

// Periods returns every period id in index order.
func (s *Store) Periods() []string {
	out := make([]string, len(s.records))
	for i := range s.records {
		out[i] = s.records[i].Period
	}
	return out
}

// Dates returns every draw date formatted YYYY-MM-DD in index order.
func (s *Store) Dates() []string {
	out := make([]string, len(s.records))
	for i := range s.records {
		out[i] = s.records[i].Date.Format(time.DateOnly)
	}
	return out
}
