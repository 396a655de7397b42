package outcome

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"

	"marksix-lab/internal/indicator"
	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/verification"
)

type loadOptions struct {
	verify bool
	logger *log.Logger
}

// Option configures Load.
type Option func(*loadOptions)

// WithVerify recomputes every indicator column and fails the load if any
// precomputed column diverges.
func WithVerify() Option {
	return func(o *loadOptions) { o.verify = true }
}

// WithLogger sets the logger used to report indicator reuse.
func WithLogger(logger *log.Logger) Option {
	return func(o *loadOptions) { o.logger = logger }
}

// Load reads a dataset from src and builds a Store.
//
// Precomputed indicator columns carried by the source are reused verbatim;
// every column the source lacks is computed. All failures wrap ErrLoad.
func Load(ctx context.Context, src ingestion.Source, opts ...Option) (*Store, error) {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	ds, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: source %s: %w", ErrLoad, src.Name(), err)
	}

	s, perm, err := build(ds.Draws)
	if err != nil {
		return nil, err
	}
	s.source = src.Name()

	if len(ds.Indicators) == 0 {
		s.table = indicator.Compute(s.records)
		return s, nil
	}

	precomputed, err := indicator.FromColumns(len(s.records), indicator.Reorder(ds.Indicators, perm))
	if err != nil {
		return nil, fmt.Errorf("%w: source %s: %w", ErrLoad, src.Name(), err)
	}

	switch {
	case o.verify:
		computed := indicator.Compute(s.records)
		report := verification.CompareTables(computed, precomputed)
		if err := report.Err(); err != nil {
			return nil, fmt.Errorf("%w: source %s: %w", ErrLoad, src.Name(), err)
		}
		logger.Printf("verified %d precomputed columns (%d cells)", report.ColumnsCompared, report.CellsCompared)
		s.table = indicator.Merge(computed, precomputed)
	case precomputed.Covers(indicator.FullKeys()):
		s.table = precomputed
	default:
		s.table = indicator.Merge(indicator.Compute(s.records), precomputed)
	}

	for _, k := range precomputed.Keys() {
		s.reused = append(s.reused, k.Column())
	}
	sort.Strings(s.reused)
	logger.Printf("reused %d precomputed indicator columns from %s", len(s.reused), src.Name())

	return s, nil
}
