// Package orchestrator runs the ingestion flow that feeds the stores:
// source → validation → indicators → draw and indicator persistence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/outcome"
	"marksix-lab/internal/storage"
)

// ErrBackdated is returned when new draws would precede stored ones while
// indicator cells are persisted. Stored cells of later periods would go stale.
var ErrBackdated = errors.New("new draws precede stored draws")

// DefaultCellBatch bounds one indicator InsertBulk call.
const DefaultCellBatch = 10000

// Options for creating Orchestrator.
type Options struct {
	Draws      storage.DrawStore      // required
	Indicators storage.IndicatorStore // nil skips indicator persistence
	Logger     *log.Logger

	// Verify recomputes precomputed indicator columns carried by the source.
	Verify bool

	// CellBatch overrides DefaultCellBatch.
	CellBatch int
}

// Orchestrator persists draw series and their indicators.
type Orchestrator struct {
	draws      storage.DrawStore
	indicators storage.IndicatorStore
	logger     *log.Logger
	verify     bool
	cellBatch  int
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	batch := opts.CellBatch
	if batch <= 0 {
		batch = DefaultCellBatch
	}
	return &Orchestrator{
		draws:      opts.Draws,
		indicators: opts.Indicators,
		logger:     logger,
		verify:     opts.Verify,
		cellBatch:  batch,
	}
}

// IngestResult contains results from one ingestion.
type IngestResult struct {
	SourceRecords int // records read from the source
	Inserted      int // draws new to the store
	Skipped       int // draws already stored
	Cells         int // indicator cells written
	StoredTotal   int // draws in the store afterwards
}

// Ingest loads src and persists the draws the store does not hold yet.
// Phases:
//  1. Load and validate the source
//  2. Diff against stored periods
//  3. Insert new draws
//  4. Compute indicators over the stored series and insert cells of new periods
func (o *Orchestrator) Ingest(ctx context.Context, src ingestion.Source) (*IngestResult, error) {
	result := &IngestResult{}

	// Phase 1: Load
	var opts []outcome.Option
	opts = append(opts, outcome.WithLogger(o.logger))
	if o.verify {
		opts = append(opts, outcome.WithVerify())
	}
	loaded, err := outcome.Load(ctx, src, opts...)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load) failed: %w", err)
	}
	result.SourceRecords = loaded.Len()
	o.logger.Printf("Loaded %d records from %s", loaded.Len(), loaded.Source())

	// Phase 2: Diff
	stored, err := o.draws.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (read stored draws) failed: %w", err)
	}
	known := make(map[string]struct{}, len(stored))
	for _, d := range stored {
		known[d.Period] = struct{}{}
	}

	var fresh []*domain.Draw
	for _, rec := range loaded.Records() {
		if _, ok := known[rec.Period]; ok {
			result.Skipped++
			continue
		}
		d := rec.Draw
		fresh = append(fresh, &d)
	}
	if len(fresh) == 0 {
		result.StoredTotal = len(stored)
		o.logger.Printf("Nothing new: %d records already stored", result.Skipped)
		return result, nil
	}

	if o.indicators != nil && len(stored) > 0 {
		last := stored[len(stored)-1]
		for _, d := range fresh {
			if d.Date.Before(last.Date) {
				return nil, fmt.Errorf("%w: %s (%s) before stored %s (%s)", ErrBackdated,
					d.Period, d.Date.Format("2006-01-02"), last.Period, last.Date.Format("2006-01-02"))
			}
		}
	}

	// Phase 3: Draws
	if err := o.draws.InsertBulk(ctx, fresh); err != nil {
		return nil, fmt.Errorf("phase 3 (insert draws) failed: %w", err)
	}
	result.Inserted = len(fresh)
	result.StoredTotal = len(stored) + len(fresh)
	o.logger.Printf("Inserted %d draws (%d skipped)", result.Inserted, result.Skipped)

	// Phase 4: Indicators
	if o.indicators == nil {
		return result, nil
	}
	cells, err := o.insertCells(ctx, stored, fresh)
	result.Cells = cells
	if err != nil {
		return result, fmt.Errorf("phase 4 (insert indicators) failed: %w", err)
	}
	o.logger.Printf("Inserted %d indicator cells", cells)
	return result, nil
}

// insertCells computes indicators over stored+fresh and writes the cells
// of fresh periods in batches.
func (o *Orchestrator) insertCells(ctx context.Context, stored, fresh []*domain.Draw) (int, error) {
	all := make([]domain.Draw, 0, len(stored)+len(fresh))
	for _, d := range stored {
		all = append(all, *d)
	}
	for _, d := range fresh {
		all = append(all, *d)
	}
	series, err := outcome.NewStore(all)
	if err != nil {
		return 0, err
	}

	columns := series.Indicators().Columns()
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows []int
	for _, d := range fresh {
		if i, ok := series.IndexOf(d.Period); ok {
			rows = append(rows, i)
		}
	}
	sort.Ints(rows)

	written := 0
	batch := make([]*domain.IndicatorValue, 0, o.cellBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := o.indicators.InsertBulk(ctx, batch); err != nil {
			return err
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, i := range rows {
		period := series.Record(i).Period
		for _, name := range names {
			batch = append(batch, &domain.IndicatorValue{Period: period, Column: name, Value: columns[name][i]})
			if len(batch) == o.cellBatch {
				if err := flush(); err != nil {
					return written, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}
