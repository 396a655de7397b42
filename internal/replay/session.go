// Package replay owns a loaded dataset and its latest backtest run, and
// answers point-in-time replay queries against them.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"marksix-lab/internal/condition"
	"marksix-lab/internal/domain"
	"marksix-lab/internal/idhash"
	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/observability"
	"marksix-lab/internal/outcome"
	"marksix-lab/internal/simulation"
)

// SessionOptions contains configuration for creating a Session.
type SessionOptions struct {
	Logger  *log.Logger
	Metrics *observability.Metrics // may be nil
	Engine  *simulation.Engine     // nil creates a default engine

	// Verify recomputes precomputed indicator columns on load.
	Verify bool

	// StrictTokens rejects strategies whose value tokens would default.
	StrictTokens bool
}

// Session is an owned engine handle: one dataset, one run cache.
// Safe for concurrent use. Runs are serialized and published atomically;
// readers of a published run never observe a run in progress.
type Session struct {
	id      string
	logger  *log.Logger
	metrics *observability.Metrics
	engine  *simulation.Engine
	verify  bool
	strict  bool

	mu    sync.RWMutex
	store *outcome.Store

	cache *Cache
	runMu sync.Mutex
	group singleflight.Group
}

// NewSession creates an empty session.
func NewSession(opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	engine := opts.Engine
	if engine == nil {
		engine = simulation.NewEngine(simulation.EngineOptions{Logger: logger})
	}
	return &Session{
		id:      uuid.NewString(),
		logger:  logger,
		metrics: opts.Metrics,
		engine:  engine,
		verify:  opts.Verify,
		strict:  opts.StrictTokens,
		cache:   &Cache{},
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// DataStats describes the loaded dataset.
type DataStats struct {
	Source        string   `json:"source"`
	DatasetID     string   `json:"dataset_id"`
	Count         int      `json:"count"`
	MinPeriod     string   `json:"min_period"`
	MaxPeriod     string   `json:"max_period"`
	Periods       []string `json:"periods"`
	Dates         []string `json:"dates"`
	ReusedColumns int      `json:"reused_indicator_columns"`
}

// Load replaces the session dataset with the one read from src.
// The run cache is dropped. On failure the previous dataset stays loaded.
func (s *Session) Load(ctx context.Context, src ingestion.Source) (*DataStats, error) {
	start := time.Now()

	opts := []outcome.Option{outcome.WithLogger(s.logger)}
	if s.verify {
		opts = append(opts, outcome.WithVerify())
	}
	store, err := outcome.Load(ctx, src, opts...)
	if err != nil {
		s.metrics.RecordLoad(0, 0, time.Since(start), err)
		return nil, err
	}

	s.runMu.Lock()
	s.mu.Lock()
	s.store = store
	s.cache.Clear()
	s.mu.Unlock()
	s.runMu.Unlock()

	s.metrics.RecordLoad(store.Len(), len(store.IndicatorsReused()), time.Since(start), nil)
	s.logger.Printf("session %s: loaded %d records from %s", s.id, store.Len(), src.Name())
	return statsOf(store), nil
}

// Store returns the loaded dataset.
func (s *Session) Store() (*outcome.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, ErrNoDataset
	}
	return s.store, nil
}

// DataStats returns metadata of the loaded dataset.
func (s *Session) DataStats() (*DataStats, error) {
	store, err := s.Store()
	if err != nil {
		return nil, err
	}
	return statsOf(store), nil
}

func statsOf(store *outcome.Store) *DataStats {
	periods := store.Periods()
	return &DataStats{
		Source:        store.Source(),
		DatasetID:     store.ID(),
		Count:         store.Len(),
		MinPeriod:     periods[0],
		MaxPeriod:     periods[len(periods)-1],
		Periods:       periods,
		Dates:         store.Dates(),
		ReusedColumns: len(store.IndicatorsReused()),
	}
}

// RunBacktest runs cfg over the loaded dataset, or returns the cached run
// when cfg equals the configuration of the latest run. Concurrent identical
// requests share a single run.
func (s *Session) RunBacktest(ctx context.Context, cfg domain.StrategyConfig) (*simulation.Run, error) {
	store, err := s.Store()
	if err != nil {
		return nil, err
	}
	return s.runOn(ctx, store, cfg)
}

// runOn runs cfg over store. It fails with errDatasetReplaced when store is
// no longer the loaded dataset, so the returned run always belongs to store.
func (s *Session) runOn(ctx context.Context, store *outcome.Store, cfg domain.StrategyConfig) (*simulation.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.strict {
		if err := condition.Validate(cfg.Entry); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidStrategy, err)
		}
	}

	key, err := idhash.ConfigKey(cfg)
	if err != nil {
		return nil, err
	}

	if run, ok := s.cache.Get(store.ID(), key); ok {
		s.metrics.RecordCacheLookup(true)
		return run, nil
	}
	s.metrics.RecordCacheLookup(false)

	v, err, _ := s.group.Do(store.ID()+"|"+key, func() (interface{}, error) {
		s.runMu.Lock()
		defer s.runMu.Unlock()

		// A concurrent caller may have published while we waited.
		if run, ok := s.cache.Get(store.ID(), key); ok {
			return run, nil
		}
		current, err := s.Store()
		if err != nil {
			return nil, err
		}
		if current != store {
			return nil, errDatasetReplaced
		}

		run, err := s.engine.Run(store, cfg)
		if err != nil {
			s.metrics.RecordBacktest(0, 0, err)
			return nil, err
		}
		s.metrics.RecordBacktest(run.Summary.TotalTrades, run.Elapsed, nil)
		s.cache.Put(store.ID(), run)
		return run, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*simulation.Run), nil
}

// LatestRun returns the cached run for the loaded dataset, if any.
func (s *Session) LatestRun() (*simulation.Run, bool) {
	store, err := s.Store()
	if err != nil {
		return nil, false
	}
	return s.cache.Latest(store.ID())
}

// ReplayState returns the full state at period. When cfg is non-nil the run
// for cfg is ensured first; otherwise the latest cached run, if any, supplies
// the ledger.
func (s *Session) ReplayState(ctx context.Context, period string, cfg *domain.StrategyConfig) (*State, error) {
	state, err := s.replayState(ctx, period, cfg)
	s.metrics.RecordReplay(err)
	return state, err
}

// maxReplayAttempts bounds retries when loads race a replay request.
const maxReplayAttempts = 3

func (s *Session) replayState(ctx context.Context, period string, cfg *domain.StrategyConfig) (*State, error) {
	var err error
	for attempt := 0; attempt < maxReplayAttempts; attempt++ {
		var store *outcome.Store
		if store, err = s.Store(); err != nil {
			return nil, err
		}
		var state *State
		state, err = s.replayOn(ctx, store, period, cfg)
		if !errors.Is(err, errDatasetReplaced) {
			return state, err
		}
	}
	return nil, err
}

// replayOn builds the state of period from store and a run over that same
// store.
func (s *Session) replayOn(ctx context.Context, store *outcome.Store, period string, cfg *domain.StrategyConfig) (*State, error) {
	idx, ok := store.IndexOf(period)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPeriodNotFound, period)
	}

	var run *simulation.Run
	if cfg != nil {
		var err error
		if run, err = s.runOn(ctx, store, *cfg); err != nil {
			return nil, err
		}
	} else {
		run, _ = s.cache.Latest(store.ID())
	}

	return buildState(store, idx, run), nil
}
