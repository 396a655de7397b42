// Package simulation runs a strategy over a draw series and records the
// per-period ledger.
package simulation

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"marksix-lab/internal/condition"
	"marksix-lab/internal/domain"
	"marksix-lab/internal/idhash"
	"marksix-lab/internal/indicator"
	"marksix-lab/internal/money"
)

// Engine constants.
const (
	InitialCapital    = 10000.0
	EquitySampleEvery = 10
	RecentTradesLimit = 100
)

// ErrEmptyDataset is returned when a run is requested on no records.
var ErrEmptyDataset = errors.New("dataset has no records")

// Dataset is the read-only view the engine runs over.
type Dataset interface {
	Len() int
	Record(i int) *domain.DrawRecord
	Indicators() *indicator.Table
}

// Run is the complete result of one simulation.
// Immutable once returned.
type Run struct {
	Key     string               // canonical config key
	Config  domain.StrategyConfig
	States  []domain.PeriodState // one per record
	Trades  []domain.TradeResult // every settled trade
	Summary domain.SimulationSummary
	Elapsed time.Duration
}

// State returns the ledger snapshot of record i.
func (r *Run) State(i int) (*domain.PeriodState, bool) {
	if i < 0 || i >= len(r.States) {
		return nil, false
	}
	return &r.States[i], true
}

// EngineOptions contains configuration for creating an Engine.
type EngineOptions struct {
	Logger         *log.Logger
	InitialCapital float64 // 0 means InitialCapital
}

// Engine executes simulations. It holds no per-run state and may be reused.
type Engine struct {
	logger         *log.Logger
	initialCapital float64
}

// NewEngine creates a simulation engine.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	capital := opts.InitialCapital
	if capital <= 0 {
		capital = InitialCapital
	}
	return &Engine{logger: logger, initialCapital: capital}
}

// InitialCapital returns the capital every run starts with.
func (e *Engine) InitialCapital() float64 {
	return e.initialCapital
}

// Run simulates cfg over ds.
//
// Record 0 only seeds the ledger. For every later record i:
//  1. Settle the open bet, if any, against record i
//  2. If no bet is open, evaluate entry on record i and open on the selected target
//  3. Snapshot the ledger; the pending bet settles against record i+1
//  4. Sample the equity curve every EquitySampleEvery records and at the last one
func (e *Engine) Run(ds Dataset, cfg domain.StrategyConfig) (*Run, error) {
	n := ds.Len()
	if n == 0 {
		return nil, ErrEmptyDataset
	}

	key, err := idhash.ConfigKey(cfg)
	if err != nil {
		return nil, fmt.Errorf("config key: %w", err)
	}

	start := time.Now()
	l := newLedger(e.initialCapital)
	mgr := money.NewManager(cfg.Money, cfg.Odds, e.logger)
	eval := condition.NewEvaluator(ds.Indicators())

	states := make([]domain.PeriodState, n)
	states[0] = l.snapshot(ds.Record(0), nil, nil)

	for i := 1; i < n; i++ {
		rec := ds.Record(i)

		var result *domain.TradeResult
		if bet, open := mgr.Bet(); open {
			actual, _ := rec.Attribute(bet.Dimension)
			st, _ := mgr.Settle(actual)
			trade := l.settle(key, rec.Period, st)
			result = &trade
		}

		if mgr.State() == money.StateIdle {
			ev := eval.Evaluate(cfg.Entry, i)
			if ev.Triggered {
				if target, ok := condition.SelectTarget(ev); ok {
					mgr.Open(target.Dimension, target.Value)
				}
			}
		}

		var next *domain.BetView
		if bet, open := mgr.Bet(); open {
			l.placed(bet.Stake)
			next = betView(bet, ds, i+1)
		}

		states[i] = l.snapshot(rec, next, result)
		if i%EquitySampleEvery == 0 || i == n-1 {
			l.sample(rec, states[i].Capital)
		}
	}
	if n == 1 {
		l.sample(ds.Record(0), states[0].Capital)
	}

	run := &Run{
		Key:     key,
		Config:  cfg,
		States:  states,
		Trades:  l.trades,
		Summary: l.summary(idhash.RunID(key)),
		Elapsed: time.Since(start),
	}
	e.logger.Printf("run %s: %d periods, %d trades, final capital %.2f in %s",
		run.Summary.RunID, n, run.Summary.TotalTrades, run.Summary.FinalCapital, run.Elapsed)
	return run, nil
}

func betView(bet domain.Bet, ds Dataset, settleIndex int) *domain.BetView {
	v := &domain.BetView{
		Target:    bet.Target(),
		Dimension: bet.Dimension,
		Value:     bet.Value,
		Amount:    domain.RoundMoney(bet.Stake),
		Step:      bet.Step,
	}
	if settleIndex < ds.Len() {
		v.Period = ds.Record(settleIndex).Period
	}
	return v
}
