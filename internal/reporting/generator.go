package reporting

import (
	"errors"
	"fmt"
	"time"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/metrics"
	"marksix-lab/internal/outcome"
	"marksix-lab/internal/simulation"
)

// ErrNoData is returned when a report is requested without a store or run.
var ErrNoData = errors.New("report needs a dataset and a run")

// Generator produces reports from a loaded store and a completed run.
type Generator struct {
	now func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report of run over store.
func (g *Generator) Generate(store *outcome.Store, run *simulation.Run) (*Report, error) {
	if store == nil || run == nil || store.Len() == 0 {
		return nil, ErrNoData
	}

	stats, err := metrics.Compute(run)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		Dataset:     datasetSection(store),
		Sufficiency: CheckSufficiency(store.Records()),
		Strategy:    strategySection(run),
		Summary:     run.Summary,
		Stats:       stats,
		Trades:      run.Trades,
	}, nil
}

func datasetSection(store *outcome.Store) DatasetSection {
	first := store.Record(0)
	last := store.Record(store.Len() - 1)
	return DatasetSection{
		DatasetID:        store.ID(),
		Source:           store.Source(),
		Records:          store.Len(),
		FirstPeriod:      first.Period,
		LastPeriod:       last.Period,
		FirstDate:        first.Date.Format(time.DateOnly),
		LastDate:         last.Date.Format(time.DateOnly),
		IndicatorsReused: len(store.IndicatorsReused()),
	}
}

func strategySection(run *simulation.Run) StrategySection {
	cfg := run.Config
	sec := StrategySection{
		RunID:         run.Summary.RunID,
		ConfigKey:     run.Key,
		LogicOperator: cfg.Entry.LogicOperator,
		MoneyMode:     cfg.Money.Mode,
		BaseBet:       cfg.Money.Params.BaseBet,
	}
	if sec.BaseBet <= 0 {
		sec.BaseBet = domain.DefaultBaseBet
	}
	if sec.LogicOperator == "" {
		sec.LogicOperator = domain.LogicAnd
	}
	for _, c := range cfg.Entry.Conditions {
		sec.Conditions = append(sec.Conditions, describeCondition(c))
	}
	if cfg.Odds != nil {
		sec.Odds = fmt.Sprintf("%s @ %g", cfg.Odds.PlayType, cfg.Odds.Odds)
	}
	return sec
}

func describeCondition(c domain.Condition) string {
	s := fmt.Sprintf("%s %s=%s %s %g", c.Type, c.Dimension, c.Value, c.Operator, c.Threshold)
	if c.Type == domain.ConditionWindowStat && c.Window > 0 {
		s += fmt.Sprintf(" (window %d)", c.Window)
	}
	return s
}
