// Package reporting renders a backtest run as Markdown and CSV.
package reporting

import (
	"time"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/metrics"
)

// Report is everything rendered for one run.
type Report struct {
	GeneratedAt time.Time

	Dataset     DatasetSection
	Sufficiency *SufficiencyResult
	Strategy    StrategySection

	Summary domain.SimulationSummary
	Stats   *metrics.RunStats

	// Trades holds every settled trade in settlement order.
	Trades []domain.TradeResult
}

// DatasetSection describes the draw series the run used.
type DatasetSection struct {
	DatasetID        string
	Source           string
	Records          int
	FirstPeriod      string
	LastPeriod       string
	FirstDate        string // YYYY-MM-DD
	LastDate         string
	IndicatorsReused int // precomputed columns taken from the source
}

// StrategySection describes the strategy configuration.
type StrategySection struct {
	RunID         string
	ConfigKey     string
	LogicOperator domain.LogicOperator
	Conditions    []string // e.g. "omission color=red >= 8"
	MoneyMode     domain.MoneyMode
	BaseBet       float64
	Odds          string // override, empty for defaults
}

// ComparisonRow is one strategy in a multi-strategy comparison.
type ComparisonRow struct {
	Name                 string
	RunID                string
	TotalTrades          int
	WinRate              float64
	TotalProfit          float64
	FinalCapital         float64
	MaxBet               float64
	MaxDrawdown          float64
	MaxConsecutiveLosses int
}

// NewComparisonRow summarizes a generated report under name.
func NewComparisonRow(name string, r *Report) ComparisonRow {
	row := ComparisonRow{
		Name:         name,
		RunID:        r.Strategy.RunID,
		TotalTrades:  r.Summary.TotalTrades,
		WinRate:      r.Summary.WinRate,
		TotalProfit:  r.Summary.TotalProfit,
		FinalCapital: r.Summary.FinalCapital,
		MaxBet:       r.Summary.MaxBet,
	}
	if r.Stats != nil {
		row.MaxDrawdown = r.Stats.MaxDrawdown
		row.MaxConsecutiveLosses = r.Stats.MaxConsecutiveLosses
	}
	return row
}
