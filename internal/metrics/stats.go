// Package metrics derives risk and distribution statistics from a completed
// simulation run.
package metrics

import (
	"errors"
	"sort"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/simulation"
)

// ErrNoRun is returned when statistics are requested for a nil run.
var ErrNoRun = errors.New("no run to aggregate")

// RunStats summarizes every settled trade and the capital path of a run.
// All money values are rounded to cents.
type RunStats struct {
	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	StopLosses  int     `json:"stop_losses"`
	WinRate     float64 `json:"win_rate"`

	// Per-trade profit distribution
	ProfitMean   float64 `json:"profit_mean"`
	ProfitMedian float64 `json:"profit_median"`
	ProfitP10    float64 `json:"profit_p10"`
	ProfitP90    float64 `json:"profit_p90"`
	ProfitMin    float64 `json:"profit_min"`
	ProfitMax    float64 `json:"profit_max"`
	ProfitStddev float64 `json:"profit_stddev"`

	// Risk
	MaxDrawdown          float64 `json:"max_drawdown"`     // worst peak-to-trough on capital
	MaxDrawdownPct       float64 `json:"max_drawdown_pct"` // drawdown relative to its peak, 4dp
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	MaxConsecutiveWins   int     `json:"max_consecutive_wins"`
	Exposure             float64 `json:"exposure"` // share of periods with a bet pending, 4dp

	ByTarget []TargetStats `json:"by_target"`
}

// TargetStats is the trade breakdown of one bet target.
type TargetStats struct {
	Target  string  `json:"target"` // "dimension:value"
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
	Profit  float64 `json:"profit"`
}

// Compute derives RunStats from run. Trades are taken in settlement order.
func Compute(run *simulation.Run) (*RunStats, error) {
	if run == nil {
		return nil, ErrNoRun
	}

	stats := computeFromTrades(run.Trades)

	capital := make([]float64, len(run.States))
	pending := 0
	for i, s := range run.States {
		capital[i] = s.Capital
		if s.NextBet != nil {
			pending++
		}
	}
	dd, peak := computeMaxDrawdown(run.Summary.InitialCapital, capital)
	stats.MaxDrawdown = domain.RoundMoney(dd)
	if peak > 0 {
		stats.MaxDrawdownPct = domain.RoundRate(dd / peak)
	}
	if len(run.States) > 0 {
		stats.Exposure = domain.RoundRate(float64(pending) / float64(len(run.States)))
	}
	return stats, nil
}

func computeFromTrades(trades []domain.TradeResult) *RunStats {
	n := len(trades)
	stats := &RunStats{TotalTrades: n}
	if n == 0 {
		return stats
	}

	profits := make([]float64, n)
	for i, t := range trades {
		profits[i] = t.Profit
		if t.Hit {
			stats.Wins++
		} else {
			stats.Losses++
		}
		if t.CloseReason == domain.CloseReasonStopLoss {
			stats.StopLosses++
		}
	}

	sorted := make([]float64, n)
	copy(sorted, profits)
	sort.Float64s(sorted)

	mean := computeMean(profits)
	stats.WinRate = domain.RoundRate(computeWinRate(stats.Wins, n))
	stats.ProfitMean = domain.RoundMoney(mean)
	stats.ProfitMedian = domain.RoundMoney(computePercentile(sorted, 0.50))
	stats.ProfitP10 = domain.RoundMoney(computePercentile(sorted, 0.10))
	stats.ProfitP90 = domain.RoundMoney(computePercentile(sorted, 0.90))
	stats.ProfitMin = sorted[0]
	stats.ProfitMax = sorted[n-1]
	stats.ProfitStddev = domain.RoundMoney(computeStddev(profits, mean))
	stats.MaxConsecutiveLosses = computeMaxStreak(trades, false)
	stats.MaxConsecutiveWins = computeMaxStreak(trades, true)
	stats.ByTarget = computeByTarget(trades)
	return stats
}

// computeByTarget groups trades by target, ordered by trade count DESC, target ASC.
func computeByTarget(trades []domain.TradeResult) []TargetStats {
	idx := make(map[string]int)
	var out []TargetStats
	for _, t := range trades {
		target := domain.Bet{Dimension: t.Dimension, Value: t.Value}.Target()
		i, ok := idx[target]
		if !ok {
			i = len(out)
			idx[target] = i
			out = append(out, TargetStats{Target: target})
		}
		out[i].Trades++
		out[i].Profit += t.Profit
		if t.Hit {
			out[i].Wins++
		}
	}

	for i := range out {
		out[i].Profit = domain.RoundMoney(out[i].Profit)
		out[i].WinRate = domain.RoundRate(computeWinRate(out[i].Wins, out[i].Trades))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Trades != out[j].Trades {
			return out[i].Trades > out[j].Trades
		}
		return out[i].Target < out[j].Target
	})
	return out
}
