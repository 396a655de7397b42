package replay

import (
	"fmt"
	"time"

	"marksix-lab/internal/condition"
	"marksix-lab/internal/domain"
	"marksix-lab/internal/indicator"
	"marksix-lab/internal/outcome"
	"marksix-lab/internal/simulation"
)

// State is everything known about one period.
type State struct {
	Period       string                `json:"period"`
	Index        int                   `json:"index"`
	Draw         DrawResult            `json:"draw_result"`
	Indicators   IndicatorSnapshot     `json:"indicators"`
	Ledger       *LedgerState          `json:"accumulated_stats,omitempty"` // nil without a run
	Betting      BettingStatus         `json:"betting_status"`
	Signal       *condition.Evaluation `json:"signal,omitempty"` // entry evaluation on this period
	RecentTrades []domain.TradeResult  `json:"recent_trades"`
	RunID        string                `json:"run_id,omitempty"`
}

// DrawResult is the raw draw with its derived attributes.
type DrawResult struct {
	Date        string `json:"date"` // YYYY-MM-DD
	Numbers     [6]int `json:"numbers"`
	Special     int    `json:"special"`
	Color       int    `json:"color"`
	ColorLabel  string `json:"color_label"`
	Zodiac      int    `json:"zodiac"`
	ZodiacLabel string `json:"zodiac_label"`
	Size        int    `json:"size"`
	Parity      int    `json:"parity"`
	Tail        int    `json:"tail"`
}

// IndicatorSnapshot holds every indicator value of a period keyed "<dim>_<v>".
type IndicatorSnapshot struct {
	Omission  map[string]int `json:"omission"`
	Frequency map[string]int `json:"freq_100"`
}

// LedgerState is the ledger at a period plus run-level maxima.
type LedgerState struct {
	InitialCapital float64 `json:"initial_capital"`
	Capital        float64 `json:"capital"`
	Profit         float64 `json:"accumulated_profit"`
	WinRate        float64 `json:"win_rate"`
	TotalTrades    int     `json:"total_trades"`
	MaxBet         float64 `json:"max_bet"`
	MaxStreakStake float64 `json:"max_streak_stake"`
}

// BettingStatus is the settlement entering the period and the bet left
// pending for the next one.
type BettingStatus struct {
	LastResult *domain.TradeResult `json:"last_result"`
	NextBet    *domain.BetView     `json:"next_bet"`
}

func buildState(store *outcome.Store, idx int, run *simulation.Run) *State {
	rec := store.Record(idx)
	st := &State{
		Period:       rec.Period,
		Index:        idx,
		Draw:         drawResult(rec),
		Indicators:   snapshot(store.Indicators(), idx),
		RecentTrades: []domain.TradeResult{},
	}
	if run == nil {
		return st
	}

	st.RunID = run.Summary.RunID
	if ps, ok := run.State(idx); ok {
		st.Ledger = &LedgerState{
			InitialCapital: run.Summary.InitialCapital,
			Capital:        ps.Capital,
			Profit:         ps.Profit,
			WinRate:        ps.WinRate,
			TotalTrades:    ps.TotalTrades,
			MaxBet:         run.Summary.MaxBet,
			MaxStreakStake: run.Summary.MaxStreakStake,
		}
		st.Betting = BettingStatus{LastResult: ps.Result, NextBet: ps.NextBet}
	}

	ev := condition.NewEvaluator(store.Indicators()).Evaluate(run.Config.Entry, idx)
	st.Signal = &ev
	st.RecentTrades = append(st.RecentTrades, run.Summary.Trades...)
	return st
}

func drawResult(rec *domain.DrawRecord) DrawResult {
	return DrawResult{
		Date:        rec.Date.Format(time.DateOnly),
		Numbers:     rec.Numbers,
		Special:     rec.Special,
		Color:       rec.Color,
		ColorLabel:  condition.Label(domain.DimensionColor, rec.Color),
		Zodiac:      rec.Zodiac,
		ZodiacLabel: condition.Label(domain.DimensionZodiac, rec.Zodiac),
		Size:        rec.Size,
		Parity:      rec.Parity,
		Tail:        rec.Tail,
	}
}

func snapshot(table *indicator.Table, idx int) IndicatorSnapshot {
	snap := IndicatorSnapshot{
		Omission:  make(map[string]int),
		Frequency: make(map[string]int),
	}
	for _, k := range table.Keys() {
		v, ok := table.Value(k, idx)
		if !ok {
			continue
		}
		name := fmt.Sprintf("%s_%d", k.Dimension, k.Value)
		switch {
		case k.Kind == indicator.KindOmission:
			snap.Omission[name] = v
		case k.Kind == indicator.KindFrequency && k.Window == indicator.Window:
			snap.Frequency[name] = v
		}
	}
	return snap
}
