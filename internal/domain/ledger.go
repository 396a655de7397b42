package domain

import "github.com/shopspring/decimal"

// PeriodState is the ledger snapshot after one period is processed.
// Immutable once written.
type PeriodState struct {
	Period      string       `json:"period"`
	Index       int          `json:"index"`
	Capital     float64      `json:"capital"`            // after settlement, cents
	Profit      float64      `json:"accumulated_profit"` // capital - initial capital
	WinRate     float64      `json:"win_rate"`           // wins / (wins + losses), 4dp
	TotalTrades int          `json:"total_trades"`
	NextBet     *BetView     `json:"betting"` // bet pending for the next period
	Result      *TradeResult `json:"result"`  // settlement in this period
}

// EquityPoint is one sample of the down-sampled equity curve.
type EquityPoint struct {
	Period  string  `json:"period"`
	Index   int     `json:"index"`
	Capital float64 `json:"capital"`
}

// SimulationSummary is the run-level result of a backtest.
type SimulationSummary struct {
	RunID          string  `json:"run_id"`
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	TotalProfit    float64 `json:"total_profit"`
	TotalTrades    int     `json:"total_trades"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRate        float64 `json:"win_rate"`

	// Risk
	MaxBet         float64 `json:"max_bet"`          // largest single stake placed
	MaxStreakStake float64 `json:"max_streak_stake"` // largest stake sunk in one losing streak

	Trades []TradeResult `json:"trades"` // most recent settled trades
	Curve  []EquityPoint `json:"curve"`  // every 10th period plus the final one
}

// RoundMoney rounds an amount to cents.
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// RoundRate rounds a ratio to four decimal places.
func RoundRate(v float64) float64 {
	return decimal.NewFromFloat(v).Round(4).InexactFloat64()
}
