package simulation

import (
	"marksix-lab/internal/domain"
	"marksix-lab/internal/idhash"
	"marksix-lab/internal/money"
)

// ledger accumulates capital and run statistics during one run.
type ledger struct {
	initial float64
	capital float64

	wins   int
	losses int

	maxBet         float64
	streakStake    float64
	maxStreakStake float64

	trades []domain.TradeResult
	curve  []domain.EquityPoint
}

func newLedger(initial float64) *ledger {
	return &ledger{initial: initial, capital: initial}
}

// settle books a settlement and returns the trade record.
func (l *ledger) settle(key, period string, st money.Settlement) domain.TradeResult {
	l.capital += st.Profit
	if st.Hit {
		l.wins++
		l.streakStake = 0
	} else {
		l.losses++
		l.streakStake += st.Bet.Stake
		l.maxStreakStake = max(l.maxStreakStake, l.streakStake)
	}

	trade := domain.TradeResult{
		TradeID:     idhash.ComputeTradeID(key, period, st.Bet.Step),
		Period:      period,
		Dimension:   st.Bet.Dimension,
		Value:       st.Bet.Value,
		Actual:      st.Actual,
		Hit:         st.Hit,
		Amount:      domain.RoundMoney(st.Bet.Stake),
		Odds:        st.Odds,
		Profit:      domain.RoundMoney(st.Profit),
		Step:        st.Bet.Step,
		CloseReason: st.CloseReason,
	}
	l.trades = append(l.trades, trade)
	return trade
}

// placed records a stake riding on the next period.
func (l *ledger) placed(stake float64) {
	l.maxBet = max(l.maxBet, stake)
}

func (l *ledger) winRate() float64 {
	total := l.wins + l.losses
	if total == 0 {
		return 0
	}
	return domain.RoundRate(float64(l.wins) / float64(total))
}

func (l *ledger) snapshot(rec *domain.DrawRecord, next *domain.BetView, result *domain.TradeResult) domain.PeriodState {
	return domain.PeriodState{
		Period:      rec.Period,
		Index:       rec.Index,
		Capital:     domain.RoundMoney(l.capital),
		Profit:      domain.RoundMoney(l.capital - l.initial),
		WinRate:     l.winRate(),
		TotalTrades: len(l.trades),
		NextBet:     next,
		Result:      result,
	}
}

func (l *ledger) sample(rec *domain.DrawRecord, capital float64) {
	l.curve = append(l.curve, domain.EquityPoint{
		Period:  rec.Period,
		Index:   rec.Index,
		Capital: capital,
	})
}

func (l *ledger) summary(runID string) domain.SimulationSummary {
	recent := l.trades
	if len(recent) > RecentTradesLimit {
		recent = recent[len(recent)-RecentTradesLimit:]
	}

	return domain.SimulationSummary{
		RunID:          runID,
		InitialCapital: l.initial,
		FinalCapital:   domain.RoundMoney(l.capital),
		TotalProfit:    domain.RoundMoney(l.capital - l.initial),
		TotalTrades:    len(l.trades),
		Wins:           l.wins,
		Losses:         l.losses,
		WinRate:        l.winRate(),
		MaxBet:         domain.RoundMoney(l.maxBet),
		MaxStreakStake: domain.RoundMoney(l.maxStreakStake),
		Trades:         append([]domain.TradeResult{}, recent...),
		Curve:          l.curve,
	}
}
