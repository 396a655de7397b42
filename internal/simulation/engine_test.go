package simulation

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/outcome"
	"marksix-lab/internal/verification"
)

func storeOf(t *testing.T, specials ...int) *outcome.Store {
	t.Helper()
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	draws := make([]domain.Draw, len(specials))
	for i, s := range specials {
		draws[i] = domain.Draw{
			Period:  fmt.Sprintf("2024%03d", i+1),
			Date:    base.AddDate(0, 0, i),
			Special: s,
		}
	}
	s, err := outcome.NewStore(draws)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

// alwaysRed triggers every period: omission is never negative.
func alwaysRed(money domain.MoneyRule) domain.StrategyConfig {
	return domain.StrategyConfig{
		Entry: domain.EntryRule{
			Conditions: []domain.Condition{{
				Type: domain.ConditionOmission, Dimension: domain.DimensionColor,
				Value: "red", Operator: domain.OperatorGTE, Threshold: 0,
			}},
			LogicOperator: domain.LogicAnd,
		},
		Money: money,
	}
}

func mixedConfig() domain.StrategyConfig {
	return domain.StrategyConfig{
		Entry: domain.EntryRule{
			Conditions: []domain.Condition{
				{Type: domain.ConditionOmission, Dimension: domain.DimensionZodiac, Value: "龙", Operator: domain.OperatorGTE, Threshold: 8},
				{Type: domain.ConditionWindowStat, Dimension: domain.DimensionSize, Value: "big", Operator: domain.OperatorLT, Threshold: 48},
				{Type: domain.ConditionOmission, Dimension: domain.DimensionTail, Value: "7", Operator: domain.OperatorGT, Threshold: 12},
			},
			LogicOperator: domain.LogicOr,
		},
		Money: domain.MoneyRule{
			Mode:   domain.MoneyModeLossRecovery,
			Params: domain.MoneyParams{BaseBet: 10, MaxBet: 400},
		},
	}
}

func TestRun_SingleRecord(t *testing.T) {
	run, err := NewEngine(EngineOptions{}).Run(storeOf(t, 7), alwaysRed(domain.MoneyRule{}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(run.States) != 1 {
		t.Fatalf("states = %d, want 1", len(run.States))
	}
	s := run.States[0]
	if s.NextBet != nil || s.Result != nil || s.Capital != InitialCapital || s.TotalTrades != 0 {
		t.Errorf("state = %+v, want idle", s)
	}
	if len(run.Trades) != 0 || len(run.Summary.Trades) != 0 {
		t.Errorf("trades = %d, want none", len(run.Trades))
	}
	if len(run.Summary.Curve) != 1 || run.Summary.Curve[0].Period != "2024001" {
		t.Errorf("curve = %+v, want one final point", run.Summary.Curve)
	}
}

func TestRun_EmptyDataset(t *testing.T) {
	if _, err := NewEngine(EngineOptions{}).Run(emptyDataset{}, domain.StrategyConfig{}); err != ErrEmptyDataset {
		t.Errorf("err = %v, want ErrEmptyDataset", err)
	}
}

func TestRun_EmptyRuleSetNeverBets(t *testing.T) {
	store, err := outcome.NewStore(ingestion.Fixture(120))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	cfg := domain.StrategyConfig{Entry: domain.EntryRule{LogicOperator: domain.LogicOr}}

	run, err := NewEngine(EngineOptions{}).Run(store, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, s := range run.States {
		if s.NextBet != nil || s.Result != nil {
			t.Fatalf("state %d has a bet", i)
		}
	}
	if run.Summary.TotalTrades != 0 || run.Summary.FinalCapital != InitialCapital || run.Summary.MaxBet != 0 {
		t.Errorf("summary = %+v", run.Summary)
	}
}

func TestRun_MartingaleLedger(t *testing.T) {
	// red red blue blue blue red green
	store := storeOf(t, 1, 1, 3, 3, 3, 1, 49)
	cfg := alwaysRed(domain.MoneyRule{
		Mode:   domain.MoneyModeMartingale,
		Params: domain.MoneyParams{BaseBet: 10, Multipliers: []float64{1, 2, 4}},
	})

	run, err := NewEngine(EngineOptions{}).Run(store, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Record 0 seeds, record 1 opens, records 2..4 lose 10+20+40, record 4
	// reopens at base, record 5 wins 10*1.8, record 6 loses 10 and doubles.
	tests := []struct {
		i       int
		capital float64
		trades  int
		reason  string
		next    float64 // 0 = no pending bet
	}{
		{0, 10000, 0, "", 0},
		{1, 10000, 0, "", 10},
		{2, 9990, 1, "", 20},
		{3, 9970, 2, "", 40},
		{4, 9930, 3, domain.CloseReasonStopLoss, 10},
		{5, 9948, 4, domain.CloseReasonWin, 10},
		{6, 9938, 5, "", 20},
	}

	for _, tt := range tests {
		s := run.States[tt.i]
		if s.Capital != tt.capital || s.TotalTrades != tt.trades {
			t.Errorf("state %d: capital %.2f trades %d, want %.2f %d", tt.i, s.Capital, s.TotalTrades, tt.capital, tt.trades)
		}
		if tt.reason != "" && (s.Result == nil || s.Result.CloseReason != tt.reason) {
			t.Errorf("state %d: result = %+v, want %s", tt.i, s.Result, tt.reason)
		}
		if tt.next == 0 && s.NextBet != nil {
			t.Errorf("state %d: unexpected next bet %+v", tt.i, s.NextBet)
		}
		if tt.next != 0 && (s.NextBet == nil || s.NextBet.Amount != tt.next || s.NextBet.Target != "color:0") {
			t.Errorf("state %d: next bet = %+v, want color:0 at %.2f", tt.i, s.NextBet, tt.next)
		}
	}

	if got := run.States[1].NextBet.Period; got != "2024003" {
		t.Errorf("next bet period = %s, want 2024003", got)
	}
	if got := run.States[6].NextBet.Period; got != "" {
		t.Errorf("next bet past last record has period %q", got)
	}

	sum := run.Summary
	if sum.TotalTrades != 5 || sum.Wins != 1 || sum.Losses != 4 {
		t.Errorf("summary counts = %d/%d/%d", sum.TotalTrades, sum.Wins, sum.Losses)
	}
	if sum.WinRate != 0.2 {
		t.Errorf("win rate = %v, want 0.2", sum.WinRate)
	}
	if sum.MaxBet != 40 {
		t.Errorf("max bet = %v, want 40", sum.MaxBet)
	}
	// The streak survives the stop-loss and only a win resets it.
	if sum.MaxStreakStake != 70 {
		t.Errorf("max streak stake = %v, want 70", sum.MaxStreakStake)
	}
	if sum.FinalCapital != 9938 || sum.TotalProfit != -62 {
		t.Errorf("final capital %.2f profit %.2f", sum.FinalCapital, sum.TotalProfit)
	}
}

func TestRun_EquityCurveSampling(t *testing.T) {
	store, _ := outcome.NewStore(ingestion.Fixture(25))
	run, err := NewEngine(EngineOptions{}).Run(store, mixedConfig())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []int{10, 20, 24}
	if len(run.Summary.Curve) != len(want) {
		t.Fatalf("curve = %+v", run.Summary.Curve)
	}
	for i, idx := range want {
		p := run.Summary.Curve[i]
		if p.Index != idx || p.Capital != run.States[idx].Capital || p.Period != run.States[idx].Period {
			t.Errorf("curve[%d] = %+v, want state %d", i, p, idx)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	store, _ := outcome.NewStore(ingestion.Fixture(400))
	engine := NewEngine(EngineOptions{})

	first, err := engine.Run(store, mixedConfig())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if first.Summary.TotalTrades == 0 {
		t.Fatal("fixture produced no trades; strategy too strict for a meaningful test")
	}

	for i := 0; i < 3; i++ {
		again, err := engine.Run(store, mixedConfig())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !reflect.DeepEqual(first.States, again.States) {
			t.Fatal("period states differ between identical runs")
		}
		if !reflect.DeepEqual(first.Summary, again.Summary) {
			t.Fatal("summaries differ between identical runs")
		}
		if first.Key != again.Key {
			t.Fatal("config keys differ")
		}
	}
}

func TestRun_ReuseEquivalence(t *testing.T) {
	draws := ingestion.Fixture(300)
	fresh, err := outcome.NewStore(draws)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	src := ingestion.NewMemorySource("precomputed", draws, fresh.Indicators().Columns())
	reused, err := outcome.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reused.IndicatorsReused()) == 0 {
		t.Fatal("precomputed columns were not reused")
	}

	engine := NewEngine(EngineOptions{})
	a, _ := engine.Run(fresh, mixedConfig())
	b, _ := engine.Run(reused, mixedConfig())

	report := verification.CompareRuns(a.States, b.States, &a.Summary, &b.Summary)
	if !report.Match() {
		t.Errorf("reuse diverged: %v", report.Divergences[0])
	}
}

func TestRun_LedgerInvariants(t *testing.T) {
	store, _ := outcome.NewStore(ingestion.Fixture(500))
	run, err := NewEngine(EngineOptions{InitialCapital: 5000}).Run(store, mixedConfig())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	prev := 5000.0
	for i, s := range run.States {
		delta := 0.0
		if s.Result != nil {
			delta = s.Result.Profit
		}
		// Capital and profit are rounded independently to cents.
		if math.Abs(s.Capital-prev-delta) > 0.02 {
			t.Fatalf("state %d capital %.2f, previous %.2f, profit %.2f", i, s.Capital, prev, delta)
		}
		prev = s.Capital
		if math.Abs(s.Profit-(s.Capital-5000)) > 0.011 {
			t.Fatalf("state %d profit %.2f inconsistent with capital", i, s.Profit)
		}
		if s.NextBet != nil && s.NextBet.Amount > run.Summary.MaxBet {
			t.Fatalf("state %d stake %.2f above max bet %.2f", i, s.NextBet.Amount, run.Summary.MaxBet)
		}
		if s.Index != i {
			t.Fatalf("state %d has index %d", i, s.Index)
		}
	}
	if len(run.Summary.Trades) > RecentTradesLimit {
		t.Errorf("recent trades = %d", len(run.Summary.Trades))
	}
	if n := len(run.Trades); n > 0 && run.Summary.Trades[len(run.Summary.Trades)-1] != run.Trades[n-1] {
		t.Error("recent trades do not end with the last trade")
	}
}

type emptyDataset struct{ Dataset }

func (emptyDataset) Len() int { return 0 }

func TestRun_OddsThatCannotPayOutNeverBet(t *testing.T) {
	for _, mode := range []domain.MoneyMode{domain.MoneyModeFixed, domain.MoneyModeMartingale, domain.MoneyModeLossRecovery} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := alwaysRed(domain.MoneyRule{
				Mode:   mode,
				Params: domain.MoneyParams{BaseBet: 10, Multipliers: []float64{1, 2, 4}},
			})
			cfg.Odds = &domain.OddsOverride{PlayType: "special_color", Odds: 0.5}

			// Every special is red, so any opened bet would hit.
			run, err := NewEngine(EngineOptions{}).Run(storeOf(t, 1, 2, 7, 8, 12, 13), cfg)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(run.Trades) != 0 || run.Summary.Wins != 0 {
				t.Errorf("trades = %d wins = %d, want none", len(run.Trades), run.Summary.Wins)
			}
			if run.Summary.FinalCapital != InitialCapital {
				t.Errorf("final capital = %.2f, want %.2f", run.Summary.FinalCapital, InitialCapital)
			}
			for i, s := range run.States {
				if s.NextBet != nil {
					t.Errorf("state %d has a pending bet %+v", i, *s.NextBet)
				}
			}
		})
	}
}
