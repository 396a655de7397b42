package reporting

import (
	"errors"
	"strings"
	"testing"
	"time"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/ingestion"
	"marksix-lab/internal/outcome"
	"marksix-lab/internal/simulation"
)

var fixedTime = time.Date(2025, time.February, 3, 4, 5, 6, 0, time.UTC)

func setupRun(t *testing.T) (*outcome.Store, *simulation.Run) {
	t.Helper()

	store, err := outcome.NewStore(ingestion.Fixture(120))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	cfg := domain.StrategyConfig{
		Entry: domain.EntryRule{
			Conditions: []domain.Condition{
				{Type: domain.ConditionOmission, Dimension: domain.DimensionSize, Value: "big", Operator: domain.OperatorGTE, Threshold: 2},
				{Type: domain.ConditionWindowStat, Dimension: domain.DimensionParity, Value: "odd", Operator: domain.OperatorLT, Threshold: 60, Window: 100},
			},
			LogicOperator: domain.LogicOr,
		},
		Money: domain.MoneyRule{
			Mode:   domain.MoneyModeFixed,
			Params: domain.MoneyParams{BaseBet: 20},
		},
		Odds: &domain.OddsOverride{PlayType: "size", Odds: 1.95},
	}
	run, err := simulation.NewEngine(simulation.EngineOptions{}).Run(store, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return store, run
}

func TestGenerate(t *testing.T) {
	store, run := setupRun(t)

	report, err := NewGenerator().WithClock(func() time.Time { return fixedTime }).Generate(store, run)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixedTime) {
		t.Errorf("expected clock time, got %v", report.GeneratedAt)
	}
	if report.Dataset.Records != 120 {
		t.Errorf("expected 120 records, got %d", report.Dataset.Records)
	}
	if report.Dataset.FirstPeriod != store.Record(0).Period || report.Dataset.LastPeriod != store.Record(119).Period {
		t.Errorf("unexpected period range %s..%s", report.Dataset.FirstPeriod, report.Dataset.LastPeriod)
	}
	if report.Dataset.FirstDate != "2020-01-02" {
		t.Errorf("expected first date 2020-01-02, got %s", report.Dataset.FirstDate)
	}
	if len(report.Strategy.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(report.Strategy.Conditions))
	}
	if report.Strategy.Conditions[0] != "omission size=big >= 2" {
		t.Errorf("unexpected condition text %q", report.Strategy.Conditions[0])
	}
	if !strings.HasSuffix(report.Strategy.Conditions[1], "(window 100)") {
		t.Errorf("expected window suffix, got %q", report.Strategy.Conditions[1])
	}
	if report.Strategy.Odds != "size @ 1.95" {
		t.Errorf("unexpected odds %q", report.Strategy.Odds)
	}
	if report.Stats == nil || report.Stats.TotalTrades != run.Summary.TotalTrades {
		t.Errorf("stats do not match summary")
	}
}

func TestGenerateNoData(t *testing.T) {
	store, run := setupRun(t)
	g := NewGenerator()

	if _, err := g.Generate(nil, run); !errors.Is(err, ErrNoData) {
		t.Errorf("nil store: expected ErrNoData, got %v", err)
	}
	if _, err := g.Generate(store, nil); !errors.Is(err, ErrNoData) {
		t.Errorf("nil run: expected ErrNoData, got %v", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	store, run := setupRun(t)
	report, err := NewGenerator().WithClock(func() time.Time { return fixedTime }).Generate(store, run)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)

	sections := []string{
		"# Backtest Report",
		"Generated: 2025-02-03T04:05:06Z",
		"## Dataset",
		"## Strategy",
		"Entry (OR):",
		"- omission size=big >= 2",
		"Money: fixed, base bet 20.00",
		"Odds override: size @ 1.95",
		"## Summary",
		"| Initial Capital | 10000.00 |",
		"## Risk",
		"## Targets",
		"## Equity Curve",
	}
	for _, s := range sections {
		if !strings.Contains(md, s) {
			t.Errorf("markdown missing %q", s)
		}
	}

	// Deterministic for a fixed clock.
	if md != RenderMarkdown(report) {
		t.Error("markdown output is not deterministic")
	}
}

func TestRenderMarkdownEmptyRule(t *testing.T) {
	store, err := outcome.NewStore(ingestion.Fixture(5))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	run, err := simulation.NewEngine(simulation.EngineOptions{}).Run(store, domain.StrategyConfig{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	report, err := NewGenerator().Generate(store, run)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "no conditions, entry never triggers") {
		t.Error("expected empty rule note")
	}
	if !strings.Contains(md, "No trades.") {
		t.Error("expected no-trades note")
	}
}

func TestRenderTradesCSV(t *testing.T) {
	trades := []domain.TradeResult{
		{TradeID: "abc", Period: "2020002", Dimension: domain.DimensionColor, Value: 0, Actual: 2, Amount: 10, Odds: 2.8, Profit: -10, CloseReason: domain.CloseReasonLoss},
		{TradeID: "def", Period: "2020003", Dimension: domain.DimensionColor, Value: 0, Actual: 0, Hit: true, Amount: 20, Odds: 2.8, Profit: 36, Step: 1, CloseReason: domain.CloseReasonWin},
	}

	csv := RenderTradesCSV(trades)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "trade_id,period,dimension,value,actual,is_hit,amount,odds,profit,step,close_reason" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "abc,2020002,color,0,2,false,10.00,2.8000,-10.00,0,LOSS" {
		t.Errorf("unexpected row %q", lines[1])
	}
	if lines[2] != "def,2020003,color,0,0,true,20.00,2.8000,36.00,1,WIN" {
		t.Errorf("unexpected row %q", lines[2])
	}
}

func TestRenderCurveCSV(t *testing.T) {
	csv := RenderCurveCSV([]domain.EquityPoint{{Period: "2020010", Index: 10, Capital: 9980.5}})
	want := "period,index,capital\n2020010,10,9980.50\n"
	if csv != want {
		t.Errorf("expected %q, got %q", want, csv)
	}
}

func TestComparison(t *testing.T) {
	store, run := setupRun(t)
	report, err := NewGenerator().WithClock(func() time.Time { return fixedTime }).Generate(store, run)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	row := NewComparisonRow("size-fixed", report)
	if row.RunID != run.Summary.RunID || row.TotalTrades != run.Summary.TotalTrades {
		t.Errorf("row does not match summary: %+v", row)
	}

	csv := RenderComparisonCSV([]ComparisonRow{row})
	if !strings.HasPrefix(csv, "name,run_id,total_trades,") {
		t.Errorf("unexpected header: %q", csv)
	}
	if !strings.Contains(csv, "\nsize-fixed,"+run.Summary.RunID+",") {
		t.Errorf("missing row: %q", csv)
	}

	md := RenderComparisonMarkdown(fixedTime, report.Dataset, []ComparisonRow{row})
	if !strings.Contains(md, "| size-fixed |") {
		t.Errorf("missing markdown row: %q", md)
	}
	if !strings.Contains(RenderComparisonMarkdown(fixedTime, report.Dataset, nil), "No strategies.") {
		t.Error("expected empty note")
	}
}
