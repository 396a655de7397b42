package verification

import (
	"fmt"

	"marksix-lab/internal/domain"
)

// RunReport contains the result of comparing two runs of the same strategy.
type RunReport struct {
	StatesCompared int
	Divergences    []FieldDivergence
}

// Match reports whether both runs were identical.
func (r *RunReport) Match() bool {
	return len(r.Divergences) == 0
}

// CompareRuns compares the ledgers and summaries of two runs field by field.
// Capital and rate fields use FloatTolerance; everything else must match exactly.
func CompareRuns(
	expectedStates, actualStates []domain.PeriodState,
	expected, actual *domain.SimulationSummary,
) *RunReport {
	report := &RunReport{}

	if len(expectedStates) != len(actualStates) {
		report.Divergences = append(report.Divergences, FieldDivergence{
			Field:    "len(states)",
			Expected: len(expectedStates),
			Actual:   len(actualStates),
		})
	}
	n := min(len(expectedStates), len(actualStates))
	for i := 0; i < n; i++ {
		report.StatesCompared++
		report.Divergences = append(report.Divergences,
			ComparePeriodStates(fmt.Sprintf("states[%d]", i), &expectedStates[i], &actualStates[i])...)
	}

	if expected != nil && actual != nil {
		report.Divergences = append(report.Divergences, CompareSummaries(expected, actual)...)
	}
	return report
}

// ComparePeriodStates compares two ledger snapshots.
func ComparePeriodStates(prefix string, expected, actual *domain.PeriodState) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, e, a interface{}) {
		divergences = append(divergences, FieldDivergence{Field: prefix + "." + field, Expected: e, Actual: a})
	}

	if expected.Period != actual.Period {
		add("Period", expected.Period, actual.Period)
	}
	if !floatEquals(expected.Capital, actual.Capital) {
		add("Capital", expected.Capital, actual.Capital)
	}
	if !floatEquals(expected.Profit, actual.Profit) {
		add("Profit", expected.Profit, actual.Profit)
	}
	if !floatEquals(expected.WinRate, actual.WinRate) {
		add("WinRate", expected.WinRate, actual.WinRate)
	}
	if expected.TotalTrades != actual.TotalTrades {
		add("TotalTrades", expected.TotalTrades, actual.TotalTrades)
	}
	if (expected.NextBet == nil) != (actual.NextBet == nil) {
		add("NextBet", expected.NextBet, actual.NextBet)
	} else if expected.NextBet != nil {
		if expected.NextBet.Target != actual.NextBet.Target || !floatEquals(expected.NextBet.Amount, actual.NextBet.Amount) {
			add("NextBet", *expected.NextBet, *actual.NextBet)
		}
	}
	if (expected.Result == nil) != (actual.Result == nil) {
		add("Result", expected.Result, actual.Result)
	} else if expected.Result != nil {
		divergences = append(divergences, CompareTrades(prefix+".Result", expected.Result, actual.Result)...)
	}
	return divergences
}

// CompareTrades compares two settled trades.
func CompareTrades(prefix string, expected, actual *domain.TradeResult) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, e, a interface{}) {
		divergences = append(divergences, FieldDivergence{Field: prefix + "." + field, Expected: e, Actual: a})
	}

	if expected.TradeID != actual.TradeID {
		add("TradeID", expected.TradeID, actual.TradeID)
	}
	if expected.Period != actual.Period {
		add("Period", expected.Period, actual.Period)
	}
	if expected.Dimension != actual.Dimension || expected.Value != actual.Value {
		add("Target", fmt.Sprintf("%s:%d", expected.Dimension, expected.Value),
			fmt.Sprintf("%s:%d", actual.Dimension, actual.Value))
	}
	if expected.Hit != actual.Hit {
		add("Hit", expected.Hit, actual.Hit)
	}
	if !floatEquals(expected.Amount, actual.Amount) {
		add("Amount", expected.Amount, actual.Amount)
	}
	if !floatEquals(expected.Profit, actual.Profit) {
		add("Profit", expected.Profit, actual.Profit)
	}
	if expected.CloseReason != actual.CloseReason {
		add("CloseReason", expected.CloseReason, actual.CloseReason)
	}
	return divergences
}

// CompareSummaries compares run-level results.
func CompareSummaries(expected, actual *domain.SimulationSummary) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, e, a interface{}) {
		divergences = append(divergences, FieldDivergence{Field: "summary." + field, Expected: e, Actual: a})
	}

	if !floatEquals(expected.FinalCapital, actual.FinalCapital) {
		add("FinalCapital", expected.FinalCapital, actual.FinalCapital)
	}
	if !floatEquals(expected.TotalProfit, actual.TotalProfit) {
		add("TotalProfit", expected.TotalProfit, actual.TotalProfit)
	}
	if expected.TotalTrades != actual.TotalTrades {
		add("TotalTrades", expected.TotalTrades, actual.TotalTrades)
	}
	if !floatEquals(expected.WinRate, actual.WinRate) {
		add("WinRate", expected.WinRate, actual.WinRate)
	}
	if !floatEquals(expected.MaxBet, actual.MaxBet) {
		add("MaxBet", expected.MaxBet, actual.MaxBet)
	}
	if !floatEquals(expected.MaxStreakStake, actual.MaxStreakStake) {
		add("MaxStreakStake", expected.MaxStreakStake, actual.MaxStreakStake)
	}
	if len(expected.Curve) != len(actual.Curve) {
		add("len(Curve)", len(expected.Curve), len(actual.Curve))
	} else {
		for i := range expected.Curve {
			if expected.Curve[i].Period != actual.Curve[i].Period ||
				!floatEquals(expected.Curve[i].Capital, actual.Curve[i].Capital) {
				add(fmt.Sprintf("Curve[%d]", i), expected.Curve[i], actual.Curve[i])
			}
		}
	}
	if len(expected.Trades) != len(actual.Trades) {
		add("len(Trades)", len(expected.Trades), len(actual.Trades))
	} else {
		for i := range expected.Trades {
			divergences = append(divergences,
				CompareTrades(fmt.Sprintf("summary.Trades[%d]", i), &expected.Trades[i], &actual.Trades[i])...)
		}
	}
	return divergences
}
