package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s` | Dataset: `%s`\n\n", r.Strategy.RunID, r.Dataset.DatasetID))

	// Dataset
	sb.WriteString("## Dataset\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Source | %s |\n", r.Dataset.Source))
	sb.WriteString(fmt.Sprintf("| Records | %d |\n", r.Dataset.Records))
	sb.WriteString(fmt.Sprintf("| Periods | %s .. %s |\n", r.Dataset.FirstPeriod, r.Dataset.LastPeriod))
	sb.WriteString(fmt.Sprintf("| Dates | %s .. %s |\n", r.Dataset.FirstDate, r.Dataset.LastDate))
	sb.WriteString(fmt.Sprintf("| Precomputed Indicators | %d |\n", r.Dataset.IndicatorsReused))
	sb.WriteString("\n")

	if r.Sufficiency != nil {
		writeSufficiency(&sb, r.Sufficiency)
	}

	// Strategy
	sb.WriteString("## Strategy\n\n")
	sb.WriteString(fmt.Sprintf("Entry (%s):\n\n", r.Strategy.LogicOperator))
	if len(r.Strategy.Conditions) == 0 {
		sb.WriteString("- no conditions, entry never triggers\n")
	}
	for _, c := range r.Strategy.Conditions {
		sb.WriteString(fmt.Sprintf("- %s\n", c))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Money: %s, base bet %.2f\n\n", r.Strategy.MoneyMode, r.Strategy.BaseBet))
	if r.Strategy.Odds != "" {
		sb.WriteString(fmt.Sprintf("Odds override: %s\n\n", r.Strategy.Odds))
	}

	// Summary
	s := r.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Initial Capital | %.2f |\n", s.InitialCapital))
	sb.WriteString(fmt.Sprintf("| Final Capital | %.2f |\n", s.FinalCapital))
	sb.WriteString(fmt.Sprintf("| Total Profit | %.2f |\n", s.TotalProfit))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", s.Wins, s.Losses))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", s.WinRate))
	sb.WriteString(fmt.Sprintf("| Max Bet | %.2f |\n", s.MaxBet))
	sb.WriteString(fmt.Sprintf("| Max Losing-Streak Stake | %.2f |\n", s.MaxStreakStake))
	sb.WriteString("\n")

	// Risk
	if st := r.Stats; st != nil {
		sb.WriteString("## Risk\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f (%.2f%%) |\n", st.MaxDrawdown, st.MaxDrawdownPct*100))
		sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", st.MaxConsecutiveLosses))
		sb.WriteString(fmt.Sprintf("| Max Consecutive Wins | %d |\n", st.MaxConsecutiveWins))
		sb.WriteString(fmt.Sprintf("| Stop Losses | %d |\n", st.StopLosses))
		sb.WriteString(fmt.Sprintf("| Exposure | %.4f |\n", st.Exposure))
		sb.WriteString(fmt.Sprintf("| Profit Mean / Median | %.2f / %.2f |\n", st.ProfitMean, st.ProfitMedian))
		sb.WriteString(fmt.Sprintf("| Profit P10 / P90 | %.2f / %.2f |\n", st.ProfitP10, st.ProfitP90))
		sb.WriteString(fmt.Sprintf("| Profit Stddev | %.2f |\n", st.ProfitStddev))
		sb.WriteString("\n")

		sb.WriteString("## Targets\n\n")
		if len(st.ByTarget) > 0 {
			sb.WriteString("| Target | Trades | Wins | WinRate | Profit |\n")
			sb.WriteString("|--------|--------|------|---------|--------|\n")
			for _, t := range st.ByTarget {
				sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.4f | %.2f |\n",
					t.Target, t.Trades, t.Wins, t.WinRate, t.Profit))
			}
		} else {
			sb.WriteString("No trades.\n")
		}
		sb.WriteString("\n")
	}

	// Equity curve
	sb.WriteString("## Equity Curve\n\n")
	if len(s.Curve) > 0 {
		sb.WriteString("| Period | Index | Capital |\n")
		sb.WriteString("|--------|-------|---------|\n")
		for _, p := range s.Curve {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f |\n", p.Period, p.Index, p.Capital))
		}
	} else {
		sb.WriteString("No equity samples.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderComparisonMarkdown renders a strategy comparison table.
func RenderComparisonMarkdown(generatedAt time.Time, dataset DatasetSection, rows []ComparisonRow) string {
	var sb strings.Builder

	sb.WriteString("# Strategy Comparison\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Dataset: `%s` (%d records, %s .. %s)\n\n",
		dataset.DatasetID, dataset.Records, dataset.FirstPeriod, dataset.LastPeriod))

	if len(rows) == 0 {
		sb.WriteString("No strategies.\n")
		return sb.String()
	}
	sb.WriteString("| Strategy | Trades | WinRate | Profit | Final | MaxBet | MaxDD | MaxLoss |\n")
	sb.WriteString("|----------|--------|---------|--------|-------|--------|-------|---------|\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %.2f | %.2f | %.2f | %.2f | %d |\n",
			r.Name, r.TotalTrades, r.WinRate, r.TotalProfit, r.FinalCapital,
			r.MaxBet, r.MaxDrawdown, r.MaxConsecutiveLosses))
	}
	sb.WriteString("\n")
	return sb.String()
}

func writeSufficiency(sb *strings.Builder, res *SufficiencyResult) {
	sb.WriteString("## Data Sufficiency\n\n")
	sb.WriteString("| Check | Threshold | Actual | Pass |\n")
	sb.WriteString("|-------|-----------|--------|------|\n")
	for _, c := range res.Checks {
		pass := "NO"
		if c.Pass {
			pass = "YES"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.Name, c.Threshold, c.Actual, pass))
	}
	sb.WriteString("\n")
	for _, issue := range res.Issues {
		sb.WriteString(fmt.Sprintf("- %s\n", issue))
	}
	if len(res.Issues) > 0 {
		sb.WriteString("\n")
	}
}
