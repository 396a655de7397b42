package reporting

import (
	"fmt"
	"strings"

	"marksix-lab/internal/domain"
)

// RenderTradesCSV renders settled trades as CSV string.
func RenderTradesCSV(trades []domain.TradeResult) string {
	var sb strings.Builder

	sb.WriteString("trade_id,period,dimension,value,actual,is_hit,amount,odds,profit,step,close_reason\n")
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%t,%.2f,%.4f,%.2f,%d,%s\n",
			t.TradeID,
			t.Period,
			t.Dimension,
			t.Value,
			t.Actual,
			t.Hit,
			t.Amount,
			t.Odds,
			t.Profit,
			t.Step,
			t.CloseReason,
		))
	}
	return sb.String()
}

// RenderCurveCSV renders the sampled equity curve as CSV string.
func RenderCurveCSV(curve []domain.EquityPoint) string {
	var sb strings.Builder

	sb.WriteString("period,index,capital\n")
	for _, p := range curve {
		sb.WriteString(fmt.Sprintf("%s,%d,%.2f\n", p.Period, p.Index, p.Capital))
	}
	return sb.String()
}

// RenderComparisonCSV renders strategy comparison rows as CSV string.
func RenderComparisonCSV(rows []ComparisonRow) string {
	var sb strings.Builder

	sb.WriteString("name,run_id,total_trades,win_rate,total_profit,final_capital,max_bet,max_drawdown,max_consecutive_losses\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%.4f,%.2f,%.2f,%.2f,%.2f,%d\n",
			r.Name, r.RunID, r.TotalTrades, r.WinRate, r.TotalProfit,
			r.FinalCapital, r.MaxBet, r.MaxDrawdown, r.MaxConsecutiveLosses))
	}
	return sb.String()
}
