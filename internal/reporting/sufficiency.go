package reporting

import (
	"fmt"

	"marksix-lab/internal/domain"
	"marksix-lab/internal/indicator"
)

// Sufficiency thresholds.
const (
	MinDraws      = indicator.Window // one full frequency window
	MaxGapDays    = 30               // longest tolerated pause between draws
	maxIssueLines = 10
)

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all checks plus per-draw integrity issues.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Issues  []string // first offending periods, capped
}

// CheckSufficiency validates that a draw series can support a meaningful
// backtest. records must be in index order.
func CheckSufficiency(records []domain.DrawRecord) *SufficiencyResult {
	result := &SufficiencyResult{
		Checks:  make([]SufficiencyCheck, 0, 4),
		AllPass: true,
	}
	add := func(c SufficiencyCheck, issues []string) {
		result.Checks = append(result.Checks, c)
		if !c.Pass {
			result.AllPass = false
			for _, issue := range issues {
				if len(result.Issues) < maxIssueLines {
					result.Issues = append(result.Issues, issue)
				}
			}
		}
	}

	add(SufficiencyCheck{
		Name:      "Draw count",
		Threshold: fmt.Sprintf(">= %d", MinDraws),
		Actual:    fmt.Sprintf("%d", len(records)),
		Pass:      len(records) >= MinDraws,
	}, nil)

	add(checkMaxGap(records))
	add(checkSameDate(records))
	add(checkNumbers(records))

	return result
}

// checkMaxGap: longest gap between consecutive draw dates.
func checkMaxGap(records []domain.DrawRecord) (SufficiencyCheck, []string) {
	maxGap := 0
	var issues []string
	for i := 1; i < len(records); i++ {
		days := int(records[i].Date.Sub(records[i-1].Date).Hours() / 24)
		if days > maxGap {
			maxGap = days
		}
		if days > MaxGapDays {
			issues = append(issues, fmt.Sprintf("gap of %d days before period %s", days, records[i].Period))
		}
	}
	return SufficiencyCheck{
		Name:      "Max date gap (days)",
		Threshold: fmt.Sprintf("<= %d", MaxGapDays),
		Actual:    fmt.Sprintf("%d", maxGap),
		Pass:      maxGap <= MaxGapDays,
	}, issues
}

// checkSameDate: draws sharing a date with their predecessor.
func checkSameDate(records []domain.DrawRecord) (SufficiencyCheck, []string) {
	var issues []string
	for i := 1; i < len(records); i++ {
		if records[i].Date.Equal(records[i-1].Date) {
			issues = append(issues, fmt.Sprintf("periods %s and %s share a date", records[i-1].Period, records[i].Period))
		}
	}
	return SufficiencyCheck{
		Name:      "Same-date draws",
		Threshold: "== 0",
		Actual:    fmt.Sprintf("%d", len(issues)),
		Pass:      len(issues) == 0,
	}, issues
}

// checkNumbers: the six numbers and the special must be distinct and in range.
func checkNumbers(records []domain.DrawRecord) (SufficiencyCheck, []string) {
	var issues []string
	for i := range records {
		r := &records[i]
		if r.Special < domain.MinNumber || r.Special > domain.MaxNumber {
			issues = append(issues, fmt.Sprintf("period %s: special %d out of range", r.Period, r.Special))
			continue
		}
		var seen [domain.MaxNumber + 1]bool
		seen[r.Special] = true
		for _, n := range r.Numbers {
			if n < domain.MinNumber || n > domain.MaxNumber {
				issues = append(issues, fmt.Sprintf("period %s: number %d out of range", r.Period, n))
				break
			}
			if seen[n] {
				issues = append(issues, fmt.Sprintf("period %s: number %d repeated", r.Period, n))
				break
			}
			seen[n] = true
		}
	}
	return SufficiencyCheck{
		Name:      "Malformed draws",
		Threshold: "== 0",
		Actual:    fmt.Sprintf("%d", len(issues)),
		Pass:      len(issues) == 0,
	}, issues
}
