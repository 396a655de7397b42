// Package verification checks that precomputed indicators and replayed runs
// match a fresh computation exactly.
package verification

import (
	"fmt"
	"math"

	"marksix-lab/internal/indicator"
)

// FloatTolerance is the tolerance for float64 ledger comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between an expected and an actual value.
type FieldDivergence struct {
	Field    string      // field name, e.g. "states[12].Capital"
	Expected interface{} // recomputed value
	Actual   interface{} // stored or replayed value
}

// String formats the divergence for logs.
func (d FieldDivergence) String() string {
	return fmt.Sprintf("%s: expected %v, got %v", d.Field, d.Expected, d.Actual)
}

// CellDivergence is one indicator cell that differs from recomputation.
type CellDivergence struct {
	Column   string
	Row      int
	Expected int
	Actual   int
}

// TableReport contains the result of comparing precomputed indicator columns
// against a recomputed table.
type TableReport struct {
	ColumnsCompared int              // precomputed columns checked
	CellsCompared   int              // cells checked
	Missing         []string         // precomputed columns with no recomputed counterpart
	Divergences     []CellDivergence // first MaxCellDivergences mismatches
	TotalDivergent  int              // all mismatching cells
}

// MaxCellDivergences caps the divergences kept in a TableReport.
const MaxCellDivergences = 50

// Match reports whether every compared cell matched.
// Columns listed in Missing cannot be checked and do not affect the result.
func (r *TableReport) Match() bool {
	return r.TotalDivergent == 0
}

// Err returns a descriptive error when the report has divergences, nil otherwise.
func (r *TableReport) Err() error {
	if r.Match() {
		return nil
	}
	first := r.Divergences[0]
	return fmt.Errorf("%d divergent indicator cells, first %s row %d: expected %d, got %d",
		r.TotalDivergent, first.Column, first.Row, first.Expected, first.Actual)
}

// CompareTables compares every column of precomputed against the same column
// of recomputed. No divergence is tolerated.
func CompareTables(recomputed, precomputed *indicator.Table) *TableReport {
	report := &TableReport{}
	for _, k := range precomputed.Keys() {
		got, _ := precomputed.Column(k)
		want, ok := recomputed.Column(k)
		if !ok {
			report.Missing = append(report.Missing, k.Column())
			continue
		}
		report.ColumnsCompared++

		for i := range got {
			report.CellsCompared++
			if i < len(want) && got[i] == want[i] {
				continue
			}
			report.TotalDivergent++
			if len(report.Divergences) >= MaxCellDivergences {
				continue
			}
			exp := -1
			if i < len(want) {
				exp = want[i]
			}
			report.Divergences = append(report.Divergences, CellDivergence{
				Column:   k.Column(),
				Row:      i,
				Expected: exp,
				Actual:   got[i],
			})
		}
	}
	return report
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
