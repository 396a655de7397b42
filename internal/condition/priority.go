package condition

import "marksix-lab/internal/domain"

// Priority ranks how specific a bet on each dimension is. Higher wins.
var Priority = map[domain.Dimension]int{
	domain.DimensionNumber: 5,
	domain.DimensionZodiac: 4,
	domain.DimensionTail:   3,
	domain.DimensionColor:  2,
	domain.DimensionSize:   1,
	domain.DimensionParity: 1,
}

// SelectTarget picks the passed condition with the highest dimension priority.
// Ties go to the earliest declared condition.
func SelectTarget(ev Evaluation) (Result, bool) {
	best := -1
	for i, r := range ev.Conditions {
		if !r.Passed {
			continue
		}
		if best < 0 || Priority[r.Dimension] > Priority[ev.Conditions[best].Dimension] {
			best = i
		}
	}
	if best < 0 {
		return Result{}, false
	}
	return ev.Conditions[best], true
}
