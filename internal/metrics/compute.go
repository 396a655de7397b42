package metrics

import (
	"math"

	"marksix-lab/internal/domain"
)

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation over sorted (ASC).
// p is the fraction, 0.10 = 10th percentile.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown returns the worst peak-to-trough fall of the capital
// path starting at initial, and the peak it fell from.
func computeMaxDrawdown(initial float64, capital []float64) (drawdown, peakAt float64) {
	peak := initial
	for _, c := range capital {
		if c > peak {
			peak = c
		}
		if dd := peak - c; dd > drawdown {
			drawdown = dd
			peakAt = peak
		}
	}
	return drawdown, peakAt
}

// computeMaxStreak finds the longest run of trades whose Hit equals hit.
// Trades must be in settlement order.
func computeMaxStreak(trades []domain.TradeResult, hit bool) int {
	maxStreak := 0
	current := 0
	for _, t := range trades {
		if t.Hit == hit {
			current++
			if current > maxStreak {
				maxStreak = current
			}
		} else {
			current = 0
		}
	}
	return maxStreak
}
