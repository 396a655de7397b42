// Package money implements stake sizing policies and bet settlement.
package money

import "marksix-lab/internal/domain"

// playTypes maps each dimension to the play type name odds overrides refer to.
var playTypes = map[domain.Dimension]string{
	domain.DimensionColor:  "special_color",
	domain.DimensionZodiac: "special_zodiac",
	domain.DimensionSize:   "special_size",
	domain.DimensionParity: "special_parity",
	domain.DimensionNumber: "special_number",
	domain.DimensionTail:   "special_tail",
}

// defaultOdds are decimal odds (stake included) per dimension.
var defaultOdds = map[domain.Dimension]float64{
	domain.DimensionColor:  2.8,
	domain.DimensionZodiac: 11.0,
	domain.DimensionSize:   1.9,
	domain.DimensionParity: 1.9,
	domain.DimensionTail:   9.8,
}

// FallbackOdds applies to dimensions without a default.
const FallbackOdds = 2.0

// PlayType returns the play type name of a dimension.
func PlayType(dim domain.Dimension) string {
	return playTypes[dim]
}

// DefaultOdds returns the default odds of a dimension.
func DefaultOdds(dim domain.Dimension) float64 {
	if odds, ok := defaultOdds[dim]; ok {
		return odds
	}
	return FallbackOdds
}

// ResolveOdds returns the override odds when it targets the dimension's play
// type, else the default. overridden reports which one applied.
func ResolveOdds(dim domain.Dimension, override *domain.OddsOverride) (odds float64, overridden bool) {
	if override != nil && override.PlayType != "" && override.PlayType == playTypes[dim] {
		return override.Odds, true
	}
	return DefaultOdds(dim), false
}
