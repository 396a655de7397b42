package domain

import "time"

// Draw represents one ingested draw row before attribute derivation.
// Mandatory columns: period, date, n1..n6, special.
type Draw struct {
	Period  string    // unique period identifier, e.g. "2024001"
	Date    time.Time // draw date
	Year    int       // optional explicit year; zero means Date.Year()
	Numbers [6]int    // six drawn numbers
	Special int       // special number, MinNumber..MaxNumber
}

// DrawYear returns the year used for zodiac derivation.
func (d Draw) DrawYear() int {
	if d.Year != 0 {
		return d.Year
	}
	return d.Date.Year()
}

// DrawRecord is a draw with its stable index and derived attributes.
// Created once at load and never mutated.
type DrawRecord struct {
	Draw

	Index  int // position in the date-sorted series
	Color  int // 0=red, 1=blue, 2=green
	Zodiac int // 0=rat .. 11=pig, relative to the draw year
	Size   int // 0=small (1-24), 1=big (25-49)
	Parity int // 0=even, 1=odd
	Tail   int // special mod 10
}

// Attribute returns the derived value of the record for a dimension.
// The number dimension yields the special number itself.
func (r *DrawRecord) Attribute(dim Dimension) (int, bool) {
	switch dim {
	case DimensionColor:
		return r.Color, true
	case DimensionZodiac:
		return r.Zodiac, true
	case DimensionSize:
		return r.Size, true
	case DimensionParity:
		return r.Parity, true
	case DimensionTail:
		return r.Tail, true
	case DimensionNumber:
		return r.Special, true
	default:
		return 0, false
	}
}

// IndicatorValue is one precomputed indicator cell as persisted by indicator stores.
type IndicatorValue struct {
	Period string // draw period
	Column string // column name, e.g. om_color_0 or freq_zodiac_3_100
	Value  int    // non-negative indicator value
}
