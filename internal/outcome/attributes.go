package outcome

import "marksix-lab/internal/domain"

// Wave colors.
const (
	ColorRed   = 0
	ColorBlue  = 1
	ColorGreen = 2
)

// ZodiacBaseYear is the rat year the zodiac cycle is anchored on.
const ZodiacBaseYear = 2008

// SizeBigFrom is the smallest "big" number.
const SizeBigFrom = 25

var (
	redNumbers  = numberSet(1, 2, 7, 8, 12, 13, 18, 19, 23, 24, 29, 30, 34, 35, 40, 45, 46)
	blueNumbers = numberSet(3, 4, 9, 10, 14, 15, 20, 25, 26, 31, 36, 37, 41, 42, 47, 48)
)

func numberSet(nums ...int) [domain.MaxNumber + 1]bool {
	var set [domain.MaxNumber + 1]bool
	for _, n := range nums {
		set[n] = true
	}
	return set
}

// ColorOf returns the wave color of a number: red 0, blue 1, green 2.
func ColorOf(special int) int {
	if special < domain.MinNumber || special > domain.MaxNumber {
		return ColorGreen
	}
	switch {
	case redNumbers[special]:
		return ColorRed
	case blueNumbers[special]:
		return ColorBlue
	default:
		return ColorGreen
	}
}

// SizeOf returns 1 for big (>= 25) and 0 for small.
func SizeOf(special int) int {
	if special >= SizeBigFrom {
		return 1
	}
	return 0
}

// ParityOf returns 1 for odd and 0 for even.
func ParityOf(special int) int {
	return special % 2
}

// TailOf returns the last digit of the number.
func TailOf(special int) int {
	return special % 10
}

// ZodiacOf returns the zodiac index (0=rat .. 11=pig) of a number in a given year.
// Number 1 carries the year's own zodiac; each following number steps one sign back.
func ZodiacOf(special, year int) int {
	base := mod(year-ZodiacBaseYear, 12)
	return mod(base-(special-1), 12)
}

func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// Derive builds the record for a draw at a given index.
func Derive(d domain.Draw, index int) domain.DrawRecord {
	return domain.DrawRecord{
		Draw:   d,
		Index:  index,
		Color:  ColorOf(d.Special),
		Zodiac: ZodiacOf(d.Special, d.DrawYear()),
		Size:   SizeOf(d.Special),
		Parity: ParityOf(d.Special),
		Tail:   TailOf(d.Special),
	}
}
