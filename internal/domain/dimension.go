package domain

// Dimension identifies a categorical attribute derived from the special number.
type Dimension string

// Dimension constants.
const (
	DimensionColor  Dimension = "color"
	DimensionZodiac Dimension = "zodiac"
	DimensionSize   Dimension = "size"
	DimensionParity Dimension = "parity"
	DimensionTail   Dimension = "tail"
	DimensionNumber Dimension = "number"
)

// Dimensions lists every supported dimension in indicator column order.
var Dimensions = []Dimension{
	DimensionColor,
	DimensionZodiac,
	DimensionSize,
	DimensionParity,
	DimensionTail,
	DimensionNumber,
}

// Number range of a draw.
const (
	MinNumber = 1
	MaxNumber = 49
)

// Valid reports whether d is one of the supported dimensions.
func (d Dimension) Valid() bool {
	return d.Cardinality() > 0
}

// Cardinality returns the number of distinct values of the dimension.
func (d Dimension) Cardinality() int {
	switch d {
	case DimensionColor:
		return 3
	case DimensionZodiac:
		return 12
	case DimensionSize, DimensionParity:
		return 2
	case DimensionTail:
		return 10
	case DimensionNumber:
		return MaxNumber - MinNumber + 1
	default:
		return 0
	}
}

// Values returns the attribute values of the dimension in ascending order.
// Every dimension is zero-based except number, which spans MinNumber..MaxNumber.
func (d Dimension) Values() []int {
	n := d.Cardinality()
	first := 0
	if d == DimensionNumber {
		first = MinNumber
	}

	values := make([]int, n)
	for i := range values {
		values[i] = first + i
	}
	return values
}

// Contains reports whether v is a valid value of the dimension.
func (d Dimension) Contains(v int) bool {
	if d == DimensionNumber {
		return v >= MinNumber && v <= MaxNumber
	}
	return v >= 0 && v < d.Cardinality()
}
