// Package condition evaluates entry rule sets against indicator tables.
package condition

import (
	"strconv"
	"strings"

	"marksix-lab/internal/domain"
)

// tokenTables maps the labels accepted for each dimension to attribute values.
// Numeric strings are resolved separately for every dimension.
var tokenTables = map[domain.Dimension]map[string]int{
	domain.DimensionColor: {
		"red": 0, "红": 0, "红波": 0, "紅": 0, "紅波": 0,
		"blue": 1, "蓝": 1, "蓝波": 1, "藍": 1, "藍波": 1,
		"green": 2, "绿": 2, "绿波": 2, "綠": 2, "綠波": 2,
	},
	domain.DimensionZodiac: {
		"rat": 0, "鼠": 0,
		"ox": 1, "牛": 1,
		"tiger": 2, "虎": 2,
		"rabbit": 3, "兔": 3,
		"dragon": 4, "龙": 4, "龍": 4,
		"snake": 5, "蛇": 5,
		"horse": 6, "马": 6, "馬": 6,
		"goat": 7, "sheep": 7, "羊": 7,
		"monkey": 8, "猴": 8,
		"rooster": 9, "鸡": 9, "雞": 9,
		"dog": 10, "狗": 10,
		"pig": 11, "猪": 11, "豬": 11,
	},
	domain.DimensionSize: {
		"small": 0, "小": 0,
		"big": 1, "大": 1,
	},
	domain.DimensionParity: {
		"even": 0, "双": 0, "雙": 0,
		"odd": 1, "单": 1, "單": 1,
	},
	domain.DimensionTail: {
		"0尾": 0, "1尾": 1, "2尾": 2, "3尾": 3, "4尾": 4,
		"5尾": 5, "6尾": 6, "7尾": 7, "8尾": 8, "9尾": 9,
	},
	domain.DimensionNumber: {},
}

// ResolveValue maps a value token to an attribute value of dim.
// Labels are matched case-insensitively; numeric strings are accepted when in range.
func ResolveValue(dim domain.Dimension, token domain.ValueToken) (int, bool) {
	table, ok := tokenTables[dim]
	if !ok {
		return 0, false
	}

	s := strings.ToLower(strings.TrimSpace(string(token)))
	if v, ok := table[s]; ok {
		return v, true
	}
	if n, err := strconv.Atoi(s); err == nil && dim.Contains(n) {
		return n, true
	}
	return 0, false
}

// Labels returns the English labels of dim indexed by attribute value,
// or nil for dimensions without labels (tail, number).
func Labels(dim domain.Dimension) []string {
	switch dim {
	case domain.DimensionColor:
		return []string{"red", "blue", "green"}
	case domain.DimensionZodiac:
		return []string{"rat", "ox", "tiger", "rabbit", "dragon", "snake", "horse", "goat", "monkey", "rooster", "dog", "pig"}
	case domain.DimensionSize:
		return []string{"small", "big"}
	case domain.DimensionParity:
		return []string{"even", "odd"}
	default:
		return nil
	}
}

// Label returns the display label of a dimension value, e.g. "red" or "7".
func Label(dim domain.Dimension, value int) string {
	labels := Labels(dim)
	if value >= 0 && value < len(labels) {
		return labels[value]
	}
	return strconv.Itoa(value)
}
