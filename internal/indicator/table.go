// Package indicator computes per-period omission and trailing-frequency
// indicators for every dimension value of a draw series.
package indicator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"marksix-lab/internal/domain"
)

// Kind is the indicator family.
type Kind string

// Indicator kinds, named by their column prefix.
const (
	KindOmission  Kind = "om"
	KindFrequency Kind = "freq"
)

// Window is the only materialized trailing-frequency window.
const Window = 100

// Key identifies one indicator column.
type Key struct {
	Kind      Kind
	Dimension domain.Dimension
	Value     int
	Window    int // frequency only
}

// OmissionKey returns the omission column key for a dimension value.
func OmissionKey(dim domain.Dimension, value int) Key {
	return Key{Kind: KindOmission, Dimension: dim, Value: value}
}

// FrequencyKey returns the trailing-frequency column key for a dimension value.
func FrequencyKey(dim domain.Dimension, value, window int) Key {
	return Key{Kind: KindFrequency, Dimension: dim, Value: value, Window: window}
}

// Column returns the dataset column name: om_<dim>_<v> or freq_<dim>_<v>_<window>.
func (k Key) Column() string {
	if k.Kind == KindFrequency {
		return fmt.Sprintf("freq_%s_%d_%d", k.Dimension, k.Value, k.Window)
	}
	return fmt.Sprintf("om_%s_%d", k.Dimension, k.Value)
}

// ParseColumn parses a dataset column name into a Key.
// Returns false for names that are not indicator columns.
func ParseColumn(name string) (Key, bool) {
	parts := strings.Split(name, "_")
	switch {
	case len(parts) == 3 && parts[0] == string(KindOmission):
		dim := domain.Dimension(parts[1])
		v, err := strconv.Atoi(parts[2])
		if err != nil || !dim.Contains(v) {
			return Key{}, false
		}
		return OmissionKey(dim, v), true

	case len(parts) == 4 && parts[0] == string(KindFrequency):
		dim := domain.Dimension(parts[1])
		v, err := strconv.Atoi(parts[2])
		if err != nil || !dim.Contains(v) {
			return Key{}, false
		}
		w, err := strconv.Atoi(parts[3])
		if err != nil || w <= 0 {
			return Key{}, false
		}
		return FrequencyKey(dim, v, w), true
	}
	return Key{}, false
}

// Table holds indicator columns for a series of n records.
// Immutable after construction.
type Table struct {
	n    int
	cols map[Key][]int
}

// Len returns the number of records covered by the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.n
}

// Column returns the values of a column, or false if it is not present.
// The returned slice must not be modified.
func (t *Table) Column(k Key) ([]int, bool) {
	if t == nil {
		return nil, false
	}
	col, ok := t.cols[k]
	return col, ok
}

// Value returns the indicator value of column k at record i.
func (t *Table) Value(k Key, i int) (int, bool) {
	col, ok := t.Column(k)
	if !ok || i < 0 || i >= len(col) {
		return 0, false
	}
	return col[i], true
}

// Keys returns every column key, sorted by column name.
func (t *Table) Keys() []Key {
	if t == nil {
		return nil
	}
	keys := make([]Key, 0, len(t.cols))
	for k := range t.cols {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		return keys[a].Column() < keys[b].Column()
	})
	return keys
}

// Snapshot returns every indicator value at record i keyed by column name.
func (t *Table) Snapshot(i int) map[string]int {
	out := make(map[string]int, len(t.cols))
	for k, col := range t.cols {
		if i >= 0 && i < len(col) {
			out[k.Column()] = col[i]
		}
	}
	return out
}

// Columns returns a copy of the table keyed by column name.
func (t *Table) Columns() map[string][]int {
	out := make(map[string][]int, len(t.cols))
	for k, col := range t.cols {
		out[k.Column()] = append([]int(nil), col...)
	}
	return out
}

// FullKeys lists every column Compute produces.
func FullKeys() []Key {
	var keys []Key
	for _, dim := range domain.Dimensions {
		for _, v := range dim.Values() {
			keys = append(keys, OmissionKey(dim, v), FrequencyKey(dim, v, Window))
		}
	}
	return keys
}

// Covers reports whether the table has every column in keys.
func (t *Table) Covers(keys []Key) bool {
	for _, k := range keys {
		if _, ok := t.Column(k); !ok {
			return false
		}
	}
	return true
}
