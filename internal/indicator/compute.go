package indicator

import (
	"fmt"

	"marksix-lab/internal/domain"
)

// Compute derives every omission and frequency column from the attribute
// sequence of records in a single linear pass.
//
// omission(i,v) = 0 if attribute(i) == v, else i - last(v), or i+1 if v never occurred.
// frequency(i,v) = matches of v within records [max(0, i-Window+1), i].
func Compute(records []domain.DrawRecord) *Table {
	n := len(records)
	t := &Table{n: n, cols: make(map[Key][]int)}

	for _, dim := range domain.Dimensions {
		values := dim.Values()
		first := values[0]

		om := make([][]int, len(values))
		freq := make([][]int, len(values))
		for j := range values {
			om[j] = make([]int, n)
			freq[j] = make([]int, n)
		}

		lastSeen := make([]int, len(values))
		for j := range lastSeen {
			lastSeen[j] = -1
		}
		counts := make([]int, len(values))

		for i := range records {
			attr, _ := records[i].Attribute(dim)
			cur := attr - first
			counts[cur]++
			lastSeen[cur] = i

			if i >= Window {
				old, _ := records[i-Window].Attribute(dim)
				counts[old-first]--
			}

			for j := range values {
				if lastSeen[j] < 0 {
					om[j][i] = i + 1
				} else {
					om[j][i] = i - lastSeen[j]
				}
				freq[j][i] = counts[j]
			}
		}

		for j, v := range values {
			t.cols[OmissionKey(dim, v)] = om[j]
			t.cols[FrequencyKey(dim, v, Window)] = freq[j]
		}
	}

	return t
}

// FromColumns builds a table from precomputed columns keyed by column name.
// Non-indicator names are ignored. Every recognized column must have n values.
func FromColumns(n int, columns map[string][]int) (*Table, error) {
	t := &Table{n: n, cols: make(map[Key][]int)}
	for name, col := range columns {
		k, ok := ParseColumn(name)
		if !ok {
			continue
		}
		if len(col) != n {
			return nil, fmt.Errorf("column %s: got %d values, want %d", name, len(col), n)
		}
		for i, v := range col {
			if v < 0 {
				return nil, fmt.Errorf("column %s: negative value %d at row %d", name, v, i)
			}
		}
		t.cols[k] = append([]int(nil), col...)
	}
	return t, nil
}

// Merge returns a table holding every column of base, with any column also
// present in override taken from override. Both tables must cover n records.
func Merge(base, override *Table) *Table {
	out := &Table{n: base.n, cols: make(map[Key][]int, len(base.cols))}
	for k, col := range base.cols {
		out.cols[k] = col
	}
	if override != nil {
		for k, col := range override.cols {
			out.cols[k] = col
		}
	}
	return out
}

// Reorder returns a copy of columns with rows permuted so that row i of the
// result is row perm[i] of the input.
func Reorder(columns map[string][]int, perm []int) map[string][]int {
	out := make(map[string][]int, len(columns))
	for name, col := range columns {
		if len(col) != len(perm) {
			out[name] = col
			continue
		}
		re := make([]int, len(col))
		for i, src := range perm {
			re[i] = col[src]
		}
		out[name] = re
	}
	return out
}
