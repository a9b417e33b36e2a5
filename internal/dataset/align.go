package dataset

import (
	"sort"
	"time"

	"github.com/quantlab/topescape/internal/rolling"
)

// MergeOuter merges tables on the union of their date axes. Rows absent
// from a table contribute missing values for its columns. Later tables
// overwrite columns of the same name.
func MergeOuter(tables ...*Table) *Table {
	seen := make(map[time.Time]struct{})
	var union []time.Time
	for _, t := range tables {
		for _, d := range t.dates {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			union = append(union, d)
		}
	}
	sort.Slice(union, func(i, j int) bool { return union[i].Before(union[j]) })

	merged := New(union)
	for _, t := range tables {
		reindex(merged, t)
	}
	return merged
}

// MergeLeft adds the columns of right onto left's date axis. Right rows
// with no matching left date are dropped; left dates absent from right
// get missing values. left is modified in place and returned.
func MergeLeft(left, right *Table) *Table {
	reindex(left, right)
	return left
}

// reindex copies every column of src into dst, remapped onto dst's date
// axis.
func reindex(dst, src *Table) {
	// Row index of each src date in dst, -1 when absent.
	idx := make([]int, len(dst.dates))
	srcPos := make(map[time.Time]int, len(src.dates))
	for i, d := range src.dates {
		srcPos[d] = i
	}
	for i, d := range dst.dates {
		if j, ok := srcPos[d]; ok {
			idx[i] = j
		} else {
			idx[i] = -1
		}
	}

	for _, name := range src.order {
		srcCol := src.cols[name]
		col := make([]float64, len(dst.dates))
		for i, j := range idx {
			if j < 0 {
				col[i] = rolling.Missing()
			} else {
				col[i] = srcCol[j]
			}
		}
		_ = dst.Set(name, col)
	}
}
