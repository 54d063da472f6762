/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package frame implements the in-memory columnar container: index
// search, slicing, masking, sorted concat, and grouped reduction.
package frame

import (
	"fmt"
	"sort"

	"github.com/launix-de/lakota/internal/codec"
	"github.com/launix-de/lakota/internal/schema"
)

// Frame maps column name to its typed array; all columns share a common
// length.
type Frame struct {
	Schema *schema.Schema
	cols   map[string]codec.Array
}

// New builds a Frame, failing if column lengths disagree or a schema
// column is missing from cols.
func New(s *schema.Schema, cols map[string]codec.Array) (*Frame, error) {
	n := -1
	for _, c := range s.Columns {
		a, ok := cols[c.Name]
		if !ok {
			return nil, fmt.Errorf("frame: missing column %q", c.Name)
		}
		if n == -1 {
			n = a.Len()
		} else if a.Len() != n {
			return nil, fmt.Errorf("frame: column %q has length %d, want %d", c.Name, a.Len(), n)
		}
	}
	return &Frame{Schema: s, cols: cols}, nil
}

func (f *Frame) Len() int {
	if len(f.Schema.Columns) == 0 {
		return 0
	}
	return f.cols[f.Schema.Columns[0].Name].Len()
}

func (f *Frame) Column(name string) (codec.Array, bool) {
	a, ok := f.cols[name]
	return a, ok
}

// IndexKey builds the compound index key for row i, in schema order.
func (f *Frame) IndexKey(i int) Key {
	idx := f.Schema.IndexColumns()
	k := make(Key, len(idx))
	for j, c := range idx {
		k[j] = ScalarAt(f.cols[c.Name], i)
	}
	return k
}

// ScalarAt returns the Go scalar value of a's element i — the building
// block Key tuples are made of, also used outside this package by the
// commit algebra to read (start, stop) row bounds out of a Commit's
// parallel per-index-column arrays.
func ScalarAt(a codec.Array, i int) any {
	switch a.DType {
	case codec.Int64, codec.DatetimeS, codec.DatetimeD:
		return a.I64[i]
	case codec.Float64:
		return a.F64[i]
	case codec.String:
		return a.Str[i]
	default:
		panic("frame: unsupported index column dtype")
	}
}

// Start and Stop return the first and last row's index key. Both panic
// on an empty frame — callers check Len() first.
func (f *Frame) Start() Key { return f.IndexKey(0) }
func (f *Frame) Stop() Key  { return f.IndexKey(f.Len() - 1) }

// Index performs a lexicographic bisect across the index columns,
// returning the lower bound position (first row whose key >= k) unless
// right is true, in which case it returns the upper bound (first row
// whose key > k).
func (f *Frame) Index(k Key, right bool) int {
	n := f.Len()
	return sort.Search(n, func(i int) bool {
		c := Compare(f.IndexKey(i), k)
		if right {
			return c > 0
		}
		return c >= 0
	})
}

// IndexSlice returns the [lo, hi) row range covering [start, stop] under
// the given closed-interval flag.
func (f *Frame) IndexSlice(start, stop Key, closed Closed) (lo, hi int) {
	if closed.IncludesLeft() {
		lo = f.Index(start, false)
	} else {
		lo = f.Index(start, true)
	}
	if closed.IncludesRight() {
		hi = f.Index(stop, true)
	} else {
		hi = f.Index(stop, false)
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Slice returns f[lo:hi], sharing backing column storage.
func (f *Frame) Slice(lo, hi int) *Frame {
	cols := make(map[string]codec.Array, len(f.cols))
	for name, a := range f.cols {
		cols[name] = a.Slice(lo, hi)
	}
	return &Frame{Schema: f.Schema, cols: cols}
}

// IsSorted reports whether the frame is already in non-decreasing index
// order, leftmost index column weighted highest.
func (f *Frame) IsSorted() bool {
	n := f.Len()
	for i := 1; i < n; i++ {
		if Compare(f.IndexKey(i-1), f.IndexKey(i)) > 0 {
			return false
		}
	}
	return true
}

// Sorted returns a stably-sorted copy (a stable lexsort over the index
// columns, leftmost weighted highest).
func (f *Frame) Sorted() *Frame {
	idxCols := f.Schema.IndexColumns()
	arrs := make([]codec.Array, len(idxCols))
	for i, c := range idxCols {
		arrs[i] = f.cols[c.Name]
	}
	perm := codec.SortPermutation(arrs)
	cols := make(map[string]codec.Array, len(f.cols))
	for name, a := range f.cols {
		cols[name] = a.Take(perm)
	}
	return &Frame{Schema: f.Schema, cols: cols}
}

// Concat concatenates frames column-by-column (schemas must match
// exactly) and returns the result sorted by index.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("frame: Concat requires at least one frame")
	}
	s := frames[0].Schema
	cols := make(map[string]codec.Array, len(s.Columns))
	for _, c := range s.Columns {
		var arrs []codec.Array
		for _, fr := range frames {
			if !fr.Schema.Equal(s) {
				return nil, fmt.Errorf("frame: Concat requires identical schemas")
			}
			arrs = append(arrs, fr.cols[c.Name])
		}
		cols[c.Name] = codec.Concat(arrs...)
	}
	out := &Frame{Schema: s, cols: cols}
	return out.Sorted(), nil
}

// Mask returns the rows where keep[i] is true, preserving order.
func (f *Frame) Mask(keep []bool) *Frame {
	idx := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	cols := make(map[string]codec.Array, len(f.cols))
	for name, a := range f.cols {
		cols[name] = a.Take(idx)
	}
	return &Frame{Schema: f.Schema, cols: cols}
}
