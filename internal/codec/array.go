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

// Package codec implements per-column typed arrays, their compression
// pipelines, and the digest rule used to content-address encoded
// segments.
package codec

import (
	"fmt"
	"sort"
)

// DType tags the supported column element types.
type DType int

const (
	// DatetimeS is a second-resolution timestamp ("datetime64[s]").
	DatetimeS DType = iota
	// DatetimeD is a day-resolution date ("datetime64[D]").
	DatetimeD
	Int64
	Float64
	String
	// Object is an opaque value serialized with MessagePack.
	Object
)

func (d DType) String() string {
	switch d {
	case DatetimeS:
		return "datetime64[s]"
	case DatetimeD:
		return "datetime64[D]"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case String:
		return "str"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// ParseDType accepts the canonical dtype names plus the short aliases
// the CLI column-spec grammar allows.
func ParseDType(name string) (DType, error) {
	switch name {
	case "datetime64[s]", "timestamp", "datetime":
		return DatetimeS, nil
	case "datetime64[D]", "date":
		return DatetimeD, nil
	case "int64", "int":
		return Int64, nil
	case "float64", "float":
		return Float64, nil
	case "str", "string", "utf8":
		return String, nil
	case "object", "O", "o":
		return Object, nil
	}
	return 0, fmt.Errorf("codec: unknown dtype %q", name)
}

// Numeric reports whether digests for this dtype are computed on raw
// (undecoded) bytes rather than encoded bytes — see Codec.Digest.
func (d DType) Numeric() bool {
	switch d {
	case DatetimeS, DatetimeD, Int64, Float64:
		return true
	default:
		return false
	}
}

// Array is a tagged-union typed column buffer. Exactly one of the slices
// matching DType is populated at any time; the others are nil. Using one
// concrete struct instead of an interface keeps encode/decode switches
// exhaustive and avoids an allocation per element for the numeric types.
type Array struct {
	DType DType
	I64   []int64 // Int64, DatetimeS (unix seconds), DatetimeD (days since epoch)
	F64   []float64
	Str   []string
	Obj   [][]byte // Object: each element pre-serialized (MessagePack)
}

func NewArray(dt DType, n int) Array {
	a := Array{DType: dt}
	switch dt {
	case Int64, DatetimeS, DatetimeD:
		a.I64 = make([]int64, n)
	case Float64:
		a.F64 = make([]float64, n)
	case String:
		a.Str = make([]string, n)
	case Object:
		a.Obj = make([][]byte, n)
	}
	return a
}

// Single builds a length-1 Array from a scalar Go value, the dtype-tagged
// inverse of ScalarAt — used throughout the commit algebra to turn one
// (start, stop) index tuple back into the per-column arrays a Commit row
// is stored as.
func Single(dt DType, v any) Array {
	a := NewArray(dt, 1)
	switch dt {
	case Int64, DatetimeS, DatetimeD:
		a.I64[0] = toInt64(v)
	case Float64:
		a.F64[0] = toFloat64(v)
	case String:
		a.Str[0] = v.(string)
	case Object:
		a.Obj[0] = v.([]byte)
	}
	return a
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		panic("codec: Single: expected int64 scalar")
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		panic("codec: Single: expected float64 scalar")
	}
}

func (a Array) Len() int {
	switch a.DType {
	case Int64, DatetimeS, DatetimeD:
		return len(a.I64)
	case Float64:
		return len(a.F64)
	case String:
		return len(a.Str)
	case Object:
		return len(a.Obj)
	default:
		return 0
	}
}

// Slice returns a[lo:hi] sharing backing storage.
func (a Array) Slice(lo, hi int) Array {
	out := Array{DType: a.DType}
	switch a.DType {
	case Int64, DatetimeS, DatetimeD:
		out.I64 = a.I64[lo:hi]
	case Float64:
		out.F64 = a.F64[lo:hi]
	case String:
		out.Str = a.Str[lo:hi]
	case Object:
		out.Obj = a.Obj[lo:hi]
	}
	return out
}

// Concat returns a new Array holding the inputs back to back. Panics if
// dtypes differ (a schema/programming error).
func Concat(arrs ...Array) Array {
	if len(arrs) == 0 {
		return Array{}
	}
	dt := arrs[0].DType
	for _, a := range arrs {
		if a.DType != dt {
			panic("codec: Concat dtype mismatch")
		}
	}
	out := Array{DType: dt}
	switch dt {
	case Int64, DatetimeS, DatetimeD:
		for _, a := range arrs {
			out.I64 = append(out.I64, a.I64...)
		}
	case Float64:
		for _, a := range arrs {
			out.F64 = append(out.F64, a.F64...)
		}
	case String:
		for _, a := range arrs {
			out.Str = append(out.Str, a.Str...)
		}
	case Object:
		for _, a := range arrs {
			out.Obj = append(out.Obj, a.Obj...)
		}
	}
	return out
}

// Take returns a new Array holding a[idx[0]], a[idx[1]], ... — used for
// mask/reorder operations in the frame package.
func (a Array) Take(idx []int) Array {
	out := NewArray(a.DType, len(idx))
	switch a.DType {
	case Int64, DatetimeS, DatetimeD:
		for i, j := range idx {
			out.I64[i] = a.I64[j]
		}
	case Float64:
		for i, j := range idx {
			out.F64[i] = a.F64[j]
		}
	case String:
		for i, j := range idx {
			out.Str[i] = a.Str[j]
		}
	case Object:
		for i, j := range idx {
			out.Obj[i] = a.Obj[j]
		}
	}
	return out
}

// Less reports whether element i sorts before element j — the comparison
// Frame.sorted/lexsort needs.
func (a Array) Less(i, j int) bool {
	switch a.DType {
	case Int64, DatetimeS, DatetimeD:
		return a.I64[i] < a.I64[j]
	case Float64:
		return a.F64[i] < a.F64[j]
	case String:
		return a.Str[i] < a.Str[j]
	case Object:
		return string(a.Obj[i]) < string(a.Obj[j])
	default:
		return false
	}
}

func (a Array) Equal(i, j int) bool {
	switch a.DType {
	case Int64, DatetimeS, DatetimeD:
		return a.I64[i] == a.I64[j]
	case Float64:
		return a.F64[i] == a.F64[j]
	case String:
		return a.Str[i] == a.Str[j]
	case Object:
		return string(a.Obj[i]) == string(a.Obj[j])
	default:
		return true
	}
}

// SortPermutation returns the permutation that stably sorts cols
// lexicographically, leftmost column weighted highest — Frame.sorted's
// lexsort.
func SortPermutation(cols []Array) []int {
	n := 0
	if len(cols) > 0 {
		n = cols[0].Len()
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(x, y int) bool {
		i, j := perm[x], perm[y]
		for _, c := range cols {
			if c.Less(i, j) {
				return true
			}
			if c.Less(j, i) {
				return false
			}
		}
		return false
	})
	return perm
}
