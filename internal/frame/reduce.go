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

package frame

import (
	"fmt"

	"github.com/launix-de/lakota/internal/codec"
	"github.com/launix-de/lakota/internal/schema"
)

// AggFunc names a reduction function over a column.
type AggFunc string

const (
	// AggNone marks a non-aggregate expression: group by this column's
	// value as-is.
	AggNone  AggFunc = ""
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
	AggSum   AggFunc = "sum"
	AggFirst AggFunc = "first"
	AggLast  AggFunc = "last"
	AggMean  AggFunc = "mean"
	AggCount AggFunc = "count"
)

// ColumnExpr is a closed expression form: a bare column reference, or
// one of the fixed aggregate functions applied to a column. There is
// deliberately no parseable expression language here.
type ColumnExpr struct {
	Column string
	Agg    AggFunc
}

// Col builds a non-aggregate (group-by) expression.
func Col(name string) ColumnExpr { return ColumnExpr{Column: name} }

// Agg builds an aggregate expression.
func Agg(fn AggFunc, column string) ColumnExpr { return ColumnExpr{Column: column, Agg: fn} }

// ReduceField names one output column and the expression that fills it.
type ReduceField struct {
	Name string
	Expr ColumnExpr
}

// Reduce groups rows by the non-aggregate fields' values and evaluates
// each aggregate field per group; the output rows are sorted by the
// group-by columns. Group-by fields become index columns of the output
// schema; aggregate fields become data columns.
func (f *Frame) Reduce(fields []ReduceField) (*Frame, error) {
	var groupBy, aggregates []ReduceField
	for _, fld := range fields {
		if fld.Expr.Agg == AggNone {
			groupBy = append(groupBy, fld)
		} else {
			aggregates = append(aggregates, fld)
		}
	}

	n := f.Len()
	order := make([]string, 0, n)
	groups := make(map[string][]int, n)
	for i := 0; i < n; i++ {
		key := ""
		for _, fld := range groupBy {
			a, ok := f.cols[fld.Expr.Column]
			if !ok {
				return nil, fmt.Errorf("frame: Reduce: unknown column %q", fld.Expr.Column)
			}
			key += fmt.Sprintf("%v\x00", ScalarAt(a, i))
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	outCols := map[string]codec.Array{}
	outColDefs := make([]schema.SchemaColumn, 0, len(fields))

	for _, fld := range groupBy {
		src, ok := f.cols[fld.Expr.Column]
		if !ok {
			return nil, fmt.Errorf("frame: Reduce: unknown column %q", fld.Expr.Column)
		}
		idx := make([]int, len(order))
		for i, key := range order {
			idx[i] = groups[key][0] // first row of each group carries the group key
		}
		outCols[fld.Name] = src.Take(idx)
		srcCol, _ := f.Schema.Column(fld.Expr.Column)
		outColDefs = append(outColDefs, schema.SchemaColumn{Name: fld.Name, DType: srcCol.DType, IsIndex: true, Codec: srcCol.Codec})
	}

	for _, fld := range aggregates {
		col, err := f.reduceAggregate(fld, order, groups)
		if err != nil {
			return nil, err
		}
		outCols[fld.Name] = col
		srcCol, hasSrc := f.Schema.Column(fld.Expr.Column)
		dt := col.DType
		var cdc codec.Codec
		if hasSrc && dt == srcCol.DType {
			cdc = srcCol.Codec
		} else {
			cdc = codec.Codec{DType: dt, Pipeline: []string{"lz4"}}
		}
		outColDefs = append(outColDefs, schema.SchemaColumn{Name: fld.Name, DType: dt, IsIndex: false, Codec: cdc})
	}

	outSchema, err := schema.New(f.Schema.Kind, outColDefs)
	if err != nil {
		return nil, err
	}
	out := &Frame{Schema: outSchema, cols: outCols}
	return out.Sorted(), nil
}

func (f *Frame) reduceAggregate(fld ReduceField, order []string, groups map[string][]int) (codec.Array, error) {
	if fld.Expr.Agg == AggCount {
		out := make([]int64, len(order))
		for i, key := range order {
			out[i] = int64(len(groups[key]))
		}
		return codec.Array{DType: codec.Int64, I64: out}, nil
	}
	src, ok := f.cols[fld.Expr.Column]
	if !ok {
		return codec.Array{}, fmt.Errorf("frame: Reduce: unknown column %q", fld.Expr.Column)
	}
	switch fld.Expr.Agg {
	case AggFirst:
		idx := make([]int, len(order))
		for i, key := range order {
			idx[i] = groups[key][0]
		}
		return src.Take(idx), nil
	case AggLast:
		idx := make([]int, len(order))
		for i, key := range order {
			rows := groups[key]
			idx[i] = rows[len(rows)-1]
		}
		return src.Take(idx), nil
	case AggMin, AggMax:
		idx := make([]int, len(order))
		for i, key := range order {
			rows := groups[key]
			best := rows[0]
			for _, r := range rows[1:] {
				switch fld.Expr.Agg {
				case AggMin:
					if scalarLess(src, r, best) {
						best = r
					}
				case AggMax:
					if scalarLess(src, best, r) {
						best = r
					}
				}
			}
			idx[i] = best
		}
		return src.Take(idx), nil
	case AggSum, AggMean:
		out := make([]float64, len(order))
		for i, key := range order {
			rows := groups[key]
			var sum float64
			for _, r := range rows {
				sum += numericAt(src, r)
			}
			if fld.Expr.Agg == AggMean {
				sum /= float64(len(rows))
			}
			out[i] = sum
		}
		if src.DType == codec.Float64 || fld.Expr.Agg == AggMean {
			return codec.Array{DType: codec.Float64, F64: out}, nil
		}
		i64 := make([]int64, len(out))
		for i, v := range out {
			i64[i] = int64(v)
		}
		return codec.Array{DType: codec.Int64, I64: i64}, nil
	default:
		return codec.Array{}, fmt.Errorf("frame: Reduce: unknown aggregate %q", fld.Expr.Agg)
	}
}

func scalarLess(a codec.Array, i, j int) bool {
	return a.Less(i, j)
}

func numericAt(a codec.Array, i int) float64 {
	switch a.DType {
	case codec.Int64, codec.DatetimeS, codec.DatetimeD:
		return float64(a.I64[i])
	case codec.Float64:
		return a.F64[i]
	default:
		panic("frame: sum/mean over non-numeric column")
	}
}

// ReduceFirstPerIndex keeps the first-seen row per index key, in index
// column order — the grouped-reduce KVSeries.write uses to implement
// last-writer-wins overwrite: callers concat the existing
// frame's rows *after* the new frame's rows so "first occurrence" means
// "newest value wins".
func (f *Frame) ReduceFirstPerIndex() (*Frame, error) {
	var fields []ReduceField
	for _, c := range f.Schema.IndexColumns() {
		fields = append(fields, ReduceField{Name: c.Name, Expr: Col(c.Name)})
	}
	for _, c := range f.Schema.DataColumns() {
		fields = append(fields, ReduceField{Name: c.Name, Expr: Agg(AggFirst, c.Name)})
	}
	return f.Reduce(fields)
}
