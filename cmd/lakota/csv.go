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

package main

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/launix-de/lakota/internal/codec"
	"github.com/launix-de/lakota/internal/frame"
	"github.com/launix-de/lakota/internal/schema"
)

// parseFloat goes through decimal so values like "0.1" survive the
// round-trip through the CLI byte-identically with what other decimal
// aware producers wrote.
func parseFloat(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("cannot parse number %q", s)
	}
	f, _ := d.Float64()
	return f, nil
}

// readCSV parses a header-prefixed CSV stream into a frame over sch. The
// header must name every schema column; extra CSV columns are ignored.
func readCSV(r io.Reader, sch *schema.Schema) (*frame.Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		cols := map[string]codec.Array{}
		for _, c := range sch.Columns {
			cols[c.Name] = codec.NewArray(c.DType, 0)
		}
		return frame.New(sch, cols)
	}
	if err != nil {
		return nil, err
	}
	pos := map[string]int{}
	for i, name := range header {
		pos[name] = i
	}
	for _, c := range sch.Columns {
		if _, ok := pos[c.Name]; !ok {
			return nil, fmt.Errorf("csv: missing column %q", c.Name)
		}
	}

	cols := map[string]codec.Array{}
	for _, c := range sch.Columns {
		cols[c.Name] = codec.NewArray(c.DType, 0)
	}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, c := range sch.Columns {
			raw := record[pos[c.Name]]
			a := cols[c.Name]
			switch c.DType {
			case codec.String:
				a.Str = append(a.Str, raw)
			case codec.Object:
				blob, err := msgpack.Marshal(raw)
				if err != nil {
					return nil, err
				}
				a.Obj = append(a.Obj, blob)
			case codec.Float64:
				f, err := parseFloat(raw)
				if err != nil {
					return nil, err
				}
				a.F64 = append(a.F64, f)
			default:
				v, err := parseScalar(c.DType, raw)
				if err != nil {
					return nil, err
				}
				a.I64 = append(a.I64, v.(int64))
			}
			cols[c.Name] = a
		}
	}
	return frame.New(sch, cols)
}

// writeCSV prints fr as CSV, with the header row when header is set.
func writeCSV(w io.Writer, fr *frame.Frame, header bool) error {
	cw := csv.NewWriter(w)
	names := fr.Schema.ColumnNames()
	if header {
		if err := cw.Write(names); err != nil {
			return err
		}
	}
	record := make([]string, len(names))
	for i := 0; i < fr.Len(); i++ {
		for j, c := range fr.Schema.Columns {
			a, _ := fr.Column(c.Name)
			if c.DType == codec.Object {
				var v any
				if err := msgpack.Unmarshal(a.Obj[i], &v); err != nil {
					return err
				}
				record[j] = fmt.Sprint(v)
			} else {
				record[j] = formatScalar(c.DType, frame.ScalarAt(a, i))
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
