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

package series

import (
	"context"

	"github.com/launix-de/lakota/internal/codec"
	"github.com/launix-de/lakota/internal/frame"
	"github.com/launix-de/lakota/internal/schema"
	"github.com/launix-de/lakota/internal/segment"
)

// FrameFromSegments materializes and concatenates segs into a single
// sorted Frame, then applies column selection and limit/offset
// pagination. It lives in this package rather than internal/frame so
// internal/frame never has to import internal/segment.
func FrameFromSegments(ctx context.Context, s *schema.Schema, segs []*segment.Segment, limit, offset int, sel []string) (*frame.Frame, error) {
	fr, err := concatSegments(ctx, s, segs)
	if err != nil {
		return nil, err
	}

	n := fr.Len()
	lo := offset
	if lo < 0 {
		lo = 0
	}
	if lo > n {
		lo = n
	}
	hi := n
	if limit > 0 && lo+limit < hi {
		hi = lo + limit
	}
	fr = fr.Slice(lo, hi)

	if len(sel) == 0 {
		return fr, nil
	}
	return selectColumns(fr, sel)
}

func concatSegments(ctx context.Context, s *schema.Schema, segs []*segment.Segment) (*frame.Frame, error) {
	if len(segs) == 0 {
		cols := make(map[string]codec.Array, len(s.Columns))
		for _, c := range s.Columns {
			cols[c.Name] = codec.NewArray(c.DType, 0)
		}
		return frame.New(s, cols)
	}
	frames := make([]*frame.Frame, len(segs))
	for i, sg := range segs {
		f, err := sg.Frame(ctx)
		if err != nil {
			return nil, err
		}
		frames[i] = f
	}
	if len(frames) == 1 {
		return frames[0], nil
	}
	return frame.Concat(frames...)
}

// selectColumns narrows fr to its index columns plus the requested data
// columns, preserving column order from s.
func selectColumns(fr *frame.Frame, sel []string) (*frame.Frame, error) {
	want := make(map[string]bool, len(sel))
	for _, name := range sel {
		want[name] = true
	}
	var cols []schema.SchemaColumn
	for _, c := range fr.Schema.Columns {
		if c.IsIndex || want[c.Name] {
			cols = append(cols, c)
		}
	}
	outSchema, err := schema.New(fr.Schema.Kind, cols)
	if err != nil {
		return nil, err
	}
	outCols := make(map[string]codec.Array, len(cols))
	for _, c := range cols {
		a, _ := fr.Column(c.Name)
		outCols[c.Name] = a
	}
	return frame.New(outSchema, outCols)
}
