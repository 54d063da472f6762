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

// Package segment implements the lazily-resolved logical column slice: a
// {digest, range, closed} triple that only touches POD and runs the codec
// decode pipeline when a caller actually asks for its data.
package segment

import (
	"context"
	"sync"

	"github.com/launix-de/lakota/internal/codec"
	"github.com/launix-de/lakota/internal/frame"
	"github.com/launix-de/lakota/internal/pod"
	"github.com/launix-de/lakota/internal/schema"
)

// Segment is an immutable, lazily-decoded column slice: the bytes behind
// each column live at the POD's hashed path for that column's digest: the
// full stored array is Length rows long, and Start/Stop/Closed describe
// the logical index sub-range a reader actually wants out of it.
type Segment struct {
	Schema *schema.Schema
	Pod    pod.POD // segment root POD (not yet narrowed to a hashed path)
	Digest map[string]string
	Length int
	Start  frame.Key
	Stop   frame.Key
	Closed frame.Closed

	mu    sync.Mutex
	cache map[string]codec.Array
	frm   *frame.Frame
}

// New builds a Segment. digest must carry one entry per schema column.
func New(s *schema.Schema, p pod.POD, digest map[string]string, length int, start, stop frame.Key, closed frame.Closed) *Segment {
	return &Segment{
		Schema: s,
		Pod:    p,
		Digest: digest,
		Length: length,
		Start:  start,
		Stop:   stop,
		Closed: closed,
		cache:  map[string]codec.Array{},
	}
}

// Column lazily decodes and caches one column's full (unsliced) array.
func (s *Segment) Column(ctx context.Context, name string) (codec.Array, error) {
	s.mu.Lock()
	if a, ok := s.cache[name]; ok {
		s.mu.Unlock()
		return a, nil
	}
	s.mu.Unlock()

	col, ok := s.Schema.Column(name)
	if !ok {
		return codec.Array{}, errUnknownColumn(name)
	}
	digest := s.Digest[name]
	var arr codec.Array
	if digest == "" || s.Length == 0 {
		arr = codec.NewArray(col.DType, 0)
	} else {
		dir, filename := pod.SplitHashedPath(digest, 2)
		data, err := s.Pod.Cd(dir).Read(ctx, filename)
		if err != nil {
			return codec.Array{}, err
		}
		arr, err = col.Codec.Decode(data, s.Length)
		if err != nil {
			return codec.Array{}, err
		}
	}

	s.mu.Lock()
	s.cache[name] = arr
	s.mu.Unlock()
	return arr, nil
}

// Frame materializes the segment, decoding every schema column and
// slicing to the [Start, Stop] range under Closed. The result is cached;
// a Segment is immutable so this only happens once per process.
func (s *Segment) Frame(ctx context.Context) (*frame.Frame, error) {
	s.mu.Lock()
	cached := s.frm
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	cols := make(map[string]codec.Array, len(s.Schema.Columns))
	for _, c := range s.Schema.Columns {
		arr, err := s.Column(ctx, c.Name)
		if err != nil {
			return nil, err
		}
		cols[c.Name] = arr
	}
	full, err := frame.New(s.Schema, cols)
	if err != nil {
		return nil, err
	}

	lo, hi := 0, full.Len()
	if len(s.Start) > 0 {
		if s.Closed.IncludesLeft() {
			lo = full.Index(s.Start, false)
		} else {
			lo = full.Index(s.Start, true)
		}
	}
	if len(s.Stop) > 0 {
		if s.Closed.IncludesRight() {
			hi = full.Index(s.Stop, true)
		} else {
			hi = full.Index(s.Stop, false)
		}
	}
	if hi < lo {
		hi = lo
	}

	sliced := full.Slice(lo, hi)
	s.mu.Lock()
	s.frm = sliced
	s.mu.Unlock()
	return sliced, nil
}

// Len materializes the segment and returns its row count.
func (s *Segment) Len(ctx context.Context) (int, error) {
	f, err := s.Frame(ctx)
	if err != nil {
		return 0, err
	}
	return f.Len(), nil
}

type errUnknownColumn string

func (e errUnknownColumn) Error() string { return "segment: unknown column " + string(e) }
