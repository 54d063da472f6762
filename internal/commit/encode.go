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

package commit

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/launix-de/lakota/internal/codec"
	"github.com/launix-de/lakota/internal/frame"
	"github.com/launix-de/lakota/internal/schema"
)

// wireCommit is the MessagePack payload shape: a single map with
// parallel arrays, start/stop/digest keyed by column name. Each
// per-column array is itself pre-encoded with msgpack (rather than
// described via a RawMessage field) so Decode can pick the right Go slice
// type for that column once it knows the schema.
type wireCommit struct {
	Label  []string            `msgpack:"label"`
	Length []int64             `msgpack:"length"`
	Closed []string            `msgpack:"closed"`
	Start  map[string][]byte   `msgpack:"start"`
	Stop   map[string][]byte   `msgpack:"stop"`
	Digest map[string][]string `msgpack:"digest"`
}

// Encode renders c as a single-element MessagePack list.
func (c *Commit) Encode() ([]byte, error) {
	w := wireCommit{
		Label:  c.Label,
		Length: c.Length,
		Closed: make([]string, len(c.Closed)),
		Start:  map[string][]byte{},
		Stop:   map[string][]byte{},
		Digest: c.Digest,
	}
	for i, cl := range c.Closed {
		w.Closed[i] = string(cl)
	}
	for _, col := range c.Schema.IndexColumns() {
		sb, err := encodeColumn(c.Start[col.Name])
		if err != nil {
			return nil, fmt.Errorf("commit: encode start[%s]: %w", col.Name, err)
		}
		w.Start[col.Name] = sb
		eb, err := encodeColumn(c.Stop[col.Name])
		if err != nil {
			return nil, fmt.Errorf("commit: encode stop[%s]: %w", col.Name, err)
		}
		w.Stop[col.Name] = eb
	}
	return msgpack.Marshal([]wireCommit{w})
}

// Decode parses a payload previously produced by Encode, against s.
func Decode(s *schema.Schema, payload []byte) (*Commit, error) {
	var arr []wireCommit
	if err := msgpack.Unmarshal(payload, &arr); err != nil {
		return nil, fmt.Errorf("commit: decode: %w", err)
	}
	if len(arr) != 1 {
		return nil, fmt.Errorf("commit: decode: expected a single-element payload, got %d", len(arr))
	}
	w := arr[0]

	start := map[string]codec.Array{}
	stop := map[string]codec.Array{}
	for _, col := range s.IndexColumns() {
		sa, err := decodeColumn(col.DType, w.Start[col.Name])
		if err != nil {
			return nil, fmt.Errorf("commit: decode start[%s]: %w", col.Name, err)
		}
		start[col.Name] = sa
		ea, err := decodeColumn(col.DType, w.Stop[col.Name])
		if err != nil {
			return nil, fmt.Errorf("commit: decode stop[%s]: %w", col.Name, err)
		}
		stop[col.Name] = ea
	}
	if w.Digest == nil {
		w.Digest = map[string][]string{}
	}
	closed := make([]frame.Closed, len(w.Closed))
	for i, cl := range w.Closed {
		closed[i] = frame.Closed(cl)
	}
	return &Commit{
		Schema: s,
		Label:  w.Label,
		Start:  start,
		Stop:   stop,
		Digest: w.Digest,
		Length: w.Length,
		Closed: closed,
	}, nil
}

// encodeColumn msgpack-marshals an index column array's raw values,
// keyed by concrete Go slice type so Decode can unmarshal into the exact
// same type given only the dtype.
func encodeColumn(a codec.Array) ([]byte, error) {
	switch a.DType {
	case codec.Int64, codec.DatetimeS, codec.DatetimeD:
		return msgpack.Marshal(a.I64)
	case codec.Float64:
		return msgpack.Marshal(a.F64)
	case codec.String:
		return msgpack.Marshal(a.Str)
	default:
		return nil, fmt.Errorf("commit: unsupported index dtype %v", a.DType)
	}
}

func decodeColumn(dt codec.DType, data []byte) (codec.Array, error) {
	if len(data) == 0 {
		return codec.NewArray(dt, 0), nil
	}
	switch dt {
	case codec.Int64, codec.DatetimeS, codec.DatetimeD:
		var v []int64
		if err := msgpack.Unmarshal(data, &v); err != nil {
			return codec.Array{}, err
		}
		return codec.Array{DType: dt, I64: v}, nil
	case codec.Float64:
		var v []float64
		if err := msgpack.Unmarshal(data, &v); err != nil {
			return codec.Array{}, err
		}
		return codec.Array{DType: dt, F64: v}, nil
	case codec.String:
		var v []string
		if err := msgpack.Unmarshal(data, &v); err != nil {
			return codec.Array{}, err
		}
		return codec.Array{DType: dt, Str: v}, nil
	default:
		return codec.Array{}, fmt.Errorf("commit: unsupported index dtype %v", dt)
	}
}
