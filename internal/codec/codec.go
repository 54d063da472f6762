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

package codec

import (
	"bytes"
	"compress/gzip"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec pairs a dtype with an ordered pipeline of codec names. For numeric
// dtypes every pipeline entry is a byte-level compressor layered on top of
// the implicit fixed-width binary serialization. For String/Object, the
// first pipeline entry must be the serializer ("vlen-utf8" or "msgpack"
// respectively); any further entries compress the serialized bytes.
type Codec struct {
	DType    DType
	Pipeline []string
}

// Encode turns a into its on-disk byte representation: empty input
// produces empty bytes.
func (c Codec) Encode(a Array) ([]byte, error) {
	if a.Len() == 0 {
		return nil, nil
	}
	var data []byte
	pipeline := c.Pipeline
	switch c.DType {
	case Int64, DatetimeS, DatetimeD:
		data = encodeI64(a.I64)
	case Float64:
		data = encodeF64(a.F64)
	case String:
		if len(pipeline) == 0 || pipeline[0] != "vlen-utf8" {
			return nil, fmt.Errorf("codec: string column pipeline must start with vlen-utf8")
		}
		data = encodeVlenUTF8(a.Str)
		pipeline = pipeline[1:]
	case Object:
		if len(pipeline) == 0 || pipeline[0] != "msgpack" {
			return nil, fmt.Errorf("codec: object column pipeline must start with msgpack")
		}
		enc, err := encodeMsgpackObjects(a.Obj)
		if err != nil {
			return nil, err
		}
		data = enc
		pipeline = pipeline[1:]
	default:
		return nil, fmt.Errorf("codec: unsupported dtype %v", c.DType)
	}
	for _, name := range pipeline {
		var err error
		data, err = compress(name, data)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// Decode reverses Encode, given the expected element count n.
func (c Codec) Decode(data []byte, n int) (Array, error) {
	if n == 0 || len(data) == 0 {
		return NewArray(c.DType, 0), nil
	}
	pipeline := c.Pipeline
	switch c.DType {
	case String:
		pipeline = pipelineTail(pipeline, "vlen-utf8")
	case Object:
		pipeline = pipelineTail(pipeline, "msgpack")
	}
	for i := len(pipeline) - 1; i >= 0; i-- {
		var err error
		data, err = decompress(pipeline[i], data)
		if err != nil {
			return Array{}, err
		}
	}
	switch c.DType {
	case Int64, DatetimeS, DatetimeD:
		i64, err := decodeI64(data, n)
		if err != nil {
			return Array{}, err
		}
		return Array{DType: c.DType, I64: i64}, nil
	case Float64:
		f64, err := decodeF64(data, n)
		if err != nil {
			return Array{}, err
		}
		return Array{DType: c.DType, F64: f64}, nil
	case String:
		s, err := decodeVlenUTF8(data, n)
		if err != nil {
			return Array{}, err
		}
		return Array{DType: c.DType, Str: s}, nil
	case Object:
		o, err := decodeMsgpackObjects(data, n)
		if err != nil {
			return Array{}, err
		}
		return Array{DType: c.DType, Obj: o}, nil
	default:
		return Array{}, fmt.Errorf("codec: unsupported dtype %v", c.DType)
	}
}

func pipelineTail(pipeline []string, head string) []string {
	if len(pipeline) > 0 && pipeline[0] == head {
		return pipeline[1:]
	}
	return pipeline
}

// Digest computes the content digest for a column array. String/object
// columns hash the encoded (post-pipeline) bytes, numeric columns hash
// the raw fixed-width bytes before any compression, so digests are
// insensitive to a later pipeline change for numeric data but track it
// for variable-length data (the pipeline itself, e.g. vlen-utf8 layout,
// is part of the logical value there). The rule is fixed per column so
// identical logical arrays always hash the same way.
func (c Codec) Digest(a Array, encoded []byte) string {
	var payload []byte
	if c.DType.Numeric() {
		switch c.DType {
		case Int64, DatetimeS, DatetimeD:
			payload = encodeI64(a.I64)
		case Float64:
			payload = encodeF64(a.F64)
		}
	} else {
		payload = encoded
	}
	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:])
}

func encodeI64(v []int64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(x))
	}
	return buf
}

func decodeI64(data []byte, n int) ([]int64, error) {
	if len(data) != n*8 {
		return nil, fmt.Errorf("codec: int64 payload length %d does not match %d elements", len(data), n)
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out, nil
}

func encodeF64(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(x))
	}
	return buf
}

func decodeF64(data []byte, n int) ([]float64, error) {
	if len(data) != n*8 {
		return nil, fmt.Errorf("codec: float64 payload length %d does not match %d elements", len(data), n)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out, nil
}

// encodeVlenUTF8 lays out strings as a count-prefixed offsets table
// followed by the concatenated UTF-8 bytes.
func encodeVlenUTF8(v []string) []byte {
	var buf bytes.Buffer
	offsets := make([]uint32, len(v)+1)
	var off uint32
	for i, s := range v {
		offsets[i] = off
		off += uint32(len(s))
	}
	offsets[len(v)] = off
	hdr := make([]byte, 4+4*len(offsets))
	binary.LittleEndian.PutUint32(hdr, uint32(len(v)))
	for i, o := range offsets {
		binary.LittleEndian.PutUint32(hdr[4+i*4:], o)
	}
	buf.Write(hdr)
	for _, s := range v {
		buf.WriteString(s)
	}
	return buf.Bytes()
}

func decodeVlenUTF8(data []byte, n int) ([]string, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("codec: vlen-utf8 payload too short")
	}
	count := int(binary.LittleEndian.Uint32(data))
	if count != n {
		return nil, fmt.Errorf("codec: vlen-utf8 count %d does not match %d elements", count, n)
	}
	hdrLen := 4 + 4*(n+1)
	if len(data) < hdrLen {
		return nil, fmt.Errorf("codec: vlen-utf8 offsets table truncated")
	}
	offsets := make([]uint32, n+1)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(data[4+i*4:])
	}
	body := data[hdrLen:]
	out := make([]string, n)
	for i := 0; i < n; i++ {
		lo, hi := offsets[i], offsets[i+1]
		if int(hi) > len(body) {
			return nil, fmt.Errorf("codec: vlen-utf8 body truncated")
		}
		out[i] = string(body[lo:hi])
	}
	return out, nil
}

func encodeMsgpackObjects(objs [][]byte) ([]byte, error) {
	// Each element already holds a MessagePack-encoded value (produced by
	// the schema layer via msgpack.Marshal); this stage writes a 4-byte
	// little-endian header length, a msgpack array of the element lengths,
	// then the elements back to back.
	var lengths []uint32
	var total int
	for _, o := range objs {
		lengths = append(lengths, uint32(len(o)))
		total += len(o)
	}
	raw, err := msgpack.Marshal(lengths)
	if err != nil {
		return nil, err
	}
	hdr := make([]byte, 4+len(raw))
	binary.LittleEndian.PutUint32(hdr, uint32(len(raw)))
	copy(hdr[4:], raw)
	out := make([]byte, 0, len(hdr)+total)
	out = append(out, hdr...)
	for _, o := range objs {
		out = append(out, o...)
	}
	return out, nil
}

func decodeMsgpackObjects(data []byte, n int) ([][]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("codec: object payload too short")
	}
	hdrLen := binary.LittleEndian.Uint32(data)
	if int(4+hdrLen) > len(data) {
		return nil, fmt.Errorf("codec: object header truncated")
	}
	var lengths []uint32
	if err := msgpack.Unmarshal(data[4:4+hdrLen], &lengths); err != nil {
		return nil, err
	}
	if len(lengths) != n {
		return nil, fmt.Errorf("codec: object count %d does not match %d elements", len(lengths), n)
	}
	body := data[4+hdrLen:]
	out := make([][]byte, n)
	off := 0
	for i, l := range lengths {
		if off+int(l) > len(body) {
			return nil, fmt.Errorf("codec: object body truncated")
		}
		out[i] = body[off : off+int(l)]
		off += int(l)
	}
	return out, nil
}

func compress(name string, data []byte) ([]byte, error) {
	switch name {
	case "lz4":
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "xz":
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "gzip":
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("codec: unknown compressor %q", name)
	}
}

func decompress(name string, data []byte) ([]byte, error) {
	switch name {
	case "lz4":
		r := lz4.NewReader(bytes.NewReader(data))
		return io.ReadAll(r)
	case "xz":
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("codec: unknown compressor %q", name)
	}
}
