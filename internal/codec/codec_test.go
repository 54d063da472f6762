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
	"reflect"
	"testing"
)

func TestRoundTripInt64(t *testing.T) {
	c := Codec{DType: Int64, Pipeline: []string{"lz4"}}
	a := Array{DType: Int64, I64: []int64{1, 2, 3, 4}}
	enc, err := c.Encode(a)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	dec, err := c.Decode(enc, a.Len())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(dec.I64, a.I64) {
		t.Fatalf("round trip mismatch: got %v want %v", dec.I64, a.I64)
	}
}

func TestRoundTripFloat64NoPipeline(t *testing.T) {
	c := Codec{DType: Float64}
	a := Array{DType: Float64, F64: []float64{1.5, -2.25, 3}}
	enc, err := c.Encode(a)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	dec, err := c.Decode(enc, a.Len())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(dec.F64, a.F64) {
		t.Fatalf("round trip mismatch: got %v want %v", dec.F64, a.F64)
	}
}

func TestRoundTripString(t *testing.T) {
	for _, pipeline := range [][]string{{"vlen-utf8"}, {"vlen-utf8", "xz"}, {"vlen-utf8", "gzip"}} {
		c := Codec{DType: String, Pipeline: pipeline}
		a := Array{DType: String, Str: []string{"alpha", "", "beta gamma", "日本語"}}
		enc, err := c.Encode(a)
		if err != nil {
			t.Fatalf("Encode %v: %v", pipeline, err)
		}
		dec, err := c.Decode(enc, a.Len())
		if err != nil {
			t.Fatalf("Decode %v: %v", pipeline, err)
		}
		if !reflect.DeepEqual(dec.Str, a.Str) {
			t.Fatalf("%v round trip mismatch: got %v want %v", pipeline, dec.Str, a.Str)
		}
	}
}

func TestRoundTripObject(t *testing.T) {
	c := Codec{DType: Object, Pipeline: []string{"msgpack"}}
	a := Array{DType: Object, Obj: [][]byte{[]byte("one"), []byte(""), []byte("three!")}}
	enc, err := c.Encode(a)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	dec, err := c.Decode(enc, a.Len())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(dec.Obj, a.Obj) {
		t.Fatalf("round trip mismatch: got %v want %v", dec.Obj, a.Obj)
	}
}

func TestEncodeEmptyIsEmptyBytes(t *testing.T) {
	c := Codec{DType: Int64, Pipeline: []string{"lz4"}}
	enc, err := c.Encode(Array{DType: Int64})
	if err != nil || len(enc) != 0 {
		t.Fatalf("expected empty bytes, got %v err %v", enc, err)
	}
}

func TestDigestNumericIgnoresPipelineChoice(t *testing.T) {
	a := Array{DType: Int64, I64: []int64{1, 2, 3}}
	c1 := Codec{DType: Int64, Pipeline: []string{"lz4"}}
	c2 := Codec{DType: Int64, Pipeline: []string{"xz"}}
	enc1, _ := c1.Encode(a)
	enc2, _ := c2.Encode(a)
	if c1.Digest(a, enc1) != c2.Digest(a, enc2) {
		t.Fatalf("expected numeric digest to be independent of compressor choice")
	}
}

func TestDigestStringDependsOnEncodedBytes(t *testing.T) {
	a := Array{DType: String, Str: []string{"a", "b"}}
	c1 := Codec{DType: String, Pipeline: []string{"vlen-utf8"}}
	c2 := Codec{DType: String, Pipeline: []string{"vlen-utf8", "gzip"}}
	enc1, _ := c1.Encode(a)
	enc2, _ := c2.Encode(a)
	if c1.Digest(a, enc1) == c2.Digest(a, enc2) {
		t.Fatalf("expected string digest to track encoded (post-pipeline) bytes")
	}
}

func TestDigestStable(t *testing.T) {
	a1 := Array{DType: Int64, I64: []int64{1, 2, 3}}
	a2 := Array{DType: Int64, I64: []int64{1, 2, 3}}
	c := Codec{DType: Int64}
	enc1, _ := c.Encode(a1)
	enc2, _ := c.Encode(a2)
	if c.Digest(a1, enc1) != c.Digest(a2, enc2) {
		t.Fatalf("expected identical logical arrays to hash identically")
	}
}

func TestParseDType(t *testing.T) {
	cases := map[string]DType{
		"int64": Int64, "timestamp": DatetimeS, "date": DatetimeD,
		"float": Float64, "str": String, "object": Object,
	}
	for in, want := range cases {
		got, err := ParseDType(in)
		if err != nil || got != want {
			t.Fatalf("ParseDType(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseDType("bogus"); err == nil {
		t.Fatalf("expected error for unknown dtype")
	}
}
