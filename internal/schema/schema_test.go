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

package schema

import (
	"testing"

	"github.com/launix-de/lakota/internal/codec"
)

func TestParseColumnIndexMarker(t *testing.T) {
	c, err := ParseColumn("timestamp datetime64[s] *")
	if err != nil {
		t.Fatalf("ParseColumn: %v", err)
	}
	if !c.IsIndex || c.DType != codec.DatetimeS || c.Name != "timestamp" {
		t.Fatalf("unexpected column: %+v", c)
	}
}

func TestParseColumnExplicitPipeline(t *testing.T) {
	c, err := ParseColumn("value float64 | xz")
	if err != nil {
		t.Fatalf("ParseColumn: %v", err)
	}
	if c.IsIndex {
		t.Fatalf("expected non-index column")
	}
	if len(c.Codec.Pipeline) != 1 || c.Codec.Pipeline[0] != "xz" {
		t.Fatalf("unexpected pipeline: %v", c.Codec.Pipeline)
	}
}

func TestParseRequiresIndex(t *testing.T) {
	_, err := Parse(KindDefault, "value float64")
	if err == nil {
		t.Fatalf("expected error for schema with no index column")
	}
}

func TestParseDumpsRoundTrip(t *testing.T) {
	s, err := Parse(KindDefault, "timestamp timestamp *, value float")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	dumped := s.Dumps()
	s2, err := Loads(KindDefault, dumped)
	if err != nil {
		t.Fatalf("Loads: %v", err)
	}
	if !s.Equal(s2) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", s, s2)
	}
}

func TestKVSchema(t *testing.T) {
	s := KV()
	if s.Kind != KindKV {
		t.Fatalf("expected kv kind")
	}
	if len(s.IndexColumns()) != 1 || s.IndexColumns()[0].Name != "label" {
		t.Fatalf("expected label as sole index column")
	}
}

func TestSchemaColumnLookup(t *testing.T) {
	s, _ := Parse(KindDefault, "k str *, v int64")
	col, ok := s.Column("v")
	if !ok || col.DType != codec.Int64 {
		t.Fatalf("expected to find column v")
	}
	if _, ok := s.Column("missing"); ok {
		t.Fatalf("expected missing column lookup to fail")
	}
}
