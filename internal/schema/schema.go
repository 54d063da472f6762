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

// Package schema defines the ordered column layout of a series: name,
// dtype, codec pipeline, and index membership.
package schema

import (
	"fmt"
	"strings"

	"github.com/launix-de/lakota/internal/codec"
)

// Kind selects write semantics for a schema's series: "default" (plain
// overwrite-by-range) or "kv" (last-writer-wins merge on the index).
type Kind string

const (
	KindDefault Kind = "default"
	KindKV      Kind = "kv"
)

// defaultPipeline picks the codec pipeline a bare dtype name gets when the
// column spec doesn't name one explicitly.
func defaultPipeline(dt codec.DType) []string {
	switch dt {
	case codec.String:
		return []string{"vlen-utf8"}
	case codec.Object:
		return []string{"msgpack"}
	default:
		return []string{"lz4"}
	}
}

// SchemaColumn is one column definition: name, dtype, index membership,
// and its codec pipeline.
type SchemaColumn struct {
	Name    string
	DType   codec.DType
	IsIndex bool
	Codec   codec.Codec
}

// ParseColumn parses a column spec of the form
// "name dtype [*] [| codec ...]", '*' marking an index column. The
// grammar is small enough for strings.Fields; no lexer needed.
func ParseColumn(spec string) (SchemaColumn, error) {
	parts := strings.Split(spec, "|")
	head := strings.Fields(strings.TrimSpace(parts[0]))
	if len(head) < 2 {
		return SchemaColumn{}, fmt.Errorf("schema: invalid column spec %q", spec)
	}
	name := head[0]
	dtypeTok := head[1]
	isIndex := false
	for _, tok := range head[2:] {
		if tok == "*" {
			isIndex = true
		}
	}
	dtypeTok = strings.TrimSuffix(dtypeTok, "*")
	if strings.HasSuffix(head[1], "*") {
		isIndex = true
	}
	dt, err := codec.ParseDType(dtypeTok)
	if err != nil {
		return SchemaColumn{}, fmt.Errorf("schema: column %q: %w", name, err)
	}
	var pipeline []string
	for _, p := range parts[1:] {
		pipeline = append(pipeline, strings.Fields(strings.TrimSpace(p))...)
	}
	if len(pipeline) == 0 {
		pipeline = defaultPipeline(dt)
	}
	return SchemaColumn{
		Name:    name,
		DType:   dt,
		IsIndex: isIndex,
		Codec:   codec.Codec{DType: dt, Pipeline: pipeline},
	}, nil
}

// Schema is an ordered set of columns, at least one of which is an index
// column.
type Schema struct {
	Kind    Kind
	Columns []SchemaColumn
}

// New validates and builds a Schema from already-parsed columns.
func New(kind Kind, cols []SchemaColumn) (*Schema, error) {
	hasIndex := false
	seen := map[string]bool{}
	for _, c := range cols {
		if seen[c.Name] {
			return nil, fmt.Errorf("schema: duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if c.IsIndex {
			hasIndex = true
		}
	}
	if !hasIndex {
		return nil, fmt.Errorf("schema: at least one column must be an index column")
	}
	return &Schema{Kind: kind, Columns: cols}, nil
}

// Parse builds a Schema from comma-separated column specs, e.g.
// "timestamp datetime64[s] *, value float64".
func Parse(kind Kind, specs string) (*Schema, error) {
	var cols []SchemaColumn
	for _, spec := range strings.Split(specs, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		col, err := ParseColumn(spec)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return New(kind, cols)
}

// KV builds the canonical "label str*" registry schema used by
// Registry/Repo/Collection, with additional non-index columns appended
// after label.
func KV(extra ...SchemaColumn) *Schema {
	cols := []SchemaColumn{
		{Name: "label", DType: codec.String, IsIndex: true, Codec: codec.Codec{DType: codec.String, Pipeline: defaultPipeline(codec.String)}},
	}
	cols = append(cols, extra...)
	s, err := New(KindKV, cols)
	if err != nil {
		// label is always a valid index column; extra columns cannot
		// make this fail unless they duplicate "label", which is a
		// caller programming error.
		panic(err)
	}
	return s
}

func (s *Schema) IndexColumns() []SchemaColumn {
	var out []SchemaColumn
	for _, c := range s.Columns {
		if c.IsIndex {
			out = append(out, c)
		}
	}
	return out
}

func (s *Schema) DataColumns() []SchemaColumn {
	var out []SchemaColumn
	for _, c := range s.Columns {
		if !c.IsIndex {
			out = append(out, c)
		}
	}
	return out
}

func (s *Schema) ColumnNames() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

func (s *Schema) Column(name string) (SchemaColumn, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return SchemaColumn{}, false
}

// Dumps renders the schema back to the comma-separated spec form Parse
// accepts, for storage as registry meta.
func (s *Schema) Dumps() string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		spec := c.Name + " " + c.DType.String()
		if c.IsIndex {
			spec += " *"
		}
		spec += " | " + strings.Join(c.Codec.Pipeline, " ")
		parts[i] = spec
	}
	return strings.Join(parts, ", ")
}

// Loads parses the Dumps format back into a Schema.
func Loads(kind Kind, s string) (*Schema, error) {
	return Parse(kind, s)
}

// Equal reports whether two schemas have the same columns, dtypes, index
// flags and kind — the pull-time compatibility check.
func (s *Schema) Equal(o *Schema) bool {
	if s.Kind != o.Kind || len(s.Columns) != len(o.Columns) {
		return false
	}
	for i, c := range s.Columns {
		d := o.Columns[i]
		if c.Name != d.Name || c.DType != d.DType || c.IsIndex != d.IsIndex {
			return false
		}
	}
	return true
}
