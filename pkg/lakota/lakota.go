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

// Package lakota is the public face of the engine for library consumers:
// it re-exports the repo/collection/series types and the handful of
// functions needed to open a repository, leaving the internal packages
// free to evolve.
package lakota

import (
	"github.com/launix-de/lakota/internal/collection"
	"github.com/launix-de/lakota/internal/frame"
	"github.com/launix-de/lakota/internal/pod"
	"github.com/launix-de/lakota/internal/repo"
	"github.com/launix-de/lakota/internal/schema"
	"github.com/launix-de/lakota/internal/series"
)

type (
	Repo         = repo.Repo
	Collection   = collection.Collection
	Series       = series.Series
	KVSeries     = series.KVSeries
	ReadOptions  = series.ReadOptions
	WriteOptions = series.WriteOptions
	Schema       = schema.Schema
	Frame        = frame.Frame
	Key          = frame.Key
	Closed       = frame.Closed
	POD          = pod.POD
)

const (
	ClosedLeft  = frame.ClosedLeft
	ClosedRight = frame.ClosedRight
	ClosedBoth  = frame.ClosedBoth
	ClosedNone  = frame.ClosedNone
)

// Open builds a Repo from a backend URI ("file://...", "memory://",
// "s3://bucket/prefix", composable with "+" for cache overlays).
func Open(uri string) (*Repo, error) {
	return repo.FromURI(uri)
}

// OpenPod builds a Repo over an already-constructed POD.
func OpenPod(p pod.POD) *Repo {
	return repo.New(p)
}

// ParseSchema parses comma-separated column specs, e.g.
// "timestamp datetime64[s] *, value float64".
func ParseSchema(specs string) (*Schema, error) {
	return schema.Parse(schema.KindDefault, specs)
}

// ParseKVSchema is ParseSchema with last-writer-wins kv semantics.
func ParseKVSchema(specs string) (*Schema, error) {
	return schema.Parse(schema.KindKV, specs)
}
