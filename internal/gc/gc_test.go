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

package gc

import (
	"context"
	"testing"

	"github.com/launix-de/lakota/internal/codec"
	"github.com/launix-de/lakota/internal/frame"
	"github.com/launix-de/lakota/internal/pod"
	"github.com/launix-de/lakota/internal/repo"
	"github.com/launix-de/lakota/internal/schema"
	"github.com/launix-de/lakota/internal/series"
)

func setup(t *testing.T) (*repo.Repo, *schema.Schema) {
	t.Helper()
	s, err := schema.Parse(schema.KindDefault, "timestamp int64 *, value float64")
	if err != nil {
		t.Fatalf("schema.Parse: %v", err)
	}
	return repo.New(pod.NewMemPOD()), s
}

func write(t *testing.T, r *repo.Repo, sch *schema.Schema, label string, ts []int64, vals []float64) {
	t.Helper()
	ctx := context.Background()
	coll, err := r.Collection(ctx, "weather")
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	fr, err := frame.New(sch, map[string]codec.Array{
		"timestamp": {DType: codec.Int64, I64: ts},
		"value":     {DType: codec.Float64, F64: vals},
	})
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	if _, err := coll.Write(ctx, label, fr, series.WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestGCKeepsReachableSegments(t *testing.T) {
	ctx := context.Background()
	r, sch := setup(t)
	if _, err := r.CreateCollection(ctx, "weather", sch, true); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	write(t, r, sch, "paris", []int64{1, 2, 3}, []float64{1, 2, 3})

	count, err := Run(ctx, r, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 0 {
		t.Fatalf("gc removed %d segments from a fully live repo", count)
	}

	coll, err := r.Collection(ctx, "weather")
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	got, err := coll.Read(ctx, "paris", series.ReadOptions{Closed: frame.ClosedBoth})
	if err != nil {
		t.Fatalf("Read after gc: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("got %d rows after gc, want 3", got.Len())
	}
}

func TestGCRemovesUnreferencedAfterSquash(t *testing.T) {
	ctx := context.Background()
	r, sch := setup(t)
	if _, err := r.CreateCollection(ctx, "weather", sch, true); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	// Overlapping writes: the first write's segments become partially
	// superseded history.
	write(t, r, sch, "paris", []int64{1, 2, 3, 4}, []float64{1, 2, 3, 4})
	write(t, r, sch, "paris", []int64{1, 2, 3, 4}, []float64{10, 20, 30, 40})

	coll, err := r.Collection(ctx, "weather")
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	if err := coll.Squash(ctx); err != nil {
		t.Fatalf("Squash: %v", err)
	}

	count, err := Run(ctx, r, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count == 0 {
		t.Fatal("gc removed nothing although squash dropped the old history")
	}

	got, err := coll.Read(ctx, "paris", series.ReadOptions{Closed: frame.ClosedBoth})
	if err != nil {
		t.Fatalf("Read after gc: %v", err)
	}
	if got.Len() != 4 {
		t.Fatalf("got %d rows after gc, want 4", got.Len())
	}
	vals, _ := got.Column("value")
	if vals.F64[0] != 10 || vals.F64[3] != 40 {
		t.Fatalf("values after gc = %v", vals.F64)
	}
}

func TestGCSoftModeArchives(t *testing.T) {
	ctx := context.Background()
	r, sch := setup(t)
	if _, err := r.CreateCollection(ctx, "weather", sch, true); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	write(t, r, sch, "paris", []int64{1, 2}, []float64{1, 2})
	write(t, r, sch, "paris", []int64{1, 2}, []float64{10, 20})

	coll, err := r.Collection(ctx, "weather")
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	if err := coll.Squash(ctx); err != nil {
		t.Fatalf("Squash: %v", err)
	}

	archive := pod.NewMemPOD()
	count, err := Run(ctx, r, Options{Archive: archive})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count == 0 {
		t.Fatal("expected at least one archived segment")
	}
	archived, err := archive.Walk(ctx, 0)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(archived) != count {
		t.Fatalf("archive holds %d files, want %d", len(archived), count)
	}
}
