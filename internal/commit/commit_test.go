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
	"testing"

	"github.com/launix-de/lakota/internal/frame"
	"github.com/launix-de/lakota/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse(schema.KindDefault, "timestamp int64 *, value float64")
	if err != nil {
		t.Fatalf("schema.Parse: %v", err)
	}
	return s
}

func row(label string, start, stop int64, digest string) Row {
	return Row{
		Label:  label,
		Start:  frame.Key{start},
		Stop:   frame.Key{stop},
		Digest: []string{digest + "-ts", digest + "-val"},
		Length: stop - start + 1,
		Closed: frame.ClosedBoth,
	}
}

func mustUpdate(t *testing.T, c *Commit, r Row) *Commit {
	t.Helper()
	out, err := c.Update(r)
	if err != nil {
		t.Fatalf("Update(%v): %v", r, err)
	}
	return out
}

func bounds(t *testing.T, c *Commit, pos int) (int64, int64) {
	t.Helper()
	r := c.At(pos)
	return r.Start[0].(int64), r.Stop[0].(int64)
}

func TestUpdateOnEmpty(t *testing.T) {
	s := testSchema(t)
	c := mustUpdate(t, Empty(s), row("ham", 1, 5, "a"))
	if c.Len() != 1 {
		t.Fatalf("got %d rows, want 1", c.Len())
	}
}

func TestUpdateSupersedesAll(t *testing.T) {
	s := testSchema(t)
	c := mustUpdate(t, Empty(s), row("ham", 2, 4, "a"))
	c = mustUpdate(t, c, row("ham", 5, 8, "b"))
	c = mustUpdate(t, c, row("ham", 1, 9, "c"))
	if c.Len() != 1 {
		t.Fatalf("got %d rows, want 1", c.Len())
	}
	if c.At(0).Digest[0] != "c-ts" {
		t.Fatalf("surviving row = %v", c.At(0))
	}
}

func TestUpdateSplitsEnclosingRow(t *testing.T) {
	s := testSchema(t)
	c := mustUpdate(t, Empty(s), row("ham", 1, 10, "a"))
	c = mustUpdate(t, c, row("ham", 4, 6, "b"))
	if c.Len() != 3 {
		t.Fatalf("got %d rows, want 3", c.Len())
	}
	if lo, hi := bounds(t, c, 0); lo != 1 || hi != 4 {
		t.Fatalf("left remnant = [%d, %d], want [1, 4]", lo, hi)
	}
	if c.Closed[0] != frame.ClosedLeft {
		t.Fatalf("left remnant closed = %s, want left", c.Closed[0])
	}
	if lo, hi := bounds(t, c, 1); lo != 4 || hi != 6 {
		t.Fatalf("inner = [%d, %d], want [4, 6]", lo, hi)
	}
	if lo, hi := bounds(t, c, 2); lo != 6 || hi != 10 {
		t.Fatalf("right remnant = [%d, %d], want [6, 10]", lo, hi)
	}
	if c.Closed[2] != frame.ClosedRight {
		t.Fatalf("right remnant closed = %s, want right", c.Closed[2])
	}
}

func TestUpdateTruncatesBoundaryRows(t *testing.T) {
	s := testSchema(t)
	c := mustUpdate(t, Empty(s), row("ham", 1, 5, "a"))
	c = mustUpdate(t, c, row("ham", 6, 10, "b"))
	c = mustUpdate(t, c, row("ham", 3, 7, "c"))
	if c.Len() != 3 {
		t.Fatalf("got %d rows, want 3: %+v", c.Len(), c.Label)
	}
	if lo, hi := bounds(t, c, 0); lo != 1 || hi != 3 {
		t.Fatalf("head = [%d, %d], want [1, 3]", lo, hi)
	}
	if lo, hi := bounds(t, c, 1); lo != 3 || hi != 7 {
		t.Fatalf("inner = [%d, %d], want [3, 7]", lo, hi)
	}
	if lo, hi := bounds(t, c, 2); lo != 7 || hi != 10 {
		t.Fatalf("tail = [%d, %d], want [7, 10]", lo, hi)
	}
}

func TestUpdateTrimsTouchingLeftBoundary(t *testing.T) {
	s := testSchema(t)
	c := mustUpdate(t, Empty(s), row("ham", 1, 5, "a"))
	c = mustUpdate(t, c, row("ham", 5, 9, "b"))
	if c.Len() != 2 {
		t.Fatalf("got %d rows, want 2", c.Len())
	}
	// The shared key 5 belongs to the newer row alone.
	if lo, hi := bounds(t, c, 0); lo != 1 || hi != 5 {
		t.Fatalf("older row = [%d, %d], want [1, 5]", lo, hi)
	}
	if c.Closed[0] != frame.ClosedLeft {
		t.Fatalf("older row closed = %s, want left", c.Closed[0])
	}
	if c.Closed[1] != frame.ClosedBoth {
		t.Fatalf("newer row closed = %s, want both", c.Closed[1])
	}
	if c.At(1).Digest[0] != "b-ts" {
		t.Fatalf("newer row digest = %v", c.At(1).Digest)
	}
}

func TestUpdateTrimsTouchingRightBoundary(t *testing.T) {
	s := testSchema(t)
	c := mustUpdate(t, Empty(s), row("ham", 5, 9, "a"))
	c = mustUpdate(t, c, row("ham", 1, 5, "b"))
	if c.Len() != 2 {
		t.Fatalf("got %d rows, want 2", c.Len())
	}
	if c.Closed[0] != frame.ClosedBoth {
		t.Fatalf("newer row closed = %s, want both", c.Closed[0])
	}
	if lo, hi := bounds(t, c, 1); lo != 5 || hi != 9 {
		t.Fatalf("older row = [%d, %d], want [5, 9]", lo, hi)
	}
	if c.Closed[1] != frame.ClosedRight {
		t.Fatalf("older row closed = %s, want right", c.Closed[1])
	}
}

func TestUpdateDropsPointRowEmptiedByBoundaryTrim(t *testing.T) {
	s := testSchema(t)
	c := mustUpdate(t, Empty(s), row("ham", 1, 1, "a"))
	c = mustUpdate(t, c, row("ham", 3, 4, "b"))
	c = mustUpdate(t, c, row("ham", 1, 2, "c"))
	if c.Len() != 2 {
		t.Fatalf("got %d rows, want 2: %v", c.Len(), c.Label)
	}
	if c.At(0).Digest[0] != "c-ts" {
		t.Fatalf("first row = %v, want the new write (the emptied point row is dropped)", c.At(0).Digest)
	}
	if lo, hi := bounds(t, c, 1); lo != 3 || hi != 4 {
		t.Fatalf("tail row = [%d, %d], want [3, 4]", lo, hi)
	}
}

func TestUpdateDropsFullyCoveredRows(t *testing.T) {
	s := testSchema(t)
	c := mustUpdate(t, Empty(s), row("ham", 1, 2, "a"))
	c = mustUpdate(t, c, row("ham", 3, 4, "b"))
	c = mustUpdate(t, c, row("ham", 5, 6, "c"))
	c = mustUpdate(t, c, row("ham", 3, 4, "d"))
	if c.Len() != 3 {
		t.Fatalf("got %d rows, want 3", c.Len())
	}
	if c.At(1).Digest[0] != "d-ts" {
		t.Fatalf("middle row should be the new one, got %v", c.At(1).Digest)
	}
}

func TestUpdateKeepsLabelsSeparate(t *testing.T) {
	s := testSchema(t)
	c := mustUpdate(t, Empty(s), row("ham", 1, 5, "a"))
	c = mustUpdate(t, c, row("spam", 1, 5, "b"))
	// Overwriting ham's range must not touch spam.
	c = mustUpdate(t, c, row("ham", 1, 5, "c"))
	if c.Len() != 2 {
		t.Fatalf("got %d rows, want 2", c.Len())
	}
	if c.Label[0] != "ham" || c.Label[1] != "spam" {
		t.Fatalf("labels = %v", c.Label)
	}
	if c.At(0).Digest[0] != "c-ts" || c.At(1).Digest[0] != "b-ts" {
		t.Fatalf("digests = %v, %v", c.At(0).Digest, c.At(1).Digest)
	}
}

func TestConcatRejectsOverlap(t *testing.T) {
	s := testSchema(t)
	a := mustUpdate(t, Empty(s), row("ham", 1, 5, "a"))
	b := mustUpdate(t, Empty(s), row("ham", 3, 8, "b"))
	if _, err := Concat(a, b); err == nil {
		t.Fatal("expected an error concatenating overlapping commits")
	}
}

func TestSegmentsClipsToQueryRange(t *testing.T) {
	s := testSchema(t)
	c := mustUpdate(t, Empty(s), row("ham", 1, 5, "a"))
	c = mustUpdate(t, c, row("ham", 6, 10, "b"))
	c = mustUpdate(t, c, row("spam", 1, 10, "x"))

	segs := c.Segments("ham", nil, frame.Key{int64(4)}, frame.Key{int64(7)})
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].Start[0].(int64) != 4 || segs[0].Stop[0].(int64) != 5 {
		t.Fatalf("first segment = [%v, %v]", segs[0].Start, segs[0].Stop)
	}
	if segs[1].Start[0].(int64) != 6 || segs[1].Stop[0].(int64) != 7 {
		t.Fatalf("second segment = [%v, %v]", segs[1].Start, segs[1].Stop)
	}
}

func TestDeleteLabels(t *testing.T) {
	s := testSchema(t)
	c := mustUpdate(t, Empty(s), row("ham", 1, 5, "a"))
	c = mustUpdate(t, c, row("spam", 1, 5, "b"))
	pruned := c.DeleteLabels([]string{"ham"})
	if pruned.Len() != 1 || pruned.Label[0] != "spam" {
		t.Fatalf("pruned = %v", pruned.Label)
	}
}

func TestContains(t *testing.T) {
	s := testSchema(t)
	r := row("ham", 1, 5, "a")
	c := mustUpdate(t, Empty(s), r)
	if !c.Contains(r) {
		t.Fatal("row should be contained")
	}
	other := row("ham", 1, 5, "z")
	if c.Contains(other) {
		t.Fatal("row with a different digest should not be contained")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := testSchema(t)
	c := mustUpdate(t, Empty(s), row("ham", 1, 5, "a"))
	c = mustUpdate(t, c, row("spam", 10, 20, "b"))

	payload, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Decode(s, payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Len() != c.Len() {
		t.Fatalf("got %d rows, want %d", back.Len(), c.Len())
	}
	for pos := 0; pos < c.Len(); pos++ {
		want := c.At(pos)
		got := back.At(pos)
		if got.Label != want.Label || !frame.Equal(got.Start, want.Start) ||
			!frame.Equal(got.Stop, want.Stop) || got.Length != want.Length ||
			got.Closed != want.Closed || got.Digest[0] != want.Digest[0] {
			t.Fatalf("row %d: got %+v, want %+v", pos, got, want)
		}
	}
}
