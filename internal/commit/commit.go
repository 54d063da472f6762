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

// Package commit implements the revision-row algebra: a Commit is an
// ordered set of (label, start, stop, closed, length, digests) rows,
// sorted by (label, start), supporting the per-label, per-range overwrite
// semantics (Update), Concat, Split and Segments.
package commit

import (
	"fmt"

	"github.com/launix-de/lakota/internal/codec"
	"github.com/launix-de/lakota/internal/frame"
	"github.com/launix-de/lakota/internal/pod"
	"github.com/launix-de/lakota/internal/schema"
	"github.com/launix-de/lakota/internal/segment"
)

// Row is one revision row, the unit Update/At/Contains operate on.
type Row struct {
	Label  string
	Start  frame.Key
	Stop   frame.Key
	Digest []string // one per schema column, in schema order
	Length int64
	Closed frame.Closed
}

// Commit is the metadata record one changelog node stores: parallel
// arrays, one slot per row, sorted by (label, start).
type Commit struct {
	Schema *schema.Schema
	Label  []string
	Start  map[string]codec.Array // per index column
	Stop   map[string]codec.Array // per index column
	Digest map[string][]string    // per schema column
	Length []int64
	Closed []frame.Closed
}

// Empty returns a zero-row Commit for s.
func Empty(s *schema.Schema) *Commit {
	start := map[string]codec.Array{}
	stop := map[string]codec.Array{}
	for _, c := range s.IndexColumns() {
		start[c.Name] = codec.NewArray(c.DType, 0)
		stop[c.Name] = codec.NewArray(c.DType, 0)
	}
	digest := map[string][]string{}
	for _, c := range s.Columns {
		digest[c.Name] = nil
	}
	return &Commit{Schema: s, Digest: digest, Start: start, Stop: stop}
}

// One builds a single-row Commit from row.
func One(s *schema.Schema, row Row) (*Commit, error) {
	idx := s.IndexColumns()
	if len(row.Start) != len(idx) || len(row.Stop) != len(idx) {
		return nil, fmt.Errorf("commit: One: start/stop arity %d/%d does not match %d index columns", len(row.Start), len(row.Stop), len(idx))
	}
	if len(row.Digest) != len(s.Columns) {
		return nil, fmt.Errorf("commit: One: digest arity %d does not match %d schema columns", len(row.Digest), len(s.Columns))
	}
	start := map[string]codec.Array{}
	stop := map[string]codec.Array{}
	for i, c := range idx {
		start[c.Name] = codec.Single(c.DType, row.Start[i])
		stop[c.Name] = codec.Single(c.DType, row.Stop[i])
	}
	digest := map[string][]string{}
	for i, c := range s.Columns {
		digest[c.Name] = []string{row.Digest[i]}
	}
	return &Commit{
		Schema: s,
		Label:  []string{row.Label},
		Start:  start,
		Stop:   stop,
		Digest: digest,
		Length: []int64{row.Length},
		Closed: []frame.Closed{row.Closed},
	}, nil
}

// Len returns the row count.
func (c *Commit) Len() int { return len(c.Label) }

func (c *Commit) rowKey(m map[string]codec.Array, pos int) frame.Key {
	idx := c.Schema.IndexColumns()
	k := make(frame.Key, len(idx))
	for i, col := range idx {
		k[i] = frame.ScalarAt(m[col.Name], pos)
	}
	return k
}

func (c *Commit) rowStart(pos int) frame.Key { return c.rowKey(c.Start, pos) }
func (c *Commit) rowStop(pos int) frame.Key  { return c.rowKey(c.Stop, pos) }

// At returns row pos as a Row value. Negative pos counts from the end.
func (c *Commit) At(pos int) Row {
	if pos < 0 {
		pos += c.Len()
	}
	digest := make([]string, len(c.Schema.Columns))
	for i, col := range c.Schema.Columns {
		digest[i] = c.Digest[col.Name][pos]
	}
	return Row{
		Label:  c.Label[pos],
		Start:  c.rowStart(pos),
		Stop:   c.rowStop(pos),
		Digest: digest,
		Length: c.Length[pos],
		Closed: c.Closed[pos],
	}
}

// Slice returns c[lo:hi], sharing backing array storage.
func (c *Commit) Slice(lo, hi int) *Commit {
	if lo < 0 {
		lo = 0
	}
	if hi > c.Len() {
		hi = c.Len()
	}
	if hi < lo {
		hi = lo
	}
	start := map[string]codec.Array{}
	stop := map[string]codec.Array{}
	for _, col := range c.Schema.IndexColumns() {
		start[col.Name] = c.Start[col.Name].Slice(lo, hi)
		stop[col.Name] = c.Stop[col.Name].Slice(lo, hi)
	}
	digest := map[string][]string{}
	for _, col := range c.Schema.Columns {
		digest[col.Name] = append([]string(nil), c.Digest[col.Name][lo:hi]...)
	}
	return &Commit{
		Schema: c.Schema,
		Label:  append([]string(nil), c.Label[lo:hi]...),
		Start:  start,
		Stop:   stop,
		Digest: digest,
		Length: append([]int64(nil), c.Length[lo:hi]...),
		Closed: append([]frame.Closed(nil), c.Closed[lo:hi]...),
	}
}

func (c *Commit) Head(pos int) *Commit { return c.Slice(0, pos) }
func (c *Commit) Tail(pos int) *Commit { return c.Slice(pos, c.Len()) }

// Concat concatenates commits in order, asserting no overlap at the join
// seams: (prev.label, prev.stop) <= (next.label, next.start).
func Concat(commits ...*Commit) (*Commit, error) {
	var nonEmpty []*Commit
	for _, ci := range commits {
		if ci.Len() > 0 {
			nonEmpty = append(nonEmpty, ci)
		}
	}
	if len(nonEmpty) == 0 {
		if len(commits) == 0 {
			return nil, fmt.Errorf("commit: Concat requires at least one commit")
		}
		return commits[0], nil
	}
	s := nonEmpty[0].Schema
	for i := 1; i < len(nonEmpty); i++ {
		prev := nonEmpty[i-1]
		next := nonEmpty[i]
		pr := prev.At(-1)
		nx := next.At(0)
		if compareLabelKey(pr.Label, pr.Stop, nx.Label, nx.Start) > 0 {
			return nil, fmt.Errorf("commit: Concat: overlapping seam at label %q/%q", pr.Label, nx.Label)
		}
	}

	start := map[string]codec.Array{}
	stop := map[string]codec.Array{}
	for _, col := range s.IndexColumns() {
		var arrs []codec.Array
		for _, ci := range nonEmpty {
			arrs = append(arrs, ci.Start[col.Name])
		}
		start[col.Name] = codec.Concat(arrs...)
		arrs = arrs[:0]
		for _, ci := range nonEmpty {
			arrs = append(arrs, ci.Stop[col.Name])
		}
		stop[col.Name] = codec.Concat(arrs...)
	}
	digest := map[string][]string{}
	for _, col := range s.Columns {
		var d []string
		for _, ci := range nonEmpty {
			d = append(d, ci.Digest[col.Name]...)
		}
		digest[col.Name] = d
	}
	var label []string
	var length []int64
	var closed []frame.Closed
	for _, ci := range nonEmpty {
		label = append(label, ci.Label...)
		length = append(length, ci.Length...)
		closed = append(closed, ci.Closed...)
	}
	return &Commit{Schema: s, Label: label, Start: start, Stop: stop, Digest: digest, Length: length, Closed: closed}, nil
}

// compareLabelKey orders rows by (label, key) — the ordering the
// split/update algorithm brackets replacement zones under.
func compareLabelKey(label string, key frame.Key, wantLabel string, wantKey frame.Key) int {
	if label != wantLabel {
		if label < wantLabel {
			return -1
		}
		return 1
	}
	return frame.Compare(key, wantKey)
}

// Split returns (startPos, stopPos): the row indexes bracketing the
// [label+start, label+stop] replacement zone under the (label, bound)
// ordering — startPos is the first row whose (label, stop) strictly
// exceeds (label, start); stopPos is the first row whose (label, start)
// is >= (label, stop).
func (c *Commit) Split(label string, start, stop frame.Key) (startPos, stopPos int) {
	n := c.Len()
	startPos = n
	for i := 0; i < n; i++ {
		if compareLabelKey(c.Label[i], c.rowStop(i), label, start) > 0 {
			startPos = i
			break
		}
	}
	stopPos = n
	for i := 0; i < n; i++ {
		if compareLabelKey(c.Label[i], c.rowStart(i), label, stop) >= 0 {
			stopPos = i
			break
		}
	}
	return startPos, stopPos
}

// Update inserts row, overwriting any portion of existing rows for the
// same label whose [start, stop] intersects row's. Rows are kept
// non-overlapping even at shared endpoints: an existing row whose closed
// stop equals row's start (or whose closed start equals row's stop) has
// the shared key flipped out of its closed flag, so the new row alone
// owns that key.
func (c *Commit) Update(row Row) (*Commit, error) {
	if frame.Compare(row.Start, row.Stop) > 0 {
		return nil, fmt.Errorf("commit: Update: invalid range %v -> %v", row.Start, row.Stop)
	}
	inner, err := One(c.Schema, row)
	if err != nil {
		return nil, err
	}
	if c.Len() == 0 {
		return inner, nil
	}

	first := c.At(0)
	last := c.At(-1)
	if compareLabelKey(row.Label, row.Start, first.Label, first.Start) <= 0 &&
		compareLabelKey(row.Label, row.Stop, last.Label, last.Stop) >= 0 {
		return inner, nil
	}

	startPos, stopPos := c.Split(row.Label, row.Start, row.Stop)

	// Corner case: new range falls strictly inside one existing row —
	// split that row into a left remnant and a right remnant.
	if startPos+1 == stopPos {
		r := c.At(startPos)
		if row.Label == r.Label && frame.Compare(r.Start, row.Start) < 0 && frame.Compare(row.Stop, r.Stop) < 0 {
			left := r
			left.Stop = row.Start
			left.Closed = left.Closed.LeftHalf()
			right := r
			right.Start = row.Stop
			right.Closed = right.Closed.RightHalf()
			leftCi, err := One(c.Schema, left)
			if err != nil {
				return nil, err
			}
			rightCi, err := One(c.Schema, right)
			if err != nil {
				return nil, err
			}
			return Concat(c.Head(startPos), leftCi, inner, rightCi, c.Tail(stopPos))
		}
	}

	// Truncate the start_pos row symmetrically.
	var head *Commit
	if startPos < c.Len() {
		r := c.At(startPos)
		if row.Label == r.Label && frame.Compare(r.Start, row.Start) < 0 && frame.Compare(row.Start, r.Stop) <= 0 {
			r.Stop = row.Start
			r.Closed = r.Closed.LeftHalf()
			if frame.Compare(r.Start, r.Stop) < 0 {
				truncated, err := One(c.Schema, r)
				if err != nil {
					return nil, err
				}
				head, err = Concat(c.Head(startPos), truncated)
				if err != nil {
					return nil, err
				}
			}
		}
	}
	if head == nil {
		head = c.Head(startPos)
	}

	// Truncate the stop_pos-1 row symmetrically.
	var tail *Commit
	if stopPos-1 >= 0 && stopPos-1 < c.Len() {
		r := c.At(stopPos - 1)
		if row.Label == r.Label && frame.Compare(r.Start, row.Stop) <= 0 && frame.Compare(row.Stop, r.Stop) < 0 {
			r.Start = row.Stop
			r.Closed = r.Closed.RightHalf()
			if frame.Compare(r.Start, r.Stop) < 0 {
				truncated, err := One(c.Schema, r)
				if err != nil {
					return nil, err
				}
				tail, err = Concat(truncated, c.Tail(stopPos))
				if err != nil {
					return nil, err
				}
			}
		}
	}
	if tail == nil {
		tail = c.Tail(stopPos)
	}

	head = trimHeadBoundary(head, row)
	tail = trimTailBoundary(tail, row)

	return Concat(head, inner, tail)
}

// trimHeadBoundary resolves the point overlap left when head's last row
// closes exactly on row's start: Split keeps that row whole (its stop does
// not strictly exceed row's start), yet both rows would claim the shared
// key. The older row gives it up; a point row emptied by the flip is
// dropped. Mutating Closed in place is safe — Slice and Concat both copy
// the Closed slice, so head never aliases the receiver's.
func trimHeadBoundary(head *Commit, row Row) *Commit {
	if head.Len() == 0 || !row.Closed.IncludesLeft() {
		return head
	}
	last := head.At(-1)
	if last.Label != row.Label || frame.Compare(last.Stop, row.Start) != 0 || !last.Closed.IncludesRight() {
		return head
	}
	if frame.Compare(last.Start, last.Stop) == 0 {
		return head.Head(head.Len() - 1)
	}
	head.Closed[head.Len()-1] = last.Closed.LeftHalf()
	return head
}

// trimTailBoundary is the mirror image for tail's first row starting
// exactly on row's stop.
func trimTailBoundary(tail *Commit, row Row) *Commit {
	if tail.Len() == 0 || !row.Closed.IncludesRight() {
		return tail
	}
	first := tail.At(0)
	if first.Label != row.Label || frame.Compare(first.Start, row.Stop) != 0 || !first.Closed.IncludesLeft() {
		return tail
	}
	if frame.Compare(first.Start, first.Stop) == 0 {
		return tail.Tail(1)
	}
	tail.Closed[0] = first.Closed.RightHalf()
	return tail
}

// Segments selects the rows matching label whose range intersects
// [start, stop] (either may be nil for "unbounded") and returns one
// Segment per matching row, each carrying the row's per-column digests
// and intersected sub-range.
func (c *Commit) Segments(label string, segPod pod.POD, start, stop frame.Key) []*segment.Segment {
	var out []*segment.Segment
	for pos := 0; pos < c.Len(); pos++ {
		if c.Label[pos] != label {
			continue
		}
		rStart := c.rowStart(pos)
		rStop := c.rowStop(pos)
		if len(start) > 0 && frame.Compare(start, rStop) > 0 {
			continue
		}
		if len(stop) > 0 && frame.Compare(stop, rStart) < 0 {
			continue
		}
		digest := make(map[string]string, len(c.Schema.Columns))
		for _, col := range c.Schema.Columns {
			digest[col.Name] = c.Digest[col.Name][pos]
		}
		segStart := rStart
		if len(start) > 0 && frame.Compare(start, rStart) > 0 {
			segStart = start
		}
		segStop := rStop
		if len(stop) > 0 && frame.Compare(stop, rStop) < 0 {
			segStop = stop
		}
		out = append(out, segment.New(c.Schema, segPod, digest, int(c.Length[pos]), segStart, segStop, c.Closed[pos]))
	}
	return out
}

// DeleteLabels drops every row whose label is in labels.
func (c *Commit) DeleteLabels(labels []string) *Commit {
	drop := make(map[string]bool, len(labels))
	for _, l := range labels {
		drop[l] = true
	}
	var keep []int
	for i, l := range c.Label {
		if !drop[l] {
			keep = append(keep, i)
		}
	}
	return c.take(keep)
}

func (c *Commit) take(idx []int) *Commit {
	start := map[string]codec.Array{}
	stop := map[string]codec.Array{}
	for _, col := range c.Schema.IndexColumns() {
		start[col.Name] = c.Start[col.Name].Take(idx)
		stop[col.Name] = c.Stop[col.Name].Take(idx)
	}
	digest := map[string][]string{}
	for _, col := range c.Schema.Columns {
		d := make([]string, len(idx))
		for i, j := range idx {
			d[i] = c.Digest[col.Name][j]
		}
		digest[col.Name] = d
	}
	label := make([]string, len(idx))
	length := make([]int64, len(idx))
	closed := make([]frame.Closed, len(idx))
	for i, j := range idx {
		label[i] = c.Label[j]
		length[i] = c.Length[j]
		closed[i] = c.Closed[j]
	}
	return &Commit{Schema: c.Schema, Label: label, Start: start, Stop: stop, Digest: digest, Length: length, Closed: closed}
}

// Contains reports whether row is present verbatim (matched on label,
// start, stop, digest).
func (c *Commit) Contains(row Row) bool {
	startPos, _ := c.Split(row.Label, row.Start, row.Stop)
	if startPos >= c.Len() {
		return false
	}
	match := c.At(startPos)
	if match.Label != row.Label || !frame.Equal(match.Start, row.Start) || !frame.Equal(match.Stop, row.Stop) {
		return false
	}
	if len(match.Digest) != len(row.Digest) {
		return false
	}
	for i := range match.Digest {
		if match.Digest[i] != row.Digest[i] {
			return false
		}
	}
	return true
}
