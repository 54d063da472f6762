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

// Package series implements the named logical dataframe inside a
// collection: Series.Write encodes and content-addresses a Frame's
// columns and folds a new revision row into the collection's commit
// stream; Series.Read reconstructs the matching Segments for a query
// range.
package series

import (
	"context"
	"fmt"

	"github.com/launix-de/lakota/internal/changelog"
	"github.com/launix-de/lakota/internal/commit"
	"github.com/launix-de/lakota/internal/frame"
	"github.com/launix-de/lakota/internal/pod"
	"github.com/launix-de/lakota/internal/pool"
	"github.com/launix-de/lakota/internal/schema"
	"github.com/launix-de/lakota/internal/segment"
)

// CollectionHandle is the slice of Collection a Series needs. Series
// depends on this interface rather than the concrete collection.Collection
// type so internal/collection can import internal/series without a cycle
// (accept interfaces, return structs).
type CollectionHandle interface {
	Schema() *schema.Schema
	SegmentPod() pod.POD
	Changelog() *changelog.Changelog
}

// RevInfo is one pending revision — a write not yet folded into a
// commit.
type RevInfo struct {
	Label   string
	Start   frame.Key
	Stop    frame.Key
	Length  int
	Digests []string
}

// Row turns a RevInfo into the commit.Row Update/One expect. A direct
// Series write always covers its whole written range, so Closed is
// "both".
func (ri RevInfo) Row() commit.Row {
	return commit.Row{
		Label:  ri.Label,
		Start:  ri.Start,
		Stop:   ri.Stop,
		Digest: ri.Digests,
		Length: int64(ri.Length),
		Closed: frame.ClosedBoth,
	}
}

// Batcher accumulates RevInfos across possibly many series under one
// collection, for a single combined commit.
type Batcher interface {
	Append(RevInfo)
}

// Series combines a collection's POD and changelog to provide versioned,
// concurrent management of one labeled dataframe.
type Series struct {
	coll  CollectionHandle
	label string
}

// New returns a Series named label within coll.
func New(coll CollectionHandle, label string) *Series {
	return &Series{coll: coll, label: label}
}

func (s *Series) Label() string          { return s.label }
func (s *Series) Schema() *schema.Schema { return s.coll.Schema() }

// WriteOptions controls one Write call.
type WriteOptions struct {
	// Start/Stop override the frame's own bounds — used by KVSeries to
	// re-write an already-reduced range.
	Start, Stop frame.Key
	// Root forces the new commit's parent to changelog.Phi, starting a
	// fresh history line.
	Root bool
	// Batch, if set, defers the commit: the RevInfo is appended to the
	// batch instead of being committed immediately.
	Batch Batcher
}

// Write validates fr is lexsorted, content-addresses each column into the
// collection's segment POD, and either appends the resulting RevInfo to
// opts.Batch or commits it immediately against the collection's changelog
// leaf.
func (s *Series) Write(ctx context.Context, fr *frame.Frame, opts WriteOptions) (*changelog.Revision, error) {
	if fr.Len() == 0 {
		return nil, nil
	}
	if !fr.IsSorted() {
		return nil, fmt.Errorf("series: Write: frame is not sorted by index columns")
	}

	sch := s.Schema()
	digests := make([]string, len(sch.Columns))
	segPod := s.coll.SegmentPod()

	var tasks []func(context.Context) error
	for i, col := range sch.Columns {
		i, col := i, col
		arr, ok := fr.Column(col.Name)
		if !ok {
			return nil, fmt.Errorf("series: Write: frame missing column %q", col.Name)
		}
		data, err := col.Codec.Encode(arr)
		if err != nil {
			return nil, fmt.Errorf("series: Write: encode %q: %w", col.Name, err)
		}
		digest := col.Codec.Digest(arr, data)
		digests[i] = digest
		tasks = append(tasks, func(ctx context.Context) error {
			dir, filename := pod.SplitHashedPath(digest, 2)
			_, _, err := segPod.Cd(dir).Write(ctx, filename, data, false)
			return err
		})
	}
	if err := pool.New(0).Go(ctx, tasks...); err != nil {
		return nil, fmt.Errorf("series: Write: segment write: %w", err)
	}

	start := opts.Start
	if start == nil {
		start = fr.Start()
	}
	stop := opts.Stop
	if stop == nil {
		stop = fr.Stop()
	}
	ri := RevInfo{Label: s.label, Start: start, Stop: stop, Length: fr.Len(), Digests: digests}

	if opts.Batch != nil {
		opts.Batch.Append(ri)
		return nil, nil
	}
	return s.commitOne(ctx, ri, opts.Root)
}

func (s *Series) commitOne(ctx context.Context, ri RevInfo, root bool) (*changelog.Revision, error) {
	cl := s.coll.Changelog()
	var parents []string
	if root {
		parents = []string{changelog.Phi}
	}

	var leaf *changelog.Revision
	var err error
	if !root {
		leaf, err = cl.Leaf(ctx)
		if err != nil {
			return nil, err
		}
	}

	var ci *commit.Commit
	if leaf == nil {
		ci, err = commit.One(s.Schema(), ri.Row())
	} else {
		payload, rerr := leaf.Read(ctx)
		if rerr != nil {
			return nil, rerr
		}
		base, derr := commit.Decode(s.Schema(), payload)
		if derr != nil {
			return nil, derr
		}
		ci, err = base.Update(ri.Row())
	}
	if err != nil {
		return nil, err
	}

	payload, err := ci.Encode()
	if err != nil {
		return nil, err
	}
	revs, err := cl.Commit(ctx, payload, parents)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, nil
	}
	return revs[0], nil
}

// ReadOptions parameterizes one Read call.
type ReadOptions struct {
	Start, Stop   frame.Key
	Closed        frame.Closed // defaults to frame.ClosedLeft
	After, Before *string      // epoch (hextime) bounds on commit time
	Limit, Offset int
	Select        []string
}

// Digests yields every digest referenced anywhere in this label's history
// — used by the garbage collector's active-set union.
func (s *Series) Digests(ctx context.Context) ([]string, error) {
	revs, err := s.coll.Changelog().Log(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, r := range revs {
		payload, err := r.Read(ctx)
		if err != nil {
			return nil, err
		}
		ci, err := commit.Decode(s.Schema(), payload)
		if err != nil {
			return nil, err
		}
		for pos := 0; pos < ci.Len(); pos++ {
			if ci.Label[pos] != s.label {
				continue
			}
			row := ci.At(pos)
			for _, d := range row.Digest {
				if d != "" && !seen[d] {
					seen[d] = true
					out = append(out, d)
				}
			}
		}
	}
	return out, nil
}

// selectCommit picks the commit whose state Read should operate against:
// the newest entry in changelog order, restricted to entries within
// [after, before) epoch bounds when given. Because every commit in this
// collection's history is a full, merged snapshot (Write always folds
// forward via commit.Update against the current leaf, and Update keeps
// rows non-overlapping even at shared endpoints), picking one commit's
// decoded state is sufficient — no cross-commit overlap resolution is
// needed; see DESIGN.md for this simplification.
func (s *Series) selectCommit(ctx context.Context, opts ReadOptions) (*commit.Commit, error) {
	revs, err := s.coll.Changelog().Log(ctx)
	if err != nil {
		return nil, err
	}
	var chosen *changelog.Revision
	for _, r := range revs {
		epoch := r.Epoch()
		if opts.After != nil && epoch < *opts.After {
			continue
		}
		if opts.Before != nil && epoch >= *opts.Before {
			continue
		}
		chosen = r
	}
	if chosen == nil {
		return commit.Empty(s.Schema()), nil
	}
	payload, err := chosen.Read(ctx)
	if err != nil {
		return nil, err
	}
	return commit.Decode(s.Schema(), payload)
}

// Read resolves opts against the collection's changelog and returns the
// matching, non-overlapping, start-ordered Segments.
func (s *Series) Read(ctx context.Context, opts ReadOptions) ([]*segment.Segment, error) {
	ci, err := s.selectCommit(ctx, opts)
	if err != nil {
		return nil, err
	}
	closed := opts.Closed
	if closed == "" {
		closed = frame.ClosedLeft
	}
	segs := ci.Segments(s.label, s.coll.SegmentPod(), opts.Start, opts.Stop)
	for _, sg := range segs {
		left := sg.Closed.IncludesLeft()
		right := sg.Closed.IncludesRight()
		if len(opts.Start) > 0 && frame.Equal(sg.Start, opts.Start) {
			left = left && closed.IncludesLeft()
		}
		if len(opts.Stop) > 0 && frame.Equal(sg.Stop, opts.Stop) {
			right = right && closed.IncludesRight()
		}
		sg.Closed = closedFrom(left, right)
	}
	return segs, nil
}

func closedFrom(left, right bool) frame.Closed {
	switch {
	case left && right:
		return frame.ClosedBoth
	case left:
		return frame.ClosedLeft
	case right:
		return frame.ClosedRight
	default:
		return frame.ClosedNone
	}
}
