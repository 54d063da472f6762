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

package series

import (
	"context"
	"fmt"

	"github.com/launix-de/lakota/internal/changelog"
	"github.com/launix-de/lakota/internal/frame"
)

// KVSeries is a Series whose schema Kind is schema.KindKV: writes merge
// last-writer-wins on the index instead of overwriting a range. Used by
// Registry for its label -> meta mapping, and by any user schema declared
// with the "kv" kind.
//
// KVSeries has no per-key delete: there is no tombstone mechanism, so
// removing entries means re-writing the surviving rows onto a root commit,
// which only the registry layer does (see DESIGN.md's open-question
// notes).
type KVSeries struct {
	*Series
}

// NewKV wraps coll/label as a KVSeries.
func NewKV(coll CollectionHandle, label string) *KVSeries {
	return &KVSeries{Series: New(coll, label)}
}

// Write merges fr into the series' current full extent by last-writer-wins
// on the index key: existing rows are read back across fr's bounding
// range, fr's rows are layered on top, and ReduceFirstPerIndex keeps the
// newest value per key before the combined frame replaces that range in
// one Series.Write.
func (k *KVSeries) Write(ctx context.Context, fr *frame.Frame, opts WriteOptions) (*changelog.Revision, error) {
	if fr.Len() == 0 {
		return nil, nil
	}
	if !fr.IsSorted() {
		return nil, fmt.Errorf("series: KVSeries.Write: frame is not sorted by index columns")
	}

	start := opts.Start
	if start == nil {
		start = fr.Start()
	}
	stop := opts.Stop
	if stop == nil {
		stop = fr.Stop()
	}

	if !opts.Root {
		existing, err := k.Read(ctx, ReadOptions{Start: start, Stop: stop, Closed: frame.ClosedBoth})
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			existingFrame, err := FrameFromSegments(ctx, k.Schema(), existing, 0, 0, nil)
			if err != nil {
				return nil, err
			}
			if existingFrame.Len() > 0 {
				// fr's rows come first so ReduceFirstPerIndex's
				// first-occurrence tie-break prefers the new write.
				merged, err := frame.Concat(fr, existingFrame)
				if err != nil {
					return nil, err
				}
				fr, err = merged.ReduceFirstPerIndex()
				if err != nil {
					return nil, err
				}
			}
		}
	}

	opts.Start, opts.Stop = start, stop
	return k.Series.Write(ctx, fr, opts)
}
