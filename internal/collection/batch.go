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

package collection

import (
	"context"

	"github.com/launix-de/lakota/internal/changelog"
	"github.com/launix-de/lakota/internal/commit"
	"github.com/launix-de/lakota/internal/series"

	"github.com/vmihailenco/msgpack/v5"
)

// Batch accumulates revision infos from many series writes under one
// collection and folds them all into a single commit on Flush, reading
// the changelog leaf only once. With root set, the commit is parented on
// Phi and starts a fresh history line.
type Batch struct {
	coll  *Collection
	root  bool
	infos []series.RevInfo

	// Revs holds the revisions written by the last Flush.
	Revs []*changelog.Revision
}

// Batch returns a fresh Batch bound to c. Pass it to series writes via
// series.WriteOptions.Batch, then call Flush once.
func (c *Collection) Batch(root bool) *Batch {
	return &Batch{coll: c, root: root}
}

// Append satisfies series.Batcher.
func (b *Batch) Append(ri series.RevInfo) {
	b.infos = append(b.infos, ri)
}

// Flush folds all accumulated revisions into the current leaf (or a fresh
// root commit) and appends the result to the changelog. A Batch that never
// accumulated anything is a no-op.
func (b *Batch) Flush(ctx context.Context) error {
	if len(b.infos) == 0 {
		return nil
	}
	cl := b.coll.Changelog()

	var leaf *changelog.Revision
	var err error
	if !b.root {
		leaf, err = cl.Leaf(ctx)
		if err != nil {
			return err
		}
	}

	var ci *commit.Commit
	infos := b.infos
	if leaf != nil {
		payload, err := leaf.Read(ctx)
		if err != nil {
			return err
		}
		ci, err = commit.Decode(b.coll.Schema(), payload)
		if err != nil {
			return err
		}
	} else {
		ci, err = commit.One(b.coll.Schema(), infos[0].Row())
		if err != nil {
			return err
		}
		infos = infos[1:]
	}
	for _, ri := range infos {
		ci, err = ci.Update(ri.Row())
		if err != nil {
			return err
		}
	}

	payload, err := ci.Encode()
	if err != nil {
		return err
	}
	parent := changelog.Phi
	if leaf != nil {
		parent = leaf.Child
	}
	revs, err := cl.Commit(ctx, payload, []string{parent})
	if err != nil {
		return err
	}
	b.Revs = revs
	b.infos = nil
	return nil
}

func encodeMeta(m map[string]string) ([]byte, error) {
	return msgpack.Marshal(m)
}

// decodeMeta parses a catalog meta blob back into its string map.
func decodeMeta(data []byte) (map[string]string, error) {
	var m map[string]string
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
