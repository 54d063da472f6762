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
)

// Merge reconciles concurrent branches: it finds a common root
// of the given heads (all current leafs when none are given), folds every
// row of the secondary heads that is in neither the primary head nor the
// root into the primary commit, and appends the result as a child of all
// heads. A single head is a no-op.
func (c *Collection) Merge(ctx context.Context, heads ...*changelog.Revision) ([]*changelog.Revision, error) {
	revisions, err := c.cl.Log(ctx)
	if err != nil {
		return nil, err
	}
	if len(revisions) == 0 {
		return nil, nil
	}
	if len(heads) == 0 {
		for _, r := range revisions {
			if r.IsLeaf {
				heads = append(heads, r)
			}
		}
	}
	if len(heads) < 2 {
		return nil, nil
	}

	// child -> revisions producing that child (siblings from different
	// parents share a child id only if their payload and timestamp agree,
	// so this is effectively one entry per node).
	ch2pr := map[string][]*changelog.Revision{}
	for _, r := range revisions {
		ch2pr[r.Child] = append(ch2pr[r.Child], r)
	}

	parentSets := make([]map[string]bool, len(heads))
	var firstParents []*changelog.Revision
	for i, h := range heads {
		set := map[string]bool{}
		for _, p := range findParents(h, ch2pr) {
			set[p.Child] = true
			if i == 0 {
				firstParents = append(firstParents, p)
			}
		}
		parentSets[i] = set
	}

	var root *changelog.Revision
	for _, cand := range firstParents {
		shared := true
		for _, set := range parentSets[1:] {
			if !set[cand.Child] {
				shared = false
				break
			}
		}
		if shared {
			root = cand
			break
		}
	}

	first, err := c.decodeRevision(ctx, heads[0])
	if err != nil {
		return nil, err
	}
	rootCi := commit.Empty(c.sch)
	if root != nil {
		rootCi, err = c.decodeRevision(ctx, root)
		if err != nil {
			return nil, err
		}
	}
	for _, h := range heads[1:] {
		ci, err := c.decodeRevision(ctx, h)
		if err != nil {
			return nil, err
		}
		for pos := 0; pos < ci.Len(); pos++ {
			row := ci.At(pos)
			if first.Contains(row) || rootCi.Contains(row) {
				continue
			}
			first, err = first.Update(row)
			if err != nil {
				return nil, err
			}
		}
	}

	payload, err := first.Encode()
	if err != nil {
		return nil, err
	}
	parents := make([]string, len(heads))
	for i, h := range heads {
		parents[i] = h.Child
	}
	return c.cl.Commit(ctx, payload, parents)
}

func (c *Collection) decodeRevision(ctx context.Context, rev *changelog.Revision) (*commit.Commit, error) {
	payload, err := rev.Read(ctx)
	if err != nil {
		return nil, err
	}
	return commit.Decode(c.sch, payload)
}

// findParents walks the ancestor chain of rev, rev included, over the
// child -> revisions relation — an explicit-stack traversal like the
// changelog's own walk.
func findParents(rev *changelog.Revision, ch2pr map[string][]*changelog.Revision) []*changelog.Revision {
	var out []*changelog.Revision
	queue := append([]*changelog.Revision(nil), ch2pr[rev.Child]...)
	for len(queue) > 0 {
		r := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		out = append(out, r)
		queue = append(queue, ch2pr[r.Parent]...)
	}
	return out
}
