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

// Package gc implements the garbage collector: union the digests
// reachable from every live commit of every collection (registry series
// included), walk the segment POD to its fixed hashed-path depth, and
// remove every blob no digest points at. Soft mode moves the blobs to an
// archive POD instead.
package gc

import (
	"context"
	"strings"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/launix-de/lakota/internal/lakotalog"
	"github.com/launix-de/lakota/internal/pod"
	"github.com/launix-de/lakota/internal/repo"
)

// walkDepth bounds the segment scan: hashed paths are always
// "aa/bb/<rest>", so blobs sit exactly three path elements deep, and
// commit files (one level further down, inside changelog directories)
// stay out of reach of the sweep.
const walkDepth = 3

// Options tunes one collection run.
type Options struct {
	// Archive, when set, selects soft mode: unreferenced blobs are copied
	// under a per-run directory in this POD before removal, instead of
	// being dropped outright.
	Archive pod.POD
}

// Run sweeps r's segment blobs and returns the number removed.
func Run(ctx context.Context, r *repo.Repo, opts Options) (int, error) {
	active, err := activeSet(ctx, r)
	if err != nil {
		return 0, err
	}

	var archive pod.POD
	if opts.Archive != nil {
		runID := uuid.NewString()
		archive = opts.Archive.Cd(runID)
		lakotalog.Infof("gc: archiving unreferenced segments under %s", runID)
	}

	root := r.Pod()
	paths, err := root.Walk(ctx, walkDepth)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, p := range paths {
		digest := strings.ReplaceAll(p, "/", "")
		if active.Has(digest) {
			continue
		}
		if archive != nil {
			data, err := root.Read(ctx, p)
			if err != nil {
				return count, err
			}
			if _, _, err := archive.Write(ctx, p, data, true); err != nil {
				return count, err
			}
		}
		if err := root.Rm(ctx, p, false); err != nil {
			return count, err
		}
		count++
	}
	lakotalog.Infof("gc: removed %d unreferenced segments", count)
	return count, nil
}

// activeSet unions every digest reachable from the registry and from each
// collection's full history into an ordered set.
func activeSet(ctx context.Context, r *repo.Repo) (*btree.BTreeG[string], error) {
	active := btree.NewG(8, func(a, b string) bool { return a < b })

	digests, err := r.Registry().Digests(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range digests {
		active.ReplaceOrInsert(d)
	}

	colls, err := r.Collections(ctx)
	if err != nil {
		return nil, err
	}
	for _, coll := range colls {
		digests, err := coll.Digests(ctx)
		if err != nil {
			return nil, err
		}
		for _, d := range digests {
			active.ReplaceOrInsert(d)
		}
	}
	return active, nil
}
