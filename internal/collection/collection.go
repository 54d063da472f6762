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

// Package collection implements the schema-scoped group of series
// sharing one changelog: series construction, batched writes, label
// listing and deletion, squash, pack, merge of concurrent branches, and
// pulls between two collections.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/launix-de/lakota/internal/changelog"
	"github.com/launix-de/lakota/internal/commit"
	"github.com/launix-de/lakota/internal/frame"
	"github.com/launix-de/lakota/internal/lakotalog"
	"github.com/launix-de/lakota/internal/pod"
	"github.com/launix-de/lakota/internal/registry"
	"github.com/launix-de/lakota/internal/schema"
	"github.com/launix-de/lakota/internal/series"
)

// ErrSchemaMismatch is returned by Pull when the remote collection's schema
// differs from the local one.
var ErrSchemaMismatch = errors.New("collection: schema mismatch")

// squashPageSize bounds the frames squash re-writes, so a squashed series
// lands as a few large segments instead of one unbounded allocation.
const squashPageSize = 500_000

// Collection owns a changelog and a segment POD root; its commits
// enumerate rows across all its series, one row per (series label,
// contiguous index range). The catalog registry tracks which series have
// been explicitly created and stores their schema dump.
type Collection struct {
	label   string
	sch     *schema.Schema
	pod     pod.POD
	cl      *changelog.Changelog
	catalog *registry.Registry
}

// New builds a Collection over rootPod: its commit files live under path,
// its series catalog under catalogPath, and its segment blobs under
// rootPod itself (hashed digest paths).
func New(label string, sch *schema.Schema, rootPod pod.POD, path, catalogPath string) *Collection {
	return &Collection{
		label:   label,
		sch:     sch,
		pod:     rootPod,
		cl:      changelog.New(rootPod.Cd(path)),
		catalog: registry.New(rootPod, catalogPath),
	}
}

func (c *Collection) Label() string { return c.label }

// Schema, SegmentPod and Changelog satisfy series.CollectionHandle.
func (c *Collection) Schema() *schema.Schema          { return c.sch }
func (c *Collection) SegmentPod() pod.POD             { return c.pod }
func (c *Collection) Changelog() *changelog.Changelog { return c.cl }

// Refresh drops cached changelog listings so subsequent reads observe
// concurrent writers.
func (c *Collection) Refresh() {
	c.cl.Refresh()
	c.catalog.Refresh()
}

// Series returns the plain (range-overwrite) series named label.
func (c *Collection) Series(label string) *series.Series {
	return series.New(c, label)
}

// KV returns the last-writer-wins variant of label.
func (c *Collection) KV(label string) *series.KVSeries {
	return series.NewKV(c, label)
}

// Write dispatches on the collection's schema kind: kv schemas get the
// merge-on-index write semantics, everything else the plain range
// overwrite.
func (c *Collection) Write(ctx context.Context, label string, fr *frame.Frame, opts series.WriteOptions) (*changelog.Revision, error) {
	if err := registry.CheckLabel(label); err != nil {
		return nil, err
	}
	if c.sch.Kind == schema.KindKV {
		return c.KV(label).Write(ctx, fr, opts)
	}
	return c.Series(label).Write(ctx, fr, opts)
}

// Read reconstructs label's frame for opts.
func (c *Collection) Read(ctx context.Context, label string, opts series.ReadOptions) (*frame.Frame, error) {
	segs, err := c.Series(label).Read(ctx, opts)
	if err != nil {
		return nil, err
	}
	return series.FrameFromSegments(ctx, c.sch, segs, opts.Limit, opts.Offset, opts.Select)
}

// CreateSeries registers labels in the collection's catalog, storing the
// collection schema dump as each entry's meta. Writing to an unregistered
// series still works (series exist implicitly once a commit names them);
// the catalog records intent and feeds schema checks on pull.
func (c *Collection) CreateSeries(ctx context.Context, raiseIfExists bool, labels ...string) error {
	metas := make([][]byte, len(labels))
	blob, err := seriesMeta(c.sch)
	if err != nil {
		return err
	}
	for i := range metas {
		metas[i] = blob
	}
	return c.catalog.Create(ctx, labels, metas, raiseIfExists)
}

// Ls returns all series labels: the union of the catalog and the labels
// the current leaf commit actually names, sorted.
func (c *Collection) Ls(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	catalog, err := c.catalog.Ls(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range catalog {
		seen[l] = true
	}
	leaf, err := c.cl.Leaf(ctx)
	if err != nil {
		return nil, err
	}
	if leaf != nil {
		payload, err := leaf.Read(ctx)
		if err != nil {
			return nil, err
		}
		ci, err := commit.Decode(c.sch, payload)
		if err != nil {
			return nil, err
		}
		for _, l := range ci.Label {
			seen[l] = true
		}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out, nil
}

// Delete removes the given series: their rows disappear from the new leaf
// commit and their catalog entries are dropped. Segment blobs stay on disk
// until gc.
func (c *Collection) Delete(ctx context.Context, labels ...string) error {
	if len(labels) == 0 {
		return nil
	}
	leaf, err := c.cl.Leaf(ctx)
	if err != nil {
		return err
	}
	if leaf != nil {
		payload, err := leaf.Read(ctx)
		if err != nil {
			return err
		}
		ci, err := commit.Decode(c.sch, payload)
		if err != nil {
			return err
		}
		pruned := ci.DeleteLabels(labels)
		if pruned.Len() != ci.Len() {
			out, err := pruned.Encode()
			if err != nil {
				return err
			}
			if _, err := c.cl.Commit(ctx, out, []string{leaf.Child}); err != nil {
				return err
			}
		}
	}
	if err := c.catalog.Delete(ctx, labels...); err != nil && !errors.Is(err, registry.ErrNotFound) {
		return err
	}
	return nil
}

// Truncate drops all rows of one series while keeping it registered.
func (c *Collection) Truncate(ctx context.Context, label string) error {
	leaf, err := c.cl.Leaf(ctx)
	if err != nil || leaf == nil {
		return err
	}
	payload, err := leaf.Read(ctx)
	if err != nil {
		return err
	}
	ci, err := commit.Decode(c.sch, payload)
	if err != nil {
		return err
	}
	pruned := ci.DeleteLabels([]string{label})
	if pruned.Len() == ci.Len() {
		return nil
	}
	out, err := pruned.Encode()
	if err != nil {
		return err
	}
	_, err = c.cl.Commit(ctx, out, []string{leaf.Child})
	return err
}

// Pack folds the collection's active commit line into one root commit,
// leaving commits newer than olderThan untouched.
func (c *Collection) Pack(ctx context.Context, olderThan time.Duration) error {
	return c.cl.Pack(ctx, olderThan)
}

// Squash re-writes every series' current content onto a single fresh root
// commit and removes all superseded history, then squashes the catalog the
// same way. Data survives; history does not.
func (c *Collection) Squash(ctx context.Context) error {
	labels, err := c.Ls(ctx)
	if err != nil {
		return err
	}
	batch := c.Batch(true)
	for _, label := range labels {
		lakotalog.Infof("squash %s/%s", c.label, label)
		for offset := 0; ; offset += squashPageSize {
			fr, err := c.Read(ctx, label, series.ReadOptions{Closed: frame.ClosedBoth, Limit: squashPageSize, Offset: offset})
			if err != nil {
				return err
			}
			if fr.Len() == 0 {
				break
			}
			if _, err := c.Write(ctx, label, fr, series.WriteOptions{Batch: batch}); err != nil {
				return err
			}
			if fr.Len() < squashPageSize {
				break
			}
		}
	}
	if err := batch.Flush(ctx); err != nil {
		return err
	}
	var skip []string
	for _, rev := range batch.Revs {
		skip = append(skip, rev.Path())
	}
	if len(skip) > 0 {
		if err := c.cl.Truncate(ctx, skip...); err != nil {
			return err
		}
	}
	return c.catalog.Squash(ctx)
}

// Push is Pull with the roles swapped.
func (c *Collection) Push(ctx context.Context, remote *Collection) error {
	return remote.Pull(ctx, c)
}

// Pull copies remote's commit files and any segment blobs they reference
// that are missing locally. Schemas must match exactly.
func (c *Collection) Pull(ctx context.Context, remote *Collection) error {
	if !c.sch.Equal(remote.sch) {
		return fmt.Errorf("%w: collection %q", ErrSchemaMismatch, c.label)
	}
	if err := c.catalog.Pull(ctx, remote.catalog); err != nil {
		return err
	}
	before, err := registry.ChangelogDigests(ctx, c.cl, c.sch)
	if err != nil {
		return err
	}
	if _, err := c.cl.Pull(ctx, remote.cl); err != nil {
		return err
	}
	after, err := registry.ChangelogDigests(ctx, c.cl, c.sch)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(before))
	for _, d := range before {
		have[d] = true
	}
	var missing []string
	for _, d := range after {
		if !have[d] {
			missing = append(missing, d)
		}
	}
	return registry.SyncSegments(ctx, c.pod, remote.pod, missing)
}

// Digests returns every segment digest referenced anywhere in the
// collection's history, catalog included — its contribution to gc's
// active set.
func (c *Collection) Digests(ctx context.Context) ([]string, error) {
	data, err := registry.ChangelogDigests(ctx, c.cl, c.sch)
	if err != nil {
		return nil, err
	}
	catalog, err := c.catalog.Digests(ctx)
	if err != nil {
		return nil, err
	}
	return append(data, catalog...), nil
}

// seriesMeta renders the msgpack meta blob a catalog entry stores.
func seriesMeta(s *schema.Schema) ([]byte, error) {
	return encodeMeta(map[string]string{"schema": s.Dumps(), "kind": string(s.Kind)})
}

// SeriesSchema returns the schema recorded for label in the catalog, or
// registry.ErrNotFound for a series that was never explicitly created.
func (c *Collection) SeriesSchema(ctx context.Context, label string) (*schema.Schema, error) {
	blob, err := c.catalog.Get(ctx, label)
	if err != nil {
		return nil, err
	}
	m, err := decodeMeta(blob)
	if err != nil {
		return nil, err
	}
	return schema.Loads(schema.Kind(m["kind"]), m["schema"])
}
