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

// Package registry implements the hierarchical label -> meta KV layer both
// Repo (collection-label -> {path, schema}) and Collection (series-label ->
// {schema}) are built on: a KVSeries over the canonical "label str*,
// meta object" schema, stored in its own changelog.
package registry

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/launix-de/lakota/internal/changelog"
	"github.com/launix-de/lakota/internal/codec"
	"github.com/launix-de/lakota/internal/commit"
	"github.com/launix-de/lakota/internal/frame"
	"github.com/launix-de/lakota/internal/pod"
	"github.com/launix-de/lakota/internal/pool"
	"github.com/launix-de/lakota/internal/schema"
	"github.com/launix-de/lakota/internal/series"
)

// ErrNotFound is returned when a label has no entry.
var ErrNotFound = errors.New("registry: not found")

// ErrAlreadyExists is returned by Create with raiseIfExists when the label
// is already present.
var ErrAlreadyExists = errors.New("registry: already exists")

// ErrInvalidLabel is returned for labels outside [A-Za-z0-9._-]+.
var ErrInvalidLabel = errors.New("registry: invalid label")

var labelRe = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// CheckLabel validates a collection or series label against the accepted
// character set.
func CheckLabel(label string) error {
	if !labelRe.MatchString(label) {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return nil
}

// seriesLabel is the reserved label the registry's own KVSeries rows live
// under inside its changelog.
const seriesLabel = ":registry:"

// Registry maps labels to opaque msgpack meta blobs through a KVSeries
// with last-writer-wins semantics, so concurrent creates converge the same
// way concurrent series writes do.
type Registry struct {
	pod pod.POD // segment root, shared with the owning repo
	cl  *changelog.Changelog
	sch *schema.Schema
	kv  *series.KVSeries
}

// New builds a Registry whose changelog lives at path under rootPod and
// whose segment blobs go to rootPod itself.
func New(rootPod pod.POD, path string) *Registry {
	sch := schema.KV(schema.SchemaColumn{
		Name:  "meta",
		DType: codec.Object,
		Codec: codec.Codec{DType: codec.Object, Pipeline: []string{"msgpack"}},
	})
	r := &Registry{
		pod: rootPod,
		cl:  changelog.New(rootPod.Cd(path)),
		sch: sch,
	}
	r.kv = series.NewKV(r, seriesLabel)
	return r
}

// Schema, SegmentPod and Changelog satisfy series.CollectionHandle so the
// registry's KVSeries can write through the same machinery data series use.
func (r *Registry) Schema() *schema.Schema          { return r.sch }
func (r *Registry) SegmentPod() pod.POD             { return r.pod }
func (r *Registry) Changelog() *changelog.Changelog { return r.cl }

// Refresh drops the cached changelog listing so the next read observes
// concurrent writers.
func (r *Registry) Refresh() { r.cl.Refresh() }

// Create registers metas[i] under labels[i]. With raiseIfExists, a label
// that is already present fails with ErrAlreadyExists before anything is
// written; otherwise existing entries are overwritten (last writer wins).
func (r *Registry) Create(ctx context.Context, labels []string, metas [][]byte, raiseIfExists bool) error {
	if len(labels) != len(metas) {
		return fmt.Errorf("registry: %d labels but %d metas", len(labels), len(metas))
	}
	for _, label := range labels {
		if err := CheckLabel(label); err != nil {
			return err
		}
	}
	if raiseIfExists {
		for _, label := range labels {
			if _, err := r.Get(ctx, label); err == nil {
				return fmt.Errorf("%w: %q", ErrAlreadyExists, label)
			} else if !errors.Is(err, ErrNotFound) {
				return err
			}
		}
	}

	// A KVSeries write wants sorted input.
	idx := make([]int, len(labels))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return labels[idx[a]] < labels[idx[b]] })
	sorted := codec.NewArray(codec.String, len(labels))
	meta := codec.NewArray(codec.Object, len(labels))
	for i, j := range idx {
		sorted.Str[i] = labels[j]
		meta.Obj[i] = metas[j]
	}
	fr, err := frame.New(r.sch, map[string]codec.Array{"label": sorted, "meta": meta})
	if err != nil {
		return err
	}
	_, err = r.kv.Write(ctx, fr, series.WriteOptions{})
	return err
}

// Search reads the registry's current full frame, optionally narrowed to
// one label.
func (r *Registry) Search(ctx context.Context, label string) (*frame.Frame, error) {
	opts := series.ReadOptions{Closed: frame.ClosedBoth}
	if label != "" {
		opts.Start = frame.Key{label}
		opts.Stop = frame.Key{label}
	}
	segs, err := r.kv.Read(ctx, opts)
	if err != nil {
		return nil, err
	}
	return series.FrameFromSegments(ctx, r.sch, segs, 0, 0, nil)
}

// Get returns the meta blob stored under label, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, label string) ([]byte, error) {
	fr, err := r.Search(ctx, label)
	if err != nil {
		return nil, err
	}
	if fr.Len() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, label)
	}
	meta, _ := fr.Column("meta")
	return meta.Obj[fr.Len()-1], nil
}

// Ls returns all registered labels, sorted.
func (r *Registry) Ls(ctx context.Context) ([]string, error) {
	fr, err := r.Search(ctx, "")
	if err != nil {
		return nil, err
	}
	col, _ := fr.Column("label")
	return append([]string(nil), col.Str...), nil
}

// Delete removes the given labels by re-writing the surviving entries onto
// a fresh root commit. The deleted labels' segments stay on disk until
// gc.
func (r *Registry) Delete(ctx context.Context, labels ...string) error {
	if len(labels) == 0 {
		return nil
	}
	fr, err := r.Search(ctx, "")
	if err != nil {
		return err
	}
	drop := make(map[string]bool, len(labels))
	for _, l := range labels {
		drop[l] = true
	}
	col, _ := fr.Column("label")
	keep := make([]bool, fr.Len())
	kept := 0
	for i, l := range col.Str {
		keep[i] = !drop[l]
		if keep[i] {
			kept++
		}
	}
	if kept == fr.Len() {
		return nil
	}
	if kept == 0 {
		return r.commitEmpty(ctx)
	}
	_, err = r.kv.Write(ctx, fr.Mask(keep), series.WriteOptions{Root: true})
	return err
}

// commitEmpty writes a zero-row root commit, the representation of an
// emptied-out registry.
func (r *Registry) commitEmpty(ctx context.Context) error {
	payload, err := commit.Empty(r.sch).Encode()
	if err != nil {
		return err
	}
	_, err = r.cl.Commit(ctx, payload, []string{changelog.Phi})
	return err
}

// Digests returns every segment digest referenced anywhere in the
// registry's history — its contribution to gc's active set.
func (r *Registry) Digests(ctx context.Context) ([]string, error) {
	return ChangelogDigests(ctx, r.cl, r.sch)
}

// Squash re-writes the current registry state as a single root commit and
// drops all superseded history files.
func (r *Registry) Squash(ctx context.Context) error {
	fr, err := r.Search(ctx, "")
	if err != nil {
		return err
	}
	if fr.Len() == 0 {
		return nil
	}
	rev, err := r.kv.Write(ctx, fr, series.WriteOptions{Root: true})
	if err != nil {
		return err
	}
	var skip []string
	if rev != nil {
		skip = append(skip, rev.Path())
	}
	return r.cl.Truncate(ctx, skip...)
}

// Pull copies remote's commit files and any segment blobs they reference
// that are missing locally.
func (r *Registry) Pull(ctx context.Context, remote *Registry) error {
	before, err := r.Digests(ctx)
	if err != nil {
		return err
	}
	if _, err := r.cl.Pull(ctx, remote.cl); err != nil {
		return err
	}
	after, err := r.Digests(ctx)
	if err != nil {
		return err
	}
	return SyncSegments(ctx, r.pod, remote.pod, missingDigests(before, after))
}

// ChangelogDigests decodes every revision of cl against s and unions all
// per-column digests — the building block of gc's active-set scan, shared
// by Registry and Collection.
func ChangelogDigests(ctx context.Context, cl *changelog.Changelog, s *schema.Schema) ([]string, error) {
	revs, err := cl.Log(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, rev := range revs {
		payload, err := rev.Read(ctx)
		if err != nil {
			return nil, err
		}
		ci, err := commit.Decode(s, payload)
		if err != nil {
			return nil, err
		}
		for _, col := range s.Columns {
			for _, d := range ci.Digest[col.Name] {
				if d != "" && !seen[d] {
					seen[d] = true
					out = append(out, d)
				}
			}
		}
	}
	return out, nil
}

// SyncSegments copies the hashed-path blob for each digest from remote to
// local, skipping blobs already present. Reads run through the worker
// pool since they dominate pull latency.
func SyncSegments(ctx context.Context, local, remote pod.POD, digests []string) error {
	var tasks []func(context.Context) error
	for _, digest := range digests {
		digest := digest
		tasks = append(tasks, func(ctx context.Context) error {
			dir, filename := pod.SplitHashedPath(digest, 2)
			if local.Cd(dir).IsFile(ctx, filename) {
				return nil
			}
			data, err := remote.Cd(dir).Read(ctx, filename)
			if err != nil {
				return fmt.Errorf("registry: sync segment %s: %w", digest, err)
			}
			_, _, err = local.Cd(dir).Write(ctx, filename, data, false)
			return err
		})
	}
	return pool.New(0).Go(ctx, tasks...)
}

func missingDigests(before, after []string) []string {
	have := make(map[string]bool, len(before))
	for _, d := range before {
		have[d] = true
	}
	var out []string
	for _, d := range after {
		if !have[d] {
			out = append(out, d)
		}
	}
	return out
}
