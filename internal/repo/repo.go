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

// Package repo implements the top-level entry point: a Registry mapping
// collection labels to their meta (changelog path, schema), backed by one
// POD shared by every collection's changelog and all segment blobs.
package repo

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/launix-de/lakota/internal/changelog"
	"github.com/launix-de/lakota/internal/collection"
	"github.com/launix-de/lakota/internal/lakotalog"
	"github.com/launix-de/lakota/internal/pod"
	"github.com/launix-de/lakota/internal/registry"
	"github.com/launix-de/lakota/internal/schema"
)

// Repo holds the collection registry. Its changelog lives at the hashed
// path of the phi id, so it can never collide with a collection changelog
// (those live at the hashed path of a real SHA-1).
type Repo struct {
	pod pod.POD
	reg *registry.Registry
}

// collMeta is the msgpack blob stored per collection label.
type collMeta struct {
	Path    string `msgpack:"path"`
	Catalog string `msgpack:"catalog"`
	Schema  string `msgpack:"schema"`
	Kind    string `msgpack:"kind"`
}

// New builds a Repo over p.
func New(p pod.POD) *Repo {
	return &Repo{pod: p, reg: registry.New(p, pod.HashedPath(changelog.Phi, 2))}
}

// FromURI builds a Repo from a backend URI ("file://...", "memory://",
// "s3://bucket/prefix", composable with "+" for cache overlays).
func FromURI(uri string) (*Repo, error) {
	p, err := pod.FromURI(uri)
	if err != nil {
		return nil, err
	}
	return New(p), nil
}

// Pod returns the repo's root POD — also the segment root every
// collection writes its content-addressed blobs into.
func (r *Repo) Pod() pod.POD { return r.pod }

// Registry returns the collection registry, mainly for gc's active-set
// scan.
func (r *Repo) Registry() *registry.Registry { return r.reg }

// Refresh drops cached changelog listings.
func (r *Repo) Refresh() { r.reg.Refresh() }

// collectionPaths derives the changelog and catalog locations for label:
// hashed paths of sha1(label) and sha1(label + "\x00registry").
func collectionPaths(label string) (path, catalog string) {
	sum := sha1.Sum([]byte(label))
	path = pod.HashedPath(hex.EncodeToString(sum[:]), 2)
	sum = sha1.Sum([]byte(label + "\x00registry"))
	catalog = pod.HashedPath(hex.EncodeToString(sum[:]), 2)
	return path, catalog
}

// CreateCollection registers label with the given schema and returns the
// new collection. With raiseIfExists, an existing label fails with
// registry.ErrAlreadyExists.
func (r *Repo) CreateCollection(ctx context.Context, label string, sch *schema.Schema, raiseIfExists bool) (*collection.Collection, error) {
	if err := registry.CheckLabel(label); err != nil {
		return nil, err
	}
	path, catalog := collectionPaths(label)
	meta, err := msgpack.Marshal(collMeta{
		Path:    path,
		Catalog: catalog,
		Schema:  sch.Dumps(),
		Kind:    string(sch.Kind),
	})
	if err != nil {
		return nil, err
	}
	if err := r.reg.Create(ctx, []string{label}, [][]byte{meta}, raiseIfExists); err != nil {
		return nil, err
	}
	lakotalog.Infof("create collection %q", label)
	return collection.New(label, sch, r.pod, path, catalog), nil
}

// Collection returns the collection registered under label, or a
// registry.ErrNotFound-wrapping error.
func (r *Repo) Collection(ctx context.Context, label string) (*collection.Collection, error) {
	blob, err := r.reg.Get(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("repo: collection %q: %w", label, err)
	}
	var meta collMeta
	if err := msgpack.Unmarshal(blob, &meta); err != nil {
		return nil, fmt.Errorf("repo: collection %q: corrupt meta: %w", label, err)
	}
	sch, err := schema.Loads(schema.Kind(meta.Kind), meta.Schema)
	if err != nil {
		return nil, fmt.Errorf("repo: collection %q: %w", label, err)
	}
	return collection.New(label, sch, r.pod, meta.Path, meta.Catalog), nil
}

// Ls returns all collection labels, sorted.
func (r *Repo) Ls(ctx context.Context) ([]string, error) {
	return r.reg.Ls(ctx)
}

// Collections reifies every registered collection.
func (r *Repo) Collections(ctx context.Context) ([]*collection.Collection, error) {
	labels, err := r.Ls(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*collection.Collection, 0, len(labels))
	for _, label := range labels {
		coll, err := r.Collection(ctx, label)
		if err != nil {
			return nil, err
		}
		out = append(out, coll)
	}
	return out, nil
}

// Delete unregisters the given collections. Their changelog files and
// segment blobs stay behind until gc.
func (r *Repo) Delete(ctx context.Context, labels ...string) error {
	return r.reg.Delete(ctx, labels...)
}

// Squash collapses the registry's own history into a single root commit.
// Collections are squashed individually via Collection.Squash.
func (r *Repo) Squash(ctx context.Context) error {
	return r.reg.Squash(ctx)
}

// Push is Pull with the roles swapped.
func (r *Repo) Push(ctx context.Context, remote *Repo, labels ...string) error {
	return remote.Pull(ctx, r, labels...)
}

// Pull copies remote's registry and the named collections (all of them
// when labels is empty) into r. A collection present on both sides with a
// different schema aborts with collection.ErrSchemaMismatch.
func (r *Repo) Pull(ctx context.Context, remote *Repo, labels ...string) error {
	if err := r.reg.Pull(ctx, remote.reg); err != nil {
		return err
	}
	r.Refresh()
	if len(labels) == 0 {
		var err error
		labels, err = remote.Ls(ctx)
		if err != nil {
			return err
		}
	}
	for _, label := range labels {
		lakotalog.Infof("pull collection %q", label)
		rcoll, err := remote.Collection(ctx, label)
		if err != nil {
			return err
		}
		lcoll, err := r.Collection(ctx, label)
		if errors.Is(err, registry.ErrNotFound) {
			// Not registered locally yet; the registry pull above should
			// have brought the entry over, so this is a stale cache.
			r.Refresh()
			lcoll, err = r.Collection(ctx, label)
		}
		if err != nil {
			return err
		}
		if err := lcoll.Pull(ctx, rcoll); err != nil {
			return err
		}
	}
	return nil
}
