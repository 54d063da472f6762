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

// Package pod defines the flat blob-store abstraction every lakota backend
// implements: local filesystem, in-memory, S3, Ceph/RADOS, and a
// local+remote caching overlay.
package pod

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read, and by Rm/Mv when the source key is
// absent.
var ErrNotFound = errors.New("pod: not found")

// ErrNotDir is returned by MemPOD.Ls when relpath names a file, whatever
// missingOK is.
var ErrNotDir = errors.New("pod: not a directory")

// POD is an abstract blob store. Paths are '/'-separated and relative to
// the POD's own root; Cd narrows that root.
//
// write is idempotent by default: writing a key that already exists is a
// no-op that succeeds and reports wrote=false, whatever bytes were passed,
// unless force is set.
type POD interface {
	// Cd returns a POD rooted at relpath under the receiver. relpath need
	// not exist yet.
	Cd(relpath string) POD

	// Read returns the bytes stored at relpath, or ErrNotFound.
	Read(ctx context.Context, relpath string) ([]byte, error)

	// Write stores data at relpath. If the key already exists and force
	// is false, Write returns (0, false, nil) without modifying anything
	// — this is the no-op idempotent case, not an error; callers only
	// ever write content-addressed keys, so an existing key already
	// holds the same bytes. If force is true, existing content is
	// replaced unconditionally.
	Write(ctx context.Context, relpath string, data []byte, force bool) (n int, wrote bool, err error)

	// Ls lists the immediate children of relpath. If relpath does not
	// exist and missingOK is true, Ls returns (nil, nil).
	Ls(ctx context.Context, relpath string, missingOK bool) ([]string, error)

	// Walk returns every file path under the POD root, depth-first.
	// maxDepth <= 0 means unlimited.
	Walk(ctx context.Context, maxDepth int) ([]string, error)

	// Rm removes relpath. If recursive is false and relpath is a
	// non-empty directory, Rm fails.
	Rm(ctx context.Context, relpath string, recursive bool) error

	// Mv renames from to to within the same POD.
	Mv(ctx context.Context, from, to string) error

	IsFile(ctx context.Context, relpath string) bool
	IsDir(ctx context.Context, relpath string) bool
}
