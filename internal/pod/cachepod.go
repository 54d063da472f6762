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

package pod

import (
	"context"
	"errors"
)

// CachePOD overlays a (typically bounded) local POD in front of a remote
// one: reads consult local first and fall through to remote, populating
// local on the way; writes go to both; listings and directory tests
// always come from remote, the authoritative side. The intended consumer
// of NewBoundedMemPOD's eviction.
type CachePOD struct {
	local  POD
	remote POD
}

// NewCachePOD builds a cache overlay. local is typically a bounded
// MemPOD or a FilePOD pointed at scratch space; remote is the
// authoritative backend (S3, Ceph, or another FilePOD).
func NewCachePOD(local, remote POD) *CachePOD {
	return &CachePOD{local: local, remote: remote}
}

func (c *CachePOD) Cd(relpath string) POD {
	return &CachePOD{local: c.local.Cd(relpath), remote: c.remote.Cd(relpath)}
}

func (c *CachePOD) Read(ctx context.Context, relpath string) ([]byte, error) {
	if data, err := c.local.Read(ctx, relpath); err == nil {
		return data, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	data, err := c.remote.Read(ctx, relpath)
	if err != nil {
		return nil, err
	}
	_, _, _ = c.local.Write(ctx, relpath, data, true)
	return data, nil
}

func (c *CachePOD) Write(ctx context.Context, relpath string, data []byte, force bool) (int, bool, error) {
	n, wrote, err := c.remote.Write(ctx, relpath, data, force)
	if err != nil {
		return 0, false, err
	}
	_, _, _ = c.local.Write(ctx, relpath, data, true)
	return n, wrote, nil
}

func (c *CachePOD) Ls(ctx context.Context, relpath string, missingOK bool) ([]string, error) {
	return c.remote.Ls(ctx, relpath, missingOK)
}

func (c *CachePOD) Walk(ctx context.Context, maxDepth int) ([]string, error) {
	return c.remote.Walk(ctx, maxDepth)
}

func (c *CachePOD) Rm(ctx context.Context, relpath string, recursive bool) error {
	if err := c.remote.Rm(ctx, relpath, recursive); err != nil {
		return err
	}
	_ = c.local.Rm(ctx, relpath, recursive)
	return nil
}

func (c *CachePOD) Mv(ctx context.Context, from, to string) error {
	if err := c.remote.Mv(ctx, from, to); err != nil {
		return err
	}
	_ = c.local.Mv(ctx, from, to)
	return nil
}

func (c *CachePOD) IsFile(ctx context.Context, relpath string) bool {
	return c.remote.IsFile(ctx, relpath)
}

func (c *CachePOD) IsDir(ctx context.Context, relpath string) bool {
	return c.remote.IsDir(ctx, relpath)
}
