//go:build ceph

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
	"sort"
	"strings"
	"sync"

	"github.com/ceph/go-ceph/rados"
)

// CephConfig names the cluster config file and pool a CephPOD talks to,
// trimmed to what a flat blob store needs.
type CephConfig struct {
	ConfigFile string
	Pool       string
	Prefix     string
	User       string // defaults to "client.admin" when empty
}

// CephPOD stores keys as RADOS objects in a single pool. Like S3POD, it is
// flat: Ls/Walk list all object names under a prefix and group them by "/"
// to approximate directories. Only compiled with the "ceph" build tag —
// librados is a cgo dependency many builds don't want.
type CephPOD struct {
	cfg   CephConfig
	mu    sync.Mutex
	conn  *rados.Conn
	ioctx *rados.IOContext
}

func NewCephPOD(cfg CephConfig) *CephPOD {
	return &CephPOD{cfg: cfg}
}

func (p *CephPOD) ensure() (*rados.IOContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ioctx != nil {
		return p.ioctx, nil
	}
	user := p.cfg.User
	if user == "" {
		user = "client.admin"
	}
	conn, err := rados.NewConnWithUser(user)
	if err != nil {
		return nil, err
	}
	if err := conn.ReadConfigFile(p.cfg.ConfigFile); err != nil {
		return nil, err
	}
	if err := conn.Connect(); err != nil {
		return nil, err
	}
	ioctx, err := conn.OpenIOContext(p.cfg.Pool)
	if err != nil {
		conn.Shutdown()
		return nil, err
	}
	p.conn = conn
	p.ioctx = ioctx
	return ioctx, nil
}

func (p *CephPOD) oid(relpath string) string {
	return Join(p.cfg.Prefix, relpath)
}

func (p *CephPOD) Cd(relpath string) POD {
	cfg := p.cfg
	cfg.Prefix = Join(cfg.Prefix, relpath)
	return &CephPOD{cfg: cfg, conn: p.conn, ioctx: p.ioctx}
}

func (p *CephPOD) Read(ctx context.Context, relpath string) ([]byte, error) {
	ioctx, err := p.ensure()
	if err != nil {
		return nil, err
	}
	stat, err := ioctx.Stat(p.oid(relpath))
	if err != nil {
		if errors.Is(err, rados.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	buf := make([]byte, stat.Size)
	n, err := ioctx.Read(p.oid(relpath), buf, 0)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (p *CephPOD) Write(ctx context.Context, relpath string, data []byte, force bool) (int, bool, error) {
	ioctx, err := p.ensure()
	if err != nil {
		return 0, false, err
	}
	if !force {
		if _, err := ioctx.Stat(p.oid(relpath)); err == nil {
			return 0, false, nil
		}
	}
	if err := ioctx.WriteFull(p.oid(relpath), data); err != nil {
		return 0, false, err
	}
	return len(data), true, nil
}

func (p *CephPOD) Ls(ctx context.Context, relpath string, missingOK bool) ([]string, error) {
	ioctx, err := p.ensure()
	if err != nil {
		return nil, err
	}
	prefix := p.oid(relpath)
	if prefix != "" {
		prefix += "/"
	}
	seen := map[string]bool{}
	iter, err := ioctx.Iter()
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	for iter.Next() {
		name := iter.Value()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[:i]
		}
		if rest != "" {
			seen[rest] = true
		}
	}
	if len(seen) == 0 && !missingOK {
		return nil, ErrNotFound
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func (p *CephPOD) Walk(ctx context.Context, maxDepth int) ([]string, error) {
	ioctx, err := p.ensure()
	if err != nil {
		return nil, err
	}
	prefix := p.oid("")
	if prefix != "" {
		prefix += "/"
	}
	iter, err := ioctx.Iter()
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	for iter.Next() {
		name := iter.Value()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rel := strings.TrimPrefix(name, prefix)
		if maxDepth > 0 && len(splitPath(rel)) > maxDepth {
			continue
		}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}

func (p *CephPOD) Rm(ctx context.Context, relpath string, recursive bool) error {
	ioctx, err := p.ensure()
	if err != nil {
		return err
	}
	if recursive {
		names, err := p.Walk(ctx, 0)
		if err != nil {
			return err
		}
		for _, n := range names {
			if n != relpath && !strings.HasPrefix(n, relpath+"/") {
				continue
			}
			if err := ioctx.Delete(p.oid(n)); err != nil && !errors.Is(err, rados.ErrNotFound) {
				return err
			}
		}
		return nil
	}
	err = ioctx.Delete(p.oid(relpath))
	if errors.Is(err, rados.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (p *CephPOD) Mv(ctx context.Context, from, to string) error {
	data, err := p.Read(ctx, from)
	if err != nil {
		return err
	}
	if _, _, err := p.Write(ctx, to, data, true); err != nil {
		return err
	}
	return p.Rm(ctx, from, false)
}

func (p *CephPOD) IsFile(ctx context.Context, relpath string) bool {
	ioctx, err := p.ensure()
	if err != nil {
		return false
	}
	_, err = ioctx.Stat(p.oid(relpath))
	return err == nil
}

func (p *CephPOD) IsDir(ctx context.Context, relpath string) bool {
	names, err := p.Ls(ctx, relpath, true)
	return err == nil && len(names) > 0
}
