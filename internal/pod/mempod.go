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
	"fmt"
	"sort"
	"strings"
	"sync"
)

// node is one entry in a MemPOD's tree. A node is either a file (data set,
// isFile true) or a directory (children populated).
type node struct {
	mu       sync.Mutex
	children map[string]*node
	data     []byte
	isFile   bool
}

func newDirNode() *node {
	return &node{children: map[string]*node{}}
}

// MemPOD is an in-memory POD backed by a tree of nested maps. Multiple
// MemPOD values produced by Cd share the same underlying tree and, if
// bounded, the same generations tracker.
type MemPOD struct {
	root *node
	base string // cleaned path this view is rooted at, "" for tree root
	gen  *generations
}

// NewMemPOD returns an unbounded in-memory POD: nothing is ever evicted.
func NewMemPOD() *MemPOD {
	return &MemPOD{root: newDirNode()}
}

// NewBoundedMemPOD returns an in-memory POD with a byte-budget two
// generation LRU (see generations.go). Intended for use as the local side
// of a CachePOD, where eviction only drops a cached copy rather than the
// sole copy of the data.
func NewBoundedMemPOD(budget int) *MemPOD {
	return &MemPOD{root: newDirNode(), gen: newGenerations(budget)}
}

func (m *MemPOD) full(relpath string) string {
	return Join(m.base, relpath)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// walkTo navigates from root following parts, creating intermediate
// directories when create is true. Returns the final node and its parent
// directory + name, for callers that need to unlink it.
func walkTo(root *node, parts []string, create bool) (n, parent *node, name string, err error) {
	cur := root
	parent = nil
	name = ""
	for i, p := range parts {
		cur.mu.Lock()
		child, ok := cur.children[p]
		if !ok {
			if !create {
				cur.mu.Unlock()
				return nil, nil, "", ErrNotFound
			}
			child = newDirNode()
			cur.children[p] = child
		}
		parent = cur
		name = p
		cur.mu.Unlock()
		cur = child
		_ = i
	}
	return cur, parent, name, nil
}

func (m *MemPOD) Cd(relpath string) POD {
	return &MemPOD{root: m.root, base: m.full(relpath), gen: m.gen}
}

func (m *MemPOD) Read(ctx context.Context, relpath string) ([]byte, error) {
	parts := splitPath(m.full(relpath))
	n, _, _, err := walkTo(m.root, parts, false)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.isFile {
		return nil, ErrNotFound
	}
	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out, nil
}

func (m *MemPOD) Write(ctx context.Context, relpath string, data []byte, force bool) (int, bool, error) {
	full := m.full(relpath)
	parts := splitPath(full)
	if len(parts) == 0 {
		return 0, false, fmt.Errorf("pod: cannot write to root")
	}
	dirParts, leaf := parts[:len(parts)-1], parts[len(parts)-1]
	dir, _, _, err := walkTo(m.root, dirParts, true)
	if err != nil {
		return 0, false, err
	}
	dir.mu.Lock()
	n, ok := dir.children[leaf]
	if !ok {
		n = &node{}
		dir.children[leaf] = n
	}
	dir.mu.Unlock()

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.isFile && !force {
		// Content-addressed keys never legitimately collide with
		// different bytes; no-overwrite is an unconditional skip.
		return 0, false, nil
	}
	n.isFile = true
	n.data = append([]byte(nil), data...)
	if m.gen != nil {
		evicted := m.gen.touch(full, len(data))
		for _, k := range evicted {
			m.evict(k)
		}
	}
	return len(data), true, nil
}

// evict clears a file node's bytes without removing it from its parent's
// directory listing: Ls still reports the name, while Walk and IsFile no
// longer report the file and Read returns ErrNotFound, so a CachePOD
// re-fetches it from its remote side.
func (m *MemPOD) evict(full string) {
	n, _, _, err := walkTo(m.root, splitPath(full), false)
	if err != nil {
		return
	}
	n.mu.Lock()
	n.data = nil
	n.isFile = false
	n.mu.Unlock()
}

func (m *MemPOD) Ls(ctx context.Context, relpath string, missingOK bool) ([]string, error) {
	parts := splitPath(m.full(relpath))
	n, _, _, err := walkTo(m.root, parts, false)
	if err != nil {
		if missingOK {
			return nil, nil
		}
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.isFile {
		return nil, ErrNotDir
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemPOD) Walk(ctx context.Context, maxDepth int) ([]string, error) {
	root, _, _, err := walkTo(m.root, splitPath(m.base), false)
	if err != nil {
		return nil, nil
	}
	var out []string
	var rec func(n *node, prefix string, depth int)
	rec = func(n *node, prefix string, depth int) {
		n.mu.Lock()
		isFile := n.isFile
		var children map[string]*node
		if !isFile {
			children = make(map[string]*node, len(n.children))
			for k, v := range n.children {
				children[k] = v
			}
		}
		n.mu.Unlock()
		if isFile {
			out = append(out, prefix)
			return
		}
		if maxDepth > 0 && depth >= maxDepth {
			return
		}
		names := make([]string, 0, len(children))
		for name := range children {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rec(children[name], Join(prefix, name), depth+1)
		}
	}
	rec(root, "", 0)
	return out, nil
}

func (m *MemPOD) Rm(ctx context.Context, relpath string, recursive bool) error {
	full := m.full(relpath)
	parts := splitPath(full)
	if len(parts) == 0 {
		return fmt.Errorf("pod: cannot remove root")
	}
	n, parent, name, err := walkTo(m.root, parts, false)
	if err != nil {
		return err
	}
	n.mu.Lock()
	isFile := n.isFile
	numChildren := len(n.children)
	n.mu.Unlock()
	if !isFile && numChildren > 0 && !recursive {
		return fmt.Errorf("pod: %s is a non-empty directory", relpath)
	}
	parent.mu.Lock()
	delete(parent.children, name)
	parent.mu.Unlock()
	if m.gen != nil {
		m.gen.forget(full)
	}
	return nil
}

func (m *MemPOD) Mv(ctx context.Context, from, to string) error {
	data, err := m.Read(ctx, from)
	if err != nil {
		return err
	}
	if _, _, err := m.Write(ctx, to, data, true); err != nil {
		return err
	}
	return m.Rm(ctx, from, true)
}

func (m *MemPOD) IsFile(ctx context.Context, relpath string) bool {
	n, _, _, err := walkTo(m.root, splitPath(m.full(relpath)), false)
	if err != nil {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.isFile
}

func (m *MemPOD) IsDir(ctx context.Context, relpath string) bool {
	n, _, _, err := walkTo(m.root, splitPath(m.full(relpath)), false)
	if err != nil {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.isFile
}
