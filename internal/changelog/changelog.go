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

// Package changelog implements the append-only, content-addressed commit
// tree at the heart of the engine: commit files named
// "<parent-id>.<child-id>", leaf discovery, history walking and pulls
// between two changelogs.
package changelog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/launix-de/lakota/internal/lakotalog"
	"github.com/launix-de/lakota/internal/pod"
)

const (
	hextimeLen = 11
	hashLen    = 40
)

// Phi is the sentinel root parent id.
var Phi = strings.Repeat("0", hextimeLen) + "-" + strings.Repeat("0", hashLen)

// Hexdigest returns the lowercase hex SHA-1 of the concatenation of data.
func Hexdigest(data ...[]byte) string {
	h := sha1.New()
	for _, d := range data {
		h.Write(d)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Hextime renders t (UTC milliseconds since epoch) as a fixed-width
// 11-character lowercase hex string, zero-padded so id lengths are always
// exactly "<11>-<40>". The fixed width keeps lexicographic order equal to
// chronological order.
func Hextime(t time.Time) string {
	ms := t.UnixMilli()
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%0*x", hextimeLen, ms)
}

// idHash returns the hash half of an "<hextime>-<hash>" id.
func idHash(id string) string {
	i := strings.IndexByte(id, '-')
	if i < 0 {
		return ""
	}
	return id[i+1:]
}

// idEpoch returns the hextime half of an "<hextime>-<hash>" id.
func idEpoch(id string) string {
	i := strings.IndexByte(id, '-')
	if i < 0 {
		return id
	}
	return id[:i]
}

// Changelog builds a tree over a POD to provide concurrent, lock-free
// revisions.
type Changelog struct {
	Pod pod.POD

	mu       sync.Mutex
	logCache []*Revision
}

// New returns a Changelog rooted at p — p's entire namespace is reserved
// for "<parent>.<child>" commit files.
func New(p pod.POD) *Changelog {
	return &Changelog{Pod: p}
}

// Refresh drops the cached log, forcing the next Log/Leaf/Leafs call to
// re-list the POD. Readers keep their own consistent snapshot of the log:
// concurrent writers' appends are not observed until a reader calls
// Refresh.
func (c *Changelog) Refresh() {
	c.mu.Lock()
	c.logCache = nil
	c.mu.Unlock()
}

// Commit appends payload as a new child of each of parents (the current
// leaf, or Phi for an empty log, when parents is empty). A parent whose
// hash already equals the new payload's hash is skipped (a detected
// no-op double write). Returns the new Revision per surviving parent —
// normally one.
func (c *Changelog) Commit(ctx context.Context, payload []byte, parents []string) ([]*Revision, error) {
	if parents == nil {
		leaf, err := c.Leaf(ctx)
		if err != nil {
			return nil, err
		}
		if leaf == nil {
			parents = []string{Phi}
		} else {
			parents = []string{leaf.Child}
		}
	}

	key := Hexdigest(payload)
	child := Hextime(time.Now()) + "-" + key

	var revs []*Revision
	for _, parent := range parents {
		if parent != Phi && idHash(parent) == key {
			continue
		}
		rev := &Revision{Changelog: c, Parent: parent, Child: child, payload: payload}
		if _, _, err := c.Pod.Write(ctx, rev.Path(), payload, false); err != nil {
			return nil, fmt.Errorf("changelog: commit: %w", err)
		}
		revs = append(revs, rev)
	}
	c.Refresh()
	return revs, nil
}

// Log returns every active revision, oldest branch first, depth-first.
// Results are memoized until the next Refresh.
func (c *Changelog) Log(ctx context.Context) ([]*Revision, error) {
	c.mu.Lock()
	cached := c.logCache
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	revs, err := c.walk(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.logCache = revs
	c.mu.Unlock()
	return revs, nil
}

// walk performs an iterative depth-first traversal over the
// parent->children relation extracted from the POD's file listing. The
// explicit stack tolerates arbitrarily deep histories.
func (c *Changelog) walk(ctx context.Context) ([]*Revision, error) {
	names, err := c.Pod.Ls(ctx, "", true)
	if err != nil {
		return nil, fmt.Errorf("changelog: ls: %w", err)
	}
	sort.Strings(names)

	children := map[string][]*Revision{}
	allChildren := map[string]bool{}
	for _, name := range names {
		parent, child, ok := splitName(name)
		if !ok || parent == child {
			continue
		}
		allChildren[child] = true
		children[parent] = append(children[parent], &Revision{Changelog: c, Parent: parent, Child: child})
	}

	var roots []string
	for p := range children {
		if !allChildren[p] {
			roots = append(roots, p)
		}
	}
	sort.Strings(roots)

	var firstGen []*Revision
	for _, r := range roots {
		firstGen = append(firstGen, children[r]...)
	}

	// queue holds firstGen reversed so repeated pops from the tail
	// restore the original forward order.
	queue := make([]*Revision, len(firstGen))
	for i, r := range firstGen {
		queue[len(firstGen)-1-i] = r
	}

	var out []*Revision
	for len(queue) > 0 {
		rev := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		kids := children[rev.Child]
		rev.IsLeaf = len(kids) == 0
		for i := len(kids) - 1; i >= 0; i-- {
			queue = append(queue, kids[i])
		}
		out = append(out, rev)
	}
	return out, nil
}

func splitName(name string) (parent, child string, ok bool) {
	i := strings.IndexByte(name, '.')
	if i < 0 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

// Leaf returns the newest leaf across all branches — the last entry of
// Log, so with sibling leafs the winner is determined by the greatest
// (hextime, hash) child id.
func (c *Changelog) Leaf(ctx context.Context) (*Revision, error) {
	revs, err := c.Log(ctx)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, nil
	}
	return revs[len(revs)-1], nil
}

// Leafs returns one revision per node with no children. A merge commit is
// stored once per parent, so its child id is reported only once.
func (c *Changelog) Leafs(ctx context.Context) ([]*Revision, error) {
	revs, err := c.Log(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Revision
	seen := map[string]bool{}
	for _, r := range revs {
		if r.IsLeaf && !seen[r.Child] {
			seen[r.Child] = true
			out = append(out, r)
		}
	}
	return out, nil
}

// Pull copies every commit file present in remote but not in c (matched by
// parent/child digest pair, not by hextime, so two writers who produced
// identical payloads under different timestamps still dedupe). Returns the
// newly-copied paths.
func (c *Changelog) Pull(ctx context.Context, remote *Changelog) ([]string, error) {
	localNames, err := c.Pod.Ls(ctx, "", true)
	if err != nil {
		return nil, fmt.Errorf("changelog: pull: local ls: %w", err)
	}
	localDigests := map[[2]string]bool{}
	for _, name := range localNames {
		parent, child, ok := splitName(name)
		if !ok {
			continue
		}
		localDigests[[2]string{idHash(parent), idHash(child)}] = true
	}

	remoteNames, err := remote.Pod.Ls(ctx, "", true)
	if err != nil {
		return nil, fmt.Errorf("changelog: pull: remote ls: %w", err)
	}

	var newPaths []string
	for _, name := range remoteNames {
		parent, child, ok := splitName(name)
		if !ok {
			continue
		}
		digests := [2]string{idHash(parent), idHash(child)}
		if localDigests[digests] {
			continue
		}
		payload, err := remote.Pod.Read(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("changelog: pull: read %q: %w", name, err)
		}
		if _, _, err := c.Pod.Write(ctx, name, payload, false); err != nil {
			return nil, fmt.Errorf("changelog: pull: write %q: %w", name, err)
		}
		newPaths = append(newPaths, name)
	}
	c.Refresh()
	return newPaths, nil
}

// Pack folds an entire active commit line into a single commit rooted at
// Phi and removes the superseded files. When olderThan is non-zero, any
// commit whose hextime falls within olderThan of now is left untouched so
// a concurrent writer extending the tip is never disturbed.
func (c *Changelog) Pack(ctx context.Context, olderThan time.Duration) error {
	leaf, err := c.Leaf(ctx)
	if err != nil || leaf == nil {
		return err
	}
	if olderThan > 0 {
		cutoff := Hextime(time.Now().Add(-olderThan))
		if idEpoch(leaf.Child) > cutoff {
			lakotalog.Debugf("pack: skipping, leaf %s newer than cutoff", leaf.Child)
			return nil
		}
	}
	payload, err := leaf.Read(ctx)
	if err != nil {
		return err
	}
	revs, err := c.Pod.Ls(ctx, "", true)
	if err != nil {
		return err
	}
	if _, err := c.Commit(ctx, payload, []string{Phi}); err != nil {
		return err
	}
	for _, name := range revs {
		if err := c.Pod.Rm(ctx, name, false); err != nil {
			return fmt.Errorf("changelog: pack: rm %q: %w", name, err)
		}
	}
	c.Refresh()
	return nil
}

// Truncate removes every commit file except the ones named in skip —
// the cleanup step squash runs after re-writing history onto a fresh
// root commit.
func (c *Changelog) Truncate(ctx context.Context, skip ...string) error {
	keep := make(map[string]bool, len(skip))
	for _, s := range skip {
		keep[s] = true
	}
	names, err := c.Pod.Ls(ctx, "", true)
	if err != nil {
		return fmt.Errorf("changelog: truncate: %w", err)
	}
	for _, name := range names {
		if keep[name] {
			continue
		}
		if _, _, ok := splitName(name); !ok {
			continue
		}
		if err := c.Pod.Rm(ctx, name, false); err != nil {
			return fmt.Errorf("changelog: truncate: rm %q: %w", name, err)
		}
	}
	c.Refresh()
	return nil
}

// Revision is one "<parent>.<child>" commit file.
type Revision struct {
	Changelog *Changelog
	Parent    string
	Child     string
	IsLeaf    bool

	mu      sync.Mutex
	payload []byte
}

// Path returns the POD key for this revision.
func (r *Revision) Path() string {
	return r.Parent + "." + r.Child
}

// Epoch returns the hextime component of the child id.
func (r *Revision) Epoch() string {
	return idEpoch(r.Child)
}

// Read returns the commit payload, verifying its SHA-1 matches the
// child-id hash. A mismatch — seen when a concurrent writer's file is
// still mid-write — is retried a bounded number of times with backoff
// before failing as an integrity error.
func (r *Revision) Read(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	cached := r.payload
	r.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	want := idHash(r.Child)
	var lastErr error
	for i := 1; i <= 4; i++ {
		payload, err := r.Changelog.Pod.Read(ctx, r.Path())
		if err != nil {
			return nil, fmt.Errorf("changelog: read %q: %w", r.Path(), err)
		}
		if Hexdigest(payload) == want {
			r.mu.Lock()
			r.payload = payload
			r.mu.Unlock()
			return payload, nil
		}
		lastErr = fmt.Errorf("changelog: checksum mismatch reading %q", r.Path())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i) * 100 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("changelog: IntegrityFailure: %w", lastErr)
}
