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

package changelog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/launix-de/lakota/internal/pod"
)

func newLog(t *testing.T) *Changelog {
	t.Helper()
	return New(pod.NewMemPOD())
}

func TestCommitAndLeaf(t *testing.T) {
	ctx := context.Background()
	cl := newLog(t)

	revs, err := cl.Commit(ctx, []byte("ham"), nil)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(revs) != 1 {
		t.Fatalf("got %d revisions, want 1", len(revs))
	}
	if revs[0].Parent != Phi {
		t.Fatalf("first commit parent = %s, want phi", revs[0].Parent)
	}

	leaf, err := cl.Leaf(ctx)
	if err != nil {
		t.Fatalf("Leaf: %v", err)
	}
	if leaf == nil || leaf.Child != revs[0].Child {
		t.Fatalf("leaf = %v, want %s", leaf, revs[0].Child)
	}

	payload, err := leaf.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(payload) != "ham" {
		t.Fatalf("payload = %q", payload)
	}
}

func TestChildIDMatchesPayloadHash(t *testing.T) {
	ctx := context.Background()
	cl := newLog(t)
	revs, err := cl.Commit(ctx, []byte("spam"), nil)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	child := revs[0].Child
	i := strings.IndexByte(child, '-')
	if child[i+1:] != Hexdigest([]byte("spam")) {
		t.Fatalf("child hash %s does not match payload digest", child)
	}
}

func TestNoOpDoubleCommitSkipped(t *testing.T) {
	ctx := context.Background()
	cl := newLog(t)
	first, err := cl.Commit(ctx, []byte("ham"), nil)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	// Committing the same payload on the same parent is a detected no-op.
	second, err := cl.Commit(ctx, []byte("ham"), []string{first[0].Child})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("no-op commit produced %d revisions, want 0", len(second))
	}
}

func TestConcurrentWritersProduceSiblings(t *testing.T) {
	ctx := context.Background()
	cl := newLog(t)

	// Two writers racing from an empty log both parent on phi.
	if _, err := cl.Commit(ctx, []byte("ham"), []string{Phi}); err != nil {
		t.Fatalf("Commit ham: %v", err)
	}
	if _, err := cl.Commit(ctx, []byte("spam"), []string{Phi}); err != nil {
		t.Fatalf("Commit spam: %v", err)
	}

	leafs, err := cl.Leafs(ctx)
	if err != nil {
		t.Fatalf("Leafs: %v", err)
	}
	if len(leafs) != 2 {
		t.Fatalf("got %d leafs, want 2", len(leafs))
	}

	// Leaf determinism: the newest leaf is the last entry of Log, ordered
	// by (hextime, hash) of the child.
	leaf, err := cl.Leaf(ctx)
	if err != nil {
		t.Fatalf("Leaf: %v", err)
	}
	want := leafs[0].Child
	if leafs[1].Child > want {
		want = leafs[1].Child
	}
	if leaf.Child != want {
		t.Fatalf("leaf = %s, want greatest child %s", leaf.Child, want)
	}
}

func TestLogIsStableAcrossInvocations(t *testing.T) {
	ctx := context.Background()
	cl := newLog(t)
	for _, payload := range []string{"a", "b", "c"} {
		if _, err := cl.Commit(ctx, []byte(payload), nil); err != nil {
			t.Fatalf("Commit %q: %v", payload, err)
		}
	}
	first, err := cl.Log(ctx)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	cl.Refresh()
	second, err := cl.Log(ctx)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("lengths: %d, %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Child != second[i].Child {
			t.Fatalf("position %d differs: %s vs %s", i, first[i].Child, second[i].Child)
		}
	}
	// Parent links form a chain.
	for i := 1; i < len(first); i++ {
		if first[i].Parent != first[i-1].Child {
			t.Fatalf("broken chain at %d", i)
		}
	}
}

func TestReadDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	p := pod.NewMemPOD()
	cl := New(p)
	revs, err := cl.Commit(ctx, []byte("ham"), nil)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, _, err := p.Write(ctx, revs[0].Path(), []byte("tampered"), true); err != nil {
		t.Fatalf("Write: %v", err)
	}
	cl.Refresh()
	leaf, err := cl.Leaf(ctx)
	if err != nil {
		t.Fatalf("Leaf: %v", err)
	}
	if _, err := leaf.Read(ctx); err == nil {
		t.Fatal("expected an integrity error reading a tampered payload")
	}
}

func TestPull(t *testing.T) {
	ctx := context.Background()
	remote := newLog(t)
	local := newLog(t)

	if _, err := remote.Commit(ctx, []byte("ham"), nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := remote.Commit(ctx, []byte("spam"), nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	copied, err := local.Pull(ctx, remote)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(copied) != 2 {
		t.Fatalf("copied %d files, want 2", len(copied))
	}
	// Second pull is a no-op.
	copied, err = local.Pull(ctx, remote)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(copied) != 0 {
		t.Fatalf("second pull copied %d files, want 0", len(copied))
	}

	leaf, err := local.Leaf(ctx)
	if err != nil {
		t.Fatalf("Leaf: %v", err)
	}
	payload, err := leaf.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(payload) != "spam" {
		t.Fatalf("leaf payload = %q, want spam", payload)
	}
}

func TestPack(t *testing.T) {
	ctx := context.Background()
	cl := newLog(t)
	for _, payload := range []string{"a", "b", "c"} {
		if _, err := cl.Commit(ctx, []byte(payload), nil); err != nil {
			t.Fatalf("Commit %q: %v", payload, err)
		}
	}
	if err := cl.Pack(ctx, 0); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	revs, err := cl.Log(ctx)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(revs) != 1 {
		t.Fatalf("got %d revisions after pack, want 1", len(revs))
	}
	if revs[0].Parent != Phi {
		t.Fatalf("packed commit parent = %s, want phi", revs[0].Parent)
	}
	payload, err := revs[0].Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(payload) != "c" {
		t.Fatalf("packed payload = %q, want c", payload)
	}
}

func TestPackLeavesRecentCommitsAlone(t *testing.T) {
	ctx := context.Background()
	cl := newLog(t)
	if _, err := cl.Commit(ctx, []byte("older"), nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := cl.Commit(ctx, []byte("fresh"), nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := cl.Pack(ctx, time.Hour); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	revs, err := cl.Log(ctx)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("pack with grace period should leave the fresh history untouched, got %d revisions", len(revs))
	}
}

func TestTruncate(t *testing.T) {
	ctx := context.Background()
	cl := newLog(t)
	var keep string
	for _, payload := range []string{"a", "b", "c"} {
		revs, err := cl.Commit(ctx, []byte(payload), nil)
		if err != nil {
			t.Fatalf("Commit %q: %v", payload, err)
		}
		keep = revs[0].Path()
	}
	if err := cl.Truncate(ctx, keep); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	names, err := cl.Pod.Ls(ctx, "", true)
	if err != nil {
		t.Fatalf("Ls: %v", err)
	}
	if len(names) != 1 || names[0] != keep {
		t.Fatalf("remaining files = %v, want only %s", names, keep)
	}
}
