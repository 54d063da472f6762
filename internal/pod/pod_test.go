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
	"testing"
)

func pods(t *testing.T) map[string]POD {
	fp, err := NewFilePOD(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilePOD: %v", err)
	}
	return map[string]POD{
		"mem":      NewMemPOD(),
		"file":     fp,
		"boundmem": NewBoundedMemPOD(1 << 20),
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, p := range pods(t) {
		t.Run(name, func(t *testing.T) {
			n, wrote, err := p.Write(ctx, "a/b/c", []byte("hello"), false)
			if err != nil || !wrote || n != 5 {
				t.Fatalf("Write: n=%d wrote=%v err=%v", n, wrote, err)
			}
			got, err := p.Read(ctx, "a/b/c")
			if err != nil || string(got) != "hello" {
				t.Fatalf("Read: got %q err %v", got, err)
			}
		})
	}
}

func TestWriteIdempotentNoOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, p := range pods(t) {
		t.Run(name, func(t *testing.T) {
			p.Write(ctx, "k", []byte("first"), false)
			_, wrote, err := p.Write(ctx, "k", []byte("second"), false)
			if err != nil {
				t.Fatalf("Write: %v", err)
			}
			if wrote {
				t.Fatalf("expected no-op write to report wrote=false")
			}
			got, _ := p.Read(ctx, "k")
			if string(got) != "first" {
				t.Fatalf("expected original bytes preserved, got %q", got)
			}
		})
	}
}

func TestWriteForceOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, p := range pods(t) {
		t.Run(name, func(t *testing.T) {
			p.Write(ctx, "k", []byte("first"), false)
			_, wrote, err := p.Write(ctx, "k", []byte("second"), true)
			if err != nil || !wrote {
				t.Fatalf("forced Write: wrote=%v err=%v", wrote, err)
			}
			got, _ := p.Read(ctx, "k")
			if string(got) != "second" {
				t.Fatalf("expected forced overwrite, got %q", got)
			}
		})
	}
}

func TestReadMissing(t *testing.T) {
	ctx := context.Background()
	for name, p := range pods(t) {
		t.Run(name, func(t *testing.T) {
			_, err := p.Read(ctx, "does/not/exist")
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestLsAndWalk(t *testing.T) {
	ctx := context.Background()
	for name, p := range pods(t) {
		t.Run(name, func(t *testing.T) {
			p.Write(ctx, "aa/bb/one", []byte("1"), false)
			p.Write(ctx, "aa/bb/two", []byte("2"), false)
			p.Write(ctx, "aa/cc/three", []byte("3"), false)

			names, err := p.Ls(ctx, "aa", false)
			if err != nil {
				t.Fatalf("Ls: %v", err)
			}
			if len(names) != 2 {
				t.Fatalf("expected 2 entries under aa, got %v", names)
			}

			paths, err := p.Walk(ctx, 0)
			if err != nil {
				t.Fatalf("Walk: %v", err)
			}
			if len(paths) != 3 {
				t.Fatalf("expected 3 files, got %v", paths)
			}
		})
	}
}

func TestLsMissingOK(t *testing.T) {
	ctx := context.Background()
	for name, p := range pods(t) {
		t.Run(name, func(t *testing.T) {
			names, err := p.Ls(ctx, "nope", true)
			if err != nil || names != nil {
				t.Fatalf("expected (nil, nil), got (%v, %v)", names, err)
			}
			_, err = p.Ls(ctx, "nope", false)
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestCdScopesRelativePaths(t *testing.T) {
	ctx := context.Background()
	for name, p := range pods(t) {
		t.Run(name, func(t *testing.T) {
			sub := p.Cd("scope")
			sub.Write(ctx, "file", []byte("v"), false)
			if p.IsFile(ctx, "scope/file") == false {
				t.Fatalf("expected scope/file visible from root view")
			}
			got, err := sub.Read(ctx, "file")
			if err != nil || string(got) != "v" {
				t.Fatalf("Read via Cd: got %q err %v", got, err)
			}
		})
	}
}

func TestRmRecursive(t *testing.T) {
	ctx := context.Background()
	for name, p := range pods(t) {
		t.Run(name, func(t *testing.T) {
			p.Write(ctx, "x/y", []byte("1"), false)
			if err := p.Rm(ctx, "x", false); err == nil {
				t.Fatalf("expected non-recursive Rm of non-empty dir to fail")
			}
			if err := p.Rm(ctx, "x", true); err != nil {
				t.Fatalf("recursive Rm: %v", err)
			}
			if p.IsDir(ctx, "x") {
				t.Fatalf("expected x removed")
			}
		})
	}
}

func TestMv(t *testing.T) {
	ctx := context.Background()
	for name, p := range pods(t) {
		t.Run(name, func(t *testing.T) {
			p.Write(ctx, "from", []byte("data"), false)
			if err := p.Mv(ctx, "from", "to"); err != nil {
				t.Fatalf("Mv: %v", err)
			}
			if p.IsFile(ctx, "from") {
				t.Fatalf("expected from removed after Mv")
			}
			got, err := p.Read(ctx, "to")
			if err != nil || string(got) != "data" {
				t.Fatalf("Read to: got %q err %v", got, err)
			}
		})
	}
}
