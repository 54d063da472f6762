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
	"testing"
)

func TestFromURIMemory(t *testing.T) {
	p, err := FromURI("memory://")
	if err != nil {
		t.Fatalf("FromURI: %v", err)
	}
	if _, ok := p.(*MemPOD); !ok {
		t.Fatalf("expected *MemPOD, got %T", p)
	}
}

func TestFromURIFile(t *testing.T) {
	dir := t.TempDir()
	p, err := FromURI("file://" + dir)
	if err != nil {
		t.Fatalf("FromURI: %v", err)
	}
	ctx := context.Background()
	if _, _, err := p.Write(ctx, "k", []byte("v"), false); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestFromURIComposedCache(t *testing.T) {
	dir := t.TempDir()
	p, err := FromURI("memory://?budget=1024+file://" + dir)
	if err != nil {
		t.Fatalf("FromURI: %v", err)
	}
	if _, ok := p.(*CachePOD); !ok {
		t.Fatalf("expected *CachePOD, got %T", p)
	}
}

func TestFromURIUnknownScheme(t *testing.T) {
	if _, err := FromURI("bogus://x"); err == nil {
		t.Fatalf("expected error for unknown scheme")
	}
}
