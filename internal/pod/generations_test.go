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

import "testing"

func TestGenerationsSwapOnHalfBudget(t *testing.T) {
	g := newGenerations(100)
	g.touch("a", 60) // exceeds half budget (50) -> swap, back={a:60}
	if len(g.front) != 0 || g.frontSize != 0 {
		t.Fatalf("expected front cleared after swap, got %v size=%d", g.front, g.frontSize)
	}
	if g.backSize != 60 {
		t.Fatalf("expected back to hold swapped entry, backSize=%d", g.backSize)
	}
}

func TestGenerationsEvictsOldestBackOnOverBudget(t *testing.T) {
	g := newGenerations(10)
	g.touch("a", 6) // >half(5) -> swap -> back={a:6}
	evicted := g.touch("b", 6)
	// front now holds b(6) > half(5) -> swap again: the old back {a} is
	// evicted, back={b:6}, front={}
	if len(evicted) != 1 || evicted[0] != "a" {
		t.Fatalf("expected only a evicted on swap, got %v", evicted)
	}
	evicted = g.touch("c", 8)
	// c(8) > half(5) -> swap: the old back {b} is evicted, back={c:8}
	if len(evicted) == 0 {
		t.Fatalf("expected eviction once budget exceeded")
	}
}

func TestGenerationsPromotesBackOnTouch(t *testing.T) {
	g := newGenerations(1000)
	g.touch("a", 10)
	g.swap() // force a into back
	if _, ok := g.backIdx["a"]; !ok {
		t.Fatalf("expected a in back after forced swap")
	}
	g.touch("a", 10)
	if _, ok := g.frontIdx["a"]; !ok {
		t.Fatalf("expected a promoted to front on touch")
	}
	if _, ok := g.backIdx["a"]; ok {
		t.Fatalf("expected a removed from back after promotion")
	}
}

func TestGenerationsForget(t *testing.T) {
	g := newGenerations(1000)
	g.touch("a", 10)
	g.forget("a")
	if _, ok := g.frontIdx["a"]; ok {
		t.Fatalf("expected a forgotten")
	}
	if g.frontSize != 0 {
		t.Fatalf("expected frontSize reset, got %d", g.frontSize)
	}
}
