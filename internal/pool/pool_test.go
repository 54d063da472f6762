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

package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestPoolInlineRunsSerially(t *testing.T) {
	p := New(4)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		p.Go(context.Background(), func(ctx context.Context) error {
			order = append(order, i)
			return nil
		})
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("expected serial order, got %v", order)
		}
	}
}

func TestPoolThreadedRunsAll(t *testing.T) {
	SetThreaded(true)
	defer SetThreaded(false)
	p := New(4)
	var count atomic.Int32
	fns := make([]func(ctx context.Context) error, 10)
	for i := range fns {
		fns[i] = func(ctx context.Context) error {
			count.Add(1)
			return nil
		}
	}
	if err := p.Go(context.Background(), fns...); err != nil {
		t.Fatalf("Go: %v", err)
	}
	if count.Load() != 10 {
		t.Fatalf("expected 10 tasks to run, got %d", count.Load())
	}
}

func TestPoolPropagatesError(t *testing.T) {
	p := New(1)
	want := errors.New("boom")
	err := p.Go(context.Background(), func(ctx context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
