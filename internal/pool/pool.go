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

// Package pool provides the small cooperative worker pool: a fixed-size
// dispatcher for the blocking I/O lakota does at POD and codec boundaries
// (segment encode/decode, pulls), with a process-wide toggle between
// inline and parallel execution. Built on golang.org/x/sync/errgroup
// rather than a hand-rolled channel fan-out.
package pool

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// threaded is the process-wide inline/parallel toggle. Off by default so
// unit tests get deterministic, serial execution; CLI entry points flip
// it on.
var threaded atomic.Bool

// SetThreaded flips the process-wide inline/parallel toggle.
func SetThreaded(v bool) {
	threaded.Store(v)
}

// Threaded reports the current toggle value.
func Threaded() bool {
	return threaded.Load()
}

// Pool dispatches Go tasks either inline (serial, same goroutine) or
// bounded-parallel (errgroup with a worker limit), depending on the
// process-wide threaded toggle captured at New.
type Pool struct {
	size     int
	threaded bool
}

// New returns a Pool with the given maximum parallelism. size <= 0 means
// "pick a small fixed default" (4 — lakota's tasks are I/O bound, not CPU
// bound, so there is no point scaling with GOMAXPROCS).
func New(size int) *Pool {
	if size <= 0 {
		size = 4
	}
	return &Pool{size: size, threaded: Threaded()}
}

// Go runs every fn, fanning out across the pool's worker limit when the
// threaded toggle is on, or running them one after another otherwise.
// Returns the first error encountered. Inline, Go stops at that error and
// the remaining tasks do not run; in parallel, every task is still started
// (errgroup.Group semantics) on a context that is cancelled after the
// first error.
func (p *Pool) Go(ctx context.Context, fns ...func(ctx context.Context) error) error {
	if !p.threaded || p.size <= 1 || len(fns) <= 1 {
		for _, fn := range fns {
			if err := fn(ctx); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.size)
	for _, fn := range fns {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}
	return g.Wait()
}
