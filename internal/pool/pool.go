/*
Copyright (C) 2026  MemCP Contributors

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

// Package pool implements the bounded, panic-resilient worker pool.
// Grounded on original_source/src/thread_pool/share_queue.rs: a bounded
// channel of jobs, N workers reading from it, and a scope-exit hook that
// respawns a worker before a panicking one dies. Go's defer+recover is the
// idiomatic equivalent of the Rust scopeguard/defer! used there. The bound
// itself is a golang.org/x/sync/semaphore.Weighted rather than a buffered
// channel's fixed capacity, so it limits total outstanding work (queued
// plus executing), not just how many jobs can sit unclaimed.
package pool

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Pool is a fixed-size pool fed by a job channel, with admission bounded
// by a weighted semaphore.
type Pool struct {
	jobs chan func()
	sem  *semaphore.Weighted
	size int

	wg sync.WaitGroup // tracks live worker goroutines, for Close to join them
}

// New spawns n worker goroutines (n < 1 is treated as 1) and admits at
// most 3*n jobs into the system (queued or executing) at once.
func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{
		jobs: make(chan func(), 3*n),
		sem:  semaphore.NewWeighted(int64(3 * n)),
		size: n,
	}
	for i := 0; i < n; i++ {
		p.spawnWorker()
	}
	return p
}

// Submit admits f, blocking while 3*n jobs are already queued or
// executing, then hands it to whichever worker receives first.
func (p *Pool) Submit(f func()) {
	_ = p.sem.Acquire(context.Background(), 1)
	p.jobs <- func() {
		defer p.sem.Release(1)
		f()
	}
}

// Close closes the queue. Workers drain in-flight jobs already queued,
// then exit; Close joins them.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// spawnWorker starts one worker goroutine. Its deferred recover is the
// scope-exit hook: if the job it was running panics, it starts a
// replacement worker — reading from the very same queue — before this one
// unwinds and terminates, so the pool's worker count is restored after any
// finite number of panics.
func (p *Pool) spawnWorker() {
	p.wg.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("worker pool job panicked, respawning worker")
				p.spawnWorker()
			}
			p.wg.Done()
		}()
		for job := range p.jobs {
			job()
		}
	}()
}

// Size reports the configured worker count (for tests and diagnostics).
func (p *Pool) Size() int { return p.size }
