// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"occam/internal/occam/ingress"
	"occam/internal/occam/rate"
	"occam/internal/occam/stats"
	"occam/internal/occam/suppression"
	occam "occam/pkg/occam"
)

const (
	stateRunning int32 = iota
	stateDraining
	stateStopped
)

// Pool owns a fixed set of worker goroutines, each with its own
// Primitives and suppression Broadcaster, all reading from the same
// ingress work channel.
type Pool struct {
	workers []*worker
	wg      sync.WaitGroup
	state   atomic.Int32
	log     zerolog.Logger
}

// Count picks a worker count when none is configured: one worker on a
// single-CPU machine, otherwise NumCPU-1 (never fewer than two) so a
// whole core is left for the ingress poller, dispatcher, and control API.
func Count() int {
	n := runtime.NumCPU()
	if n <= 1 {
		return 1
	}
	if n-1 < 2 {
		return 2
	}
	return n - 1
}

// New builds a pool of n workers. idx is the suppression index each
// worker registers a Broadcaster with; reg and queue feed the Primitives
// every worker's rules call into.
func New(n int, workCh <-chan ingress.Batch, idx *suppression.Index, reg *rate.Registry, queue occam.Queue, program Program, m *stats.Metrics, recvTimeout time.Duration, log zerolog.Logger) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{log: log}
	for i := 0; i < n; i++ {
		b := idx.NewWorkerBroadcaster()
		primitives := occam.NewPrimitivesWithMetrics(reg, queue, m.AlertsEmittedTotal)
		p.workers = append(p.workers, newWorker(i, workCh, b, program, primitives, m, recvTimeout, log))
	}
	return p
}

// Start launches every worker's run loop. ctx cancellation is each
// worker's normal exit signal; Stop additionally performs a final
// non-blocking drain so already-queued batches are not silently lost.
func (p *Pool) Start(ctx context.Context) {
	p.state.Store(stateRunning)
	for _, w := range p.workers {
		p.wg.Add(1)
		w := w
		go func() {
			defer p.wg.Done()
			w.run(ctx)
		}()
	}
}

// Stop transitions the pool to draining, lets every worker's run loop exit
// via ctx cancellation (the caller owns ctx and is expected to have
// already cancelled it), waits for all workers to return, then has each
// worker perform one final non-blocking drain of the work channel.
func (p *Pool) Stop() {
	if !p.state.CompareAndSwap(stateRunning, stateDraining) {
		return
	}
	p.wg.Wait()
	for _, w := range p.workers {
		w.drain()
	}
	p.state.Store(stateStopped)
}
