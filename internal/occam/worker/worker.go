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

// Package worker implements the evaluation pool: one goroutine per worker,
// each pulling batches off a shared work channel, decoding messages,
// filtering suppressed ones, and running the rule program against the
// rest.
package worker

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"occam/internal/occam/ingress"
	"occam/internal/occam/stats"
	"occam/internal/occam/suppression"
	occam "occam/pkg/occam"
)

// Program is the compiled rule set a worker runs against every
// non-suppressed message. Rules are invoked in order; a panic in one rule
// is recovered and logged without aborting the remaining rules or the
// worker itself.
type Program []occam.Rule

// worker is one evaluation goroutine. It owns its own Primitives (so its
// rate checks share the registry but not any per-worker state) and reads
// suppression updates from a dedicated Broadcaster rather than sharing a
// channel with its siblings.
type worker struct {
	id          int
	workCh      <-chan ingress.Batch
	broadcaster *suppression.Broadcaster
	program     Program
	primitives  *occam.Primitives
	metrics     *stats.Metrics
	recvTimeout time.Duration
	log         zerolog.Logger

	suppress suppression.Snapshot
}

func newWorker(id int, workCh <-chan ingress.Batch, b *suppression.Broadcaster, program Program, p *occam.Primitives, m *stats.Metrics, recvTimeout time.Duration, log zerolog.Logger) *worker {
	return &worker{
		id:          id,
		workCh:      workCh,
		broadcaster: b,
		program:     program,
		primitives:  p,
		metrics:     m,
		recvTimeout: recvTimeout,
		log:         log.With().Int("worker", id).Logger(),
		suppress:    make(suppression.Snapshot),
	}
}

// run drains workCh until ctx is cancelled. Each iteration first applies
// any pending suppression snapshot update (non-blocking), then waits up to
// recvTimeout for a batch so the loop wakes periodically even when idle
// and can observe ctx cancellation promptly.
func (w *worker) run(ctx context.Context) {
	for {
		if snap, ok := w.broadcaster.TryRecv(); ok {
			w.suppress = snap
		}

		select {
		case <-ctx.Done():
			return
		case batch, ok := <-w.workCh:
			if !ok {
				return
			}
			w.processBatch(ctx, batch)
		case <-time.After(w.recvTimeout):
		}
	}
}

// drain processes whatever remains on workCh without blocking, used during
// shutdown after the ingress poller has stopped producing new batches.
func (w *worker) drain() {
	for {
		select {
		case batch, ok := <-w.workCh:
			if !ok {
				return
			}
			w.processBatch(context.Background(), batch)
		default:
			return
		}
	}
}

func (w *worker) processBatch(ctx context.Context, batch ingress.Batch) {
	for _, raw := range batch {
		msg, err := occam.DecodeMessage(raw)
		if err != nil {
			w.metrics.MessagesDecodeErrors.Inc()
			w.log.Warn().Err(err).Msg("skipping malformed message")
			continue
		}
		if w.suppress.Suppresses(msg) {
			w.metrics.MessagesSuppressed.Inc()
			continue
		}
		w.runProgram(ctx, msg)
		w.metrics.MessagesProcessedTotal.Inc()
	}
}

func (w *worker) runProgram(ctx context.Context, msg occam.Message) {
	for _, rule := range w.program {
		w.runRule(ctx, rule, msg)
	}
}

func (w *worker) runRule(ctx context.Context, rule occam.Rule, msg occam.Message) {
	defer func() {
		if r := recover(); r != nil {
			w.metrics.RulePanicsTotal.Inc()
			w.log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("recovered rule panic")
		}
	}()
	if err := rule.Run(ctx, msg, w.primitives); err != nil {
		w.log.Warn().Err(err).Msg("rule returned an error")
	}
}
