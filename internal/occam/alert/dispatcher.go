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

// Package alert implements the fixed-size dispatcher pool that isolates
// slow sinks (chat webhook, incident tracker) from the hot evaluation path.
package alert

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"occam/internal/occam/stats"
	occam "occam/pkg/occam"
)

// Sink performs the external call for one alert kind and reports failure
// through its error. The Dispatcher logs each outcome and never retries:
// dispatch is best-effort and the queue has no durability.
type Sink interface {
	Send(ctx context.Context, alert occam.Alert) error
}

// Dispatcher drains a single alert channel with a fixed pool of goroutines
// and routes each entry by Kind to the matching Sink. A WaitGroup tracks the
// fixed goroutines, a stop channel signals drain-and-exit, and Stop is
// idempotent.
type Dispatcher struct {
	ch       chan occam.Alert
	sinks    map[occam.SinkKind]Sink
	poolSize int
	metrics  *stats.Metrics
	log      zerolog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewDispatcher builds a dispatcher with queueSize buffered capacity and
// poolSize consumer goroutines. Both are configurable; a pool of size 1 is
// valid and deterministic enough for tests. m may be nil in tests that don't
// care about delivery counters.
func NewDispatcher(queueSize, poolSize int, sinks map[occam.SinkKind]Sink, m *stats.Metrics, log zerolog.Logger) *Dispatcher {
	if poolSize < 1 {
		poolSize = 1
	}
	return &Dispatcher{
		ch:       make(chan occam.Alert, queueSize),
		sinks:    sinks,
		poolSize: poolSize,
		metrics:  m,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

// Enqueue implements pkg/occam.Queue. A full channel drops the oldest
// pending alert rather than blocking the caller; dispatch is best-effort.
func (d *Dispatcher) Enqueue(a occam.Alert) {
	select {
	case d.ch <- a:
		return
	default:
	}
	// Queue full: drop the oldest pending alert to make room, then retry.
	select {
	case <-d.ch:
		if d.metrics != nil {
			d.metrics.AlertsDroppedTotal.Inc()
		}
	default:
	}
	select {
	case d.ch <- a:
	default:
		if d.metrics != nil {
			d.metrics.AlertsDroppedTotal.Inc()
		}
	}
}

// Start launches the dispatcher pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.poolSize; i++ {
		d.wg.Add(1)
		go d.run(i)
	}
}

// Stop signals all dispatcher goroutines to drain and exit, then waits.
// Idempotent and safe to call multiple times.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
	d.wg.Wait()
}

func (d *Dispatcher) run(id int) {
	defer d.wg.Done()
	ctx := context.Background()
	for {
		select {
		case a := <-d.ch:
			d.send(ctx, id, a)
		case <-d.stopCh:
			// Drain whatever is already queued, then exit; in-flight work
			// beyond that is allowed to be dropped.
			for {
				select {
				case a := <-d.ch:
					d.send(ctx, id, a)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, dispatcherID int, a occam.Alert) {
	sink, ok := d.sinks[a.Kind]
	if !ok {
		d.log.Warn().Int("dispatcher", dispatcherID).Str("alert", a.ID).Str("kind", string(a.Kind)).Msg("no sink registered for alert kind")
		d.count(a.Kind, "no_sink")
		return
	}
	if err := sink.Send(ctx, a); err != nil {
		d.log.Warn().Int("dispatcher", dispatcherID).Str("alert", a.ID).Str("kind", string(a.Kind)).Err(err).Msg("sink delivery failed")
		d.count(a.Kind, "error")
		return
	}
	d.log.Info().Int("dispatcher", dispatcherID).Str("alert", a.ID).Str("kind", string(a.Kind)).Msg("alert delivered")
	d.count(a.Kind, "ok")
}

func (d *Dispatcher) count(kind occam.SinkKind, outcome string) {
	if d.metrics != nil {
		d.metrics.AlertsDeliveredTotal.WithLabelValues(string(kind), outcome).Inc()
	}
}
