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

// Package ingress implements the single-task poller that drains batches
// from the shared message queue and publishes them onto the bounded work
// channel workers consume from.
package ingress

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"occam/internal/occam/kv"
	"occam/internal/occam/stats"
)

const messagesKey = "messages"

// Batch is an ordered sequence of raw (still JSON-encoded) messages
// produced atomically by one poll.
type Batch [][]byte

// Poller drains Batches from the store and hands them to WorkCh. It never
// decodes messages itself; that happens per-message inside a worker.
type Poller struct {
	client     kv.Client
	WorkCh     chan Batch
	StatsCh    chan int
	batchLimit int64
	idleSleep  time.Duration
	metrics    *stats.Metrics
	log        zerolog.Logger
}

// NewPoller builds a poller. workChCapacity is typically runtime.NumCPU()*6
// so a burst of batches can queue ahead of the worker pool; batchLimit caps
// how many messages one poll pulls at once (100 by default). m may be nil in
// tests that don't care about the work-channel-depth gauge.
func NewPoller(client kv.Client, workChCapacity int, batchLimit int64, idleSleep time.Duration, m *stats.Metrics, log zerolog.Logger) *Poller {
	return &Poller{
		client:     client,
		WorkCh:     make(chan Batch, workChCapacity),
		StatsCh:    make(chan int, 4096),
		batchLimit: batchLimit,
		idleSleep:  idleSleep,
		metrics:    m,
		log:        log,
	}
}

// Run polls until ctx is cancelled. On a KV error it logs and retries the
// same poll after idleSleep; on an empty result it sleeps idleSleep before
// polling again; on a non-empty result it blocking-pushes the batch onto
// WorkCh, which is the backpressure point: if WorkCh is full, this call —
// and therefore all further polling — blocks until a worker drains it.
func (p *Poller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, err := p.client.PopMessageBatch(ctx, messagesKey, p.batchLimit)
		if err != nil {
			p.log.Warn().Err(err).Msg("ingress poll failed, retrying")
			if !sleep(ctx, p.idleSleep) {
				return
			}
			continue
		}
		if len(raw) == 0 {
			if !sleep(ctx, p.idleSleep) {
				return
			}
			continue
		}

		batch := Batch(raw)
		select {
		case p.WorkCh <- batch:
			if p.metrics != nil {
				p.metrics.WorkChannelDepth.Set(float64(len(p.WorkCh)))
			}
		case <-ctx.Done():
			return
		}
		select {
		case p.StatsCh <- len(batch):
		default:
			// Stats channel is generously buffered; a full channel means the
			// stats reporter has stalled. Drop rather than block ingestion.
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
