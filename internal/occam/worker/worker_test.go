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
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"occam/internal/occam/ingress"
	"occam/internal/occam/kv"
	"occam/internal/occam/rate"
	"occam/internal/occam/stats"
	"occam/internal/occam/suppression"
	occam "occam/pkg/occam"
)

type recordingQueue struct {
	mu     sync.Mutex
	alerts []occam.Alert
}

func (q *recordingQueue) Enqueue(a occam.Alert) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.alerts = append(q.alerts, a)
}

func (q *recordingQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.alerts)
}

type fieldEqualsRule struct {
	field, value string
}

func (r fieldEqualsRule) Run(ctx context.Context, msg occam.Message, p *occam.Primitives) error {
	if p.MatchEq(msg, r.field, r.value) {
		p.EmitConsole(msg)
	}
	return nil
}

type panicRule struct{}

func (panicRule) Run(ctx context.Context, msg occam.Message, p *occam.Primitives) error {
	panic("boom")
}

func encode(t *testing.T, v map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func newTestWorker(t *testing.T, program Program, queue occam.Queue) (*worker, *suppression.Index, *stats.Metrics) {
	t.Helper()
	client := kv.NewFake()
	reg := rate.NewRegistry(client, rate.DefaultOptions())
	idx := suppression.NewIndex(client, time.Hour, zerolog.Nop())
	b := idx.NewWorkerBroadcaster()
	m := stats.New(prometheus.NewRegistry())
	primitives := occam.NewPrimitivesWithMetrics(reg, queue, m.AlertsEmittedTotal)
	w := newWorker(0, nil, b, program, primitives, m, time.Second, zerolog.Nop())
	return w, idx, m
}

func TestWorkerMatchesAndEmits(t *testing.T) {
	queue := &recordingQueue{}
	w, _, m := newTestWorker(t, Program{fieldEqualsRule{field: "kind", value: "alert"}}, queue)

	batch := ingress.Batch{
		encode(t, map[string]any{"kind": "alert"}),
		encode(t, map[string]any{"kind": "noise"}),
	}
	w.processBatch(context.Background(), batch)

	if queue.count() != 1 {
		t.Fatalf("expected 1 alert emitted, got %d", queue.count())
	}
	if got := testutil.ToFloat64(m.MessagesProcessedTotal); got != 2 {
		t.Fatalf("expected 2 messages processed, got %v", got)
	}
}

func TestWorkerSkipsMalformedMessages(t *testing.T) {
	queue := &recordingQueue{}
	w, _, m := newTestWorker(t, Program{fieldEqualsRule{field: "a", value: "x"}}, queue)

	batch := ingress.Batch{
		[]byte(`not json`),
		encode(t, map[string]any{"a": "x"}),
	}
	w.processBatch(context.Background(), batch)

	if queue.count() != 1 {
		t.Fatalf("expected the well-formed message to still be evaluated, got %d alerts", queue.count())
	}
	if got := testutil.ToFloat64(m.MessagesDecodeErrors); got != 1 {
		t.Fatalf("expected 1 decode error counted, got %v", got)
	}
}

func TestWorkerRespectsSuppressionSnapshot(t *testing.T) {
	queue := &recordingQueue{}
	w, _, m := newTestWorker(t, Program{fieldEqualsRule{field: "region", value: "us-east-1"}}, queue)
	w.suppress = suppression.Snapshot{"region": {"us-east-1": {}}}

	batch := ingress.Batch{encode(t, map[string]any{"region": "us-east-1"})}
	w.processBatch(context.Background(), batch)

	if queue.count() != 0 {
		t.Fatalf("expected suppressed message to produce no alert, got %d", queue.count())
	}
	if got := testutil.ToFloat64(m.MessagesSuppressed); got != 1 {
		t.Fatalf("expected 1 suppressed message counted, got %v", got)
	}
}

func TestWorkerRecoversRulePanicAndContinues(t *testing.T) {
	queue := &recordingQueue{}
	w, _, m := newTestWorker(t, Program{panicRule{}, fieldEqualsRule{field: "a", value: "x"}}, queue)

	batch := ingress.Batch{encode(t, map[string]any{"a": "x"})}
	w.processBatch(context.Background(), batch)

	if queue.count() != 1 {
		t.Fatalf("expected the rule after the panicking one to still run, got %d alerts", queue.count())
	}
	if got := testutil.ToFloat64(m.RulePanicsTotal); got != 1 {
		t.Fatalf("expected 1 panic recovered, got %v", got)
	}
}
