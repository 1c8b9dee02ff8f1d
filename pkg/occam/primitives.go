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

package occam

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/prometheus/client_golang/prometheus"

	"occam/internal/occam/match"
	"occam/internal/occam/rate"
)

// Primitives is the set of match/rate/emit operations a Rule calls. One
// Primitives is constructed per worker goroutine; it is cheap (it only
// closes over that worker's alert queue and the shared rate registry) and
// deliberately carries no package-level globals.
type Primitives struct {
	reg     *rate.Registry
	queue   Queue
	emitted *prometheus.CounterVec
}

// NewPrimitives builds a Primitives bound to reg (the shared, KV-backed rate
// registry) and queue (this worker's alert-enqueue handle).
func NewPrimitives(reg *rate.Registry, queue Queue) *Primitives {
	return &Primitives{reg: reg, queue: queue}
}

// NewPrimitivesWithMetrics is NewPrimitives extended with an emitted-alert
// counter, used by the worker pool so every emit call is observable.
func NewPrimitivesWithMetrics(reg *rate.Registry, queue Queue, emitted *prometheus.CounterVec) *Primitives {
	return &Primitives{reg: reg, queue: queue, emitted: emitted}
}

func (p *Primitives) countEmit(kind SinkKind) {
	if p.emitted != nil {
		p.emitted.WithLabelValues(string(kind)).Inc()
	}
}

// MatchEq reports whether field is present in msg and equals value.
func (p *Primitives) MatchEq(msg Message, field, value string) bool {
	return match.Eq(msg, field, value)
}

// MatchRegex reports whether field is present in msg and pattern finds a
// match in its string form. Patterns are compiled on first use and cached
// process-wide.
func (p *Primitives) MatchRegex(msg Message, field, pattern string) (bool, error) {
	return match.Regex(msg, field, pattern)
}

// RateCheck is a value bound, once, to the source position of the NewRate
// call that created it. The fingerprint never changes across calls to
// Check, and two RateChecks constructed from different source lines never
// collide; there is no source-rewrite step involved, just a call-site
// capture at construction time.
type RateCheck struct {
	fingerprint string
	reg         *rate.Registry
}

// NewRate binds a fresh RateCheck to the call site of this call (not of
// Check/CheckKeyed). Construct it once, in a Rule's constructor, and reuse
// the returned value for every message.
func (p *Primitives) NewRate() *RateCheck {
	_, file, line, _ := runtime.Caller(1)
	return &RateCheck{fingerprint: rate.DeriveFingerprint(file, line, ""), reg: p.reg}
}

// Check reports whether threshold arrivals have been observed within window
// at this call site.
func (r *RateCheck) Check(ctx context.Context, threshold int64, window time.Duration) (bool, error) {
	return r.reg.Check(ctx, r.fingerprint, threshold, window)
}

// CheckKeyed is Check extended with a per-message key, so distinct key
// values at the same call site are tracked independently. A missing field
// falls back to the literal "dummy" key.
func (r *RateCheck) CheckKeyed(ctx context.Context, msg Message, field string, threshold int64, window time.Duration) (bool, error) {
	keyVal, ok := stringField(msg, field)
	if !ok {
		keyVal = "dummy"
	}
	fp := r.fingerprint + "-" + keyVal
	return r.reg.Check(ctx, fp, threshold, window)
}

// EmitConsole enqueues an alert bound for the console sink.
func (p *Primitives) EmitConsole(msg Message) {
	p.queue.Enqueue(Alert{ID: uuid.NewString(), Kind: SinkConsole, Message: msg})
	p.countEmit(SinkConsole)
}

// EmitChat enqueues an alert bound for the chat (HipChat-style) sink. roomAlias
// selects the entry of the [hipchat] config section to use.
func (p *Primitives) EmitChat(msg Message, roomAlias string) {
	p.queue.Enqueue(Alert{ID: uuid.NewString(), Kind: SinkChat, Message: msg, Params: AlertParams{RoomAlias: roomAlias}})
	p.countEmit(SinkChat)
}

// EmitIncident enqueues an alert bound for the incident-tracker sink.
// serviceAlias selects the entry of the [pagerduty] config section; incidentKey, if
// non-empty, is used to de-duplicate/update an existing incident.
func (p *Primitives) EmitIncident(msg Message, serviceAlias, incidentKey string) {
	p.queue.Enqueue(Alert{
		ID:      uuid.NewString(),
		Kind:    SinkIncident,
		Message: msg,
		Params:  AlertParams{ServiceAlias: serviceAlias, IncidentKey: incidentKey},
	})
	p.countEmit(SinkIncident)
}

// Fingerprint exposes the bound call-site fingerprint, mainly so tests can
// assert that two RateChecks constructed from different source lines never
// collide.
func (r *RateCheck) Fingerprint() string { return r.fingerprint }
