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

// Package stats exposes occam's Prometheus counters and gauges, and a
// reporter goroutine that turns the ingress poller's raw message counts
// into a measured throughput gauge.
package stats

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is occam's full set of first-class counters and gauges. One
// instance is built per process and threaded through the components that
// observe it; there is no package-level global registry beyond the
// default Prometheus one these metrics register into.
type Metrics struct {
	MessagesProcessedTotal prometheus.Counter
	MessagesDecodeErrors   prometheus.Counter
	MessagesSuppressed     prometheus.Counter
	RulePanicsTotal        prometheus.Counter
	AlertsEmittedTotal     *prometheus.CounterVec
	AlertsDeliveredTotal   *prometheus.CounterVec
	AlertsDroppedTotal     prometheus.Counter
	WorkChannelDepth       prometheus.Gauge
	MessagesPerSecond      prometheus.Gauge
}

// New builds and registers a Metrics set against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesProcessedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "occam_messages_processed_total",
			Help: "Total messages evaluated against the rule program.",
		}),
		MessagesDecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "occam_messages_decode_errors_total",
			Help: "Total queue entries that failed JSON decoding and were skipped.",
		}),
		MessagesSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "occam_messages_suppressed_total",
			Help: "Total messages matched an active outage and were skipped.",
		}),
		RulePanicsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "occam_rule_panics_total",
			Help: "Total recovered panics from rule evaluation.",
		}),
		AlertsEmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "occam_alerts_emitted_total",
			Help: "Total alerts enqueued by rules, by sink kind.",
		}, []string{"kind"}),
		AlertsDeliveredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "occam_alerts_delivered_total",
			Help: "Total alerts delivered by a sink, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		AlertsDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "occam_alerts_dropped_total",
			Help: "Total alerts dropped because the dispatch queue was full.",
		}),
		WorkChannelDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "occam_work_channel_depth",
			Help: "Current number of pending batches on the ingress work channel.",
		}),
		MessagesPerSecond: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "occam_messages_per_second",
			Help: "Measured ingress throughput over the most recent reporting window.",
		}),
	}
	reg.MustRegister(
		m.MessagesProcessedTotal,
		m.MessagesDecodeErrors,
		m.MessagesSuppressed,
		m.RulePanicsTotal,
		m.AlertsEmittedTotal,
		m.AlertsDeliveredTotal,
		m.AlertsDroppedTotal,
		m.WorkChannelDepth,
		m.MessagesPerSecond,
	)
	return m
}

// ReportThroughput drains statsCh (the ingress poller's per-batch message
// counts) and updates MessagesPerSecond once per window, until ctx is
// cancelled. A batch count arriving mid-window is accumulated, not
// dropped; the gauge only moves at window boundaries. The rate is the
// accumulated count divided by the measured time since the previous
// boundary, not by the nominal window.
func (m *Metrics) ReportThroughput(ctx context.Context, statsCh <-chan int, window time.Duration) {
	ticker := time.NewTicker(window)
	defer ticker.Stop()

	var count int
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-statsCh:
			count += n
		case now := <-ticker.C:
			if elapsed := now.Sub(last).Seconds(); elapsed > 0 {
				m.MessagesPerSecond.Set(float64(count) / elapsed)
			}
			last = now
			count = 0
		}
	}
}
