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

// Package supervisor wires occam's components into a single running
// service and owns their startup order and graceful shutdown sequence.
package supervisor

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"occam/internal/occam/alert"
	"occam/internal/occam/config"
	"occam/internal/occam/controlapi"
	"occam/internal/occam/ingress"
	"occam/internal/occam/kv"
	"occam/internal/occam/rate"
	"occam/internal/occam/stats"
	"occam/internal/occam/suppression"
	"occam/internal/occam/worker"
	occam "occam/pkg/occam"
)

// Supervisor owns every long-lived component and the context that governs
// their lifetime.
type Supervisor struct {
	cfg    config.Config
	log    zerolog.Logger
	client *kv.RedisClient

	metrics    *stats.Metrics
	reg        *rate.Registry
	idx        *suppression.Index
	poller     *ingress.Poller
	dispatcher *alert.Dispatcher
	pool       *worker.Pool
	control    *controlapi.Server

	cancel context.CancelFunc
}

// New builds every component but starts nothing yet. buildProgram receives
// a bootstrap Primitives bound to the registry this supervisor will run
// with, so any Primitives.NewRate() call made while building the program
// binds its fingerprint to the real registry up front.
func New(cfg config.Config, buildProgram func(*occam.Primitives) worker.Program, sinks map[occam.SinkKind]alert.Sink, log zerolog.Logger) *Supervisor {
	client := kv.NewRedisClient(cfg.Redis.Addr(), cfg.Redis.Retry, log)

	metrics := stats.New(prometheus.DefaultRegisterer)
	reg := rate.NewRegistry(client, rate.DefaultOptions())
	idx := suppression.NewIndex(client, cfg.Occam.SuppressionRefreshInterval, log)

	workChCapacity := runtime.NumCPU() * cfg.Occam.WorkChannelMultiplier
	poller := ingress.NewPoller(client, workChCapacity, cfg.Occam.BatchSize, cfg.Occam.PollIdleSleep, metrics, log)

	dispatcher := alert.NewDispatcher(cfg.Occam.AlertQueueSize, cfg.Occam.DispatcherPoolSize, sinks, metrics, log)

	bootstrap := occam.NewPrimitives(reg, dispatcher)
	program := buildProgram(bootstrap)

	pool := worker.New(worker.Count(), poller.WorkCh, idx, reg, dispatcher, program, metrics, cfg.Occam.WorkerReceiveTimeout, log)

	control := controlapi.New(client, log)

	return &Supervisor{
		cfg:        cfg,
		log:        log,
		client:     client,
		metrics:    metrics,
		reg:        reg,
		idx:        idx,
		poller:     poller,
		dispatcher: dispatcher,
		pool:       pool,
		control:    control,
	}
}

// Run starts every component in order and blocks until ctx is cancelled,
// then runs the shutdown sequence: stop polling for new work, let workers
// drain the queue, stop the dispatcher, and return.
//
// Startup order: suppression refresher and worker pool come up first (a
// worker must have a suppression snapshot before it sees its first
// message), then the dispatcher pool, then the control API, and only once
// the first suppression sync has completed does the ingress poller begin
// pulling messages.
func (s *Supervisor) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	if err := s.client.Connect(runCtx); err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}

	go s.idx.Run(runCtx)
	s.pool.Start(runCtx)
	s.dispatcher.Start()
	go s.metrics.ReportThroughput(runCtx, s.poller.StatsCh, s.cfg.Occam.StatsWindow)

	go func() {
		if err := s.control.ListenAndServe(s.cfg.API.Addr()); err != nil {
			s.log.Error().Err(err).Msg("control api exited")
		}
	}()

	select {
	case <-s.idx.FirstSync():
	case <-runCtx.Done():
		return runCtx.Err()
	}

	pollerDone := make(chan struct{})
	go func() {
		s.poller.Run(runCtx)
		close(pollerDone)
	}()

	<-runCtx.Done()
	s.log.Info().Msg("shutting down")

	<-pollerDone
	s.pool.Stop()
	s.dispatcher.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := s.control.Shutdown(shutdownCtx); err != nil {
		s.log.Warn().Err(err).Msg("control api shutdown failed")
	}

	return nil
}

// Shutdown cancels the run context, triggering the sequence above. Safe to
// call once Run has been invoked.
func (s *Supervisor) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}
