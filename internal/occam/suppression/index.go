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

package suppression

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"occam/internal/occam/kv"
)

// Index is the background refresher: on a fixed interval it rebuilds a
// Snapshot from the store and, if it differs from the last broadcast
// snapshot, pushes it to every worker's broadcast channel. The loop shape
// is the familiar ticker/select worker loop, adapted here to a
// diff-and-broadcast decision instead of a commit-on-threshold one.
type Index struct {
	client   kv.Client
	interval time.Duration
	log      zerolog.Logger

	mu        sync.Mutex
	listeners []*Broadcaster
	last      Snapshot

	firstSync     chan struct{}
	firstSyncOnce sync.Once
}

// NewIndex builds a refresher. interval is the suppression_refresh_interval
// config value (5s by default).
func NewIndex(client kv.Client, interval time.Duration, log zerolog.Logger) *Index {
	return &Index{
		client:    client,
		interval:  interval,
		log:       log,
		last:      make(Snapshot),
		firstSync: make(chan struct{}),
	}
}

// NewWorkerBroadcaster registers and returns a new keep-latest broadcast
// channel for one worker. Call this once per worker before Run starts.
func (idx *Index) NewWorkerBroadcaster() *Broadcaster {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	b := newBroadcaster()
	idx.listeners = append(idx.listeners, b)
	return b
}

// FirstSync returns a channel closed once the first refresh cycle has
// completed, so startup can wait on a real signal instead of a fixed sleep.
func (idx *Index) FirstSync() <-chan struct{} {
	return idx.firstSync
}

// Run executes refresh cycles on a fixed ticker until ctx is cancelled.
func (idx *Index) Run(ctx context.Context) {
	ticker := time.NewTicker(idx.interval)
	defer ticker.Stop()

	idx.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			idx.refresh(ctx)
		}
	}
}

func (idx *Index) refresh(ctx context.Context) {
	snap, err := FetchSnapshot(ctx, idx.client)
	if err != nil {
		idx.log.Warn().Err(err).Msg("suppression refresh failed")
		idx.firstSyncOnce.Do(func() { close(idx.firstSync) })
		return
	}

	idx.mu.Lock()
	changed := !Equal(snap, idx.last)
	if changed {
		idx.last = snap
	}
	listeners := append([]*Broadcaster(nil), idx.listeners...)
	idx.mu.Unlock()

	if changed {
		for _, b := range listeners {
			b.publish(snap)
		}
		idx.log.Debug().Int("fields", len(snap)).Msg("suppression snapshot updated")
	}
	idx.firstSyncOnce.Do(func() { close(idx.firstSync) })
}

// Broadcaster is a capacity-1 "keep latest" channel: publish never blocks,
// and a receiver that drains it always sees the most recently published
// snapshot, never a stale queue of intermediate ones — behaviorally
// equivalent to a shared atomic-swap of an immutable map.
type Broadcaster struct {
	ch chan Snapshot
}

func newBroadcaster() *Broadcaster {
	return &Broadcaster{ch: make(chan Snapshot, 1)}
}

func (b *Broadcaster) publish(s Snapshot) {
	for {
		select {
		case b.ch <- s:
			return
		default:
			// Drain the stale pending value, then retry the send.
			select {
			case <-b.ch:
			default:
			}
		}
	}
}

// TryRecv performs the worker's non-blocking drain: it returns the most
// recently published snapshot and true, or false if nothing new arrived.
func (b *Broadcaster) TryRecv() (Snapshot, bool) {
	select {
	case s := <-b.ch:
		return s, true
	default:
		return nil, false
	}
}
