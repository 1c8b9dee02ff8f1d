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

// Package rate implements the sliding-window rate primitive: a sorted-set
// counter in the external key/value store, shared across all workers.
package rate

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"occam/internal/occam/kv"
)

// Options configures a Registry. ResetOnTrip gives "fire once per burst"
// behavior (the sliding-window set is deleted when threshold is reached);
// setting it false leaves the window intact so the check continues to
// report true on every subsequent admission until entries age out.
type Options struct {
	ResetOnTrip bool
}

// DefaultOptions resets the window on trip.
func DefaultOptions() Options { return Options{ResetOnTrip: true} }

// Registry implements the rate sliding-window primitive against a kv.Client.
type Registry struct {
	client kv.Client
	opts   Options
	now    func() time.Time
}

func NewRegistry(client kv.Client, opts Options) *Registry {
	return &Registry{client: client, opts: opts, now: time.Now}
}

// DeriveFingerprint computes the deterministic sorted-set key for a rate
// call-site, optionally extended by a per-message key value. file and line
// identify the call site (normally captured once via runtime.Caller at rule
// construction time, see pkg/occam.Primitives.NewRate).
func DeriveFingerprint(file string, line int, key string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d", file, line)))
	fp := "rate-" + hex.EncodeToString(sum[:])
	if key != "" {
		fp += "-" + key
	}
	return fp
}

// Check trims entries older than window, adds the current arrival, reads
// the resulting cardinality, and — if at or above threshold — deletes the
// set (when opts.ResetOnTrip) and reports true.
func (r *Registry) Check(ctx context.Context, fingerprint string, threshold int64, window time.Duration) (bool, error) {
	now := r.now()
	nowSecs := float64(now.UnixNano()) / 1e9
	cutoff := nowSecs - window.Seconds()

	if err := r.client.SSetTrimByScore(ctx, fingerprint, math.Inf(-1), cutoff); err != nil {
		return false, fmt.Errorf("trim rate window %s: %w", fingerprint, err)
	}
	member := fmt.Sprintf("%d", now.UnixNano())
	if err := r.client.SSetAdd(ctx, fingerprint, nowSecs, member); err != nil {
		return false, fmt.Errorf("admit rate window %s: %w", fingerprint, err)
	}
	card, err := r.client.SSetCard(ctx, fingerprint)
	if err != nil {
		return false, fmt.Errorf("card rate window %s: %w", fingerprint, err)
	}
	if card >= threshold {
		if r.opts.ResetOnTrip {
			if err := r.client.Delete(ctx, fingerprint); err != nil {
				return false, fmt.Errorf("delete tripped rate window %s: %w", fingerprint, err)
			}
		}
		return true, nil
	}
	return false, nil
}
