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

// Package kv is a thin adapter over the external key/value store occam uses
// for the message queue, suppression records, and rate sliding windows. It
// exposes only the operations occam's runtime actually issues, so callers
// can be swapped for a fake in tests without pulling in a Redis server.
package kv

import (
	"context"
	"time"
)

// Client is the minimal key/value surface occam depends on. All operations
// may fail with a transient connectivity error; callers are responsible for
// retry policy (the ingress poller and Connect reconnect, data operations
// elsewhere surface the error to the caller).
type Client interface {
	// PopMessageBatch atomically (in one pipelined round trip) returns up to
	// limit entries from the head of the list at key and trims the list so
	// those entries are not returned again.
	PopMessageBatch(ctx context.Context, key string, limit int64) ([][]byte, error)

	// SSetTrimByScore removes members of the sorted set at key with score in
	// [min, max].
	SSetTrimByScore(ctx context.Context, key string, min, max float64) error
	// SSetAdd adds a single member to the sorted set at key with the given score.
	SSetAdd(ctx context.Context, key string, score float64, member string) error
	// SSetCard returns the cardinality of the sorted set at key.
	SSetCard(ctx context.Context, key string) (int64, error)

	// SetMembers returns all members of the set at key.
	SetMembers(ctx context.Context, key string) ([]string, error)
	// SetAdd adds member to the set at key.
	SetAdd(ctx context.Context, key string, member string) error
	// SetRemove removes member from the set at key.
	SetRemove(ctx context.Context, key string, member string) error

	// Get returns the string value at key, or ("", false, nil) if absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// SetEX sets key to value with the given TTL.
	SetEX(ctx context.Context, key string, ttl time.Duration, value string) error
	// Delete removes key (and, for sorted sets/sets, the whole structure).
	Delete(ctx context.Context, key string) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error
}
