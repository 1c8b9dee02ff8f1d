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

// Package suppression implements outage rules: (field, value) equality
// predicates with a TTL, stored in the external key/value store and
// periodically snapshotted into memory so workers never pay a per-message
// round trip to check them.
package suppression

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"occam/internal/occam/kv"
)

const blacklistKey = "blacklist"

// Snapshot is a worker's point-in-time, read-only view of active
// suppression rules: field -> set of suppressed values. Readers never
// coordinate with the refresher; a Snapshot is replaced wholesale.
type Snapshot map[string]map[string]struct{}

// Suppresses reports whether msg matches any (field, values) entry in the
// snapshot.
func (s Snapshot) Suppresses(msg map[string]any) bool {
	for field, values := range s {
		v, ok := msg[field]
		if !ok {
			continue
		}
		sv, ok := v.(string)
		if !ok {
			continue
		}
		if _, hit := values[sv]; hit {
			return true
		}
	}
	return false
}

// OutageID computes the deterministic suppression-record id for a
// (field, value) pair: the SHA1 hex digest of "field:value". This differs
// textually from a JSON-list digest of the pair, but Apply/Remove/
// FetchSnapshot all derive and consume the id through this same function,
// so the id space stays internally consistent; nothing outside this
// package ever computes or compares an id independently.
func OutageID(field, value string) string {
	sum := sha1.Sum([]byte(field + ":" + value))
	return hex.EncodeToString(sum[:])
}

// ParsePostBody splits a POST outage body's "field:value:hours" form.
func ParsePostBody(outage string) (field, value string, ttl time.Duration, err error) {
	parts := strings.Split(outage, ":")
	if len(parts) != 3 {
		return "", "", 0, errors.New("expected field:value:hours")
	}
	var hours float64
	if _, err := fmt.Sscanf(parts[2], "%g", &hours); err != nil {
		return "", "", 0, fmt.Errorf("invalid hours %q: %w", parts[2], err)
	}
	return parts[0], parts[1], time.Duration(hours * float64(time.Hour)), nil
}

// ParseDeleteBody splits a DELETE outage body's "field:value" form.
func ParseDeleteBody(outage string) (field, value string, err error) {
	parts := strings.Split(outage, ":")
	if len(parts) != 2 {
		return "", "", errors.New("expected field:value")
	}
	return parts[0], parts[1], nil
}

// Apply records a new outage: SETEX the "field:value" record, then add its
// id to the blacklist set.
func Apply(ctx context.Context, client kv.Client, field, value string, ttl time.Duration) error {
	id := OutageID(field, value)
	if err := client.SetEX(ctx, id, ttl, field+":"+value); err != nil {
		return fmt.Errorf("setex outage %s: %w", id, err)
	}
	if err := client.SetAdd(ctx, blacklistKey, id); err != nil {
		return fmt.Errorf("blacklist add %s: %w", id, err)
	}
	return nil
}

// Remove deletes the "field:value" record for an outage. Its id is left to
// be garbage-collected lazily from the blacklist set on the next refresh,
// not removed eagerly here.
func Remove(ctx context.Context, client kv.Client, field, value string) error {
	id := OutageID(field, value)
	if err := client.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete outage %s: %w", id, err)
	}
	return nil
}

// FetchSnapshot performs one synchronous read of the full suppression state
// from the store: list blacklist ids, fetch each, lazily evict dead ones.
// Used both by the periodic refresher (Index) and by the control API's
// GET / handler, which must report the live state, not a stale cache.
func FetchSnapshot(ctx context.Context, client kv.Client) (Snapshot, error) {
	ids, err := client.SetMembers(ctx, blacklistKey)
	if err != nil {
		return nil, fmt.Errorf("list blacklist: %w", err)
	}
	snap := make(Snapshot)
	for _, id := range ids {
		val, ok, err := client.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get outage %s: %w", id, err)
		}
		if !ok {
			if err := client.SetRemove(ctx, blacklistKey, id); err != nil {
				return nil, fmt.Errorf("gc blacklist %s: %w", id, err)
			}
			continue
		}
		parts := strings.SplitN(val, ":", 2)
		if len(parts) != 2 {
			continue
		}
		field, value := parts[0], parts[1]
		values, ok := snap[field]
		if !ok {
			values = make(map[string]struct{})
			snap[field] = values
		}
		values[value] = struct{}{}
	}
	return snap, nil
}

// Equal reports whether two snapshots hold the same (field, value) pairs,
// used by the refresher to decide whether a broadcast is warranted.
func Equal(a, b Snapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for field, avals := range a {
		bvals, ok := b[field]
		if !ok || len(avals) != len(bvals) {
			return false
		}
		for v := range avals {
			if _, ok := bvals[v]; !ok {
				return false
			}
		}
	}
	return true
}
