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
	"testing"
	"time"

	"occam/internal/occam/kv"
)

func TestParsePostBody(t *testing.T) {
	field, value, ttl, err := ParsePostBody("region:us-east-1:2.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if field != "region" || value != "us-east-1" {
		t.Fatalf("got field=%q value=%q", field, value)
	}
	if ttl != 150*time.Minute {
		t.Fatalf("got ttl=%v, want 2.5h", ttl)
	}

	if _, _, _, err := ParsePostBody("missing-parts"); err == nil {
		t.Fatal("expected an error for a malformed body")
	}
}

func TestParseDeleteBody(t *testing.T) {
	field, value, err := ParseDeleteBody("region:us-east-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if field != "region" || value != "us-east-1" {
		t.Fatalf("got field=%q value=%q", field, value)
	}

	if _, _, err := ParseDeleteBody("region:us-east-1:extra"); err == nil {
		t.Fatal("expected an error for a malformed delete body")
	}
}

func TestApplyAndFetchSnapshot(t *testing.T) {
	client := kv.NewFake()
	ctx := context.Background()

	if err := Apply(ctx, client, "region", "us-east-1", time.Hour); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := Apply(ctx, client, "region", "us-west-2", time.Hour); err != nil {
		t.Fatalf("apply: %v", err)
	}

	snap, err := FetchSnapshot(ctx, client)
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if !snap.Suppresses(map[string]any{"region": "us-east-1"}) {
		t.Error("expected us-east-1 to be suppressed")
	}
	if !snap.Suppresses(map[string]any{"region": "us-west-2"}) {
		t.Error("expected us-west-2 to be suppressed")
	}
	if snap.Suppresses(map[string]any{"region": "eu-west-1"}) {
		t.Error("expected eu-west-1 to not be suppressed")
	}
}

func TestRemoveLiftsOutage(t *testing.T) {
	client := kv.NewFake()
	ctx := context.Background()

	if err := Apply(ctx, client, "region", "us-east-1", time.Hour); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := Remove(ctx, client, "region", "us-east-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	snap, err := FetchSnapshot(ctx, client)
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if snap.Suppresses(map[string]any{"region": "us-east-1"}) {
		t.Error("expected outage to be lifted")
	}
}

func TestFetchSnapshotGCsDeadBlacklistEntries(t *testing.T) {
	client := kv.NewFake()
	ctx := context.Background()

	if err := Apply(ctx, client, "region", "us-east-1", time.Hour); err != nil {
		t.Fatalf("apply: %v", err)
	}
	id := OutageID("region", "us-east-1")
	// Simulate the record expiring out from under the blacklist set.
	if err := client.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	snap, err := FetchSnapshot(ctx, client)
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if len(snap) != 0 {
		t.Fatalf("expected empty snapshot after gc, got %v", snap)
	}
	members, err := client.SetMembers(ctx, blacklistKey)
	if err != nil {
		t.Fatalf("set members: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected dead entry to be gc'd from blacklist, got %v", members)
	}
}

func TestEqual(t *testing.T) {
	a := Snapshot{"region": {"us-east-1": {}, "us-west-2": {}}}
	b := Snapshot{"region": {"us-east-1": {}, "us-west-2": {}}}
	c := Snapshot{"region": {"us-east-1": {}}}

	if !Equal(a, b) {
		t.Error("expected equal snapshots to compare equal")
	}
	if Equal(a, c) {
		t.Error("expected snapshots with different value sets to compare unequal")
	}
	if Equal(a, Snapshot{}) {
		t.Error("expected a non-empty snapshot to not equal an empty one")
	}
}
