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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Defaults()
	if cfg.Redis != want.Redis || cfg.API != want.API || cfg.Occam != want.Occam {
		t.Fatalf("expected defaults unchanged, got %+v", cfg)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	if err != nil {
		t.Fatalf("expected a missing file to be tolerated, got %v", err)
	}
	if cfg.Redis.Addr() != "127.0.0.1:6379" {
		t.Fatalf("expected default redis addr, got %q", cfg.Redis.Addr())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "occam.ini")
	contents := `
[redis]
host = redis.internal
port = 6380

[api]
listen = 127.0.0.1
port = 9090

[occam]
batch_size = 250
poll_idle_sleep = 1s
dispatcher_pool_size = 5

[pagerduty]
payments = abc123

[hipchat]
oncall = 456_def789
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Redis.Host != "redis.internal" || cfg.Redis.Port != 6380 {
		t.Fatalf("redis section not applied: %+v", cfg.Redis)
	}
	if cfg.API.Addr() != "127.0.0.1:9090" {
		t.Fatalf("api section not applied: %+v", cfg.API)
	}
	if cfg.Occam.BatchSize != 250 {
		t.Fatalf("expected batch_size override, got %d", cfg.Occam.BatchSize)
	}
	if cfg.Occam.PollIdleSleep != time.Second {
		t.Fatalf("expected poll_idle_sleep override, got %v", cfg.Occam.PollIdleSleep)
	}
	if cfg.Occam.DispatcherPoolSize != 5 {
		t.Fatalf("expected dispatcher_pool_size override, got %d", cfg.Occam.DispatcherPoolSize)
	}
	// Unset occam keys keep their defaults.
	if cfg.Occam.WorkChannelMultiplier != 6 {
		t.Fatalf("expected untouched default to survive, got %d", cfg.Occam.WorkChannelMultiplier)
	}

	if cfg.PagerDuty["payments"] != "abc123" {
		t.Fatalf("expected pagerduty alias to be loaded, got %+v", cfg.PagerDuty)
	}
	if cfg.HipChat["oncall"] != "456_def789" {
		t.Fatalf("expected hipchat alias to be loaded, got %+v", cfg.HipChat)
	}
}

func TestLoadMalformedFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.ini")
	// An unterminated section header is invalid ini syntax.
	if err := os.WriteFile(path, []byte("[redis\nhost = x\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected malformed ini content to return an error")
	}
}
