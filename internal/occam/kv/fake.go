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

package kv

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Fake is an in-process Client used by tests that exercise rate, suppression,
// and ingress logic without a live Redis, the same way persistence adapters
// are usually tested against an in-memory fake rather than a live backend.
type Fake struct {
	mu       sync.Mutex
	lists    map[string][][]byte
	zsets    map[string]map[string]float64
	sets     map[string]map[string]struct{}
	strings  map[string]fakeString
	pingErr  error
}

type fakeString struct {
	value   string
	expires time.Time
	hasTTL  bool
}

func NewFake() *Fake {
	return &Fake{
		lists:   make(map[string][][]byte),
		zsets:   make(map[string]map[string]float64),
		sets:    make(map[string]map[string]struct{}),
		strings: make(map[string]fakeString),
	}
}

// PushMessages is a test helper simulating an external producer appending to
// the messages list.
func (f *Fake) PushMessages(key string, msgs ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[key] = append(f.lists[key], msgs...)
}

func (f *Fake) ListLen(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lists[key])
}

// SetPingError makes Ping fail until cleared, to exercise reconnect logic.
func (f *Fake) SetPingError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

func (f *Fake) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *Fake) PopMessageBatch(ctx context.Context, key string, limit int64) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.lists[key]
	if len(l) == 0 {
		return nil, nil
	}
	n := limit
	if int64(len(l)) < n {
		n = int64(len(l))
	}
	batch := make([][]byte, n)
	copy(batch, l[:n])
	f.lists[key] = l[n:]
	return batch, nil
}

func (f *Fake) SSetTrimByScore(ctx context.Context, key string, min, max float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	z := f.zsets[key]
	for member, score := range z {
		if score >= min && score <= max {
			delete(z, member)
		}
	}
	return nil
}

func (f *Fake) SSetAdd(ctx context.Context, key string, score float64, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	z, ok := f.zsets[key]
	if !ok {
		z = make(map[string]float64)
		f.zsets[key] = z
	}
	z[member] = score
	return nil
}

func (f *Fake) SSetCard(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.zsets[key])), nil
}

func (f *Fake) SetMembers(ctx context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sets[key]
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (f *Fake) SetAdd(ctx context.Context, key string, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sets[key]
	if !ok {
		s = make(map[string]struct{})
		f.sets[key] = s
	}
	s[member] = struct{}{}
	return nil
}

func (f *Fake) SetRemove(ctx context.Context, key string, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sets[key], member)
	return nil
}

func (f *Fake) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.strings[key]
	if !ok {
		return "", false, nil
	}
	if v.hasTTL && time.Now().After(v.expires) {
		delete(f.strings, key)
		return "", false, nil
	}
	return v.value, true, nil
}

func (f *Fake) SetEX(ctx context.Context, key string, ttl time.Duration, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strings[key] = fakeString{value: value, expires: time.Now().Add(ttl), hasTTL: true}
	return nil
}

func (f *Fake) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.strings, key)
	delete(f.zsets, key)
	delete(f.sets, key)
	return nil
}

var _ Client = (*Fake)(nil)
