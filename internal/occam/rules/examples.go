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

// Package rules holds occam's compiled-in rule program: the set of Rule
// implementations the worker pool runs against every non-suppressed
// message. New rules are added here and wired into Program in
// cmd/occam/main.go.
package rules

import (
	"context"
	"time"

	occam "occam/pkg/occam"
)

// FieldEquals emits to the console sink when field equals value.
type FieldEquals struct {
	Field string
	Value string
}

func (r FieldEquals) Run(ctx context.Context, msg occam.Message, p *occam.Primitives) error {
	if p.MatchEq(msg, r.Field, r.Value) {
		p.EmitConsole(msg)
	}
	return nil
}

// BurstAlert emits once every time threshold messages arrive within
// window, then resets: a classic "alert on a burst" rule. rate must come
// from a call to Primitives.NewRate() made directly at this rule's
// registration site (not forwarded through a helper), so its fingerprint
// is unique to that site.
type BurstAlert struct {
	threshold int64
	window    time.Duration
	rate      *occam.RateCheck
}

func NewBurstAlert(rate *occam.RateCheck, threshold int64, window time.Duration) *BurstAlert {
	return &BurstAlert{rate: rate, threshold: threshold, window: window}
}

func (r *BurstAlert) Run(ctx context.Context, msg occam.Message, p *occam.Primitives) error {
	tripped, err := r.rate.Check(ctx, r.threshold, r.window)
	if err != nil {
		return err
	}
	if tripped {
		p.EmitConsole(msg)
	}
	return nil
}

// KeyedBurstAlert is BurstAlert with a per-key counter: each distinct
// value of Field is tracked independently at this call site. Like
// BurstAlert, rate must be captured with Primitives.NewRate() directly at
// the registration site.
type KeyedBurstAlert struct {
	field     string
	threshold int64
	window    time.Duration
	rate      *occam.RateCheck
}

func NewKeyedBurstAlert(rate *occam.RateCheck, field string, threshold int64, window time.Duration) *KeyedBurstAlert {
	return &KeyedBurstAlert{rate: rate, field: field, threshold: threshold, window: window}
}

func (r *KeyedBurstAlert) Run(ctx context.Context, msg occam.Message, p *occam.Primitives) error {
	tripped, err := r.rate.CheckKeyed(ctx, msg, r.field, r.threshold, r.window)
	if err != nil {
		return err
	}
	if tripped {
		p.EmitConsole(msg)
	}
	return nil
}
