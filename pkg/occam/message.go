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

// Package occam is the public surface externally-authored rule modules
// compile against: the Message type, the Rule entrypoint contract, and the
// Primitives a rule uses to match, rate-limit, and emit alerts. Nothing in
// this package talks to Redis or HTTP directly; it only defines the shape
// rule authors program to.
package occam

import "encoding/json"

// Message is a decoded JSON event. occam never interprets keys itself; it
// only performs the lookups and comparisons a Rule directs it to.
type Message map[string]any

// DecodeMessage parses one raw queue entry into a Message. A JSON decode
// failure is the caller's signal to skip the message rather than fail the
// whole batch.
func DecodeMessage(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// stringField returns the string form of msg[field] and whether the field
// was present at all. Non-string JSON values are rendered with their
// default JSON encoding so match_eq/match_regex can still compare against
// them.
func stringField(msg Message, field string) (string, bool) {
	v, ok := msg[field]
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}
