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

// Package match implements the stateless per-message match primitives:
// field equality and regex search. Regex patterns are compiled on first use
// and cached in a sync.Map, the usual avoid-the-mutex idiom for a hot-path
// read-mostly lookup table.
package match

import (
	"encoding/json"
	"regexp"
	"sync"
)

// Eq reports whether field is present in msg and its string form equals
// value. Non-string JSON values are compared against their default JSON
// encoding, a loose equality that tolerates numbers and bools as values.
func Eq(msg map[string]any, field, value string) bool {
	s, ok := stringField(msg, field)
	return ok && s == value
}

// patternCache holds compiled regexes keyed by pattern source. Patterns are
// compiled once across the whole process, shared by every worker goroutine.
var patternCache sync.Map // map[string]*regexp.Regexp

// Regex reports whether field is present in msg and the compiled pattern
// finds a match anywhere in its string form. The first error return is a
// pattern compile failure, which the caller should treat as a rule error,
// not a silent skip.
func Regex(msg map[string]any, field, pattern string) (bool, error) {
	s, ok := stringField(msg, field)
	if !ok {
		return false, nil
	}
	re, err := compiled(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

func compiled(pattern string) (*regexp.Regexp, error) {
	if v, ok := patternCache.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	actual, _ := patternCache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

func stringField(msg map[string]any, field string) (string, bool) {
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
