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

package match

import "testing"

func TestEq(t *testing.T) {
	msg := map[string]any{"status": "error", "code": float64(500)}

	if !Eq(msg, "status", "error") {
		t.Error("expected status=error to match")
	}
	if Eq(msg, "status", "ok") {
		t.Error("expected status=ok to not match")
	}
	if Eq(msg, "missing", "anything") {
		t.Error("expected a missing field to never match")
	}
	if !Eq(msg, "code", "500") {
		t.Error("expected a non-string JSON value to compare against its JSON encoding")
	}
}

func TestRegex(t *testing.T) {
	msg := map[string]any{"message": "connection refused on port 8080"}

	ok, err := Regex(msg, "message", `port \d+`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected pattern to match")
	}

	ok, err = Regex(msg, "message", `^refused`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected anchored pattern to not match mid-string")
	}

	ok, err = Regex(msg, "missing", `.*`)
	if err != nil {
		t.Fatalf("unexpected error on missing field: %v", err)
	}
	if ok {
		t.Error("expected a missing field to never match")
	}
}

func TestRegexCompileError(t *testing.T) {
	msg := map[string]any{"message": "hello"}
	_, err := Regex(msg, "message", `(unclosed`)
	if err == nil {
		t.Fatal("expected a compile error for an invalid pattern")
	}
}

func TestRegexCachesCompiledPattern(t *testing.T) {
	msg := map[string]any{"message": "hello world"}
	pattern := `hello`

	if _, err := Regex(msg, "message", pattern); err != nil {
		t.Fatalf("first call: %v", err)
	}
	first, ok := patternCache.Load(pattern)
	if !ok {
		t.Fatal("expected pattern to be cached after first use")
	}
	if _, err := Regex(msg, "message", pattern); err != nil {
		t.Fatalf("second call: %v", err)
	}
	second, _ := patternCache.Load(pattern)
	if first != second {
		t.Fatal("expected the cached compiled regexp to be reused, not recompiled")
	}
}
