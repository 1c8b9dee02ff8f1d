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

package controlapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"occam/internal/occam/kv"
)

func postOutage(t *testing.T, s *Server, outage string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(outageBody{Outage: outage})
	if err != nil {
		t.Fatalf("marshal outage body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func deleteOutage(t *testing.T, s *Server, outage string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(outageBody{Outage: outage})
	if err != nil {
		t.Fatalf("marshal outage body: %v", err)
	}
	req := httptest.NewRequest(http.MethodDelete, "/", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleStatusReportsActiveOutages(t *testing.T) {
	client := kv.NewFake()
	s := New(client, zerolog.Nop())

	w := postOutage(t, s, "region:us-east-1:1")
	if !strings.HasPrefix(w.Body.String(), "Request Received - POST: ") {
		t.Fatalf("expected a Request Received response, got %q", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from status, got %d", w.Code)
	}

	var resp statusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OccamStartTime == "" {
		t.Fatal("expected a non-empty start time")
	}
	outages, ok := resp.CurrentOutagesScheduled.(map[string]any)
	if !ok {
		t.Fatalf("expected a map of outages, got %#v", resp.CurrentOutagesScheduled)
	}
	values, ok := outages["region"].([]any)
	if !ok || len(values) != 1 || values[0] != "us-east-1" {
		t.Fatalf("expected region=us-east-1 to be listed, got %+v", outages)
	}
}

func TestHandleStatusReportsNoneWhenNothingSuppressed(t *testing.T) {
	client := kv.NewFake()
	s := New(client, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp statusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.CurrentOutagesScheduled != "None" {
		t.Fatalf(`expected "None", got %#v`, resp.CurrentOutagesScheduled)
	}
}

func TestHandleCreateOutageRejectsMalformedOutageValue(t *testing.T) {
	client := kv.NewFake()
	s := New(client, zerolog.Nop())

	w := postOutage(t, s, "not-enough-parts")
	if !strings.HasPrefix(w.Body.String(), "Request Error: ") {
		t.Fatalf("expected a Request Error response, got %q", w.Body.String())
	}
}

func TestHandleCreateOutageRejectsNonJSONBody(t *testing.T) {
	client := kv.NewFake()
	s := New(client, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("region:us-east-1:1"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if !strings.HasPrefix(w.Body.String(), "Request Error: ") {
		t.Fatalf("expected the raw (non-JSON) body to be rejected, got %q", w.Body.String())
	}
}

func TestHandleRemoveOutageLiftsIt(t *testing.T) {
	client := kv.NewFake()
	s := New(client, zerolog.Nop())

	if w := postOutage(t, s, "region:us-east-1:1"); !strings.HasPrefix(w.Body.String(), "Request Received") {
		t.Fatalf("setup: outage create failed: %q", w.Body.String())
	}

	w := deleteOutage(t, s, "region:us-east-1")
	if !strings.HasPrefix(w.Body.String(), "Request Received - DELETE: ") {
		t.Fatalf("expected a Request Received response, got %q", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var resp statusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.CurrentOutagesScheduled != "None" {
		t.Fatalf("expected the outage to be lifted, got %#v", resp.CurrentOutagesScheduled)
	}
}

func TestHandleRemoveOutageRejectsMalformedOutageValue(t *testing.T) {
	client := kv.NewFake()
	s := New(client, zerolog.Nop())

	w := deleteOutage(t, s, "missing-separator")
	if !strings.HasPrefix(w.Body.String(), "Request Error: ") {
		t.Fatalf("expected a Request Error response, got %q", w.Body.String())
	}
}

func TestUnsupportedMethodIsRejected(t *testing.T) {
	client := kv.NewFake()
	s := New(client, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Body.String() != "Request Invalid" {
		t.Fatalf("expected Request Invalid for an unsupported method, got %q", w.Body.String())
	}
}

func TestUnknownPathIsRejected(t *testing.T) {
	client := kv.NewFake()
	s := New(client, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Body.String() != "Request Invalid" {
		t.Fatalf("expected Request Invalid for an unknown path, got %q", w.Body.String())
	}
}

func TestMetricsEndpointIsMounted(t *testing.T) {
	client := kv.NewFake()
	s := New(client, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected /metrics to respond 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatal("expected the default process collector output on /metrics")
	}
}
