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

// Package controlapi implements occam's HTTP control surface: a GET for
// live status, a POST to schedule an outage, and a DELETE to lift one
// early. It also mounts the Prometheus handler.
package controlapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"occam/internal/occam/kv"
	"occam/internal/occam/logging"
	"occam/internal/occam/suppression"
)

// Server is occam's control-plane HTTP server.
type Server struct {
	client    kv.Client
	log       zerolog.Logger
	mux       *http.ServeMux
	http      *http.Server
	startTime time.Time
}

// New builds a Server and registers its routes.
func New(client kv.Client, log zerolog.Logger) *Server {
	s := &Server{client: client, log: log, mux: http.NewServeMux(), startTime: time.Now()}
	s.mux.HandleFunc("/metrics", promhttp.Handler().ServeHTTP)
	s.mux.HandleFunc("/", s.handleRoot)
	return s
}

func (s *Server) Handler() http.Handler { return s.recover(s.mux) }

// recover wraps h so a panic in any handler is logged with its stack trace
// and turned into a 500 instead of taking down the listener goroutine.
func (s *Server) recover(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.LogPanic(s.log, rec, map[string]any{"path": r.URL.Path, "method": r.Method})
				w.WriteHeader(http.StatusInternalServerError)
				s.writeText(w, "Request Invalid")
			}
		}()
		h.ServeHTTP(w, r)
	})
}

// ListenAndServe starts the HTTP server on addr and blocks until it exits
// or is shut down. Returns nil on a clean Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("control api listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// handleRoot dispatches on HTTP method at "/": GET reports live status,
// POST schedules an outage, DELETE lifts one. Any other path, or any other
// method on "/", gets the flat "Request Invalid" response.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeText(w, "Request Invalid")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleStatus(w, r)
	case http.MethodPost:
		s.handleCreateOutage(w, r)
	case http.MethodDelete:
		s.handleRemoveOutage(w, r)
	default:
		s.writeText(w, "Request Invalid")
	}
}

// writeText writes a plain-text body without disturbing a status code the
// caller may have already set (the control API's GET/POST/DELETE responses
// are plain text, not a REST-style status-per-outcome contract).
func (s *Server) writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

// statusResponse is occam's GET / body: the process start time and the
// live suppression snapshot, or the literal string "None" when nothing is
// currently suppressed.
type statusResponse struct {
	OccamStartTime          string `json:"Occam Start Time"`
	CurrentOutagesScheduled any    `json:"Current Outages Scheduled"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := suppression.FetchSnapshot(r.Context(), s.client)
	if err != nil {
		s.log.Warn().Err(err).Msg("status snapshot fetch failed")
		s.writeText(w, "Request Error: status fetch failed")
		return
	}
	outages := map[string][]string{}
	for field, values := range snap {
		for v := range values {
			outages[field] = append(outages[field], v)
		}
	}
	resp := statusResponse{OccamStartTime: s.startTime.UTC().Format(time.RFC3339)}
	if len(outages) == 0 {
		resp.CurrentOutagesScheduled = "None"
	} else {
		resp.CurrentOutagesScheduled = outages
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// outageBody is the wire shape of both the POST and DELETE bodies: the
// colon-delimited outage descriptor nested under "outage".
type outageBody struct {
	Outage string `json:"outage"`
}

func (s *Server) handleCreateOutage(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeText(w, "Request Error: "+string(raw))
		return
	}
	var body outageBody
	if err := json.Unmarshal(raw, &body); err != nil {
		s.log.Warn().Err(err).Str("body", string(raw)).Msg("invalid outage create body")
		s.writeText(w, "Request Error: "+string(raw))
		return
	}
	field, value, ttl, err := suppression.ParsePostBody(body.Outage)
	if err != nil {
		s.log.Warn().Err(err).Str("body", string(raw)).Msg("invalid outage create body")
		s.writeText(w, "Request Error: "+string(raw))
		return
	}
	if err := suppression.Apply(r.Context(), s.client, field, value, ttl); err != nil {
		s.log.Warn().Err(err).Msg("outage create failed")
		s.writeText(w, "Request Error: "+string(raw))
		return
	}
	s.writeText(w, "Request Received - POST: "+string(raw))
}

func (s *Server) handleRemoveOutage(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeText(w, "Request Error: "+string(raw))
		return
	}
	var body outageBody
	if err := json.Unmarshal(raw, &body); err != nil {
		s.log.Warn().Err(err).Str("body", string(raw)).Msg("invalid outage delete body")
		s.writeText(w, "Request Error: "+string(raw))
		return
	}
	field, value, err := suppression.ParseDeleteBody(body.Outage)
	if err != nil {
		s.log.Warn().Err(err).Str("body", string(raw)).Msg("invalid outage delete body")
		s.writeText(w, "Request Error: "+string(raw))
		return
	}
	if err := suppression.Remove(r.Context(), s.client, field, value); err != nil {
		s.log.Warn().Err(err).Msg("outage delete failed")
		s.writeText(w, "Request Error: "+string(raw))
		return
	}
	s.writeText(w, "Request Received - DELETE: "+string(raw))
}
