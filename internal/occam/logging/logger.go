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

// Package logging builds occam's structured logger: JSON for production,
// a console writer for local development.
package logging

import (
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the logger's output encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatPretty Format = "pretty"
)

// Config holds logger construction options.
type Config struct {
	Level  string // debug, info, warn, error
	Format Format
}

// New builds a zerolog.Logger tagged with service=occam, a timestamp, and
// caller info.
//
// Example:
//
//	log := logging.New(logging.Config{Level: "info", Format: logging.FormatJSON})
//	log.Info().Int("worker", 3).Msg("worker started")
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if cfg.Format == FormatPretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).With().
		Timestamp().
		Caller().
		Str("service", "occam").
		Logger()
}

// LogPanic records a recovered panic with its stack trace. It is called
// inside a deferred recover() (the control API's handler middleware uses
// it), where the caller decides whether to continue or exit after logging.
func LogPanic(log zerolog.Logger, panicValue any, fields map[string]any) {
	event := log.Error().
		Interface("panic_value", panicValue).
		Str("stack_trace", string(debug.Stack()))
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg("recovered panic")
}
