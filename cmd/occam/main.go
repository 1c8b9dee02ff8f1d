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

// Package main is occam's entry point: it loads configuration, wires the
// rule program and sinks, and runs the supervisor until an OS signal
// requests shutdown.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	"occam/internal/occam/alert"
	"occam/internal/occam/config"
	"occam/internal/occam/logging"
	"occam/internal/occam/rules"
	"occam/internal/occam/supervisor"
	"occam/internal/occam/worker"
	occam "occam/pkg/occam"
)

func main() {
	configPath := flag.String("config", "", "path to the occam ini config file (optional, defaults apply if absent)")
	logLevel := flag.String("log_level", "info", "log level: debug, info, warn, error")
	logFormat := flag.String("log_format", "json", "log format: json or pretty")
	flag.Parse()

	log := logging.New(logging.Config{Level: *logLevel, Format: logging.Format(*logFormat)})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	sinks := buildSinks(cfg, log)

	sup := supervisor.New(cfg, buildProgram, sinks, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	if err := sup.Run(ctx); err != nil {
		log.Error().Err(err).Msg("supervisor exited with error")
		os.Exit(1)
	}
}

// buildSinks constructs the alert sinks from configuration. The console
// sink is always registered; chat and incident sinks are only registered
// if their respective config sections have entries.
func buildSinks(cfg config.Config, log zerolog.Logger) map[occam.SinkKind]alert.Sink {
	sinks := map[occam.SinkKind]alert.Sink{
		occam.SinkConsole: alert.NewConsoleSink(log),
	}

	if len(cfg.HipChat) > 0 {
		rooms := make(map[string]alert.ChatRoom, len(cfg.HipChat))
		for alias, raw := range cfg.HipChat {
			room, err := alert.ParseChatRoom(raw)
			if err != nil {
				log.Warn().Err(err).Str("alias", alias).Msg("skipping invalid hipchat room")
				continue
			}
			rooms[alias] = room
		}
		sinks[occam.SinkChat] = alert.NewChatSink(rooms, log)
	}

	if len(cfg.PagerDuty) > 0 {
		sinks[occam.SinkIncident] = alert.NewIncidentSink(cfg.PagerDuty, log)
	}

	return sinks
}

func buildProgram(p *occam.Primitives) worker.Program {
	return worker.Program{
		rules.FieldEquals{Field: "a", Value: "x"},
		rules.NewBurstAlert(p.NewRate(), 3, 60*time.Second),
		rules.NewKeyedBurstAlert(p.NewRate(), "user", 2, 60*time.Second),
	}
}
