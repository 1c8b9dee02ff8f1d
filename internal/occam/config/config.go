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

// Package config loads occam's ini-style configuration file
// (sections redis, api, pagerduty, hipchat, occam), following the
// defaults-then-override shape of go-server-3/internal/config.Load, adapted
// from viper to gopkg.in/ini.v1 for a plain key-value config file.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Config is occam's full runtime configuration.
type Config struct {
	Redis      RedisConfig
	API        APIConfig
	Occam      RuntimeConfig
	PagerDuty  map[string]string // alias -> service key
	HipChat    map[string]string // alias -> "room_id_authtoken"
}

type RedisConfig struct {
	Host  string
	Port  int
	Retry time.Duration
}

func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%d", r.Host, r.Port) }

type APIConfig struct {
	Listen string
	Port   int
}

func (a APIConfig) Addr() string { return fmt.Sprintf("%s:%d", a.Listen, a.Port) }

// RuntimeConfig holds the knobs specific to occam's own runtime that have
// no equivalent section in the original ini file: channel sizing, poll
// cadence, dispatcher pool size, and the stats window.
type RuntimeConfig struct {
	WorkChannelMultiplier      int
	BatchSize                  int64
	PollIdleSleep              time.Duration
	WorkerReceiveTimeout       time.Duration
	SuppressionRefreshInterval time.Duration
	DispatcherPoolSize         int
	AlertQueueSize             int
	StatsWindow                time.Duration
}

// Defaults returns occam's out-of-the-box runtime configuration.
func Defaults() Config {
	return Config{
		Redis: RedisConfig{Host: "127.0.0.1", Port: 6379, Retry: 10 * time.Second},
		API:   APIConfig{Listen: "0.0.0.0", Port: 8080},
		Occam: RuntimeConfig{
			WorkChannelMultiplier:      6,
			BatchSize:                 100,
			PollIdleSleep:              3 * time.Second,
			WorkerReceiveTimeout:       3 * time.Second,
			SuppressionRefreshInterval: 5 * time.Second,
			DispatcherPoolSize:         3,
			AlertQueueSize:             4096,
			StatsWindow:                5 * time.Second,
		},
		PagerDuty: map[string]string{},
		HipChat:   map[string]string{},
	}
}

// Load reads path (an ini file) over top of Defaults. A missing file is not
// an error: occam runs with defaults, matching the usual pattern of flags
// that double as production-ready knobs with sane fallbacks.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	f, err := ini.LoadSources(ini.LoadOptions{Loose: true, AllowShadows: true}, path)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if sec := f.Section("redis"); sec != nil {
		if v := sec.Key("host").String(); v != "" {
			cfg.Redis.Host = v
		}
		if v, err := sec.Key("port").Int(); err == nil && v != 0 {
			cfg.Redis.Port = v
		}
		if v, err := sec.Key("retry").Int(); err == nil && v != 0 {
			cfg.Redis.Retry = time.Duration(v) * time.Second
		}
	}
	if sec := f.Section("api"); sec != nil {
		if v := sec.Key("listen").String(); v != "" {
			cfg.API.Listen = v
		}
		if v, err := sec.Key("port").Int(); err == nil && v != 0 {
			cfg.API.Port = v
		}
	}
	if sec := f.Section("occam"); sec != nil {
		if v, err := sec.Key("work_channel_multiplier").Int(); err == nil && v != 0 {
			cfg.Occam.WorkChannelMultiplier = v
		}
		if v, err := sec.Key("batch_size").Int64(); err == nil && v != 0 {
			cfg.Occam.BatchSize = v
		}
		if v, err := sec.Key("poll_idle_sleep").Duration(); err == nil && v != 0 {
			cfg.Occam.PollIdleSleep = v
		}
		if v, err := sec.Key("worker_receive_timeout").Duration(); err == nil && v != 0 {
			cfg.Occam.WorkerReceiveTimeout = v
		}
		if v, err := sec.Key("suppression_refresh_interval").Duration(); err == nil && v != 0 {
			cfg.Occam.SuppressionRefreshInterval = v
		}
		if v, err := sec.Key("dispatcher_pool_size").Int(); err == nil && v != 0 {
			cfg.Occam.DispatcherPoolSize = v
		}
		if v, err := sec.Key("alert_queue_size").Int(); err == nil && v != 0 {
			cfg.Occam.AlertQueueSize = v
		}
		if v, err := sec.Key("stats_window").Duration(); err == nil && v != 0 {
			cfg.Occam.StatsWindow = v
		}
	}
	if sec := f.Section("pagerduty"); sec != nil {
		for _, k := range sec.Keys() {
			cfg.PagerDuty[k.Name()] = k.String()
		}
	}
	if sec := f.Section("hipchat"); sec != nil {
		for _, k := range sec.Keys() {
			cfg.HipChat[k.Name()] = k.String()
		}
	}

	return cfg, nil
}
