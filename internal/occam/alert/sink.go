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

package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	occam "occam/pkg/occam"
)

// ConsoleSink just logs the match.
type ConsoleSink struct {
	log zerolog.Logger
}

func NewConsoleSink(log zerolog.Logger) *ConsoleSink { return &ConsoleSink{log: log} }

func (s *ConsoleSink) Send(ctx context.Context, a occam.Alert) error {
	s.log.Info().Str("alert", a.ID).Interface("message", a.Message).Msg("event match")
	return nil
}

// httpClient is shared by the webhook sinks below. Each persistence
// adapter elsewhere in this module wraps a single external call the same
// minimal way, so net/http is used directly here too rather than pulling
// in a client wrapper library.
var httpClient = &http.Client{Timeout: 10 * time.Second}

// ChatRoom is one [hipchat] config entry: "<room_id>_<auth_token>".
type ChatRoom struct {
	RoomID    string
	AuthToken string
}

// ChatSink posts to a chat-room webhook: build the notification body,
// POST with the auth token as a query param, fail on a non-2xx response.
type ChatSink struct {
	rooms map[string]ChatRoom
	log   zerolog.Logger
}

func NewChatSink(rooms map[string]ChatRoom, log zerolog.Logger) *ChatSink {
	return &ChatSink{rooms: rooms, log: log}
}

func (s *ChatSink) Send(ctx context.Context, a occam.Alert) error {
	room, ok := s.rooms[a.Params.RoomAlias]
	if !ok {
		return fmt.Errorf("no hipchat room configured for alias %q", a.Params.RoomAlias)
	}
	body, err := json.Marshal(a.Message)
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}
	notification := map[string]string{
		"message":        "<b>Occam Alert</b><br>" + string(body),
		"message_format": "html",
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal chat notification: %w", err)
	}
	url := fmt.Sprintf("https://api.hipchat.com/v2/room/%s/notification?auth_token=%s", room.RoomID, room.AuthToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to hipchat: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("hipchat returned status %d", resp.StatusCode)
	}
	return nil
}

// IncidentSink posts to the PagerDuty generic events API.
type IncidentSink struct {
	serviceKeys map[string]string
	log         zerolog.Logger
}

const pagerDutyURL = "https://events.pagerduty.com/generic/2010-04-15/create_event.json"

func NewIncidentSink(serviceKeys map[string]string, log zerolog.Logger) *IncidentSink {
	return &IncidentSink{serviceKeys: serviceKeys, log: log}
}

type pagerDutyEvent struct {
	EventType   string         `json:"event_type"`
	ServiceKey  string         `json:"service_key"`
	Description string         `json:"description"`
	IncidentKey string         `json:"incident_key,omitempty"`
	Details     map[string]any `json:"details"`
}

func (s *IncidentSink) Send(ctx context.Context, a occam.Alert) error {
	serviceKey, ok := s.serviceKeys[a.Params.ServiceAlias]
	if !ok {
		return fmt.Errorf("no pagerduty service key configured for alias %q", a.Params.ServiceAlias)
	}
	event := pagerDutyEvent{
		EventType:   "trigger",
		ServiceKey:  serviceKey,
		Description: "occam_alert",
		Details:     a.Message,
	}
	if a.Params.IncidentKey != "" {
		event.IncidentKey = a.Params.IncidentKey
		event.Description = a.Params.IncidentKey
	} else {
		event.IncidentKey = a.ID
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal pagerduty event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pagerDutyURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to pagerduty: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pagerduty returned status %d", resp.StatusCode)
	}
	return nil
}

// ParseChatRoom parses a [hipchat] config value "<room_id>_<auth_token>".
func ParseChatRoom(raw string) (ChatRoom, error) {
	parts := strings.SplitN(raw, "_", 2)
	if len(parts) != 2 {
		return ChatRoom{}, fmt.Errorf("invalid hipchat room spec %q, want room_id_authtoken", raw)
	}
	return ChatRoom{RoomID: parts[0], AuthToken: parts[1]}, nil
}
