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

package occam

// SinkKind identifies which external sink an Alert should be routed to.
type SinkKind string

const (
	SinkConsole  SinkKind = "console"
	SinkChat     SinkKind = "chat"
	SinkIncident SinkKind = "incident"
)

// Alert is the tagged envelope pushed onto the alert queue by a rule's emit
// calls and consumed by the dispatcher pool. ID is a unique identifier
// assigned at emit time so delivery can be traced through logs across the
// dispatcher pool's goroutines.
type Alert struct {
	ID      string
	Kind    SinkKind
	Message Message
	Params  AlertParams
}

// AlertParams carries the sink-specific parameters for an Alert. Only the
// fields relevant to Kind are populated.
type AlertParams struct {
	// RoomAlias names a key in the [hipchat] config section (chat sink).
	RoomAlias string
	// ServiceAlias names a key in the [pagerduty] config section (incident sink).
	ServiceAlias string
	// IncidentKey, if set, de-duplicates/updates an existing incident
	// rather than opening a new one (incident sink).
	IncidentKey string
}

// Queue is the narrow alert-enqueue surface Primitives closes over. The
// alert dispatcher (internal/occam/alert.Dispatcher) satisfies it directly.
type Queue interface {
	Enqueue(Alert)
}
