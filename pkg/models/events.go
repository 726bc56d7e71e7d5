/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies a device lifecycle transition.
type EventType string

const (
	EventAppeared    EventType = "appeared"
	EventDisappeared EventType = "disappeared"
	EventRoamed      EventType = "roamed"
)

// Event records one device lifecycle transition in a poll cycle.
// FromRouter and ToRouter are set for roam events only.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	MAC        string    `json:"mac"`
	FromRouter string    `json:"from_router,omitempty"`
	ToRouter   string    `json:"to_router,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEvent creates an event with a fresh ID.
func NewEvent(eventType EventType, mac string, ts time.Time) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		MAC:       mac,
		Timestamp: ts,
	}
}
