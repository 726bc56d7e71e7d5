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
)

// ConnectionType classifies how a device reaches the network.
type ConnectionType string

const (
	ConnectionWireless ConnectionType = "wireless"
	ConnectionWired    ConnectionType = "wired"
	ConnectionUnknown  ConnectionType = "unknown"
)

// SegmentUnknown is the segment assigned when no classification rule matches.
const SegmentUnknown = "unknown"

// DeviceRecord is the unified, long-lived view of one physical device,
// keyed by MAC. Updated by the correlation engine every cycle; removed
// from the live set only after exceeding the absence threshold.
type DeviceRecord struct {
	MAC                   string         `json:"mac"`
	IP                    string         `json:"ip,omitempty"`
	Hostname              string         `json:"hostname,omitempty"`
	Vendor                string         `json:"vendor,omitempty"`
	DeviceType            string         `json:"device_type,omitempty"`
	Segment               string         `json:"segment"`
	ConnectionType        ConnectionType `json:"connection_type"`
	ServingRouter         string         `json:"serving_router,omitempty"`
	ServingInterface      string         `json:"serving_interface,omitempty"`
	SSID                  string         `json:"ssid,omitempty"`
	SignalDBM             *int           `json:"signal_dbm,omitempty"`
	FirstSeen             time.Time      `json:"first_seen"`
	LastSeen              time.Time      `json:"last_seen"`
	PreviousServingRouter string         `json:"previous_serving_router,omitempty"`
	RoamCount             int            `json:"roam_count"`

	// AbsentCycles counts consecutive cycles the device has been missing
	// from all snapshots. Reset to zero on any sighting.
	AbsentCycles int `json:"absent_cycles,omitempty"`
}

// Clone returns a deep copy so one cycle's output can be mutated without
// aliasing the previous cycle's committed map.
func (d *DeviceRecord) Clone() *DeviceRecord {
	out := *d

	if d.SignalDBM != nil {
		v := *d.SignalDBM
		out.SignalDBM = &v
	}

	return &out
}
