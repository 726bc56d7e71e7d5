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
	"fmt"
	"time"
)

// AssociationRecord is one device currently associated to one radio
// interface of one router. Ephemeral; re-derived every poll cycle.
type AssociationRecord struct {
	MAC        string    `json:"mac"`
	Interface  string    `json:"interface"`
	SSID       string    `json:"ssid,omitempty"`
	RadioBand  string    `json:"radio_band,omitempty"`
	SignalDBM  *int      `json:"signal_dbm,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// LeaseRecord is one DHCP client known to the DHCP-serving router.
type LeaseRecord struct {
	MAC       string    `json:"mac"`
	IP        string    `json:"ip"`
	Hostname  string    `json:"hostname,omitempty"`
	Static    bool      `json:"static,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// NeighborRecord is one ARP/neighbor-table entry. Available on any router
// with layer-2 visibility into a VLAN; shows wired and cross-VLAN devices
// invisible to association data.
type NeighborRecord struct {
	MAC       string `json:"mac"`
	IP        string `json:"ip"`
	Interface string `json:"interface,omitempty"`
}

// RadioInfo maps one physical radio interface to the SSID it broadcasts.
type RadioInfo struct {
	Name string `json:"name"`
	SSID string `json:"ssid"`
	Band string `json:"band,omitempty"`
}

// CollectionErrorKind classifies a per-router collection failure.
type CollectionErrorKind string

const (
	CollectionErrorAuth        CollectionErrorKind = "auth"
	CollectionErrorTimeout     CollectionErrorKind = "timeout"
	CollectionErrorUnreachable CollectionErrorKind = "unreachable"
	CollectionErrorMethod      CollectionErrorKind = "method"
	CollectionErrorPartial     CollectionErrorKind = "partial"
)

// CollectionError annotates a snapshot with structured failure info.
// The correlation engine only ever sees these, never raw transport errors.
type CollectionError struct {
	Kind       CollectionErrorKind `json:"kind"`
	Message    string              `json:"message"`
	StatusCode int                 `json:"status_code,omitempty"`
}

func (e *CollectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Message, e.StatusCode)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// RouterSnapshot is the complete set of observations collected from one
// router in one poll cycle. Produced by the collector, consumed read-only
// by the correlation engine.
type RouterSnapshot struct {
	Router       RouterIdentity      `json:"router"`
	Associations []AssociationRecord `json:"associations,omitempty"`
	Leases       []LeaseRecord       `json:"leases,omitempty"`
	Neighbors    []NeighborRecord    `json:"neighbors,omitempty"`
	Radios       []RadioInfo         `json:"radios,omitempty"`
	CollectedAt  time.Time           `json:"collected_at"`
	Error        *CollectionError    `json:"error,omitempty"`
}

// Failed reports whether the snapshot carries an error annotation.
// Partial snapshots can be both failed and carry data.
func (s *RouterSnapshot) Failed() bool {
	return s.Error != nil
}

// Empty reports whether the snapshot carries no observations at all.
func (s *RouterSnapshot) Empty() bool {
	return len(s.Associations) == 0 && len(s.Leases) == 0 && len(s.Neighbors) == 0
}
