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

// Package correlator merges per-router snapshots into unified device
// records, resolving roaming, classifying segments, and emitting
// lifecycle events.
package correlator

import (
	"sort"
	"time"

	"github.com/carverauto/wrtwatch/pkg/logger"
	"github.com/carverauto/wrtwatch/pkg/models"
)

const (
	defaultSignalEpsilonDBM = 6
	defaultAbsenceCycles    = 3
)

// OUILookup resolves a MAC address to a vendor name. Pure, no I/O.
// An empty result means unknown, never an error.
type OUILookup func(mac string) string

// DeviceTyper infers a coarse device type from a MAC and its vendor.
type DeviceTyper func(mac, vendor string) string

// Config holds the correlation tunables.
type Config struct {
	// SignalEpsilonDBM is the band within which two signal readings are
	// considered tied, engaging hysteresis toward the previous router.
	SignalEpsilonDBM int `json:"signal_epsilon_dbm"`

	// AbsenceCycles is how many consecutive cycles a device may be
	// missing from all snapshots before it is removed. Debounces single
	// missed polls.
	AbsenceCycles int `json:"absence_cycles"`

	// SegmentRules is the ordered first-match-wins IP classification.
	SegmentRules []SegmentRule `json:"-"`

	// VLANSegments maps VLAN IDs parsed from interface names to segment
	// names, consulted before the IP rules.
	VLANSegments map[int]string `json:"vlan_segments,omitempty"`
}

func (c *Config) applyDefaults() {
	if c.SignalEpsilonDBM <= 0 {
		c.SignalEpsilonDBM = defaultSignalEpsilonDBM
	}

	if c.AbsenceCycles <= 0 {
		c.AbsenceCycles = defaultAbsenceCycles
	}
}

// Engine is the correlation engine. It is a pure reduction over one
// cycle's snapshots plus the previous cycle's output; it performs no I/O
// and runs single-threaded.
type Engine struct {
	cfg        Config
	ouiLookup  OUILookup
	deviceType DeviceTyper
	logger     logger.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDeviceTyper enables device-type enrichment.
func WithDeviceTyper(typer DeviceTyper) EngineOption {
	return func(e *Engine) {
		e.deviceType = typer
	}
}

// NewEngine creates a correlation engine. ouiLookup may be nil, leaving
// vendors unknown.
func NewEngine(cfg Config, ouiLookup OUILookup, log logger.Logger, opts ...EngineOption) *Engine {
	cfg.applyDefaults()

	e := &Engine{
		cfg:       cfg,
		ouiLookup: ouiLookup,
		logger:    log,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// macState accumulates one MAC's observations across all snapshots of a
// cycle. Built by a single fold over tagged observations so new source
// kinds slot in without touching the tie-break logic.
type macState struct {
	assocs       []candidate
	dynamicLease *models.LeaseRecord
	staticLease  *models.LeaseRecord
	neighbor     *models.NeighborRecord
	leaseRouter  string
	neighRouter  string
}

// Correlate merges one cycle's snapshots with the previous cycle's
// device map and returns the new map plus lifecycle events. The previous
// map is never mutated; records carried forward are deep copies.
func (e *Engine) Correlate(snapshots []models.RouterSnapshot, previous map[string]*models.DeviceRecord) (map[string]*models.DeviceRecord, []models.Event) {
	index := foldObservations(snapshots)

	collectedAt := make(map[string]time.Time, len(snapshots))
	failedRouters := make(map[string]bool, len(snapshots))
	cycleTime := time.Time{}

	for i := range snapshots {
		s := &snapshots[i]
		collectedAt[s.Router.Name] = s.CollectedAt

		if s.Failed() {
			failedRouters[s.Router.Name] = true
		}

		if s.CollectedAt.After(cycleTime) {
			cycleTime = s.CollectedAt
		}
	}

	devices := make(map[string]*models.DeviceRecord, len(index))

	var events []models.Event

	macs := sortedKeys(index)

	for _, mac := range macs {
		state := index[mac]

		record, recordEvents := e.reduce(mac, state, previous[mac], collectedAt, cycleTime)
		devices[mac] = record
		events = append(events, recordEvents...)
	}

	// Devices absent this cycle: kept until the absence threshold, and
	// held stale without aging while their serving router is failing.
	for _, mac := range sortedDeviceKeys(previous) {
		if _, seen := devices[mac]; seen {
			continue
		}

		prev := previous[mac]
		record := prev.Clone()

		if !failedRouters[record.ServingRouter] {
			record.AbsentCycles++
		}

		if record.AbsentCycles >= e.cfg.AbsenceCycles {
			events = append(events, models.NewEvent(models.EventDisappeared, mac, cycleTime))
			continue
		}

		devices[mac] = record
	}

	return devices, events
}

// reduce resolves one MAC's observations into its device record.
func (e *Engine) reduce(mac string, state *macState, prev *models.DeviceRecord, collectedAt map[string]time.Time, cycleTime time.Time) (*models.DeviceRecord, []models.Event) {
	var record *models.DeviceRecord

	isNew := prev == nil
	if isNew {
		record = &models.DeviceRecord{MAC: mac, Segment: models.SegmentUnknown, ConnectionType: models.ConnectionUnknown}
	} else {
		record = prev.Clone()
	}

	record.AbsentCycles = 0

	previousRouter := record.ServingRouter

	if len(state.assocs) > 0 {
		primary := resolvePrimary(state.assocs, previousRouter, e.cfg.SignalEpsilonDBM)

		record.ConnectionType = models.ConnectionWireless
		record.ServingRouter = primary.router
		record.ServingInterface = primary.rec.Interface
		record.SSID = primary.rec.SSID
		record.SignalDBM = cloneSignal(primary.rec.SignalDBM)
	} else {
		record.ConnectionType = models.ConnectionWired
		record.SSID = ""
		record.SignalDBM = nil

		switch {
		case state.leaseRouter != "":
			record.ServingRouter = state.leaseRouter
			record.ServingInterface = ""
		case state.neighRouter != "":
			record.ServingRouter = state.neighRouter

			if state.neighbor != nil {
				record.ServingInterface = state.neighbor.Interface
			}
		}
	}

	e.applyAddressing(record, state)

	var events []models.Event

	if !isNew && previousRouter != "" && record.ServingRouter != "" && record.ServingRouter != previousRouter {
		record.RoamCount++
		record.PreviousServingRouter = previousRouter

		roam := models.NewEvent(models.EventRoamed, mac, cycleTime)
		roam.FromRouter = previousRouter
		roam.ToRouter = record.ServingRouter
		events = append(events, roam)
	}

	if ts, ok := collectedAt[record.ServingRouter]; ok {
		record.LastSeen = ts
	} else {
		record.LastSeen = cycleTime
	}

	if isNew {
		record.FirstSeen = record.LastSeen
		events = append(events, models.NewEvent(models.EventAppeared, mac, cycleTime))
	}

	record.Segment = e.classifySegment(record)

	if record.Vendor == "" && e.ouiLookup != nil {
		record.Vendor = e.ouiLookup(mac)
	}

	if record.DeviceType == "" && e.deviceType != nil {
		record.DeviceType = e.deviceType(mac, record.Vendor)
	}

	return record, events
}

// applyAddressing resolves IP and hostname. MAC is authoritative
// identity; IP comes from the most recent lease or neighbor observation,
// lease winning over neighbor, static host entries winning hostname.
func (e *Engine) applyAddressing(record *models.DeviceRecord, state *macState) {
	if state.dynamicLease != nil && state.dynamicLease.IP != "" {
		record.IP = state.dynamicLease.IP
	} else if state.staticLease != nil && state.staticLease.IP != "" {
		record.IP = state.staticLease.IP
	} else if state.neighbor != nil && state.neighbor.IP != "" {
		record.IP = state.neighbor.IP
	}

	if state.staticLease != nil && state.staticLease.Hostname != "" {
		record.Hostname = state.staticLease.Hostname
	} else if state.dynamicLease != nil && state.dynamicLease.Hostname != "" {
		record.Hostname = state.dynamicLease.Hostname
	}
}

// foldObservations builds the per-MAC index across all snapshots,
// including partial data from snapshots that also carry errors.
func foldObservations(snapshots []models.RouterSnapshot) map[string]*macState {
	index := make(map[string]*macState)

	for i := range snapshots {
		for _, obs := range snapshots[i].Observations() {
			state, ok := index[obs.MAC]
			if !ok {
				state = &macState{}
				index[obs.MAC] = state
			}

			switch obs.Kind {
			case models.ObservationAssociation:
				state.assocs = append(state.assocs, candidate{rec: obs.Association, router: obs.Router})
			case models.ObservationLease:
				if obs.Lease.Static {
					state.staticLease = obs.Lease
				} else {
					state.dynamicLease = obs.Lease
				}

				state.leaseRouter = obs.Router
			case models.ObservationNeighbor:
				state.neighbor = obs.Neighbor

				if state.neighRouter == "" {
					state.neighRouter = obs.Router
				}
			}
		}
	}

	return index
}

func cloneSignal(signal *int) *int {
	if signal == nil {
		return nil
	}

	v := *signal

	return &v
}

func sortedKeys(index map[string]*macState) []string {
	keys := make([]string, 0, len(index))
	for mac := range index {
		keys = append(keys, mac)
	}

	sort.Strings(keys)

	return keys
}

func sortedDeviceKeys(devices map[string]*models.DeviceRecord) []string {
	keys := make([]string, 0, len(devices))
	for mac := range devices {
		keys = append(keys, mac)
	}

	sort.Strings(keys)

	return keys
}
