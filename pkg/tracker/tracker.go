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

// Package tracker drives the periodic poll cycle: fan out collection
// across routers, correlate the snapshots, publish the unified device
// map and lifecycle events.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/carverauto/wrtwatch/pkg/collector"
	"github.com/carverauto/wrtwatch/pkg/correlator"
	"github.com/carverauto/wrtwatch/pkg/logger"
	"github.com/carverauto/wrtwatch/pkg/models"
)

// EventHandler receives lifecycle events after each cycle commits.
// Called from the tracker's loop goroutine; handlers must not block.
type EventHandler func(models.Event)

// Tracker owns the device map. Cycles never overlap: the next tick is
// not serviced until the previous cycle has committed.
type Tracker struct {
	fanout       *collector.FanOut
	engine       *correlator.Engine
	pollInterval time.Duration
	clock        clockwork.Clock
	logger       logger.Logger
	metrics      *Metrics
	onEvent      EventHandler

	mu      sync.RWMutex
	devices map[string]*models.DeviceRecord
	ssids   []correlator.SSIDGroup
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithPollInterval overrides the cycle interval.
func WithPollInterval(interval time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.pollInterval = interval
	}
}

// WithClock injects a clock for tests.
func WithClock(clock clockwork.Clock) TrackerOption {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// WithMetrics enables metric publication.
func WithMetrics(metrics *Metrics) TrackerOption {
	return func(t *Tracker) {
		t.metrics = metrics
	}
}

// WithEventHandler registers a sink for lifecycle events.
func WithEventHandler(handler EventHandler) TrackerOption {
	return func(t *Tracker) {
		t.onEvent = handler
	}
}

// NewTracker creates a tracker over the given fan-out and engine.
func NewTracker(fanout *collector.FanOut, engine *correlator.Engine, log logger.Logger, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		fanout:       fanout,
		engine:       engine,
		pollInterval: defaultPollInterval,
		clock:        clockwork.NewRealClock(),
		logger:       log,
		devices:      make(map[string]*models.DeviceRecord),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Run executes the poll loop until ctx is canceled. The first cycle
// runs immediately.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info().
		Dur("poll_interval", t.pollInterval).
		Msg("Starting device tracker")

	t.RunCycle(ctx)

	ticker := t.clock.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("Device tracker stopping")
			return ctx.Err()
		case <-ticker.Chan():
			t.RunCycle(ctx)
		}
	}
}

// RunCycle performs one collection and correlation pass and commits the
// result.
func (t *Tracker) RunCycle(ctx context.Context) {
	start := t.clock.Now()

	snapshots := t.fanout.CollectAll(ctx)

	devices, events := t.engine.Correlate(snapshots, t.currentDevices())
	ssids := correlator.ConsolidateSSIDs(snapshots)

	t.mu.Lock()
	t.devices = devices
	t.ssids = ssids
	t.mu.Unlock()

	t.publish(snapshots, devices, events, t.clock.Since(start))
}

func (t *Tracker) publish(snapshots []models.RouterSnapshot, devices map[string]*models.DeviceRecord, events []models.Event, elapsed time.Duration) {
	for _, event := range events {
		t.logger.Info().
			Str("type", string(event.Type)).
			Str("mac", event.MAC).
			Str("from", event.FromRouter).
			Str("to", event.ToRouter).
			Msg("Device event")

		if t.metrics != nil {
			t.metrics.Events.WithLabelValues(string(event.Type)).Inc()
		}

		if t.onEvent != nil {
			t.onEvent(event)
		}
	}

	failures := 0

	for i := range snapshots {
		s := &snapshots[i]
		if s.Error == nil {
			continue
		}

		failures++

		if t.metrics != nil {
			t.metrics.RouterFailures.WithLabelValues(s.Router.Name, string(s.Error.Kind)).Inc()
		}
	}

	if t.metrics != nil {
		t.metrics.CycleDuration.Observe(elapsed.Seconds())
		t.metrics.CyclesTotal.Inc()
		t.metrics.DevicesTracked.Set(float64(len(devices)))
	}

	t.logger.Debug().
		Int("devices", len(devices)).
		Int("events", len(events)).
		Int("router_failures", failures).
		Dur("elapsed", elapsed).
		Msg("Poll cycle complete")
}

// currentDevices returns the committed map for correlation input. The
// engine treats it as read-only and clones every record it carries
// forward, so no copy is needed here.
func (t *Tracker) currentDevices() map[string]*models.DeviceRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.devices
}

// Devices returns a deep copy of the current device map.
func (t *Tracker) Devices() map[string]*models.DeviceRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]*models.DeviceRecord, len(t.devices))
	for mac, record := range t.devices {
		out[mac] = record.Clone()
	}

	return out
}

// Device returns a copy of one device record, nil when unknown.
func (t *Tracker) Device(mac string) *models.DeviceRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	record, ok := t.devices[models.NormalizeMAC(mac)]
	if !ok {
		return nil
	}

	return record.Clone()
}

// SSIDs returns the consolidated SSID groups from the last cycle.
func (t *Tracker) SSIDs() []correlator.SSIDGroup {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]correlator.SSIDGroup, len(t.ssids))
	copy(out, t.ssids)

	return out
}
