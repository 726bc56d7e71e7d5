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

package tracker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/wrtwatch/pkg/collector"
	"github.com/carverauto/wrtwatch/pkg/correlator"
	"github.com/carverauto/wrtwatch/pkg/logger"
	"github.com/carverauto/wrtwatch/pkg/models"
)

const testMAC = "AA:BB:CC:DD:EE:FF"

// scriptedCollector returns a fixed snapshot and counts collections.
type scriptedCollector struct {
	router models.RouterIdentity
	assocs []models.AssociationRecord
	err    *models.CollectionError

	collects atomic.Int32
}

func (s *scriptedCollector) Router() *models.RouterIdentity { return &s.router }

func (s *scriptedCollector) Collect(_ context.Context) models.RouterSnapshot {
	s.collects.Add(1)

	return models.RouterSnapshot{
		Router:       s.router,
		Associations: s.assocs,
		CollectedAt:  time.Now(),
		Error:        s.err,
	}
}

func newTestTracker(t *testing.T, cols []collector.SnapshotCollector, opts ...TrackerOption) *Tracker {
	t.Helper()

	log := logger.NewTestLogger()
	fanout := collector.NewFanOut(cols, log)
	engine := correlator.NewEngine(correlator.Config{}, nil, log)

	return NewTracker(fanout, engine, log, opts...)
}

func wirelessCollector(router string, macs ...string) *scriptedCollector {
	signal := -50

	assocs := make([]models.AssociationRecord, 0, len(macs))
	for _, mac := range macs {
		assocs = append(assocs, models.AssociationRecord{
			MAC:        mac,
			Interface:  "wlan0",
			SignalDBM:  &signal,
			ObservedAt: time.Now(),
		})
	}

	return &scriptedCollector{router: models.RouterIdentity{Name: router}, assocs: assocs}
}

func TestRunCycleCommitsDevices(t *testing.T) {
	col := wirelessCollector("ap1", testMAC)
	tr := newTestTracker(t, []collector.SnapshotCollector{col})

	tr.RunCycle(context.Background())

	devices := tr.Devices()
	require.Len(t, devices, 1)
	require.Contains(t, devices, testMAC)
	assert.Equal(t, "ap1", devices[testMAC].ServingRouter)

	record := tr.Device("aa:bb:cc:dd:ee:ff")
	require.NotNil(t, record, "lookup must normalize the MAC")
	assert.Equal(t, testMAC, record.MAC)
	assert.Nil(t, tr.Device("00:00:00:00:00:00"))
}

func TestDevicesReturnsCopies(t *testing.T) {
	col := wirelessCollector("ap1", testMAC)
	tr := newTestTracker(t, []collector.SnapshotCollector{col})

	tr.RunCycle(context.Background())

	devices := tr.Devices()
	devices[testMAC].ServingRouter = "tampered"

	assert.Equal(t, "ap1", tr.Device(testMAC).ServingRouter)
}

func TestRunCycleEmitsEvents(t *testing.T) {
	var mu sync.Mutex

	var got []models.Event

	col := wirelessCollector("ap1", testMAC)
	tr := newTestTracker(t, []collector.SnapshotCollector{col},
		WithEventHandler(func(e models.Event) {
			mu.Lock()
			defer mu.Unlock()

			got = append(got, e)
		}))

	tr.RunCycle(context.Background())

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, got, 1)
	assert.Equal(t, models.EventAppeared, got[0].Type)
	assert.Equal(t, testMAC, got[0].MAC)
}

func TestRunCycleUpdatesMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	failing := &scriptedCollector{
		router: models.RouterIdentity{Name: "ap2"},
		err:    &models.CollectionError{Kind: models.CollectionErrorUnreachable, Message: "down"},
	}

	cols := []collector.SnapshotCollector{wirelessCollector("ap1", testMAC), failing}
	tr := newTestTracker(t, cols, WithMetrics(metrics))

	tr.RunCycle(context.Background())

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CyclesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DevicesTracked))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RouterFailures.WithLabelValues("ap2", "unreachable")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Events.WithLabelValues("appeared")))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	col := wirelessCollector("ap1", testMAC)
	tr := newTestTracker(t, []collector.SnapshotCollector{col})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), col.collects.Load(), "the immediate first cycle still runs")
}

func TestRunTicksOnInterval(t *testing.T) {
	fc := clockwork.NewFakeClock()

	col := wirelessCollector("ap1", testMAC)
	tr := newTestTracker(t, []collector.SnapshotCollector{col},
		WithClock(fc),
		WithPollInterval(30*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- tr.Run(ctx) }()

	// First cycle runs immediately, then the loop blocks on the ticker.
	fc.BlockUntil(1)
	assert.Equal(t, int32(1), col.collects.Load())

	fc.Advance(30 * time.Second)

	require.Eventually(t, func() bool {
		return col.collects.Load() == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
