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

package collector

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/carverauto/wrtwatch/pkg/logger"
	"github.com/carverauto/wrtwatch/pkg/models"
)

const defaultCollectionTimeout = 10 * time.Second

// FanOut runs one snapshot collection per configured router
// concurrently. One slow or unreachable router never stalls the cycle
// beyond the per-router timeout, and the result always contains exactly
// one snapshot per router.
type FanOut struct {
	collectors []SnapshotCollector
	timeout    time.Duration
	clock      clockwork.Clock
	logger     logger.Logger

	// gates serialize collections per router across cycles: a session is
	// exclusive to its router and must not carry concurrent in-flight
	// calls from overlapping cycles.
	gates []chan struct{}
}

// FanOutOption configures a FanOut.
type FanOutOption func(*FanOut)

// WithCollectionTimeout overrides the per-router timeout bound.
func WithCollectionTimeout(timeout time.Duration) FanOutOption {
	return func(f *FanOut) {
		f.timeout = timeout
	}
}

// WithFanOutClock injects a clock for tests.
func WithFanOutClock(clock clockwork.Clock) FanOutOption {
	return func(f *FanOut) {
		f.clock = clock
	}
}

// NewFanOut creates a fan-out over the given collectors.
func NewFanOut(collectors []SnapshotCollector, log logger.Logger, opts ...FanOutOption) *FanOut {
	f := &FanOut{
		collectors: collectors,
		timeout:    defaultCollectionTimeout,
		clock:      clockwork.NewRealClock(),
		logger:     log,
	}

	for _, opt := range opts {
		opt(f)
	}

	f.gates = make([]chan struct{}, len(collectors))
	for i := range f.gates {
		f.gates[i] = make(chan struct{}, 1)
	}

	return f
}

// CollectAll dispatches one collection per router and returns exactly
// one snapshot per configured router, substituting error-tagged empty
// snapshots for total failures. Each goroutine writes only its own slice
// slot; there is no shared mutable state between collectors.
func (f *FanOut) CollectAll(ctx context.Context) []models.RouterSnapshot {
	snapshots := make([]models.RouterSnapshot, len(f.collectors))

	var wg sync.WaitGroup

	for i := range f.collectors {
		wg.Add(1)

		go func(idx int, col SnapshotCollector) {
			defer wg.Done()

			snapshots[idx] = f.collectOne(ctx, idx, col)
		}(i, f.collectors[i])
	}

	wg.Wait()

	return snapshots
}

func (f *FanOut) collectOne(ctx context.Context, idx int, col SnapshotCollector) models.RouterSnapshot {
	cctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	// Wait for any still-running collection of this router from a prior
	// cycle; give up at the deadline rather than stacking calls on one
	// session.
	select {
	case f.gates[idx] <- struct{}{}:
	case <-cctx.Done():
		f.logger.Warn().
			Str("router", col.Router().Name).
			Msg("Previous collection still in flight, skipping router this cycle")

		return f.errorSnapshot(col, models.CollectionErrorTimeout, "previous collection still in flight")
	}

	done := make(chan models.RouterSnapshot, 1)

	go func() {
		defer func() { <-f.gates[idx] }()

		done <- col.Collect(cctx)
	}()

	select {
	case snapshot := <-done:
		return snapshot
	case <-cctx.Done():
		// The collection goroutine is abandoned; its result is discarded
		// and the gate keeps the next cycle off this session until it
		// actually returns.
		f.logger.Warn().
			Str("router", col.Router().Name).
			Dur("timeout", f.timeout).
			Msg("Router collection timed out")

		return f.errorSnapshot(col, models.CollectionErrorTimeout, "collection timed out")
	}
}

func (f *FanOut) errorSnapshot(col SnapshotCollector, kind models.CollectionErrorKind, message string) models.RouterSnapshot {
	return models.RouterSnapshot{
		Router:      *col.Router(),
		CollectedAt: f.clock.Now(),
		Error: &models.CollectionError{
			Kind:    kind,
			Message: message,
		},
	}
}
