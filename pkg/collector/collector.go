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

// Package collector gathers per-router snapshots and fans out across
// all configured routers concurrently.
package collector

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/carverauto/wrtwatch/pkg/logger"
	"github.com/carverauto/wrtwatch/pkg/models"
	"github.com/carverauto/wrtwatch/pkg/ubus"
)

// defaultReprobeThreshold is how many consecutive unexpected method
// errors trigger a capability re-probe, tolerating firmware upgrades
// that change available endpoints.
const defaultReprobeThreshold = 3

// Collector gathers one router's association, lease, and neighbor data
// into a RouterSnapshot. Sub-call failures are folded into the snapshot
// error with partial data preserved; a single radio's failure never
// discards data already collected from other radios or APIs.
type Collector struct {
	client DataClient
	probe  Prober
	clock  clockwork.Clock
	logger logger.Logger

	reprobeThreshold int

	mu         sync.Mutex
	caps       *models.Capabilities
	methodErrs int
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithReprobeThreshold overrides the consecutive-method-error count that
// forces a capability re-probe.
func WithReprobeThreshold(n int) CollectorOption {
	return func(c *Collector) {
		c.reprobeThreshold = n
	}
}

// WithClock injects a clock for tests.
func WithClock(clock clockwork.Clock) CollectorOption {
	return func(c *Collector) {
		c.clock = clock
	}
}

// NewCollector creates a snapshot collector for one router.
func NewCollector(client DataClient, probe Prober, log logger.Logger, opts ...CollectorOption) *Collector {
	c := &Collector{
		client:           client,
		probe:            probe,
		clock:            clockwork.NewRealClock(),
		logger:           log,
		reprobeThreshold: defaultReprobeThreshold,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Router returns the identity of the router this collector serves.
func (c *Collector) Router() *models.RouterIdentity {
	return c.client.Router()
}

// Collect gathers the subset of data implied by the router's
// capabilities into one snapshot.
func (c *Collector) Collect(ctx context.Context) models.RouterSnapshot {
	snapshot := models.RouterSnapshot{Router: *c.client.Router()}

	caps, err := c.capabilities(ctx)
	if err != nil {
		snapshot.CollectedAt = c.clock.Now()
		snapshot.Error = classifyError(err)

		return snapshot
	}

	var subErrs []error

	if caps.HasAssociationAPI || caps.HasHostapdAPI {
		subErrs = append(subErrs, c.collectWireless(ctx, caps, &snapshot)...)
	}

	if caps.HasLeaseAPI {
		subErrs = append(subErrs, c.collectLeases(ctx, &snapshot)...)
	}

	if caps.HasNeighborAPI {
		if neighbors, err := c.client.HostHints(ctx); err != nil {
			c.noteCallError(err)
			subErrs = append(subErrs, err)
		} else {
			c.noteCallSuccess()

			snapshot.Neighbors = neighbors
		}
	}

	snapshot.CollectedAt = c.clock.Now()

	if len(subErrs) > 0 {
		snapshot.Error = foldErrors(subErrs, !snapshot.Empty())

		c.logger.Warn().
			Str("router", snapshot.Router.Name).
			Int("sub_errors", len(subErrs)).
			Str("kind", string(snapshot.Error.Kind)).
			Msg("Snapshot collected with errors")
	}

	return snapshot
}

// collectWireless gathers per-radio associations, preferring the richer
// iwinfo assoclist and falling back to hostapd get_clients per radio.
func (c *Collector) collectWireless(ctx context.Context, caps models.Capabilities, snapshot *models.RouterSnapshot) []error {
	var subErrs []error

	radios, err := c.client.WirelessRadios(ctx)
	if err != nil {
		c.noteCallError(err)
		return append(subErrs, err)
	}

	c.noteCallSuccess()

	// Radio-to-SSID mapping is best effort; some builds restrict the
	// network.wireless object to root sessions.
	if radioInfo, err := c.client.WirelessStatus(ctx); err == nil {
		snapshot.Radios = radioInfo
	} else if !ubus.IsMissingEndpoint(err) {
		subErrs = append(subErrs, err)
	}

	ssidByIface := make(map[string]models.RadioInfo, len(snapshot.Radios))
	for _, info := range snapshot.Radios {
		ssidByIface[info.Name] = info
	}

	for _, radio := range radios {
		records, err := c.collectRadio(ctx, caps, radio)
		if err != nil {
			subErrs = append(subErrs, err)
			continue
		}

		for i := range records {
			if info, ok := ssidByIface[records[i].Interface]; ok {
				records[i].SSID = info.SSID
				records[i].RadioBand = info.Band
			}
		}

		snapshot.Associations = append(snapshot.Associations, records...)
	}

	return subErrs
}

// collectRadio tries assoclist first and falls back to hostapd for this
// radio alone; the fallback is per radio, not all-or-nothing.
func (c *Collector) collectRadio(ctx context.Context, caps models.Capabilities, radio string) ([]models.AssociationRecord, error) {
	if caps.HasAssociationAPI {
		records, err := c.client.AssocList(ctx, radio)
		if err == nil {
			c.noteCallSuccess()
			return records, nil
		}

		c.noteCallError(err)

		if !caps.HasHostapdAPI {
			return nil, err
		}

		c.logger.Debug().
			Str("router", c.client.Router().Name).
			Str("radio", radio).
			Err(err).
			Msg("assoclist failed, falling back to hostapd")
	}

	records, err := c.client.HostapdClients(ctx, radio)
	if err != nil {
		c.noteCallError(err)
		return nil, err
	}

	c.noteCallSuccess()

	return records, nil
}

func (c *Collector) collectLeases(ctx context.Context, snapshot *models.RouterSnapshot) []error {
	var subErrs []error

	leases, err := c.client.DHCPLeases(ctx)
	if err != nil {
		c.noteCallError(err)
		subErrs = append(subErrs, err)
	} else {
		c.noteCallSuccess()

		snapshot.Leases = leases
	}

	// Static host entries may be ACL-restricted independently of leases.
	statics, err := c.client.StaticHosts(ctx)
	if err != nil {
		if !ubus.IsMissingEndpoint(err) {
			subErrs = append(subErrs, err)
		}
	} else {
		snapshot.Leases = append(snapshot.Leases, statics...)
	}

	return subErrs
}

// capabilities returns the cached capability set, probing on first use
// and re-probing after the configured run of unexpected method errors.
func (c *Collector) capabilities(ctx context.Context) (models.Capabilities, error) {
	c.mu.Lock()
	needsProbe := c.caps == nil || c.methodErrs >= c.reprobeThreshold
	c.mu.Unlock()

	if !needsProbe {
		c.mu.Lock()
		defer c.mu.Unlock()

		return *c.caps, nil
	}

	caps, err := c.probe(ctx)
	if err != nil {
		return models.Capabilities{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.caps = &caps
	c.methodErrs = 0

	return caps, nil
}

// noteCallError tracks consecutive unexpected method errors; the counter
// drives capability re-probing.
func (c *Collector) noteCallError(err error) {
	var methodErr *ubus.MethodError
	if !errors.As(err, &methodErr) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.methodErrs++
}

func (c *Collector) noteCallSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.methodErrs = 0
}

// classifyError maps a client error to the structured snapshot error.
func classifyError(err error) *models.CollectionError {
	switch {
	case errors.Is(err, ubus.ErrAuthFailed):
		return &models.CollectionError{Kind: models.CollectionErrorAuth, Message: err.Error()}
	case errors.Is(err, ubus.ErrSessionExpired):
		return &models.CollectionError{Kind: models.CollectionErrorAuth, Message: err.Error()}
	case errors.Is(err, ubus.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &models.CollectionError{Kind: models.CollectionErrorTimeout, Message: err.Error()}
	case errors.Is(err, ubus.ErrUnreachable):
		return &models.CollectionError{Kind: models.CollectionErrorUnreachable, Message: err.Error()}
	default:
		var methodErr *ubus.MethodError
		if errors.As(err, &methodErr) {
			return &models.CollectionError{
				Kind:       models.CollectionErrorMethod,
				Message:    err.Error(),
				StatusCode: methodErr.Status,
			}
		}

		return &models.CollectionError{Kind: models.CollectionErrorUnreachable, Message: err.Error()}
	}
}

// foldErrors combines sub-call failures into one snapshot annotation.
// When any data was collected the error is partial, signalling the
// correlation engine to use what is there.
func foldErrors(errs []error, hasData bool) *models.CollectionError {
	if len(errs) == 1 && !hasData {
		return classifyError(errs[0])
	}

	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}

	kind := models.CollectionErrorPartial
	if !hasData {
		kind = classifyError(errs[0]).Kind
	}

	return &models.CollectionError{
		Kind:    kind,
		Message: strings.Join(messages, "; "),
	}
}
