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

	"github.com/carverauto/wrtwatch/pkg/models"
)

// DataClient is the set of router data-source calls the collector issues.
// Implemented by *ubus.Client; faked in tests.
type DataClient interface {
	Router() *models.RouterIdentity
	WirelessRadios(ctx context.Context) ([]string, error)
	AssocList(ctx context.Context, radio string) ([]models.AssociationRecord, error)
	HostapdClients(ctx context.Context, iface string) ([]models.AssociationRecord, error)
	DHCPLeases(ctx context.Context) ([]models.LeaseRecord, error)
	StaticHosts(ctx context.Context) ([]models.LeaseRecord, error)
	HostHints(ctx context.Context) ([]models.NeighborRecord, error)
	WirelessStatus(ctx context.Context) ([]models.RadioInfo, error)
}

// Prober discovers a router's capabilities. Bound to ubus.Probe in
// production wiring.
type Prober func(ctx context.Context) (models.Capabilities, error)

// SnapshotCollector produces one RouterSnapshot per poll cycle.
type SnapshotCollector interface {
	Router() *models.RouterIdentity
	Collect(ctx context.Context) models.RouterSnapshot
}
