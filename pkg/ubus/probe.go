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

package ubus

import (
	"context"

	"github.com/carverauto/wrtwatch/pkg/models"
)

// Probe discovers which data-source APIs the router exposes. A missing
// endpoint is recorded as false, never an error; only transport and
// authentication failures propagate.
func Probe(ctx context.Context, client *Client) (models.Capabilities, error) {
	var caps models.Capabilities

	radios, err := client.WirelessRadios(ctx)

	switch {
	case err == nil:
		caps.HasAssociationAPI = true
	case !IsMissingEndpoint(err):
		return caps, err
	}

	// hostapd objects are per-interface, so the probe needs a radio name.
	if len(radios) > 0 {
		if _, err := client.HostapdClients(ctx, radios[0]); err == nil {
			caps.HasHostapdAPI = true
		} else if !IsMissingEndpoint(err) {
			return caps, err
		}
	}

	if _, err := client.DHCPLeases(ctx); err == nil {
		caps.HasLeaseAPI = true
	} else if !IsMissingEndpoint(err) {
		return caps, err
	}

	if _, err := client.HostHints(ctx); err == nil {
		caps.HasNeighborAPI = true
	} else if !IsMissingEndpoint(err) {
		return caps, err
	}

	client.logger.Info().
		Str("router", client.router.Name).
		Bool("association", caps.HasAssociationAPI).
		Bool("hostapd", caps.HasHostapdAPI).
		Bool("lease", caps.HasLeaseAPI).
		Bool("neighbor", caps.HasNeighborAPI).
		Msg("Probed router capabilities")

	return caps, nil
}
