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

// Capabilities records which data-source APIs a router exposes.
// Absence of a capability is a normal outcome, not an error; dumb
// access points typically lack lease and sometimes neighbor APIs.
type Capabilities struct {
	HasAssociationAPI bool `json:"has_association_api"`
	HasHostapdAPI     bool `json:"has_hostapd_api"`
	HasLeaseAPI       bool `json:"has_lease_api"`
	HasNeighborAPI    bool `json:"has_neighbor_api"`
}

// Any reports whether the router exposes at least one data source.
func (c Capabilities) Any() bool {
	return c.HasAssociationAPI || c.HasHostapdAPI || c.HasLeaseAPI || c.HasNeighborAPI
}
