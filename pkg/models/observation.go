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

// ObservationKind tags the source a device sighting came from.
type ObservationKind string

const (
	ObservationAssociation ObservationKind = "association"
	ObservationLease       ObservationKind = "lease"
	ObservationNeighbor    ObservationKind = "neighbor"
)

// Observation is one device sighting from one source on one router.
// Exactly one of Association, Lease, or Neighbor is set, matching Kind.
// The correlation engine reduces observations with a single fold so new
// source kinds can be added without touching the tie-break logic.
type Observation struct {
	Kind        ObservationKind
	MAC         string
	Router      string
	Association *AssociationRecord
	Lease       *LeaseRecord
	Neighbor    *NeighborRecord
}

// Observations flattens a snapshot into tagged per-MAC observations.
// MACs are normalized to upper case so they correlate across sources
// that report differing cases.
func (s *RouterSnapshot) Observations() []Observation {
	out := make([]Observation, 0, len(s.Associations)+len(s.Leases)+len(s.Neighbors))

	for i := range s.Associations {
		a := &s.Associations[i]
		out = append(out, Observation{
			Kind:        ObservationAssociation,
			MAC:         NormalizeMAC(a.MAC),
			Router:      s.Router.Name,
			Association: a,
		})
	}

	for i := range s.Leases {
		l := &s.Leases[i]
		out = append(out, Observation{
			Kind:   ObservationLease,
			MAC:    NormalizeMAC(l.MAC),
			Router: s.Router.Name,
			Lease:  l,
		})
	}

	for i := range s.Neighbors {
		n := &s.Neighbors[i]
		out = append(out, Observation{
			Kind:     ObservationNeighbor,
			MAC:      NormalizeMAC(n.MAC),
			Router:   s.Router.Name,
			Neighbor: n,
		})
	}

	return out
}
