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

package correlator

import (
	"sort"

	"github.com/carverauto/wrtwatch/pkg/models"
)

// SSIDGroup is one logical wireless network: all radios across all
// routers broadcasting the same SSID name, with their association counts
// summed. Individual devices still record the specific radio serving
// them.
type SSIDGroup struct {
	Name         string   `json:"name"`
	Radios       []string `json:"radios"`
	Routers      []string `json:"routers"`
	DeviceCount  int      `json:"device_count"`
	Consolidated bool     `json:"consolidated"`
}

// ConsolidateSSIDs groups the cycle's radios by SSID name so that
// multiple physical radios broadcasting one network are reported as one.
func ConsolidateSSIDs(snapshots []models.RouterSnapshot) []SSIDGroup {
	type accumulator struct {
		radios  map[string]bool
		routers map[string]bool
		devices int
	}

	groups := make(map[string]*accumulator)

	for i := range snapshots {
		s := &snapshots[i]

		for _, radio := range s.Radios {
			acc, ok := groups[radio.SSID]
			if !ok {
				acc = &accumulator{radios: make(map[string]bool), routers: make(map[string]bool)}
				groups[radio.SSID] = acc
			}

			acc.radios[s.Router.Name+"/"+radio.Name] = true
			acc.routers[s.Router.Name] = true
		}

		for _, assoc := range s.Associations {
			if assoc.SSID == "" {
				continue
			}

			if acc, ok := groups[assoc.SSID]; ok {
				acc.devices++
			}
		}
	}

	out := make([]SSIDGroup, 0, len(groups))

	for name, acc := range groups {
		group := SSIDGroup{
			Name:         name,
			Radios:       sortedSet(acc.radios),
			Routers:      sortedSet(acc.routers),
			DeviceCount:  acc.devices,
			Consolidated: len(acc.radios) > 1,
		}

		out = append(out, group)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}

	sort.Strings(out)

	return out
}
