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
	"fmt"
	"net/netip"
	"regexp"
	"strconv"

	"github.com/carverauto/wrtwatch/pkg/models"
)

// SegmentRule maps an IP prefix to a segment name. Rules are evaluated
// in order; the first match wins.
type SegmentRule struct {
	Prefix  netip.Prefix
	Segment string
}

// SegmentRuleSpec is the JSON form of one segment rule.
type SegmentRuleSpec struct {
	CIDR    string `json:"cidr"`
	Segment string `json:"segment"`
}

// CompileSegmentRules parses the configured rule specs, preserving
// their order.
func CompileSegmentRules(specs []SegmentRuleSpec) ([]SegmentRule, error) {
	rules := make([]SegmentRule, 0, len(specs))

	for _, spec := range specs {
		prefix, err := netip.ParsePrefix(spec.CIDR)
		if err != nil {
			return nil, fmt.Errorf("invalid segment rule %q: %w", spec.CIDR, err)
		}

		rules = append(rules, SegmentRule{Prefix: prefix, Segment: spec.Segment})
	}

	return rules, nil
}

var vlanPattern = regexp.MustCompile(`vlan(\d+)`)

// vlanID extracts a VLAN tag from interface names like "phy0-ap1-vlan13".
func vlanID(iface string) (int, bool) {
	match := vlanPattern.FindStringSubmatch(iface)
	if match == nil {
		return 0, false
	}

	id, err := strconv.Atoi(match[1])
	if err != nil || id < 1 || id > 4094 {
		return 0, false
	}

	return id, true
}

// classifySegment derives the device's segment: an explicit VLAN tag in
// the serving interface name wins, then the ordered IP-prefix rules.
// No match yields the unknown segment.
func (e *Engine) classifySegment(record *models.DeviceRecord) string {
	if record.ServingInterface != "" && len(e.cfg.VLANSegments) > 0 {
		if id, ok := vlanID(record.ServingInterface); ok {
			if segment, ok := e.cfg.VLANSegments[id]; ok {
				return segment
			}
		}
	}

	if record.IP != "" {
		if addr, err := netip.ParseAddr(record.IP); err == nil {
			for _, rule := range e.cfg.SegmentRules {
				if rule.Prefix.Contains(addr) {
					return rule.Segment
				}
			}
		}
	}

	return models.SegmentUnknown
}
