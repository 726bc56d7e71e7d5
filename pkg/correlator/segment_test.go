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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/wrtwatch/pkg/models"
)

func TestVLANID(t *testing.T) {
	tests := []struct {
		iface string
		want  int
		ok    bool
	}{
		{"phy0-ap1-vlan13", 13, true},
		{"wlan0.vlan100", 100, true},
		{"phy0-ap0", 0, false},
		{"eth0", 0, false},
		{"vlan0", 0, false},
		{"vlan9999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.iface, func(t *testing.T) {
			id, ok := vlanID(tt.iface)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestClassifySegmentFirstMatchWins(t *testing.T) {
	rules, err := CompileSegmentRules([]SegmentRuleSpec{
		{CIDR: "192.168.5.0/24", Segment: "lab"},
		{CIDR: "192.168.0.0/16", Segment: "lan"},
	})
	require.NoError(t, err)

	e := newTestEngine(Config{SegmentRules: rules})

	tests := []struct {
		ip   string
		want string
	}{
		{"192.168.5.7", "lab"},
		{"192.168.1.7", "lan"},
		{"10.1.2.3", models.SegmentUnknown},
		{"", models.SegmentUnknown},
	}

	for _, tt := range tests {
		got := e.classifySegment(&models.DeviceRecord{IP: tt.ip})
		assert.Equal(t, tt.want, got, "ip %q", tt.ip)
	}
}

func TestClassifySegmentVLANHintWins(t *testing.T) {
	rules, err := CompileSegmentRules([]SegmentRuleSpec{
		{CIDR: "192.168.0.0/16", Segment: "lan"},
	})
	require.NoError(t, err)

	e := newTestEngine(Config{
		SegmentRules: rules,
		VLANSegments: map[int]string{13: "iot"},
	})

	record := &models.DeviceRecord{
		IP:               "192.168.13.5",
		ServingInterface: "phy0-ap1-vlan13",
	}

	assert.Equal(t, "iot", e.classifySegment(record))

	// Unmapped VLAN falls back to the IP rules.
	record.ServingInterface = "phy0-ap1-vlan99"
	assert.Equal(t, "lan", e.classifySegment(record))
}
