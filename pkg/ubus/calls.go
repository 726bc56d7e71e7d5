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
	"encoding/json"
	"fmt"
	"time"

	"github.com/carverauto/wrtwatch/pkg/models"
)

// WirelessRadios returns the router's wireless interface names.
func (c *Client) WirelessRadios(ctx context.Context) ([]string, error) {
	payload, err := c.Call(ctx, "iwinfo", "devices", nil)
	if err != nil {
		return nil, err
	}

	var devices devicesPayload
	if err := json.Unmarshal(payload, &devices); err != nil {
		return nil, fmt.Errorf("malformed iwinfo devices payload: %w", err)
	}

	return devices.Devices, nil
}

// AssocList returns the associated stations on one radio interface.
// ObservedAt is captured at response receipt, not dispatch, so
// most-recent-wins comparisons downstream stay consistent.
func (c *Client) AssocList(ctx context.Context, radio string) ([]models.AssociationRecord, error) {
	payload, err := c.Call(ctx, "iwinfo", "assoclist", map[string]interface{}{"device": radio})
	if err != nil {
		return nil, err
	}

	observedAt := c.clock.Now()

	var assoc assocListPayload
	if err := json.Unmarshal(payload, &assoc); err != nil {
		return nil, fmt.Errorf("malformed assoclist payload: %w", err)
	}

	records := make([]models.AssociationRecord, 0, len(assoc.Results))

	for _, entry := range assoc.Results {
		records = append(records, models.AssociationRecord{
			MAC:        models.NormalizeMAC(entry.MAC),
			Interface:  radio,
			SignalDBM:  entry.Signal,
			ObservedAt: observedAt,
		})
	}

	return records, nil
}

// HostapdClients is the best-effort fallback for radios where the iwinfo
// assoclist call is unavailable or failing.
func (c *Client) HostapdClients(ctx context.Context, iface string) ([]models.AssociationRecord, error) {
	payload, err := c.Call(ctx, "hostapd."+iface, "get_clients", nil)
	if err != nil {
		return nil, err
	}

	observedAt := c.clock.Now()

	var clients hostapdClientsPayload
	if err := json.Unmarshal(payload, &clients); err != nil {
		return nil, fmt.Errorf("malformed hostapd clients payload: %w", err)
	}

	records := make([]models.AssociationRecord, 0, len(clients.Clients))

	for mac, client := range clients.Clients {
		if !client.Assoc {
			continue
		}

		records = append(records, models.AssociationRecord{
			MAC:        models.NormalizeMAC(mac),
			Interface:  iface,
			SignalDBM:  client.Signal,
			ObservedAt: observedAt,
		})
	}

	return records, nil
}

// DHCPLeases returns the active dynamic leases across all pools.
func (c *Client) DHCPLeases(ctx context.Context) ([]models.LeaseRecord, error) {
	payload, err := c.Call(ctx, "dhcp", "ipv4leases", nil)
	if err != nil {
		return nil, err
	}

	receivedAt := c.clock.Now()

	var leases dhcpLeasesPayload
	if err := json.Unmarshal(payload, &leases); err != nil {
		return nil, fmt.Errorf("malformed dhcp leases payload: %w", err)
	}

	var records []models.LeaseRecord

	for _, pool := range leases.Device {
		for _, lease := range pool.Leases {
			if lease.MAC == "" {
				continue
			}

			record := models.LeaseRecord{
				MAC:      models.NormalizeMAC(lease.MAC),
				IP:       lease.IP,
				Hostname: lease.Hostname,
			}

			if lease.Expires > 0 {
				record.ExpiresAt = receivedAt.Add(time.Duration(lease.Expires) * time.Second)
			}

			records = append(records, record)
		}
	}

	return records, nil
}

// StaticHosts returns the statically configured DHCP host entries.
func (c *Client) StaticHosts(ctx context.Context) ([]models.LeaseRecord, error) {
	payload, err := c.Call(ctx, "uci", "get", map[string]interface{}{"config": "dhcp", "type": "host"})
	if err != nil {
		return nil, err
	}

	var hosts uciHostsPayload
	if err := json.Unmarshal(payload, &hosts); err != nil {
		return nil, fmt.Errorf("malformed uci hosts payload: %w", err)
	}

	var records []models.LeaseRecord

	for _, section := range hosts.Values {
		if sectionType, _ := section[".type"].(string); sectionType != "host" {
			continue
		}

		mac, _ := section["mac"].(string)
		if mac == "" {
			continue
		}

		ip, _ := section["ip"].(string)
		name, _ := section["name"].(string)

		records = append(records, models.LeaseRecord{
			MAC:      models.NormalizeMAC(mac),
			IP:       ip,
			Hostname: name,
			Static:   true,
		})
	}

	return records, nil
}

// HostHints returns the router's neighbor-table view (ARP and DHCP
// hints), covering wired and cross-VLAN devices with no association.
func (c *Client) HostHints(ctx context.Context) ([]models.NeighborRecord, error) {
	payload, err := c.Call(ctx, "luci-rpc", "getHostHints", nil)
	if err != nil {
		return nil, err
	}

	var hints map[string]hostHint
	if err := json.Unmarshal(payload, &hints); err != nil {
		return nil, fmt.Errorf("malformed host hints payload: %w", err)
	}

	var records []models.NeighborRecord

	for mac, hint := range hints {
		record := models.NeighborRecord{MAC: models.NormalizeMAC(mac)}

		if len(hint.IPAddrs) > 0 {
			record.IP = hint.IPAddrs[0]
		}

		records = append(records, record)
	}

	return records, nil
}

// WirelessStatus maps radio interfaces to the SSIDs they broadcast,
// used for cross-radio SSID consolidation.
func (c *Client) WirelessStatus(ctx context.Context) ([]models.RadioInfo, error) {
	payload, err := c.Call(ctx, "network.wireless", "status", nil)
	if err != nil {
		return nil, err
	}

	var status wirelessStatusPayload
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, fmt.Errorf("malformed wireless status payload: %w", err)
	}

	var radios []models.RadioInfo

	for _, radio := range status {
		for _, iface := range radio.Interfaces {
			if iface.Ifname == "" || iface.Config.SSID == "" {
				continue
			}

			radios = append(radios, models.RadioInfo{
				Name: iface.Ifname,
				SSID: iface.Config.SSID,
				Band: radio.Config.Band,
			})
		}
	}

	return radios, nil
}
