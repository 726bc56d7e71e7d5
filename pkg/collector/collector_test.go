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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/wrtwatch/pkg/logger"
	"github.com/carverauto/wrtwatch/pkg/models"
	"github.com/carverauto/wrtwatch/pkg/ubus"
)

// fakeClient is a scriptable DataClient. Unset functions answer empty.
type fakeClient struct {
	router models.RouterIdentity

	radios         func() ([]string, error)
	assocList      func(radio string) ([]models.AssociationRecord, error)
	hostapdClients func(iface string) ([]models.AssociationRecord, error)
	dhcpLeases     func() ([]models.LeaseRecord, error)
	staticHosts    func() ([]models.LeaseRecord, error)
	hostHints      func() ([]models.NeighborRecord, error)
	wirelessStatus func() ([]models.RadioInfo, error)
}

func (f *fakeClient) Router() *models.RouterIdentity { return &f.router }

func (f *fakeClient) WirelessRadios(context.Context) ([]string, error) {
	if f.radios == nil {
		return nil, nil
	}

	return f.radios()
}

func (f *fakeClient) AssocList(_ context.Context, radio string) ([]models.AssociationRecord, error) {
	if f.assocList == nil {
		return nil, nil
	}

	return f.assocList(radio)
}

func (f *fakeClient) HostapdClients(_ context.Context, iface string) ([]models.AssociationRecord, error) {
	if f.hostapdClients == nil {
		return nil, nil
	}

	return f.hostapdClients(iface)
}

func (f *fakeClient) DHCPLeases(context.Context) ([]models.LeaseRecord, error) {
	if f.dhcpLeases == nil {
		return nil, nil
	}

	return f.dhcpLeases()
}

func (f *fakeClient) StaticHosts(context.Context) ([]models.LeaseRecord, error) {
	if f.staticHosts == nil {
		return nil, nil
	}

	return f.staticHosts()
}

func (f *fakeClient) HostHints(context.Context) ([]models.NeighborRecord, error) {
	if f.hostHints == nil {
		return nil, nil
	}

	return f.hostHints()
}

func (f *fakeClient) WirelessStatus(context.Context) ([]models.RadioInfo, error) {
	if f.wirelessStatus == nil {
		return nil, nil
	}

	return f.wirelessStatus()
}

func staticProbe(caps models.Capabilities) Prober {
	return func(context.Context) (models.Capabilities, error) {
		return caps, nil
	}
}

func assoc(mac, iface string, signal int) models.AssociationRecord {
	return models.AssociationRecord{
		MAC:        mac,
		Interface:  iface,
		SignalDBM:  &signal,
		ObservedAt: time.Now(),
	}
}

func TestCollectGathersAllSources(t *testing.T) {
	client := &fakeClient{
		router: models.RouterIdentity{Name: "ap1", Host: "10.0.0.1"},
		radios: func() ([]string, error) { return []string{"wlan0"}, nil },
		assocList: func(radio string) ([]models.AssociationRecord, error) {
			return []models.AssociationRecord{assoc("AA:BB:CC:00:00:01", radio, -50)}, nil
		},
		wirelessStatus: func() ([]models.RadioInfo, error) {
			return []models.RadioInfo{{Name: "wlan0", SSID: "home", Band: "2g"}}, nil
		},
		dhcpLeases: func() ([]models.LeaseRecord, error) {
			return []models.LeaseRecord{{MAC: "AA:BB:CC:00:00:01", IP: "192.168.1.2"}}, nil
		},
		staticHosts: func() ([]models.LeaseRecord, error) {
			return []models.LeaseRecord{{MAC: "AA:BB:CC:00:00:02", IP: "192.168.1.10", Static: true}}, nil
		},
		hostHints: func() ([]models.NeighborRecord, error) {
			return []models.NeighborRecord{{MAC: "AA:BB:CC:00:00:03", IP: "192.168.1.20"}}, nil
		},
	}

	caps := models.Capabilities{HasAssociationAPI: true, HasLeaseAPI: true, HasNeighborAPI: true}
	c := NewCollector(client, staticProbe(caps), logger.NewTestLogger())

	snapshot := c.Collect(context.Background())

	require.Nil(t, snapshot.Error)
	assert.Equal(t, "ap1", snapshot.Router.Name)
	assert.False(t, snapshot.CollectedAt.IsZero())

	require.Len(t, snapshot.Associations, 1)
	assert.Equal(t, "home", snapshot.Associations[0].SSID, "SSID should be joined from wireless status")
	assert.Equal(t, "2g", snapshot.Associations[0].RadioBand)

	require.Len(t, snapshot.Leases, 2)
	assert.False(t, snapshot.Leases[0].Static)
	assert.True(t, snapshot.Leases[1].Static)

	require.Len(t, snapshot.Neighbors, 1)
}

func TestCollectPerRadioHostapdFallback(t *testing.T) {
	client := &fakeClient{
		router: models.RouterIdentity{Name: "ap1"},
		radios: func() ([]string, error) { return []string{"wlan0", "wlan1"}, nil },
		assocList: func(radio string) ([]models.AssociationRecord, error) {
			if radio == "wlan1" {
				return nil, &ubus.MethodError{Object: "iwinfo", Method: "assoclist", Status: ubus.StatusNotFound}
			}

			return []models.AssociationRecord{assoc("AA:BB:CC:00:00:01", radio, -45)}, nil
		},
		hostapdClients: func(iface string) ([]models.AssociationRecord, error) {
			require.Equal(t, "wlan1", iface, "fallback must be per radio, not all-or-nothing")

			return []models.AssociationRecord{assoc("AA:BB:CC:00:00:02", iface, -60)}, nil
		},
	}

	caps := models.Capabilities{HasAssociationAPI: true, HasHostapdAPI: true}
	c := NewCollector(client, staticProbe(caps), logger.NewTestLogger())

	snapshot := c.Collect(context.Background())

	require.Nil(t, snapshot.Error)
	require.Len(t, snapshot.Associations, 2)
	assert.Equal(t, "wlan0", snapshot.Associations[0].Interface)
	assert.Equal(t, "wlan1", snapshot.Associations[1].Interface)
}

func TestCollectPartialFailureKeepsData(t *testing.T) {
	client := &fakeClient{
		router: models.RouterIdentity{Name: "ap1"},
		radios: func() ([]string, error) { return []string{"wlan0"}, nil },
		assocList: func(radio string) ([]models.AssociationRecord, error) {
			return []models.AssociationRecord{assoc("AA:BB:CC:00:00:01", radio, -50)}, nil
		},
		dhcpLeases: func() ([]models.LeaseRecord, error) {
			return nil, &ubus.MethodError{Object: "dhcp", Method: "ipv4leases", Status: ubus.StatusUnknownError}
		},
	}

	caps := models.Capabilities{HasAssociationAPI: true, HasLeaseAPI: true}
	c := NewCollector(client, staticProbe(caps), logger.NewTestLogger())

	snapshot := c.Collect(context.Background())

	require.NotNil(t, snapshot.Error)
	assert.Equal(t, models.CollectionErrorPartial, snapshot.Error.Kind)
	assert.Len(t, snapshot.Associations, 1, "partial failure must not discard collected data")
	assert.Empty(t, snapshot.Leases)
}

func TestCollectProbeFailureTagsSnapshot(t *testing.T) {
	client := &fakeClient{router: models.RouterIdentity{Name: "ap1"}}

	probe := func(context.Context) (models.Capabilities, error) {
		return models.Capabilities{}, fmt.Errorf("%w: ap1", ubus.ErrAuthFailed)
	}

	c := NewCollector(client, probe, logger.NewTestLogger())

	snapshot := c.Collect(context.Background())

	require.NotNil(t, snapshot.Error)
	assert.Equal(t, models.CollectionErrorAuth, snapshot.Error.Kind)
	assert.True(t, snapshot.Failed())
	assert.False(t, snapshot.CollectedAt.IsZero())
}

func TestCollectReprobesAfterConsecutiveMethodErrors(t *testing.T) {
	probeCount := 0

	client := &fakeClient{
		router: models.RouterIdentity{Name: "ap1"},
		hostHints: func() ([]models.NeighborRecord, error) {
			return nil, &ubus.MethodError{Object: "luci-rpc", Method: "getHostHints", Status: ubus.StatusUnknownError}
		},
	}

	probe := func(context.Context) (models.Capabilities, error) {
		probeCount++
		return models.Capabilities{HasNeighborAPI: true}, nil
	}

	c := NewCollector(client, probe, logger.NewTestLogger(), WithReprobeThreshold(2))

	c.Collect(context.Background())
	assert.Equal(t, 1, probeCount)

	c.Collect(context.Background())
	assert.Equal(t, 1, probeCount, "one method error is below the threshold")

	c.Collect(context.Background())
	assert.Equal(t, 2, probeCount, "threshold reached, capabilities re-probed")
}

func TestCollectUnreachableRouter(t *testing.T) {
	client := &fakeClient{
		router: models.RouterIdentity{Name: "ap1"},
		radios: func() ([]string, error) {
			return nil, fmt.Errorf("%w: 10.0.0.1", ubus.ErrUnreachable)
		},
	}

	caps := models.Capabilities{HasAssociationAPI: true}
	c := NewCollector(client, staticProbe(caps), logger.NewTestLogger())

	snapshot := c.Collect(context.Background())

	require.NotNil(t, snapshot.Error)
	assert.Equal(t, models.CollectionErrorUnreachable, snapshot.Error.Kind)
	assert.True(t, snapshot.Empty())
}
