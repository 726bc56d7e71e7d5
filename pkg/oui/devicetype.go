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

package oui

import "strings"

// Device type labels attached to DeviceRecords. Coarse categories only;
// anything unmatched stays unknown.
const (
	TypeMobile           = "mobile"
	TypeComputer         = "computer"
	TypeIoTSwitch        = "iot_switch"
	TypePrinter          = "printer"
	TypeSmartSpeaker     = "smart_speaker"
	TypeHomeAppliance    = "home_appliance"
	TypeRobotVacuum      = "robot_vacuum"
	TypeVehicle          = "vehicle"
	TypeNetworkEquipment = "network_equipment"
	TypeBridge           = "bridge"
	TypeUnknown          = "unknown"
)

type knownDevice struct {
	vendor     string
	deviceType string
}

// knownPrefixes are curated overrides for vendors whose registry entry
// is missing or too generic to classify. Keyed by colon-free OUI.
var knownPrefixes = map[string]knownDevice{
	// Shelly smart relays register under Allterco Robotics.
	"A4CF12": {"Shelly", TypeIoTSwitch},
	"2CF432": {"Shelly", TypeIoTSwitch},
	"ECFABC": {"Shelly", TypeIoTSwitch},
	"C8478C": {"Shelly", TypeIoTSwitch},
	"68C63A": {"Shelly", TypeIoTSwitch},
	"98F4AB": {"Shelly", TypeIoTSwitch},
	"3C6105": {"Shelly", TypeIoTSwitch},
	"543204": {"Shelly", TypeIoTSwitch},
	"E8DB84": {"Shelly", TypeIoTSwitch},
	"DC4F22": {"Shelly", TypeIoTSwitch},

	"A09208": {"Gree", TypeHomeAppliance},
	"CC8CBF": {"Gree", TypeHomeAppliance},
	"1C90FF": {"Gree", TypeHomeAppliance},

	"28B77C": {"Dreame", TypeRobotVacuum},

	"4CFCAA": {"Tesla", TypeVehicle},

	"949F3E": {"Sonos", TypeSmartSpeaker},
	"000E58": {"Sonos", TypeSmartSpeaker},
	"5CAAFD": {"Sonos", TypeSmartSpeaker},
	"B8E937": {"Sonos", TypeSmartSpeaker},

	"B827EB": {"Raspberry Pi", TypeComputer},
	"DCA632": {"Raspberry Pi", TypeComputer},
	"E45F01": {"Raspberry Pi", TypeComputer},

	"30AEA4": {"Espressif", TypeIoTSwitch},
	"240AC4": {"Espressif", TypeIoTSwitch},
	"7C9EBD": {"Espressif", TypeIoTSwitch},
}

var vendorTypeKeywords = []struct {
	deviceType string
	keywords   []string
}{
	{TypeMobile, []string{"apple", "samsung", "huawei", "oneplus", "xiaomi", "oppo", "vivo", "google", "motorola", "lg electronics"}},
	{TypeIoTSwitch, []string{"shelly", "sonoff", "tasmota", "espressif", "tuya"}},
	{TypeVehicle, []string{"tesla", "bmw", "audi", "mercedes", "ford", "toyota"}},
	{TypePrinter, []string{"brother", "canon", "epson", "lexmark", "hewlett packard", "hp inc"}},
	{TypeComputer, []string{"raspberry", "intel", "dell", "lenovo", "asustek", "micro-star", "microsoft"}},
	{TypeSmartSpeaker, []string{"sonos", "bose", "jbl", "harman"}},
	{TypeHomeAppliance, []string{"sony", "panasonic", "philips", "toshiba", "gree", "mitsubishi", "daikin"}},
	{TypeNetworkEquipment, []string{"tp-link", "netgear", "linksys", "cisco", "ubiquiti", "mikrotik", "d-link", "zyxel"}},
}

// LookupKnown checks the curated overrides before the registry table.
func LookupKnown(mac string) (vendor, deviceType string, ok bool) {
	dev, found := knownPrefixes[ouiPrefix(mac)]
	if !found {
		return "", "", false
	}

	return dev.vendor, dev.deviceType, true
}

// InferDeviceType guesses a device category from its vendor name.
func InferDeviceType(vendor string) string {
	if vendor == "" {
		return TypeUnknown
	}

	lower := strings.ToLower(vendor)

	for _, group := range vendorTypeKeywords {
		for _, keyword := range group.keywords {
			if strings.Contains(lower, keyword) {
				return group.deviceType
			}
		}
	}

	return TypeUnknown
}

// Resolver bundles the registry table with the curated overrides into
// the lookup functions the correlation engine consumes.
type Resolver struct {
	table *Table
}

// NewResolver wraps a table; table may be nil, limiting resolution to
// the curated overrides.
func NewResolver(table *Table) *Resolver {
	return &Resolver{table: table}
}

// Vendor resolves a MAC to a vendor name, overrides first.
func (r *Resolver) Vendor(mac string) string {
	if vendor, _, ok := LookupKnown(mac); ok {
		return vendor
	}

	return r.table.Lookup(mac)
}

// DeviceType resolves a MAC and vendor to a device category.
func (r *Resolver) DeviceType(mac, vendor string) string {
	if _, deviceType, ok := LookupKnown(mac); ok {
		return deviceType
	}

	return InferDeviceType(vendor)
}
