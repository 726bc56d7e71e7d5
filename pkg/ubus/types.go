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

import "encoding/json"

// nullSession is the well-known token used for the login call.
const nullSession = "00000000000000000000000000000000"

// rpcRequest is the JSON-RPC envelope for one ubus call:
// params = [session_token, object, method, arguments].
type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      uint32         `json:"id"`
	Method  string         `json:"method"`
	Params  [4]interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint32          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// loginPayload is the result payload of session.login.
type loginPayload struct {
	Session string `json:"ubus_rpc_session"`
	Timeout int    `json:"timeout"`
	Expires int    `json:"expires"`
}

type devicesPayload struct {
	Devices []string `json:"devices"`
}

type assocEntry struct {
	MAC    string `json:"mac"`
	Signal *int   `json:"signal"`
	Noise  int    `json:"noise"`
	Inact  int    `json:"inactive"`
}

type assocListPayload struct {
	Results []assocEntry `json:"results"`
}

// hostapdClientsPayload is the shape of hostapd.<iface> get_clients.
type hostapdClientsPayload struct {
	Clients map[string]hostapdClient `json:"clients"`
}

type hostapdClient struct {
	Signal *int `json:"signal"`
	Auth   bool `json:"auth"`
	Assoc  bool `json:"assoc"`
}

type dhcpLease struct {
	MAC      string `json:"macaddr"`
	IP       string `json:"ipaddr"`
	Hostname string `json:"hostname"`
	Expires  int64  `json:"expires"`
}

// dhcpLeasesPayload is the shape of dhcp.ipv4leases, keyed by DHCP pool.
type dhcpLeasesPayload struct {
	Device map[string]struct {
		Leases []dhcpLease `json:"leases"`
	} `json:"device"`
}

// uciHostsPayload is the shape of uci get {config: dhcp, type: host}.
type uciHostsPayload struct {
	Values map[string]map[string]interface{} `json:"values"`
}

// hostHint is one entry of luci-rpc getHostHints, keyed by MAC.
type hostHint struct {
	Name    string   `json:"name"`
	IPAddrs []string `json:"ipaddrs"`
}

// wirelessStatusPayload is the shape of network.wireless status,
// keyed by radio name.
type wirelessStatusPayload map[string]struct {
	Config struct {
		Band string `json:"band"`
	} `json:"config"`
	Interfaces []struct {
		Ifname string `json:"ifname"`
		Config struct {
			SSID string `json:"ssid"`
			Mode string `json:"mode"`
		} `json:"config"`
	} `json:"interfaces"`
}
