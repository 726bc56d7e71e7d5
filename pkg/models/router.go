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

// Package models defines the shared data types for router polling and
// device correlation.
package models

import (
	"fmt"
	"time"
)

// Credentials holds the login for one router's RPC interface.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RouterIdentity identifies one configured router. Immutable after
// construction; passed by reference into the session client.
type RouterIdentity struct {
	Name        string      `json:"name"`
	Host        string      `json:"host"`
	UseHTTPS    bool        `json:"use_https"`
	Credentials Credentials `json:"credentials"`
}

// Endpoint returns the ubus HTTP endpoint URL for this router.
func (r *RouterIdentity) Endpoint() string {
	scheme := "http"
	if r.UseHTTPS {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s/ubus", scheme, r.Host)
}

// Session is a server-issued authentication token scoped to one router.
// Owned exclusively by that router's session client; never shared.
type Session struct {
	Token      string
	ObtainedAt time.Time
	Router     *RouterIdentity
}
