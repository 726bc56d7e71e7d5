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
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed indicates rejected credentials. Fatal for the router
	// until reconfigured; never retried automatically.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrSessionExpired indicates the router no longer accepts the cached
	// session token. Recoverable with one re-login.
	ErrSessionExpired = errors.New("session expired")

	// ErrTimeout indicates the request deadline elapsed. Transient;
	// retried naturally on the next poll cycle.
	ErrTimeout = errors.New("request timed out")

	// ErrUnreachable indicates a connection-level failure.
	ErrUnreachable = errors.New("router unreachable")
)

// ubus method status codes, as returned in result[0].
const (
	StatusOK               = 0
	StatusInvalidCommand   = 1
	StatusInvalidArgument  = 2
	StatusMethodNotFound   = 3
	StatusNotFound         = 4
	StatusNoData           = 5
	StatusPermissionDenied = 6
	StatusTimeout          = 7
	StatusNotSupported     = 8
	StatusUnknownError     = 9
	StatusConnectionFailed = 10
)

// JSON-RPC error codes used by the uhttpd ubus endpoint.
const (
	rpcCodeObjectNotFound = -32000
	rpcCodeAccessDenied   = -32002
)

// MethodError is a method-level failure with the router's numeric status
// preserved for diagnostics.
type MethodError struct {
	Object  string
	Method  string
	Status  int
	Message string
}

func (e *MethodError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ubus call %s.%s failed: %s (status %d)", e.Object, e.Method, e.Message, e.Status)
	}

	return fmt.Sprintf("ubus call %s.%s failed with status %d", e.Object, e.Method, e.Status)
}

// IsMissingEndpoint reports whether err means the object or method does
// not exist on the router. Treated as capability absence, not a fault:
// dumb access points legitimately lack the dhcp and luci-rpc objects.
func IsMissingEndpoint(err error) bool {
	var methodErr *MethodError
	if !errors.As(err, &methodErr) {
		return false
	}

	switch methodErr.Status {
	case StatusMethodNotFound, StatusNotFound, StatusNotSupported, StatusPermissionDenied:
		return true
	default:
		return false
	}
}
