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
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/wrtwatch/pkg/logger"
	"github.com/carverauto/wrtwatch/pkg/models"
)

const (
	testUsername = "root"
	testPassword = "secret"
)

// fakeRouter emulates the uhttpd ubus endpoint: session login, token
// validation, and a configurable set of object/method handlers.
type fakeRouter struct {
	t   *testing.T
	srv *httptest.Server

	mu            sync.Mutex
	logins        int
	calls         int
	tokens        map[string]bool
	expired       map[string]bool
	expireOnIssue bool

	// handlers return the ubus result array for "object.method" keys.
	// Missing keys answer with JSON-RPC object-not-found.
	handlers map[string]func(args map[string]interface{}) []interface{}
}

func newFakeRouter(t *testing.T) *fakeRouter {
	t.Helper()

	f := &fakeRouter{
		t:        t,
		tokens:   make(map[string]bool),
		expired:  make(map[string]bool),
		handlers: make(map[string]func(args map[string]interface{}) []interface{}),
	}

	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeRouter) identity() *models.RouterIdentity {
	return &models.RouterIdentity{
		Name: "test-router",
		Host: strings.TrimPrefix(f.srv.URL, "http://"),
		Credentials: models.Credentials{
			Username: testUsername,
			Password: testPassword,
		},
	}
}

func (f *fakeRouter) client(t *testing.T) *Client {
	t.Helper()

	return NewClient(f.identity(), logger.NewTestLogger())
}

func (f *fakeRouter) handleFunc(object, method string, fn func(args map[string]interface{}) []interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers[object+"."+method] = fn
}

// expireSessions invalidates every issued token; the next call on them
// answers with JSON-RPC access denied.
func (f *fakeRouter) expireSessions() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for token := range f.tokens {
		f.expired[token] = true
	}
}

func (f *fakeRouter) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.logins
}

func (f *fakeRouter) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint32     `json:"id"`
		Params []rawParam `json:"params"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Params) != 4 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	token := req.Params[0].str
	object := req.Params[1].str
	method := req.Params[2].str
	args := req.Params[3].args

	f.mu.Lock()
	defer f.mu.Unlock()

	if object == "session" && method == "login" {
		f.logins++

		if args["username"] != testUsername || args["password"] != testPassword {
			writeResult(w, req.ID, []interface{}{StatusPermissionDenied})
			return
		}

		newToken := fmt.Sprintf("tok%032d", f.logins)
		f.tokens[newToken] = true

		if f.expireOnIssue {
			f.expired[newToken] = true
		}

		writeResult(w, req.ID, []interface{}{StatusOK, map[string]interface{}{
			"ubus_rpc_session": newToken,
			"timeout":          300,
			"expires":          300,
		}})

		return
	}

	f.calls++

	if !f.tokens[token] || f.expired[token] {
		writeError(w, req.ID, rpcCodeAccessDenied, "Access denied")
		return
	}

	handler, ok := f.handlers[object+"."+method]
	if !ok {
		writeError(w, req.ID, rpcCodeObjectNotFound, "Object not found")
		return
	}

	writeResult(w, req.ID, handler(args))
}

// rawParam decodes one position of the params array, which mixes
// strings and the argument object.
type rawParam struct {
	str  string
	args map[string]interface{}
}

func (p *rawParam) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &p.str); err == nil {
		return nil
	}

	return json.Unmarshal(b, &p.args)
}

func writeResult(w http.ResponseWriter, id uint32, result []interface{}) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

func writeError(w http.ResponseWriter, id uint32, code int, message string) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]interface{}{"code": code, "message": message},
	})
}

func TestClientAuthenticatesOnFirstCall(t *testing.T) {
	router := newFakeRouter(t)
	router.handleFunc("iwinfo", "devices", func(map[string]interface{}) []interface{} {
		return []interface{}{StatusOK, map[string]interface{}{"devices": []string{"wlan0", "wlan1"}}}
	})

	client := router.client(t)
	defer client.Close()

	radios, err := client.WirelessRadios(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"wlan0", "wlan1"}, radios)
	assert.Equal(t, 1, router.loginCount())
	require.NotNil(t, client.Session())
	assert.NotEmpty(t, client.Session().Token)
}

func TestClientReusesSessionAcrossCalls(t *testing.T) {
	router := newFakeRouter(t)
	router.handleFunc("iwinfo", "devices", func(map[string]interface{}) []interface{} {
		return []interface{}{StatusOK, map[string]interface{}{"devices": []string{"wlan0"}}}
	})

	client := router.client(t)
	defer client.Close()

	for i := 0; i < 3; i++ {
		_, err := client.WirelessRadios(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, router.loginCount())
}

func TestClientReauthenticatesOnExpiredSession(t *testing.T) {
	router := newFakeRouter(t)
	router.handleFunc("iwinfo", "devices", func(map[string]interface{}) []interface{} {
		return []interface{}{StatusOK, map[string]interface{}{"devices": []string{"wlan0"}}}
	})

	client := router.client(t)
	defer client.Close()

	_, err := client.WirelessRadios(context.Background())
	require.NoError(t, err)

	router.expireSessions()

	radios, err := client.WirelessRadios(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"wlan0"}, radios)
	assert.Equal(t, 2, router.loginCount(), "expected exactly one re-login")
}

func TestClientSecondExpiryIsHardFailure(t *testing.T) {
	router := newFakeRouter(t)
	router.expireOnIssue = true
	router.handleFunc("iwinfo", "devices", func(map[string]interface{}) []interface{} {
		return []interface{}{StatusOK, map[string]interface{}{"devices": []string{"wlan0"}}}
	})

	client := router.client(t)
	defer client.Close()

	// Every token is dead on arrival, so the retry after re-login hits
	// the expiry again and must not loop.
	_, err := client.Call(context.Background(), "iwinfo", "devices", nil)
	require.Error(t, err)
	assert.Equal(t, 2, router.loginCount(), "expected exactly one re-login before giving up")
}

func TestClientAuthFailure(t *testing.T) {
	router := newFakeRouter(t)

	identity := router.identity()
	identity.Credentials.Password = "wrong"

	client := NewClient(identity, logger.NewTestLogger())
	defer client.Close()

	err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestClientPreservesMethodErrorStatus(t *testing.T) {
	router := newFakeRouter(t)
	router.handleFunc("dhcp", "ipv4leases", func(map[string]interface{}) []interface{} {
		return []interface{}{StatusNotFound}
	})

	client := router.client(t)
	defer client.Close()

	_, err := client.DHCPLeases(context.Background())
	require.Error(t, err)

	var methodErr *MethodError
	require.ErrorAs(t, err, &methodErr)
	assert.Equal(t, "dhcp", methodErr.Object)
	assert.Equal(t, "ipv4leases", methodErr.Method)
	assert.Equal(t, StatusNotFound, methodErr.Status)
	assert.True(t, IsMissingEndpoint(err))
}

func TestClientUnknownObjectIsMissingEndpoint(t *testing.T) {
	router := newFakeRouter(t)

	client := router.client(t)
	defer client.Close()

	_, err := client.HostHints(context.Background())
	require.Error(t, err)
	assert.True(t, IsMissingEndpoint(err))

	var methodErr *MethodError
	require.ErrorAs(t, err, &methodErr)
	assert.Equal(t, StatusNotFound, methodErr.Status)
}

func TestClientUnreachableHost(t *testing.T) {
	router := newFakeRouter(t)
	router.srv.Close()

	client := router.client(t)
	defer client.Close()

	err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestIsMissingEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		missing bool
	}{
		{"method not found", &MethodError{Status: StatusMethodNotFound}, true},
		{"not found", &MethodError{Status: StatusNotFound}, true},
		{"not supported", &MethodError{Status: StatusNotSupported}, true},
		{"permission denied", &MethodError{Status: StatusPermissionDenied}, true},
		{"unknown error", &MethodError{Status: StatusUnknownError}, false},
		{"timeout", ErrTimeout, false},
		{"unreachable", ErrUnreachable, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, IsMissingEndpoint(tt.err))
		})
	}
}
