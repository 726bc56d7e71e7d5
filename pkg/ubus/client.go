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

// Package ubus implements the session-based JSON-RPC client for the
// OpenWrt ubus HTTP endpoint.
package ubus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/carverauto/wrtwatch/pkg/logger"
	"github.com/carverauto/wrtwatch/pkg/models"
)

const defaultTimeout = 10 * time.Second

var errEmptyResult = errors.New("empty ubus result")

// Client owns one authenticated session with one router. The session
// token is cached across calls and cycles until the router invalidates
// it. Calls are serialized: one session is not safe for concurrent
// in-flight requests.
type Client struct {
	router     *models.RouterIdentity
	httpClient *http.Client
	clock      clockwork.Clock
	logger     logger.Logger

	mu      sync.Mutex
	session *models.Session

	nextID atomic.Uint32
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithClock injects a clock for tests.
func WithClock(clock clockwork.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clock
	}
}

// NewClient creates a session client for one router.
func NewClient(router *models.RouterIdentity, log logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		router:     router,
		httpClient: &http.Client{Timeout: defaultTimeout},
		clock:      clockwork.NewRealClock(),
		logger:     log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Router returns the identity this client talks to.
func (c *Client) Router() *models.RouterIdentity {
	return c.router
}

// Session returns the cached session, or nil before authentication.
func (c *Client) Session() *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session
}

// Authenticate logs in and caches the session token. Safe to call again;
// a repeat login simply replaces the cached session.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.authenticateLocked(ctx)
}

func (c *Client) authenticateLocked(ctx context.Context) error {
	payload, err := c.do(ctx, nullSession, "session", "login", map[string]interface{}{
		"username": c.router.Credentials.Username,
		"password": c.router.Credentials.Password,
	})
	if err != nil {
		var methodErr *MethodError
		if errors.As(err, &methodErr) || errors.Is(err, ErrSessionExpired) {
			return fmt.Errorf("%w: %s: login rejected", ErrAuthFailed, c.router.Name)
		}

		return err
	}

	var login loginPayload
	if err := json.Unmarshal(payload, &login); err != nil {
		return fmt.Errorf("%w: %s: malformed login response: %w", ErrAuthFailed, c.router.Name, err)
	}

	if login.Session == "" {
		return fmt.Errorf("%w: %s: no session token returned", ErrAuthFailed, c.router.Name)
	}

	c.session = &models.Session{
		Token:      login.Session,
		ObtainedAt: c.clock.Now(),
		Router:     c.router,
	}

	c.logger.Debug().Str("router", c.router.Name).Msg("Authenticated ubus session")

	return nil
}

// Call issues one RPC request using the cached session, authenticating
// first if needed. On session expiry it re-authenticates once and retries
// the call once; a second expiry is surfaced as a hard failure for the
// cycle rather than looping.
func (c *Client) Call(ctx context.Context, object, method string, args map[string]interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		if err := c.authenticateLocked(ctx); err != nil {
			return nil, err
		}
	}

	payload, err := c.do(ctx, c.session.Token, object, method, args)
	if !errors.Is(err, ErrSessionExpired) {
		return payload, err
	}

	c.logger.Debug().Str("router", c.router.Name).Str("object", object).Str("method", method).
		Msg("Session expired, re-authenticating")

	c.session = nil

	if err := c.authenticateLocked(ctx); err != nil {
		return nil, err
	}

	payload, err = c.do(ctx, c.session.Token, object, method, args)
	if errors.Is(err, ErrSessionExpired) {
		c.session = nil
		return nil, fmt.Errorf("session expired again after re-login on %s: %w", c.router.Name, err)
	}

	return payload, err
}

// do performs one HTTP round trip and decodes the [status, payload]
// result. The mutex must be held.
func (c *Client) do(ctx context.Context, token, object, method string, args map[string]interface{}) (json.RawMessage, error) {
	if args == nil {
		args = map[string]interface{}{}
	}

	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "call",
		Params:  [4]interface{}{token, object, method, args},
	}

	body, err := json.Marshal(&reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.router.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrUnreachable, c.router.Host, httpResp.StatusCode)
	}

	var resp rpcResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON from %s: %w", ErrUnreachable, c.router.Host, err)
	}

	if resp.Error != nil {
		return nil, c.rpcErrorToErr(resp.Error, object, method)
	}

	return c.decodeResult(resp.Result, object, method)
}

// decodeResult unpacks the ubus result array [status_code, payload].
// Nonzero status is preserved in a MethodError for diagnostics.
func (c *Client) decodeResult(result json.RawMessage, object, method string) (json.RawMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(result, &parts); err != nil {
		return nil, fmt.Errorf("%w: malformed result from %s", ErrUnreachable, c.router.Host)
	}

	if len(parts) == 0 {
		return nil, errEmptyResult
	}

	var status int
	if err := json.Unmarshal(parts[0], &status); err != nil {
		return nil, fmt.Errorf("%w: non-numeric status from %s", ErrUnreachable, c.router.Host)
	}

	if status != StatusOK {
		return nil, &MethodError{Object: object, Method: method, Status: status}
	}

	if len(parts) < 2 {
		return nil, errEmptyResult
	}

	return parts[1], nil
}

func (c *Client) rpcErrorToErr(rpcErr *rpcError, object, method string) error {
	switch rpcErr.Code {
	case rpcCodeAccessDenied:
		return fmt.Errorf("%w on %s", ErrSessionExpired, c.router.Name)
	case rpcCodeObjectNotFound:
		return &MethodError{Object: object, Method: method, Status: StatusNotFound, Message: rpcErr.Message}
	default:
		return &MethodError{Object: object, Method: method, Status: StatusUnknownError, Message: rpcErr.Message}
	}
}

func (c *Client) transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, c.router.Host, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, c.router.Host, err)
	}

	return fmt.Errorf("%w: %s: %w", ErrUnreachable, c.router.Host, err)
}

// Close releases idle transport connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
