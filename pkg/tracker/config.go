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

package tracker

import (
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/wrtwatch/pkg/config"
	"github.com/carverauto/wrtwatch/pkg/correlator"
	"github.com/carverauto/wrtwatch/pkg/logger"
	"github.com/carverauto/wrtwatch/pkg/models"
)

const (
	defaultPollInterval      = 30 * time.Second
	defaultCollectionTimeout = 10 * time.Second
)

var (
	errNoRouters          = errors.New("at least one router must be configured")
	errRouterName         = errors.New("router name must not be empty")
	errRouterHost         = errors.New("router host must not be empty")
	errRouterCredentials  = errors.New("router credentials must not be empty")
	errDuplicateRouter    = errors.New("duplicate router name")
	errTimeoutVsInterval  = errors.New("collection_timeout must not exceed poll_interval")
	errNegativeTunable    = errors.New("tunable must not be negative")
	errInvalidSegmentRule = errors.New("invalid segment rule")
)

// RouterConfig is one router entry in the service configuration.
type RouterConfig struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	UseHTTPS bool   `json:"use_https,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Identity converts the config entry to its runtime identity.
func (r *RouterConfig) Identity() *models.RouterIdentity {
	return &models.RouterIdentity{
		Name:     r.Name,
		Host:     r.Host,
		UseHTTPS: r.UseHTTPS,
		Credentials: models.Credentials{
			Username: r.Username,
			Password: r.Password,
		},
	}
}

// Config is the full service configuration.
type Config struct {
	Routers           []RouterConfig               `json:"routers"`
	PollInterval      config.Duration              `json:"poll_interval,omitempty"`
	CollectionTimeout config.Duration              `json:"collection_timeout,omitempty"`
	SignalEpsilonDBM  int                          `json:"signal_epsilon_dbm,omitempty"`
	AbsenceCycles     int                          `json:"absence_cycles,omitempty"`
	SegmentRules      []correlator.SegmentRuleSpec `json:"segment_rules,omitempty"`
	VLANSegments      map[int]string               `json:"vlan_segments,omitempty"`
	OUIDatabase       string                       `json:"oui_database,omitempty"`
	ListenAddr        string                       `json:"listen_addr,omitempty"`
	Logging           *logger.Config               `json:"logging,omitempty"`
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if len(c.Routers) == 0 {
		return errNoRouters
	}

	seen := make(map[string]bool, len(c.Routers))

	for i := range c.Routers {
		r := &c.Routers[i]

		if r.Name == "" {
			return fmt.Errorf("%w (router %d)", errRouterName, i)
		}

		if r.Host == "" {
			return fmt.Errorf("%w (router %q)", errRouterHost, r.Name)
		}

		if r.Username == "" || r.Password == "" {
			return fmt.Errorf("%w (router %q)", errRouterCredentials, r.Name)
		}

		if seen[r.Name] {
			return fmt.Errorf("%w: %q", errDuplicateRouter, r.Name)
		}

		seen[r.Name] = true
	}

	if c.PollInterval == 0 {
		c.PollInterval = config.Duration(defaultPollInterval)
	}

	if c.CollectionTimeout == 0 {
		c.CollectionTimeout = config.Duration(defaultCollectionTimeout)
	}

	if time.Duration(c.CollectionTimeout) > time.Duration(c.PollInterval) {
		return errTimeoutVsInterval
	}

	if c.SignalEpsilonDBM < 0 || c.AbsenceCycles < 0 {
		return errNegativeTunable
	}

	if _, err := correlator.CompileSegmentRules(c.SegmentRules); err != nil {
		return fmt.Errorf("%w: %w", errInvalidSegmentRule, err)
	}

	return nil
}

// CorrelatorConfig builds the correlation tunables from the service
// configuration. Validate must have been called first.
func (c *Config) CorrelatorConfig() (correlator.Config, error) {
	rules, err := correlator.CompileSegmentRules(c.SegmentRules)
	if err != nil {
		return correlator.Config{}, err
	}

	return correlator.Config{
		SignalEpsilonDBM: c.SignalEpsilonDBM,
		AbsenceCycles:    c.AbsenceCycles,
		SegmentRules:     rules,
		VLANSegments:     c.VLANSegments,
	}, nil
}
