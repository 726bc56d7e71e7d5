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

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/carverauto/wrtwatch/pkg/logger"
)

// EnvConfigLoader loads a complete JSON configuration from a single
// environment variable. Used for containerized deployments where mounting
// a config file is inconvenient.
type EnvConfigLoader struct {
	logger logger.Logger
	envVar string
}

// NewEnvConfigLoader creates a new environment variable config loader.
func NewEnvConfigLoader(log logger.Logger, envVar string) *EnvConfigLoader {
	return &EnvConfigLoader{
		logger: log,
		envVar: envVar,
	}
}

// Load implements ConfigLoader by reading JSON from the configured env var.
func (e *EnvConfigLoader) Load(_ context.Context, _ string, dst interface{}) error {
	jsonConfig := os.Getenv(e.envVar)
	if jsonConfig == "" {
		return fmt.Errorf("environment variable %s is empty: %w", e.envVar, os.ErrNotExist)
	}

	if err := json.Unmarshal([]byte(jsonConfig), dst); err != nil {
		if e.logger != nil {
			e.logger.Error().Err(err).Str("env_var", e.envVar).Msg("Failed to unmarshal config from environment")
		}

		return fmt.Errorf("failed to unmarshal %s: %w", e.envVar, err)
	}

	if e.logger != nil {
		e.logger.Info().Str("env_var", e.envVar).Msg("Loaded configuration from environment variable")
	}

	return nil
}
