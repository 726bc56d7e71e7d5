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

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/carverauto/wrtwatch/pkg/collector"
	"github.com/carverauto/wrtwatch/pkg/config"
	"github.com/carverauto/wrtwatch/pkg/correlator"
	"github.com/carverauto/wrtwatch/pkg/logger"
	"github.com/carverauto/wrtwatch/pkg/models"
	"github.com/carverauto/wrtwatch/pkg/oui"
	"github.com/carverauto/wrtwatch/pkg/tracker"
	"github.com/carverauto/wrtwatch/pkg/ubus"
)

var errFailedToLoadConfig = errors.New("failed to load config")

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", "/etc/wrtwatch/wrtwatch.json", "Path to config file")
	verbose := pflag.BoolP("verbose", "v", false, "Enable debug logging")
	metricsAddr := pflag.String("metrics-addr", "", "Metrics listen address, overrides config")
	pflag.Parse()

	// Optional .env for credentials during development; absence is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgLoader := config.NewConfig(nil)

	var cfg tracker.Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = &logger.Config{Level: "info", Output: "stdout"}
	}

	if *verbose {
		logConfig.Debug = true
	}

	mainLogger, err := logger.NewComponentLogger(logConfig, "wrtwatch")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	t, registry, err := buildTracker(&cfg, logConfig)
	if err != nil {
		return err
	}

	listenAddr := cfg.ListenAddr
	if *metricsAddr != "" {
		listenAddr = *metricsAddr
	}

	if listenAddr != "" {
		go serveMetrics(ctx, listenAddr, registry, mainLogger)
	}

	return t.Run(ctx)
}

func buildTracker(cfg *tracker.Config, logConfig *logger.Config) (*tracker.Tracker, *prometheus.Registry, error) {
	ubusLogger, err := logger.NewComponentLogger(logConfig, "ubus")
	if err != nil {
		return nil, nil, err
	}

	collectorLogger, err := logger.NewComponentLogger(logConfig, "collector")
	if err != nil {
		return nil, nil, err
	}

	trackerLogger, err := logger.NewComponentLogger(logConfig, "tracker")
	if err != nil {
		return nil, nil, err
	}

	snapshotCollectors := make([]collector.SnapshotCollector, 0, len(cfg.Routers))

	for i := range cfg.Routers {
		client := ubus.NewClient(cfg.Routers[i].Identity(), ubusLogger,
			ubus.WithTimeout(time.Duration(cfg.CollectionTimeout)))

		prober := func(ctx context.Context) (models.Capabilities, error) {
			return ubus.Probe(ctx, client)
		}

		snapshotCollectors = append(snapshotCollectors,
			collector.NewCollector(client, prober, collectorLogger))
	}

	fanout := collector.NewFanOut(snapshotCollectors, collectorLogger,
		collector.WithCollectionTimeout(time.Duration(cfg.CollectionTimeout)))

	engineCfg, err := cfg.CorrelatorConfig()
	if err != nil {
		return nil, nil, err
	}

	resolver, err := buildResolver(cfg, trackerLogger)
	if err != nil {
		return nil, nil, err
	}

	engine := correlator.NewEngine(engineCfg, resolver.Vendor, trackerLogger,
		correlator.WithDeviceTyper(resolver.DeviceType))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	t := tracker.NewTracker(fanout, engine, trackerLogger,
		tracker.WithPollInterval(time.Duration(cfg.PollInterval)),
		tracker.WithMetrics(tracker.NewMetrics(registry)))

	return t, registry, nil
}

func buildResolver(cfg *tracker.Config, log logger.Logger) (*oui.Resolver, error) {
	if cfg.OUIDatabase == "" {
		return oui.NewResolver(nil), nil
	}

	table, err := oui.Load(cfg.OUIDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to load oui database: %w", err)
	}

	log.Info().
		Str("path", cfg.OUIDatabase).
		Int("prefixes", table.Len()).
		Msg("Loaded OUI vendor database")

	return oui.NewResolver(table), nil
}

func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
