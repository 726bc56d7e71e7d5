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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the tracker's operational counters.
type Metrics struct {
	CycleDuration  prometheus.Histogram
	CyclesTotal    prometheus.Counter
	RouterFailures *prometheus.CounterVec
	DevicesTracked prometheus.Gauge
	Events         *prometheus.CounterVec
}

// NewMetrics registers the tracker metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wrtwatch",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one full poll cycle, collection plus correlation.",
			Buckets:   prometheus.DefBuckets,
		}),
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wrtwatch",
			Name:      "cycles_total",
			Help:      "Completed poll cycles.",
		}),
		RouterFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wrtwatch",
			Name:      "router_collection_failures_total",
			Help:      "Failed router collections by router and failure kind.",
		}, []string{"router", "kind"}),
		DevicesTracked: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "wrtwatch",
			Name:      "devices_tracked",
			Help:      "Devices currently present in the unified device map.",
		}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wrtwatch",
			Name:      "device_events_total",
			Help:      "Device lifecycle events by type.",
		}, []string{"type"}),
	}
}
