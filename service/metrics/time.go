// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gstate"

// Time records the duration of named operations.
type Time struct {
	durations *prometheus.HistogramVec
}

// NewTime creates a set of duration histograms under the given subsystem.
func NewTime(reg prometheus.Registerer, subsystem string) *Time {
	durations := promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "duration_seconds",
		Help:      "duration of operations",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"operation"})

	t := Time{
		durations: durations,
	}

	return &t
}

// Duration starts timing the named operation; the returned function stops it.
func (t *Time) Duration(name string) func() {
	start := time.Now()
	return func() {
		t.durations.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}
