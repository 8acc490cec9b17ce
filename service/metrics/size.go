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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Size records the size of data before and after compression.
type Size struct {
	original   *prometheus.CounterVec
	compressed *prometheus.CounterVec
}

// NewSize creates a set of size counters under the given subsystem.
func NewSize(reg prometheus.Registerer, subsystem string) *Size {
	factory := promauto.With(reg)
	original := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "original_bytes_total",
		Help:      "number of bytes before compression",
	}, []string{"category"})
	compressed := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "compressed_bytes_total",
		Help:      "number of bytes after compression",
	}, []string{"category"})

	s := Size{
		original:   original,
		compressed: compressed,
	}

	return &s
}

// Bytes records the sizes of one piece of data of the given category.
func (s *Size) Bytes(category string, originalCount int, compressedCount int) {
	s.original.WithLabelValues(category).Add(float64(originalCount))
	s.compressed.WithLabelValues(category).Add(float64(compressedCount))
}
