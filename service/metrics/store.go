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

	"github.com/optakt/gstate/models/gstate"
)

// Store instruments a node store.
type Store struct {
	store  gstate.NodeStore
	time   *Time
	misses prometheus.Counter
	saved  prometheus.Counter
}

// NewStore wraps the given node store, registering its metrics with the given
// registry.
func NewStore(reg prometheus.Registerer, store gstate.NodeStore) *Store {
	factory := promauto.With(reg)
	misses := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "misses_total",
		Help:      "number of nodes that were not found",
	})
	saved := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "saved_nodes_total",
		Help:      "number of nodes passed to the store for saving",
	})

	s := Store{
		store:  store,
		time:   NewTime(reg, "store"),
		misses: misses,
		saved:  saved,
	}

	return &s
}

func (s *Store) Retrieve(digest gstate.Digest) ([]byte, error) {
	defer s.time.Duration("retrieve")()
	data, err := s.store.Retrieve(digest)
	if err != nil {
		s.misses.Inc()
	}
	return data, err
}

func (s *Store) Has(digest gstate.Digest) (bool, error) {
	defer s.time.Duration("has")()
	return s.store.Has(digest)
}

func (s *Store) Save(nodes map[gstate.Digest][]byte) error {
	defer s.time.Duration("save")()
	s.saved.Add(float64(len(nodes)))
	return s.store.Save(nodes)
}
