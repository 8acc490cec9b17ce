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

package store

import (
	"sync"

	"github.com/optakt/gstate/models/gstate"
)

// Memory is a node store that keeps all nodes in memory.
type Memory struct {
	mutex *sync.RWMutex
	nodes map[gstate.Digest][]byte
}

// NewMemory creates an empty in-memory node store.
func NewMemory() *Memory {
	m := Memory{
		mutex: &sync.RWMutex{},
		nodes: make(map[gstate.Digest][]byte),
	}

	return &m
}

// Retrieve returns the serialized node with the given digest.
func (m *Memory) Retrieve(digest gstate.Digest) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	data, ok := m.nodes[digest]
	if !ok {
		return nil, gstate.ErrNotFound
	}

	return data, nil
}

// Has checks whether the node with the given digest is in the store.
func (m *Memory) Has(digest gstate.Digest) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	_, ok := m.nodes[digest]
	return ok, nil
}

// Save adds the given nodes to the store.
func (m *Memory) Save(nodes map[gstate.Digest][]byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for digest, data := range nodes {
		_, ok := m.nodes[digest]
		if ok {
			continue
		}
		m.nodes[digest] = data
	}

	return nil
}

// Len returns the number of nodes in the store.
func (m *Memory) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.nodes)
}

// reset drops all nodes from the store.
func (m *Memory) reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.nodes = make(map[gstate.Digest][]byte)
}
