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
	"fmt"

	"github.com/gammazero/deque"

	"github.com/optakt/gstate/ledger/trie"
	"github.com/optakt/gstate/models/gstate"
)

// Overlay is a node store that keeps new nodes in memory on top of a base
// store. Reads fall through to the base store. Nothing reaches the base store
// until Flush is called, so discarding an overlay rolls back every node that
// was written to it.
type Overlay struct {
	base  gstate.NodeStore
	local *Memory
}

// NewOverlay creates an empty overlay on top of the given base store.
func NewOverlay(base gstate.NodeStore) *Overlay {
	o := Overlay{
		base:  base,
		local: NewMemory(),
	}

	return &o
}

// Retrieve returns the serialized node with the given digest from the overlay
// or, if it is not there, from the base store.
func (o *Overlay) Retrieve(digest gstate.Digest) ([]byte, error) {
	data, err := o.local.Retrieve(digest)
	if err == nil {
		return data, nil
	}
	return o.base.Retrieve(digest)
}

// Has checks whether the node is in the overlay or the base store.
func (o *Overlay) Has(digest gstate.Digest) (bool, error) {
	ok, _ := o.local.Has(digest)
	if ok {
		return true, nil
	}
	return o.base.Has(digest)
}

// Save adds the given nodes to the overlay only.
func (o *Overlay) Save(nodes map[gstate.Digest][]byte) error {
	return o.local.Save(nodes)
}

// Len returns the number of nodes held by the overlay.
func (o *Overlay) Len() int {
	return o.local.Len()
}

// Flush writes the nodes of the overlay that are reachable from the given
// root to the base store, and returns how many were written. Nodes that are
// no longer reachable, such as those of intermediate roots, are dropped.
//
// Nodes are written level by level, starting with the deepest one. If a
// write fails, the base store therefore only ever contains nodes whose
// children it also contains.
func (o *Overlay) Flush(root gstate.Digest) (int, error) {

	type item struct {
		digest gstate.Digest
		level  int
	}

	var levels []map[gstate.Digest][]byte
	queue := deque.New()
	queue.PushBack(item{digest: root})
	for queue.Len() > 0 {
		current := queue.PopFront().(item)

		// Anything that is not in the overlay is already in the base store,
		// together with its whole subtree.
		data, err := o.local.Retrieve(current.digest)
		if err != nil {
			continue
		}
		for len(levels) <= current.level {
			levels = append(levels, make(map[gstate.Digest][]byte))
		}
		_, seen := levels[current.level][current.digest]
		if seen {
			continue
		}
		levels[current.level][current.digest] = data

		node, err := trie.Decode(data)
		if err != nil {
			return 0, fmt.Errorf("could not decode overlay node (%s): %w", current.digest, err)
		}
		for _, child := range trie.Children(node) {
			queue.PushBack(item{digest: child.Digest, level: current.level + 1})
		}
	}

	written := 0
	for level := len(levels) - 1; level >= 0; level-- {
		err := o.base.Save(levels[level])
		if err != nil {
			return 0, fmt.Errorf("could not flush nodes (level: %d): %w", level, err)
		}
		written += len(levels[level])
	}

	o.local.reset()

	return written, nil
}

// Discard drops all nodes held by the overlay.
func (o *Overlay) Discard() {
	o.local.reset()
}
