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

package trie

import (
	"errors"

	"github.com/gammazero/deque"

	"github.com/optakt/gstate/models/gstate"
)

// ErrSkip can be returned by a walk callback to avoid descending into the
// children of the current node.
var ErrSkip = errors.New("skip children")

// Children returns the pointers a node holds to other nodes, in index order.
func Children(node Node) []Pointer {
	switch n := node.(type) {
	case *Branch:
		children := make([]Pointer, 0, n.Count())
		for _, child := range n.Children {
			if child != nil {
				children = append(children, *child)
			}
		}
		return children
	case *Extension:
		return []Pointer{n.Child}
	default:
		return nil
	}
}

// Walk visits the nodes of the given store that are reachable from the given
// root, breadth-first. The callback receives the pointer and serialized form
// of each node. Returning ErrSkip from the callback prunes the subtree below
// the node; any other error aborts the walk.
func Walk(store gstate.NodeStore, root gstate.Digest, visit func(ptr Pointer, data []byte) error) error {
	t := New(store, root)

	queue := newQueue()
	queue.Push(Pointer{Kind: NodePointer, Digest: root})
	for queue.Len() > 0 {
		ptr := queue.Pop()

		node, data, err := t.load(ptr.Digest)
		if err != nil {
			return err
		}
		err = visit(ptr, data)
		if errors.Is(err, ErrSkip) {
			continue
		}
		if err != nil {
			return err
		}
		for _, child := range Children(node) {
			queue.Push(child)
		}
	}

	return nil
}

// Leaves calls fn for every key and value in the trie. Keys are not visited
// in any particular order.
func (t *Trie) Leaves(fn func(key gstate.Key, value gstate.StoredValue) error) error {
	return Walk(t.store, t.root, func(ptr Pointer, data []byte) error {
		if ptr.Kind != LeafPointer {
			return nil
		}
		node, err := Decode(data)
		if err != nil {
			return err
		}
		leaf, ok := node.(*Leaf)
		if !ok {
			return gstate.ErrCorrupted
		}
		return fn(leaf.Key, leaf.Value)
	})
}

// queue is a FIFO queue of node pointers.
type queue struct {
	pointers *deque.Deque
}

func newQueue() *queue {
	q := queue{
		pointers: deque.New(),
	}

	return &q
}

func (q *queue) Push(ptr Pointer) {
	q.pointers.PushBack(ptr)
}

func (q *queue) Pop() Pointer {
	return q.pointers.PopFront().(Pointer)
}

func (q *queue) Len() int {
	return q.pointers.Len()
}
