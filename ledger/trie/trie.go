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
	"fmt"

	"github.com/optakt/gstate/models/gstate"
)

// Trie is a persistent, content-addressed radix trie with 256-way branches.
// A trie value is just a root digest and the node store that holds the nodes
// reachable from it; modifying a trie returns a new trie and leaves the old
// one valid, so tries at any root can be read concurrently.
type Trie struct {
	store gstate.NodeStore
	root  gstate.Digest
}

// New creates a trie at the given root, backed by the given node store.
func New(store gstate.NodeStore, root gstate.Digest) *Trie {
	t := Trie{
		store: store,
		root:  root,
	}

	return &t
}

// Empty creates an empty trie and makes sure its root node exists in the
// store.
func Empty(store gstate.NodeStore) (*Trie, error) {
	digest, data, err := Hash(NewBranch())
	if err != nil {
		return nil, fmt.Errorf("could not encode empty root: %w", err)
	}
	err = store.Save(map[gstate.Digest][]byte{digest: data})
	if err != nil {
		return nil, fmt.Errorf("could not save empty root: %w", err)
	}

	return New(store, digest), nil
}

// EmptyRoot returns the root digest of a trie without any keys.
func EmptyRoot() gstate.Digest {
	digest, _, _ := Hash(NewBranch())
	return digest
}

// Root returns the root digest of the trie.
func (t *Trie) Root() gstate.Digest {
	return t.root
}

// Read returns the value stored under the given key. It fails with
// gstate.ErrNotFound if the key is not in the trie.
func (t *Trie) Read(key gstate.Key) (gstate.StoredValue, error) {
	value, _, err := t.descend(key, false)
	if err != nil {
		return gstate.StoredValue{}, err
	}
	if value == nil {
		return gstate.StoredValue{}, gstate.ErrNotFound
	}
	return *value, nil
}

// Node retrieves and decodes the node with the given digest.
func (t *Trie) Node(digest gstate.Digest) (Node, error) {
	node, _, err := t.load(digest)
	return node, err
}

// load retrieves a node and returns it along with its serialized form.
func (t *Trie) load(digest gstate.Digest) (Node, []byte, error) {
	data, err := t.store.Retrieve(digest)
	if errors.Is(err, gstate.ErrNotFound) && digest == t.root {
		return nil, nil, fmt.Errorf("could not load root node (%s): %w", digest, gstate.ErrRootNotFound)
	}
	// Once we are past the root, every referenced node must exist, so a
	// missing child means the store lost data.
	if errors.Is(err, gstate.ErrNotFound) {
		return nil, nil, fmt.Errorf("missing trie node (%s): %w", digest, gstate.ErrCorrupted)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not retrieve trie node (%s): %w", digest, err)
	}

	node, err := Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("could not decode trie node (%s): %w", digest, err)
	}

	return node, data, nil
}

// descend walks from the root towards the given key. It returns the value if
// the key exists, or nil if the walk proved its absence. If record is set, it
// also returns the serialized nodes visited along the way.
func (t *Trie) descend(key gstate.Key, record bool) (*gstate.StoredValue, [][]byte, error) {

	path := key.Bytes()
	depth := 0
	current := Pointer{Kind: NodePointer, Digest: t.root}
	var visited [][]byte
	for {

		node, data, err := t.load(current.Digest)
		if err != nil {
			return nil, nil, err
		}
		if node.kind() != current.Kind {
			return nil, nil, fmt.Errorf("pointer kind mismatch (%s): %w", current.Digest, gstate.ErrCorrupted)
		}
		if record {
			visited = append(visited, data)
		}

		switch n := node.(type) {

		// When we reach a leaf, either it holds our key, or our key is not in
		// the trie, as the leaf is the only key below this point.
		case *Leaf:
			if n.Key != key {
				return nil, visited, nil
			}
			value := n.Value
			return &value, visited, nil

		// If we hit a branch node, we consume one byte of the path and move on
		// to the matching child, if there is one.
		case *Branch:
			if depth >= len(path) {
				return nil, nil, fmt.Errorf("branch below full key length (%s): %w", current.Digest, gstate.ErrCorrupted)
			}
			child := n.Child(path[depth])
			if child == nil {
				return nil, visited, nil
			}
			current = *child
			depth++

		// If we hit an extension node, either its affix is a prefix of the rest
		// of our path and we skip it, or our key is not in the trie.
		case *Extension:
			if n.matches(path[depth:]) != len(n.Affix) {
				return nil, visited, nil
			}
			current = n.Child
			depth += len(n.Affix)
		}
	}
}
