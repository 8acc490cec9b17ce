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
	"bytes"
	"fmt"

	"github.com/optakt/gstate/models/gstate"
)

// Put returns a new trie where the given key holds the given value. Only the
// nodes on the path from the root to the key are rebuilt; all other subtrees
// are shared with the original trie. The new nodes are saved to the store
// before Put returns.
func (t *Trie) Put(key gstate.Key, value gstate.StoredValue) (*Trie, error) {
	m := newMutation(t)
	root := Pointer{Kind: NodePointer, Digest: t.root}
	updated, err := m.insert(root, key.Bytes(), 0, NewLeaf(key, value))
	if err != nil {
		return nil, fmt.Errorf("could not insert key %s: %w", key, err)
	}

	return m.commit(updated)
}

// Delete returns a new trie without the given key, and whether the key was
// present. If the key was not present, the original trie is returned.
func (t *Trie) Delete(key gstate.Key) (*Trie, bool, error) {
	m := newMutation(t)
	root := Pointer{Kind: NodePointer, Digest: t.root}
	updated, found, err := m.remove(root, key.Bytes(), 0)
	if err != nil {
		return nil, false, fmt.Errorf("could not delete key %s: %w", key, err)
	}
	if !found {
		return t, false, nil
	}

	trie, err := m.commit(*updated)
	if err != nil {
		return nil, false, err
	}

	return trie, true, nil
}

// mutation collects the nodes created while rebuilding a path of the trie.
type mutation struct {
	trie  *Trie
	nodes map[gstate.Digest][]byte
	cache map[gstate.Digest]Node
}

func newMutation(t *Trie) *mutation {
	m := mutation{
		trie:  t,
		nodes: make(map[gstate.Digest][]byte),
		cache: make(map[gstate.Digest]Node),
	}

	return &m
}

// save serializes a new node and returns a pointer to it.
func (m *mutation) save(node Node) (Pointer, error) {
	digest, data, err := Hash(node)
	if err != nil {
		return Pointer{}, fmt.Errorf("could not encode node: %w", err)
	}
	m.nodes[digest] = data
	m.cache[digest] = node
	return pointerTo(node, digest), nil
}

// load returns a node, looking at the nodes created by this mutation first.
func (m *mutation) load(ptr Pointer) (Node, error) {
	node, ok := m.cache[ptr.Digest]
	if !ok {
		var err error
		node, err = m.trie.Node(ptr.Digest)
		if err != nil {
			return nil, err
		}
	}
	if node.kind() != ptr.Kind {
		return nil, fmt.Errorf("pointer kind mismatch (%s): %w", ptr.Digest, gstate.ErrCorrupted)
	}
	return node, nil
}

// commit saves the new nodes and returns the trie at the given root. Nodes
// that ended up unreachable from the root, because a later step replaced
// them, are saved too; they are harmless in a content-addressed store.
func (m *mutation) commit(root Pointer) (*Trie, error) {
	if root.Digest == m.trie.root {
		return m.trie, nil
	}
	err := m.trie.store.Save(m.nodes)
	if err != nil {
		return nil, fmt.Errorf("could not save trie nodes: %w", err)
	}
	return New(m.trie.store, root.Digest), nil
}

// insert places the leaf into the subtree at the given pointer, which sits at
// the given depth of the path, and returns the pointer to the rebuilt subtree.
func (m *mutation) insert(ptr Pointer, path []byte, depth int, leaf *Leaf) (Pointer, error) {

	node, err := m.load(ptr)
	if err != nil {
		return Pointer{}, err
	}

	switch n := node.(type) {

	// When we reach a leaf, we either replace its value if it holds our key,
	// or we need to split the path at the first byte where both keys differ.
	case *Leaf:
		if n.Key == leaf.Key {
			if n.Value.Equal(leaf.Value) {
				return ptr, nil
			}
			return m.save(leaf)
		}

		other := n.Key.Bytes()
		common := depth + commonPrefix(path[depth:], other[depth:])
		if common >= len(path) || common >= len(other) {
			return Pointer{}, fmt.Errorf("key %s is a prefix of key %s: %w", leaf.Key, n.Key, gstate.ErrInvalidKey)
		}

		inserted, err := m.save(leaf)
		if err != nil {
			return Pointer{}, err
		}
		branch := NewBranch()
		branch.Children[other[common]] = &ptr
		branch.Children[path[common]] = &inserted

		return m.wrap(path[depth:common], branch)

	// When we reach a branch, we continue on the slot for the next byte of
	// our path. An empty slot can directly hold our leaf.
	case *Branch:
		if depth >= len(path) {
			return Pointer{}, fmt.Errorf("branch below full key length: %w", gstate.ErrCorrupted)
		}
		index := path[depth]
		child := n.Child(index)

		var updated Pointer
		if child == nil {
			updated, err = m.save(leaf)
		} else {
			updated, err = m.insert(*child, path, depth+1, leaf)
		}
		if err != nil {
			return Pointer{}, err
		}
		if child != nil && *child == updated {
			return ptr, nil
		}

		return m.save(n.with(index, &updated))

	// When we reach an extension, we skip it entirely if our path matches its
	// affix. Otherwise, we need to insert a branch where the paths diverge.
	case *Extension:
		common := n.matches(path[depth:])
		if common == len(n.Affix) {
			updated, err := m.insert(n.Child, path, depth+common, leaf)
			if err != nil {
				return Pointer{}, err
			}
			if updated == n.Child {
				return ptr, nil
			}
			return m.save(NewExtension(n.Affix, updated))
		}
		if depth+common >= len(path) {
			return Pointer{}, fmt.Errorf("key %s ends inside extension: %w", leaf.Key, gstate.ErrInvalidKey)
		}

		// If the extension diverges on its last byte, the new branch can point
		// directly at the extension's child. Otherwise, the remainder of the
		// affix after the diverging byte needs its own extension.
		var old Pointer
		if common+1 == len(n.Affix) {
			old = n.Child
		} else {
			old, err = m.save(NewExtension(n.Affix[common+1:], n.Child))
			if err != nil {
				return Pointer{}, err
			}
		}

		inserted, err := m.save(leaf)
		if err != nil {
			return Pointer{}, err
		}
		branch := NewBranch()
		branch.Children[n.Affix[common]] = &old
		branch.Children[path[depth+common]] = &inserted

		return m.wrap(n.Affix[:common], branch)
	}

	return Pointer{}, fmt.Errorf("unknown node type (%T)", node)
}

// wrap saves the branch, and puts it behind an extension over the given affix
// if the affix is not empty.
func (m *mutation) wrap(affix []byte, branch *Branch) (Pointer, error) {
	ptr, err := m.save(branch)
	if err != nil {
		return Pointer{}, err
	}
	if len(affix) == 0 {
		return ptr, nil
	}
	return m.save(NewExtension(affix, ptr))
}

// remove deletes the key from the subtree at the given pointer. It returns
// nil if the subtree became empty, and whether the key was found at all.
func (m *mutation) remove(ptr Pointer, path []byte, depth int) (*Pointer, bool, error) {

	node, err := m.load(ptr)
	if err != nil {
		return nil, false, err
	}

	switch n := node.(type) {

	case *Leaf:
		if !bytes.Equal(n.Key.Bytes(), path) {
			return &ptr, false, nil
		}
		return nil, true, nil

	case *Branch:
		if depth >= len(path) {
			return nil, false, fmt.Errorf("branch below full key length: %w", gstate.ErrCorrupted)
		}
		index := path[depth]
		child := n.Child(index)
		if child == nil {
			return &ptr, false, nil
		}
		updated, found, err := m.remove(*child, path, depth+1)
		if err != nil {
			return nil, false, err
		}
		if !found {
			return &ptr, false, nil
		}

		// The root stays a branch no matter how many children it has left.
		branch := n.with(index, updated)
		if depth == 0 || branch.Count() >= 2 {
			saved, err := m.save(branch)
			if err != nil {
				return nil, false, err
			}
			return &saved, true, nil
		}

		collapsed, err := m.collapse(branch)
		if err != nil {
			return nil, false, err
		}
		return collapsed, true, nil

	case *Extension:
		if n.matches(path[depth:]) != len(n.Affix) {
			return &ptr, false, nil
		}
		updated, found, err := m.remove(n.Child, path, depth+len(n.Affix))
		if err != nil {
			return nil, false, err
		}
		if !found {
			return &ptr, false, nil
		}
		if updated == nil {
			return nil, true, nil
		}

		merged, err := m.prepend(n.Affix, *updated)
		if err != nil {
			return nil, false, err
		}
		return &merged, true, nil
	}

	return nil, false, fmt.Errorf("unknown node type (%T)", node)
}

// collapse replaces a branch with a single child by the equivalent minimal
// subtree: the child itself if it is a leaf, or an extension over the index
// byte otherwise.
func (m *mutation) collapse(branch *Branch) (*Pointer, error) {
	index, child := branch.only()
	if child == nil {
		return nil, nil
	}
	if child.Kind == LeafPointer {
		return child, nil
	}
	merged, err := m.prepend([]byte{index}, *child)
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

// prepend puts the given affix in front of the subtree at the given pointer.
// Leaves absorb the affix, since they hold their full key, and consecutive
// extensions are merged into one.
func (m *mutation) prepend(affix []byte, ptr Pointer) (Pointer, error) {
	if ptr.Kind == LeafPointer {
		return ptr, nil
	}

	node, err := m.load(ptr)
	if err != nil {
		return Pointer{}, err
	}

	switch n := node.(type) {
	case *Extension:
		joined := make([]byte, 0, len(affix)+len(n.Affix))
		joined = append(joined, affix...)
		joined = append(joined, n.Affix...)
		return m.save(NewExtension(joined, n.Child))
	case *Branch:
		return m.save(NewExtension(affix, ptr))
	default:
		return Pointer{}, fmt.Errorf("unexpected node type under extension (%T): %w", node, gstate.ErrCorrupted)
	}
}
