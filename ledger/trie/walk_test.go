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

package trie_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/gstate/ledger/store"
	"github.com/optakt/gstate/ledger/trie"
	"github.com/optakt/gstate/models/gstate"
	"github.com/optakt/gstate/testing/mocks"
)

func TestWalk(t *testing.T) {

	keys := append(mocks.GenericPrefixedKeys(16, 8), mocks.GenericKeys(16)...)
	values := mocks.GenericValues(len(keys))

	// The store also holds the nodes of every intermediate root.
	nodes := store.NewMemory()
	tr, err := trie.Empty(nodes)
	require.NoError(t, err)
	for i, key := range keys {
		tr, err = tr.Put(key, values[i])
		require.NoError(t, err)
	}

	t.Run("visits every reachable node once", func(t *testing.T) {
		seen := make(map[gstate.Digest]int)
		leaves := 0
		err := trie.Walk(nodes, tr.Root(), func(ptr trie.Pointer, data []byte) error {
			assert.Equal(t, gstate.Hash(data), ptr.Digest)
			seen[ptr.Digest]++
			if ptr.Kind == trie.LeafPointer {
				leaves++
			}
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, len(keys), leaves)
		for _, count := range seen {
			assert.Equal(t, 1, count)
		}
		assert.Less(t, len(seen), nodes.Len())
	})

	t.Run("skip prunes subtrees", func(t *testing.T) {
		visited := 0
		err := trie.Walk(nodes, tr.Root(), func(ptr trie.Pointer, data []byte) error {
			visited++
			if ptr.Digest != tr.Root() {
				return trie.ErrSkip
			}
			return nil
		})
		require.NoError(t, err)

		root, err := tr.Node(tr.Root())
		require.NoError(t, err)
		assert.Equal(t, 1+len(trie.Children(root)), visited)
	})

	t.Run("aborts on error", func(t *testing.T) {
		err := trie.Walk(nodes, tr.Root(), func(trie.Pointer, []byte) error {
			return mocks.GenericError
		})
		assert.ErrorIs(t, err, mocks.GenericError)
	})

	t.Run("unknown root", func(t *testing.T) {
		err := trie.Walk(nodes, mocks.GenericDigest(0), func(trie.Pointer, []byte) error {
			return nil
		})
		assert.ErrorIs(t, err, gstate.ErrRootNotFound)
	})
}

func TestTrie_Leaves(t *testing.T) {

	keys := mocks.GenericKeys(32)
	values := mocks.GenericValues(32)

	tr, err := trie.Empty(store.NewMemory())
	require.NoError(t, err)
	for i, key := range keys {
		tr, err = tr.Put(key, values[i])
		require.NoError(t, err)
	}

	want := make(map[gstate.Key]gstate.StoredValue)
	for i, key := range keys {
		want[key] = values[i]
	}

	got := make(map[gstate.Key]gstate.StoredValue)
	err = tr.Leaves(func(key gstate.Key, value gstate.StoredValue) error {
		got[key] = value
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, len(want))
	for key, value := range want {
		assert.True(t, value.Equal(got[key]))
	}
}
