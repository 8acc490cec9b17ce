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

package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/gstate/ledger/store"
	"github.com/optakt/gstate/ledger/trie"
	"github.com/optakt/gstate/models/gstate"
	"github.com/optakt/gstate/testing/mocks"
)

func TestMemory(t *testing.T) {

	nodes := genericNodes(4)
	m := store.NewMemory()

	err := m.Save(nodes)
	require.NoError(t, err)
	assert.Equal(t, len(nodes), m.Len())

	for digest, data := range nodes {
		got, err := m.Retrieve(digest)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}

	_, err = m.Retrieve(mocks.GenericDigest(0))
	assert.ErrorIs(t, err, gstate.ErrNotFound)

	ok, err := m.Has(mocks.GenericDigest(0))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOverlay_Flush(t *testing.T) {

	keys := append(mocks.GenericPrefixedKeys(32, 6), mocks.GenericKeys(32)...)
	values := mocks.GenericValues(len(keys))

	base := store.NewMemory()
	empty, err := trie.Empty(base)
	require.NoError(t, err)
	before := base.Len()

	overlay := store.NewOverlay(base)
	tr := trie.New(overlay, empty.Root())
	for i, key := range keys {
		tr, err = tr.Put(key, values[i])
		require.NoError(t, err)
	}

	// Nothing reaches the base store before the flush.
	assert.Equal(t, before, base.Len())
	ok, err := overlay.Has(tr.Root())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = base.Has(tr.Root())
	require.NoError(t, err)
	assert.False(t, ok)

	// Count the nodes that are reachable from the final root, which excludes
	// all nodes only used by intermediate roots.
	reachable := 0
	err = trie.Walk(overlay, tr.Root(), func(ptr trie.Pointer, _ []byte) error {
		known, err := base.Has(ptr.Digest)
		if err != nil {
			return err
		}
		if !known {
			reachable++
		}
		return nil
	})
	require.NoError(t, err)
	require.Less(t, reachable, overlay.Len())

	written, err := overlay.Flush(tr.Root())
	require.NoError(t, err)
	assert.Equal(t, reachable, written)
	assert.Equal(t, before+written, base.Len())
	assert.Zero(t, overlay.Len())

	durable := trie.New(base, tr.Root())
	for i, key := range keys {
		value, err := durable.Read(key)
		require.NoError(t, err)
		assert.True(t, values[i].Equal(value))
	}
}

func TestOverlay_Discard(t *testing.T) {

	base := store.NewMemory()
	empty, err := trie.Empty(base)
	require.NoError(t, err)

	overlay := store.NewOverlay(base)
	tr, err := trie.New(overlay, empty.Root()).Put(mocks.GenericKey(0), mocks.GenericValue(0))
	require.NoError(t, err)
	require.NotZero(t, overlay.Len())

	overlay.Discard()
	assert.Zero(t, overlay.Len())
	assert.Equal(t, 1, base.Len())

	_, err = tr.Read(mocks.GenericKey(0))
	assert.ErrorIs(t, err, gstate.ErrRootNotFound)

	// Reads of nodes that are in the base store still work.
	_, err = trie.New(overlay, empty.Root()).Read(mocks.GenericKey(0))
	assert.ErrorIs(t, err, gstate.ErrNotFound)
}

// When a level fails to be written, the base store must never contain a node
// whose children are missing.
func TestOverlay_FlushFailure(t *testing.T) {

	keys := mocks.GenericKeys(16)
	values := mocks.GenericValues(16)

	inner := store.NewMemory()
	empty, err := trie.Empty(inner)
	require.NoError(t, err)

	calls := 0
	saved := make(map[gstate.Digest][]byte)
	base := mocks.BaselineNodeStore(t)
	base.RetrieveFunc = inner.Retrieve
	base.HasFunc = inner.Has
	base.SaveFunc = func(nodes map[gstate.Digest][]byte) error {
		calls++
		if calls > 1 {
			return mocks.GenericError
		}
		for digest, data := range nodes {
			saved[digest] = data
		}
		return inner.Save(nodes)
	}

	overlay := store.NewOverlay(base)
	tr := trie.New(overlay, empty.Root())
	for i, key := range keys {
		tr, err = tr.Put(key, values[i])
		require.NoError(t, err)
	}

	_, err = overlay.Flush(tr.Root())
	assert.ErrorIs(t, err, mocks.GenericError)

	ok, err := inner.Has(tr.Root())
	require.NoError(t, err)
	assert.False(t, ok)

	// The deepest level made it to the base store, and only references nodes
	// that are there as well.
	require.NotEmpty(t, saved)
	for _, data := range saved {
		node, err := trie.Decode(data)
		require.NoError(t, err)
		for _, child := range trie.Children(node) {
			ok, err := inner.Has(child.Digest)
			require.NoError(t, err)
			assert.True(t, ok)
		}
	}
}
