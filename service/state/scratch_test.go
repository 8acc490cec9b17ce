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

package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/gstate/ledger/store"
	"github.com/optakt/gstate/models/gstate"
	"github.com/optakt/gstate/service/state"
	"github.com/optakt/gstate/testing/helpers"
	"github.com/optakt/gstate/testing/mocks"
)

// Committing through a scratch space gives the same roots as committing
// directly, while only writing the nodes of the final root.
func TestScratch_Commit(t *testing.T) {

	rng := helpers.NewGenerator()
	keys, values := helpers.SampleRandomWrites(rng, 256)

	// Split the writes into blocks of transactions, adding a few prunes and
	// increments to every block.
	var batches []*gstate.EffectSet
	for start := 0; start < len(keys); start += 32 {
		effects := gstate.NewEffectSet()
		for i := start; i < start+32; i++ {
			_ = effects.Apply(keys[i], gstate.WriteTransform(values[i]))
		}
		_ = effects.Apply(keys[start], gstate.AddTransform(gstate.U64Value(1)))
		if start > 0 {
			effects.Set(keys[start-1], gstate.PruneTransform())
		}
		batches = append(batches, effects)
	}

	direct := store.NewMemory()
	ds, err := state.New(mocks.NoopLogger, direct)
	require.NoError(t, err)

	batched := store.NewMemory()
	bs, err := state.New(mocks.NoopLogger, batched)
	require.NoError(t, err)
	scratch := bs.Scratch()

	directRoot := ds.EmptyRoot()
	scratchRoot := bs.EmptyRoot()
	for _, effects := range batches {
		directRoot, err = ds.Commit(directRoot, effects)
		require.NoError(t, err)
		scratchRoot, err = scratch.Commit(scratchRoot, effects)
		require.NoError(t, err)
		assert.Equal(t, directRoot, scratchRoot)
	}

	// Nothing reaches the durable store before the write, but the scratch
	// space can already be read.
	assert.Equal(t, 1, batched.Len())
	_, err = bs.Checkout(scratchRoot)
	assert.ErrorIs(t, err, gstate.ErrRootNotFound)
	reader, err := scratch.Checkout(scratchRoot)
	require.NoError(t, err)
	_, err = reader.Read(keys[len(keys)-1])
	assert.NoError(t, err)

	written, err := scratch.Write(scratchRoot)
	require.NoError(t, err)
	assert.Equal(t, directRoot, written)
	assert.Less(t, batched.Len(), direct.Len())

	// The durable state now holds everything the direct commits produced.
	for _, key := range keys {
		want, wantErr := mustReader(t, ds, directRoot).Read(key)
		got, gotErr := mustReader(t, bs, written).Read(key)
		assert.Equal(t, wantErr, gotErr)
		assert.True(t, want.Equal(got))
	}
}

func TestScratch_Failure(t *testing.T) {

	keys := mocks.GenericKeys(2)

	nodes := store.NewMemory()
	s, err := state.New(mocks.NoopLogger, nodes)
	require.NoError(t, err)
	scratch := s.Scratch()

	root, err := scratch.Commit(s.EmptyRoot(), single(keys[0], gstate.WriteTransform(gstate.U64Value(1))))
	require.NoError(t, err)

	// A failed commit leaves the previous scratch root usable.
	_, err = scratch.Commit(root, single(keys[1], gstate.AddTransform(gstate.U64Value(1))))
	assert.ErrorIs(t, err, gstate.ErrTypeMismatch)

	tc, err := scratch.TrackingCopy(root)
	require.NoError(t, err)
	require.NoError(t, tc.Add(keys[0], gstate.U64Value(2)))

	updated, err := scratch.Commit(root, tc.Effects())
	require.NoError(t, err)

	written, err := scratch.Write(updated)
	require.NoError(t, err)
	assertValue(t, s, written, keys[0], gstate.U64Value(3))

	t.Run("write of unknown root", func(t *testing.T) {
		_, err := scratch.Write(mocks.GenericDigest(0))
		assert.ErrorIs(t, err, gstate.ErrRootNotFound)
	})

	t.Run("discard", func(t *testing.T) {
		before := nodes.Len()

		root, err := scratch.Commit(written, single(keys[1], gstate.WriteTransform(gstate.U64Value(1))))
		require.NoError(t, err)
		scratch.Discard()

		_, err = scratch.Checkout(root)
		assert.ErrorIs(t, err, gstate.ErrRootNotFound)
		assert.Equal(t, before, nodes.Len())
	})
}

func mustReader(t *testing.T, s *state.State, root gstate.Digest) *state.Reader {
	t.Helper()

	reader, err := s.Checkout(root)
	require.NoError(t, err)

	return reader
}
