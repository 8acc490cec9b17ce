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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/gstate/ledger/store"
	"github.com/optakt/gstate/models/gstate"
	"github.com/optakt/gstate/service/state"
	"github.com/optakt/gstate/testing/helpers"
	"github.com/optakt/gstate/testing/mocks"
)

func TestNew(t *testing.T) {

	t.Run("nominal case", func(t *testing.T) {
		nodes := store.NewMemory()
		s, err := state.New(mocks.NoopLogger, nodes)
		require.NoError(t, err)
		assert.Equal(t, 1, nodes.Len())
		assert.Equal(t, gstate.DefaultConfig, s.Config())

		_, err = s.Checkout(s.EmptyRoot())
		assert.NoError(t, err)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		_, err := state.New(mocks.NoopLogger, store.NewMemory(), gstate.WithMaxQueryDepth(0))
		assert.Error(t, err)
	})

	t.Run("handles store failure", func(t *testing.T) {
		nodes := mocks.BaselineNodeStore(t)
		nodes.SaveFunc = func(map[gstate.Digest][]byte) error {
			return mocks.GenericError
		}

		_, err := state.New(mocks.NoopLogger, nodes)
		assert.ErrorIs(t, err, mocks.GenericError)
	})
}

// Historical roots stay readable after new commits on top of them.
func TestState_Commit_History(t *testing.T) {

	key := mocks.GenericKey(0)

	backends := map[string]gstate.NodeStore{
		"memory":  store.NewMemory(),
		"durable": helpers.InMemoryStore(t),
	}

	for name, nodes := range backends {
		nodes := nodes
		t.Run(name, func(t *testing.T) {
			s, err := state.New(mocks.NoopLogger, nodes)
			require.NoError(t, err)

			r0, err := s.Commit(s.EmptyRoot(), gstate.NewEffectSet())
			require.NoError(t, err)
			assert.Equal(t, s.EmptyRoot(), r0)

			r1, err := s.Commit(r0, single(key, gstate.WriteTransform(gstate.U64Value(10))))
			require.NoError(t, err)
			assertValue(t, s, r1, key, gstate.U64Value(10))

			r2, err := s.Commit(r1, single(key, gstate.AddTransform(gstate.U64Value(5))))
			require.NoError(t, err)
			assertValue(t, s, r2, key, gstate.U64Value(15))
			assertValue(t, s, r1, key, gstate.U64Value(10))

			r3, err := s.Commit(r2, single(key, gstate.PruneTransform()))
			require.NoError(t, err)
			assertAbsent(t, s, r3, key)
			assert.Equal(t, s.EmptyRoot(), r3)
			assertValue(t, s, r2, key, gstate.U64Value(15))
		})
	}
}

func TestState_Commit(t *testing.T) {

	keys := mocks.GenericKeys(3)

	t.Run("identity effects keep the root", func(t *testing.T) {
		s := newState(t)
		root := seed(t, s, keys)

		effects := gstate.NewEffectSet()
		for _, key := range keys {
			effects.Set(key, gstate.IdentityTransform())
		}
		effects.Set(mocks.GenericKey(10), gstate.IdentityTransform())

		got, err := s.Commit(root, effects)
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})

	t.Run("insertion order does not matter", func(t *testing.T) {
		s := newState(t)

		forward := gstate.NewEffectSet()
		for i, key := range keys {
			forward.Set(key, gstate.WriteTransform(mocks.GenericValue(i)))
		}
		backward := gstate.NewEffectSet()
		for i := len(keys) - 1; i >= 0; i-- {
			backward.Set(keys[i], gstate.WriteTransform(mocks.GenericValue(i)))
		}

		first, err := s.Commit(s.EmptyRoot(), forward)
		require.NoError(t, err)
		second, err := s.Commit(s.EmptyRoot(), backward)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("reports the failing key", func(t *testing.T) {
		s := newState(t)
		root := seed(t, s, keys)

		effects := gstate.NewEffectSet()
		effects.Set(keys[0], gstate.PruneTransform())
		effects.Set(keys[1], gstate.WriteTransform(gstate.U64Value(1)))
		effects.Set(keys[2], gstate.AddTransform(gstate.U64Value(2)))

		// The third key holds bytes, which cannot be added to.
		_, err := s.Commit(root, effects)
		var cerr *gstate.CommitError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, keys[2], cerr.Key)
		assert.Equal(t, gstate.Add, cerr.Transform.Kind)
		assert.ErrorIs(t, err, gstate.ErrTypeMismatch)
	})

	t.Run("add to missing key", func(t *testing.T) {
		s := newState(t)

		_, err := s.Commit(s.EmptyRoot(), single(keys[0], gstate.AddTransform(gstate.U64Value(1))))
		assert.ErrorIs(t, err, gstate.ErrTypeMismatch)
	})

	t.Run("prune of missing key", func(t *testing.T) {
		s := newState(t)
		root := seed(t, s, keys[:1])

		got, err := s.Commit(root, single(keys[1], gstate.PruneTransform()))
		require.NoError(t, err)
		assert.Equal(t, root, got)

		strict, err := state.New(mocks.NoopLogger, store.NewMemory(), gstate.WithStrictPrune(true))
		require.NoError(t, err)

		_, err = strict.Commit(strict.EmptyRoot(), single(keys[1], gstate.PruneTransform()))
		var cerr *gstate.CommitError
		require.True(t, errors.As(err, &cerr))
		assert.ErrorIs(t, err, gstate.ErrPruneMissing)
	})

	t.Run("oversized value", func(t *testing.T) {
		s, err := state.New(mocks.NoopLogger, store.NewMemory(), gstate.WithMaxValueSize(8))
		require.NoError(t, err)

		_, err = s.Commit(s.EmptyRoot(), single(keys[0], gstate.WriteTransform(mocks.GenericValue(0))))
		assert.ErrorIs(t, err, gstate.ErrValueTooLarge)
	})

	t.Run("invalid key", func(t *testing.T) {
		s := newState(t)

		key := keys[0]
		key.Tag = 99
		_, err := s.Commit(s.EmptyRoot(), single(key, gstate.WriteTransform(mocks.GenericValue(0))))
		assert.ErrorIs(t, err, gstate.ErrInvalidKey)
	})

	t.Run("unknown root", func(t *testing.T) {
		s := newState(t)

		_, err := s.Commit(mocks.GenericDigest(0), single(keys[0], gstate.WriteTransform(mocks.GenericValue(0))))
		assert.ErrorIs(t, err, gstate.ErrRootNotFound)
	})
}

// A failed commit does not leave any new node in the store.
func TestState_Commit_Atomicity(t *testing.T) {

	keys := mocks.GenericKeys(16)

	nodes := store.NewMemory()
	s, err := state.New(mocks.NoopLogger, nodes)
	require.NoError(t, err)
	root := seed(t, s, keys[:8])
	before := nodes.Len()

	effects := gstate.NewEffectSet()
	for i, key := range keys[8:] {
		effects.Set(key, gstate.WriteTransform(mocks.GenericValue(i)))
	}
	effects.Set(mocks.GenericKey(20), gstate.AddTransform(gstate.U64Value(1)))

	_, err = s.Commit(root, effects)
	require.Error(t, err)
	assert.Equal(t, before, nodes.Len())

	for _, key := range keys[8:] {
		assertAbsent(t, s, root, key)
	}
}

func TestState_Commit_StoreFailure(t *testing.T) {

	inner := store.NewMemory()
	nodes := mocks.BaselineNodeStore(t)
	nodes.RetrieveFunc = inner.Retrieve
	nodes.HasFunc = inner.Has
	nodes.SaveFunc = inner.Save

	s, err := state.New(mocks.NoopLogger, nodes)
	require.NoError(t, err)

	nodes.SaveFunc = func(map[gstate.Digest][]byte) error {
		return mocks.GenericError
	}

	_, err = s.Commit(s.EmptyRoot(), single(mocks.GenericKey(0), gstate.WriteTransform(mocks.GenericValue(0))))
	assert.ErrorIs(t, err, mocks.GenericError)
}

func TestState_PruneKeys(t *testing.T) {

	keys := mocks.GenericKeys(4)

	s := newState(t)
	root := seed(t, s, keys)

	t.Run("nominal case", func(t *testing.T) {
		got, err := s.PruneKeys(root, keys[:2])
		require.NoError(t, err)
		assertAbsent(t, s, got, keys[0])
		assertAbsent(t, s, got, keys[1])
		assertValue(t, s, got, keys[2], mocks.GenericValue(2))
	})

	t.Run("missing key fails the whole batch", func(t *testing.T) {
		_, err := s.PruneKeys(root, []gstate.Key{keys[0], mocks.GenericKey(10)})
		var cerr *gstate.CommitError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, mocks.GenericKey(10), cerr.Key)
		assert.ErrorIs(t, err, gstate.ErrPruneMissing)
	})

	t.Run("does not change the configured policy", func(t *testing.T) {
		got, err := s.Commit(root, single(mocks.GenericKey(10), gstate.PruneTransform()))
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})
}

func newState(t *testing.T) *state.State {
	t.Helper()

	s, err := state.New(mocks.NoopLogger, store.NewMemory())
	require.NoError(t, err)

	return s
}

// seed writes generic values for the given keys on top of the empty root.
func seed(t *testing.T, s *state.State, keys []gstate.Key) gstate.Digest {
	t.Helper()

	effects := gstate.NewEffectSet()
	for i, key := range keys {
		effects.Set(key, gstate.WriteTransform(mocks.GenericValue(i)))
	}
	root, err := s.Commit(s.EmptyRoot(), effects)
	require.NoError(t, err)

	return root
}

func single(key gstate.Key, transform gstate.Transform) *gstate.EffectSet {
	effects := gstate.NewEffectSet()
	effects.Set(key, transform)
	return effects
}

func assertValue(t *testing.T, s *state.State, root gstate.Digest, key gstate.Key, want gstate.StoredValue) {
	t.Helper()

	reader, err := s.Checkout(root)
	require.NoError(t, err)
	got, err := reader.Read(key)
	require.NoError(t, err)
	assert.True(t, want.Equal(got), "have %s, want %s", got, want)
}

func assertAbsent(t *testing.T, s *state.State, root gstate.Digest, key gstate.Key) {
	t.Helper()

	reader, err := s.Checkout(root)
	require.NoError(t, err)
	_, err = reader.Read(key)
	assert.ErrorIs(t, err, gstate.ErrNotFound)
}
