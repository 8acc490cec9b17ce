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
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/gstate/codec/zbor"
	"github.com/optakt/gstate/ledger/store"
	"github.com/optakt/gstate/models/gstate"
	"github.com/optakt/gstate/testing/helpers"
	"github.com/optakt/gstate/testing/mocks"
)

func TestNew(t *testing.T) {

	t.Run("nominal case", func(t *testing.T) {
		s, err := store.New(mocks.NoopLogger, helpers.InMemoryDB(t), mocks.BaselineCodec(t))
		require.NoError(t, err)
		assert.NoError(t, s.Close())
	})

	t.Run("without cache", func(t *testing.T) {
		s, err := store.New(mocks.NoopLogger, helpers.InMemoryDB(t), mocks.BaselineCodec(t), store.WithCacheSize(0))
		require.NoError(t, err)
		assert.NoError(t, s.Close())
	})

	t.Run("cache smaller than one node", func(t *testing.T) {
		s, err := store.New(mocks.NoopLogger, helpers.InMemoryDB(t), zbor.NewCodec(), store.WithCacheSize(100))
		require.NoError(t, err)

		nodes := genericNodes(1)
		require.NoError(t, s.Save(nodes))
		for digest, data := range nodes {
			got, err := s.Retrieve(digest)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		}
		assert.NoError(t, s.Close())
	})

	t.Run("invalid cache size", func(t *testing.T) {
		_, err := store.New(mocks.NoopLogger, helpers.InMemoryDB(t), mocks.BaselineCodec(t), store.WithCacheSize(-1))
		assert.Error(t, err)
	})
}

func TestStore_Save(t *testing.T) {

	nodes := genericNodes(64)

	for _, size := range []int64{0, store.DefaultCacheSize} {
		s := helpers.InMemoryStore(t, store.WithCacheSize(size))

		err := s.Save(nodes)
		require.NoError(t, err)

		// Saving the same nodes again is a no-op.
		err = s.Save(nodes)
		require.NoError(t, err)

		for digest, data := range nodes {
			ok, err := s.Has(digest)
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := s.Retrieve(digest)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		}

		missing := mocks.GenericDigest(0)
		ok, err := s.Has(missing)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Retrieve(missing)
		assert.ErrorIs(t, err, gstate.ErrNotFound)
	}
}

func TestStore_SyncWrites(t *testing.T) {

	opts := gstate.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	defer db.Close()

	s, err := store.New(mocks.NoopLogger, db, zbor.NewCodec(), store.WithSyncWrites(true))
	require.NoError(t, err)
	defer s.Close()

	nodes := genericNodes(8)
	err = s.Save(nodes)
	require.NoError(t, err)

	for digest, data := range nodes {
		got, err := s.Retrieve(digest)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}
}

func TestStore_Corruption(t *testing.T) {

	nodes := genericNodes(1)
	var digest gstate.Digest
	for d := range nodes {
		digest = d
	}

	t.Run("digest mismatch", func(t *testing.T) {
		db := helpers.InMemoryDB(t)
		codec := zbor.NewCodec()
		s, err := store.New(mocks.NoopLogger, db, codec, store.WithCacheSize(0))
		require.NoError(t, err)

		// Write different content under the digest, bypassing the store.
		val, err := codec.Compress(mocks.GenericBytes)
		require.NoError(t, err)
		err = db.Update(func(tx *badger.Txn) error {
			return tx.Set(append([]byte{1}, digest[:]...), val)
		})
		require.NoError(t, err)

		_, err = s.Retrieve(digest)
		assert.ErrorIs(t, err, gstate.ErrCorrupted)

		var serr *gstate.StoreError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, digest, serr.Digest)
	})

	t.Run("decompression failure", func(t *testing.T) {
		codec := mocks.BaselineCodec(t)
		codec.DecompressFunc = func([]byte) ([]byte, error) {
			return nil, mocks.GenericError
		}
		s, err := store.New(mocks.NoopLogger, helpers.InMemoryDB(t), codec, store.WithCacheSize(0))
		require.NoError(t, err)

		err = s.Save(nodes)
		require.NoError(t, err)

		_, err = s.Retrieve(digest)
		assert.ErrorIs(t, err, gstate.ErrCorrupted)
	})

	t.Run("compression failure", func(t *testing.T) {
		codec := mocks.BaselineCodec(t)
		codec.CompressFunc = func([]byte) ([]byte, error) {
			return nil, mocks.GenericError
		}
		s, err := store.New(mocks.NoopLogger, helpers.InMemoryDB(t), codec)
		require.NoError(t, err)

		err = s.Save(nodes)
		assert.ErrorIs(t, err, mocks.GenericError)

		ok, err := s.Has(digest)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStore_Concurrency(t *testing.T) {

	nodes := genericNodes(512)
	digests := make([]gstate.Digest, 0, len(nodes))
	for digest := range nodes {
		digests = append(digests, digest)
	}

	s := helpers.InMemoryStore(t, store.WithCacheSize(4096))

	done := make(chan struct{})
	writes := make(chan struct{})
	go func() {
		defer close(writes)
		// Insert values randomly until test stops.
		for {
			select {
			case <-done:
				return
			default:
			}

			digest := digests[rand.Intn(len(digests))]
			err := s.Save(map[gstate.Digest][]byte{digest: nodes[digest]})
			assert.NoError(t, err)
		}
	}()

	var successfulReads int
	reads := make(chan struct{})
	go func() {
		defer close(reads)
		// Read values randomly until test stops.
		for {
			select {
			case <-done:
				return
			default:
			}

			digest := digests[rand.Intn(len(digests))]
			data, err := s.Retrieve(digest)
			if errors.Is(err, gstate.ErrNotFound) {
				continue // The node might not be written yet.
			}
			if assert.NoError(t, err) && assert.Equal(t, nodes[digest], data) {
				successfulReads++
			}
		}
	}()

	<-time.After(2 * time.Second)
	close(done)
	<-writes
	<-reads

	// Make sure that at least some values were read successfully.
	assert.NotZero(t, successfulReads)
}

// genericNodes returns content-addressed blobs, keyed by their digest.
func genericNodes(number int) map[gstate.Digest][]byte {
	nodes := make(map[gstate.Digest][]byte, number)
	for _, value := range mocks.GenericValues(number) {
		nodes[gstate.Hash(value.Bytes)] = value.Bytes
	}
	return nodes
}
