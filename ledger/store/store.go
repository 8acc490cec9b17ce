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
	"errors"
	"fmt"
	"sync"

	"github.com/OneOfOne/xxhash"
	"github.com/dgraph-io/badger/v2"
	"github.com/dgraph-io/ristretto"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/optakt/gstate/models/gstate"
)

// prefixNode is the key prefix of serialized trie nodes in the database.
const prefixNode = 1

// Store is the durable node store. It persists compressed trie nodes in a
// Badger database, and keeps recently used nodes uncompressed in a Ristretto
// cache. Writers are serialized, while readers use their own read-only
// transactions and never wait for writers.
type Store struct {
	log   zerolog.Logger
	cfg   Config
	db    *badger.DB
	codec gstate.Codec
	cache *ristretto.Cache
	mutex *sync.Mutex // guards against concurrent writers
}

// New creates a new durable store on top of the given database.
func New(log zerolog.Logger, db *badger.DB, codec gstate.Codec, options ...Option) (*Store, error) {

	cfg := DefaultConfig
	for _, option := range options {
		option(&cfg)
	}
	err := validator.New().Struct(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid store configuration: %w", err)
	}

	s := Store{
		log:   log.With().Str("component", "node_store").Logger(),
		cfg:   cfg,
		db:    db,
		codec: codec,
		mutex: &sync.Mutex{},
	}

	if cfg.CacheSize == 0 {
		return &s, nil
	}

	// Ristretto recommends keeping ten times as many counters as items in the
	// cache when full. Most nodes are branches of a few hundred bytes, so we
	// assume an average item size of 256 bytes.
	counters := cfg.CacheSize / 256 * 10
	if counters < 10 {
		counters = 10
	}
	s.cache, err = ristretto.NewCache(&ristretto.Config{
		NumCounters: counters,
		MaxCost:     cfg.CacheSize,
		BufferItems: 64,
		KeyToHash:   hashDigest,
	})
	if err != nil {
		return nil, fmt.Errorf("could not initialize node cache: %w", err)
	}

	return &s, nil
}

// Retrieve returns the serialized node with the given digest.
func (s *Store) Retrieve(digest gstate.Digest) ([]byte, error) {

	if s.cache != nil {
		cached, ok := s.cache.Get(digest)
		if ok {
			return cached.([]byte), nil
		}
	}

	var data []byte
	err := s.db.View(s.retrieve(digest, &data))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, gstate.ErrNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Str("digest", digest.String()).Msg("could not retrieve node")
		return nil, &gstate.StoreError{Op: "retrieve", Digest: digest, Err: err}
	}

	if s.cache != nil {
		s.cache.Set(digest, data, int64(len(data)))
	}

	return data, nil
}

// Has checks whether the node with the given digest is in the store.
func (s *Store) Has(digest gstate.Digest) (bool, error) {

	if s.cache != nil {
		_, ok := s.cache.Get(digest)
		if ok {
			return true, nil
		}
	}

	var exists bool
	err := s.db.View(func(tx *badger.Txn) error {
		_, err := tx.Get(nodeKey(digest))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, &gstate.StoreError{Op: "has", Digest: digest, Err: err}
	}

	return exists, nil
}

// Save persists the given nodes. Nodes that are already in the store are
// skipped. Only one batch is written at a time.
func (s *Store) Save(nodes map[gstate.Digest][]byte) error {

	// We compress outside of the lock, so that concurrent writers only wait
	// for each other on the database transaction itself.
	compressed := make(map[gstate.Digest][]byte, len(nodes))
	for digest, data := range nodes {
		val, err := s.codec.Compress(data)
		if err != nil {
			return &gstate.StoreError{Op: "compress", Digest: digest, Err: err}
		}
		compressed[digest] = val
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx := s.db.NewTransaction(true)
	defer func() {
		tx.Discard()
	}()

	written := 0
	for digest, val := range compressed {

		key := nodeKey(digest)
		_, err := tx.Get(key)
		if err == nil {
			continue
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return &gstate.StoreError{Op: "save", Digest: digest, Err: err}
		}

		err = tx.Set(key, val)
		if errors.Is(err, badger.ErrTxnTooBig) {
			// The transaction is too big already, so it needs to be committed
			// and the operation can be attempted again. Nodes become visible
			// before the batch is complete, but nothing references them until
			// the caller gets hold of the new root.
			err = tx.Commit()
			if err != nil {
				return &gstate.StoreError{Op: "save", Digest: digest, Err: err}
			}
			tx = s.db.NewTransaction(true)
			err = tx.Set(key, val)
		}
		if err != nil {
			return &gstate.StoreError{Op: "save", Digest: digest, Err: err}
		}
		written++
	}

	err := tx.Commit()
	if err != nil {
		s.log.Error().Err(err).Int("nodes", len(nodes)).Msg("could not commit node batch")
		return &gstate.StoreError{Op: "save", Err: err}
	}

	if s.cfg.SyncWrites {
		err = s.db.Sync()
		if err != nil {
			return &gstate.StoreError{Op: "sync", Err: err}
		}
	}

	s.log.Debug().Int("nodes", len(nodes)).Int("written", written).Msg("saved node batch")

	return nil
}

// Close releases the resources held by the store. It does not close the
// underlying database.
func (s *Store) Close() error {
	if s.cache != nil {
		s.cache.Close()
	}
	return nil
}

func (s *Store) retrieve(digest gstate.Digest, data *[]byte) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		item, err := tx.Get(nodeKey(digest))
		if err != nil {
			return err
		}

		err = item.Value(func(val []byte) error {
			decompressed, err := s.codec.Decompress(val)
			if err != nil {
				return fmt.Errorf("could not decompress node: %v: %w", err, gstate.ErrCorrupted)
			}
			*data = decompressed
			return nil
		})
		if err != nil {
			return err
		}

		// Nodes are content-addressed, so we can detect any corruption on disk
		// by checking the digest of what we read.
		if gstate.Hash(*data) != digest {
			return fmt.Errorf("node does not match its digest: %w", gstate.ErrCorrupted)
		}

		return nil
	}
}

func nodeKey(digest gstate.Digest) []byte {
	key := make([]byte, 1+gstate.DigestSize)
	key[0] = prefixNode
	copy(key[1:], digest[:])
	return key
}

// hashDigest maps digests to the pair of hashes Ristretto uses to identify
// cache entries.
func hashDigest(key interface{}) (uint64, uint64) {
	digest, ok := key.(gstate.Digest)
	if !ok {
		return 0, 0
	}
	return xxhash.Checksum64(digest[:]), xxhash.Checksum64S(digest[:], 1)
}
