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

package state

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/optakt/gstate/ledger/trie"
	"github.com/optakt/gstate/models/gstate"
	"github.com/optakt/gstate/service/tracking"
)

// maxConcurrentReads bounds the goroutines used by ReadMany.
const maxConcurrentReads = 16

// Reader is a read-only view of the state at a fixed root. It is safe for
// concurrent use.
type Reader struct {
	trie *trie.Trie
	cfg  gstate.Config
}

// Root returns the root the reader is fixed at.
func (r *Reader) Root() gstate.Digest {
	return r.trie.Root()
}

// Read returns the value of the key, or gstate.ErrNotFound if the key does
// not exist.
func (r *Reader) Read(key gstate.Key) (gstate.StoredValue, error) {
	return r.trie.Read(key)
}

// ReadWithProof returns the value of the key, or nil if the key does not
// exist, along with a proof of either.
func (r *Reader) ReadWithProof(key gstate.Key) (*gstate.StoredValue, *trie.Proof, error) {
	return r.trie.ReadWithProof(key)
}

// ReadMany reads the given keys concurrently. The returned slice has the same
// order as the keys, with nil entries for keys that do not exist.
func (r *Reader) ReadMany(ctx context.Context, keys []gstate.Key) ([]*gstate.StoredValue, error) {

	values := make([]*gstate.StoredValue, len(keys))
	sema := make(chan struct{}, maxConcurrentReads)
	group, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key

		select {
		case sema <- struct{}{}:
		case <-gctx.Done():
		}
		if gctx.Err() != nil {
			break
		}

		group.Go(func() error {
			defer func() { <-sema }()
			value, err := r.trie.Read(key)
			if errors.Is(err, gstate.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("could not read key %s: %w", key, err)
			}
			values[i] = &value
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}
	err = ctx.Err()
	if err != nil {
		return nil, err
	}

	return values, nil
}

// Query resolves the path starting at the given key.
func (r *Reader) Query(key gstate.Key, path []string) (gstate.StoredValue, error) {
	return tracking.Resolve(r.trie.Read, key, path, r.cfg.MaxQueryDepth)
}
