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

package helpers

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/require"

	"github.com/optakt/gstate/codec/zbor"
	"github.com/optakt/gstate/ledger/store"
	"github.com/optakt/gstate/testing/mocks"
)

// InMemoryDB opens an in-memory Badger database that is closed when the test
// finishes.
func InMemoryDB(t *testing.T) *badger.DB {
	t.Helper()

	opts := badger.DefaultOptions("")
	opts.InMemory = true
	opts.Logger = nil

	db, err := badger.Open(opts)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// InMemoryStore creates a durable node store on top of an in-memory database.
func InMemoryStore(t *testing.T, options ...store.Option) *store.Store {
	t.Helper()

	s, err := store.New(mocks.NoopLogger, InMemoryDB(t), zbor.NewCodec(), options...)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
