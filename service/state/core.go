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
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/optakt/gstate/ledger/trie"
	"github.com/optakt/gstate/models/gstate"
	"github.com/optakt/gstate/service/tracking"
)

// State is the global state engine. It gives read access to the state at any
// root that was ever committed, and commits effects on top of existing roots
// to produce new ones. Any number of readers can work concurrently, but only
// one commit writes to the node store at a time.
type State struct {
	log     zerolog.Logger
	cfg     gstate.Config
	options []gstate.Option
	store   gstate.NodeStore
	empty   gstate.Digest
	mutex   *sync.Mutex // serializes writers against the node store
}

// New creates a state engine on top of the given node store, and makes sure
// the store contains the empty root.
func New(log zerolog.Logger, store gstate.NodeStore, options ...gstate.Option) (*State, error) {

	cfg := gstate.DefaultConfig
	for _, option := range options {
		option(&cfg)
	}
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	empty, err := trie.Empty(store)
	if err != nil {
		return nil, fmt.Errorf("could not bootstrap empty root: %w", err)
	}

	s := State{
		log:     log.With().Str("component", "state").Logger(),
		cfg:     cfg,
		options: options,
		store:   store,
		empty:   empty.Root(),
		mutex:   &sync.Mutex{},
	}

	return &s, nil
}

// EmptyRoot returns the root of the state without any keys.
func (s *State) EmptyRoot() gstate.Digest {
	return s.empty
}

// Config returns the bounds enforced by the state engine.
func (s *State) Config() gstate.Config {
	return s.cfg
}

// Checkout returns a reader for the state at the given root. It fails with
// gstate.ErrRootNotFound if the root is unknown.
func (s *State) Checkout(root gstate.Digest) (*Reader, error) {
	return checkout(s.store, root, s.cfg)
}

// TrackingCopy returns a new tracking copy on top of the state at the given
// root.
func (s *State) TrackingCopy(root gstate.Digest) (*tracking.Copy, error) {
	reader, err := s.Checkout(root)
	if err != nil {
		return nil, err
	}
	return tracking.New(reader, s.options...)
}

func checkout(store gstate.NodeStore, root gstate.Digest, cfg gstate.Config) (*Reader, error) {

	ok, err := store.Has(root)
	if err != nil {
		return nil, fmt.Errorf("could not check root: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("could not check out %s: %w", root, gstate.ErrRootNotFound)
	}

	r := Reader{
		trie: trie.New(store, root),
		cfg:  cfg,
	}

	return &r, nil
}
