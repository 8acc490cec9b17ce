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

	"github.com/optakt/gstate/ledger/store"
	"github.com/optakt/gstate/models/gstate"
	"github.com/optakt/gstate/service/tracking"
)

// Scratch accumulates many commits in memory on top of the durable state, for
// example all transactions of a block, and writes only the nodes reachable
// from the final root. It produces the same roots as committing each set of
// effects directly.
type Scratch struct {
	log     zerolog.Logger
	state   *State
	overlay *store.Overlay
	mutex   *sync.Mutex
}

// Scratch creates a new scratch space on top of the durable state.
func (s *State) Scratch() *Scratch {
	sc := Scratch{
		log:     s.log.With().Str("subcomponent", "scratch").Logger(),
		state:   s,
		overlay: store.NewOverlay(s.store),
		mutex:   &sync.Mutex{},
	}

	return &sc
}

// Commit applies the effects on top of the given root, which can be a durable
// root or one produced by an earlier scratch commit.
func (sc *Scratch) Commit(root gstate.Digest, effects *gstate.EffectSet) (gstate.Digest, error) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	// Nodes created by a failed commit stay in the overlay, but since nothing
	// references them, they are dropped when the overlay is written.
	updated, err := apply(sc.overlay, root, effects, sc.state.cfg)
	if err != nil {
		return gstate.Digest{}, err
	}

	sc.log.Debug().
		Str("before", root.String()).
		Str("after", updated.String()).
		Int("effects", effects.Len()).
		Int("pending", sc.overlay.Len()).
		Msg("effects committed to scratch")

	return updated, nil
}

// Checkout returns a reader for the state at the given root, which can be a
// root only known to the scratch space.
func (sc *Scratch) Checkout(root gstate.Digest) (*Reader, error) {
	return checkout(sc.overlay, root, sc.state.cfg)
}

// TrackingCopy returns a new tracking copy on top of the given root.
func (sc *Scratch) TrackingCopy(root gstate.Digest) (*tracking.Copy, error) {
	reader, err := sc.Checkout(root)
	if err != nil {
		return nil, err
	}
	return tracking.New(reader, sc.state.options...)
}

// Write persists the nodes of the given root to the durable store, and
// returns the root. The scratch space is empty afterwards, and can be reused
// on top of the written root.
func (sc *Scratch) Write(root gstate.Digest) (gstate.Digest, error) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	ok, err := sc.overlay.Has(root)
	if err != nil {
		return gstate.Digest{}, fmt.Errorf("could not check root: %w", err)
	}
	if !ok {
		return gstate.Digest{}, fmt.Errorf("could not write %s: %w", root, gstate.ErrRootNotFound)
	}

	sc.state.mutex.Lock()
	defer sc.state.mutex.Unlock()

	written, err := sc.overlay.Flush(root)
	if err != nil {
		return gstate.Digest{}, fmt.Errorf("could not write scratch state: %w", err)
	}

	sc.log.Debug().Str("root", root.String()).Int("nodes", written).Msg("scratch state written")

	return root, nil
}

// Discard drops everything committed to the scratch space.
func (sc *Scratch) Discard() {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	sc.overlay.Discard()
}
