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
	"errors"
	"fmt"
	"time"

	"github.com/optakt/gstate/ledger/store"
	"github.com/optakt/gstate/ledger/trie"
	"github.com/optakt/gstate/models/gstate"
)

// Commit applies the effects on top of the state at the given root and
// returns the new root. Effects are applied key by key in their order, each
// one observing the changes of the ones before it. If any transform fails, the
// commit fails with a *gstate.CommitError and none of the new nodes are
// written.
func (s *State) Commit(root gstate.Digest, effects *gstate.EffectSet) (gstate.Digest, error) {
	return s.commit(root, effects, s.cfg)
}

// commit is the single writer path to the node store. All new nodes first go
// to an overlay, which is only flushed once every transform was applied.
func (s *State) commit(root gstate.Digest, effects *gstate.EffectSet, cfg gstate.Config) (gstate.Digest, error) {

	s.mutex.Lock()
	defer s.mutex.Unlock()

	start := time.Now()
	overlay := store.NewOverlay(s.store)
	updated, err := apply(overlay, root, effects, cfg)
	if err != nil {
		overlay.Discard()
		return gstate.Digest{}, err
	}

	written, err := overlay.Flush(updated)
	if err != nil {
		s.log.Error().Err(err).Str("root", root.String()).Msg("could not flush commit")
		return gstate.Digest{}, fmt.Errorf("could not flush commit: %w", err)
	}

	s.log.Debug().
		Str("before", root.String()).
		Str("after", updated.String()).
		Int("effects", effects.Len()).
		Int("nodes", written).
		Dur("duration", time.Since(start)).
		Msg("effects committed")

	return updated, nil
}

// apply folds the effects into the trie at the given root, and saves every new
// node into the given store.
func apply(st gstate.NodeStore, root gstate.Digest, effects *gstate.EffectSet, cfg gstate.Config) (gstate.Digest, error) {

	ok, err := st.Has(root)
	if err != nil {
		return gstate.Digest{}, fmt.Errorf("could not check root: %w", err)
	}
	if !ok {
		return gstate.Digest{}, fmt.Errorf("could not commit on %s: %w", root, gstate.ErrRootNotFound)
	}

	t := trie.New(st, root)
	err = effects.Range(func(key gstate.Key, transform gstate.Transform) error {

		fail := func(err error) error {
			return &gstate.CommitError{Key: key, Transform: transform, Err: err}
		}

		err := key.Validate()
		if err != nil {
			return fail(err)
		}

		var current *gstate.StoredValue
		value, err := t.Read(key)
		if err == nil {
			current = &value
		}
		if err != nil && !errors.Is(err, gstate.ErrNotFound) {
			return fail(err)
		}

		next, changed, err := transform.Apply(current)
		if errors.Is(err, gstate.ErrPruneMissing) && !cfg.StrictPrune {
			return nil
		}
		if err != nil {
			return fail(err)
		}
		if !changed {
			return nil
		}

		if next == nil {
			t, _, err = t.Delete(key)
			if err != nil {
				return fail(err)
			}
			return nil
		}

		err = cfg.CheckSize(*next)
		if err != nil {
			return fail(err)
		}
		t, err = t.Put(key, *next)
		if err != nil {
			return fail(err)
		}

		return nil
	})
	if err != nil {
		return gstate.Digest{}, err
	}

	return t.Root(), nil
}
