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
	"github.com/optakt/gstate/models/gstate"
)

// PruneKeys deletes the given keys from the state at the given root, and
// returns the new root. Unlike pruning through effects, every key has to
// exist, otherwise nothing is deleted.
func (s *State) PruneKeys(root gstate.Digest, keys []gstate.Key) (gstate.Digest, error) {

	effects := gstate.NewEffectSet()
	for _, key := range keys {
		effects.Set(key, gstate.PruneTransform())
	}

	cfg := s.cfg
	cfg.StrictPrune = true

	return s.commit(root, effects, cfg)
}
