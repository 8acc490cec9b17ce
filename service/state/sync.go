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

	"github.com/hashicorp/go-multierror"

	"github.com/optakt/gstate/ledger/trie"
	"github.com/optakt/gstate/models/gstate"
)

// Trie returns the serialized trie node with the given digest, so it can be
// sent to a peer that is synchronizing state.
func (s *State) Trie(digest gstate.Digest) ([]byte, error) {
	data, err := s.store.Retrieve(digest)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve trie node (%s): %w", digest, err)
	}
	return data, nil
}

// MissingChildren decodes the given serialized trie node and returns the
// digests of its children that are not in the node store yet.
func (s *State) MissingChildren(data []byte) ([]gstate.Digest, error) {

	node, err := trie.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("could not decode trie node: %w", err)
	}

	var missing []gstate.Digest
	var merr *multierror.Error
	for _, child := range trie.Children(node) {
		ok, err := s.store.Has(child.Digest)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("could not check child (%s): %w", child.Digest, err))
			continue
		}
		if !ok {
			missing = append(missing, child.Digest)
		}
	}
	err = merr.ErrorOrNil()
	if err != nil {
		return nil, err
	}

	return missing, nil
}

// PutTrie inserts a serialized trie node received from a peer. Nodes are
// synchronized bottom-up, so the node is only accepted if all of its children
// are already present; otherwise, it fails with a *gstate.MissingChildrenError.
func (s *State) PutTrie(data []byte) (gstate.Digest, error) {

	missing, err := s.MissingChildren(data)
	if err != nil {
		return gstate.Digest{}, err
	}
	if len(missing) > 0 {
		return gstate.Digest{}, &gstate.MissingChildrenError{Missing: missing}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	digest := gstate.Hash(data)
	err = s.store.Save(map[gstate.Digest][]byte{digest: data})
	if err != nil {
		return gstate.Digest{}, fmt.Errorf("could not save trie node (%s): %w", digest, err)
	}

	return digest, nil
}
