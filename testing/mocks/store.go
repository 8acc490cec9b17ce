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

package mocks

import (
	"testing"

	"github.com/optakt/gstate/models/gstate"
)

type NodeStore struct {
	RetrieveFunc func(digest gstate.Digest) ([]byte, error)
	HasFunc      func(digest gstate.Digest) (bool, error)
	SaveFunc     func(nodes map[gstate.Digest][]byte) error
}

func BaselineNodeStore(t *testing.T) *NodeStore {
	t.Helper()

	s := NodeStore{
		RetrieveFunc: func(gstate.Digest) ([]byte, error) {
			return GenericBytes, nil
		},
		HasFunc: func(gstate.Digest) (bool, error) {
			return true, nil
		},
		SaveFunc: func(map[gstate.Digest][]byte) error {
			return nil
		},
	}

	return &s
}

func (s *NodeStore) Retrieve(digest gstate.Digest) ([]byte, error) {
	return s.RetrieveFunc(digest)
}

func (s *NodeStore) Has(digest gstate.Digest) (bool, error) {
	return s.HasFunc(digest)
}

func (s *NodeStore) Save(nodes map[gstate.Digest][]byte) error {
	return s.SaveFunc(nodes)
}
