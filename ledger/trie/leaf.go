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

package trie

import (
	"github.com/optakt/gstate/models/gstate"
)

// Leaf is what contains the values in the trie. A leaf holds its full key, so
// it can sit at the first depth where it no longer conflicts with other keys
// instead of at the bottom of the trie. The digest of a leaf does not depend
// on where it sits, which lets leaves move up and down when the trie is
// restructured without being rewritten.
type Leaf struct {
	Key   gstate.Key
	Value gstate.StoredValue
}

// NewLeaf creates a new leaf node.
func NewLeaf(key gstate.Key, value gstate.StoredValue) *Leaf {
	l := Leaf{
		Key:   key,
		Value: value,
	}

	return &l
}

func (l *Leaf) kind() PointerKind {
	return LeafPointer
}
