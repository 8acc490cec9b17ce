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

// Width is the number of children of a branch, one per possible byte value.
const Width = 256

// Branch nodes fan out on a single byte of the key. The root of a trie is
// always a branch, even when it is empty; any other branch has at least two
// children, otherwise it is collapsed into its parent.
type Branch struct {
	Children [Width]*Pointer
}

// NewBranch creates a new branch without children.
func NewBranch() *Branch {
	return &Branch{}
}

// Child returns the child pointer at the given index, or nil if the slot is
// empty.
func (b *Branch) Child(index byte) *Pointer {
	return b.Children[index]
}

// Count returns the number of populated slots.
func (b *Branch) Count() int {
	count := 0
	for _, child := range b.Children {
		if child != nil {
			count++
		}
	}
	return count
}

// only returns the index and pointer of the first populated slot.
func (b *Branch) only() (byte, *Pointer) {
	for i, child := range b.Children {
		if child != nil {
			return byte(i), child
		}
	}
	return 0, nil
}

// with returns a copy of the branch with the given slot replaced.
func (b *Branch) with(index byte, child *Pointer) *Branch {
	clone := *b
	clone.Children[index] = child
	return &clone
}

func (b *Branch) kind() PointerKind {
	return NodePointer
}
