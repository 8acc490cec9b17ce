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

// Extension nodes skip a part of the path that is shared by all keys below
// them. They never have an empty affix, and always point to a branch.
type Extension struct {
	Affix []byte
	Child Pointer
}

// NewExtension creates a new extension over the given affix. The affix is
// copied.
func NewExtension(affix []byte, child Pointer) *Extension {
	e := Extension{
		Affix: append([]byte(nil), affix...),
		Child: child,
	}

	return &e
}

// matches returns the length of the common prefix between the affix and the
// given path.
func (e *Extension) matches(path []byte) int {
	return commonPrefix(e.Affix, path)
}

func (e *Extension) kind() PointerKind {
	return NodePointer
}

func commonPrefix(a []byte, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
