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

// PointerKind tells how the node a pointer refers to should be decoded.
type PointerKind uint8

// Supported pointer kinds.
const (
	LeafPointer PointerKind = iota
	NodePointer
)

// Pointer references a child node by its digest.
type Pointer struct {
	Kind   PointerKind
	Digest gstate.Digest
}

// Node is one of *Leaf, *Branch or *Extension. Nodes never reference each
// other in memory; children are looked up in the node store by digest, which
// lets any number of tries share the same subtrees.
type Node interface {
	kind() PointerKind
}

// pointerTo returns the pointer to a node with the given digest.
func pointerTo(node Node, digest gstate.Digest) Pointer {
	return Pointer{Kind: node.kind(), Digest: digest}
}

func (k PointerKind) String() string {
	switch k {
	case LeafPointer:
		return "leaf"
	case NodePointer:
		return "node"
	default:
		return "unknown"
	}
}
