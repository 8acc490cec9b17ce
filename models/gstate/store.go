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

package gstate

// NodeStore is a content-addressed store of serialized trie nodes. Nodes are
// immutable once written, so saving a node that already exists is a no-op.
type NodeStore interface {
	Retrieve(digest Digest) ([]byte, error)
	Has(digest Digest) (bool, error)
	Save(nodes map[Digest][]byte) error
}

// Codec encodes and compresses arbitrary structures.
type Codec interface {
	Encode(value interface{}) ([]byte, error)
	Marshal(value interface{}) ([]byte, error)
	Unmarshal(data []byte, value interface{}) error
	Compress(data []byte) ([]byte, error)
	Decompress(compressed []byte) ([]byte, error)
}
