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

package metrics

import (
	"fmt"

	"github.com/optakt/gstate/ledger/trie"
	"github.com/optakt/gstate/models/gstate"
)

// Codec records how well the data going through a codec compresses.
type Codec struct {
	gstate.Codec
	size *Size
}

// NewCodec wraps the given codec.
func NewCodec(codec gstate.Codec, size *Size) *Codec {
	c := Codec{
		Codec: codec,
		size:  size,
	}
	return &c
}

// Compress is called by the node store for every node it writes.
func (c *Codec) Compress(data []byte) ([]byte, error) {
	compressed, err := c.Codec.Compress(data)
	if err != nil {
		return nil, err
	}
	c.size.Bytes("node", len(data), len(compressed))
	return compressed, nil
}

func (c *Codec) Marshal(value interface{}) ([]byte, error) {
	data, err := c.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("could not encode value: %w", err)
	}
	compressed, err := c.Codec.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("could not compress data: %w", err)
	}
	name := "unknown"
	switch value.(type) {
	case *trie.Proof, trie.Proof:
		name = "proof"
	case gstate.Digest:
		name = "digest"
	}
	c.size.Bytes(name, len(data), len(compressed))
	return compressed, nil
}
