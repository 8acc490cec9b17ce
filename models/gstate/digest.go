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

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// DigestSize is the length of a digest in bytes.
const DigestSize = 32

// Digest is the content address of a serialized trie node. The digest of the
// root node of a trie identifies the whole state it represents.
type Digest [DigestSize]byte

// Hash computes the digest of the given data.
func Hash(data []byte) Digest {
	return Digest(blake2b.Sum256(data))
}

// ParseDigest parses a digest from its hexadecimal representation.
func ParseDigest(s string) (Digest, error) {
	var digest Digest
	data, err := hex.DecodeString(s)
	if err != nil {
		return digest, fmt.Errorf("could not decode digest: %w", err)
	}
	if len(data) != DigestSize {
		return digest, fmt.Errorf("invalid digest length (have: %d, want: %d)", len(data), DigestSize)
	}
	copy(digest[:], data)
	return digest, nil
}

// Compare orders digests by their bytes.
func (d Digest) Compare(other Digest) int {
	return bytes.Compare(d[:], other[:])
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
