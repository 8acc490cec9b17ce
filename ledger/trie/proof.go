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
	"fmt"

	"github.com/optakt/gstate/models/gstate"
)

// Proof is a merkle proof for a key under a given root. It contains the
// serialized nodes visited when reading the key, from the root down to the
// leaf holding the key, or down to the node that proves the key is absent.
type Proof struct {
	Key   gstate.Key
	Nodes [][]byte
}

// ReadWithProof returns the value stored under the given key, or nil if the
// key is not in the trie, along with a proof that can be verified against the
// root of the trie.
func (t *Trie) ReadWithProof(key gstate.Key) (*gstate.StoredValue, *Proof, error) {
	value, visited, err := t.descend(key, true)
	if err != nil {
		return nil, nil, err
	}

	proof := Proof{
		Key:   key,
		Nodes: visited,
	}

	return value, &proof, nil
}

// Verify checks that the proof shows the given key to hold the claimed value
// under the given root, or to be absent from it when the claimed value is nil.
// It needs no access to a node store. Any failure is a *gstate.ValidationError.
func Verify(root gstate.Digest, key gstate.Key, claimed *gstate.StoredValue, proof *Proof) error {

	if proof == nil || len(proof.Nodes) == 0 {
		return invalid(0, gstate.ErrProofMalformed, "empty proof")
	}
	if proof.Key != key {
		return invalid(0, gstate.ErrKeyMismatch, fmt.Sprintf("proof is for key %s", proof.Key))
	}

	path := key.Bytes()
	depth := 0
	expected := Pointer{Kind: NodePointer, Digest: root}
	last := len(proof.Nodes) - 1
	for step, data := range proof.Nodes {

		// Every step has to hash to the digest referenced by the step before
		// it, and the first step has to hash to the trusted root.
		digest := gstate.Hash(data)
		if digest != expected.Digest {
			return invalid(step, gstate.ErrDigestMismatch, fmt.Sprintf("have %s, want %s", digest, expected.Digest))
		}
		node, err := Decode(data)
		if err != nil {
			return invalid(step, gstate.ErrProofMalformed, err.Error())
		}
		if node.kind() != expected.Kind {
			return invalid(step, gstate.ErrProofMalformed, "pointer kind mismatch")
		}
		if step == 0 {
			_, ok := node.(*Branch)
			if !ok {
				return invalid(step, gstate.ErrProofMalformed, "root is not a branch")
			}
		}

		// The absent flag is set when this step proves that the key is not in
		// the trie, in which case it has to be the last step.
		var next *Pointer
		absent := false
		switch n := node.(type) {

		case *Leaf:
			if step != last {
				return invalid(step, gstate.ErrProofMalformed, "leaf before end of proof")
			}
			if n.Key != key {
				if claimed != nil {
					return invalid(step, gstate.ErrKeyMismatch, fmt.Sprintf("path ends at key %s", n.Key))
				}
				return nil
			}
			if claimed == nil {
				return invalid(step, gstate.ErrValueMismatch, "key is present")
			}
			if !claimed.Equal(n.Value) {
				return invalid(step, gstate.ErrValueMismatch, fmt.Sprintf("have %s, want %s", n.Value, claimed))
			}
			return nil

		case *Branch:
			if depth >= len(path) {
				return invalid(step, gstate.ErrProofMalformed, "branch below full key length")
			}
			next = n.Child(path[depth])
			absent = next == nil
			depth++

		case *Extension:
			if n.matches(path[depth:]) != len(n.Affix) {
				absent = true
				break
			}
			next = &n.Child
			depth += len(n.Affix)
		}

		if absent {
			if step != last {
				return invalid(step, gstate.ErrProofMalformed, "steps after proof of absence")
			}
			if claimed != nil {
				return invalid(step, gstate.ErrValueMismatch, "key is absent")
			}
			return nil
		}
		if step == last {
			return invalid(step, gstate.ErrProofMalformed, "proof ends before reaching key")
		}
		expected = *next
	}

	return invalid(last, gstate.ErrProofMalformed, "proof ends before reaching key")
}

func invalid(step int, reason error, detail string) error {
	return &gstate.ValidationError{
		Step:   step,
		Err:    reason,
		Detail: detail,
	}
}
