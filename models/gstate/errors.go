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
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrRootNotFound  = errors.New("root not found")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrPruneMissing  = errors.New("prune of missing key")
	ErrValueTooLarge = errors.New("value exceeds size limit")
	ErrOverflow      = errors.New("numeric overflow")
	ErrInvalidKey    = errors.New("invalid key")
	ErrCorrupted     = errors.New("corrupted data")
)

// Proof validation failure reasons.
var (
	ErrProofMalformed = errors.New("malformed proof")
	ErrDigestMismatch = errors.New("digest mismatch")
	ErrKeyMismatch    = errors.New("key mismatch")
	ErrValueMismatch  = errors.New("value mismatch")
)

// StoreError is returned when the node store backend fails. It is fatal to the
// operation that encountered it and never retried internally.
type StoreError struct {
	Op     string
	Digest Digest
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure (op: %s, digest: %s): %v", e.Op, e.Digest, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// CommitError identifies the first key whose transform could not be applied
// during a commit.
type CommitError struct {
	Key       Key
	Transform Transform
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("could not apply %s to key %s: %v", e.Transform.Kind, e.Key, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// ValidationError is returned by proof verification. Err is one of the proof
// validation sentinels, Step is the index of the proof step that broke the
// invariant.
type ValidationError struct {
	Step   int
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invalid proof at step %d: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("invalid proof at step %d: %v (%s)", e.Step, e.Err, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DepthExceededError is returned when resolving a query requires following
// more indirections than allowed.
type DepthExceededError struct {
	Key   Key
	Path  []string
	Depth uint
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("query depth exceeded (key: %s, path: %s, max: %d)", e.Key, strings.Join(e.Path, "/"), e.Depth)
}

// MissingChildrenError lists the children of a trie node that are not present
// in the node store.
type MissingChildrenError struct {
	Missing []Digest
}

func (e *MissingChildrenError) Error() string {
	return fmt.Sprintf("trie node has %d missing children", len(e.Missing))
}
