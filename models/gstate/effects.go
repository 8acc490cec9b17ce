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
	"fmt"
)

// EffectSet is the set of pending transforms accumulated against a base
// state, with at most one transform per key. It remembers the order in which
// keys were first touched so that iteration is deterministic.
type EffectSet struct {
	order      []Key
	transforms map[Key]Transform
}

// NewEffectSet creates an empty effect set.
func NewEffectSet() *EffectSet {
	e := EffectSet{
		transforms: make(map[Key]Transform),
	}

	return &e
}

// Apply folds the given transform into the one already pending for the key.
func (e *EffectSet) Apply(key Key, transform Transform) error {
	prev, ok := e.transforms[key]
	if !ok {
		e.order = append(e.order, key)
		e.transforms[key] = transform
		return nil
	}

	composed, err := Compose(prev, transform)
	if err != nil {
		return fmt.Errorf("could not compose transforms for key %s: %w", key, err)
	}
	e.transforms[key] = composed

	return nil
}

// Set replaces the pending transform for the key without composing.
func (e *EffectSet) Set(key Key, transform Transform) {
	_, ok := e.transforms[key]
	if !ok {
		e.order = append(e.order, key)
	}
	e.transforms[key] = transform
}

// Transform returns the pending transform for the key.
func (e *EffectSet) Transform(key Key) (Transform, bool) {
	transform, ok := e.transforms[key]
	return transform, ok
}

// Keys returns the touched keys in the order they were first touched.
func (e *EffectSet) Keys() []Key {
	keys := make([]Key, len(e.order))
	copy(keys, e.order)
	return keys
}

// Range calls fn for every pending transform in insertion order, and stops
// at the first error.
func (e *EffectSet) Range(fn func(key Key, transform Transform) error) error {
	for _, key := range e.order {
		err := fn(key, e.transforms[key])
		if err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of touched keys.
func (e *EffectSet) Len() int {
	return len(e.order)
}

// Clone returns an independent copy of the effect set.
func (e *EffectSet) Clone() *EffectSet {
	clone := EffectSet{
		order:      make([]Key, len(e.order)),
		transforms: make(map[Key]Transform, len(e.transforms)),
	}
	copy(clone.order, e.order)
	for key, transform := range e.transforms {
		clone.transforms[key] = transform
	}

	return &clone
}
