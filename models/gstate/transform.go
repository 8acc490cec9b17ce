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

// TransformKind identifies a pending operation on a single key.
type TransformKind uint8

// Supported transform kinds.
const (
	Identity TransformKind = iota
	Write
	Add
	Prune
)

// Transform is a pending operation on the value of a single key. Value holds
// the written value for Write and the delta for Add.
type Transform struct {
	Kind  TransformKind
	Value StoredValue
}

// IdentityTransform returns a transform that leaves a key untouched.
func IdentityTransform() Transform {
	return Transform{Kind: Identity}
}

// WriteTransform returns a transform that overwrites a key's value.
func WriteTransform(value StoredValue) Transform {
	return Transform{Kind: Write, Value: value}
}

// AddTransform returns a transform that adds a delta to a key's value.
func AddTransform(delta StoredValue) Transform {
	return Transform{Kind: Add, Value: delta}
}

// PruneTransform returns a transform that deletes a key.
func PruneTransform() Transform {
	return Transform{Kind: Prune}
}

// Compose folds the transform next into the transform prev that was applied
// before it on the same key, and returns a single transform with the same net
// effect.
func Compose(prev Transform, next Transform) (Transform, error) {
	switch next.Kind {

	case Identity:
		return prev, nil

	// Writes and prunes do not depend on the previous value, so they simply
	// replace whatever happened before.
	case Write, Prune:
		return next, nil

	case Add:
		switch prev.Kind {
		case Identity:
			return next, nil
		case Write:
			sum, err := prev.Value.Add(next.Value)
			if err != nil {
				return Transform{}, fmt.Errorf("could not fold add into write: %w", err)
			}
			return WriteTransform(sum), nil
		case Add:
			delta, err := prev.Value.Add(next.Value)
			if err != nil {
				return Transform{}, fmt.Errorf("could not fold add into add: %w", err)
			}
			return AddTransform(delta), nil
		case Prune:
			return Transform{}, fmt.Errorf("cannot add to pruned key: %w", ErrTypeMismatch)
		}
	}

	return Transform{}, fmt.Errorf("unknown transform kind (%d)", next.Kind)
}

// Apply computes the value resulting from applying the transform to the given
// current value, where nil means that the key does not exist. It returns nil
// if the key should not exist after the transform, and whether the visible
// value changed.
func (t Transform) Apply(current *StoredValue) (*StoredValue, bool, error) {
	switch t.Kind {

	case Identity:
		return current, false, nil

	case Write:
		value := t.Value
		changed := current == nil || !current.Equal(value)
		return &value, changed, nil

	case Add:
		if current == nil {
			return nil, false, fmt.Errorf("cannot add to missing value: %w", ErrTypeMismatch)
		}
		sum, err := current.Add(t.Value)
		if err != nil {
			return nil, false, err
		}
		return &sum, !sum.Equal(*current), nil

	case Prune:
		if current == nil {
			return nil, false, ErrPruneMissing
		}
		return nil, true, nil
	}

	return nil, false, fmt.Errorf("unknown transform kind (%d)", t.Kind)
}

func (t Transform) String() string {
	switch t.Kind {
	case Write, Add:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Value)
	default:
		return t.Kind.String()
	}
}

func (k TransformKind) String() string {
	switch k {
	case Identity:
		return "identity"
	case Write:
		return "write"
	case Add:
		return "add"
	case Prune:
		return "prune"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}
