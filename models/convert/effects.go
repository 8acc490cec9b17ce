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

package convert

import (
	"encoding/json"
	"fmt"

	"github.com/optakt/gstate/models/gstate"
)

// Effect is the textual representation of a single transform in an effect
// file.
type Effect struct {
	Key   string `json:"key"`
	Op    string `json:"op"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
}

// ParseEffects decodes an effect file, which is a JSON list of effects, into
// an effect set. Effects on the same key are composed in order.
func ParseEffects(data []byte) (*gstate.EffectSet, error) {

	var entries []Effect
	err := json.Unmarshal(data, &entries)
	if err != nil {
		return nil, fmt.Errorf("could not decode effects: %w", err)
	}

	effects := gstate.NewEffectSet()
	for i, entry := range entries {
		key, err := ParseKey(entry.Key)
		if err != nil {
			return nil, fmt.Errorf("could not parse key of effect %d: %w", i, err)
		}
		transform, err := ParseTransform(entry.Op, entry.Type, entry.Value)
		if err != nil {
			return nil, fmt.Errorf("could not parse transform of effect %d: %w", i, err)
		}
		err = effects.Apply(key, transform)
		if err != nil {
			return nil, fmt.Errorf("could not apply effect %d: %w", i, err)
		}
	}

	return effects, nil
}

// ParseTransform creates a transform from its operation name, and the type
// and value of its operand where the operation takes one.
func ParseTransform(op string, typ string, value string) (gstate.Transform, error) {
	switch op {
	case gstate.Identity.String():
		return gstate.IdentityTransform(), nil
	case gstate.Prune.String():
		return gstate.PruneTransform(), nil
	case gstate.Write.String(), gstate.Add.String():
		operand, err := ParseValue(typ, value)
		if err != nil {
			return gstate.Transform{}, err
		}
		if op == gstate.Write.String() {
			return gstate.WriteTransform(operand), nil
		}
		return gstate.AddTransform(operand), nil
	default:
		return gstate.Transform{}, fmt.Errorf("unknown operation (%s)", op)
	}
}
