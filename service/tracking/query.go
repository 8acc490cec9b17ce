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

package tracking

import (
	"fmt"

	"github.com/optakt/gstate/models/gstate"
)

// ReadFunc reads the value of a key, failing with gstate.ErrNotFound when the
// key does not exist.
type ReadFunc func(key gstate.Key) (gstate.StoredValue, error)

// Resolve starts at the given key and follows indirections until the path is
// consumed. A key value is always followed to the key it points to, while a
// named keys value consumes the next name of the path. Every hop counts
// towards the maximum depth, which bounds the work done on cyclic references.
func Resolve(read ReadFunc, key gstate.Key, path []string, maxDepth uint) (gstate.StoredValue, error) {

	current := key
	remaining := path
	hops := uint(0)
	for {
		value, err := read(current)
		if err != nil {
			return gstate.StoredValue{}, fmt.Errorf("could not read key %s: %w", current, err)
		}

		var next gstate.Key
		switch {

		case value.Type == gstate.TypeKey:
			next = value.Key

		case len(remaining) == 0:
			return value, nil

		case value.Type == gstate.TypeNamedKeys:
			name := remaining[0]
			named, ok := value.NamedKeys[name]
			if !ok {
				return gstate.StoredValue{}, fmt.Errorf("unknown name %q under key %s: %w", name, current, gstate.ErrNotFound)
			}
			next = named
			remaining = remaining[1:]

		default:
			return gstate.StoredValue{}, fmt.Errorf("cannot resolve %q through %s value of key %s: %w", remaining[0], value.Type, current, gstate.ErrTypeMismatch)
		}

		hops++
		if hops > maxDepth {
			return gstate.StoredValue{}, &gstate.DepthExceededError{Key: key, Path: path, Depth: maxDepth}
		}
		current = next
	}
}
