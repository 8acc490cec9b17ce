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

package mocks

import (
	"testing"

	"github.com/optakt/gstate/models/gstate"
)

// Reader reads values from a fixed state root.
type Reader struct {
	ReadFunc func(key gstate.Key) (gstate.StoredValue, error)
}

func BaselineReader(t *testing.T) *Reader {
	t.Helper()

	r := Reader{
		ReadFunc: func(gstate.Key) (gstate.StoredValue, error) {
			return GenericValue(0), nil
		},
	}

	return &r
}

// MapReader returns a reader that serves the given values, and reports every
// other key as absent.
func MapReader(t *testing.T, values map[gstate.Key]gstate.StoredValue) *Reader {
	t.Helper()

	r := Reader{
		ReadFunc: func(key gstate.Key) (gstate.StoredValue, error) {
			value, ok := values[key]
			if !ok {
				return gstate.StoredValue{}, gstate.ErrNotFound
			}
			return value, nil
		},
	}

	return &r
}

func (r *Reader) Read(key gstate.Key) (gstate.StoredValue, error) {
	return r.ReadFunc(key)
}
