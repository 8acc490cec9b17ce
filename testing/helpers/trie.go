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

package helpers

import (
	"encoding/binary"

	"github.com/optakt/gstate/models/gstate"
)

// LinearCongruentialGenerator is a pseudo random number generator with a fixed
// sequence, so that randomized trie tests are reproducible across runs. It uses
// the parameters of the 16-bit generator of Microsoft Visual Basic 6 and
// earlier.
// See https://en.wikipedia.org/wiki/Linear_congruential_generator
type LinearCongruentialGenerator struct {
	seed uint64
}

// NewGenerator generates a new linear congruential generator.
func NewGenerator() *LinearCongruentialGenerator {
	return &LinearCongruentialGenerator{}
}

// Next returns the next random number.
func (rng *LinearCongruentialGenerator) Next() uint16 {
	rng.seed = (rng.seed*1140671485 + 12820163) % 65536
	return uint16(rng.seed)
}

// SampleRandomWrites generates key-value tuples for `count` randomly selected
// accounts. Keys only differ in their last two bytes, which makes them share
// a long common prefix in the trie. The same key can be drawn more than once.
func SampleRandomWrites(rng *LinearCongruentialGenerator, count int) ([]gstate.Key, []gstate.StoredValue) {
	keys := make([]gstate.Key, 0, count)
	values := make([]gstate.StoredValue, 0, count)
	for i := 0; i < count; i++ {
		var addr [gstate.AddrSize]byte
		binary.BigEndian.PutUint16(addr[gstate.AddrSize-2:], rng.Next())
		keys = append(keys, gstate.NewKey(gstate.TagAccount, addr))
		values = append(values, gstate.U64Value(uint64(rng.Next())))
	}

	return keys, values
}
