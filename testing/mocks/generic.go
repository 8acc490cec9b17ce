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
	"encoding/binary"
	"errors"
	"io"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/optakt/gstate/models/gstate"
)

// Global variables that can be used for testing. They are non-nil valid values for the types commonly needed
// to test state components.
var (
	NoopLogger = zerolog.New(io.Discard)

	GenericError = errors.New("dummy error")

	GenericBytes = []byte(`test`)

	GenericNamedKeys = map[string]gstate.Key{
		"alpha": GenericKey(1),
		"beta":  GenericKey(2),
	}
)

// GenericKeys returns distinct account keys with deterministic addresses.
func GenericKeys(number int) []gstate.Key {
	// Ensure consistent deterministic results.
	random := rand.New(rand.NewSource(0))

	var keys []gstate.Key
	for i := 0; i < number; i++ {
		var addr [gstate.AddrSize]byte
		binary.BigEndian.PutUint64(addr[0:], random.Uint64())
		binary.BigEndian.PutUint64(addr[8:], random.Uint64())
		binary.BigEndian.PutUint64(addr[16:], random.Uint64())
		binary.BigEndian.PutUint64(addr[24:], random.Uint64())

		keys = append(keys, gstate.NewKey(gstate.TagAccount, addr))
	}

	return keys
}

func GenericKey(index int) gstate.Key {
	return GenericKeys(index + 1)[index]
}

// GenericPrefixedKeys returns keys that share the tag and the first shared
// bytes of their address, so they end up below a common extension.
func GenericPrefixedKeys(number int, shared int) []gstate.Key {
	keys := GenericKeys(number)
	for i := range keys {
		for j := 0; j < shared && j < gstate.AddrSize; j++ {
			keys[i].Addr[j] = 0xAB
		}
	}

	return keys
}

func GenericValues(number int) []gstate.StoredValue {
	// Ensure consistent deterministic results.
	random := rand.New(rand.NewSource(1))

	var values []gstate.StoredValue
	for i := 0; i < number; i++ {
		data := make([]byte, 16)
		binary.BigEndian.PutUint64(data[0:], random.Uint64())
		binary.BigEndian.PutUint64(data[8:], random.Uint64())

		values = append(values, gstate.BytesValue(data))
	}

	return values
}

func GenericValue(index int) gstate.StoredValue {
	return GenericValues(index + 1)[index]
}

func GenericDigests(number int) []gstate.Digest {
	// Ensure consistent deterministic results.
	random := rand.New(rand.NewSource(2))

	var digests []gstate.Digest
	for i := 0; i < number; i++ {
		var d gstate.Digest
		binary.BigEndian.PutUint64(d[0:], random.Uint64())
		binary.BigEndian.PutUint64(d[8:], random.Uint64())
		binary.BigEndian.PutUint64(d[16:], random.Uint64())
		binary.BigEndian.PutUint64(d[24:], random.Uint64())

		digests = append(digests, d)
	}

	return digests
}

func GenericDigest(index int) gstate.Digest {
	return GenericDigests(index + 1)[index]
}
