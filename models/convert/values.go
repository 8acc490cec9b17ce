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
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"github.com/optakt/gstate/models/gstate"
)

// ParseValue parses a stored value of the given type from its textual
// representation:
//  - bytes: hexadecimal data
//  - u64, u256: decimal number
//  - key: a key as accepted by ParseKey
//  - named-keys: comma-separated name=key pairs
func ParseValue(typ string, s string) (gstate.StoredValue, error) {
	switch typ {

	case gstate.TypeBytes.String():
		data, err := hex.DecodeString(s)
		if err != nil {
			return gstate.StoredValue{}, fmt.Errorf("could not decode bytes: %w", err)
		}
		return gstate.BytesValue(data), nil

	case gstate.TypeU64.String():
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return gstate.StoredValue{}, fmt.Errorf("could not parse u64: %w", err)
		}
		return gstate.U64Value(v), nil

	case gstate.TypeU256.String():
		b, ok := new(big.Int).SetString(s, 10)
		if !ok || b.Sign() < 0 {
			return gstate.StoredValue{}, fmt.Errorf("invalid u256 (%s)", s)
		}
		v, overflow := uint256.FromBig(b)
		if overflow {
			return gstate.StoredValue{}, fmt.Errorf("u256 out of range (%s): %w", s, gstate.ErrOverflow)
		}
		return gstate.U256Value(v), nil

	case gstate.TypeKey.String():
		key, err := ParseKey(s)
		if err != nil {
			return gstate.StoredValue{}, err
		}
		return gstate.KeyValue(key), nil

	case gstate.TypeNamedKeys.String():
		named := make(map[string]gstate.Key)
		if s == "" {
			return gstate.NamedKeysValue(named), nil
		}
		for _, entry := range strings.Split(s, ",") {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 || parts[0] == "" {
				return gstate.StoredValue{}, fmt.Errorf("invalid named key entry (%s)", entry)
			}
			key, err := ParseKey(parts[1])
			if err != nil {
				return gstate.StoredValue{}, fmt.Errorf("could not parse named key (%s): %w", parts[0], err)
			}
			named[parts[0]] = key
		}
		return gstate.NamedKeysValue(named), nil

	default:
		return gstate.StoredValue{}, fmt.Errorf("unknown value type (%s): %w", typ, gstate.ErrTypeMismatch)
	}
}

// FormatValue returns the textual representation of a stored value that
// ParseValue accepts for its type.
func FormatValue(value gstate.StoredValue) string {
	if value.Type != gstate.TypeNamedKeys {
		return value.String()
	}
	names := make([]string, 0, len(value.NamedKeys))
	for name := range value.NamedKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]string, 0, len(names))
	for _, name := range names {
		entries = append(entries, name+"="+value.NamedKeys[name].String())
	}
	return strings.Join(entries, ",")
}
