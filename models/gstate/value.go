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
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
)

// ValueType identifies the variant of a stored value.
type ValueType uint8

// Supported value types.
const (
	TypeBytes ValueType = iota + 1
	TypeU64
	TypeU256
	TypeKey
	TypeNamedKeys
)

// StoredValue is the payload associated with a key in global state. Only the
// field matching its type is meaningful.
type StoredValue struct {
	Type      ValueType
	Bytes     []byte
	U64       uint64
	U256      uint256.Int
	Key       Key
	NamedKeys map[string]Key
}

// BytesValue creates an opaque value.
func BytesValue(data []byte) StoredValue {
	return StoredValue{Type: TypeBytes, Bytes: data}
}

// U64Value creates a 64-bit numeric value.
func U64Value(v uint64) StoredValue {
	return StoredValue{Type: TypeU64, U64: v}
}

// U256Value creates a 256-bit numeric value.
func U256Value(v *uint256.Int) StoredValue {
	value := StoredValue{Type: TypeU256}
	value.U256.Set(v)
	return value
}

// KeyValue creates a value that points to another key.
func KeyValue(key Key) StoredValue {
	return StoredValue{Type: TypeKey, Key: key}
}

// NamedKeysValue creates a value that maps names to keys.
func NamedKeysValue(named map[string]Key) StoredValue {
	copied := make(map[string]Key, len(named))
	for name, key := range named {
		copied[name] = key
	}
	return StoredValue{Type: TypeNamedKeys, NamedKeys: copied}
}

// wireValue is the canonical on-trie representation of a stored value.
type wireValue struct {
	_     struct{} `cbor:",toarray"`
	Type  ValueType
	Data  []byte
	Names map[string][]byte
}

var encoding cbor.EncMode

func init() {
	var err error
	encoding, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Errorf("could not initialize value encoding: %w", err))
	}
}

// Encode returns the canonical encoding of the value. Logically identical
// values always produce identical bytes.
func (v StoredValue) Encode() ([]byte, error) {
	wire := wireValue{Type: v.Type}
	switch v.Type {
	case TypeBytes:
		if len(v.Bytes) > 0 {
			wire.Data = v.Bytes
		}
	case TypeU64:
		wire.Data = make([]byte, 8)
		binary.BigEndian.PutUint64(wire.Data, v.U64)
	case TypeU256:
		data := v.U256.Bytes32()
		wire.Data = data[:]
	case TypeKey:
		wire.Data = v.Key.Bytes()
	case TypeNamedKeys:
		wire.Names = make(map[string][]byte, len(v.NamedKeys))
		for name, key := range v.NamedKeys {
			wire.Names[name] = key.Bytes()
		}
	default:
		return nil, fmt.Errorf("unknown value type (%d): %w", v.Type, ErrTypeMismatch)
	}

	data, err := encoding.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("could not encode value: %w", err)
	}

	return data, nil
}

// DecodeValue decodes a value from its canonical encoding. Encodings that are
// not canonical are rejected.
func DecodeValue(data []byte) (StoredValue, error) {
	var wire wireValue
	err := cbor.Unmarshal(data, &wire)
	if err != nil {
		return StoredValue{}, fmt.Errorf("could not decode value: %v: %w", err, ErrCorrupted)
	}

	value := StoredValue{Type: wire.Type}
	switch wire.Type {
	case TypeBytes:
		value.Bytes = wire.Data
	case TypeU64:
		if len(wire.Data) != 8 {
			return StoredValue{}, fmt.Errorf("invalid u64 length (%d): %w", len(wire.Data), ErrCorrupted)
		}
		value.U64 = binary.BigEndian.Uint64(wire.Data)
	case TypeU256:
		if len(wire.Data) != 32 {
			return StoredValue{}, fmt.Errorf("invalid u256 length (%d): %w", len(wire.Data), ErrCorrupted)
		}
		value.U256.SetBytes(wire.Data)
	case TypeKey:
		key, err := KeyFromBytes(wire.Data)
		if err != nil {
			return StoredValue{}, fmt.Errorf("invalid key value: %v: %w", err, ErrCorrupted)
		}
		value.Key = key
	case TypeNamedKeys:
		value.NamedKeys = make(map[string]Key, len(wire.Names))
		for name, raw := range wire.Names {
			key, err := KeyFromBytes(raw)
			if err != nil {
				return StoredValue{}, fmt.Errorf("invalid named key (name: %s): %v: %w", name, err, ErrCorrupted)
			}
			value.NamedKeys[name] = key
		}
	default:
		return StoredValue{}, fmt.Errorf("unknown value type (%d): %w", wire.Type, ErrCorrupted)
	}

	canonical, err := value.Encode()
	if err != nil {
		return StoredValue{}, fmt.Errorf("could not re-encode value: %w", err)
	}
	if !bytes.Equal(canonical, data) {
		return StoredValue{}, fmt.Errorf("non-canonical value encoding: %w", ErrCorrupted)
	}

	return value, nil
}

// Size returns the length of the canonical encoding of the value.
func (v StoredValue) Size() (int, error) {
	data, err := v.Encode()
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// Equal checks whether two values are logically identical.
func (v StoredValue) Equal(other StoredValue) bool {
	a, err := v.Encode()
	if err != nil {
		return false
	}
	b, err := other.Encode()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Clone returns a copy of the value that shares no memory with the original.
func (v StoredValue) Clone() StoredValue {
	clone := v
	if v.Bytes != nil {
		clone.Bytes = append([]byte(nil), v.Bytes...)
	}
	if v.NamedKeys != nil {
		clone.NamedKeys = make(map[string]Key, len(v.NamedKeys))
		for name, key := range v.NamedKeys {
			clone.NamedKeys[name] = key
		}
	}
	return clone
}

// Add returns the sum of the value and the given delta. Numeric values must be
// of the same width; named keys are merged, with the delta's entries winning.
func (v StoredValue) Add(delta StoredValue) (StoredValue, error) {
	if v.Type != delta.Type {
		return StoredValue{}, fmt.Errorf("cannot add %s to %s: %w", delta.Type, v.Type, ErrTypeMismatch)
	}

	switch v.Type {
	case TypeU64:
		if v.U64 > math.MaxUint64-delta.U64 {
			return StoredValue{}, fmt.Errorf("could not add %d to %d: %w", delta.U64, v.U64, ErrOverflow)
		}
		return U64Value(v.U64 + delta.U64), nil

	case TypeU256:
		var sum uint256.Int
		_, overflow := sum.AddOverflow(&v.U256, &delta.U256)
		if overflow {
			return StoredValue{}, fmt.Errorf("could not add %s to %s: %w", delta.U256.ToBig(), v.U256.ToBig(), ErrOverflow)
		}
		return U256Value(&sum), nil

	case TypeNamedKeys:
		merged := make(map[string]Key, len(v.NamedKeys)+len(delta.NamedKeys))
		for name, key := range v.NamedKeys {
			merged[name] = key
		}
		for name, key := range delta.NamedKeys {
			merged[name] = key
		}
		return StoredValue{Type: TypeNamedKeys, NamedKeys: merged}, nil

	default:
		return StoredValue{}, fmt.Errorf("cannot add to %s: %w", v.Type, ErrTypeMismatch)
	}
}

func (v StoredValue) String() string {
	switch v.Type {
	case TypeBytes:
		return hex.EncodeToString(v.Bytes)
	case TypeU64:
		return fmt.Sprint(v.U64)
	case TypeU256:
		return v.U256.ToBig().String()
	case TypeKey:
		return v.Key.String()
	case TypeNamedKeys:
		names := make([]string, 0, len(v.NamedKeys))
		for name := range v.NamedKeys {
			names = append(names, name)
		}
		sort.Strings(names)
		entries := make([]string, 0, len(names))
		for _, name := range names {
			entries = append(entries, fmt.Sprintf("%s=%s", name, v.NamedKeys[name]))
		}
		return "{" + strings.Join(entries, ",") + "}"
	default:
		return fmt.Sprintf("invalid(%d)", v.Type)
	}
}

func (t ValueType) String() string {
	switch t {
	case TypeBytes:
		return "bytes"
	case TypeU64:
		return "u64"
	case TypeU256:
		return "u256"
	case TypeKey:
		return "key"
	case TypeNamedKeys:
		return "named-keys"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}
