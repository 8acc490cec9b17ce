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
	"encoding/hex"
	"fmt"
)

// KeyTag identifies the kind of address a key points to.
type KeyTag uint8

// Supported key tags.
const (
	TagAccount KeyTag = iota
	TagHash
	TagURef
	TagBalance
	TagDictionary
	TagSystemRegistry
	TagChecksumRegistry
)

// AddrSize is the length of the address part of a key.
const AddrSize = 32

// KeySize is the length of the canonical byte representation of a key.
const KeySize = 1 + AddrSize

// Key identifies an address in global state. All keys serialize to the same
// number of bytes, which keeps the set of trie paths prefix-free.
type Key struct {
	Tag  KeyTag
	Addr [AddrSize]byte
}

// NewKey creates a key with the given tag and address.
func NewKey(tag KeyTag, addr [AddrSize]byte) Key {
	return Key{Tag: tag, Addr: addr}
}

// SystemRegistryKey is the key of the system contract registry.
func SystemRegistryKey() Key {
	return Key{Tag: TagSystemRegistry}
}

// ChecksumRegistryKey is the key of the checksum registry.
func ChecksumRegistryKey() Key {
	return Key{Tag: TagChecksumRegistry}
}

// Bytes returns the canonical byte representation of the key, which is also
// the path of the key in the trie.
func (k Key) Bytes() []byte {
	data := make([]byte, KeySize)
	data[0] = byte(k.Tag)
	copy(data[1:], k.Addr[:])
	return data
}

// KeyFromBytes decodes a key from its canonical byte representation.
func KeyFromBytes(data []byte) (Key, error) {
	var key Key
	if len(data) != KeySize {
		return key, fmt.Errorf("invalid key length (have: %d, want: %d): %w", len(data), KeySize, ErrInvalidKey)
	}
	key.Tag = KeyTag(data[0])
	copy(key.Addr[:], data[1:])
	err := key.Validate()
	if err != nil {
		return Key{}, err
	}
	return key, nil
}

// Validate checks that the key has a known tag, and that registry keys do not
// carry an address.
func (k Key) Validate() error {
	switch k.Tag {
	case TagAccount, TagHash, TagURef, TagBalance, TagDictionary:
		return nil
	case TagSystemRegistry, TagChecksumRegistry:
		if k.Addr != ([AddrSize]byte{}) {
			return fmt.Errorf("registry key with address (tag: %d): %w", k.Tag, ErrInvalidKey)
		}
		return nil
	default:
		return fmt.Errorf("unknown key tag (%d): %w", k.Tag, ErrInvalidKey)
	}
}

// Compare orders keys by their canonical byte representation.
func (k Key) Compare(other Key) int {
	if k.Tag != other.Tag {
		if k.Tag < other.Tag {
			return -1
		}
		return 1
	}
	return bytes.Compare(k.Addr[:], other.Addr[:])
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%s", k.Tag, hex.EncodeToString(k.Addr[:]))
}

func (t KeyTag) String() string {
	switch t {
	case TagAccount:
		return "account"
	case TagHash:
		return "hash"
	case TagURef:
		return "uref"
	case TagBalance:
		return "balance"
	case TagDictionary:
		return "dictionary"
	case TagSystemRegistry:
		return "system-registry"
	case TagChecksumRegistry:
		return "checksum-registry"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}
