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

package trie

import (
	"encoding/binary"
	"fmt"

	"github.com/optakt/gstate/models/gstate"
)

// Node type tags of the serialized format.
const (
	tagLeaf      = 0x00
	tagBranch    = 0x01
	tagExtension = 0x02
)

const pointerSize = 1 + gstate.DigestSize

// Encode serializes a node. Logically identical nodes always serialize to the
// same bytes.
//
// Leaf:      tag | u32 key length | key | u32 value length | value
// Branch:    tag | u16 count | count x (index | pointer kind | digest)
// Extension: tag | u32 affix length | affix | pointer kind | digest
//
// All integers are big-endian, and branch children are ordered by index.
func Encode(node Node) ([]byte, error) {
	switch n := node.(type) {

	case *Leaf:
		key := n.Key.Bytes()
		value, err := n.Value.Encode()
		if err != nil {
			return nil, fmt.Errorf("could not encode leaf value: %w", err)
		}
		data := make([]byte, 0, 1+4+len(key)+4+len(value))
		data = append(data, tagLeaf)
		data = appendUint32(data, uint32(len(key)))
		data = append(data, key...)
		data = appendUint32(data, uint32(len(value)))
		data = append(data, value...)
		return data, nil

	case *Branch:
		count := n.Count()
		data := make([]byte, 0, 1+2+count*(1+pointerSize))
		data = append(data, tagBranch)
		data = appendUint16(data, uint16(count))
		for i, child := range n.Children {
			if child == nil {
				continue
			}
			data = append(data, byte(i))
			data = appendPointer(data, *child)
		}
		return data, nil

	case *Extension:
		if len(n.Affix) == 0 {
			return nil, fmt.Errorf("extension with empty affix")
		}
		data := make([]byte, 0, 1+4+len(n.Affix)+pointerSize)
		data = append(data, tagExtension)
		data = appendUint32(data, uint32(len(n.Affix)))
		data = append(data, n.Affix...)
		data = appendPointer(data, n.Child)
		return data, nil

	default:
		return nil, fmt.Errorf("unknown node type (%T)", node)
	}
}

// Decode deserializes a node. It rejects anything that Encode would not have
// produced.
func Decode(data []byte) (Node, error) {
	r := reader{data: data}

	tag, err := r.byte()
	if err != nil {
		return nil, err
	}

	var node Node
	switch tag {

	case tagLeaf:
		keyLen, err := r.uint32()
		if err != nil {
			return nil, err
		}
		raw, err := r.bytes(int(keyLen))
		if err != nil {
			return nil, err
		}
		key, err := gstate.KeyFromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid leaf key: %v: %w", err, gstate.ErrCorrupted)
		}
		valueLen, err := r.uint32()
		if err != nil {
			return nil, err
		}
		raw, err = r.bytes(int(valueLen))
		if err != nil {
			return nil, err
		}
		value, err := gstate.DecodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid leaf value: %w", err)
		}
		node = NewLeaf(key, value)

	case tagBranch:
		count, err := r.uint16()
		if err != nil {
			return nil, err
		}
		if count > Width {
			return nil, fmt.Errorf("too many branch children (%d): %w", count, gstate.ErrCorrupted)
		}
		branch := NewBranch()
		last := -1
		for i := 0; i < int(count); i++ {
			index, err := r.byte()
			if err != nil {
				return nil, err
			}
			if int(index) <= last {
				return nil, fmt.Errorf("unordered branch child (index: %d): %w", index, gstate.ErrCorrupted)
			}
			last = int(index)
			child, err := r.pointer()
			if err != nil {
				return nil, err
			}
			branch.Children[index] = &child
		}
		node = branch

	case tagExtension:
		affixLen, err := r.uint32()
		if err != nil {
			return nil, err
		}
		if affixLen == 0 {
			return nil, fmt.Errorf("extension with empty affix: %w", gstate.ErrCorrupted)
		}
		affix, err := r.bytes(int(affixLen))
		if err != nil {
			return nil, err
		}
		child, err := r.pointer()
		if err != nil {
			return nil, err
		}
		if child.Kind != NodePointer {
			return nil, fmt.Errorf("extension pointing to leaf: %w", gstate.ErrCorrupted)
		}
		node = NewExtension(affix, child)

	default:
		return nil, fmt.Errorf("unknown node tag (%d): %w", tag, gstate.ErrCorrupted)
	}

	if r.remaining() != 0 {
		return nil, fmt.Errorf("trailing bytes after node (%d): %w", r.remaining(), gstate.ErrCorrupted)
	}

	return node, nil
}

// Hash serializes the node and returns its digest along with the serialized
// bytes.
func Hash(node Node) (gstate.Digest, []byte, error) {
	data, err := Encode(node)
	if err != nil {
		return gstate.Digest{}, nil, err
	}
	return gstate.Hash(data), data, nil
}

func appendUint16(data []byte, v uint16) []byte {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return append(data, buf[:]...)
}

func appendUint32(data []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(data, buf[:]...)
}

func appendPointer(data []byte, p Pointer) []byte {
	data = append(data, byte(p.Kind))
	return append(data, p.Digest[:]...)
}

// reader consumes a serialized node and fails on short reads.
type reader struct {
	data   []byte
	offset int
}

func (r *reader) remaining() int {
	return len(r.data) - r.offset
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("short read (want: %d, have: %d): %w", n, r.remaining(), gstate.ErrCorrupted)
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) pointer() (Pointer, error) {
	kind, err := r.byte()
	if err != nil {
		return Pointer{}, err
	}
	if PointerKind(kind) != LeafPointer && PointerKind(kind) != NodePointer {
		return Pointer{}, fmt.Errorf("unknown pointer kind (%d): %w", kind, gstate.ErrCorrupted)
	}
	raw, err := r.bytes(gstate.DigestSize)
	if err != nil {
		return Pointer{}, err
	}
	var digest gstate.Digest
	copy(digest[:], raw)
	return Pointer{Kind: PointerKind(kind), Digest: digest}, nil
}
