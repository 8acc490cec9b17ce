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

package zbor_test

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/gstate/codec/zbor"
	"github.com/optakt/gstate/ledger/trie"
	"github.com/optakt/gstate/testing/mocks"
)

func TestCodec_Marshal(t *testing.T) {

	codec := zbor.NewCodec()

	proof := trie.Proof{
		Key:   mocks.GenericKey(0),
		Nodes: [][]byte{mocks.GenericBytes, bytes.Repeat(mocks.GenericBytes, 64)},
	}

	data, err := codec.Marshal(&proof)
	require.NoError(t, err)

	var got trie.Proof
	err = codec.Unmarshal(data, &got)
	require.NoError(t, err)
	assert.Equal(t, proof, got)
}

func TestCodec_Compress(t *testing.T) {

	data := bytes.Repeat(mocks.GenericBytes, 1024)

	for _, level := range []zstd.EncoderLevel{zstd.SpeedFastest, zstd.SpeedDefault, zstd.SpeedBestCompression} {
		level := level
		t.Run(level.String(), func(t *testing.T) {
			t.Parallel()

			codec := zbor.NewCodec(zbor.WithLevel(level))

			compressed, err := codec.Compress(data)
			require.NoError(t, err)
			assert.Less(t, len(compressed), len(data))

			decompressed, err := codec.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, data, decompressed)
		})
	}

	t.Run("corrupted input", func(t *testing.T) {
		t.Parallel()

		codec := zbor.NewCodec()
		_, err := codec.Decompress(mocks.GenericBytes)
		assert.Error(t, err)

		var proof trie.Proof
		err = codec.Unmarshal(mocks.GenericBytes, &proof)
		assert.Error(t, err)
	})
}

func TestCodec_Encode(t *testing.T) {

	codec := zbor.NewCodec()

	// Canonical encoding sorts map keys, regardless of insertion order.
	first := map[string]uint64{"b": 2, "a": 1, "c": 3}
	second := map[string]uint64{"c": 3, "a": 1, "b": 2}

	a, err := codec.Encode(first)
	require.NoError(t, err)
	b, err := codec.Encode(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var got map[string]uint64
	err = codec.Decode(a, &got)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}
