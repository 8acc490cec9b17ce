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

package convert_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/gstate/models/convert"
	"github.com/optakt/gstate/models/gstate"
	"github.com/optakt/gstate/testing/mocks"
)

func TestParseValue(t *testing.T) {

	huge, err := uint256.FromHex("0xffffffffffffffffffffffffffffffff")
	require.NoError(t, err)

	values := []gstate.StoredValue{
		gstate.BytesValue(mocks.GenericBytes),
		gstate.U64Value(18446744073709551615),
		gstate.U256Value(huge),
		gstate.KeyValue(mocks.GenericKey(0)),
		gstate.NamedKeysValue(mocks.GenericNamedKeys),
		gstate.NamedKeysValue(nil),
	}

	for _, value := range values {
		text := convert.FormatValue(value)
		got, err := convert.ParseValue(value.Type.String(), text)
		require.NoError(t, err, text)
		assert.True(t, value.Equal(got), "have %s, want %s", got, value)
	}

	invalid := []struct {
		typ   string
		value string
	}{
		{typ: "bytes", value: "xyz"},
		{typ: "u64", value: "-1"},
		{typ: "u64", value: "18446744073709551616"},
		{typ: "u256", value: "-1"},
		{typ: "u256", value: "abc"},
		{typ: "u256", value: "115792089237316195423570985008687907853269984665640564039457584007913129639936"},
		{typ: "key", value: "account-00"},
		{typ: "named-keys", value: "alpha"},
		{typ: "named-keys", value: "=account-00"},
		{typ: "float", value: "1.0"},
	}
	for _, test := range invalid {
		_, err := convert.ParseValue(test.typ, test.value)
		assert.Error(t, err, "%s %s", test.typ, test.value)
	}
}
