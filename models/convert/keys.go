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
	"strings"

	"github.com/optakt/gstate/models/gstate"
)

var tags = map[string]gstate.KeyTag{
	gstate.TagAccount.String():          gstate.TagAccount,
	gstate.TagHash.String():             gstate.TagHash,
	gstate.TagURef.String():             gstate.TagURef,
	gstate.TagBalance.String():          gstate.TagBalance,
	gstate.TagDictionary.String():       gstate.TagDictionary,
	gstate.TagSystemRegistry.String():   gstate.TagSystemRegistry,
	gstate.TagChecksumRegistry.String(): gstate.TagChecksumRegistry,
}

// ParseKey parses a key from its textual representation, which is the name
// of its tag followed by a dash and the hexadecimal address. The address can
// be omitted for registry keys.
func ParseKey(s string) (gstate.Key, error) {
	parts := strings.SplitN(s, "-", 2)
	// Registry tags contain a dash themselves.
	if len(parts) == 2 && strings.HasPrefix(parts[1], "registry") {
		name := parts[0] + "-registry"
		rest := strings.TrimPrefix(parts[1], "registry")
		rest = strings.TrimPrefix(rest, "-")
		parts = []string{name, rest}
	}
	if len(parts) != 2 {
		return gstate.Key{}, fmt.Errorf("invalid key format (%s): %w", s, gstate.ErrInvalidKey)
	}

	tag, ok := tags[parts[0]]
	if !ok {
		return gstate.Key{}, fmt.Errorf("unknown key tag (%s): %w", parts[0], gstate.ErrInvalidKey)
	}

	var addr [gstate.AddrSize]byte
	if parts[1] != "" {
		data, err := hex.DecodeString(parts[1])
		if err != nil {
			return gstate.Key{}, fmt.Errorf("could not decode key address: %v: %w", err, gstate.ErrInvalidKey)
		}
		if len(data) != gstate.AddrSize {
			return gstate.Key{}, fmt.Errorf("invalid key address length (have: %d, want: %d): %w", len(data), gstate.AddrSize, gstate.ErrInvalidKey)
		}
		copy(addr[:], data)
	}

	key := gstate.NewKey(tag, addr)
	err := key.Validate()
	if err != nil {
		return gstate.Key{}, err
	}

	return key, nil
}

// ParsePath splits a query path of slash-separated names.
func ParsePath(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.Trim(s, "/"), "/")
}
