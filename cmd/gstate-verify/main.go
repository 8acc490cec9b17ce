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

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/optakt/gstate/codec/zbor"
	"github.com/optakt/gstate/ledger/trie"
	"github.com/optakt/gstate/models/convert"
	"github.com/optakt/gstate/models/gstate"
)

const (
	success = 0
	failure = 1
)

func main() {
	os.Exit(run())
}

func run() int {

	// Command line parameter initialization.
	var (
		flagAbsent bool
		flagInput  string
		flagKey    string
		flagLevel  string
		flagRoot   string
		flagType   string
		flagValue  string
	)

	pflag.BoolVar(&flagAbsent, "absent", false, "verify that the key is absent from the state")
	pflag.StringVarP(&flagInput, "input", "i", "proof.zst", "file to read the compressed merkle proof from")
	pflag.StringVarP(&flagKey, "key", "k", "", "key the proof is for, as tag-address")
	pflag.StringVarP(&flagLevel, "level", "l", "info", "log output level")
	pflag.StringVarP(&flagRoot, "root", "r", "", "trusted state root to verify against")
	pflag.StringVarP(&flagType, "type", "t", "bytes", "type of the claimed value (bytes, u64, u256, key, named-keys)")
	pflag.StringVarP(&flagValue, "value", "v", "", "claimed value")

	pflag.Parse()

	// Logger initialization.
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	level, err := zerolog.ParseLevel(flagLevel)
	if err != nil {
		log.Error().Str("level", flagLevel).Err(err).Msg("could not parse log level")
		return failure
	}
	log = log.Level(level)

	if flagRoot == "" {
		log.Error().Msg("trusted root required, please provide one (-r, --root)")
		return failure
	}
	root, err := gstate.ParseDigest(flagRoot)
	if err != nil {
		log.Error().Err(err).Str("root", flagRoot).Msg("could not parse root")
		return failure
	}
	key, err := convert.ParseKey(flagKey)
	if err != nil {
		log.Error().Err(err).Str("key", flagKey).Msg("could not parse key")
		return failure
	}

	var claimed *gstate.StoredValue
	if !flagAbsent {
		value, err := convert.ParseValue(flagType, flagValue)
		if err != nil {
			log.Error().Err(err).Str("type", flagType).Str("value", flagValue).Msg("could not parse claimed value")
			return failure
		}
		claimed = &value
	}

	data, err := os.ReadFile(flagInput)
	if err != nil {
		log.Error().Err(err).Str("input", flagInput).Msg("could not read proof")
		return failure
	}
	var proof trie.Proof
	err = zbor.NewCodec().Unmarshal(data, &proof)
	if err != nil {
		log.Error().Err(err).Str("input", flagInput).Msg("could not decode proof")
		return failure
	}

	err = trie.Verify(root, key, claimed, &proof)
	var verr *gstate.ValidationError
	if errors.As(err, &verr) {
		log.Error().Err(verr.Err).Int("step", verr.Step).Str("detail", verr.Detail).Msg("proof is invalid")
		return failure
	}
	if err != nil {
		log.Error().Err(err).Msg("could not verify proof")
		return failure
	}

	fmt.Println("valid")

	return success
}
