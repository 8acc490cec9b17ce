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

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/optakt/gstate/codec/zbor"
	"github.com/optakt/gstate/ledger/store"
	"github.com/optakt/gstate/models/convert"
	"github.com/optakt/gstate/models/gstate"
	"github.com/optakt/gstate/service/state"
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
		flagData   string
		flagDepth  uint
		flagKey    string
		flagLevel  string
		flagOutput string
		flagPath   string
		flagRoot   string
	)

	pflag.StringVarP(&flagData, "data", "d", "data", "path to database directory for the state trie")
	pflag.UintVar(&flagDepth, "max-depth", gstate.DefaultMaxQueryDepth, "maximum number of indirections to follow")
	pflag.StringVarP(&flagKey, "key", "k", "", "key to read, as tag-address")
	pflag.StringVarP(&flagLevel, "level", "l", "info", "log output level")
	pflag.StringVarP(&flagOutput, "output", "o", "", "file to write the compressed merkle proof to")
	pflag.StringVarP(&flagPath, "path", "p", "", "slash-separated names to resolve from the key")
	pflag.StringVarP(&flagRoot, "root", "r", "", "root of the state to read from")

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

	key, err := convert.ParseKey(flagKey)
	if err != nil {
		log.Error().Err(err).Str("key", flagKey).Msg("could not parse key")
		return failure
	}
	path := convert.ParsePath(flagPath)
	if len(path) > 0 && flagOutput != "" {
		log.Error().Msg("proofs can only be generated for direct reads, not for queries")
		return failure
	}

	// Open the state database; reading never writes to it.
	db, err := badger.Open(gstate.DefaultOptions(flagData).WithReadOnly(true))
	if err != nil {
		log.Error().Str("data", flagData).Err(err).Msg("could not open state database")
		return failure
	}
	defer func() {
		err := db.Close()
		if err != nil {
			log.Error().Err(err).Msg("could not close state database")
		}
	}()

	codec := zbor.NewCodec()
	nodes, err := store.New(log, db, codec)
	if err != nil {
		log.Error().Err(err).Msg("could not initialize node store")
		return failure
	}
	defer nodes.Close()

	// The engine makes sure the empty root exists, which needs write access,
	// so we check out roots on the node store through a read-only overlay.
	engine, err := state.New(log, store.NewOverlay(nodes), gstate.WithMaxQueryDepth(flagDepth))
	if err != nil {
		log.Error().Err(err).Msg("could not initialize state")
		return failure
	}

	root := engine.EmptyRoot()
	if flagRoot != "" {
		root, err = gstate.ParseDigest(flagRoot)
		if err != nil {
			log.Error().Err(err).Str("root", flagRoot).Msg("could not parse root")
			return failure
		}
	}
	reader, err := engine.Checkout(root)
	if err != nil {
		log.Error().Err(err).Str("root", root.String()).Msg("could not check out root")
		return failure
	}

	if len(path) > 0 {
		value, err := reader.Query(key, path)
		var derr *gstate.DepthExceededError
		if errors.As(err, &derr) {
			log.Error().Err(err).Uint("max_depth", derr.Depth).Msg("query exceeds maximum depth")
			return failure
		}
		if err != nil {
			log.Error().Err(err).Str("key", key.String()).Strs("path", path).Msg("could not resolve query")
			return failure
		}
		fmt.Println(value.Type, convert.FormatValue(value))
		return success
	}

	value, proof, err := reader.ReadWithProof(key)
	if err != nil {
		log.Error().Err(err).Str("key", key.String()).Msg("could not read key")
		return failure
	}

	if flagOutput != "" {
		data, err := codec.Marshal(proof)
		if err != nil {
			log.Error().Err(err).Msg("could not encode proof")
			return failure
		}
		err = os.WriteFile(flagOutput, data, 0644)
		if err != nil {
			log.Error().Err(err).Str("output", flagOutput).Msg("could not write proof")
			return failure
		}
		log.Info().Str("output", flagOutput).Int("steps", len(proof.Nodes)).Msg("proof written")
	}

	if value == nil {
		fmt.Println("absent")
		return success
	}
	fmt.Println(value.Type, convert.FormatValue(*value))

	return success
}
