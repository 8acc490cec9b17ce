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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/optakt/gstate/codec/zbor"
	"github.com/optakt/gstate/ledger/store"
	"github.com/optakt/gstate/models/convert"
	"github.com/optakt/gstate/models/gstate"
	"github.com/optakt/gstate/service/metrics"
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
		flagCache        int64
		flagData         string
		flagEffects      []string
		flagLevel        string
		flagMaxValueSize int
		flagMetrics      bool
		flagRoot         string
		flagScratch      bool
		flagStrictPrune  bool
	)

	pflag.Int64VarP(&flagCache, "cache", "c", store.DefaultCacheSize, "maximum size in bytes of the node cache")
	pflag.StringVarP(&flagData, "data", "d", "data", "path to database directory for the state trie")
	pflag.StringSliceVarP(&flagEffects, "effects", "e", nil, "paths to JSON effect files, applied in order")
	pflag.StringVarP(&flagLevel, "level", "l", "info", "log output level")
	pflag.IntVar(&flagMaxValueSize, "max-value-size", gstate.DefaultMaxValueSize, "maximum size in bytes of a stored value")
	pflag.BoolVarP(&flagMetrics, "metrics", "m", false, "log metrics before exiting")
	pflag.StringVarP(&flagRoot, "root", "r", "", "root to apply the effects on (default: empty root)")
	pflag.BoolVarP(&flagScratch, "scratch", "s", false, "apply all effect files in memory and write only the final state")
	pflag.BoolVar(&flagStrictPrune, "strict-prune", false, "fail when pruning a key that does not exist")

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

	if len(flagEffects) == 0 {
		log.Error().Msg("no effect files given, please provide at least one (-e, --effects)")
		return failure
	}

	// Parse all effect files before touching the database.
	batches := make([]*gstate.EffectSet, 0, len(flagEffects))
	for _, path := range flagEffects {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error().Err(err).Str("effects", path).Msg("could not read effect file")
			return failure
		}
		effects, err := convert.ParseEffects(data)
		if err != nil {
			log.Error().Err(err).Str("effects", path).Msg("could not parse effect file")
			return failure
		}
		batches = append(batches, effects)
	}

	// Open the state database.
	db, err := badger.Open(gstate.DefaultOptions(flagData))
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

	// The node store compresses nodes transparently, and both the store and
	// the codec are instrumented.
	reg := prometheus.NewRegistry()
	err = metrics.RegisterBadgerMetrics(reg)
	if err != nil {
		log.Error().Err(err).Msg("could not register database metrics")
		return failure
	}
	codec := metrics.NewCodec(zbor.NewCodec(), metrics.NewSize(reg, "codec"))
	nodes, err := store.New(log, db, codec, store.WithCacheSize(flagCache))
	if err != nil {
		log.Error().Err(err).Msg("could not initialize node store")
		return failure
	}
	defer nodes.Close()

	if flagMetrics {
		output := metrics.NewOutput(log, reg, 30*time.Second)
		output.Run()
		defer output.Stop()
	}

	engine, err := state.New(log, metrics.NewStore(reg, nodes),
		gstate.WithMaxValueSize(flagMaxValueSize),
		gstate.WithStrictPrune(flagStrictPrune),
	)
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

	var commit func(gstate.Digest, *gstate.EffectSet) (gstate.Digest, error)
	var scratch *state.Scratch
	commit = engine.Commit
	if flagScratch {
		scratch = engine.Scratch()
		commit = scratch.Commit
	}

	for i, effects := range batches {
		root, err = commit(root, effects)
		var cerr *gstate.CommitError
		if errors.As(err, &cerr) {
			log.Error().Err(cerr.Err).Str("effects", flagEffects[i]).Str("key", cerr.Key.String()).Str("transform", cerr.Transform.String()).Msg("could not apply transform")
			return failure
		}
		if err != nil {
			log.Error().Err(err).Str("effects", flagEffects[i]).Msg("could not commit effects")
			return failure
		}
		log.Info().Str("effects", flagEffects[i]).Str("root", root.String()).Int("keys", effects.Len()).Msg("effects applied")
	}

	if scratch != nil {
		root, err = scratch.Write(root)
		if err != nil {
			log.Error().Err(err).Msg("could not write scratch state")
			return failure
		}
	}

	fmt.Println(root)

	return success
}
