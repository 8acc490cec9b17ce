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

package store

// Default configuration values.
const (
	DefaultCacheSize = 64_000_000 // 64MB
)

// Config configures a store.
type Config struct {
	CacheSize  int64 `validate:"min=0"`
	SyncWrites bool
}

// Option is a function that modifies a configuration.
type Option func(*Config)

// DefaultConfig is the store's default configuration.
var DefaultConfig = Config{
	CacheSize:  DefaultCacheSize,
	SyncWrites: false,
}

// WithCacheSize specifies the maximum size in bytes of the in-memory cache of
// serialized nodes. A size of zero disables the cache.
func WithCacheSize(size int64) Option {
	return func(config *Config) {
		config.CacheSize = size
	}
}

// WithSyncWrites makes the store sync the database to disk after every batch
// of nodes it saves.
func WithSyncWrites(sync bool) Option {
	return func(config *Config) {
		config.SyncWrites = sync
	}
}
