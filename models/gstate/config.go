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
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Default configuration values.
const (
	DefaultMaxValueSize  = 8_388_608 // 8MiB
	DefaultMaxQueryDepth = 5
)

// Config holds the externally supplied bounds enforced by the state engine.
type Config struct {
	MaxValueSize  int  `validate:"min=1"`
	MaxQueryDepth uint `validate:"min=1"`
	StrictPrune   bool
}

// Option is a function that modifies a configuration.
type Option func(*Config)

// DefaultConfig is the default configuration of the state engine.
var DefaultConfig = Config{
	MaxValueSize:  DefaultMaxValueSize,
	MaxQueryDepth: DefaultMaxQueryDepth,
	StrictPrune:   false,
}

// WithMaxValueSize sets the maximum size of the canonical encoding of a
// stored value.
func WithMaxValueSize(size int) Option {
	return func(cfg *Config) {
		cfg.MaxValueSize = size
	}
}

// WithMaxQueryDepth sets the maximum number of indirections followed when
// resolving a query.
func WithMaxQueryDepth(depth uint) Option {
	return func(cfg *Config) {
		cfg.MaxQueryDepth = depth
	}
}

// WithStrictPrune makes pruning a key that does not exist an error instead of
// a no-op.
func WithStrictPrune(strict bool) Option {
	return func(cfg *Config) {
		cfg.StrictPrune = strict
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// CheckSize verifies that the value does not exceed the configured size
// limit.
func (c Config) CheckSize(value StoredValue) error {
	size, err := value.Size()
	if err != nil {
		return err
	}
	if size > c.MaxValueSize {
		return fmt.Errorf("value of %d bytes exceeds limit of %d bytes: %w", size, c.MaxValueSize, ErrValueTooLarge)
	}
	return nil
}
