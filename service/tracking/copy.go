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

package tracking

import (
	"errors"
	"fmt"

	"github.com/optakt/gstate/ledger/trie"
	"github.com/optakt/gstate/models/gstate"
)

// ErrUnprovable is returned when asking for the proof of a value that only
// exists in the tracking copy, or when the underlying reader cannot prove.
var ErrUnprovable = errors.New("value cannot be proven")

// Reader is the read-only view of state a tracking copy is layered over.
type Reader interface {
	Read(key gstate.Key) (gstate.StoredValue, error)
}

// Prover is a reader that can also prove the values it reads.
type Prover interface {
	ReadWithProof(key gstate.Key) (*gstate.StoredValue, *trie.Proof, error)
}

// Copy is the read/write cache and journal of a single unit of execution. It
// reads through to a fixed view of state, caches what it reads, and buffers
// every modification as a transform. It never writes to a node store; its
// effects have to be committed to produce a new state.
//
// A copy is owned by a single execution and is not safe for concurrent use.
type Copy struct {
	reader  Reader
	cfg     gstate.Config
	cache   map[gstate.Key]*gstate.StoredValue // nil means the key is known to be absent
	below   map[gstate.Key]bool                // whether the key exists in the reader
	effects *gstate.EffectSet
}

// New creates a tracking copy on top of the given reader.
func New(reader Reader, options ...gstate.Option) (*Copy, error) {

	cfg := gstate.DefaultConfig
	for _, option := range options {
		option(&cfg)
	}
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	c := Copy{
		reader:  reader,
		cfg:     cfg,
		cache:   make(map[gstate.Key]*gstate.StoredValue),
		below:   make(map[gstate.Key]bool),
		effects: gstate.NewEffectSet(),
	}

	return &c, nil
}

// Read returns the value of the key as seen by this execution, including its
// own pending modifications. It fails with gstate.ErrNotFound if the key does
// not exist. The returned value can be modified freely.
func (c *Copy) Read(key gstate.Key) (gstate.StoredValue, error) {

	cached, ok := c.cache[key]
	if ok && cached == nil {
		return gstate.StoredValue{}, gstate.ErrNotFound
	}
	if ok {
		return cached.Clone(), nil
	}

	value, err := c.reader.Read(key)
	if errors.Is(err, gstate.ErrNotFound) {
		c.cache[key] = nil
		c.below[key] = false
		return gstate.StoredValue{}, gstate.ErrNotFound
	}
	if err != nil {
		return gstate.StoredValue{}, fmt.Errorf("could not read key %s: %w", key, err)
	}

	c.cache[key] = &value
	c.below[key] = true

	return value.Clone(), nil
}

// exists checks whether the key exists in the underlying reader, regardless
// of the modifications buffered in this copy.
func (c *Copy) exists(key gstate.Key) (bool, error) {

	found, ok := c.below[key]
	if ok {
		return found, nil
	}

	_, err := c.reader.Read(key)
	if errors.Is(err, gstate.ErrNotFound) {
		c.below[key] = false
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not read key %s: %w", key, err)
	}
	c.below[key] = true

	return true, nil
}

// Write overwrites the value of the key. The copy keeps its own copy of the
// value, so the caller can keep modifying it.
func (c *Copy) Write(key gstate.Key, value gstate.StoredValue) error {

	err := key.Validate()
	if err != nil {
		return err
	}
	err = c.cfg.CheckSize(value)
	if err != nil {
		return fmt.Errorf("could not write key %s: %w", key, err)
	}

	err = c.effects.Apply(key, gstate.WriteTransform(value.Clone()))
	if err != nil {
		return err
	}
	stored := value.Clone()
	c.cache[key] = &stored

	return nil
}

// Add adds the delta to the current value of the key, which has to exist and
// be of a compatible type.
func (c *Copy) Add(key gstate.Key, delta gstate.StoredValue) error {

	current, err := c.Read(key)
	if errors.Is(err, gstate.ErrNotFound) {
		return fmt.Errorf("could not add to missing key %s: %w", key, gstate.ErrTypeMismatch)
	}
	if err != nil {
		return err
	}

	sum, err := current.Add(delta)
	if err != nil {
		return fmt.Errorf("could not add to key %s: %w", key, err)
	}
	err = c.cfg.CheckSize(sum)
	if err != nil {
		return fmt.Errorf("could not add to key %s: %w", key, err)
	}

	err = c.effects.Apply(key, gstate.AddTransform(delta.Clone()))
	if err != nil {
		return err
	}
	c.cache[key] = &sum

	return nil
}

// Prune deletes the key. Pruning a key that does not exist is a no-op, unless
// strict pruning is configured. Pruning a key that was created by this copy
// cancels its pending modifications instead of recording a prune, since the
// key does not exist in the underlying state.
func (c *Copy) Prune(key gstate.Key) error {

	_, err := c.Read(key)
	if errors.Is(err, gstate.ErrNotFound) {
		if c.cfg.StrictPrune {
			return fmt.Errorf("could not prune key %s: %w", key, gstate.ErrPruneMissing)
		}
		return nil
	}
	if err != nil {
		return err
	}

	found, err := c.exists(key)
	if err != nil {
		return err
	}
	if found {
		err = c.effects.Apply(key, gstate.PruneTransform())
	} else {
		c.effects.Set(key, gstate.IdentityTransform())
	}
	if err != nil {
		return err
	}
	c.cache[key] = nil

	return nil
}

// Effects returns the transforms accumulated so far, in the order in which
// keys were first modified.
func (c *Copy) Effects() *gstate.EffectSet {
	return c.effects.Clone()
}

// Query resolves the path starting at the given key, over the values as seen
// by this execution.
func (c *Copy) Query(key gstate.Key, path []string) (gstate.StoredValue, error) {
	return Resolve(c.Read, key, path, c.cfg.MaxQueryDepth)
}

// ReadWithProof returns the value of the key along with a proof against the
// root the copy was created from. Keys modified by this execution cannot be
// proven.
func (c *Copy) ReadWithProof(key gstate.Key) (*gstate.StoredValue, *trie.Proof, error) {

	_, modified := c.effects.Transform(key)
	if modified {
		return nil, nil, fmt.Errorf("key %s has pending modifications: %w", key, ErrUnprovable)
	}
	prover, ok := c.reader.(Prover)
	if !ok {
		return nil, nil, fmt.Errorf("reader does not support proofs: %w", ErrUnprovable)
	}

	return prover.ReadWithProof(key)
}

// Fork creates a nested tracking copy that reads through this one. The
// effects of the nested copy can be merged back with Absorb, or dropped.
func (c *Copy) Fork() *Copy {
	f := Copy{
		reader:  c,
		cfg:     c.cfg,
		cache:   make(map[gstate.Key]*gstate.StoredValue),
		below:   make(map[gstate.Key]bool),
		effects: gstate.NewEffectSet(),
	}

	return &f
}

// Absorb replays the given effects on this copy, in order. Either all of them
// are applied, or the copy is left as it was before the call.
func (c *Copy) Absorb(effects *gstate.EffectSet) error {

	cache := make(map[gstate.Key]*gstate.StoredValue, len(c.cache))
	for key, value := range c.cache {
		cache[key] = value
	}
	below := make(map[gstate.Key]bool, len(c.below))
	for key, found := range c.below {
		below[key] = found
	}
	pending := c.effects.Clone()

	err := effects.Range(func(key gstate.Key, transform gstate.Transform) error {
		var err error
		switch transform.Kind {
		case gstate.Identity:
			return nil
		case gstate.Write:
			err = c.Write(key, transform.Value)
		case gstate.Add:
			err = c.Add(key, transform.Value)
		case gstate.Prune:
			err = c.Prune(key)
		default:
			err = fmt.Errorf("unknown transform kind (%d)", transform.Kind)
		}
		if err != nil {
			return fmt.Errorf("could not absorb %s on key %s: %w", transform, key, err)
		}
		return nil
	})
	if err != nil {
		c.cache = cache
		c.below = below
		c.effects = pending
		return err
	}

	return nil
}
