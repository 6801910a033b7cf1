// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import "sync/atomic"

// ConfigStore is process-wide, read-only shared state holding the latest
// observed ThreadConfig (spec §9 "Global state": "the thread config is
// process-wide read-only state refreshed on each relevant account
// update"). Every scheduler actor reads through the same store rather than
// each tracking its own copy.
type ConfigStore struct {
	v atomic.Pointer[ThreadConfig]
}

// NewConfigStore constructs an empty store; Get returns the zero value
// ThreadConfig (Paused=false, an all-zero fee split) until the first
// Set.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{}
}

// Get returns a copy of the current config.
func (s *ConfigStore) Get() ThreadConfig {
	p := s.v.Load()
	if p == nil {
		return ThreadConfig{}
	}
	return *p
}

// Set replaces the current config. Callers must validate c before calling
// Set — spec §8 "the executor rejects the config" if the fee split is
// invalid, so an invalid config must never reach the store.
func (s *ConfigStore) Set(c ThreadConfig) {
	cp := c
	s.v.Store(&cp)
}
