// Copyright 2026 The vmacore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vmmconfig loads the small set of tunables a MemorySet accepts at
// construction time, the way runsc loads its own TOML configuration.
package vmmconfig

import "github.com/BurntSushi/toml"

// Config holds the tunables a MemorySet reads at construction time.
type Config struct {
	// PageSize is the alignment unit MemorySet.AdjustArea enforces on its
	// newStart/newEnd bounds. 4096 unless overridden for a non-standard page
	// size.
	PageSize uint64 `toml:"page_size"`

	// MaxAreas caps the number of areas Insert and Map will add; they report
	// InvalidParam once the set is at capacity. Areas created by the splits
	// inside Unmap and Protect are not checked against it. Zero means
	// unbounded.
	MaxAreas int `toml:"max_areas"`

	// DefaultSearchHint is the address FindFreeArea starts scanning from
	// when the caller passes a zero hint.
	DefaultSearchHint uint64 `toml:"default_search_hint"`
}

// Default returns the zero-tunable configuration: the standard 4K page
// size, no cap on area count, and a zero default search hint.
func Default() *Config {
	return &Config{PageSize: 4096}
}

// Load reads a Config from a TOML file at path, starting from Default and
// overriding only the fields present in the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 4096
	}
	return cfg, nil
}
