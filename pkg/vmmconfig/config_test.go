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

package vmmconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gophervmm/vmacore/pkg/vmmconfig"
)

func TestDefault(t *testing.T) {
	cfg := vmmconfig.Default()
	if cfg.PageSize != 4096 {
		t.Fatalf("PageSize = %d, want 4096", cfg.PageSize)
	}
	if cfg.MaxAreas != 0 {
		t.Fatalf("MaxAreas = %d, want 0", cfg.MaxAreas)
	}
}

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vmm.toml")
	if err := os.WriteFile(path, []byte("max_areas = 64\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := vmmconfig.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxAreas != 64 {
		t.Fatalf("MaxAreas = %d, want 64", cfg.MaxAreas)
	}
	if cfg.PageSize != 4096 {
		t.Fatalf("PageSize = %d, want default 4096", cfg.PageSize)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := vmmconfig.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Load on a missing file should return an error")
	}
}
