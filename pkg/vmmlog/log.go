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

// Package vmmlog is the structured-logging façade used by pkg/vmm to report
// backend failures and rejected operations; pkg/vmm does not log area
// transitions, though Debugf is available for that. It wraps a *logrus.Logger so
// callers embedding this core in a larger kernel can redirect or silence
// these log lines the way they already configure their own logging, rather
// than this package picking a global sink for them.
package vmmlog

import "github.com/sirupsen/logrus"

// std is the package-level logger every MemorySet shares. It starts as a
// fresh logrus logger at warn level until SetLogger replaces it.
var std = logrus.New()

func init() {
	std.SetLevel(logrus.WarnLevel)
}

// SetLogger replaces the package-level logger. It is typically called once,
// at process startup, to route vmm's diagnostics into the embedding
// program's own logging pipeline.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		std = l
	}
}

// Debugf logs a low-severity diagnostic: area transitions, split/merge
// bookkeeping, and other detail useful when tracing a single MemorySet's
// behavior.
func Debugf(format string, args ...any) {
	std.Debugf(format, args...)
}

// Warnf logs a backend rejection or other operation failure that the caller
// must already handle via the returned error, but that is worth surfacing in
// logs without the caller having to thread logging through every call site.
func Warnf(format string, args ...any) {
	std.Warnf(format, args...)
}
