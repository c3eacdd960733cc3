/*
   Copyright 2025 The Excore Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package excore provides a global, process-wide convenience layer over
// the engine's Pool/ConfigDict/LazyConfig pipeline.
//
// # Design
//
// A single immutable snapshot (state) is published behind an
// atomic.Pointer, the same shape the teacher repo used for its
// registry/resolver pair. The snapshot holds:
//
//   - Config: the EXCORE_* runtime knobs (see the config package).
//   - Workspace: the decoded `.excore.toml` descriptor, or the zero value
//     before LoadWorkspace/SetWorkspace has run.
//   - Pool: the process-wide registry pool every ConfigDict resolves
//     against.
//   - Builder: the pluggable seam that assembles ConfigDict/LazyConfig
//     instances (and owns the SymbolTable AutoRegister binds into).
//
// Reads (Config, Workspace, Pool, Builder) are wait-free. Writes
// (SetConfig, SetWorkspace, SetPool, SetBuilder, SetAll) take a short
// buildMu lock, construct a new state and swap it in atomically, so a
// reader never observes a half-updated snapshot.
//
// # Usage
//
//	if err := excore.LoadWorkspace(".excore.toml"); err != nil { ... }
//	excore.AutoRegister("models", "gpt", "myapp/models.GPT", target)
//	lc, err := excore.BuildFromConfigFile("run.toml")
//	result, err := lc.BuildAll()
package excore
