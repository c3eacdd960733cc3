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

package apis

// Builder composes a Pool, a ConfigDict and a LazyConfig from a Config
// and Workspace, the same role the teacher repo's apis.Builder plays for
// Registry/Resolver: a single pluggable seam a caller can override to
// change how the layers are assembled.
type Builder interface {
	// BuildPool constructs (or reuses) the process-wide Registry pool.
	BuildPool(cfg Config, prev Pool) Pool

	// Symbols returns the SymbolTable BuildConfigDict will resolve
	// qualified paths against. It is exposed so callers can Bind their
	// Targets before Parse runs; the same table is reused across calls
	// to the same Builder.
	Symbols() SymbolTable

	// BuildConfigDict parses raw (a decoded TOML tree) against ws and
	// pool into a ConfigDict. The returned ConfigDict's Parse builds its
	// Node graph alongside raw; it does not rewrite raw in place.
	BuildConfigDict(raw map[string]any, ws Workspace, pool Pool, cfg Config) ConfigDict

	// BuildLazyConfig wraps cd with the HookManager populated from the
	// config tree's ExcoreHook table by the most recent BuildConfigDict
	// call (spec §6) and returns a ready-to-build LazyConfig.
	BuildLazyConfig(cd ConfigDict, ws Workspace, cfg Config) LazyConfig
}
