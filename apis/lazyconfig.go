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

// BuildResult is the (primary_modules, auxiliary_values) pair build_all
// returns (spec §2 data flow, §4.5).
type BuildResult struct {
	// Primary maps each built primary field name to its call result
	// (unwrapped single value, map, or []any — see ModuleWrapper.Call).
	Primary map[string]any
	// Auxiliary carries every remaining non-primary top-level value,
	// copied verbatim.
	Auxiliary map[string]any
}

// LazyConfig holds a ConfigDict and a HookManager and runs the build
// phase producing instantiated objects (spec §4.5).
type LazyConfig interface {
	// Parse is an idempotent convenience wrapper around the underlying
	// ConfigDict.Parse.
	Parse() error

	// BuildAll runs the algorithm of spec §4.5 and returns the result.
	BuildAll() (BuildResult, error)

	// ConfigDict exposes the underlying resolver for advanced callers
	// (dump/round-trip, hook authoring).
	ConfigDict() ConfigDict

	// Hooks exposes the HookManager so callers can register additional
	// lifecycle hooks before BuildAll.
	Hooks() HookManager
}
