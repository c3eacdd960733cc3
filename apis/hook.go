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

// Stage names a lifecycle hook's firing point (spec §4.4).
type Stage string

const (
	// StagePreBuild fires once, before any primary field is built.
	StagePreBuild Stage = "pre_build"
	// StageEveryBuild fires once per primary field, before that field's
	// ModuleWrapper is called.
	StageEveryBuild Stage = "every_build"
	// StageAfterBuild fires once, after every primary field is built.
	StageAfterBuild Stage = "after_build"
)

// LifecycleHook is a global callback fired around the build phase,
// bounded by a lifespan and a call interval (spec §4.4).
type LifecycleHook interface {
	// Stage returns the firing point.
	Stage() Stage
	// Lifespan returns the maximum number of invocations before the
	// hook retires. Must be positive.
	Lifespan() int
	// CallInterval returns the stage-counter multiple at which the hook
	// fires. Must be positive.
	CallInterval() int
	// Run executes the hook against the live module/isolated trees.
	Run(moduleDict, isolatedDict map[string]any) error
}

// ArgumentHook wraps a single Node (spec §4.4). The abstract contract:
// Call(params) -> value, invoked only when Enabled; disabled hooks pass
// through to the wrapped Node.
type ArgumentHook interface {
	Node
	// Enabled reports whether the hook intercepts calls to the wrapped
	// Node. Disabled hooks behave exactly like the wrapped Node.
	Enabled() bool
	// Wrapped returns the decorated Node.
	Wrapped() Node
}

// HookManager owns the map from stage name to ordered hook list, plus a
// per-stage call counter (spec §4.4).
type HookManager interface {
	// Register adds h to its declared Stage. Register validates h's
	// Lifespan/CallInterval and returns ErrHookManagerBuild (aggregating
	// every violation found) on invalid input.
	Register(h LifecycleHook) error
	// Fire invokes every live hook at stage in registration order,
	// decrements each one's remaining lifespan, and prunes any hook that
	// has exhausted it. Hooks whose CallInterval does not divide the
	// stage's running counter are skipped (but still counted).
	Fire(stage Stage, moduleDict, isolatedDict map[string]any) error
}
