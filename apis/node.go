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

// Kind is the Node variant tag (spec §3 Node table).
type Kind int

const (
	// KindPlain instantiates a fresh value on every call.
	KindPlain Kind = iota
	// KindClass returns the target itself, never calling it.
	KindClass
	// KindHook instantiates a lifecycle or argument hook.
	KindHook
	// KindIntermediate instantiates fresh each call, like Plain, but may
	// never coincide with a Reused node of the same short name.
	KindIntermediate
	// KindReused instantiates once and caches the result.
	KindReused
	// KindReference resolves a named value from the top-level scope (or
	// an env-var expansion) and returns it verbatim.
	KindReference
)

// String renders the Kind the way its config sigil or field table would
// print it, for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "Plain"
	case KindClass:
		return "Class"
	case KindHook:
		return "Hook"
	case KindIntermediate:
		return "Intermediate"
	case KindReused:
		return "Reused"
	case KindReference:
		return "Reference"
	default:
		return "Unknown"
	}
}

// Priority orders the Kind values for the cache-back-write rule of spec
// §4.3: a use-site may only replace a cached Node with one of strictly
// greater priority. Class (1) and HookNode (1) share a priority band but
// never coincide as the same short name in well-formed configs.
func (k Kind) Priority() int {
	switch k {
	case KindPlain:
		return 0
	case KindClass, KindHook:
		return 1
	case KindIntermediate:
		return 2
	case KindReused:
		return 3
	default:
		return -1
	}
}

// Node owns a target and its pending parameters (spec §3). ModuleWrapper
// holds Nodes by value semantics through this interface; argument hooks
// decorate a Node, so Node itself is kept as a small, composable
// interface rather than a concrete struct — the same shape the teacher
// repo uses for its Strategy chain (apis.Strategy / strategy.*).
type Node interface {
	// Kind returns the variant tag.
	Kind() Kind
	// NoCall reports whether the build phase must return the Node
	// itself rather than calling it (spec §3 _no_call).
	NoCall() bool
	// Params returns the Node's pending parameter map. Callers must not
	// mutate the returned map.
	Params() map[string]any
	// Call instantiates the Node (or returns the cached instance for
	// Reused, or the raw target for Class/Reference). overrides, when
	// non-nil, are merged over Params for this call only.
	Call(overrides map[string]any) (any, error)
}
