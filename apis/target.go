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

// ParamSpec describes one formal parameter of a constructible Target, the
// Go stand-in for Python's inspect.signature introspection (spec §4.2,
// §9 "Dynamic target(**params)"): Go carries no runtime default-value
// metadata, so each registered Target supplies this spec by hand (or via
// a small generator) instead of having it derived from reflection.
type ParamSpec struct {
	// Name is the parameter's keyword name.
	Name string
	// Required is true when the parameter has no default and is not
	// variadic; Node validation (spec §4.2) treats an absent Required
	// parameter as fatal unless manual-set recovers it.
	Required bool
}

// Target is a constructible entity resolved either from a Registry short
// name or directly from a dotted qualified path (spec §4.2 from_str /
// from_base_name). It is the Go analogue of "a class, function, or module
// handle resolved from the descriptor string".
type Target struct {
	// QualifiedPath is the dotted "pkg.mod.Type" descriptor this Target
	// was registered under.
	QualifiedPath string

	// IsModule marks a Target that is a plain namespace (not callable);
	// Node validation is always bypassed for these (spec §4.2).
	IsModule bool

	// Raw is the underlying Go value a Class node ($ sigil) returns
	// verbatim: a type descriptor, a constructor function value, or any
	// other handle meaningful to the caller.
	Raw any

	// Params describes the Target's formal parameters for validation.
	// Ignored for Class nodes and IsModule targets (spec §4.2).
	Params []ParamSpec

	// Build constructs an instance by spreading params by name, the Go
	// stand-in for `target(**params)` (spec §4.2 Instantiation). Any
	// error returned here is wrapped as ErrModuleBuild by the caller.
	Build func(params map[string]any) (any, error)
}

// RequiredParams returns the subset of Params that are Required.
func (t Target) RequiredParams() []string {
	out := make([]string, 0, len(t.Params))
	for _, p := range t.Params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// HasParam reports whether name is a declared parameter of t.
func (t Target) HasParam(name string) bool {
	for _, p := range t.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// SymbolTable is the process-wide, string-keyed table of constructible
// Targets. It plays the role Python's dynamic `importlib` plays for
// `from_str`: since Go cannot resolve an arbitrary dotted path to a
// symbol at runtime, a binary that wants its types reachable by
// qualified path must register them here (typically from an init()),
// after which Registry entries and `$field::name`/bare-path references
// can resolve them by string.
type SymbolTable interface {
	// Bind associates qualifiedPath with t. Re-binding the same path to
	// an equal Target is idempotent; re-binding to a different Target is
	// an error.
	Bind(qualifiedPath string, t Target) error
	// Resolve looks up a previously bound Target by qualified path.
	Resolve(qualifiedPath string) (Target, bool)
}
