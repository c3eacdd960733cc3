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

// ModuleWrapper is a small ordered map from short name to Node that also
// behaves as a callable: calling it calls each contained Node and
// returns either the single result or the list, depending on arity and
// IsDict (spec §3).
type ModuleWrapper struct {
	// Order preserves TOML definition order (spec §5 ordering
	// guarantee).
	Order []string
	// Nodes maps short name to the owned Node.
	Nodes map[string]Node
	// IsDict marks a label->string sigil-map parameter: Call returns
	// map[string]any instead of a slice.
	IsDict bool
}

// Len returns the number of entries.
func (m *ModuleWrapper) Len() int { return len(m.Order) }

// Call invokes every contained Node in Order and returns either the sole
// result (len == 1), a map (IsDict), or an ordered slice. A Node whose
// NoCall reports true is never invoked: the Node itself is substituted
// as that entry's value instead (spec §3 _no_call, §6 __no_call__
// build-phase passthrough).
func (m *ModuleWrapper) Call() (any, error) {
	if m.Len() == 1 {
		n := m.Nodes[m.Order[0]]
		if n.NoCall() {
			return n, nil
		}
		return n.Call(nil)
	}
	if m.IsDict {
		out := make(map[string]any, m.Len())
		for _, name := range m.Order {
			n := m.Nodes[name]
			if n.NoCall() {
				out[name] = n
				continue
			}
			v, err := n.Call(nil)
			if err != nil {
				return nil, err
			}
			out[name] = v
		}
		return out, nil
	}
	out := make([]any, 0, m.Len())
	for _, name := range m.Order {
		n := m.Nodes[name]
		if n.NoCall() {
			out = append(out, n)
			continue
		}
		v, err := n.Call(nil)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ConfigDict is the multi-pass resolver (spec §4.3): it builds, from a raw
// TOML mapping, a graph of typed Nodes with resolved cross-references.
// The raw mapping itself is left unmodified and stays available via Raw.
type ConfigDict interface {
	// Parse performs the resolution, as a placement pass followed by a
	// resolution pass (see package configdict). Parse is idempotent: calling
	// it again on an already-parsed ConfigDict is a no-op that returns
	// nil. If Parse fails, the ConfigDict is left exactly as it was
	// before the call (spec §8 invariant 6).
	Parse() error

	// Parsed reports whether Parse has already completed successfully.
	Parsed() bool

	// Primary returns the built ModuleWrapper for a primary field name,
	// only valid after Parse.
	Primary(field string) (*ModuleWrapper, bool)

	// PrimaryFields returns the workspace-declared primary field names,
	// in declared order.
	PrimaryFields() []string

	// Auxiliary returns the opaque, non-primary top-level values
	// surfaced to the caller (spec §4.5 step 5).
	Auxiliary() map[string]any

	// Raw exposes the underlying mutable tree for hook/lifecycle code
	// that needs to patch pending parameters (spec §4.4 "Hooks may
	// mutate module_dict and isolated_dict").
	Raw() map[string]any
}
