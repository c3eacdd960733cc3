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

// Package node implements apis.Node: the tagged-variant wrapper around a
// resolved apis.Target that ConfigDict builds its graph out of.
package node

import (
	"fmt"
	"sync"

	"excore.dev/excore/apis"
	"excore.dev/excore/literal"
)

// sourced is implemented by every concrete node type so FromNode can
// retag a node without re-resolving its target.
type sourced interface {
	apis.Node
	target() apis.Target
	symtab() apis.SymbolTable
	config() apis.Config
}

// base carries the fields every non-reference node shares.
type base struct {
	t       apis.Target
	params  map[string]any
	symbols apis.SymbolTable
	cfg     apis.Config
}

func (b base) target() apis.Target     { return b.t }
func (b base) symtab() apis.SymbolTable { return b.symbols }
func (b base) config() apis.Config     { return b.cfg }
func (b base) Params() map[string]any  { return b.params }

// FromStr resolves qualifiedPath through symtab and wraps it as a Node of
// the given kind (spec §4.2 from_str).
func FromStr(qualifiedPath string, params map[string]any, kind apis.Kind, symtab apis.SymbolTable, cfg apis.Config) (apis.Node, error) {
	t, ok := symtab.Resolve(qualifiedPath)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apis.ErrStrToClass, qualifiedPath)
	}
	return newNode(t, params, kind, symtab, cfg)
}

// FromBaseName resolves shortName through registryName in pool, then
// delegates to FromStr (spec §4.2 from_base_name).
func FromBaseName(pool apis.Pool, registryName, shortName string, params map[string]any, kind apis.Kind, symtab apis.SymbolTable, cfg apis.Config) (apis.Node, error) {
	reg, ok := pool.Lookup(registryName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown registry %q", apis.ErrConfigParse, registryName)
	}
	path, ok := reg.Get(shortName)
	if !ok {
		return nil, fmt.Errorf("%w: %q not registered in %q", apis.ErrStrToClass, shortName, registryName)
	}
	return FromStr(path, params, kind, symtab, cfg)
}

// FromNode cheaply retags other as kind, preserving its target, parameters
// and NoCall-relevant state (spec §4.2 from_node). It is used by the
// resolver's type-conversion rule when a use-site's sigil requires a
// different Kind than the one already cached.
func FromNode(other apis.Node, kind apis.Kind) (apis.Node, error) {
	if nc, ok := other.(*noCallNode); ok {
		inner, err := FromNode(nc.inner, kind)
		if err != nil {
			return nil, err
		}
		return WithNoCall(inner), nil
	}
	s, ok := other.(sourced)
	if !ok {
		return nil, fmt.Errorf("%w: node of kind %s cannot be retagged", apis.ErrConfigParse, other.Kind())
	}
	return newNode(s.target(), other.Params(), kind, s.symtab(), s.config())
}

func newNode(t apis.Target, params map[string]any, kind apis.Kind, symtab apis.SymbolTable, cfg apis.Config) (apis.Node, error) {
	b := base{t: t, params: cloneParams(params), symbols: symtab, cfg: cfg}
	switch kind {
	case apis.KindClass:
		return &classNode{base: b}, nil
	case apis.KindPlain:
		return &plainNode{base: b}, nil
	case apis.KindIntermediate:
		return &intermediateNode{base: b}, nil
	case apis.KindReused:
		return &reusedNode{base: b}, nil
	case apis.KindHook:
		return &hookNode{base: b}, nil
	default:
		return nil, fmt.Errorf("%w: kind %s is not constructible via newNode", apis.ErrConfigParse, kind)
	}
}

// Update merges params over the Node's existing parameters, right-biased:
// "apply defaults" semantics (spec §4.2 update). It is only meaningful for
// Plain/Intermediate/Reused nodes.
func Update(n apis.Node, params map[string]any) (apis.Node, error) {
	s, ok := n.(sourced)
	if !ok {
		return nil, fmt.Errorf("%w: node of kind %s does not support update", apis.ErrConfigParse, n.Kind())
	}
	merged := cloneParams(n.Params())
	for k, v := range params {
		merged[k] = v
	}
	return newNode(s.target(), merged, n.Kind(), s.symtab(), s.config())
}

// ReverseUpdate merges the other node's params over n's, left-biased:
// "override defaults" semantics (spec §4.2 reverse_update).
func ReverseUpdate(n apis.Node, other apis.Node) (apis.Node, error) {
	s, ok := n.(sourced)
	if !ok {
		return nil, fmt.Errorf("%w: node of kind %s does not support reverse_update", apis.ErrConfigParse, n.Kind())
	}
	merged := cloneParams(other.Params())
	for k, v := range n.Params() {
		merged[k] = v
	}
	return newNode(s.target(), merged, n.Kind(), s.symtab(), s.config())
}

func cloneParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

// plainNode instantiates a fresh value on every Call (spec §3 Plain).
type plainNode struct{ base }

func (n *plainNode) Kind() apis.Kind { return apis.KindPlain }
func (n *plainNode) NoCall() bool    { return false }
func (n *plainNode) Call(overrides map[string]any) (any, error) {
	return build(n.t, n.params, overrides, n.cfg)
}

// intermediateNode instantiates fresh each call, like Plain, but is
// mutually exclusive with a Reused node sharing the same short name (spec
// §3 Intermediate, §4.3 pass 3 type-conversion rule).
type intermediateNode struct{ base }

func (n *intermediateNode) Kind() apis.Kind { return apis.KindIntermediate }
func (n *intermediateNode) NoCall() bool    { return false }
func (n *intermediateNode) Call(overrides map[string]any) (any, error) {
	return build(n.t, n.params, overrides, n.cfg)
}

// reusedNode instantiates once and caches the result, sharing the built
// instance across every reference (spec §3 Reused).
type reusedNode struct {
	base
	once sync.Once
	val  any
	err  error
}

func (n *reusedNode) Kind() apis.Kind { return apis.KindReused }
func (n *reusedNode) NoCall() bool    { return false }
func (n *reusedNode) Call(overrides map[string]any) (any, error) {
	n.once.Do(func() {
		n.val, n.err = build(n.t, n.params, overrides, n.cfg)
	})
	return n.val, n.err
}

// classNode returns the target itself, never calling it (spec §3 Class).
type classNode struct{ base }

func (n *classNode) Kind() apis.Kind                    { return apis.KindClass }
func (n *classNode) NoCall() bool                       { return true }
func (n *classNode) Call(_ map[string]any) (any, error) { return n.t.Raw, nil }

// hookNode instantiates a lifecycle or argument hook the same way a Plain
// node instantiates any other target; it exists as a distinct Kind purely
// so the cache-priority rule of spec §4.3 can tell a hook target apart
// from an ordinary Class node sharing the same priority band.
type hookNode struct{ base }

func (n *hookNode) Kind() apis.Kind { return apis.KindHook }
func (n *hookNode) NoCall() bool    { return false }
func (n *hookNode) Call(overrides map[string]any) (any, error) {
	return build(n.t, n.params, overrides, n.cfg)
}

// referenceNode resolves a named value from the top-level scope (or an
// env-var interpolation already expanded by its constructor) and returns
// it verbatim on every Call (spec §3 Reference).
type referenceNode struct {
	name string
	val  any
}

// NewReference wraps an already-resolved value as a Reference Node. The
// resolver looks val up (from the top-level scope or an env-var
// expansion) before calling this constructor; Reference itself does no
// lookup, matching the teacher's preference for small, side-effect-free
// wrapper types.
func NewReference(name string, val any) apis.Node {
	return &referenceNode{name: name, val: val}
}

func (n *referenceNode) Kind() apis.Kind             { return apis.KindReference }
func (n *referenceNode) NoCall() bool                { return true }
func (n *referenceNode) Params() map[string]any      { return nil }
func (n *referenceNode) Call(_ map[string]any) (any, error) {
	return n.val, nil
}

// noCallNode wraps another Node, forcing NoCall to report true regardless
// of the wrapped node's own Kind, so a declared child's "__no_call__ =
// true" directive (spec §6, §3 invariant iii) applies uniformly to any
// Kind, not just the intrinsically-passthrough Class/Reference nodes.
// Kind, Params and Call all delegate to the wrapped node unchanged.
type noCallNode struct {
	inner apis.Node
}

// WithNoCall wraps n so the build phase treats it as passthrough. A node
// that is already NoCall is returned unwrapped.
func WithNoCall(n apis.Node) apis.Node {
	if n.NoCall() {
		return n
	}
	return &noCallNode{inner: n}
}

func (n *noCallNode) Kind() apis.Kind        { return n.inner.Kind() }
func (n *noCallNode) NoCall() bool           { return true }
func (n *noCallNode) Params() map[string]any { return n.inner.Params() }
func (n *noCallNode) Call(overrides map[string]any) (any, error) {
	return n.inner.Call(overrides)
}

func build(t apis.Target, params, overrides map[string]any, cfg apis.Config) (any, error) {
	if t.IsModule {
		return t.Raw, nil
	}

	merged := cloneParams(params)
	for k, v := range overrides {
		merged[k] = v
	}

	prompted, err := validate(t, merged, cfg)
	if err != nil {
		return nil, err
	}
	for k, v := range prompted {
		merged[k] = v
	}

	if t.Build == nil {
		return nil, fmt.Errorf("%w: target %q has no builder", apis.ErrModuleBuild, t.QualifiedPath)
	}

	resolved, err := resolveNestedNodes(merged)
	if err != nil {
		return nil, err
	}

	out, err := callBuild(t, resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %s(%v): %v", apis.ErrModuleBuild, t.QualifiedPath, resolved, err)
	}
	return out, nil
}

// resolveNestedNodes walks a parameter map produced by the resolver's
// sigil pass and calls any embedded Node (or list/map of Nodes) so the
// target ultimately receives concrete values (spec §4.2 Instantiation
// spreads the *built* parameter map). Class and Reference nodes are called
// too, yielding the raw target or the referenced value; the one Node handle
// passed through uncalled is a child declared with "__no_call__ = true".
func resolveNestedNodes(params map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for k, v := range params {
		resolved, err := resolveValue(v)
		if err != nil {
			return nil, fmt.Errorf("resolving parameter %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

func resolveValue(v any) (any, error) {
	switch t := v.(type) {
	case apis.Node:
		if t.NoCall() && t.Kind() != apis.KindClass && t.Kind() != apis.KindReference {
			return t, nil
		}
		return t.Call(nil)
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			r, err := resolveValue(elem)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			r, err := resolveValue(elem)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// callBuild isolates the Target.Build invocation so a panicking
// constructor is converted into an error instead of crashing the caller
// (spec §4.2 Instantiation, "wrapping any exception as ModuleBuild").
func callBuild(t apis.Target, params map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Build(params)
}

// validate inspects t's required parameters (spec §4.2 Validation) against
// the already-merged parameter map, returning any values recovered by
// prompting so the caller can fold them into the call without mutating the
// node's cached parameters. Validation is always bypassed for Class nodes
// and module targets.
func validate(t apis.Target, merged map[string]any, cfg apis.Config) (map[string]any, error) {
	if !cfg.Validate || t.IsModule {
		return nil, nil
	}
	var missing []string
	for _, name := range t.RequiredParams() {
		if _, ok := merged[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	if cfg.ManualSet && cfg.Prompter != nil {
		return promptMissing(t, missing, cfg)
	}
	return nil, fmt.Errorf("%w: %s missing required parameters %v", apis.ErrModuleValidate, t.QualifiedPath, missing)
}

// promptMissing fills in missing required parameters by prompting, parsing
// each reply with the literal parser named by spec §4.5. A nil Prompter
// never reaches here; validate already short-circuits to the error path
// when cfg.Prompter is nil, so manual-set never blocks implicitly on an
// assumed TTY.
func promptMissing(t apis.Target, missing []string, cfg apis.Config) (map[string]any, error) {
	out := make(map[string]any, len(missing))
	for _, name := range missing {
		reply, err := cfg.Prompter.Prompt(t.QualifiedPath, name)
		if err != nil {
			return nil, fmt.Errorf("%w: prompting for %s.%s: %v", apis.ErrModuleValidate, t.QualifiedPath, name, err)
		}
		v, err := literal.Parse(reply)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing reply for %s.%s: %v", apis.ErrModuleValidate, t.QualifiedPath, name, err)
		}
		out[name] = v
	}
	return out, nil
}
