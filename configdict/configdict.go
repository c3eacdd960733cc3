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

// Package configdict implements apis.ConfigDict: the multi-pass resolver
// that rewrites a raw TOML-decoded mapping into a graph of apis.Node
// values with every sigil-prefixed cross-reference resolved (spec §4.3).
//
// The five textual passes of the specification are folded here into two:
// a placement pass that indexes every primary/registry/scratchpad
// child's declaration (short name, owning field, raw parameter table)
// without building anything, and a resolution pass that builds each
// child depth-first, resolving its own sigil-prefixed parameters (name
// lookup, postfix decorators, priority-based retagging) as part of
// constructing its Node. Because placement happens for every field up
// front, a sigil reference to a child declared under a field visited
// later in declaration order is built on demand, with its own declared
// parameters, rather than falling back to a bare parameterless lookup —
// cross-field reference resolution is therefore independent of the
// order primary fields are declared in. The externally observable
// result — a fully resolved graph with every invariant of §4.3 enforced
// — is the same regardless of field order; only the internal bookkeeping
// shape differs from the prose description.
package configdict

import (
	"fmt"
	"sort"
	"sync"

	"excore.dev/excore/apis"
	"excore.dev/excore/node"
)

// childDecl is a config-tree child's declaration, captured by the
// placement pass before any sigil reference is resolved, so a forward
// reference can build it on demand with its own parameters (spec §4.3
// name lookup rule 3) instead of a bare parameterless module. Exactly
// one of registry/path is set: registry children resolve via
// node.FromBaseName, already-matched scratchpad children (whose short
// name directly matched a Pool.Find result at placement time) resolve
// via node.FromStr against the path found then.
type childDecl struct {
	field     string
	rawParams any
	registry  string
	path      string
}

// resolver is the apis.ConfigDict implementation.
type resolver struct {
	raw    map[string]any
	ws     apis.Workspace
	pool   apis.Pool
	symtab apis.SymbolTable
	cfg    apis.Config

	mu     sync.Mutex
	parsed bool

	// binding holds the single current Node for every short name that has
	// been resolved so far, across primary fields, registry hoists and
	// scratchpads alike. Pass 3's priority/type-conversion rule mutates an
	// entry in place (by replacing the map value) rather than ever
	// removing it.
	binding map[string]apis.Node

	// fieldOf records, for ambiguity detection (spec §4.3 name lookup rule
	// 4), every field name a short name was declared a child of.
	fieldOf map[string][]string

	// fieldBindings supports the explicit "$field::name" qualifier (name
	// lookup rule 1): the current Node for name, scoped to one field.
	fieldBindings map[string]map[string]apis.Node

	// declared indexes every childDecl found by the placement pass, by
	// short name and then by owning field, so name lookup (and the
	// sequential field-by-field construction below) can find and build a
	// not-yet-built child regardless of which field declared it.
	declared map[string]map[string]childDecl

	// building guards buildDeclaredChild against infinite recursion when
	// two declared children reference each other, keyed by
	// "field\x00name".
	building map[string]bool

	primaries map[string]*apis.ModuleWrapper
	auxiliary map[string]any
}

// New constructs a ConfigDict over raw (typically the result of decoding
// a workspace's TOML source), ready for Parse.
func New(raw map[string]any, ws apis.Workspace, pool apis.Pool, symtab apis.SymbolTable, cfg apis.Config) apis.ConfigDict {
	return &resolver{
		raw:           raw,
		ws:            ws,
		pool:          pool,
		symtab:        symtab,
		cfg:           cfg,
		binding:       make(map[string]apis.Node),
		fieldOf:       make(map[string][]string),
		fieldBindings: make(map[string]map[string]apis.Node),
		declared:      make(map[string]map[string]childDecl),
		building:      make(map[string]bool),
		primaries:     make(map[string]*apis.ModuleWrapper),
		auxiliary:     make(map[string]any),
	}
}

func (r *resolver) Parsed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.parsed
}

// Parse performs the rewrite described by spec §4.3. It is idempotent and
// leaves the ConfigDict untouched on failure (spec §8 invariant 6): all
// mutation happens against fresh maps that are only swapped into the
// receiver once every pass has succeeded.
func (r *resolver) Parse() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.parsed {
		return nil
	}

	work := &resolver{
		raw:           r.raw,
		ws:            r.ws,
		pool:          r.pool,
		symtab:        r.symtab,
		cfg:           r.cfg,
		binding:       make(map[string]apis.Node),
		fieldOf:       make(map[string][]string),
		fieldBindings: make(map[string]map[string]apis.Node),
		declared:      make(map[string]map[string]childDecl),
		building:      make(map[string]bool),
		primaries:     make(map[string]*apis.ModuleWrapper),
		auxiliary:     make(map[string]any),
	}

	primaryFields := make(map[string]bool, len(r.ws.PrimaryFields))
	for _, f := range r.ws.PrimaryFields {
		primaryFields[f] = true
	}

	if err := work.placeChildren(primaryFields); err != nil {
		return err
	}

	for _, field := range r.ws.PrimaryFields {
		if err := work.buildPrimaryField(field); err != nil {
			return err
		}
	}

	for _, key := range sortedKeys(r.raw) {
		if primaryFields[key] {
			continue
		}
		if err := work.buildNonPrimaryRoot(key); err != nil {
			return err
		}
	}

	r.binding = work.binding
	r.fieldOf = work.fieldOf
	r.primaries = work.primaries
	r.auxiliary = work.auxiliary
	r.parsed = true
	return nil
}

// placeChildren indexes every primary-field, registry-root and
// registered-scratchpad child into r.declared before any sigil reference
// is resolved, so buildDeclaredChild can build a child referenced
// forward — from a field visited earlier in Parse's sequential
// construction order — with its own declared parameters (spec §4.3 name
// lookup rule 3), rather than the bare parameterless module a reference
// to an as-yet-unbuilt name would otherwise fall back to.
func (r *resolver) placeChildren(primaryFields map[string]bool) error {
	for _, field := range r.ws.PrimaryFields {
		rawField, ok := r.raw[field]
		if !ok {
			continue
		}
		table, ok := rawField.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: primary field %q must be a table", apis.ErrConfigParse, field)
		}

		baseRegistry := field
		if _, ok := r.pool.Lookup(field); !ok {
			mapped, ok := r.ws.PrimaryToRegistry[field]
			if !ok {
				return fmt.Errorf("%w: primary field %q is not a registry and has no primary_to_registry mapping", apis.ErrConfigParse, field)
			}
			baseRegistry = mapped
		}

		for _, shortName := range sortedKeys(table) {
			r.addDeclared(shortName, childDecl{field: field, rawParams: table[shortName], registry: baseRegistry})
		}
	}

	for _, key := range sortedKeys(r.raw) {
		if primaryFields[key] {
			continue
		}
		table, isTable := r.raw[key].(map[string]any)
		if !isTable {
			continue
		}

		if _, isRegistry := r.pool.Lookup(key); isRegistry {
			for _, shortName := range sortedKeys(table) {
				r.addDeclared(shortName, childDecl{field: key, rawParams: table[shortName], registry: key})
			}
			continue
		}

		if r.allChildrenRegistered(table) {
			for _, shortName := range sortedKeys(table) {
				path, _, _ := r.pool.Find(shortName)
				r.addDeclared(shortName, childDecl{field: key, rawParams: table[shortName], path: path})
			}
		}
	}
	return nil
}

func (r *resolver) addDeclared(name string, decl childDecl) {
	if r.declared[name] == nil {
		r.declared[name] = make(map[string]childDecl)
	}
	r.declared[name][decl.field] = decl
}

// buildPrimaryField implements pass 1 for one declared primary field
// (spec §4.3 pass 1).
func (r *resolver) buildPrimaryField(field string) error {
	rawField, ok := r.raw[field]
	if !ok {
		return nil
	}
	table, ok := rawField.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: primary field %q must be a table", apis.ErrConfigParse, field)
	}

	wrapper := &apis.ModuleWrapper{Nodes: make(map[string]apis.Node)}
	for _, shortName := range sortedKeys(table) {
		n, err := r.buildDeclaredChild(shortName, field)
		if err != nil {
			return err
		}
		wrapper.Order = append(wrapper.Order, shortName)
		wrapper.Nodes[shortName] = n
	}
	r.primaries[field] = wrapper
	return nil
}

// buildNonPrimaryRoot implements pass 2 for one non-primary top-level key
// (spec §4.3 pass 2).
func (r *resolver) buildNonPrimaryRoot(key string) error {
	value := r.raw[key]
	table, isTable := value.(map[string]any)

	if _, isRegistry := r.pool.Lookup(key); isRegistry && isTable {
		for _, shortName := range sortedKeys(table) {
			if _, err := r.buildDeclaredChild(shortName, key); err != nil {
				return err
			}
		}
		return nil
	}

	if _, _, ok := r.pool.Find(key); ok {
		n, err := r.buildImplicit(key, apis.KindPlain, key)
		if err != nil {
			return err
		}
		r.bind(key, n, key)
		return nil
	}

	if isTable && r.allChildrenRegistered(table) {
		for _, shortName := range sortedKeys(table) {
			if _, err := r.buildDeclaredChild(shortName, key); err != nil {
				return err
			}
		}
		return nil
	}

	r.auxiliary[key] = value
	return nil
}

func (r *resolver) allChildrenRegistered(table map[string]any) bool {
	if len(table) == 0 {
		return false
	}
	for name := range table {
		if _, _, ok := r.pool.Find(name); !ok {
			return false
		}
	}
	return true
}

// buildDeclaredChild builds (if not already bound) the child name
// declared under field, recursively resolving every sigil-prefixed key
// of its parameter table first (pass 3) and recording field membership
// for ambiguity detection. It is memoized per (field, name) so the
// sequential construction pass and a forward sigil reference that
// triggered an earlier build both observe exactly one Node.
func (r *resolver) buildDeclaredChild(name, field string) (apis.Node, error) {
	if n, ok := r.fieldBindings[field][name]; ok {
		return n, nil
	}
	decl, ok := r.declared[name][field]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not declared under field %q", apis.ErrConfigParse, name, field)
	}

	guard := field + "\x00" + name
	if r.building[guard] {
		return nil, fmt.Errorf("%w: circular reference building %q in field %q", apis.ErrConfigParse, name, field)
	}
	r.building[guard] = true
	defer delete(r.building, guard)

	paramsTable, _ := decl.rawParams.(map[string]any)
	paramsTable, noCall, err := extractNoCall(paramsTable)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, err)
	}

	resolvedParams, err := r.resolveParams(paramsTable, field)
	if err != nil {
		return nil, fmt.Errorf("resolving parameters for %q: %w", name, err)
	}

	var n apis.Node
	if decl.registry != "" {
		n, err = node.FromBaseName(r.pool, decl.registry, name, resolvedParams, apis.KindPlain, r.symtab, r.cfg)
	} else {
		n, err = node.FromStr(decl.path, resolvedParams, apis.KindPlain, r.symtab, r.cfg)
	}
	if err != nil {
		return nil, err
	}
	if noCall {
		n = node.WithNoCall(n)
	}
	r.bind(name, n, field)
	return n, nil
}

// buildImplicit resolves name as an implicit module (spec §4.3 name
// lookup rule 5): no declared parameters, resolved purely via Pool.Find.
func (r *resolver) buildImplicit(name string, kind apis.Kind, field string) (apis.Node, error) {
	return r.buildImplicitWithParams(name, kind, nil, field)
}

func (r *resolver) buildImplicitWithParams(name string, kind apis.Kind, rawParams map[string]any, field string) (apis.Node, error) {
	path, _, ok := r.pool.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown reference %q", apis.ErrConfigParse, name)
	}
	resolvedParams, err := r.resolveParams(rawParams, field)
	if err != nil {
		return nil, err
	}
	return node.FromStr(path, resolvedParams, kind, r.symtab, r.cfg)
}

// bind records n as the current Node for shortName and tracks field
// membership for the ambiguity check of name lookup rule 4.
func (r *resolver) bind(shortName string, n apis.Node, field string) {
	r.binding[shortName] = n
	if r.fieldBindings[field] == nil {
		r.fieldBindings[field] = make(map[string]apis.Node)
	}
	r.fieldBindings[field][shortName] = n

	for _, f := range r.fieldOf[shortName] {
		if f == field {
			return
		}
	}
	r.fieldOf[shortName] = append(r.fieldOf[shortName], field)
}

func (r *resolver) Primary(field string) (*apis.ModuleWrapper, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.primaries[field]
	return w, ok
}

func (r *resolver) PrimaryFields() []string {
	return append([]string(nil), r.ws.PrimaryFields...)
}

func (r *resolver) Auxiliary() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]any, len(r.auxiliary))
	for k, v := range r.auxiliary {
		out[k] = v
	}
	return out
}

func (r *resolver) Raw() map[string]any {
	return r.raw
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
