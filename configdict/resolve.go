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

package configdict

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"excore.dev/excore/apis"
	"excore.dev/excore/hook"
	"excore.dev/excore/node"
	"excore.dev/excore/sigil"
)

// noCallKey is the literal declared-child parameter that marks a Node as
// a build-phase passthrough (spec §6 __no_call__): the build phase must
// return the Node itself rather than calling it. It is stripped from the
// parameter table before resolution; the target it names never sees it
// as a constructor argument.
const noCallKey = "__no_call__"

// extractNoCall removes noCallKey from table (if present), returning the
// remaining table and whether the flag was set. table is not mutated; a
// copy is returned so the caller's own rawParams map stays untouched.
func extractNoCall(table map[string]any) (map[string]any, bool, error) {
	raw, ok := table[noCallKey]
	if !ok {
		return table, false, nil
	}
	noCall, ok := raw.(bool)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s must be a bool, got %T", apis.ErrConfigParse, noCallKey, raw)
	}
	out := make(map[string]any, len(table)-1)
	for k, v := range table {
		if k == noCallKey {
			continue
		}
		out[k] = v
	}
	return out, noCall, nil
}

// resolveParams rewrites every sigil-prefixed key of a parameter table
// (spec §4.3 pass 3), in sorted key order for determinism. Unprefixed
// keys pass their value through unchanged: they carry ordinary literal
// data, not a cross-reference.
func (r *resolver) resolveParams(table map[string]any, field string) (map[string]any, error) {
	out := make(map[string]any, len(table))
	for _, key := range sortedKeys(table) {
		val := table[key]
		s, paramName, ok := sigil.Split(key)
		if !ok {
			out[key] = val
			continue
		}

		if sigil.IsReference(s) {
			resolved, err := r.resolveEach(val, r.resolveReference)
			if err != nil {
				return nil, fmt.Errorf("resolving %q: %w", key, err)
			}
			out[paramName] = resolved
			continue
		}

		kind, registered := sigil.KindFor(s)
		if !registered {
			return nil, fmt.Errorf("%w: unregistered sigil %q on key %q", apis.ErrConfigParse, string(s), key)
		}

		resolved, err := r.resolveEach(val, func(raw string) (apis.Node, error) {
			return r.resolveSigilLeaf(raw, kind, field)
		})
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", key, err)
		}
		out[paramName] = resolved
	}
	return out, nil
}

// resolveEach fans a sigil value out across its three legal shapes: a
// bare string, a list of strings (multi-valued parameter), or a
// label->string table (the "sigil-map" parameter of spec §4.3 whose
// ModuleWrapper is built with IsDict).
func (r *resolver) resolveEach(val any, leaf func(string) (apis.Node, error)) (any, error) {
	switch v := val.(type) {
	case string:
		n, err := leaf(v)
		if err != nil {
			return nil, err
		}
		return n, nil
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected string element in sigil list, got %T", apis.ErrConfigParse, elem)
			}
			n, err := leaf(s)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for _, label := range sortedKeys(v) {
			s, ok := v[label].(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected string value in sigil map, got %T", apis.ErrConfigParse, v[label])
			}
			n, err := leaf(s)
			if err != nil {
				return nil, err
			}
			out[label] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported sigil value type %T", apis.ErrConfigParse, val)
	}
}

// resolveReference implements the "&" Reference sigil: a ${VAR}
// environment expansion, or a lookup of a raw (non-registry) top-level
// value, returned verbatim via node.NewReference (spec §3 Reference row).
func (r *resolver) resolveReference(raw string) (apis.Node, error) {
	if strings.HasPrefix(raw, "${") && strings.HasSuffix(raw, "}") {
		envName := raw[2 : len(raw)-1]
		val, ok := os.LookupEnv(envName)
		if !ok {
			return nil, fmt.Errorf("%w: %q", apis.ErrEnvVarParse, envName)
		}
		return node.NewReference(envName, val), nil
	}
	if v, ok := r.raw[raw]; ok {
		return node.NewReference(raw, v), nil
	}
	if n, ok := r.binding[raw]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("%w: unresolvable top-level reference %q", apis.ErrConfigParse, raw)
}

// resolveSigilLeaf resolves one "!"/"@"/"$" sigil value: an optional
// "$field::name" explicit qualifier, a base name resolved by the rules
// of spec §4.3 pass 3, a priority-gated Kind conversion, and its
// postfix-decorator chain, applied in that order.
func (r *resolver) resolveSigilLeaf(raw string, kind apis.Kind, field string) (apis.Node, error) {
	qualField, rest, qualified := sigil.ParseFieldQualifier(raw)
	lookupField := field
	if qualified {
		lookupField = qualField
	}

	chain, err := sigil.ParseChain(rest)
	if err != nil {
		return nil, err
	}

	n, name, err := r.resolveName(lookupField, chain.Base, qualified)
	if err != nil {
		return nil, err
	}

	converted, err := r.convertPriority(name, n, kind)
	if err != nil {
		return nil, err
	}

	return applyDecorators(converted, chain.Decorators)
}

// ambiguousFields returns every field that has bound or will ever declare
// name, for the ambiguity check of name lookup rule 4. It unions the
// fields a Node has actually been built under so far (r.fieldOf) with
// the fields the placement pass found a declaration under (r.declared),
// so ambiguity is detected up front regardless of which field a
// reference to name happens to be resolved from first, not only once
// both fields' children have actually been built.
func (r *resolver) ambiguousFields(name string) ([]string, bool) {
	set := make(map[string]bool)
	for _, f := range r.fieldOf[name] {
		set[f] = true
	}
	for f := range r.declared[name] {
		set[f] = true
	}
	if len(set) <= 1 {
		return nil, false
	}
	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields, true
}

// resolveName implements the name-lookup rules of spec §4.3 pass 3:
//
//  1. an explicit "$field::name" qualifier binds to that field's scope
//     only, building the declared child on demand if it has not been
//     built yet;
//  2. otherwise, a name already bound anywhere resolves to its current
//     Node, unless it was declared under more than one field, which is
//     an ambiguity error;
//  3. otherwise, a name declared (but not yet built) under exactly one
//     field is built on demand with its own declared parameters,
//     regardless of whether that field has been visited yet in Parse's
//     sequential construction order;
//  4. otherwise, a name matching a registered target is built as a
//     fresh, parameterless implicit module and bound under the calling
//     field.
func (r *resolver) resolveName(qualField, name string, qualified bool) (apis.Node, string, error) {
	if qualified {
		if n, ok := r.fieldBindings[qualField][name]; ok {
			return n, name, nil
		}
		if _, ok := r.declared[name][qualField]; ok {
			n, err := r.buildDeclaredChild(name, qualField)
			if err != nil {
				return nil, name, err
			}
			return n, name, nil
		}
		return nil, name, fmt.Errorf("%w: %q not found in field %q", apis.ErrConfigParse, name, qualField)
	}

	if n, ok := r.binding[name]; ok {
		if fields, ambiguous := r.ambiguousFields(name); ambiguous {
			return nil, name, fmt.Errorf("%w: %q is ambiguous across fields %v, qualify with \"$field::%s\"", apis.ErrConfigParse, name, fields, name)
		}
		return n, name, nil
	}

	if fields, ambiguous := r.ambiguousFields(name); ambiguous {
		return nil, name, fmt.Errorf("%w: %q is ambiguous across fields %v, qualify with \"$field::%s\"", apis.ErrConfigParse, name, fields, name)
	}

	if byField, ok := r.declared[name]; ok {
		for field := range byField {
			n, err := r.buildDeclaredChild(name, field)
			if err != nil {
				return nil, name, err
			}
			return n, name, nil
		}
	}

	if path, _, ok := r.pool.Find(name); ok {
		n, err := node.FromStr(path, nil, apis.KindPlain, r.symtab, r.cfg)
		if err != nil {
			return nil, name, err
		}
		r.bind(name, n, qualField)
		return n, name, nil
	}

	return nil, name, fmt.Errorf("%w: unresolvable reference %q", apis.ErrConfigParse, name)
}

// convertPriority applies the cache-back-write rule of spec §4.3: a
// use-site may retag a previously bound Node to a higher-priority Kind,
// rebinding the conversion so later lookups of the same name observe it.
// Reused and Intermediate never coincide as the same short name.
func (r *resolver) convertPriority(name string, n apis.Node, want apis.Kind) (apis.Node, error) {
	if n.Kind() == want {
		return n, nil
	}
	if (n.Kind() == apis.KindReused && want == apis.KindIntermediate) ||
		(n.Kind() == apis.KindIntermediate && want == apis.KindReused) {
		return nil, fmt.Errorf("%w: %q is used as both Reused and Intermediate", apis.ErrConfigParse, name)
	}
	if want.Priority() <= n.Kind().Priority() {
		return n, nil
	}
	converted, err := node.FromNode(n, want)
	if err != nil {
		return nil, fmt.Errorf("%w: converting %q to %s: %v", apis.ErrConfigParse, name, want, err)
	}
	r.rebind(name, converted)
	return converted, nil
}

// rebind overwrites every binding of name, flat and per-field, with n: the
// effect of the priority conversion rule is visible to every later
// reference to the same short name, not just the use-site that triggered
// it.
func (r *resolver) rebind(name string, n apis.Node) {
	r.binding[name] = n
	for _, f := range r.fieldOf[name] {
		if r.fieldBindings[f] != nil {
			r.fieldBindings[f][name] = n
		}
	}
}

// applyDecorators wraps n with the postfix-decorator chain parsed from a
// sigil value: ".attr"/".attr()" attribute getters and "@name" registered
// argument hooks, applied left to right (spec §4.3/§4.4).
func applyDecorators(n apis.Node, chain []sigil.Decorator) (apis.Node, error) {
	for _, d := range chain {
		switch d.Kind {
		case sigil.DecoratorAttr:
			n = hook.NewAttrHook(n, []sigil.Decorator{d}, true)
		case sigil.DecoratorHook:
			fn, ok := hook.ResolveArgumentHook(d.Name)
			if !ok {
				return nil, fmt.Errorf("%w: unregistered argument hook %q", apis.ErrHookBuild, d.Name)
			}
			n = hook.NewRegisteredHook(n, fn, true)
		}
	}
	return n, nil
}
