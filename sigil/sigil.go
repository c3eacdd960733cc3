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

// Package sigil implements the fixed-but-extensible sigil table and the
// postfix-decorator grammar ConfigDict's parameter-resolution pass uses to
// rewrite sigil-prefixed keys (spec §4.3 pass 3).
package sigil

import (
	"fmt"
	"strings"
	"sync"

	"excore.dev/excore/apis"
)

const (
	// Intermediate marks a parameter key whose value names a fresh
	// instance per use.
	Intermediate byte = '!'
	// Reused marks a parameter key whose value names a shared instance.
	Reused byte = '@'
	// Class marks a parameter key whose value names the class/function
	// itself, never called.
	Class byte = '$'
	// Reference marks a parameter key whose value is a top-level name (or
	// an env-var interpolation of ${VAR}).
	Reference byte = '&'
)

// defaults maps three of the four built-in sigils (Intermediate, Reused,
// Class) to the Kind a node takes when built from them. Reference is not
// in the table: it does not produce a value through node.newNode (it has
// no Target), so resolvers branch on it before consulting this table.
var defaults = map[byte]apis.Kind{
	Intermediate: apis.KindIntermediate,
	Reused:       apis.KindReused,
	Class:        apis.KindClass,
}

// table is the process-wide sigil registry: the three Kind-bearing
// built-ins plus
// whatever a plug-in adds (spec §4.3 "(registerable prefix): Extension
// point").
type table struct {
	mu   sync.RWMutex
	kind map[byte]apis.Kind
}

var global = &table{kind: cloneDefaults()}

func cloneDefaults() map[byte]apis.Kind {
	out := make(map[byte]apis.Kind, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out
}

// Register binds an additional sigil byte to kind. Re-registering a
// built-in sigil to a different Kind is an error; re-registering to the
// same Kind is idempotent.
func Register(s byte, kind apis.Kind) error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if existing, ok := global.kind[s]; ok {
		if existing == kind {
			return nil
		}
		return fmt.Errorf("%w: sigil %q already bound to %s", apis.ErrConfigParse, string(s), existing)
	}
	global.kind[s] = kind
	return nil
}

// KindFor returns the Kind bound to sigil s, or false if s is unregistered.
func KindFor(s byte) (apis.Kind, bool) {
	global.mu.RLock()
	defer global.mu.RUnlock()
	k, ok := global.kind[s]
	return k, ok
}

// IsReference reports whether s is the built-in Reference sigil. Reference
// is handled specially by the resolver (top-level/env lookup) rather than
// through the Kind table, since it carries no Target.
func IsReference(s byte) bool { return s == Reference }

// Split separates a leading sigil byte from a parameter key, returning
// ok=false when key does not begin with a registered sigil (an
// unprefixed key is not rewritten by pass 3).
func Split(key string) (s byte, paramName string, ok bool) {
	if key == "" {
		return 0, "", false
	}
	c := key[0]
	if c == Reference {
		return c, key[1:], true
	}
	if _, registered := KindFor(c); registered {
		return c, key[1:], true
	}
	return 0, "", false
}

// DecoratorKind tags a single link in a postfix-decorator chain.
type DecoratorKind int

const (
	// DecoratorAttr is the ".attr" / ".attr()" attribute-getter chain
	// (spec §4.3, §4.4 "the attribute-getter (.attr chain)").
	DecoratorAttr DecoratorKind = iota
	// DecoratorHook is the "@name" registered-argument-hook wrapper.
	DecoratorHook
)

// Decorator is one link of a postfix-decorator chain parsed from a sigil
// value.
type Decorator struct {
	Kind DecoratorKind
	Name string
	// Call is true for ".attr()" forms: after getting the attribute, call
	// it with no arguments.
	Call bool
}

// Chain is a base name plus its ordered postfix-decorator chain, parsed
// from a single sigil value (spec §4.3 "post-fix decorators chained after
// the bare name").
type Chain struct {
	Base       string
	Decorators []Decorator
}

// ParseChain parses raw into a Chain. raw is everything after the leading
// sigil byte has already been stripped (via Split) for a single name; for
// list/map values the caller invokes ParseChain once per element.
func ParseChain(raw string) (Chain, error) {
	base, rest := splitAtFirstDecorator(raw)
	if base == "" {
		return Chain{}, fmt.Errorf("%w: empty sigil value", apis.ErrConfigParse)
	}
	chain := Chain{Base: base}

	for rest != "" {
		marker := rest[0]
		var name, tail string
		name, tail = splitAtFirstDecorator(rest[1:])
		if name == "" {
			return Chain{}, fmt.Errorf("%w: empty decorator name in %q", apis.ErrConfigParse, raw)
		}

		switch marker {
		case '.':
			call := false
			if strings.HasSuffix(name, "()") {
				call = true
				name = strings.TrimSuffix(name, "()")
			}
			chain.Decorators = append(chain.Decorators, Decorator{Kind: DecoratorAttr, Name: name, Call: call})
		case '@':
			chain.Decorators = append(chain.Decorators, Decorator{Kind: DecoratorHook, Name: name})
		default:
			return Chain{}, fmt.Errorf("%w: unexpected decorator marker %q in %q", apis.ErrConfigParse, string(marker), raw)
		}
		rest = tail
	}
	return chain, nil
}

// ParseFieldQualifier recognizes the "$field::name" explicit-field-
// qualification form of spec §4.3 name-lookup rule 1. It returns
// ok=false for any raw value without a "::" separator, leaving ordinary
// bare names untouched.
func ParseFieldQualifier(raw string) (field, name string, ok bool) {
	unprefixed := strings.TrimPrefix(raw, string(Class))
	idx := strings.Index(unprefixed, "::")
	if idx < 0 {
		return "", raw, false
	}
	return unprefixed[:idx], unprefixed[idx+2:], true
}

// splitAtFirstDecorator returns the text up to (excluding) the next '.' or
// '@', and the remainder starting at that marker (or "" if none).
// Parentheses are not tracked: a trailing "()" stays with its segment
// (e.g. "attr()") because it contains no marker, but a '.' or '@' inside
// parentheses still splits.
func splitAtFirstDecorator(s string) (head, rest string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '@':
			return s[:i], s[i:]
		}
	}
	return s, ""
}
