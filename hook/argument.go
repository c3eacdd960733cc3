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

package hook

import (
	"fmt"
	"reflect"

	"excore.dev/excore/apis"
	"excore.dev/excore/sigil"
)

// AttrFunc is an apis.ArgumentHook implementing the attribute-getter
// chain (spec §4.3/§4.4 ".attr" / ".attr()"). It wraps inner and, when
// enabled, fetches a field or zero-argument method off inner's built
// value for each decorator in chain, calling the result when the
// decorator's Call flag is set.
type AttrFunc struct {
	inner   apis.Node
	enabled bool
	chain   []sigil.Decorator
}

// NewAttrHook wraps inner with the postfix-decorator chain parsed by
// sigil.ParseChain.
func NewAttrHook(inner apis.Node, chain []sigil.Decorator, enabled bool) *AttrFunc {
	return &AttrFunc{inner: inner, enabled: enabled, chain: chain}
}

func (h *AttrFunc) Kind() apis.Kind        { return h.inner.Kind() }
func (h *AttrFunc) NoCall() bool           { return h.inner.NoCall() }
func (h *AttrFunc) Params() map[string]any { return h.inner.Params() }
func (h *AttrFunc) Enabled() bool          { return h.enabled }
func (h *AttrFunc) Wrapped() apis.Node     { return h.inner }

func (h *AttrFunc) Call(overrides map[string]any) (any, error) {
	base, err := h.inner.Call(overrides)
	if err != nil {
		return nil, err
	}
	if !h.enabled {
		return base, nil
	}
	for _, d := range h.chain {
		if d.Kind != sigil.DecoratorAttr {
			continue
		}
		base, err = getAttr(base, d.Name, d.Call)
		if err != nil {
			return nil, err
		}
	}
	return base, nil
}

// getAttr fetches field or zero-argument method name off v via
// reflection, calling it when call is true.
func getAttr(v any, name string, call bool) (any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: attribute %q on nil value", apis.ErrHookBuild, name)
		}
		rv = rv.Elem()
	}

	if m := reflect.ValueOf(v).MethodByName(name); m.IsValid() {
		return invokeMethod(m, name, call)
	}

	if rv.Kind() == reflect.Struct {
		f := rv.FieldByName(name)
		if f.IsValid() {
			if call {
				return nil, fmt.Errorf("%w: %q is a field, not callable", apis.ErrHookBuild, name)
			}
			return f.Interface(), nil
		}
	}

	return nil, fmt.Errorf("%w: no attribute %q on %T", apis.ErrHookBuild, name, v)
}

func invokeMethod(m reflect.Value, name string, call bool) (any, error) {
	if !call {
		return m.Interface(), nil
	}
	if m.Type().NumIn() != 0 {
		return nil, fmt.Errorf("%w: method %q requires arguments", apis.ErrHookBuild, name)
	}
	out := m.Call(nil)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	default:
		// Methods returning (value, error) are the common Go shape; any
		// other multi-value signature is reported verbatim.
		if errVal, ok := out[len(out)-1].Interface().(error); ok {
			if errVal != nil {
				return nil, fmt.Errorf("%w: %q: %v", apis.ErrHookBuild, name, errVal)
			}
			return out[0].Interface(), nil
		}
		return out[0].Interface(), nil
	}
}

// Registered is the generic "@name" argument hook (spec §4.4 "the generic
// registered-hook (@name)"): it wraps inner and delegates to a function
// bound by name in a process-wide table, so plug-ins can attach
// cross-cutting behavior without modifying the resolver.
type Registered struct {
	inner   apis.Node
	enabled bool
	fn      ArgumentHookFunc
}

// NewRegisteredHook wraps inner with fn, the function bound under the
// hook's @name via RegisterArgumentHook.
func NewRegisteredHook(inner apis.Node, fn ArgumentHookFunc, enabled bool) *Registered {
	return &Registered{inner: inner, enabled: enabled, fn: fn}
}

func (h *Registered) Kind() apis.Kind        { return h.inner.Kind() }
func (h *Registered) NoCall() bool           { return h.inner.NoCall() }
func (h *Registered) Params() map[string]any { return h.inner.Params() }
func (h *Registered) Enabled() bool          { return h.enabled }
func (h *Registered) Wrapped() apis.Node     { return h.inner }

func (h *Registered) Call(overrides map[string]any) (any, error) {
	base, err := h.inner.Call(overrides)
	if err != nil {
		return nil, err
	}
	if !h.enabled || h.fn == nil {
		return base, nil
	}
	return h.fn(base, h.inner.Params())
}
