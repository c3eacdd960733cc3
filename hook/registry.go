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
	"sync"

	"excore.dev/excore/apis"
)

// ArgumentHookFunc is the function shape a "@name" registered hook binds
// to: it receives the wrapped Node's already-built value and its pending
// parameter map, and returns the (possibly transformed) value to expose to
// the caller.
type ArgumentHookFunc func(value any, params map[string]any) (any, error)

var (
	argMu  sync.RWMutex
	argTbl = make(map[string]ArgumentHookFunc)
)

// RegisterArgumentHook binds name (the "@name" used in a config value's
// postfix-decorator chain) to fn. Plug-ins call this, typically from
// init(), before any config referencing the hook is parsed.
func RegisterArgumentHook(name string, fn ArgumentHookFunc) error {
	if name == "" {
		return fmt.Errorf("%w: empty argument hook name", apis.ErrHookBuild)
	}
	argMu.Lock()
	defer argMu.Unlock()
	if _, exists := argTbl[name]; exists {
		return fmt.Errorf("%w: argument hook %q already registered", apis.ErrHookBuild, name)
	}
	argTbl[name] = fn
	return nil
}

// ResolveArgumentHook looks up a previously registered "@name" hook.
func ResolveArgumentHook(name string) (ArgumentHookFunc, bool) {
	argMu.RLock()
	defer argMu.RUnlock()
	fn, ok := argTbl[name]
	return fn, ok
}
