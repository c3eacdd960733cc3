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

// RunFunc is the callback a declared lifecycle hook executes: it may
// mutate moduleDict/isolatedDict in place (spec §4.4 "Hooks may mutate
// module_dict and isolated_dict").
type RunFunc func(moduleDict, isolatedDict map[string]any) error

// LifecycleBuilderFunc constructs a RunFunc from a declaration's params
// table. Plug-ins bind a name to one via RegisterLifecycleBuilder so a
// workspace's ExcoreHook table can name behavior by string (spec §6
// "A distinguished key ExcoreHook carries the lifecycle-hook
// declarations").
type LifecycleBuilderFunc func(params map[string]any) (RunFunc, error)

var (
	lifecycleMu  sync.RWMutex
	lifecycleTbl = make(map[string]LifecycleBuilderFunc)
)

// RegisterLifecycleBuilder binds name (the ExcoreHook declaration's
// "handler") to fn.
func RegisterLifecycleBuilder(name string, fn LifecycleBuilderFunc) error {
	if name == "" {
		return fmt.Errorf("%w: empty lifecycle hook handler name", apis.ErrHookManagerBuild)
	}
	lifecycleMu.Lock()
	defer lifecycleMu.Unlock()
	if _, exists := lifecycleTbl[name]; exists {
		return fmt.Errorf("%w: lifecycle hook handler %q already registered", apis.ErrHookManagerBuild, name)
	}
	lifecycleTbl[name] = fn
	return nil
}

// ResolveLifecycleBuilder looks up a previously registered handler.
func ResolveLifecycleBuilder(name string) (LifecycleBuilderFunc, bool) {
	lifecycleMu.RLock()
	defer lifecycleMu.RUnlock()
	fn, ok := lifecycleTbl[name]
	return fn, ok
}

// declaredHook is the apis.LifecycleHook built from one ExcoreHook table
// entry: the fixed stage/lifespan/call_interval triple plus a RunFunc
// resolved by handler name.
type declaredHook struct {
	stage    apis.Stage
	lifespan int
	interval int
	run      RunFunc
}

// NewDeclaredHook wraps run as a lifecycle hook with the given firing
// parameters.
func NewDeclaredHook(stage apis.Stage, lifespan, interval int, run RunFunc) apis.LifecycleHook {
	return &declaredHook{stage: stage, lifespan: lifespan, interval: interval, run: run}
}

func (h *declaredHook) Stage() apis.Stage { return h.stage }
func (h *declaredHook) Lifespan() int     { return h.lifespan }
func (h *declaredHook) CallInterval() int { return h.interval }
func (h *declaredHook) Run(moduleDict, isolatedDict map[string]any) error {
	if h.run == nil {
		return nil
	}
	return h.run(moduleDict, isolatedDict)
}
