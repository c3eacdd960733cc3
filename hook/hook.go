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

// Package hook implements apis.HookManager and the two built-in argument
// hooks named by spec §4.4: the attribute-getter (".attr" chain) and the
// generic registered hook ("@name").
package hook

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"excore.dev/excore/apis"
)

// entry tracks one registered LifecycleHook's remaining lifespan, since
// the interface itself only exposes the hook's initial Lifespan.
type entry struct {
	hook      apis.LifecycleHook
	remaining int
}

// manager owns a map from stage to ordered hook list plus a per-stage call
// counter (spec §4.4 "HookManager owns a map from stage name to ordered
// hook list, plus a per-stage call counter").
type manager struct {
	mu      sync.Mutex
	byStage map[apis.Stage][]*entry
	counter map[apis.Stage]int
}

// New constructs an empty HookManager.
func New() apis.HookManager {
	return &manager{
		byStage: make(map[apis.Stage][]*entry),
		counter: make(map[apis.Stage]int),
	}
}

var validStages = map[apis.Stage]bool{
	apis.StagePreBuild:   true,
	apis.StageEveryBuild: true,
	apis.StageAfterBuild: true,
}

// Register validates h's attributes strictly (spec §4.4 "Validation of
// these attributes at manager construction is strict; violations are
// fatal") and appends it to its stage's ordered list.
func (m *manager) Register(h apis.LifecycleHook) error {
	var result *multierror.Error
	if !validStages[h.Stage()] {
		result = multierror.Append(result, fmt.Errorf("%w: unknown stage %q", apis.ErrHookManagerBuild, h.Stage()))
	}
	if h.Lifespan() <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: lifespan must be positive, got %d", apis.ErrHookManagerBuild, h.Lifespan()))
	}
	if h.CallInterval() <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: call_interval must be positive, got %d", apis.ErrHookManagerBuild, h.CallInterval()))
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.byStage[h.Stage()] = append(m.byStage[h.Stage()], &entry{hook: h, remaining: h.Lifespan()})
	return nil
}

// Fire invokes every still-live hook registered for stage whose stage
// counter is due (spec §4.4 "invoke only when the stage counter is a
// multiple of it"), then decrements lifespan for every hook that ran and
// prunes exhausted ones.
func (m *manager) Fire(stage apis.Stage, moduleDict, isolatedDict map[string]any) error {
	m.mu.Lock()
	m.counter[stage]++
	count := m.counter[stage]
	entries := m.byStage[stage]
	m.mu.Unlock()

	var result *multierror.Error
	survivors := make([]*entry, 0, len(entries))

	for _, e := range entries {
		if count%e.hook.CallInterval() != 0 {
			survivors = append(survivors, e)
			continue
		}
		if err := e.hook.Run(moduleDict, isolatedDict); err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: stage %s: %v", apis.ErrHookBuild, stage, err))
		}
		e.remaining--
		if e.remaining > 0 {
			survivors = append(survivors, e)
		}
	}

	m.mu.Lock()
	m.byStage[stage] = survivors
	m.mu.Unlock()

	return result.ErrorOrNil()
}
