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

// Package symbol implements apis.SymbolTable, the process-wide registry of
// qualified-path -> apis.Target bindings that stands in for Python's
// importlib-based from_str resolution.
package symbol

import (
	"fmt"
	"reflect"
	"sync"

	"excore.dev/excore/apis"
)

// table is a sync.Map-backed apis.SymbolTable: bindings are created once
// (typically from package init functions) and read far more often than
// written, so the fast path never takes a lock.
type table struct {
	mu sync.Mutex
	m  sync.Map // map[string]apis.Target
}

// New constructs an empty SymbolTable.
func New() apis.SymbolTable {
	return &table{}
}

// Bind associates qualifiedPath with t. Re-binding the same path to an
// equal Target (compared by QualifiedPath/IsModule/Params; Build and Raw
// are function/interface values and excluded from the comparison) is
// idempotent; re-binding to a materially different Target is an error.
func (s *table) Bind(qualifiedPath string, t apis.Target) error {
	if qualifiedPath == "" {
		return fmt.Errorf("%w: empty qualified path", apis.ErrStrToClass)
	}

	if existing, ok := s.m.Load(qualifiedPath); ok {
		if sameTarget(existing.(apis.Target), t) {
			return nil
		}
		return fmt.Errorf("%w: %q already bound to a different target", apis.ErrStrToClass, qualifiedPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.m.Load(qualifiedPath); ok {
		if sameTarget(existing.(apis.Target), t) {
			return nil
		}
		return fmt.Errorf("%w: %q already bound to a different target", apis.ErrStrToClass, qualifiedPath)
	}

	s.m.Store(qualifiedPath, t)
	return nil
}

func (s *table) Resolve(qualifiedPath string) (apis.Target, bool) {
	v, ok := s.m.Load(qualifiedPath)
	if !ok {
		return apis.Target{}, false
	}
	return v.(apis.Target), true
}

func sameTarget(a, b apis.Target) bool {
	if a.QualifiedPath != b.QualifiedPath || a.IsModule != b.IsModule {
		return false
	}
	return reflect.DeepEqual(a.Params, b.Params)
}
