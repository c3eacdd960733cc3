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

// Package builder implements apis.Builder, the single pluggable seam
// that assembles a Pool, a ConfigDict and a LazyConfig, the same role
// the teacher repo's builder package played for Registry/Resolver
// assembly.
package builder

import (
	"sync"

	"go.uber.org/zap"

	"excore.dev/excore/apis"
	"excore.dev/excore/configdict"
	"excore.dev/excore/hook"
	"excore.dev/excore/lazyconfig"
	"excore.dev/excore/registry"
	"excore.dev/excore/symbol"
	"excore.dev/excore/workspace"
)

// New creates a new apis.Builder, with its own SymbolTable ready for the
// caller to Bind Targets into before the first BuildConfigDict call.
func New() apis.Builder {
	return &builder{symtab: symbol.New()}
}

// builder holds the HookManager produced by the most recent
// BuildConfigDict call, so a later BuildLazyConfig call can hand it the
// very same lifecycle hooks the workspace's ExcoreHook table declared
// (spec §6), plus the SymbolTable every ConfigDict it builds resolves
// qualified paths against. A fresh builder per workspace avoids
// cross-workspace hook leakage; reusing one across rebuilds of the same
// workspace is fine and is how a process keeps its Target bindings.
type builder struct {
	mu     sync.Mutex
	hooks  apis.HookManager
	symtab apis.SymbolTable
}

// Symbols returns the SymbolTable this Builder's ConfigDicts resolve
// against.
func (b *builder) Symbols() apis.SymbolTable {
	return b.symtab
}

// BuildPool reuses prev if given, otherwise returns a fresh, empty Pool.
func (b *builder) BuildPool(_ apis.Config, prev apis.Pool) apis.Pool {
	if prev != nil {
		return prev
	}
	return registry.New()
}

// BuildConfigDict strips and registers raw's ExcoreHook declarations
// (spec §6), then returns a ConfigDict over the remaining tree. The
// HookManager built here is handed to the next BuildLazyConfig call.
func (b *builder) BuildConfigDict(raw map[string]any, ws apis.Workspace, pool apis.Pool, cfg apis.Config) apis.ConfigDict {
	mgr := hook.New()
	if err := workspace.ExtractHooks(raw, mgr); err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("excore(builder): failed to extract ExcoreHook declarations", zap.Error(err))
		}
	}

	b.mu.Lock()
	b.hooks = mgr
	b.mu.Unlock()

	return configdict.New(raw, ws, pool, b.symtab, cfg)
}

// BuildLazyConfig wraps cd with the HookManager built by the last
// BuildConfigDict call (or a fresh, empty one if none has run yet).
func (b *builder) BuildLazyConfig(cd apis.ConfigDict, _ apis.Workspace, cfg apis.Config) apis.LazyConfig {
	b.mu.Lock()
	mgr := b.hooks
	b.mu.Unlock()
	if mgr == nil {
		mgr = hook.New()
	}
	return lazyconfig.New(cd, mgr, cfg)
}
