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

package excore

import (
	"sync"
	"sync/atomic"

	"excore.dev/excore/apis"
	"excore.dev/excore/builder"
	"excore.dev/excore/config"
	"excore.dev/excore/workspace"
)

func init() {
	cfg := config.FromEnv()
	b := builder.New()
	s := &state{cfg: cfg, bld: b, pool: b.BuildPool(cfg, nil)}
	st.Store(s)
}

// buildMu serializes writers so a reader never observes a state built
// from half-updated fields.
var buildMu sync.Mutex

// st is the global, atomically-published snapshot.
var st atomic.Pointer[state]

// state is an immutable snapshot of the process-wide engine
// configuration. Never mutate a published state's fields; writers build
// a new one and swap it in via st.Store.
type state struct {
	cfg  apis.Config
	ws   apis.Workspace
	pool apis.Pool
	bld  apis.Builder
}

// Config returns the current process-wide apis.Config.
func Config() apis.Config {
	return st.Load().cfg
}

// SetConfig replaces the process-wide apis.Config. The Pool and Builder
// are left untouched.
func SetConfig(cfg apis.Config) {
	buildMu.Lock()
	defer buildMu.Unlock()
	old := st.Load()
	st.Store(&state{cfg: cfg, ws: old.ws, pool: old.pool, bld: old.bld})
}

// Workspace returns the currently loaded apis.Workspace, or the zero
// value if none has been loaded yet.
func Workspace() apis.Workspace {
	return st.Load().ws
}

// SetWorkspace installs ws as the active workspace and declares every
// registry its Registries list names (spec §6), so primary-field lookups
// against the Pool succeed without a caller having to Declare them by
// hand.
func SetWorkspace(ws apis.Workspace) error {
	buildMu.Lock()
	defer buildMu.Unlock()
	old := st.Load()

	for _, decl := range workspace.RegistryDecls(ws) {
		if _, err := old.pool.Declare(decl.Name, nil); err != nil {
			return err
		}
	}

	st.Store(&state{cfg: old.cfg, ws: ws, pool: old.pool, bld: old.bld})
	return nil
}

// LoadWorkspace loads the `.excore.toml` descriptor at path and installs
// it via SetWorkspace.
func LoadWorkspace(path string) error {
	ws, err := workspace.Load(path)
	if err != nil {
		return err
	}
	return SetWorkspace(ws)
}

// Pool returns the process-wide apis.Pool.
func Pool() apis.Pool {
	return st.Load().pool
}

// SetPool replaces the process-wide apis.Pool. A nil pool is ignored.
func SetPool(pool apis.Pool) {
	if pool == nil {
		return
	}
	buildMu.Lock()
	defer buildMu.Unlock()
	old := st.Load()
	st.Store(&state{cfg: old.cfg, ws: old.ws, pool: pool, bld: old.bld})
}

// Builder returns the process-wide apis.Builder.
func Builder() apis.Builder {
	return st.Load().bld
}

// SetBuilder replaces the process-wide apis.Builder, rebuilding (or
// reusing, per BuildPool's own contract) the Pool through it. A nil
// builder is ignored.
func SetBuilder(b apis.Builder) {
	if b == nil {
		return
	}
	buildMu.Lock()
	defer buildMu.Unlock()
	old := st.Load()
	pool := b.BuildPool(old.cfg, old.pool)
	st.Store(&state{cfg: old.cfg, ws: old.ws, pool: pool, bld: b})
}

// SetAll explicitly replaces every component of the global state in one
// shot, mainly for tests that need a deterministic, isolated snapshot. A
// nil cfg/ws argument leaves the corresponding field unchanged; a nil
// pool is rebuilt from bld (or the old builder, if bld is also nil).
func SetAll(cfg *apis.Config, ws *apis.Workspace, pool apis.Pool, bld apis.Builder) {
	buildMu.Lock()
	defer buildMu.Unlock()
	old := st.Load()

	ncfg := old.cfg
	if cfg != nil {
		ncfg = *cfg
	}
	nws := old.ws
	if ws != nil {
		nws = *ws
	}
	nbld := old.bld
	if bld != nil {
		nbld = bld
	}
	npool := pool
	if npool == nil {
		npool = nbld.BuildPool(ncfg, old.pool)
	}

	st.Store(&state{cfg: ncfg, ws: nws, pool: npool, bld: nbld})
}

// AutoRegister binds target under qualifiedPath in the Builder's
// SymbolTable and registers shortName -> qualifiedPath in the named
// registry, creating the registry if it does not yet exist. This is the
// library-level operation the CLI's `auto-register` subcommand (spec §6)
// would wrap around a source-directory scan.
func AutoRegister(registryName, shortName, qualifiedPath string, target apis.Target) error {
	s := st.Load()
	if err := s.bld.Symbols().Bind(qualifiedPath, target); err != nil {
		return err
	}
	reg, err := s.pool.Declare(registryName, nil)
	if err != nil {
		return err
	}
	_, err = reg.Register(shortName, qualifiedPath, false, nil)
	return err
}

// BuildFromConfigFile loads path's TOML tree (merging any `__base__`
// chain and extracting its ExcoreHook declarations, spec §6), parses it
// against the active Workspace and Pool, and returns a ready-to-build
// apis.LazyConfig.
func BuildFromConfigFile(path string) (apis.LazyConfig, error) {
	s := st.Load()

	raw, err := workspace.LoadConfigTree(path)
	if err != nil {
		return nil, err
	}

	cd := s.bld.BuildConfigDict(raw, s.ws, s.pool, s.cfg)
	if err := cd.Parse(); err != nil {
		return nil, err
	}
	return s.bld.BuildLazyConfig(cd, s.ws, s.cfg), nil
}
