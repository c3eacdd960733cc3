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

package registry

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vmihailenco/msgpack/v5"

	"excore.dev/excore/apis"
)

// cacheEnvelopeVersion is bumped whenever the on-disk shape of envelope
// changes incompatibly. Load rejects a file whose version does not match.
const cacheEnvelopeVersion = 1

// findCacheSize bounds the LRU cache backing Pool.Find (spec §4.1 "cache
// with bounded LRU for hot paths").
const findCacheSize = 4096

type findResult struct {
	QualifiedPath string
	RegistryName  string
}

// envelope is the serialised form of a Pool, written by Dump and read back
// by Load. GenerationID is a fresh uuid stamped on every Dump so that two
// cache files (or a cache file and the log line reporting its write) can
// be correlated unambiguously.
type envelope struct {
	Version      int
	GenerationID string
	Registries   []registrySnapshot
}

type registrySnapshot struct {
	Name        string
	ExtraFields []string
	Order       []string
	Paths       map[string]string
	Extra       map[string][]string
}

// pool is the process-wide apis.Pool implementation: a name-keyed map of
// Registry instances sharing one lock flag and one LRU cache for Find.
type pool struct {
	mu     sync.RWMutex
	byName map[string]*registry

	locked  atomic.Bool
	find    *lru.Cache[string, findResult]
	lastGen string
}

// New constructs an empty Pool.
func New() apis.Pool {
	cache, err := lru.New[string, findResult](findCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// findCacheSize never is.
		panic(fmt.Errorf("registry: building find cache: %w", err))
	}
	return &pool{
		byName: make(map[string]*registry),
		find:   cache,
	}
}

func (p *pool) Registry(name string) apis.Registry {
	r, _ := p.Declare(name, nil)
	return r
}

func (p *pool) Lookup(name string) (apis.Registry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return r, true
}

func (p *pool) Declare(name string, extraFields []string) (apis.Registry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.byName[name]; ok {
		if extraFields != nil && !sameFields(existing.extraFields, extraFields) {
			return nil, fmt.Errorf("%w: registry %q already declared with fields %v, got %v",
				apis.ErrRegistrySchema, name, existing.extraFields, extraFields)
		}
		return existing, nil
	}

	r := newRegistry(name, extraFields, &p.locked)
	p.byName[name] = r
	return r, nil
}

func (p *pool) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.byName))
	for n := range p.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Find scans every member Registry for name, caching hits and misses alike
// behind a bounded LRU so repeated lookups of common targets (spec §4.3
// pass 3 rule 5, "implicit module") stay cheap.
func (p *pool) Find(name string) (qualifiedPath, registryName string, ok bool) {
	if cached, hit := p.find.Get(name); hit {
		if cached.QualifiedPath == "" {
			return "", "", false
		}
		return cached.QualifiedPath, cached.RegistryName, true
	}

	p.mu.RLock()
	names := make([]string, 0, len(p.byName))
	for n := range p.byName {
		names = append(names, n)
	}
	p.mu.RUnlock()
	sort.Strings(names)

	for _, rn := range names {
		p.mu.RLock()
		r := p.byName[rn]
		p.mu.RUnlock()
		if path, found := r.Get(name); found {
			p.find.Add(name, findResult{QualifiedPath: path, RegistryName: rn})
			return path, rn, true
		}
	}
	p.find.Add(name, findResult{})
	return "", "", false
}

func (p *pool) Lock() { p.locked.Store(true) }

func (p *pool) Unlock() { p.locked.Store(false) }

func (p *pool) Locked() bool { return p.locked.Load() }

// Dump serialises the pool to path under an advisory exclusive file lock
// (spec §4.1 dump), so two processes racing to write an auto-registration
// cache never interleave writes.
func (p *pool) Dump(path string) error {
	fl := flock.New(path + ".lock")
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("%w: acquiring write lock for %s: %v", apis.ErrRegistryCache, path, err)
	}
	defer fl.Unlock()

	env := envelope{Version: cacheEnvelopeVersion, GenerationID: uuid.NewString()}

	p.mu.RLock()
	names := make([]string, 0, len(p.byName))
	for n := range p.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		r := p.byName[n]
		r.mu.Lock()
		env.Registries = append(env.Registries, registrySnapshot{
			Name:        r.name,
			ExtraFields: append([]string(nil), r.extraFields...),
			Order:       append([]string(nil), r.order...),
			Paths:       copyStringMap(r.paths),
			Extra:       copyExtraMap(r.extra),
		})
		r.mu.Unlock()
	}
	p.mu.RUnlock()

	data, err := msgpack.Marshal(env)
	if err != nil {
		return fmt.Errorf("%w: encoding cache: %v", apis.ErrRegistryCache, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", apis.ErrRegistryCache, path, err)
	}

	p.mu.Lock()
	p.lastGen = env.GenerationID
	p.mu.Unlock()
	return nil
}

// Load replaces the pool's contents from path under an advisory shared
// file lock, rejecting a cache written by an incompatible envelope
// version (spec §4.1 load, "on mismatched version the loader rejects").
func (p *pool) Load(path string) error {
	fl := flock.New(path + ".lock")
	if err := fl.RLock(); err != nil {
		return fmt.Errorf("%w: acquiring read lock for %s: %v", apis.ErrRegistryCache, path, err)
	}
	defer fl.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", apis.ErrRegistryCache, path, err)
	}

	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", apis.ErrRegistryCache, path, err)
	}
	if env.Version != cacheEnvelopeVersion {
		return fmt.Errorf("%w: %s has envelope version %d, want %d (re-run auto-register)",
			apis.ErrRegistryCache, path, env.Version, cacheEnvelopeVersion)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.byName = make(map[string]*registry, len(env.Registries))
	for _, snap := range env.Registries {
		r := newRegistry(snap.Name, snap.ExtraFields, &p.locked)
		r.order = append([]string(nil), snap.Order...)
		r.paths = copyStringMap(snap.Paths)
		r.extra = copyExtraMap(snap.Extra)
		p.byName[snap.Name] = r
	}
	p.lastGen = env.GenerationID
	p.find.Purge()
	return nil
}

// LastGenerationID returns the generation ID stamped by the most recent
// Dump, or read back by the most recent Load.
func (p *pool) LastGenerationID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastGen
}

func sameFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyExtraMap(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}
