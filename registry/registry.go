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

// Package registry implements apis.Registry and apis.Pool: the short-name
// to qualified-path catalogues targets are registered under, and the
// process-wide collection of such catalogues.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"excore.dev/excore/apis"
)

// registry is a Registry implementation backed by a mutex-guarded map plus
// an insertion-order slice, mirroring the fast-read/locked-write shape of
// the teacher's sync.Map registry but needing deterministic Entries()
// order, which sync.Map cannot give for free.
type registry struct {
	name        string
	extraFields []string

	mu     sync.Mutex
	order  []string
	paths  map[string]string
	extra  map[string][]string
	locked *atomic.Bool
}

func newRegistry(name string, extraFields []string, locked *atomic.Bool) *registry {
	return &registry{
		name:        name,
		extraFields: append([]string(nil), extraFields...),
		paths:       make(map[string]string),
		extra:       make(map[string][]string),
		locked:      locked,
	}
}

func (r *registry) Name() string { return r.name }

func (r *registry) ExtraFields() []string {
	return append([]string(nil), r.extraFields...)
}

// Register inserts shortName -> qualifiedPath (spec §4.1 register). Once
// the owning pool is locked, Register is a no-op returning qualifiedPath
// unchanged so a second import pass never double-registers.
func (r *registry) Register(shortName, qualifiedPath string, force bool, extra []string) (string, error) {
	if r.locked != nil && r.locked.Load() {
		return qualifiedPath, nil
	}
	if extra != nil && len(extra) != len(r.extraFields) {
		return "", fmt.Errorf("%w: registry %q expects %d extra fields, got %d",
			apis.ErrRegistrySchema, r.name, len(r.extraFields), len(extra))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.paths[shortName]; ok {
		if existing == qualifiedPath {
			return qualifiedPath, nil
		}
		if !force {
			return "", fmt.Errorf("%w: %q already maps to %q in registry %q",
				apis.ErrRegistryConflict, shortName, existing, r.name)
		}
	} else {
		r.order = append(r.order, shortName)
	}

	r.paths[shortName] = qualifiedPath
	if extra != nil {
		r.extra[shortName] = append([]string(nil), extra...)
	}
	return qualifiedPath, nil
}

func (r *registry) Get(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.paths[name]
	return p, ok
}

// Filter returns every short name whose extra metadata satisfies predicate,
// in sorted order (spec §4.1 filter reads extra_info).
func (r *registry) Filter(predicate func(extra []string) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, name := range r.order {
		if predicate(r.extra[name]) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (r *registry) Entries() []apis.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]apis.Entry, 0, len(r.order))
	for _, name := range r.order {
		entries = append(entries, apis.Entry{
			Name:          name,
			QualifiedPath: r.paths[name],
			Extra:         append([]string(nil), r.extra[name]...),
		})
	}
	return entries
}

// Merge unions other's entries into the receiver. Conflicts are aggregated
// with go-multierror instead of failing fast, so a caller sees every
// colliding name in one report rather than fixing them one at a time.
func (r *registry) Merge(other apis.Registry, force bool) error {
	var result *multierror.Error
	for _, e := range other.Entries() {
		if _, err := r.Register(e.Name, e.QualifiedPath, force, e.Extra); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
