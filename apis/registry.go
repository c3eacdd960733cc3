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

package apis

// Entry is a single (short name, qualified path) association in a
// Registry, plus whatever extra metadata values the Registry declared.
type Entry struct {
	Name          string
	QualifiedPath string
	Extra         []string
}

// Registry is a named catalogue of constructible targets (spec §4.1): a
// mapping from short name to fully-qualified target descriptor, with an
// optional parallel table of per-entry metadata values.
type Registry interface {
	// Name returns the Registry's unique name.
	Name() string

	// ExtraFields returns the declared, ordered list of extra metadata
	// field names, or nil if none were declared.
	ExtraFields() []string

	// Register inserts shortName -> qualifiedPath. If force is false and
	// shortName already maps to a different qualifiedPath, Register
	// fails with ErrRegistryConflict. extra
	// must have the same arity as ExtraFields whenever non-nil. Register
	// is a no-op returning qualifiedPath unchanged once the owning Pool
	// is locked.
	Register(shortName, qualifiedPath string, force bool, extra []string) (string, error)

	// Get returns the qualified path registered under name, if any.
	Get(name string) (string, bool)

	// Filter returns every short name whose extra metadata satisfies
	// predicate, in sorted order.
	Filter(predicate func(extra []string) bool) []string

	// Entries returns every (name, path, extra) triple, in registration
	// order.
	Entries() []Entry

	// Merge unions other's entries into the receiver. When force is
	// false, conflicting short names (same name, different path) are
	// collected and returned as a single aggregated error; non-conflicting
	// entries are still merged.
	Merge(other Registry, force bool) error
}

// Pool is the process-wide map of Registry name -> Registry (spec §4.1
// registry_pool). Names must match [A-Za-z0-9_]+.
type Pool interface {
	// Registry returns the named Registry, creating it (with no extra
	// fields) if it does not yet exist.
	Registry(name string) Registry

	// Lookup returns the named Registry without creating it.
	Lookup(name string) (Registry, bool)

	// Declare creates (or returns the existing) Registry with the given
	// extra field schema. Declaring an existing Registry with a
	// different extra-field schema is an error.
	Declare(name string, extraFields []string) (Registry, error)

	// Names returns every Registry name currently in the pool.
	Names() []string

	// Find scans every Registry in the pool for name.
	Find(name string) (qualifiedPath, registryName string, ok bool)

	// Lock freezes the pool: further Register* calls on any member
	// Registry become no-ops.
	Lock()
	// Unlock unfreezes the pool.
	Unlock()
	// Locked reports whether the pool is currently locked.
	Locked() bool

	// Dump serialises the pool to path under an advisory file lock.
	Dump(path string) error
	// Load replaces the pool's contents from path under an advisory file
	// lock. It rejects a cache written by an incompatible envelope
	// version.
	Load(path string) error

	// LastGenerationID returns the generation ID of the most recent Dump
	// written, or the most recent Load read, by this Pool, for
	// correlating a cache file across process logs. It is empty until
	// the first Dump or Load call.
	LastGenerationID() string
}
