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

package registry_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"excore.dev/excore/apis"
	"excore.dev/excore/registry"
)

func TestRegisterAndGet(t *testing.T) {
	p := registry.New()
	r := p.Registry("models")

	path, err := r.Register("gpt", "pkg.models.GPT", false, nil)
	if err != nil {
		t.Fatalf("Register() error = %v, want nil", err)
	}
	if path != "pkg.models.GPT" {
		t.Fatalf("Register() = %q, want pkg.models.GPT", path)
	}

	got, ok := r.Get("gpt")
	if !ok || got != "pkg.models.GPT" {
		t.Fatalf("Get() = (%q, %v), want (pkg.models.GPT, true)", got, ok)
	}
}

func TestRegisterIdempotentSamePath(t *testing.T) {
	p := registry.New()
	r := p.Registry("models")

	if _, err := r.Register("gpt", "pkg.models.GPT", false, nil); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if _, err := r.Register("gpt", "pkg.models.GPT", false, nil); err != nil {
		t.Fatalf("idempotent re-registration error = %v, want nil", err)
	}
}

func TestRegisterConflictWithoutForce(t *testing.T) {
	p := registry.New()
	r := p.Registry("models")

	if _, err := r.Register("gpt", "pkg.models.GPT", false, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_, err := r.Register("gpt", "pkg.models.Other", false, nil)
	if !errors.Is(err, apis.ErrRegistryConflict) {
		t.Fatalf("Register() error = %v, want ErrRegistryConflict", err)
	}
}

func TestRegisterConflictWithForce(t *testing.T) {
	p := registry.New()
	r := p.Registry("models")

	if _, err := r.Register("gpt", "pkg.models.GPT", false, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	path, err := r.Register("gpt", "pkg.models.Other", true, nil)
	if err != nil {
		t.Fatalf("forced Register() error = %v, want nil", err)
	}
	if path != "pkg.models.Other" {
		t.Fatalf("forced Register() = %q, want pkg.models.Other", path)
	}
}

func TestExtraFieldsArityMismatch(t *testing.T) {
	p := registry.New()
	r, err := p.Declare("models", []string{"tier"})
	if err != nil {
		t.Fatalf("Declare() error = %v", err)
	}
	_, err = r.Register("gpt", "pkg.models.GPT", false, []string{"a", "b"})
	if !errors.Is(err, apis.ErrRegistrySchema) {
		t.Fatalf("Register() error = %v, want ErrRegistrySchema", err)
	}
}

func TestFilterReadsExtraFields(t *testing.T) {
	p := registry.New()
	r, err := p.Declare("models", []string{"tier"})
	if err != nil {
		t.Fatalf("Declare() error = %v", err)
	}
	if _, err := r.Register("gpt", "pkg.models.GPT", false, []string{"premium"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := r.Register("mini", "pkg.models.Mini", false, []string{"free"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got := r.Filter(func(extra []string) bool { return extra[0] == "premium" })
	if len(got) != 1 || got[0] != "gpt" {
		t.Fatalf("Filter() = %v, want [gpt]", got)
	}
}

func TestMergeAggregatesConflicts(t *testing.T) {
	p := registry.New()
	a := p.Registry("a")
	b := p.Registry("b")

	if _, err := a.Register("x", "pkg.X", false, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := a.Register("y", "pkg.Y", false, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := b.Register("x", "pkg.OtherX", false, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := b.Register("z", "pkg.Z", false, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := a.Merge(b, false)
	if !errors.Is(err, apis.ErrRegistryConflict) {
		t.Fatalf("Merge() error = %v, want ErrRegistryConflict", err)
	}
	// Non-conflicting entries still merged.
	if _, ok := a.Get("z"); !ok {
		t.Fatalf("Merge() did not carry over non-conflicting entry z")
	}
}

func TestPoolFindScansAllRegistries(t *testing.T) {
	p := registry.New()
	models := p.Registry("models")
	tools := p.Registry("tools")

	if _, err := tools.Register("search", "pkg.tools.Search", false, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_ = models

	path, regName, ok := p.Find("search")
	if !ok || path != "pkg.tools.Search" || regName != "tools" {
		t.Fatalf("Find() = (%q, %q, %v), want (pkg.tools.Search, tools, true)", path, regName, ok)
	}

	if _, _, ok := p.Find("missing"); ok {
		t.Fatalf("Find() found missing name")
	}
}

func TestPoolLockFreezesRegistration(t *testing.T) {
	p := registry.New()
	r := p.Registry("models")
	p.Lock()

	path, err := r.Register("gpt", "pkg.models.GPT", false, nil)
	if err != nil {
		t.Fatalf("Register() after lock error = %v, want nil (no-op)", err)
	}
	if path != "pkg.models.GPT" {
		t.Fatalf("Register() after lock = %q, want unchanged argument", path)
	}
	if _, ok := r.Get("gpt"); ok {
		t.Fatalf("Register() after lock actually inserted an entry")
	}

	p.Unlock()
	if _, err := r.Register("gpt", "pkg.models.GPT", false, nil); err != nil {
		t.Fatalf("Register() after unlock error = %v", err)
	}
}

func TestDeclareSchemaConflict(t *testing.T) {
	p := registry.New()
	if _, err := p.Declare("models", []string{"tier"}); err != nil {
		t.Fatalf("Declare() error = %v", err)
	}
	_, err := p.Declare("models", []string{"other"})
	if !errors.Is(err, apis.ErrRegistrySchema) {
		t.Fatalf("Declare() error = %v, want ErrRegistrySchema", err)
	}
}

func TestDumpAndLoadRoundTrip(t *testing.T) {
	p := registry.New()
	r, err := p.Declare("models", []string{"tier"})
	if err != nil {
		t.Fatalf("Declare() error = %v", err)
	}
	if _, err := r.Register("gpt", "pkg.models.GPT", false, []string{"premium"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "registry.cache")
	if err := p.Dump(path); err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	loaded := registry.New()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	lr, ok := loaded.Lookup("models")
	if !ok {
		t.Fatalf("Load() did not restore registry %q", "models")
	}
	got, ok := lr.Get("gpt")
	if !ok || got != "pkg.models.GPT" {
		t.Fatalf("Load() round-trip Get() = (%q, %v), want (pkg.models.GPT, true)", got, ok)
	}

	if p.LastGenerationID() == "" {
		t.Fatal("Dump() did not record a LastGenerationID")
	}
	if loaded.LastGenerationID() != p.LastGenerationID() {
		t.Fatalf("loaded.LastGenerationID() = %q, want %q", loaded.LastGenerationID(), p.LastGenerationID())
	}
}

func TestLoadRejectsCorruptCache(t *testing.T) {
	p := registry.New()
	path := filepath.Join(t.TempDir(), "registry.cache")
	if err := p.Dump(path); err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	// Corrupt the file so decoding fails, exercising the cache-error path.
	if err := os.WriteFile(path, []byte("not msgpack"), 0o644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}

	loaded := registry.New()
	err := loaded.Load(path)
	if !errors.Is(err, apis.ErrRegistryCache) {
		t.Fatalf("Load() error = %v, want ErrRegistryCache", err)
	}
}
