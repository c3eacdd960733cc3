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

package builder_test

import (
	"testing"

	"excore.dev/excore/apis"
	"excore.dev/excore/builder"
	"excore.dev/excore/hook"
	"excore.dev/excore/registry"
)

func TestBuildPoolReusesExisting(t *testing.T) {
	b := builder.New()
	prev := registry.New()
	got := b.BuildPool(apis.Config{}, prev)
	if got != prev {
		t.Fatalf("BuildPool() returned a different pool than prev")
	}
}

func TestBuildPoolCreatesFreshWhenNilPrev(t *testing.T) {
	b := builder.New()
	got := b.BuildPool(apis.Config{}, nil)
	if got == nil {
		t.Fatal("BuildPool() returned nil")
	}
	if len(got.Names()) != 0 {
		t.Fatalf("fresh pool has names = %v, want none", got.Names())
	}
}

func TestBuildConfigDictParsesPrimaryField(t *testing.T) {
	b := builder.New()
	pool := b.BuildPool(apis.Config{}, nil)
	reg, err := pool.Declare("models", nil)
	if err != nil {
		t.Fatalf("Declare() error = %v", err)
	}
	if _, err := reg.Register("gpt", "demo.models.GPT", false, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err = b.Symbols().Bind("demo.models.GPT", apis.Target{
		QualifiedPath: "demo.models.GPT",
		Build:         func(map[string]any) (any, error) { return "gpt-instance", nil },
	})
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	ws := apis.Workspace{PrimaryFields: []string{"models"}}
	raw := map[string]any{
		"models": map[string]any{
			"gpt": map[string]any{},
		},
	}

	cd := b.BuildConfigDict(raw, ws, pool, apis.Config{})
	if err := cd.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := cd.Primary("models"); !ok {
		t.Fatalf("Primary(%q) not found after Parse", "models")
	}
}

func TestBuildConfigDictExtractsExcoreHookDeclarations(t *testing.T) {
	const handlerName = "builder-test-handler"
	var ran bool
	err := hook.RegisterLifecycleBuilder(handlerName, func(map[string]any) (hook.RunFunc, error) {
		return func(map[string]any, map[string]any) error {
			ran = true
			return nil
		}, nil
	})
	if err != nil {
		t.Fatalf("RegisterLifecycleBuilder() error = %v", err)
	}

	b := builder.New()
	pool := b.BuildPool(apis.Config{}, nil)
	ws := apis.Workspace{}
	raw := map[string]any{
		"ExcoreHook": map[string]any{
			"noop": map[string]any{
				"handler":       handlerName,
				"stage":         "pre_build",
				"lifespan":      int64(1),
				"call_interval": int64(1),
			},
		},
	}

	cd := b.BuildConfigDict(raw, ws, pool, apis.Config{})
	if _, ok := raw["ExcoreHook"]; ok {
		t.Fatalf("ExcoreHook declaration survived BuildConfigDict: %#v", raw)
	}

	lc := b.BuildLazyConfig(cd, ws, apis.Config{})
	if _, err := lc.BuildAll(); err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
	if !ran {
		t.Fatalf("declared pre_build hook never ran")
	}
}

// Compile-time check: builder.New() must satisfy apis.Builder.
var _ apis.Builder = builder.New()
