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
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"excore.dev/excore/apis"
	"excore.dev/excore/builder"
)

func resetState(tb testing.TB) {
	tb.Helper()
	b := builder.New()
	cfg := apis.Config{}
	SetAll(&cfg, &apis.Workspace{}, nil, b)
}

func TestSetConfigReplacesConfigOnly(t *testing.T) {
	resetState(t)
	poolBefore := Pool()

	SetConfig(apis.Config{Validate: true, Debug: true})

	if !Config().Validate || !Config().Debug {
		t.Fatalf("Config() = %+v, want Validate/Debug set", Config())
	}
	if Pool() != poolBefore {
		t.Fatalf("SetConfig() unexpectedly rebuilt the pool")
	}
}

func TestSetWorkspaceDeclaresRegistries(t *testing.T) {
	resetState(t)
	ws := apis.Workspace{Registries: []string{"Model", "*Optimizer: adam, sgd"}}
	if err := SetWorkspace(ws); err != nil {
		t.Fatalf("SetWorkspace() error = %v", err)
	}
	if _, ok := Pool().Lookup("Model"); !ok {
		t.Fatalf("Pool() missing declared registry %q", "Model")
	}
	if _, ok := Pool().Lookup("Optimizer"); !ok {
		t.Fatalf("Pool() missing declared registry %q", "Optimizer")
	}
	if Workspace().Registries[0] != "Model" {
		t.Fatalf("Workspace() = %+v", Workspace())
	}
}

func TestSetBuilderRebuildsViaNewBuilder(t *testing.T) {
	resetState(t)
	b2 := builder.New()
	SetBuilder(b2)
	if Builder() != b2 {
		t.Fatalf("Builder() did not switch to the new builder")
	}
}

func TestSetBuilderIgnoresNil(t *testing.T) {
	resetState(t)
	before := Builder()
	SetBuilder(nil)
	if Builder() != before {
		t.Fatalf("SetBuilder(nil) changed the active builder")
	}
}

func TestAutoRegisterBindsAndRegisters(t *testing.T) {
	resetState(t)
	target := apis.Target{
		QualifiedPath: "demo.models.GPT",
		Build:         func(map[string]any) (any, error) { return "gpt-instance", nil },
	}
	if err := AutoRegister("models", "gpt", "demo.models.GPT", target); err != nil {
		t.Fatalf("AutoRegister() error = %v", err)
	}

	reg, ok := Pool().Lookup("models")
	if !ok {
		t.Fatalf("AutoRegister() did not declare registry %q", "models")
	}
	path, ok := reg.Get("gpt")
	if !ok || path != "demo.models.GPT" {
		t.Fatalf("reg.Get(%q) = (%q, %v), want (%q, true)", "gpt", path, ok, "demo.models.GPT")
	}

	got, ok := Builder().Symbols().Resolve("demo.models.GPT")
	if !ok || got.QualifiedPath != "demo.models.GPT" {
		t.Fatalf("Symbols().Resolve() = (%+v, %v)", got, ok)
	}
}

func TestBuildFromConfigFileEndToEnd(t *testing.T) {
	resetState(t)
	target := apis.Target{
		QualifiedPath: "demo.models.GPT",
		Build:         func(map[string]any) (any, error) { return "built-gpt", nil },
	}
	if err := AutoRegister("models", "gpt", "demo.models.GPT", target); err != nil {
		t.Fatalf("AutoRegister() error = %v", err)
	}
	if err := SetWorkspace(apis.Workspace{
		Registries:    []string{"models"},
		PrimaryFields: []string{"models"},
	}); err != nil {
		t.Fatalf("SetWorkspace() error = %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "run.toml")
	if err := os.WriteFile(path, []byte("[models.gpt]\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	lc, err := BuildFromConfigFile(path)
	if err != nil {
		t.Fatalf("BuildFromConfigFile() error = %v", err)
	}
	result, err := lc.BuildAll()
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
	if result.Primary["models"] != "built-gpt" {
		t.Fatalf("result.Primary = %#v", result.Primary)
	}
}

func TestConcurrentReadsDuringSetConfig(t *testing.T) {
	resetState(t)

	var wg sync.WaitGroup
	readers := runtime.GOMAXPROCS(0) * 4
	wg.Add(readers)
	for i := 0; i < readers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				_ = Config()
				_ = Pool()
				_ = Workspace()
			}
		}()
	}

	for i := 0; i < 20; i++ {
		SetConfig(apis.Config{Debug: i%2 == 0})
	}
	wg.Wait()
}
