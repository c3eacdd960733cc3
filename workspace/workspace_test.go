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

package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"excore.dev/excore/apis"
	"excore.dev/excore/hook"
	"excore.dev/excore/workspace"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%q) error = %v", path, err)
	}
	return path
}

func TestLoadDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".excore.toml", `
name = "demo"
registries = ["Model", "*Model: FCN, DeepLab", "Optimizer"]
primary_fields = ["Model"]
excore_validate = true
`)
	ws, err := workspace.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ws.Name != "demo" || !ws.ExcoreValidate {
		t.Fatalf("ws = %#v", ws)
	}
	if len(ws.PrimaryFields) != 1 || ws.PrimaryFields[0] != "Model" {
		t.Fatalf("ws.PrimaryFields = %v", ws.PrimaryFields)
	}
}

func TestLoadRejectsNonTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".excore.yaml", "name: demo\n")
	_, err := workspace.Load(path)
	if !errors.Is(err, apis.ErrConfigSupport) {
		t.Fatalf("Load() error = %v, want ErrConfigSupport", err)
	}
}

func TestParseRegistryDecl(t *testing.T) {
	tests := []struct {
		raw  string
		want apis.RegistryDecl
	}{
		{"Model", apis.RegistryDecl{Name: "Model"}},
		{"*Model", apis.RegistryDecl{Name: "Model", IsPrimary: true}},
		{"Model: FCN, DeepLab", apis.RegistryDecl{Name: "Model", Children: []string{"FCN", "DeepLab"}}},
		{"*Model: FCN, DeepLab", apis.RegistryDecl{Name: "Model", IsPrimary: true, Children: []string{"FCN", "DeepLab"}}},
	}
	for _, tt := range tests {
		got := workspace.ParseRegistryDecl(tt.raw)
		if got.Name != tt.want.Name || got.IsPrimary != tt.want.IsPrimary || len(got.Children) != len(tt.want.Children) {
			t.Errorf("ParseRegistryDecl(%q) = %#v, want %#v", tt.raw, got, tt.want)
			continue
		}
		for i := range got.Children {
			if got.Children[i] != tt.want.Children[i] {
				t.Errorf("ParseRegistryDecl(%q).Children = %v, want %v", tt.raw, got.Children, tt.want.Children)
			}
		}
	}
}

func TestLoadConfigTreeMergesBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.toml", `
run_tag = "base"

[models]
gpt = { layers = 12 }
`)
	childPath := writeFile(t, dir, "child.toml", `
__base__ = ["base.toml"]

run_tag = "child"

[models.gpt]
layers = 24
`)
	tree, err := workspace.LoadConfigTree(childPath)
	if err != nil {
		t.Fatalf("LoadConfigTree() error = %v", err)
	}
	if _, hasBase := tree["__base__"]; hasBase {
		t.Fatalf("tree still contains __base__: %#v", tree)
	}
	if tree["run_tag"] != "child" {
		t.Fatalf("run_tag = %v, want \"child\" (current file overrides base)", tree["run_tag"])
	}
	models := tree["models"].(map[string]any)
	gpt := models["gpt"].(map[string]any)
	if gpt["layers"] != int64(24) {
		t.Fatalf("models.gpt.layers = %v, want 24 (child overrides base's nested table wholesale)", gpt["layers"])
	}
}

func TestLoadConfigTreeDetectsCycle(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.toml")
	bPath := filepath.Join(dir, "b.toml")
	writeFile(t, dir, "a.toml", `__base__ = ["b.toml"]`)
	writeFile(t, dir, "b.toml", `__base__ = ["a.toml"]`)

	_, err := workspace.LoadConfigTree(aPath)
	if !errors.Is(err, apis.ErrConfigSupport) {
		t.Fatalf("LoadConfigTree() error = %v, want ErrConfigSupport (cycle)", err)
	}
	_ = bPath
}

type recordingManager struct {
	registered []apis.LifecycleHook
}

func (m *recordingManager) Register(h apis.LifecycleHook) error {
	m.registered = append(m.registered, h)
	return nil
}
func (m *recordingManager) Fire(apis.Stage, map[string]any, map[string]any) error { return nil }

func TestExtractHooksRegistersDeclaredHooks(t *testing.T) {
	name := "test-workspace-handler"
	var gotParams map[string]any
	if err := hook.RegisterLifecycleBuilder(name, func(params map[string]any) (hook.RunFunc, error) {
		gotParams = params
		return func(map[string]any, map[string]any) error { return nil }, nil
	}); err != nil {
		t.Fatalf("RegisterLifecycleBuilder() error = %v", err)
	}

	raw := map[string]any{
		"ExcoreHook": map[string]any{
			"copy_params": map[string]any{
				"handler":       name,
				"stage":         "every_build",
				"lifespan":      int64(5),
				"call_interval": int64(1),
				"params":        map[string]any{"from": "Model", "to": "Optimizer"},
			},
		},
		"models": map[string]any{"gpt": map[string]any{}},
	}
	mgr := &recordingManager{}
	if err := workspace.ExtractHooks(raw, mgr); err != nil {
		t.Fatalf("ExtractHooks() error = %v", err)
	}
	if _, ok := raw["ExcoreHook"]; ok {
		t.Fatalf("raw still contains ExcoreHook after extraction")
	}
	if len(mgr.registered) != 1 {
		t.Fatalf("registered %d hooks, want 1", len(mgr.registered))
	}
	h := mgr.registered[0]
	if h.Stage() != apis.StageEveryBuild || h.Lifespan() != 5 || h.CallInterval() != 1 {
		t.Fatalf("hook metadata = %s/%d/%d", h.Stage(), h.Lifespan(), h.CallInterval())
	}
	if gotParams["from"] != "Model" {
		t.Fatalf("builder params = %#v", gotParams)
	}
}

func TestExtractHooksUnregisteredHandlerFails(t *testing.T) {
	raw := map[string]any{
		"ExcoreHook": map[string]any{
			"bogus": map[string]any{
				"handler":       "does-not-exist",
				"stage":         "pre_build",
				"lifespan":      int64(1),
				"call_interval": int64(1),
			},
		},
	}
	err := workspace.ExtractHooks(raw, &recordingManager{})
	if !errors.Is(err, apis.ErrHookManagerBuild) {
		t.Fatalf("ExtractHooks() error = %v, want ErrHookManagerBuild", err)
	}
}

func TestExtractHooksNoDeclarationsIsNoop(t *testing.T) {
	raw := map[string]any{"models": map[string]any{}}
	if err := workspace.ExtractHooks(raw, &recordingManager{}); err != nil {
		t.Fatalf("ExtractHooks() error = %v", err)
	}
}
