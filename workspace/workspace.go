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

// Package workspace loads the `.excore.toml` descriptor and a config
// file's raw TOML tree, including the `__base__` recursive shallow-merge
// and the `ExcoreHook` lifecycle-hook declarations (spec §6).
package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"excore.dev/excore/apis"
	"excore.dev/excore/hook"
)

// excoreHookKey is the distinguished top-level key carrying lifecycle-hook
// declarations (spec §6).
const excoreHookKey = "ExcoreHook"

// baseKey is the distinguished top-level key listing sibling config files
// to merge underneath the current one (spec §6 "__base__").
const baseKey = "__base__"

// Load decodes the workspace descriptor at path into an apis.Workspace
// (spec §6 "Workspace descriptor"). Only the ".toml" extension is
// supported.
func Load(path string) (apis.Workspace, error) {
	if ext := filepath.Ext(path); !strings.EqualFold(ext, ".toml") {
		return apis.Workspace{}, fmt.Errorf("%w: unsupported workspace extension %q", apis.ErrConfigSupport, ext)
	}
	var ws apis.Workspace
	if _, err := toml.DecodeFile(path, &ws); err != nil {
		return apis.Workspace{}, fmt.Errorf("%w: decoding %q: %v", apis.ErrConfigSupport, path, err)
	}
	return ws, nil
}

// ParseRegistryDecl parses one entry of Workspace.Registries: "Name" or
// "Name: child1, child2" with an optional leading "*" marking Name as a
// primary field (spec §6).
func ParseRegistryDecl(raw string) apis.RegistryDecl {
	raw = strings.TrimSpace(raw)
	decl := apis.RegistryDecl{}
	if strings.HasPrefix(raw, "*") {
		decl.IsPrimary = true
		raw = strings.TrimSpace(raw[1:])
	}

	name, rest, hasChildren := strings.Cut(raw, ":")
	decl.Name = strings.TrimSpace(name)
	if hasChildren {
		for _, c := range strings.Split(rest, ",") {
			if c = strings.TrimSpace(c); c != "" {
				decl.Children = append(decl.Children, c)
			}
		}
	}
	return decl
}

// RegistryDecls parses every entry of ws.Registries.
func RegistryDecls(ws apis.Workspace) []apis.RegistryDecl {
	out := make([]apis.RegistryDecl, 0, len(ws.Registries))
	for _, raw := range ws.Registries {
		out = append(out, ParseRegistryDecl(raw))
	}
	return out
}

// LoadConfigTree decodes the TOML config file at path into a raw mapping
// and recursively shallow-merges every sibling path listed under
// "__base__": later bases override earlier ones, and the current file
// overrides every base (spec §6).
func LoadConfigTree(path string) (map[string]any, error) {
	return loadConfigTree(path, make(map[string]bool))
}

func loadConfigTree(path string, visited map[string]bool) (map[string]any, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %q: %v", apis.ErrConfigSupport, path, err)
	}
	if visited[abs] {
		return nil, fmt.Errorf("%w: __base__ cycle at %q", apis.ErrConfigSupport, path)
	}
	visited[abs] = true

	if ext := filepath.Ext(path); !strings.EqualFold(ext, ".toml") {
		return nil, fmt.Errorf("%w: unsupported config extension %q", apis.ErrConfigSupport, ext)
	}

	var current map[string]any
	if _, err := toml.DecodeFile(path, &current); err != nil {
		return nil, fmt.Errorf("%w: decoding %q: %v", apis.ErrConfigSupport, path, err)
	}

	basesRaw, ok := current[baseKey]
	if !ok {
		return current, nil
	}
	delete(current, baseKey)

	bases, ok := basesRaw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q must be a list of paths", apis.ErrConfigSupport, baseKey)
	}

	merged := map[string]any{}
	dir := filepath.Dir(path)
	for _, b := range bases {
		rel, ok := b.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %q entries must be strings", apis.ErrConfigSupport, baseKey)
		}
		basePath := rel
		if !filepath.IsAbs(rel) {
			basePath = filepath.Join(dir, rel)
		}
		baseTree, err := loadConfigTree(basePath, visited)
		if err != nil {
			return nil, err
		}
		shallowMerge(merged, baseTree)
	}
	shallowMerge(merged, current)
	return merged, nil
}

// shallowMerge copies every key of src into dst, overwriting dst's
// existing value (spec §6 "later overrides earlier").
func shallowMerge(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

// hookDecl is the shape of one ExcoreHook table entry.
type hookDecl struct {
	Handler      string         `toml:"handler"`
	Stage        string         `toml:"stage"`
	Lifespan     int            `toml:"lifespan"`
	CallInterval int            `toml:"call_interval"`
	Params       map[string]any `toml:"params"`
}

// ExtractHooks removes the ExcoreHook declarations from raw (so the
// resolver never sees them as an ordinary scratchpad field) and registers
// the lifecycle hook each one builds, by resolving its "handler" name
// against hook.ResolveLifecycleBuilder.
func ExtractHooks(raw map[string]any, mgr apis.HookManager) error {
	rawHooks, ok := raw[excoreHookKey]
	if !ok {
		return nil
	}
	delete(raw, excoreHookKey)

	table, ok := rawHooks.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %q must be a table", apis.ErrConfigSupport, excoreHookKey)
	}

	for name, rawEntry := range table {
		var decl hookDecl
		if err := decodeInto(rawEntry, &decl); err != nil {
			return fmt.Errorf("%w: %s %q: %v", apis.ErrHookManagerBuild, excoreHookKey, name, err)
		}
		builder, ok := hook.ResolveLifecycleBuilder(decl.Handler)
		if !ok {
			return fmt.Errorf("%w: %s %q: unregistered handler %q", apis.ErrHookManagerBuild, excoreHookKey, name, decl.Handler)
		}
		run, err := builder(decl.Params)
		if err != nil {
			return fmt.Errorf("%w: %s %q: %v", apis.ErrHookManagerBuild, excoreHookKey, name, err)
		}
		h := hook.NewDeclaredHook(apis.Stage(decl.Stage), decl.Lifespan, decl.CallInterval, run)
		if err := mgr.Register(h); err != nil {
			return err
		}
	}
	return nil
}

// decodeInto re-encodes a decoded TOML value (already map[string]any from
// the outer decode) into dst via a second TOML round-trip, since
// BurntSushi/toml decodes nested tables as map[string]any rather than
// directly into arbitrary structs during the first pass.
func decodeInto(v any, dst any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("expected a table, got %T", v)
	}
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return err
	}
	_, err := toml.Decode(buf.String(), dst)
	return err
}
