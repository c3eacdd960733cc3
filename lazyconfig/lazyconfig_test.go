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

package lazyconfig_test

import (
	"errors"
	"testing"

	"excore.dev/excore/apis"
	"excore.dev/excore/lazyconfig"
)

type stubNode struct{ val any }

func (n stubNode) Kind() apis.Kind                  { return apis.KindPlain }
func (n stubNode) NoCall() bool                     { return false }
func (n stubNode) Params() map[string]any           { return nil }
func (n stubNode) Call(map[string]any) (any, error) { return n.val, nil }

type stubConfigDict struct {
	parsed    bool
	parseErr  error
	fields    []string
	primaries map[string]*apis.ModuleWrapper
	aux       map[string]any
	raw       map[string]any
}

func (s *stubConfigDict) Parse() error {
	if s.parseErr != nil {
		return s.parseErr
	}
	s.parsed = true
	return nil
}
func (s *stubConfigDict) Parsed() bool { return s.parsed }
func (s *stubConfigDict) Primary(field string) (*apis.ModuleWrapper, bool) {
	w, ok := s.primaries[field]
	return w, ok
}
func (s *stubConfigDict) PrimaryFields() []string   { return s.fields }
func (s *stubConfigDict) Auxiliary() map[string]any { return s.aux }
func (s *stubConfigDict) Raw() map[string]any       { return s.raw }

type recordingHooks struct {
	fired []apis.Stage
	err   error
}

func (h *recordingHooks) Register(apis.LifecycleHook) error { return nil }
func (h *recordingHooks) Fire(stage apis.Stage, _, _ map[string]any) error {
	h.fired = append(h.fired, stage)
	return h.err
}

func newWrapper(name string, val any) *apis.ModuleWrapper {
	return &apis.ModuleWrapper{
		Order: []string{name},
		Nodes: map[string]apis.Node{name: stubNode{val: val}},
	}
}

func TestBuildAllFiresStagesInOrder(t *testing.T) {
	cd := &stubConfigDict{
		fields: []string{"models", "optimizers"},
		primaries: map[string]*apis.ModuleWrapper{
			"models":     newWrapper("gpt", "built-gpt"),
			"optimizers": newWrapper("adam", "built-adam"),
		},
		aux: map[string]any{"run_tag": "nightly"},
		raw: map[string]any{},
	}
	hooks := &recordingHooks{}
	lc := lazyconfig.New(cd, hooks, apis.Config{})

	result, err := lc.BuildAll()
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
	if result.Primary["models"] != "built-gpt" || result.Primary["optimizers"] != "built-adam" {
		t.Fatalf("result.Primary = %#v", result.Primary)
	}
	if result.Auxiliary["run_tag"] != "nightly" {
		t.Fatalf("result.Auxiliary = %#v", result.Auxiliary)
	}

	want := []apis.Stage{
		apis.StagePreBuild,
		apis.StageEveryBuild, apis.StageEveryBuild,
		apis.StageAfterBuild,
	}
	if len(hooks.fired) != len(want) {
		t.Fatalf("fired = %v, want %v", hooks.fired, want)
	}
	for i, s := range want {
		if hooks.fired[i] != s {
			t.Fatalf("fired[%d] = %s, want %s", i, hooks.fired[i], s)
		}
	}
}

func TestBuildAllParsesIfNeeded(t *testing.T) {
	cd := &stubConfigDict{raw: map[string]any{}, aux: map[string]any{}}
	lc := lazyconfig.New(cd, &recordingHooks{}, apis.Config{})
	if _, err := lc.BuildAll(); err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
	if !cd.Parsed() {
		t.Fatalf("Parsed() = false, want BuildAll to have parsed automatically")
	}
}

func TestBuildAllPropagatesParseError(t *testing.T) {
	boom := errors.New("boom")
	cd := &stubConfigDict{parseErr: boom}
	lc := lazyconfig.New(cd, &recordingHooks{}, apis.Config{})
	if _, err := lc.BuildAll(); !errors.Is(err, boom) {
		t.Fatalf("BuildAll() error = %v, want boom", err)
	}
}

func TestBuildAllPropagatesHookError(t *testing.T) {
	boom := errors.New("boom")
	cd := &stubConfigDict{fields: nil, aux: map[string]any{}, raw: map[string]any{}}
	hooks := &recordingHooks{err: boom}
	lc := lazyconfig.New(cd, hooks, apis.Config{})
	if _, err := lc.BuildAll(); !errors.Is(err, boom) {
		t.Fatalf("BuildAll() error = %v, want boom", err)
	}
}
