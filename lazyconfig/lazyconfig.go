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

// Package lazyconfig implements apis.LazyConfig: the build phase that
// turns a parsed ConfigDict into instantiated objects, firing lifecycle
// hooks around it (spec §4.5).
package lazyconfig

import (
	"fmt"

	"go.uber.org/zap"

	"excore.dev/excore/apis"
)

type lazyConfig struct {
	cd     apis.ConfigDict
	hooks  apis.HookManager
	logger *zap.Logger
	cfg    apis.Config
}

// New wraps cd with hooks, ready for BuildAll (spec §4.5). logger is the
// Config's Logger, or a no-op logger when nil.
func New(cd apis.ConfigDict, hooks apis.HookManager, cfg apis.Config) apis.LazyConfig {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &lazyConfig{cd: cd, hooks: hooks, logger: logger, cfg: cfg}
}

func (l *lazyConfig) Parse() error {
	return l.cd.Parse()
}

func (l *lazyConfig) ConfigDict() apis.ConfigDict { return l.cd }
func (l *lazyConfig) Hooks() apis.HookManager     { return l.hooks }

// BuildAll runs the algorithm of spec §4.5: parse if needed, fire
// pre_build once, then for every primary field fire every_build and call
// its ModuleWrapper, then fire after_build once, then copy the auxiliary
// values verbatim.
func (l *lazyConfig) BuildAll() (apis.BuildResult, error) {
	if !l.cd.Parsed() {
		if err := l.cd.Parse(); err != nil {
			return apis.BuildResult{}, err
		}
	}

	moduleDict := l.cd.Raw()
	isolatedDict := l.cd.Auxiliary()

	if err := l.hooks.Fire(apis.StagePreBuild, moduleDict, isolatedDict); err != nil {
		return apis.BuildResult{}, fmt.Errorf("pre_build: %w", err)
	}

	primary := make(map[string]any, len(l.cd.PrimaryFields()))
	for _, field := range l.cd.PrimaryFields() {
		if err := l.hooks.Fire(apis.StageEveryBuild, moduleDict, isolatedDict); err != nil {
			return apis.BuildResult{}, fmt.Errorf("every_build(%s): %w", field, err)
		}

		wrapper, ok := l.cd.Primary(field)
		if !ok {
			continue
		}
		out, err := wrapper.Call()
		if err != nil {
			return apis.BuildResult{}, fmt.Errorf("building field %q: %w", field, err)
		}
		primary[field] = out

		if l.cfg.LogBuildMessage {
			for _, name := range wrapper.Order {
				l.logger.Info("excore: built module", zap.String("field", field), zap.String("name", name))
			}
		}
	}

	if err := l.hooks.Fire(apis.StageAfterBuild, moduleDict, isolatedDict); err != nil {
		return apis.BuildResult{}, fmt.Errorf("after_build: %w", err)
	}

	return apis.BuildResult{Primary: primary, Auxiliary: isolatedDict}, nil
}
