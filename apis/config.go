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

import "go.uber.org/zap"

// Config carries the engine-wide runtime knobs that influence validation,
// interactivity and logging. It is passed by value and treated as
// immutable by implementations, the same way rfx's apis.Config carried
// read-only resolution knobs through the strategy chain.
type Config struct {
	// Validate enables required-parameter validation when a Node is
	// called to build its target (EXCORE_VALIDATE).
	Validate bool

	// ManualSet enables interactive prompting for missing required
	// parameters when a Prompter capability is also supplied
	// (EXCORE_MANUAL_SET).
	ManualSet bool

	// LogBuildMessage enables a per-instance success log during
	// build_all (EXCORE_LOG_BUILD_MESSAGE).
	LogBuildMessage bool

	// Debug makes config.FromEnv build a development (debug-level) zap
	// Logger when none is given (EXCORE_DEBUG). The resolver itself emits
	// no trace records.
	Debug bool

	// Logger receives structured log records. A nil Logger is treated as
	// zap.NewNop() by every consumer.
	Logger *zap.Logger

	// Prompter supplies interactive prompting when ManualSet is set. A
	// nil Prompter makes ManualSet inert: validation still fails with
	// ErrModuleValidate instead of blocking on stdin.
	Prompter Prompter
}

// Prompter asks the embedding program for a value of a missing required
// parameter during manual-set validation. Implementations typically read
// a line from a TTY and hand it to the literal parser.
type Prompter interface {
	// Prompt asks for a value for the named parameter of target and
	// returns the literal text the user supplied.
	Prompt(target, param string) (string, error)
}
