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

import "errors"

// Error taxonomy. Every fatal condition the engine can raise is one of
// these sentinels, wrapped with call-site context via fmt.Errorf's %w.
// Callers branch on error kind with errors.Is against these values, never
// by matching message text.
var (
	// ErrConfigSupport covers malformed workspaces and unsupported file
	// extensions (anything other than TOML).
	ErrConfigSupport = errors.New("excore: config support error")

	// ErrConfigParse covers every resolver-level failure: unknown
	// reference, multi-field ambiguity, Reused/Intermediate type
	// conflict, unknown sigil, malformed "$field::name".
	ErrConfigParse = errors.New("excore: config parse error")

	// ErrStrToClass is returned when a dotted target path cannot be
	// resolved to a registered symbol.
	ErrStrToClass = errors.New("excore: unresolvable target path")

	// ErrModuleBuild wraps a panic/error raised while instantiating a
	// target.
	ErrModuleBuild = errors.New("excore: module build error")

	// ErrModuleValidate is returned when a required parameter is absent
	// and non-interactive validation is in effect.
	ErrModuleValidate = errors.New("excore: module validation error")

	// ErrEnvVarParse is returned when a ${VAR} interpolation has no
	// binding.
	ErrEnvVarParse = errors.New("excore: environment variable expansion error")

	// ErrHookBuild covers malformed argument-hook declarations.
	ErrHookBuild = errors.New("excore: hook build error")

	// ErrHookManagerBuild covers malformed lifecycle-hook declarations
	// (invalid stage, non-positive lifespan/interval).
	ErrHookManagerBuild = errors.New("excore: hook manager build error")

	// ErrRegistryConflict is returned when a non-forced Register or Merge
	// would overwrite an existing short name with a different qualified
	// path.
	ErrRegistryConflict = errors.New("excore: conflicting registry entry")

	// ErrRegistrySchema is returned when a Pool.Declare call names an
	// extra-field schema that disagrees with an already-declared
	// Registry of the same name.
	ErrRegistrySchema = errors.New("excore: conflicting registry schema")

	// ErrRegistryCache wraps failures dumping or loading a Pool's cache
	// file (I/O, advisory lock acquisition, incompatible envelope
	// version).
	ErrRegistryCache = errors.New("excore: registry cache error")

	// Fetcher family: raised only by the optional model-hub collaborator.

	// ErrInvalidRepo indicates a malformed repository reference.
	ErrInvalidRepo = errors.New("excore(fetcher): invalid repository reference")
	// ErrInvalidGitHost indicates a git host excore does not recognize.
	ErrInvalidGitHost = errors.New("excore(fetcher): invalid git host")
	// ErrGitPull indicates a failure while pulling/cloning a repository.
	ErrGitPull = errors.New("excore(fetcher): git pull failed")
	// ErrGitCheckout indicates a failure while checking out a ref.
	ErrGitCheckout = errors.New("excore(fetcher): git checkout failed")
	// ErrInvalidProtocol indicates an unsupported download protocol.
	ErrInvalidProtocol = errors.New("excore(fetcher): invalid protocol")
	// ErrHTTPDownload indicates a failure while downloading over HTTP(S).
	ErrHTTPDownload = errors.New("excore(fetcher): http download failed")
)
