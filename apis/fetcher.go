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

import "context"

// Fetcher is the optional model-hub collaborator (spec §1 "git/HTTP
// model-hub downloads" — explicitly out of the core's scope, but named
// by the error taxonomy in §7). It is a defined interface the core never
// calls directly; CLI subcommands and user code use it to materialize a
// remote source locally before registering it.
type Fetcher interface {
	// FetchGit clones or updates repo at ref into destDir.
	FetchGit(ctx context.Context, repo, ref, destDir string) error
	// FetchHTTP downloads url into destPath.
	FetchHTTP(ctx context.Context, url, destPath string) error
}
