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

// Workspace is the parsed `.excore.toml` descriptor (spec §6). It is read
// once at start-up into a process-wide struct; CLI-driven mutation is
// write-then-reread and is outside the core's scope.
type Workspace struct {
	Name              string            `toml:"name"`
	SrcDir            string            `toml:"src_dir"`
	BaseDir           string            `toml:"base_dir"`
	CacheBaseDir      string            `toml:"cache_base_dir"`
	CacheDir          string            `toml:"cache_dir"`
	RegistryCacheFile string            `toml:"registry_cache_file"`
	JSONSchemaFile    string            `toml:"json_schema_file"`
	ClassMappingFile  string            `toml:"class_mapping_file"`
	Registries        []string          `toml:"registries"`
	PrimaryFields     []string          `toml:"primary_fields"`
	PrimaryToRegistry map[string]string `toml:"primary_to_registry"`
	JSONSchemaFields  map[string]any    `toml:"json_schema_fields"`
	Props             map[string]any    `toml:"props"`
	ExcoreValidate    bool              `toml:"excore_validate"`
	ExcoreManualSet   bool              `toml:"excore_manual_set"`
	ExcoreLogBuild    bool              `toml:"excore_log_build_message"`
}

// RegistryDecl is a parsed entry of Workspace.Registries: "Name" or
// "Name: child1, child2" with an optional leading "*" marking Name as a
// primary field.
type RegistryDecl struct {
	Name      string
	Children  []string
	IsPrimary bool
}
