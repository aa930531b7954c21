// Package config loads, defaults, and validates the invocation record
// described in spec §6: a plain YAML-tagged struct, a DefaultConfig
// constructor, and Load/Save against a single dotfile in the repository
// root.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kestrel-ci/pomimpact/internal/walk"
	"github.com/kestrel-ci/pomimpact/pkg/types"
)

// FileName is the config dotfile pomimpact reads from and writes to.
const FileName = ".pomimpact.yaml"

// Profile holds the POM-suite-shape fields from spec §6's `profile.*`
// namespace.
type Profile struct {
	TestsRootRelative     string   `yaml:"tests_root_relative" validate:"required"`
	ChangedSpecPrefix     string   `yaml:"changed_spec_prefix" validate:"required"`
	RelevantPomPathGlobs  []string `yaml:"is_relevant_pom_path_globs" validate:"required,min=1,dive,min=1"`
	AnalysisRootsRelative []string `yaml:"analysis_roots_relative,omitempty"`
	FixturesTypesRelative string   `yaml:"fixtures_types_relative,omitempty"`
	GlobalWatchPatterns   []string `yaml:"global_watch_patterns,omitempty"`
	GlobalWatchMode       string   `yaml:"global_watch_mode,omitempty" validate:"omitempty,oneof=force-all-in-project disabled"`
}

// Config is the full invocation record, matching every row of spec §6's
// field table.
type Config struct {
	RepoRoot                   string   `yaml:"repo_root" validate:"required"`
	BaseRef                    string   `yaml:"base_ref,omitempty"`
	Profile                    Profile  `yaml:"profile" validate:"required"`
	IncludeUntrackedSpecs      bool     `yaml:"include_untracked_specs"`
	IncludeWorkingTreeWithBase bool     `yaml:"include_working_tree_with_base"`
	FileExtensions             []string `yaml:"file_extensions,omitempty"`
	SelectionBias              string   `yaml:"selection_bias,omitempty" validate:"omitempty,oneof=fail-open balanced fail-closed"`
}

// defaultGlobalWatchPatterns is the built-in list spec §6 falls back to
// when profile.global_watch_patterns is empty: changes to build/tooling
// configuration are conservatively assumed to affect everything.
var defaultGlobalWatchPatterns = []string{
	"**/package.json",
	"**/package-lock.json",
	"**/pnpm-lock.yaml",
	"**/yarn.lock",
	"**/tsconfig*.json",
	"**/playwright.config.*",
	"**/*.config.ts",
	"**/*.config.js",
}

// ApplyDefaults fills every optional field left zero-valued with the
// default named in spec §6.
func (c *Config) ApplyDefaults() {
	if c.Profile.FixturesTypesRelative == "" {
		ext := ".ts"
		if len(c.FileExtensions) > 0 {
			ext = c.FileExtensions[0]
		}
		c.Profile.FixturesTypesRelative = "src/fixtures/types" + ext
	}
	if c.Profile.GlobalWatchMode == "" {
		c.Profile.GlobalWatchMode = string(types.GlobalWatchForceAllInProject)
	}
	if len(c.Profile.GlobalWatchPatterns) == 0 {
		c.Profile.GlobalWatchPatterns = defaultGlobalWatchPatterns
	}
	if len(c.Profile.AnalysisRootsRelative) == 0 {
		c.Profile.AnalysisRootsRelative = []string{"src"}
	}
	if len(c.FileExtensions) == 0 {
		c.FileExtensions = []string{".ts", ".tsx"}
	} else {
		for i, ext := range c.FileExtensions {
			c.FileExtensions[i] = strings.ToLower(ext)
		}
	}
	if c.SelectionBias == "" {
		c.SelectionBias = string(types.BiasFailOpen)
	}
	// include_untracked_specs and include_working_tree_with_base default
	// true (spec §6); YAML's zero value for bool is false, so a config
	// file that never mentions these keys needs to be distinguished from
	// one that sets them to false. Callers that parse from YAML should
	// use DefaultConfig() as the unmarshal target so yaml.v3 only
	// overwrites fields actually present in the document.
}

// DefaultConfig returns a Config with every spec §6 default applied,
// suitable as an yaml.Unmarshal target so omitted keys keep their default
// rather than becoming the zero value.
func DefaultConfig(repoRoot string) *Config {
	cfg := &Config{
		RepoRoot:                   repoRoot,
		IncludeUntrackedSpecs:      true,
		IncludeWorkingTreeWithBase: true,
		FileExtensions:             []string{".ts", ".tsx"},
		SelectionBias:              string(types.BiasFailOpen),
		Profile: Profile{
			TestsRootRelative:     "tests",
			ChangedSpecPrefix:     "tests/",
			RelevantPomPathGlobs:  []string{"src/**/*.ts", "src/**/*.tsx"},
			AnalysisRootsRelative: []string{"src"},
			GlobalWatchMode:       string(types.GlobalWatchForceAllInProject),
			GlobalWatchPatterns:   defaultGlobalWatchPatterns,
		},
	}
	return cfg
}

// Load reads FileName from dir, applying defaults for any field the
// document omits. A missing file is not an error: the default config is
// returned so callers never have to special-case an unconfigured repo.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	cfg := DefaultConfig(dir)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Save writes cfg to FileName under dir.
func Save(dir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Exists reports whether dir already has a FileName config.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}

// ConfigWithComments returns the commented .pomimpact.yaml template written
// by `pomimpact config init`, so a freshly scaffolded repo documents every
// field inline instead of pointing users at external reference docs.
func ConfigWithComments() string {
	return `# pomimpact configuration
# https://github.com/kestrel-ci/pomimpact

# Directory (relative to repo_root) that holds your Playwright/Cypress spec
# files, and the prefix a changed path must carry to count as a spec edit.
profile:
  tests_root_relative: tests
  changed_spec_prefix: tests/

  # Glob(s) identifying Page-Object-Model source files. Edits outside these
  # globs never seed the propagation graph.
  is_relevant_pom_path_globs:
    - "src/**/*.ts"
    - "src/**/*.tsx"

  # Directories walked to build the class/inheritance/composition model.
  # Defaults to ["src"] if omitted.
  analysis_roots_relative:
    - src

  # File declaring the ` + "`" + `Fixtures` + "`" + ` interface mapping fixture keys to POM
  # classes. Defaults to src/fixtures/types<first file_extension>.
  # fixtures_types_relative: src/fixtures/types.ts

  # Glob patterns that force every spec to be selected when matched
  # (build/tooling files). A list here replaces the built-in defaults;
  # leave it unset to use them (package.json, lockfiles, tsconfig*.json,
  # playwright.config.*, *.config.ts, *.config.js).
  # global_watch_patterns:
  #   - "**/package.json"

  # force-all-in-project (default) or disabled.
  # global_watch_mode: force-all-in-project

# Extra base ref to diff against HEAD, e.g. "origin/main". Leave empty to
# diff only the working tree against HEAD.
# base_ref: origin/main

# Whether to also diff the working tree against HEAD when base_ref is set.
include_working_tree_with_base: true

# Whether untracked (never-committed) spec files are eligible for selection.
include_untracked_specs: true

# Extensions considered source/spec files.
file_extensions:
  - .ts
  - .tsx

# How Stage B treats uncertain call sites: fail-open, balanced, fail-closed.
selection_bias: fail-open
`
}

// PathPredicate returns the profile.is_relevant_pom_path predicate
// described in spec §6, compiled from the profile's glob list: a path
// matches if it satisfies any configured glob. YAML has no function
// type, so the predicate is expressed as a glob list at rest and compiled
// once here into a closure callers can invoke per path without
// re-parsing the pattern list on every call.
func (c *Config) PathPredicate() func(path string) bool {
	globs := c.Profile.RelevantPomPathGlobs
	return func(path string) bool {
		for _, g := range globs {
			if walk.MatchGlob(g, path) {
				return true
			}
		}
		return false
	}
}

// GlobalWatchPredicate compiles profile.global_watch_patterns the same way.
func (c *Config) GlobalWatchPredicate() func(path string) bool {
	globs := c.Profile.GlobalWatchPatterns
	return func(path string) bool {
		for _, g := range globs {
			if walk.MatchGlob(g, path) {
				return true
			}
		}
		return false
	}
}
