package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrel-ci/pomimpact/pkg/types"
)

func TestDefaultConfig_HasEveryRequiredFieldSet(t *testing.T) {
	cfg := DefaultConfig("/repo")
	if err := NewValidator().Validate(cfg); err != nil {
		t.Fatalf("expected DefaultConfig to validate cleanly, got %v", err)
	}
}

func TestApplyDefaults_FillsFixturesTypesRelativeFromFirstExtension(t *testing.T) {
	cfg := &Config{FileExtensions: []string{".tsx", ".ts"}}
	cfg.ApplyDefaults()
	if cfg.Profile.FixturesTypesRelative != "src/fixtures/types.tsx" {
		t.Errorf("expected fixtures path to use the first configured extension, got %q", cfg.Profile.FixturesTypesRelative)
	}
}

func TestApplyDefaults_LowercasesExplicitExtensions(t *testing.T) {
	cfg := &Config{FileExtensions: []string{".TS", ".TSX"}}
	cfg.ApplyDefaults()
	if cfg.FileExtensions[0] != ".ts" || cfg.FileExtensions[1] != ".tsx" {
		t.Errorf("expected extensions to be lowercased, got %v", cfg.FileExtensions)
	}
}

func TestApplyDefaults_LeavesExplicitSelectionBiasAlone(t *testing.T) {
	cfg := &Config{SelectionBias: string(types.BiasFailClosed)}
	cfg.ApplyDefaults()
	if cfg.SelectionBias != string(types.BiasFailClosed) {
		t.Errorf("expected explicit selection_bias to survive defaulting, got %q", cfg.SelectionBias)
	}
}

func TestLoad_MissingFileReturnsDefaultsNotError(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Profile.TestsRootRelative != "tests" {
		t.Errorf("expected the built-in default profile, got %+v", cfg.Profile)
	}
}

func TestLoad_PartialDocumentKeepsDefaultsForOmittedKeys(t *testing.T) {
	dir := t.TempDir()
	doc := "profile:\n  tests_root_relative: e2e\n  changed_spec_prefix: e2e/\n  is_relevant_pom_path_globs:\n    - \"pages/**/*.ts\"\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(doc), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Profile.TestsRootRelative != "e2e" {
		t.Errorf("expected explicit tests_root_relative to be honored, got %q", cfg.Profile.TestsRootRelative)
	}
	if !cfg.IncludeUntrackedSpecs || !cfg.IncludeWorkingTreeWithBase {
		t.Errorf("expected omitted bool keys to keep DefaultConfig's true default, got %+v", cfg)
	}
	if cfg.Profile.GlobalWatchMode != string(types.GlobalWatchForceAllInProject) {
		t.Errorf("expected omitted global_watch_mode to keep its default, got %q", cfg.Profile.GlobalWatchMode)
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.Profile.TestsRootRelative = "specs"

	if err := Save(dir, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists(dir) {
		t.Fatal("expected Exists to report the saved config file")
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Profile.TestsRootRelative != "specs" {
		t.Errorf("expected round-tripped value, got %q", loaded.Profile.TestsRootRelative)
	}
}

func TestValidate_RejectsMissingProfileGlobs(t *testing.T) {
	cfg := &Config{RepoRoot: "/repo", Profile: Profile{TestsRootRelative: "tests", ChangedSpecPrefix: "tests/"}}
	if err := NewValidator().Validate(cfg); err == nil {
		t.Fatal("expected validation error for an empty is_relevant_pom_path_globs")
	}
}

func TestValidate_RejectsRelativeRepoRoot(t *testing.T) {
	cfg := DefaultConfig("relative/path")
	if err := NewValidator().Validate(cfg); err == nil {
		t.Fatal("expected validation error for a non-absolute repo_root")
	}
}

func TestPathPredicate_MatchesConfiguredGlobsOnly(t *testing.T) {
	cfg := DefaultConfig("/repo")
	cfg.Profile.RelevantPomPathGlobs = []string{"src/**/*.ts"}
	predicate := cfg.PathPredicate()

	if !predicate("src/pages/LoginPage.ts") {
		t.Error("expected a nested .ts file under src/ to match")
	}
	if predicate("tests/login.spec.ts") {
		t.Error("expected a tests/ path not to match a src/ glob")
	}
}

func TestGlobalWatchPredicate_MatchesBuiltinDefaults(t *testing.T) {
	cfg := DefaultConfig("/repo")
	predicate := cfg.GlobalWatchPredicate()
	if !predicate("package.json") {
		t.Error("expected package.json to match the built-in global-watch defaults")
	}
	if predicate("src/pages/LoginPage.ts") {
		t.Error("expected an ordinary source file not to match global-watch defaults")
	}
}
