// Package engine is the top-level orchestrator: it wires the Change-Set
// Normalizer, Global-Watch Evaluator, Fixture Map Parser, Inheritance Graph
// Builder, Semantic Change Detector, Impact Propagation Engine, Import-Graph
// Selector, Spec Selection Pipeline, and Result Assembler into the single
// Run entry point the cmd/pomimpact CLI (and any other embedder) calls.
package engine

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kestrel-ci/pomimpact/internal/assembler"
	"github.com/kestrel-ci/pomimpact/internal/changeset"
	"github.com/kestrel-ci/pomimpact/internal/config"
	"github.com/kestrel-ci/pomimpact/internal/fixturemap"
	"github.com/kestrel-ci/pomimpact/internal/globalwatch"
	"github.com/kestrel-ci/pomimpact/internal/importgraph"
	"github.com/kestrel-ci/pomimpact/internal/inheritance"
	"github.com/kestrel-ci/pomimpact/internal/moduleresolve"
	"github.com/kestrel-ci/pomimpact/internal/propagation"
	"github.com/kestrel-ci/pomimpact/internal/selection"
	"github.com/kestrel-ci/pomimpact/internal/semantic"
	"github.com/kestrel-ci/pomimpact/internal/tsast"
	"github.com/kestrel-ci/pomimpact/internal/tsconfig"
	"github.com/kestrel-ci/pomimpact/internal/vcs"
	"github.com/kestrel-ci/pomimpact/internal/walk"
	"github.com/kestrel-ci/pomimpact/pkg/types"
)

// Config is the invocation record spec §6 names; it is internal/config's
// Config directly so a caller that loaded the dotfile through
// config.ValidateAndLoad can hand the result straight to Run.
type Config = config.Config

// Result is the complete output of one engine invocation (spec §4.I, §6).
type Result = types.Result

// Run executes one complete analysis: enumerate changes, normalize them,
// check global-watch, and — unless global-watch forced every spec — build
// the inheritance/composition/call graphs, detect semantic changes, BFS the
// impact outward, and run the two-stage spec selection pipeline.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	cfg.ApplyDefaults()
	if err := config.NewValidator().Validate(&cfg); err != nil {
		return nil, &ConfigurationError{Detail: err.Error()}
	}

	repo, err := vcs.Open(cfg.RepoRoot)
	if err != nil {
		return nil, &SourceEnumerationError{Detail: "opening repository", Cause: err}
	}

	const headRev = "HEAD"

	var warnings []types.Warning
	statusFallbacks := 0
	warn := func(kind, path, message string) {
		warnings = append(warnings, types.Warning{Kind: kind, Path: path, Message: message})
		if kind == "status-fallback" {
			statusFallbacks++
		}
	}

	batches, err := collectBatches(repo, cfg, headRev)
	if err != nil {
		return nil, err
	}

	testsRoot := cfg.Profile.TestsRootRelative
	specPrefix := cfg.Profile.ChangedSpecPrefix
	pomPredicate := cfg.PathPredicate()
	gwPredicate := cfg.GlobalWatchPredicate()
	isSpec := specPathPredicate(testsRoot, cfg.FileExtensions)
	filter := func(path string) bool {
		return pomPredicate(path) || isSpec(path) || strings.HasPrefix(path, specPrefix) || gwPredicate(path)
	}

	changed := changeset.Normalize(batches, filter, warn)

	statusCounts := make(map[types.ChangeStatus]int, 4)
	var sources types.ChangeSourceBreakdown
	for _, c := range changed {
		statusCounts[c.Status]++
		switch c.Source {
		case types.SourceBaseHead:
			sources.BaseHead++
		case types.SourceWorkingTree:
			sources.WorkingTree++
		case types.SourceUntracked:
			sources.Untracked++
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	readWorking := func(path string) ([]byte, error) { return repo.ReadFile("", path) }
	langFor := func(path string) tsast.Language { return tsast.LanguageForPath(path) }

	tscfg, err := tsconfig.Load(filepath.Join(cfg.RepoRoot, "tsconfig.json"))
	if err != nil {
		warn("per-file-read-error", "tsconfig.json", "could not parse tsconfig for module resolution: "+err.Error())
		tscfg = &tsconfig.Config{}
	}
	resolver := moduleresolve.New(cfg.RepoRoot, tscfg, cfg.FileExtensions)

	gwMode := types.GlobalWatchMode(cfg.Profile.GlobalWatchMode)
	gwSummary := globalwatch.Evaluate(ctx, gwMode, changed, gwPredicate, resolver, langFor, readWorking, warn)

	specs, err := listSpecs(cfg, testsRoot)
	if err != nil {
		return nil, &SourceEnumerationError{Detail: "listing tests root", Cause: err}
	}

	if gwSummary.Forced {
		return assembler.ForceAll(cfg.RepoRoot, specs, gwSummary, statusCounts, sources, warnings), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fmap, err := fixturemap.ParseFile(ctx, tsast.LanguageForPath(cfg.Profile.FixturesTypesRelative), filepath.Join(cfg.RepoRoot, filepath.FromSlash(cfg.Profile.FixturesTypesRelative)))
	if err != nil {
		warn("per-file-read-error", cfg.Profile.FixturesTypesRelative, "could not parse fixture map: "+err.Error())
		fmap = &fixturemap.Map{ClassToFixtureKeys: map[string]map[string]bool{}, FixtureKeyToClass: map[string]string{}}
	}

	analysisFiles, err := loadAnalysisRoots(cfg, readWorking, warn)
	if err != nil {
		return nil, &SourceEnumerationError{Detail: "listing analysis roots", Cause: err}
	}

	inh, err := inheritance.Build(ctx, toInheritanceSources(analysisFiles))
	if err != nil {
		warn("per-file-read-error", "", "inheritance graph build: "+err.Error())
		inh = inheritance.New()
	}
	graph := propagation.Build(ctx, toPropagationSources(analysisFiles), inh)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	changedMethodsByClass, changedMethodsCount, topLevelRuntimeChangedFiles := detectSemanticChanges(ctx, repo, changed, pomPredicate, cfg.BaseRef, headRev, warn)

	edges := graph.ExtractEdges(warn)
	seeds, unresolved := graph.Seed(changedMethodsByClass)
	visited := propagation.BFS(edges, seeds)
	propResult := graph.Project(visited, unresolved)

	fixtureKeys := make(map[string]bool)
	for class := range propResult.ImpactedClasses {
		for key := range fmap.ClassToFixtureKeys[class] {
			fixtureKeys[key] = true
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	directSpecs := directChangedSpecs(changed, specPrefix, cfg.FileExtensions)

	importSeed := make(map[string]bool)
	for _, entry := range changed {
		if entry.Status != types.StatusDeleted && pomPredicate(entry.EffectivePath) {
			importSeed[entry.EffectivePath] = true
		}
	}
	ig := importgraph.Build(ctx, specs, resolver, langFor, readWorking, warn)
	importMatched := ig.SelectSpecs(importSeed, specs)

	selOut := selection.Select(ctx, selection.Input{
		Specs:                   specs,
		DirectChangedSpecs:      directSpecs,
		ImportGraphMatchedSpecs: importMatched,
		FixtureKeys:             fixtureKeys,
		FixtureKeyToClass:       fmap.FixtureKeyToClass,
		ImpactedMethodsByClass:  propResult.ImpactedMethodsByClass,
		Bias:                    types.SelectionBias(cfg.SelectionBias),
		LangFor:                 langFor,
		Read:                    readWorking,
		Warn:                    warn,
	})

	coverage := types.CoverageStats{
		UncertainCallSitesTotal: selOut.UncertainSitesTotal,
		StatusFallbacks:         statusFallbacks,
	}

	sizes := types.SizeStats{
		ChangedFiles:                len(changed),
		ChangedMethods:              changedMethodsCount,
		TopLevelRuntimeChangedFiles: topLevelRuntimeChangedFiles,
		ImpactedClasses:             len(propResult.ImpactedClasses),
		ImpactedMethods:             sumMethodNames(propResult.ImpactedMethodsByClass),
		FixtureKeys:                 len(fixtureKeys),
		SpecsConsideredStageA:       selOut.StageASurvivorCount,
	}

	return assembler.Assemble(assembler.Input{
		RepoRoot:      cfg.RepoRoot,
		StatusCounts:  statusCounts,
		Warnings:      warnings,
		Coverage:      coverage,
		ChangeSources: sources,
		GlobalWatch:   gwSummary,
		Sizes:         sizes,
		ReasonsByPath: selOut.ReasonsByPath,
	}), nil
}

// collectBatches gathers the RawEntry batches named in spec §4.A: a
// base-vs-head diff when base_ref is set (optionally unioned with the
// working-tree-vs-head diff), or working-tree-vs-head alone when base_ref
// is empty, plus untracked files when configured.
func collectBatches(repo *vcs.Repo, cfg Config, headRev string) ([][]vcs.RawEntry, error) {
	var batches [][]vcs.RawEntry

	if cfg.BaseRef != "" {
		baseHead, err := repo.BaseHeadChanges(cfg.BaseRef, headRev)
		if err != nil {
			return nil, &SourceEnumerationError{Detail: "base-vs-head diff", Cause: err}
		}
		batches = append(batches, baseHead)
		if cfg.IncludeWorkingTreeWithBase {
			wt, err := repo.WorkingTreeChanges(headRev)
			if err != nil {
				return nil, &SourceEnumerationError{Detail: "working-tree-vs-head diff", Cause: err}
			}
			batches = append(batches, wt)
		}
	} else {
		wt, err := repo.WorkingTreeChanges(headRev)
		if err != nil {
			return nil, &SourceEnumerationError{Detail: "working-tree-vs-head diff", Cause: err}
		}
		batches = append(batches, wt)
	}

	if cfg.IncludeUntrackedSpecs {
		untracked, err := repo.UntrackedFiles()
		if err != nil {
			return nil, &SourceEnumerationError{Detail: "untracked file listing", Cause: err}
		}
		batches = append(batches, untracked)
	}

	return batches, nil
}

// listSpecs enumerates every spec file under the tests root, sorted, so
// global-watch's force-all and the selection pipeline's candidate
// population see the exact same population (spec §4.B, §4.H).
func listSpecs(cfg Config, testsRoot string) ([]string, error) {
	lister := walk.New(filepath.Join(cfg.RepoRoot, testsRoot), nil)
	files, err := lister.FilesWithExtensions(cfg.FileExtensions)
	if err != nil {
		return nil, err
	}
	var specs []string
	for _, f := range files {
		if !isSpecFileName(f.Name, cfg.FileExtensions) {
			continue
		}
		specs = append(specs, filepath.ToSlash(filepath.Join(testsRoot, f.Path)))
	}
	sort.Strings(specs)
	return specs, nil
}

type analysisFile struct {
	path    string
	lang    tsast.Language
	content []byte
}

// loadAnalysisRoots reads every source file under the configured analysis
// roots once, so Component D and Component F's Build both read the exact
// same snapshot (spec §2's data-flow: D and F run independently over the
// same input population).
func loadAnalysisRoots(cfg Config, read func(string) ([]byte, error), warn func(kind, path, message string)) ([]analysisFile, error) {
	var out []analysisFile
	for _, root := range cfg.Profile.AnalysisRootsRelative {
		lister := walk.New(filepath.Join(cfg.RepoRoot, root), nil)
		files, err := lister.FilesWithExtensions(cfg.FileExtensions)
		if err != nil {
			warn("per-file-read-error", root, "could not list analysis root: "+err.Error())
			continue
		}
		for _, f := range files {
			relPath := filepath.ToSlash(filepath.Join(root, f.Path))
			content, err := read(relPath)
			if err != nil {
				warn("per-file-read-error", relPath, "could not read for analysis: "+err.Error())
				continue
			}
			lang := tsast.LanguageForPath(relPath)
			if lang == tsast.LangUnknown {
				continue
			}
			out = append(out, analysisFile{path: relPath, lang: lang, content: content})
		}
	}
	return out, nil
}

func toInheritanceSources(files []analysisFile) []inheritance.SourceFile {
	out := make([]inheritance.SourceFile, len(files))
	for i, f := range files {
		out[i] = inheritance.SourceFile{Path: f.path, Language: f.lang, Content: f.content}
	}
	return out
}

func toPropagationSources(files []analysisFile) []propagation.SourceFile {
	out := make([]propagation.SourceFile, len(files))
	for i, f := range files {
		out[i] = propagation.SourceFile{Path: f.path, Language: f.lang, Content: f.content}
	}
	return out
}

// detectSemanticChanges runs Component E over every relevant changed file.
// A changed file's base revision is base_ref if configured, else HEAD; its
// head revision is always the empty string (current working-tree content),
// so a clean working tree against base_ref="" still diffs HEAD vs. disk —
// the open question spec §9 leaves to the implementation.
func detectSemanticChanges(ctx context.Context, repo *vcs.Repo, changed []types.ChangeEntry, pomPredicate func(string) bool, baseRef, headRev string, warn func(kind, path, message string)) (map[string]map[string]bool, int, int) {
	baseRev := baseRef
	if baseRev == "" {
		baseRev = headRev
	}

	readAtRevision := func(revision, path string) ([]byte, error) { return repo.ReadFile(revision, path) }
	detector := semantic.New(4096)

	changedMethodsByClass := make(map[string]map[string]bool)
	topLevelRuntimeChangedFiles := 0

	for _, entry := range changed {
		if !pomPredicate(entry.EffectivePath) {
			continue
		}
		lang := tsast.LanguageForPath(entry.EffectivePath)
		if lang == tsast.LangUnknown {
			continue
		}
		result, err := detector.DetectFile(ctx, entry, baseRev, "", lang, readAtRevision, warn)
		if err != nil {
			warn("per-file-read-error", entry.EffectivePath, "semantic detector: "+err.Error())
			continue
		}
		if result == nil {
			continue
		}
		if result.TopLevelRuntimeChanged {
			topLevelRuntimeChangedFiles++
		}
		for class, names := range result.ChangedMethodsByClass {
			if changedMethodsByClass[class] == nil {
				changedMethodsByClass[class] = make(map[string]bool)
			}
			for name := range names {
				changedMethodsByClass[class][name] = true
			}
		}
	}

	count := 0
	for _, names := range changedMethodsByClass {
		count += len(names)
	}
	return changedMethodsByClass, count, topLevelRuntimeChangedFiles
}

func directChangedSpecs(changed []types.ChangeEntry, specPrefix string, extensions []string) map[string]bool {
	out := make(map[string]bool)
	for _, entry := range changed {
		if entry.Status == types.StatusDeleted {
			continue
		}
		if strings.HasPrefix(entry.EffectivePath, specPrefix) && isSpecFileName(filepath.Base(entry.EffectivePath), extensions) {
			out[entry.EffectivePath] = true
		}
	}
	return out
}

func specPathPredicate(testsRoot string, extensions []string) func(path string) bool {
	return func(path string) bool {
		if path != testsRoot && !strings.HasPrefix(path, testsRoot+"/") {
			return false
		}
		return isSpecFileName(filepath.Base(path), extensions)
	}
}

func isSpecFileName(name string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ".spec"+ext) {
			return true
		}
	}
	return false
}

func sumMethodNames(m map[string]map[string]bool) int {
	n := 0
	for _, names := range m {
		n += len(names)
	}
	return n
}
