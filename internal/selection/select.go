package selection

import (
	"context"

	"github.com/kestrel-ci/pomimpact/internal/tsast"
	"github.com/kestrel-ci/pomimpact/pkg/types"
)

// SpecReader reads a spec's current content by repo-relative path.
type SpecReader func(path string) ([]byte, error)

// WarnFunc records a non-fatal diagnostic (spec §7 category 4).
type WarnFunc func(kind, path, message string)

// Input gathers everything Stage A and Stage B need: the full spec
// population plus the upstream sets Components A/G already computed.
type Input struct {
	Specs                   []string
	DirectChangedSpecs      map[string]bool
	ImportGraphMatchedSpecs map[string]bool
	FixtureKeys             map[string]bool
	FixtureKeyToClass       map[string]string
	ImpactedMethodsByClass  map[string]map[string]bool
	Bias                    types.SelectionBias
	LangFor                 func(path string) tsast.Language
	Read                    SpecReader
	Warn                    WarnFunc
}

// Output is the pipeline's contribution to the assembler: a reason per
// selected spec plus the two coverage counters spec §4.I names. Sorting
// the final path list happens once, at the assembler boundary (spec §5).
type Output struct {
	ReasonsByPath       map[string]types.SelectionReason
	StageASurvivorCount int
	UncertainSitesTotal int
}

// Select runs spec §4.H end to end: Stage A's fixture-key prefilter over
// every spec, then Stage B's precise/uncertain classification over the
// union of Stage A survivors, directly-changed specs, and import-graph
// matches.
func Select(ctx context.Context, in Input) Output {
	out := Output{ReasonsByPath: make(map[string]types.SelectionReason)}

	stageA := stageAPrefilter(ctx, in)
	out.StageASurvivorCount = len(stageA)

	candidates := make(map[string]bool, len(stageA)+len(in.DirectChangedSpecs)+len(in.ImportGraphMatchedSpecs))
	for s := range stageA {
		candidates[s] = true
	}
	for s := range in.DirectChangedSpecs {
		candidates[s] = true
	}
	for s := range in.ImportGraphMatchedSpecs {
		candidates[s] = true
	}

	for spec := range candidates {
		reason, uncertain, selected := classifySpec(ctx, spec, in)
		out.UncertainSitesTotal += uncertain
		if selected {
			out.ReasonsByPath[spec] = reason
		}
	}

	return out
}

// stageAPrefilter implements spec §4.H Stage A: a spec survives if it
// destructures at least one bound fixture key present in the impacted
// fixture_keys set.
func stageAPrefilter(ctx context.Context, in Input) map[string]bool {
	survivors := make(map[string]bool)
	for _, spec := range in.Specs {
		content, err := in.Read(spec)
		if err != nil {
			if in.Warn != nil {
				in.Warn("per-file-read-error", spec, "stage A prefilter: could not read spec: "+err.Error())
			}
			continue
		}
		tree, err := tsast.Parse(ctx, in.LangFor(spec), content)
		if err != nil {
			continue
		}
		for key := range BoundFixtureKeys(tree.RootNode(), content) {
			if in.FixtureKeys[key] {
				survivors[spec] = true
				break
			}
		}
	}
	return survivors
}

// classifySpec runs spec §4.H Stage B steps 1-9 for a single candidate
// spec, returning the reason it was kept (if any), and how many uncertain
// call sites it contributed to the coverage total regardless of outcome.
func classifySpec(ctx context.Context, spec string, in Input) (reason types.SelectionReason, uncertainSites int, selected bool) {
	if in.DirectChangedSpecs[spec] {
		return types.ReasonDirectChangedSpec, 0, true
	}
	if in.ImportGraphMatchedSpecs[spec] {
		return types.ReasonMatchedImportGraph, 0, true
	}

	content, err := in.Read(spec)
	if err != nil {
		if in.Warn != nil {
			in.Warn("per-file-read-error", spec, "stage B: could not read spec: "+err.Error())
		}
		return types.ReasonRetainedReadError, 0, true
	}

	tree, err := tsast.Parse(ctx, in.LangFor(spec), content)
	if err != nil {
		// Unparseable is treated the same as unreadable: dropping a spec we
		// cannot analyze would silently lose coverage (spec §7 category 3).
		return types.ReasonRetainedReadError, 0, true
	}
	root := tree.RootNode()

	hasBindings := false
	WalkFunctionScopes(root, content, func(scope FunctionScope) {
		for _, b := range scope.Bindings {
			if _, ok := in.FixtureKeyToClass[b.Key]; ok {
				hasBindings = true
			}
		}
	})
	if !hasBindings {
		return types.ReasonRetainedNoBindings, 0, true
	}

	if len(in.ImpactedMethodsByClass) == 0 {
		return types.ReasonRetainedNoImpactedMeth, 0, true
	}

	precise := 0
	WalkFunctionScopes(root, content, func(scope FunctionScope) {
		scan := classifyScope(scope, content, in.FixtureKeyToClass, in.ImpactedMethodsByClass)
		precise += scan.precise
		if scan.uncertain {
			uncertainSites++
		}
	})

	if precise > 0 {
		return types.ReasonMatchedPrecise, uncertainSites, true
	}
	if in.Bias == types.BiasFailOpen && uncertainSites > 0 {
		if in.Warn != nil {
			in.Warn("uncertain-call-site", spec, "selected via fail-open bias on an uncertain call site")
		}
		return types.ReasonMatchedUncertainOpen, uncertainSites, true
	}
	return "", uncertainSites, false
}
