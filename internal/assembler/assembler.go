// Package assembler implements Component I, the Result Assembler: it takes
// every intermediate statistic and the selection pipeline's per-spec
// reasons and produces the single deterministic, sorted types.Result the
// rest of the system sees (spec §4.I).
package assembler

import (
	"path/filepath"
	"sort"

	"github.com/kestrel-ci/pomimpact/pkg/types"
)

// Input collects everything the assembler needs from the rest of the
// pipeline. Every List-typed field is sorted here, once, per spec §5 — the
// upstream components never need to sort their own output.
type Input struct {
	RepoRoot      string
	StatusCounts  map[types.ChangeStatus]int
	Warnings      []types.Warning
	Coverage      types.CoverageStats
	ChangeSources types.ChangeSourceBreakdown
	GlobalWatch   types.GlobalWatchSummary
	Sizes         types.SizeStats
	ReasonsByPath map[string]types.SelectionReason
}

// Assemble builds the final Result: sorted selected-spec list (and its
// absolute-path twin), a copy of the reason map, sorted warnings, and the
// size/coverage/change-source statistics passed through unchanged.
func Assemble(in Input) *types.Result {
	paths := make([]string, 0, len(in.ReasonsByPath))
	for p := range in.ReasonsByPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	abs := make([]string, len(paths))
	for i, p := range paths {
		abs[i] = filepath.Join(in.RepoRoot, filepath.FromSlash(p))
	}

	reasons := make(map[string]types.SelectionReason, len(in.ReasonsByPath))
	for k, v := range in.ReasonsByPath {
		reasons[k] = v
	}

	warnings := sortedWarnings(in.Warnings)

	statusCounts := in.StatusCounts
	if statusCounts == nil {
		statusCounts = make(map[types.ChangeStatus]int)
	}

	sizes := in.Sizes
	sizes.SpecsSelected = len(paths)

	return &types.Result{
		SelectedSpecs:    paths,
		SelectedSpecsAbs: abs,
		ReasonsByPath:    reasons,
		StatusCounts:     statusCounts,
		Warnings:         warnings,
		Coverage:         in.Coverage,
		ChangeSources:    in.ChangeSources,
		GlobalWatch:      in.GlobalWatch,
		Sizes:            sizes,
		HasAnythingToRun: len(paths) > 0,
	}
}

// ForceAll builds the short-circuited result for spec §4.B's global-watch
// path: every spec under the tests root is selected with reason
// global-watch-force-all, and the rest of the pipeline's intermediate
// statistics are left zeroed (spec §8: "intermediate statistics are
// zeroed" on force-all).
func ForceAll(repoRoot string, specs []string, summary types.GlobalWatchSummary, statusCounts map[types.ChangeStatus]int, changeSources types.ChangeSourceBreakdown, warnings []types.Warning) *types.Result {
	reasons := make(map[string]types.SelectionReason, len(specs))
	for _, s := range specs {
		reasons[s] = types.ReasonGlobalWatchForceAll
	}
	return Assemble(Input{
		RepoRoot:      repoRoot,
		StatusCounts:  statusCounts,
		Warnings:      warnings,
		ChangeSources: changeSources,
		GlobalWatch:   summary,
		ReasonsByPath: reasons,
	})
}

func sortedWarnings(in []types.Warning) []types.Warning {
	out := make([]types.Warning, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Message < out[j].Message
	})
	return out
}
