// Package globalwatch implements Component B, the Global-Watch Evaluator:
// it decides whether the change set touches a configured "force-all"
// pattern and, if so, short-circuits the rest of the pipeline. Only a
// direct pattern match on a changed path forces all: the import closure it
// computes is rooted at those already-matched changed paths, so a changed
// file that is only imported by a pattern-matched file does not force all.
package globalwatch

import (
	"context"

	"github.com/kestrel-ci/pomimpact/internal/moduleresolve"
	"github.com/kestrel-ci/pomimpact/internal/tsast"
	"github.com/kestrel-ci/pomimpact/pkg/types"
)

// ContentReader reads a repo-relative path's current content.
type ContentReader func(path string) ([]byte, error)

// WarnFunc records a non-fatal diagnostic.
type WarnFunc func(kind, path, message string)

// PatternMatcher reports whether path matches any configured
// global_watch_pattern (spec §6's glob syntax, compiled by internal/config).
type PatternMatcher func(path string) bool

// Evaluate implements spec §4.B. mode == GlobalWatchDisabled suppresses
// the component entirely, matching every call with Forced=false.
// Otherwise Forced is set when a non-deleted changed path matches a
// pattern. MatchedClosure lists the forward import closure of those
// matched paths; since any such path has already forced all, the closure
// check never forces all on its own.
func Evaluate(
	ctx context.Context,
	mode types.GlobalWatchMode,
	changed []types.ChangeEntry,
	matches PatternMatcher,
	resolver *moduleresolve.Resolver,
	langFor func(path string) tsast.Language,
	read ContentReader,
	warn WarnFunc,
) types.GlobalWatchSummary {
	summary := types.GlobalWatchSummary{Enabled: mode != types.GlobalWatchDisabled}
	if mode == types.GlobalWatchDisabled {
		return summary
	}

	changedSet := make(map[string]bool, len(changed))
	for _, c := range changed {
		changedSet[c.EffectivePath] = true
	}

	var matchedDirect []string
	for _, c := range changed {
		if c.Status == types.StatusDeleted {
			continue
		}
		if matches(c.EffectivePath) {
			matchedDirect = append(matchedDirect, c.EffectivePath)
		}
	}
	summary.MatchedDirect = matchedDirect

	closure := closureFrom(ctx, matchedDirect, resolver, langFor, read, warn)
	summary.MatchedClosure = closure

	if len(matchedDirect) > 0 {
		summary.Forced = true
		return summary
	}
	for _, path := range closure {
		if changedSet[path] {
			summary.Forced = true
			return summary
		}
	}
	return summary
}

// closureFrom computes the forward transitive import closure rooted at
// roots: what each root (recursively) imports from within the repo.
// Non-source asset extensions are included in the closure but not
// traversed further (spec §4.B).
func closureFrom(ctx context.Context, roots []string, resolver *moduleresolve.Resolver, langFor func(string) tsast.Language, read ContentReader, warn WarnFunc) []string {
	visited := make(map[string]bool)
	var queue []string
	queue = append(queue, roots...)
	var order []string

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if visited[path] {
			continue
		}
		visited[path] = true
		order = append(order, path)

		if isAssetPath(path) {
			continue
		}

		lang := langFor(path)
		content, err := read(path)
		if err != nil {
			if warn != nil {
				warn("per-file-read-error", path, "could not read for global-watch closure: "+err.Error())
			}
			continue
		}
		tree, err := tsast.Parse(ctx, lang, content)
		if err != nil {
			continue
		}

		refs := moduleresolve.ExtractReferences(tree.RootNode(), content)
		for _, ref := range refs {
			resolved, ok := resolver.Resolve(path, ref.Specifier)
			if !ok || visited[resolved] {
				continue
			}
			queue = append(queue, resolved)
		}
	}

	return order
}

func isAssetPath(path string) bool {
	for _, ext := range []string{".json", ".yml", ".yaml"} {
		if hasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
