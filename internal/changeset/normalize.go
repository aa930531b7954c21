// Package changeset implements Component A, the Change-Set Normalizer:
// it takes raw entries from the vcs collaborator's three independent
// sources (base-vs-head, working-tree-vs-head, untracked) and produces the
// single deduplicated, canonically-statused list the rest of the engine
// consumes. It has no git dependency of its own, keeping raw-entry
// detection and pure normalization logic independently testable.
package changeset

import (
	"sort"

	"github.com/kestrel-ci/pomimpact/internal/vcs"
	"github.com/kestrel-ci/pomimpact/pkg/types"
)

// statusPriority implements the merge precedence from spec §3:
// Deleted > Renamed > Modified > Added.
func statusPriority(s types.ChangeStatus) int {
	switch s {
	case types.StatusDeleted:
		return 3
	case types.StatusRenamed:
		return 2
	case types.StatusModified:
		return 1
	default:
		return 0
	}
}

// PathFilter decides whether an effective_path belongs in scope. It is the
// "profile filter" predicate named in spec §4.A.
type PathFilter func(effectivePath string) bool

// Normalize dedups and merges entries from however many RawEntry batches
// were collected, in the given source order, and returns the canonical
// ChangeEntry list sorted lexicographically by effective_path. warn is
// called once per unknown/"copy" classifier fallback (spec §3).
func Normalize(batches [][]vcs.RawEntry, filter PathFilter, warn func(kind, path, message string)) []types.ChangeEntry {
	byPath := make(map[string]types.ChangeEntry)

	for _, batch := range batches {
		for _, raw := range batch {
			entry := classify(raw, warn)
			if entry.EffectivePath == "" {
				continue
			}
			if filter != nil && !filter(entry.EffectivePath) {
				continue
			}
			existing, ok := byPath[entry.EffectivePath]
			if !ok {
				byPath[entry.EffectivePath] = entry
				continue
			}
			byPath[entry.EffectivePath] = mergeDuplicate(existing, entry)
		}
	}

	out := make([]types.ChangeEntry, 0, len(byPath))
	for _, e := range byPath {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectivePath < out[j].EffectivePath })
	return out
}

func classify(raw vcs.RawEntry, warn func(kind, path, message string)) types.ChangeEntry {
	entry := types.ChangeEntry{
		OldPath:   raw.OldPath,
		NewPath:   raw.NewPath,
		RawStatus: raw.RawStatus,
		Source:    raw.Source,
	}

	switch raw.RawStatus {
	case "A":
		entry.Status = types.StatusAdded
		entry.EffectivePath = raw.NewPath
	case "D":
		entry.Status = types.StatusDeleted
		entry.EffectivePath = raw.OldPath
	case "R":
		entry.Status = types.StatusRenamed
		entry.EffectivePath = raw.NewPath
	case "M", "U":
		entry.Status = types.StatusModified
		entry.EffectivePath = effectivePathOf(raw)
	case "C":
		// "a copy classifier falls back to Added" (spec §3).
		entry.Status = types.StatusAdded
		entry.EffectivePath = raw.NewPath
		if warn != nil {
			warn("status-fallback", raw.NewPath, "copy classifier treated as added")
		}
	default:
		entry.Status = types.StatusModified
		entry.EffectivePath = effectivePathOf(raw)
		if warn != nil {
			warn("status-fallback", entry.EffectivePath, "unknown upstream classifier \""+raw.RawStatus+"\" treated as modified")
		}
	}

	return entry
}

func effectivePathOf(raw vcs.RawEntry) string {
	if raw.NewPath != "" {
		return raw.NewPath
	}
	return raw.OldPath
}

// mergeDuplicate resolves two entries that normalized to the same
// effective_path, applying the precedence rule and, on a tie, preferring
// the richer record (both old_path and new_path populated).
func mergeDuplicate(a, b types.ChangeEntry) types.ChangeEntry {
	pa, pb := statusPriority(a.Status), statusPriority(b.Status)
	if pa != pb {
		if pa > pb {
			return a
		}
		return b
	}
	if richness(b) > richness(a) {
		return b
	}
	return a
}

func richness(e types.ChangeEntry) int {
	score := 0
	if e.OldPath != "" {
		score++
	}
	if e.NewPath != "" {
		score++
	}
	return score
}
