package changeset

import (
	"testing"

	"github.com/kestrel-ci/pomimpact/internal/vcs"
	"github.com/kestrel-ci/pomimpact/pkg/types"
)

func TestNormalize_ClassifiesEachRawStatus(t *testing.T) {
	cases := []struct {
		name   string
		raw    vcs.RawEntry
		status types.ChangeStatus
	}{
		{"added", vcs.RawEntry{RawStatus: "A", NewPath: "a.ts"}, types.StatusAdded},
		{"deleted", vcs.RawEntry{RawStatus: "D", OldPath: "b.ts"}, types.StatusDeleted},
		{"modified", vcs.RawEntry{RawStatus: "M", NewPath: "c.ts"}, types.StatusModified},
		{"renamed", vcs.RawEntry{RawStatus: "R", OldPath: "d.ts", NewPath: "e.ts"}, types.StatusRenamed},
		{"unmerged-as-modified", vcs.RawEntry{RawStatus: "U", NewPath: "f.ts"}, types.StatusModified},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Normalize([][]vcs.RawEntry{{tc.raw}}, nil, nil)
			if len(out) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(out))
			}
			if out[0].Status != tc.status {
				t.Errorf("expected status %v, got %v", tc.status, out[0].Status)
			}
		})
	}
}

func TestNormalize_DeletedBeatsModifiedOnSamePath(t *testing.T) {
	batches := [][]vcs.RawEntry{
		{{RawStatus: "M", NewPath: "page.ts", Source: types.SourceBaseHead}},
		{{RawStatus: "D", OldPath: "page.ts", Source: types.SourceWorkingTree}},
	}

	out := Normalize(batches, nil, nil)
	if len(out) != 1 {
		t.Fatalf("expected 1 entry after dedup, got %d", len(out))
	}
	if out[0].Status != types.StatusDeleted {
		t.Errorf("expected Deleted to win over Modified, got %v", out[0].Status)
	}
}

func TestNormalize_RenameBeatsModifiedOnSamePath(t *testing.T) {
	batches := [][]vcs.RawEntry{
		{{RawStatus: "M", NewPath: "new.ts"}},
		{{RawStatus: "R", OldPath: "old.ts", NewPath: "new.ts"}},
	}

	out := Normalize(batches, nil, nil)
	if len(out) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(out))
	}
	if out[0].Status != types.StatusRenamed {
		t.Errorf("expected Renamed to win, got %v", out[0].Status)
	}
	if out[0].OldPath != "old.ts" {
		t.Errorf("expected richer rename record to be kept, old_path=%q", out[0].OldPath)
	}
}

func TestNormalize_UnknownClassifierFallsBackToModifiedWithWarning(t *testing.T) {
	var gotKind, gotPath string
	warn := func(kind, path, message string) {
		gotKind, gotPath = kind, path
	}

	out := Normalize([][]vcs.RawEntry{{{RawStatus: "X", NewPath: "weird.ts"}}}, nil, warn)
	if len(out) != 1 || out[0].Status != types.StatusModified {
		t.Fatalf("expected unknown classifier to normalize to Modified, got %+v", out)
	}
	if gotKind != "status-fallback" || gotPath != "weird.ts" {
		t.Errorf("expected a status-fallback warning for weird.ts, got kind=%q path=%q", gotKind, gotPath)
	}
}

func TestNormalize_CopyClassifierFallsBackToAdded(t *testing.T) {
	out := Normalize([][]vcs.RawEntry{{{RawStatus: "C", OldPath: "src.ts", NewPath: "dst.ts"}}}, nil, func(string, string, string) {})
	if len(out) != 1 || out[0].Status != types.StatusAdded {
		t.Fatalf("expected copy classifier to normalize to Added, got %+v", out)
	}
}

func TestNormalize_FilterDropsOutOfScopePaths(t *testing.T) {
	batches := [][]vcs.RawEntry{{
		{RawStatus: "A", NewPath: "src/pages/Login.ts"},
		{RawStatus: "A", NewPath: "node_modules/dep/index.js"},
	}}
	filter := func(path string) bool { return path != "node_modules/dep/index.js" }

	out := Normalize(batches, filter, nil)
	if len(out) != 1 || out[0].EffectivePath != "src/pages/Login.ts" {
		t.Fatalf("expected only the in-scope path to survive, got %+v", out)
	}
}

func TestNormalize_SortedByEffectivePath(t *testing.T) {
	batches := [][]vcs.RawEntry{{
		{RawStatus: "A", NewPath: "z.ts"},
		{RawStatus: "A", NewPath: "a.ts"},
		{RawStatus: "A", NewPath: "m.ts"},
	}}

	out := Normalize(batches, nil, nil)
	want := []string{"a.ts", "m.ts", "z.ts"}
	for i, w := range want {
		if out[i].EffectivePath != w {
			t.Errorf("position %d: expected %q, got %q", i, w, out[i].EffectivePath)
		}
	}
}
