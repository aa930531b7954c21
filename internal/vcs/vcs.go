// Package vcs is the change-set-enumerator collaborator named in the
// specification's scope boundary: the core never shells out to git itself,
// it consumes already-enumerated entries. This package is that enumerator,
// built on go-git so enumeration stays pure Go with no exec.Command and no
// dependency on a git binary being present on PATH.
package vcs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/kestrel-ci/pomimpact/pkg/types"
)

// Repo wraps an opened git repository for change enumeration.
type Repo struct {
	root string
	repo *git.Repository
}

// Open opens the git repository rooted at path. path need not be the git
// root; go-git walks up to find .git the same way `git` itself does.
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("vcs: open repository at %s: %w", path, err)
	}
	return &Repo{root: path, repo: repo}, nil
}

// Root returns the path Open was called with.
func (r *Repo) Root() string { return r.root }

// RawEntry is one unnormalized change as reported by a single upstream
// comparison, before Component A's dedup/merge pass runs.
type RawEntry struct {
	RawStatus string
	OldPath   string
	NewPath   string
	Source    types.ChangeSource
}

// BaseHeadChanges diffs the tree at baseRev against the tree at headRev,
// pairing deletions and additions of identical blob content into renames —
// go-git's tree.Diff does not detect renames itself, so this pass does the
// matching the way `git diff -M` would.
func (r *Repo) BaseHeadChanges(baseRev, headRev string) ([]RawEntry, error) {
	baseTree, err := r.treeForRevision(baseRev)
	if err != nil {
		return nil, fmt.Errorf("vcs: resolve base revision %q: %w", baseRev, err)
	}
	headTree, err := r.treeForRevision(headRev)
	if err != nil {
		return nil, fmt.Errorf("vcs: resolve head revision %q: %w", headRev, err)
	}

	changes, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return nil, fmt.Errorf("vcs: diff trees: %w", err)
	}

	return detectRenames(changes, types.SourceBaseHead), nil
}

// WorkingTreeChanges reports worktree and staged changes as go-git's
// Worktree.Status computes them, which is always relative to HEAD. headRev
// must resolve to a commit but does not otherwise change the comparison.
func (r *Repo) WorkingTreeChanges(headRev string) ([]RawEntry, error) {
	headTree, err := r.treeForRevision(headRev)
	if err != nil {
		return nil, fmt.Errorf("vcs: resolve head revision %q: %w", headRev, err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("vcs: open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("vcs: worktree status: %w", err)
	}

	var entries []RawEntry
	for path, st := range status {
		code := st.Worktree
		if code == git.Unmodified {
			code = st.Staging
		}
		switch code {
		case git.Untracked:
			// Reported separately by UntrackedFiles; skip here to avoid
			// double-counting against headRev (which never has the file).
			continue
		case git.Unmodified:
			continue
		case git.Added:
			entries = append(entries, RawEntry{RawStatus: "A", NewPath: path, Source: types.SourceWorkingTree})
		case git.Deleted:
			entries = append(entries, RawEntry{RawStatus: "D", OldPath: path, Source: types.SourceWorkingTree})
		case git.Renamed:
			entries = append(entries, RawEntry{RawStatus: "R", OldPath: st.Extra, NewPath: path, Source: types.SourceWorkingTree})
		case git.Copied:
			entries = append(entries, RawEntry{RawStatus: "C", OldPath: st.Extra, NewPath: path, Source: types.SourceWorkingTree})
		case git.UpdatedButUnmerged:
			entries = append(entries, RawEntry{RawStatus: "U", NewPath: path, Source: types.SourceWorkingTree})
		default:
			entries = append(entries, RawEntry{RawStatus: "M", NewPath: path, Source: types.SourceWorkingTree})
		}
	}

	_ = headTree // retained for symmetry with BaseHeadChanges; worktree.Status already diffs against HEAD internally.
	return entries, nil
}

// UntrackedFiles lists files the worktree reports as untracked.
func (r *Repo) UntrackedFiles() ([]RawEntry, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("vcs: open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("vcs: worktree status: %w", err)
	}

	var entries []RawEntry
	for path, st := range status {
		if st.Worktree == git.Untracked {
			entries = append(entries, RawEntry{RawStatus: "A", NewPath: path, Source: types.SourceUntracked})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].NewPath < entries[j].NewPath })
	return entries, nil
}

// ReadFile reads path's content as of revision. An empty revision string
// means the current working-tree copy on disk at root/path.
func (r *Repo) ReadFile(revision, path string) ([]byte, error) {
	if revision == "" {
		return r.readWorkingFile(path)
	}
	tree, err := r.treeForRevision(revision)
	if err != nil {
		return nil, fmt.Errorf("vcs: resolve revision %q: %w", revision, err)
	}
	f, err := tree.File(path)
	if err != nil {
		return nil, fmt.Errorf("vcs: read %s at %s: %w", path, revision, err)
	}
	rc, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (r *Repo) readWorkingFile(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(r.root, path))
}

func (r *Repo) treeForRevision(rev string) (*object.Tree, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, err
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, err
	}
	return commit.Tree()
}

// detectRenames pairs a Delete and an Insert that share identical blob
// content into a single Renamed entry, the same blob-identity heuristic
// git's own diff engine falls back to when similarity-based renames are
// unavailable.
func detectRenames(changes object.Changes, source types.ChangeSource) []RawEntry {
	type sideKey struct {
		hash string
		name string
	}
	var deletes, inserts []*object.Change
	var others []*object.Change

	for _, c := range changes {
		action, err := c.Action()
		if err != nil {
			others = append(others, c)
			continue
		}
		switch action {
		case merkletrie.Delete:
			deletes = append(deletes, c)
		case merkletrie.Insert:
			inserts = append(inserts, c)
		default:
			others = append(others, c)
		}
	}

	usedInsert := make(map[int]bool)
	var entries []RawEntry

	for _, d := range deletes {
		matched := -1
		for i, ins := range inserts {
			if usedInsert[i] {
				continue
			}
			if d.From.TreeEntry.Hash == ins.To.TreeEntry.Hash {
				matched = i
				break
			}
		}
		if matched >= 0 {
			usedInsert[matched] = true
			entries = append(entries, RawEntry{
				RawStatus: "R",
				OldPath:   d.From.Name,
				NewPath:   inserts[matched].To.Name,
				Source:    source,
			})
			continue
		}
		entries = append(entries, RawEntry{RawStatus: "D", OldPath: d.From.Name, Source: source})
	}
	for i, ins := range inserts {
		if usedInsert[i] {
			continue
		}
		entries = append(entries, RawEntry{RawStatus: "A", NewPath: ins.To.Name, Source: source})
	}
	for _, c := range others {
		action, err := c.Action()
		if err != nil {
			entries = append(entries, RawEntry{RawStatus: "?", NewPath: changePath(c), Source: source})
			continue
		}
		_ = action
		entries = append(entries, RawEntry{RawStatus: "M", NewPath: changePath(c), Source: source})
	}

	sort.Slice(entries, func(i, j int) bool { return effective(entries[i]) < effective(entries[j]) })
	return entries
}

func changePath(c *object.Change) string {
	if c.To.Name != "" {
		return c.To.Name
	}
	return c.From.Name
}

func effective(e RawEntry) string {
	if e.NewPath != "" {
		return e.NewPath
	}
	return e.OldPath
}
