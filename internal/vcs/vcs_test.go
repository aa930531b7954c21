package vcs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/kestrel-ci/pomimpact/pkg/types"
)

func initRepo(t *testing.T) (root string, repo *git.Repository, wt *git.Worktree) {
	t.Helper()
	root = t.TempDir()
	repo, err := git.PlainInit(root, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err = repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	return root, repo, wt
}

func writeAndAdd(t *testing.T, root string, wt *git.Worktree, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := wt.Add(relPath); err != nil {
		t.Fatalf("add %s: %v", relPath, err)
	}
}

func commit(t *testing.T, wt *git.Worktree, msg string) {
	t.Helper()
	sig := &object.Signature{Name: "pomimpact-test", Email: "test@example.com", When: time.Unix(0, 0)}
	if _, err := wt.Commit(msg, &git.CommitOptions{Author: sig}); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestBaseHeadChanges_ModifiedFile(t *testing.T) {
	root, _, wt := initRepo(t)
	writeAndAdd(t, root, wt, "src/LoginPage.ts", "export class LoginPage { open() { return 1; } }")
	commit(t, wt, "base")

	writeAndAdd(t, root, wt, "src/LoginPage.ts", "export class LoginPage { open() { return 2; } }")
	commit(t, wt, "head")

	r, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	entries, err := r.BaseHeadChanges("HEAD~1", "HEAD")
	if err != nil {
		t.Fatalf("BaseHeadChanges: %v", err)
	}
	if len(entries) != 1 || entries[0].RawStatus != "M" || entries[0].NewPath != "src/LoginPage.ts" {
		t.Fatalf("expected one M entry for src/LoginPage.ts, got %+v", entries)
	}
	if entries[0].Source != types.SourceBaseHead {
		t.Errorf("expected SourceBaseHead, got %v", entries[0].Source)
	}
}

func TestBaseHeadChanges_RenameDetectedViaIdenticalContent(t *testing.T) {
	root, _, wt := initRepo(t)
	writeAndAdd(t, root, wt, "src/LoginPage.ts", "export class LoginPage { open() { return 1; } }")
	commit(t, wt, "base")

	if err := os.Rename(filepath.Join(root, "src/LoginPage.ts"), filepath.Join(root, "src/MyLoginPage.ts")); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := wt.Add("src/MyLoginPage.ts"); err != nil {
		t.Fatalf("add new path: %v", err)
	}
	if _, err := wt.Remove("src/LoginPage.ts"); err != nil {
		t.Fatalf("remove old path: %v", err)
	}
	commit(t, wt, "head")

	r, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	entries, err := r.BaseHeadChanges("HEAD~1", "HEAD")
	if err != nil {
		t.Fatalf("BaseHeadChanges: %v", err)
	}
	if len(entries) != 1 || entries[0].RawStatus != "R" {
		t.Fatalf("expected one R entry for identical-content rename, got %+v", entries)
	}
	if entries[0].OldPath != "src/LoginPage.ts" || entries[0].NewPath != "src/MyLoginPage.ts" {
		t.Errorf("expected rename from src/LoginPage.ts to src/MyLoginPage.ts, got %+v", entries[0])
	}
}

func TestUntrackedFiles(t *testing.T) {
	root, _, wt := initRepo(t)
	writeAndAdd(t, root, wt, "README.md", "hello")
	commit(t, wt, "base")

	if err := os.MkdirAll(filepath.Join(root, "src"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "src/NewPage.ts"), []byte("export class NewPage {}"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	entries, err := r.UntrackedFiles()
	if err != nil {
		t.Fatalf("UntrackedFiles: %v", err)
	}
	if len(entries) != 1 || entries[0].NewPath != "src/NewPage.ts" || entries[0].RawStatus != "A" {
		t.Fatalf("expected one untracked A entry for src/NewPage.ts, got %+v", entries)
	}
	if entries[0].Source != types.SourceUntracked {
		t.Errorf("expected SourceUntracked, got %v", entries[0].Source)
	}
}

func TestReadFile_RevisionVsWorkingTree(t *testing.T) {
	root, _, wt := initRepo(t)
	writeAndAdd(t, root, wt, "src/LoginPage.ts", "v1")
	commit(t, wt, "base")

	if err := os.WriteFile(filepath.Join(root, "src/LoginPage.ts"), []byte("v2-unstaged"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	committed, err := r.ReadFile("HEAD", "src/LoginPage.ts")
	if err != nil {
		t.Fatalf("ReadFile HEAD: %v", err)
	}
	if string(committed) != "v1" {
		t.Errorf("expected the committed content v1, got %q", committed)
	}

	working, err := r.ReadFile("", "src/LoginPage.ts")
	if err != nil {
		t.Fatalf("ReadFile working tree: %v", err)
	}
	if string(working) != "v2-unstaged" {
		t.Errorf("expected the on-disk content v2-unstaged, got %q", working)
	}
}
