package moduleresolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrel-ci/pomimpact/internal/tsconfig"
)

func writeFile(t *testing.T, root, relPath string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte("export {}"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestResolve_RelativePath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/pages/LoginPage.ts")

	r := New(root, &tsconfig.Config{}, []string{".ts", ".tsx"})
	resolved, ok := r.Resolve("src/pages/Dashboard.ts", "./LoginPage")
	if !ok {
		t.Fatal("expected relative resolution to succeed")
	}
	if resolved != "src/pages/LoginPage.ts" {
		t.Errorf("expected src/pages/LoginPage.ts, got %q", resolved)
	}
}

func TestResolve_TsconfigAlias(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/pages/LoginPage.ts")

	cfg := &tsconfig.Config{}
	cfg.CompilerOptions.BaseURL = "."
	cfg.CompilerOptions.Paths = map[string][]string{"@pages/*": {"src/pages/*"}}

	r := New(root, cfg, []string{".ts", ".tsx"})
	resolved, ok := r.Resolve("tests/login.spec.ts", "@pages/LoginPage")
	if !ok {
		t.Fatal("expected alias resolution to succeed")
	}
	if resolved != "src/pages/LoginPage.ts" {
		t.Errorf("expected src/pages/LoginPage.ts, got %q", resolved)
	}
}

func TestResolve_BarePackageSpecifierFails(t *testing.T) {
	root := t.TempDir()
	r := New(root, &tsconfig.Config{}, []string{".ts", ".tsx"})
	if _, ok := r.Resolve("src/pages/LoginPage.ts", "@playwright/test"); ok {
		t.Error("expected a bare package specifier not to resolve")
	}
}

func TestResolve_IndexFileFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/pages/index.ts")

	r := New(root, &tsconfig.Config{}, []string{".ts", ".tsx"})
	resolved, ok := r.Resolve("src/Dashboard.ts", "./pages")
	if !ok {
		t.Fatal("expected index-file resolution to succeed")
	}
	if resolved != "src/pages/index.ts" {
		t.Errorf("expected src/pages/index.ts, got %q", resolved)
	}
}
