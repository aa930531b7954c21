package semantic

import (
	"context"
	"testing"

	"github.com/kestrel-ci/pomimpact/internal/tsast"
	"github.com/kestrel-ci/pomimpact/pkg/types"
)

func reader(revisions map[string]map[string]string) FileReader {
	return func(revision, path string) ([]byte, error) {
		return []byte(revisions[revision][path]), nil
	}
}

func entry(path string) types.ChangeEntry {
	return types.ChangeEntry{Status: types.StatusModified, EffectivePath: path, NewPath: path, OldPath: path}
}

func TestDetectFile_MethodBodyEditIsDetected(t *testing.T) {
	base := `export class LoginPage {
  async open() { await this.page.goto("/login"); }
}`
	head := `export class LoginPage {
  async open() { await this.page.goto("/login2"); }
}`
	read := reader(map[string]map[string]string{
		"base": {"LoginPage.ts": base},
		"head": {"LoginPage.ts": head},
	})

	d := New(0)
	result, err := d.DetectFile(context.Background(), entry("LoginPage.ts"), "base", "head", tsast.LangTypeScript, read, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result for a changed method body")
	}
	if !result.ChangedMethodsByClass["LoginPage"]["open"] {
		t.Errorf("expected open to be recorded as changed, got %+v", result.ChangedMethodsByClass)
	}
	if result.TopLevelRuntimeChanged {
		t.Error("expected a method body edit not to be a top-level runtime change")
	}
}

func TestDetectFile_WhitespaceAndCommentOnlyChangeIsNoOp(t *testing.T) {
	base := `export class LoginPage {
  async open() { await this.page.goto("/login"); }
}`
	head := `export class LoginPage {
  async open() {
    // navigate to login
    await this.page.goto("/login");
  }
}`
	read := reader(map[string]map[string]string{
		"base": {"LoginPage.ts": base},
		"head": {"LoginPage.ts": head},
	})

	d := New(0)
	result, err := d.DetectFile(context.Background(), entry("LoginPage.ts"), "base", "head", tsast.LangTypeScript, read, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && len(result.ChangedMethodsByClass) != 0 {
		t.Errorf("expected no changed methods for whitespace/comment-only edit, got %+v", result.ChangedMethodsByClass)
	}
}

func TestDetectFile_FieldChangeMarksEveryCallableMember(t *testing.T) {
	base := `export class LoginPage {
  private selector: string = "#login";
  async open() {}
  async submit() {}
}`
	head := `export class LoginPage {
  private selector: string = "#signin";
  async open() {}
  async submit() {}
}`
	read := reader(map[string]map[string]string{
		"base": {"LoginPage.ts": base},
		"head": {"LoginPage.ts": head},
	})

	d := New(0)
	result, err := d.DetectFile(context.Background(), entry("LoginPage.ts"), "base", "head", tsast.LangTypeScript, read, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result for a changed field")
	}
	if !result.ChangedMethodsByClass["LoginPage"]["open"] || !result.ChangedMethodsByClass["LoginPage"]["submit"] {
		t.Errorf("expected both callable members to be marked, got %+v", result.ChangedMethodsByClass)
	}
}

func TestDetectFile_RenameRecordsBothOldAndNewAsMissing(t *testing.T) {
	base := `export class LoginPage {
  async open() { await this.page.goto("/login"); }
}`
	head := `export class LoginPage {
  async launch() { await this.page.goto("/login"); }
}`
	read := reader(map[string]map[string]string{
		"base": {"LoginPage.ts": base},
		"head": {"LoginPage.ts": head},
	})

	d := New(0)
	result, err := d.DetectFile(context.Background(), entry("LoginPage.ts"), "base", "head", tsast.LangTypeScript, read, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result")
	}
	if !result.ChangedMethodsByClass["LoginPage"]["open"] {
		t.Error("expected old name 'open' to be recorded as changed (missing in head)")
	}
	if !result.ChangedMethodsByClass["LoginPage"]["launch"] {
		t.Error("expected new name 'launch' to be recorded as changed (missing in base)")
	}
}

func TestDetectFile_TypeOnlyChangeIsNotTopLevelRuntimeChange(t *testing.T) {
	base := `import type { Foo } from "./foo";
export class LoginPage {
  async open() {}
}`
	head := `import type { Bar } from "./bar";
export class LoginPage {
  async open() {}
}`
	read := reader(map[string]map[string]string{
		"base": {"LoginPage.ts": base},
		"head": {"LoginPage.ts": head},
	})

	d := New(0)
	result, err := d.DetectFile(context.Background(), entry("LoginPage.ts"), "base", "head", tsast.LangTypeScript, read, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.TopLevelRuntimeChanged {
		t.Error("expected a type-only import change not to mark top-level-runtime-changed")
	}
}

func TestDetectFile_ByteIdenticalYieldsNilResult(t *testing.T) {
	src := `export class LoginPage { async open() {} }`
	read := reader(map[string]map[string]string{
		"base": {"LoginPage.ts": src},
		"head": {"LoginPage.ts": src},
	})

	d := New(0)
	result, err := d.DetectFile(context.Background(), entry("LoginPage.ts"), "base", "head", tsast.LangTypeScript, read, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result for byte-identical content, got %+v", result)
	}
}
