package classmodel

import (
	"context"
	"testing"

	"github.com/kestrel-ci/pomimpact/internal/tsast"
	"github.com/kestrel-ci/pomimpact/pkg/types"
)

const loginPageSource = `
export class LoginPage {
  private nav: NavBar;

  constructor() {
    this.helper = new LoginHelper();
  }

  async open(): Promise<void> {
    await this.page.goto("/login");
  }

  get title(): string {
    return "Login";
  }

  set title(value: string) {
    this._title = value;
  }
}
`

func parseFile(t *testing.T, source string) *FileModel {
	t.Helper()
	tree, err := tsast.Parse(context.Background(), tsast.LangTypeScript, []byte(source))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return BuildFile("LoginPage.ts", tree.RootNode(), []byte(source))
}

func TestBuildFile_ExtractsClassAndMembers(t *testing.T) {
	fm := parseFile(t, loginPageSource)

	if len(fm.Classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(fm.Classes))
	}
	cls := fm.Classes[0]
	if cls.Name != "LoginPage" {
		t.Errorf("expected class name LoginPage, got %q", cls.Name)
	}

	wantKinds := map[string]types.MemberKind{
		"open":        types.KindCall,
		"title":       types.KindGet,
		"constructor": types.KindConstructor,
	}
	for name, kind := range wantKinds {
		identity := types.MemberIdentity{Kind: kind, Name: name}
		if _, ok := cls.MembersByIdentity[identity]; !ok {
			t.Errorf("expected member identity %+v to be present", identity)
		}
	}

	if _, ok := cls.CallableMembersByName["open"]; !ok {
		t.Error("expected open to be a callable member")
	}
	if _, ok := cls.ComposedFieldClassByName["nav"]; !ok {
		t.Error("expected nav field-type composed class to be recorded")
	}
	if got := cls.ComposedFieldClassByName["helper"]; got != "LoginHelper" {
		t.Errorf("expected constructor-assigned helper field to resolve to LoginHelper, got %q", got)
	}
}

func TestBuildFile_NoClassesInNonClassFile(t *testing.T) {
	fm := parseFile(t, "export const x = 1;\nfunction y() {}\n")
	if len(fm.Classes) != 0 {
		t.Errorf("expected no classes, got %d", len(fm.Classes))
	}
}
