package propagation

import (
	"context"
	"testing"

	"github.com/kestrel-ci/pomimpact/internal/inheritance"
	"github.com/kestrel-ci/pomimpact/internal/tsast"
)

func buildGraph(t *testing.T, sources map[string]string) *Graph {
	t.Helper()
	var inhFiles []inheritance.SourceFile
	var propFiles []SourceFile
	for path, src := range sources {
		inhFiles = append(inhFiles, inheritance.SourceFile{Path: path, Language: tsast.LangTypeScript, Content: []byte(src)})
		propFiles = append(propFiles, SourceFile{Path: path, Language: tsast.LangTypeScript, Content: []byte(src)})
	}
	inh, err := inheritance.Build(context.Background(), inhFiles)
	if err != nil {
		t.Fatalf("inheritance.Build failed: %v", err)
	}
	return Build(context.Background(), propFiles, inh)
}

func TestPropagation_DirectThisCallPropagatesToCaller(t *testing.T) {
	sources := map[string]string{
		"LoginPage.ts": `
export class LoginPage {
  async open() { await this.submit(); }
  async submit() { await this.page.click("#go"); }
}
`,
	}
	g := buildGraph(t, sources)
	edges := g.ExtractEdges(nil)
	seeds, unresolved := g.Seed(map[string]map[string]bool{"LoginPage": {"submit": true}})
	visited := BFS(edges, seeds)
	result := g.Project(visited, unresolved)

	if !result.ImpactedMethodsByClass["LoginPage"]["open"] {
		t.Errorf("expected open (caller of submit) to be impacted, got %+v", result.ImpactedMethodsByClass)
	}
	if !result.ImpactedMethodsByClass["LoginPage"]["submit"] {
		t.Errorf("expected submit (the seed) to be impacted, got %+v", result.ImpactedMethodsByClass)
	}
}

func TestPropagation_CompositionPropagatesToOwner(t *testing.T) {
	sources := map[string]string{
		"LoginPage.ts": `
export class LoginPage {
  async open() { await this.page.goto("/login"); }
}
`,
		"Dashboard.ts": `
export class Dashboard {
  private loginPage: LoginPage;
  constructor() {
    this.loginPage = new LoginPage();
  }
  async navigateViaLogin() { await this.loginPage.open(); }
}
`,
	}
	g := buildGraph(t, sources)
	edges := g.ExtractEdges(nil)
	seeds, unresolved := g.Seed(map[string]map[string]bool{"LoginPage": {"open": true}})
	visited := BFS(edges, seeds)
	result := g.Project(visited, unresolved)

	if !result.ImpactedClasses["Dashboard"] {
		t.Errorf("expected Dashboard (owner of LoginPage) to be impacted, got %+v", result.ImpactedClasses)
	}
}

func TestPropagation_InheritanceDescendantIsImpacted(t *testing.T) {
	sources := map[string]string{
		"BasePage.ts": `
export class BasePage {
  async waitReady() {}
}
`,
		"LoginPage.ts": `
export class LoginPage extends BasePage {
  async open() {}
}
`,
	}
	g := buildGraph(t, sources)
	edges := g.ExtractEdges(nil)
	seeds, unresolved := g.Seed(map[string]map[string]bool{"BasePage": {"waitReady": true}})
	visited := BFS(edges, seeds)
	result := g.Project(visited, unresolved)

	if !result.ImpactedClasses["LoginPage"] {
		t.Errorf("expected LoginPage (descendant of BasePage) to be impacted, got %+v", result.ImpactedClasses)
	}
}

func TestPropagation_DynamicThisIndexFansOutAndWarns(t *testing.T) {
	sources := map[string]string{
		"LoginPage.ts": `
export class LoginPage {
  async dispatch(name: string) { await this[name](); }
  async open() {}
  async close() {}
}
`,
	}
	g := buildGraph(t, sources)
	var warnings []string
	edges := g.ExtractEdges(func(kind, path, message string) {
		warnings = append(warnings, kind)
	})

	seeds, unresolved := g.Seed(map[string]map[string]bool{"LoginPage": {"open": true}})
	visited := BFS(edges, seeds)
	result := g.Project(visited, unresolved)

	if !result.ImpactedMethodsByClass["LoginPage"]["dispatch"] {
		t.Errorf("expected dispatch to be impacted via the fanned-out dynamic call, got %+v", result.ImpactedMethodsByClass)
	}
	found := false
	for _, k := range warnings {
		if k == "dynamic-this-index" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a dynamic-this-index warning, got %v", warnings)
	}
}
