package selection

import (
	"context"
	"testing"

	"github.com/kestrel-ci/pomimpact/internal/tsast"
	"github.com/kestrel-ci/pomimpact/pkg/types"
)

func readerFor(specs map[string]string) SpecReader {
	return func(path string) ([]byte, error) {
		if src, ok := specs[path]; ok {
			return []byte(src), nil
		}
		return nil, &pathNotFoundError{path}
	}
}

type pathNotFoundError struct{ path string }

func (e *pathNotFoundError) Error() string { return "no such spec: " + e.path }

func baseInput(specs map[string]string) Input {
	var names []string
	for p := range specs {
		names = append(names, p)
	}
	return Input{
		Specs:                   names,
		DirectChangedSpecs:      map[string]bool{},
		ImportGraphMatchedSpecs: map[string]bool{},
		FixtureKeys:             map[string]bool{},
		FixtureKeyToClass:       map[string]string{},
		ImpactedMethodsByClass:  map[string]map[string]bool{},
		Bias:                    types.BiasFailOpen,
		LangFor:                 func(string) tsast.Language { return tsast.LangTypeScript },
		Read:                    readerFor(specs),
	}
}

func TestSelect_PreciseMatch(t *testing.T) {
	specs := map[string]string{
		"basic.spec.ts": `
test("opens", async ({ myPage }) => {
  await myPage.open();
});
`,
	}
	in := baseInput(specs)
	in.FixtureKeys = map[string]bool{"myPage": true}
	in.FixtureKeyToClass = map[string]string{"myPage": "MyPage"}
	in.ImpactedMethodsByClass = map[string]map[string]bool{"MyPage": {"open": true}}

	out := Select(context.Background(), in)
	reason, ok := out.ReasonsByPath["basic.spec.ts"]
	if !ok {
		t.Fatalf("expected basic.spec.ts to be selected, got %+v", out.ReasonsByPath)
	}
	if reason != types.ReasonMatchedPrecise {
		t.Errorf("expected matched-precise, got %s", reason)
	}
}

func TestSelect_DynamicDispatchFailOpenVsFailClosed(t *testing.T) {
	specs := map[string]string{
		"dynamic.spec.ts": `
test("opens dynamically", async ({ myPage }) => {
  const k = "open";
  await myPage[k]();
});
`,
	}
	in := baseInput(specs)
	in.FixtureKeys = map[string]bool{"myPage": true}
	in.FixtureKeyToClass = map[string]string{"myPage": "MyPage"}
	in.ImpactedMethodsByClass = map[string]map[string]bool{"MyPage": {"open": true}}

	openOut := Select(context.Background(), in)
	reason, ok := openOut.ReasonsByPath["dynamic.spec.ts"]
	if !ok {
		t.Fatalf("expected fail-open to select dynamic.spec.ts, got %+v", openOut.ReasonsByPath)
	}
	if reason != types.ReasonMatchedUncertainOpen {
		t.Errorf("expected matched-uncertain-fail-open, got %s", reason)
	}
	if openOut.UncertainSitesTotal < 1 {
		t.Errorf("expected at least one uncertain call site, got %d", openOut.UncertainSitesTotal)
	}

	in.Bias = types.BiasFailClosed
	closedOut := Select(context.Background(), in)
	if _, ok := closedOut.ReasonsByPath["dynamic.spec.ts"]; ok {
		t.Errorf("expected fail-closed to drop dynamic.spec.ts, got %+v", closedOut.ReasonsByPath)
	}
}

func TestSelect_DirectChangedSpecWithoutBindingsIsRetained(t *testing.T) {
	specs := map[string]string{
		"unrelated.spec.ts": `
test("does something unrelated", async () => {
  doSomething();
});
`,
	}
	in := baseInput(specs)
	in.DirectChangedSpecs = map[string]bool{"unrelated.spec.ts": true}

	out := Select(context.Background(), in)
	reason, ok := out.ReasonsByPath["unrelated.spec.ts"]
	if !ok {
		t.Fatalf("expected unrelated.spec.ts to be retained via direct-changed-spec")
	}
	if reason != types.ReasonDirectChangedSpec {
		t.Errorf("expected direct-changed-spec, got %s", reason)
	}
}

func TestSelect_NoImpactedMethodsRetainsAll(t *testing.T) {
	specs := map[string]string{
		"basic.spec.ts": `
test("opens", async ({ myPage }) => {
  await myPage.open();
});
`,
	}
	in := baseInput(specs)
	in.FixtureKeys = map[string]bool{"myPage": true}
	in.FixtureKeyToClass = map[string]string{"myPage": "MyPage"}
	// ImpactedMethodsByClass left empty.

	out := Select(context.Background(), in)
	reason, ok := out.ReasonsByPath["basic.spec.ts"]
	if !ok {
		t.Fatalf("expected basic.spec.ts to be retained, got %+v", out.ReasonsByPath)
	}
	if reason != types.ReasonRetainedNoImpactedMeth {
		t.Errorf("expected retained-no-impacted-methods, got %s", reason)
	}
}

func TestSelect_DeepChainIsUncertainNotPrecise(t *testing.T) {
	specs := map[string]string{
		"deep.spec.ts": `
test("deep chain", async ({ myPage }) => {
  await myPage.widget.inner.open();
});
`,
	}
	in := baseInput(specs)
	in.FixtureKeys = map[string]bool{"myPage": true}
	in.FixtureKeyToClass = map[string]string{"myPage": "MyPage"}
	in.ImpactedMethodsByClass = map[string]map[string]bool{"MyPage": {"open": true}}
	in.Bias = types.BiasFailClosed

	out := Select(context.Background(), in)
	if _, ok := out.ReasonsByPath["deep.spec.ts"]; ok {
		t.Errorf("expected deep chain + fail-closed to drop the spec, got %+v", out.ReasonsByPath)
	}
	if out.UncertainSitesTotal < 1 {
		t.Errorf("expected the deep chain call to count as an uncertain site")
	}
}

func TestBoundFixtureKeys_AliasedDestructure(t *testing.T) {
	src := `
test("renamed binding", async ({ myPage: page }) => {
  await page.open();
});
`
	tree, err := tsast.Parse(context.Background(), tsast.LangTypeScript, []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	keys := BoundFixtureKeys(tree.RootNode(), []byte(src))
	if !keys["myPage"] {
		t.Errorf("expected the fixture key myPage to be bound despite aliasing, got %+v", keys)
	}
}
