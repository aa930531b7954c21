package fixturemap

import (
	"context"
	"testing"

	"github.com/kestrel-ci/pomimpact/internal/tsast"
)

const typesSource = `
type BaseFixtures = {
  homePage: HomePage;
};

interface ExtraFixtures extends BaseFixtures {
  loginPage: LoginPage;
}

export type Fixtures = BaseFixtures & {
  adminPage: AdminPage;
};
`

func TestParse_FlattensIntersectionAndExtends(t *testing.T) {
	m, err := Parse(context.Background(), tsast.LangTypeScript, []byte(typesSource))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	cases := map[string]string{
		"homePage":  "HomePage",
		"loginPage": "LoginPage",
		"adminPage": "AdminPage",
	}
	for key, want := range cases {
		got, ok := m.FixtureKeyToClass[key]
		if !ok {
			t.Errorf("expected fixture key %q to be present", key)
			continue
		}
		if got != want {
			t.Errorf("fixture key %q: expected class %q, got %q", key, want, got)
		}
	}

	if !m.ClassToFixtureKeys["HomePage"]["homePage"] {
		t.Errorf("expected ClassToFixtureKeys[HomePage] to contain homePage")
	}
}

func TestParseFile_MissingFileYieldsEmptyMaps(t *testing.T) {
	m, err := ParseFile(context.Background(), tsast.LangTypeScript, "/nonexistent/types.ts")
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if len(m.ClassToFixtureKeys) != 0 || len(m.FixtureKeyToClass) != 0 {
		t.Errorf("expected empty maps for missing file, got %+v", m)
	}
}
