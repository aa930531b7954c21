package tsconfig

import (
	"encoding/json"
	"testing"

	"github.com/tidwall/jsonc"
)

func TestJSONCToJSON_StripsComments(t *testing.T) {
	src := []byte(`{
  // a line comment
  "a": "http://not-a-comment", /* block
  comment spanning lines */
  "b": 1
}`)
	stripped := jsonc.ToJSON(src)

	var out map[string]interface{}
	if err := json.Unmarshal(stripTrailingCommas(stripped), &out); err != nil {
		t.Fatalf("expected stripped output to be valid JSON, got error: %v\n%s", err, stripped)
	}
	if out["a"] != "http://not-a-comment" {
		t.Errorf("expected string containing // to survive stripping, got %v", out["a"])
	}
}

func TestStripTrailingCommas(t *testing.T) {
	src := []byte(`{"a": [1, 2, 3,], "b": {"c": 1,},}`)
	stripped := stripTrailingCommas(src)
	var out map[string]interface{}
	if err := json.Unmarshal(stripped, &out); err != nil {
		t.Fatalf("expected trailing-comma-stripped output to be valid JSON: %v\n%s", err, stripped)
	}
}

func TestLoad_MissingFileYieldsEmptyConfig(t *testing.T) {
	cfg, err := Load("/nonexistent/tsconfig.json")
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.CompilerOptions.BaseURL != "" || len(cfg.CompilerOptions.Paths) != 0 {
		t.Errorf("expected zero-value config, got %+v", cfg)
	}
}
