// Package tsconfig reads the project-level tsconfig-like file spec §6
// names as an input file: it provides compilerOptions.baseUrl and
// compilerOptions.paths for alias resolution in the global-watch and
// import-graph stages. tsconfig.json files are routinely hand-edited and
// carry // and /* */ comments that encoding/json rejects outright, so
// this file runs the content through tidwall/jsonc before unmarshaling.
package tsconfig

import (
	"encoding/json"
	"os"

	"github.com/tidwall/jsonc"
)

// Config is the subset of tsconfig.json pomimpact reads.
type Config struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// Load reads and parses path, tolerating // and /* */ comments and
// trailing commas (both common in hand-edited tsconfig.json files). A
// missing file returns a zero-value Config and no error, matching spec
// §4.B/§4.G's "missing config file" handling.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	stripped := jsonc.ToJSON(data)
	stripped = stripTrailingCommas(stripped)

	var cfg Config
	if err := json.Unmarshal(stripped, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// stripTrailingCommas removes a comma that appears right before a closing
// `}` or `]`, modulo whitespace — the other common tsconfig.json
// non-strict-JSON liberty.
func stripTrailingCommas(src []byte) []byte {
	out := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == ',' {
			j := i + 1
			for j < len(src) && isJSONSpace(src[j]) {
				j++
			}
			if j < len(src) && (src[j] == '}' || src[j] == ']') {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
