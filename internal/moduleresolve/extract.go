// Package moduleresolve extracts module references from a parsed AST and
// resolves them to in-repo file paths, shared by Component B's import
// closure and Component G's reverse-dependency graph (both walk the same
// "what does this file depend on" question, just with different seeds).
package moduleresolve

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Reference is one module specifier found in a file, with enough context
// to distinguish a traversable source import from an asset literal.
type Reference struct {
	Specifier string
	IsAsset   bool // .json/.yml/.yaml: included but not traversed (spec §4.B)
}

var assetExtensions = []string{".json", ".yml", ".yaml"}
var sourceLikeExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// ExtractReferences walks root for static imports, re-exports, dynamic
// imports, require(...) calls, and string literals that look like
// filenames with an extension (spec §4.B's "string literals that look
// like filenames with an extension").
func ExtractReferences(root *sitter.Node, content []byte) []Reference {
	var refs []Reference
	seen := make(map[string]bool)

	add := func(spec string) {
		spec = strings.TrimSpace(spec)
		if spec == "" || seen[spec] {
			return
		}
		seen[spec] = true
		refs = append(refs, Reference{Specifier: spec, IsAsset: hasAnyExt(spec, assetExtensions)})
	}

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		switch node.Type() {
		case "import_statement":
			if src := node.ChildByFieldName("source"); src != nil {
				add(unquote(src.Content(content)))
			}
		case "export_statement":
			if src := node.ChildByFieldName("source"); src != nil {
				add(unquote(src.Content(content)))
			}
		case "call_expression":
			callee := node.ChildByFieldName("function")
			if callee != nil && (calleeIsIdentifier(callee, content, "require") || callee.Type() == "import") {
				if args := node.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
					first := args.NamedChild(0)
					if first.Type() == "string" {
						add(unquote(first.Content(content)))
					}
				}
			}
		case "string":
			text := unquote(node.Content(content))
			if looksLikeFilename(text) {
				add(text)
			}
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i))
		}
	}
	walk(root)

	return refs
}

func calleeIsIdentifier(node *sitter.Node, content []byte, name string) bool {
	return node.Type() == "identifier" && strings.TrimSpace(node.Content(content)) == name
}

func looksLikeFilename(s string) bool {
	if !strings.Contains(s, "/") && !strings.HasPrefix(s, ".") {
		return false
	}
	return hasAnyExt(s, sourceLikeExtensions) || hasAnyExt(s, assetExtensions)
}

func hasAnyExt(s string, exts []string) bool {
	for _, e := range exts {
		if strings.HasSuffix(s, e) {
			return true
		}
	}
	return false
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}
