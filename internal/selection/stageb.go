package selection

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kestrel-ci/pomimpact/internal/tsast"
)

// bodyScan holds the per-function-scope classification state for Stage B
// step 6: the fixture variables in scope, the aliases created from them,
// and the resulting precise/uncertain call-site tallies.
type bodyScan struct {
	precise   int
	uncertain bool // at least one uncertain site recorded in this scope
}

// classifyScope implements spec §4.H Stage B step 6 for one function-like
// scope: first collects alias bindings created from fixture variables,
// then walks every call expression in the body classifying it.
func classifyScope(scope FunctionScope, content []byte, fixtureKeyToClass map[string]string, impactedMethodsByClass map[string]map[string]bool) bodyScan {
	var scan bodyScan

	fixtureVarClass := make(map[string]string)
	for _, b := range scope.Bindings {
		if class, ok := fixtureKeyToClass[b.Key]; ok {
			fixtureVarClass[b.Local] = class
		}
	}
	if len(fixtureVarClass) == 0 {
		return scan
	}

	body := scope.Node.ChildByFieldName("body")
	if body == nil {
		return scan
	}

	aliases := make(map[string]bool)
	collectAliases(body, content, fixtureVarClass, aliases)

	tsast.WalkCallExpressions(body, func(call *sitter.Node) {
		callee := tsast.CallCallee(call)
		if callee == nil {
			return
		}

		if callee.Type() == "identifier" {
			if aliases[strings.TrimSpace(callee.Content(content))] {
				scan.uncertain = true
			}
			return
		}

		root, name, dynamicNonLiteral, depth, ok := callTarget(callee, content)
		if !ok {
			return
		}
		class, isFixtureVar := fixtureVarClass[root]
		if !isFixtureVar {
			return
		}

		if dynamicNonLiteral {
			scan.uncertain = true
			return
		}
		if depth > 2 {
			scan.uncertain = true
			return
		}
		if impactedMethodsByClass[class] != nil && impactedMethodsByClass[class][name] {
			scan.precise++
		}
	})

	return scan
}

// callTarget decomposes a member_expression/subscript_expression callee
// into its root identifier, the accessed name (empty if a dynamic
// non-literal index), and the chain depth, mirroring the resolution rules
// spec §4.H Stage B step 6 lists.
func callTarget(callee *sitter.Node, content []byte) (root, name string, dynamicNonLiteral bool, depth int, ok bool) {
	switch callee.Type() {
	case "member_expression":
		prop := callee.ChildByFieldName("property")
		if prop == nil {
			return "", "", false, 0, false
		}
		name = prop.Content(content)
	case "subscript_expression":
		idx := callee.ChildByFieldName("index")
		if idx == nil {
			return "", "", false, 0, false
		}
		if idx.Type() != "string" {
			dynamicNonLiteral = true
		} else {
			name = unquoteLiteral(idx.Content(content))
		}
	default:
		return "", "", false, 0, false
	}

	depth = tsast.ChainDepth(callee)
	root, ok = rootIdentifier(callee, content)
	if !ok {
		return "", "", false, 0, false
	}
	return root, name, dynamicNonLiteral, depth, true
}

// rootIdentifier walks the object chain of a member/subscript expression
// down to its innermost object, returning its text if that object is a
// bare identifier.
func rootIdentifier(node *sitter.Node, content []byte) (string, bool) {
	cur := node
	for cur != nil {
		switch cur.Type() {
		case "member_expression", "subscript_expression":
			cur = cur.ChildByFieldName("object")
		case "identifier":
			return strings.TrimSpace(cur.Content(content)), true
		default:
			return "", false
		}
	}
	return "", false
}

func collectAliases(body *sitter.Node, content []byte, fixtureVarClass map[string]string, aliases map[string]bool) {
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if node.Type() == "variable_declarator" {
			name := node.ChildByFieldName("name")
			value := node.ChildByFieldName("value")
			if name != nil && value != nil {
				switch name.Type() {
				case "identifier":
					// const f = var.<name>
					if value.Type() == "member_expression" {
						if root, ok := rootIdentifier(value, content); ok {
							if _, isFixtureVar := fixtureVarClass[root]; isFixtureVar {
								aliases[strings.TrimSpace(name.Content(content))] = true
							}
						}
					}
				case "object_pattern":
					// const { <name> } = var
					if value.Type() == "identifier" {
						if _, isFixtureVar := fixtureVarClass[strings.TrimSpace(value.Content(content))]; isFixtureVar {
							for _, b := range extractPatternBindings(name, content) {
								aliases[b.Local] = true
							}
						}
					}
				}
			}
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i))
		}
	}
	walk(body)
}

func unquoteLiteral(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
