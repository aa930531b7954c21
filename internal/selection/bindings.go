// Package selection implements Component H, the Spec Selection Pipeline:
// Stage A's fixture-key prefilter and Stage B's precise/uncertain method
// matching against a selection-bias policy.
package selection

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Binding is one destructured fixture binding: the fixture key (the
// object property name, or the plain identifier if not aliased) and the
// local variable name it is bound to.
type Binding struct {
	Key   string
	Local string
}

// FunctionScope pairs a function-like node with the fixture bindings
// declared in its own parameter list, so Stage B can classify call sites
// against the variable map local to that function/arrow/method body.
type FunctionScope struct {
	Node     *sitter.Node
	Bindings []Binding
}

var functionLikeTypes = map[string]bool{
	"function_declaration": true,
	"function_expression":  true,
	"arrow_function":       true,
	"method_definition":    true,
	"generator_function":   true,
}

// WalkFunctionScopes invokes fn once per function-like node found anywhere
// in root, in the order encountered, each with the destructured fixture
// bindings from its own parameter list (spec §4.H Stage A/B: "any
// function/arrow/method").
func WalkFunctionScopes(root *sitter.Node, content []byte, fn func(scope FunctionScope)) {
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if functionLikeTypes[node.Type()] {
			params := node.ChildByFieldName("parameters")
			fn(FunctionScope{Node: node, Bindings: extractParamBindings(params, content)})
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i))
		}
	}
	walk(root)
}

// BoundFixtureKeys returns every fixture key bound by any destructuring
// parameter pattern anywhere in root, the file-wide set Stage A's
// prefilter checks against the impacted fixture_keys set.
func BoundFixtureKeys(root *sitter.Node, content []byte) map[string]bool {
	keys := make(map[string]bool)
	WalkFunctionScopes(root, content, func(scope FunctionScope) {
		for _, b := range scope.Bindings {
			keys[b.Key] = true
		}
	})
	return keys
}

func extractParamBindings(params *sitter.Node, content []byte) []Binding {
	if params == nil {
		return nil
	}
	var bindings []Binding
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)
		bindings = append(bindings, extractPatternBindings(unwrapParameter(param), content)...)
	}
	return bindings
}

// unwrapParameter strips the TS `required_parameter`/`optional_parameter`
// wrapper (which carries the pattern in a `pattern` field alongside an
// optional type annotation) and any `assignment_pattern` default-value
// wrapper, down to the underlying pattern node.
func unwrapParameter(node *sitter.Node) *sitter.Node {
	for node != nil {
		switch node.Type() {
		case "required_parameter", "optional_parameter":
			if p := node.ChildByFieldName("pattern"); p != nil {
				node = p
				continue
			}
		case "assignment_pattern":
			if left := node.ChildByFieldName("left"); left != nil {
				node = left
				continue
			}
		}
		return node
	}
	return node
}

func extractPatternBindings(pattern *sitter.Node, content []byte) []Binding {
	if pattern == nil || pattern.Type() != "object_pattern" {
		return nil
	}
	var bindings []Binding
	for i := 0; i < int(pattern.NamedChildCount()); i++ {
		child := pattern.NamedChild(i)
		switch child.Type() {
		case "shorthand_property_identifier_pattern":
			name := child.Content(content)
			bindings = append(bindings, Binding{Key: name, Local: name})
		case "pair_pattern":
			key := child.ChildByFieldName("key")
			value := unwrapParameter(child.ChildByFieldName("value"))
			if key == nil || value == nil {
				continue
			}
			keyName := propertyKeyText(key, content)
			if value.Type() == "identifier" {
				bindings = append(bindings, Binding{Key: keyName, Local: value.Content(content)})
			}
			// Nested destructuring (`{ page: { context } }`) doesn't bind a
			// usable local fixture variable name at this level; skipped.
		case "rest_pattern":
			// A rest binding captures the remainder, not a single fixture
			// key; out of scope for precise/uncertain classification.
		}
	}
	return bindings
}

func propertyKeyText(key *sitter.Node, content []byte) string {
	text := key.Content(content)
	if len(text) >= 2 && (text[0] == '"' || text[0] == '\'') && text[len(text)-1] == text[0] {
		return text[1 : len(text)-1]
	}
	return text
}
