package tsast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/kestrel-ci/pomimpact/pkg/types"
)

// IsClassDeclaration reports whether node is a class (or abstract class)
// declaration in either the TypeScript or JavaScript grammar.
func IsClassDeclaration(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Type() {
	case "class_declaration", "abstract_class_declaration":
		return true
	default:
		return false
	}
}

// ClassName returns the identifier naming a class declaration, or "" if the
// class is anonymous (e.g. `export default class { ... }`).
func ClassName(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	n := node.ChildByFieldName("name")
	if n == nil {
		return ""
	}
	return n.Content(content)
}

// SuperClassName returns the identifier named in an `extends` clause, or ""
// if the class has none. Only the direct superclass name is resolved here;
// the inheritance forest (spec §4.D) is responsible for chasing the chain
// across files.
func SuperClassName(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	heritage := node.ChildByFieldName("heritage")
	if heritage == nil {
		// Fall back to a full scan: the grammar sometimes surfaces the
		// clause as an unnamed positional child rather than a field.
		for i := 0; i < int(node.NamedChildCount()); i++ {
			c := node.NamedChild(i)
			if c.Type() == "class_heritage" {
				heritage = c
				break
			}
		}
		if heritage == nil {
			return ""
		}
	}
	for i := 0; i < int(heritage.NamedChildCount()); i++ {
		clause := heritage.NamedChild(i)
		if clause.Type() != "extends_clause" {
			continue
		}
		// extends_clause's first named child is the superclass expression,
		// which may be a bare identifier or a member_expression / generic
		// call (e.g. `extends Base<T>`); take the leading identifier text.
		if clause.NamedChildCount() == 0 {
			continue
		}
		expr := clause.NamedChild(0)
		return leadingIdentifier(expr, content)
	}
	return ""
}

func leadingIdentifier(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "identifier", "type_identifier":
		return node.Content(content)
	default:
		if node.NamedChildCount() > 0 {
			return leadingIdentifier(node.NamedChild(0), content)
		}
		return node.Content(content)
	}
}

// ClassBody returns the class_body node of a class declaration, or nil.
func ClassBody(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	return node.ChildByFieldName("body")
}

// WalkClassMembers calls fn once per direct member of a class body:
// method_definition (covers constructor/call/get/set by keyword) and
// public_field_definition / field_definition. Nested classes are not
// descended into — that happens at a higher level when the whole file is
// walked for top-level declarations.
func WalkClassMembers(body *sitter.Node, fn func(member *sitter.Node)) {
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "method_definition", "public_field_definition", "field_definition":
			fn(c)
		}
	}
}

// MemberIdentityOf classifies a method_definition or field_definition node
// into its MemberKind and name, per spec §3's member taxonomy.
func MemberIdentityOf(member *sitter.Node, content []byte) (types.MemberIdentity, bool) {
	if member == nil {
		return types.MemberIdentity{}, false
	}

	nameNode := member.ChildByFieldName("name")
	name := ""
	if nameNode != nil {
		name = nameNode.Content(content)
	}

	switch member.Type() {
	case "method_definition":
		if name == "constructor" {
			return types.MemberIdentity{Kind: types.KindConstructor, Name: name}, true
		}
		if hasKeywordChild(member, "get", content) {
			return types.MemberIdentity{Kind: types.KindGet, Name: name}, true
		}
		if hasKeywordChild(member, "set", content) {
			return types.MemberIdentity{Kind: types.KindSet, Name: name}, true
		}
		return types.MemberIdentity{Kind: types.KindCall, Name: name}, true
	case "public_field_definition", "field_definition":
		// An arrow-function-valued field behaves like a callable member for
		// propagation purposes (spec §3 note on fields holding closures),
		// but is still modeled as KindField: callers distinguish by value
		// shape if they need it, via FieldValueIsCallable.
		return types.MemberIdentity{Kind: types.KindField, Name: name}, true
	default:
		return types.MemberIdentity{}, false
	}
}

// FieldValueIsCallable reports whether a field_definition's initializer is a
// function/arrow expression.
func FieldValueIsCallable(member *sitter.Node) bool {
	if member == nil {
		return false
	}
	v := member.ChildByFieldName("value")
	if v == nil {
		return false
	}
	switch v.Type() {
	case "arrow_function", "function", "function_expression":
		return true
	default:
		return false
	}
}

func hasKeywordChild(node *sitter.Node, keyword string, content []byte) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if !c.IsNamed() && strings.TrimSpace(c.Content(content)) == keyword {
			return true
		}
	}
	return false
}

// IsThisMemberAccess reports whether node is `this.<name>` or
// `this["<literal>"]`, returning the accessed name when recognized.
func IsThisMemberAccess(node *sitter.Node, content []byte) (name string, ok bool) {
	return memberAccessOn(node, "this", content)
}

// IsSuperMemberAccess reports whether node is `super.<name>` or
// `super["<literal>"]`.
func IsSuperMemberAccess(node *sitter.Node, content []byte) (name string, ok bool) {
	return memberAccessOn(node, "super", content)
}

func memberAccessOn(node *sitter.Node, receiver string, content []byte) (string, bool) {
	if node == nil {
		return "", false
	}
	switch node.Type() {
	case "member_expression":
		obj := node.ChildByFieldName("object")
		prop := node.ChildByFieldName("property")
		if obj == nil || prop == nil {
			return "", false
		}
		if strings.TrimSpace(obj.Content(content)) != receiver {
			return "", false
		}
		return prop.Content(content), true
	case "subscript_expression":
		obj := node.ChildByFieldName("object")
		idx := node.ChildByFieldName("index")
		if obj == nil || idx == nil {
			return "", false
		}
		if strings.TrimSpace(obj.Content(content)) != receiver {
			return "", false
		}
		if idx.Type() == "string" {
			return unquote(idx.Content(content)), true
		}
		// Dynamic index (`this[expr]`): name is not staticaly known. The
		// caller treats this as an uncertain call site per spec §4.F.
		return "", false
	default:
		return "", false
	}
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '`' && s[len(s)-1] == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// IsDynamicThisIndex reports whether node is `this[<non-literal-expr>]`,
// the uncertain call-site shape spec §4.F requires a warning for.
func IsDynamicThisIndex(node *sitter.Node, content []byte) bool {
	if node == nil || node.Type() != "subscript_expression" {
		return false
	}
	obj := node.ChildByFieldName("object")
	idx := node.ChildByFieldName("index")
	if obj == nil || idx == nil {
		return false
	}
	if strings.TrimSpace(obj.Content(content)) != "this" {
		return false
	}
	return idx.Type() != "string"
}

// ChainDepth returns the number of member_expression/subscript_expression
// links between node and its innermost `object`, e.g. `this.a.b.c` has
// depth 3. Used to flag the "deep chain" uncertainty category (spec §4.F):
// call sites reached through more than one hop off `this`/`super` are
// recorded as uncertain rather than precisely resolved.
func ChainDepth(node *sitter.Node) int {
	depth := 0
	cur := node
	for cur != nil {
		switch cur.Type() {
		case "member_expression", "subscript_expression":
			depth++
			cur = cur.ChildByFieldName("object")
		default:
			return depth
		}
	}
	return depth
}

// CallCallee returns the callee expression of a call_expression node.
func CallCallee(call *sitter.Node) *sitter.Node {
	if call == nil || call.Type() != "call_expression" {
		return nil
	}
	return call.ChildByFieldName("function")
}

// WalkCallExpressions invokes fn for every call_expression node in the
// subtree rooted at node, depth-first.
func WalkCallExpressions(node *sitter.Node, fn func(call *sitter.Node)) {
	if node == nil {
		return
	}
	if node.Type() == "call_expression" {
		fn(node)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		WalkCallExpressions(node.NamedChild(i), fn)
	}
}

// WalkTopLevel invokes fn once per named top-level child of a parsed
// program's root node (import/export/class/function/const declarations),
// the granularity at which spec §4.E's top-level-runtime-change detection
// operates.
func WalkTopLevel(root *sitter.Node, fn func(node *sitter.Node)) {
	if root == nil {
		return
	}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		fn(root.NamedChild(i))
	}
}

// IsImportOrExportStatement reports whether node is an import/export
// declaration, the shape spec §4.G's module graph is seeded from.
func IsImportOrExportStatement(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Type() {
	case "import_statement", "export_statement":
		return true
	default:
		return false
	}
}

// FieldTypeAnnotationClassName returns the uppercase-leading type name
// written as a field's type annotation (`field: LoginPage`), the first of
// the two composed-field sources spec §3/§4.F name.
func FieldTypeAnnotationClassName(member *sitter.Node, content []byte) (string, bool) {
	if member == nil {
		return "", false
	}
	typeNode := member.ChildByFieldName("type")
	if typeNode == nil {
		return "", false
	}
	name := leadingIdentifier(typeNode, content)
	if name == "" || !startsUpper(name) {
		return "", false
	}
	return name, true
}

// ConstructorComposedFields scans a constructor's body for assignments of
// shape `this.<field> = new <Type>(...)`, the second composed-field source
// spec §3/§4.F names.
func ConstructorComposedFields(constructorMember *sitter.Node, content []byte) map[string]string {
	out := make(map[string]string)
	if constructorMember == nil {
		return out
	}
	body := constructorMember.ChildByFieldName("body")
	if body == nil {
		return out
	}
	walkAssignments(body, content, out)
	return out
}

func walkAssignments(node *sitter.Node, content []byte, out map[string]string) {
	if node == nil {
		return
	}
	if node.Type() == "assignment_expression" {
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		if left != nil && right != nil {
			if fieldName, ok := IsThisMemberAccess(left, content); ok && right.Type() == "new_expression" {
				ctor := right.ChildByFieldName("constructor")
				if ctor != nil {
					name := leadingIdentifier(ctor, content)
					if name != "" && startsUpper(name) {
						out[fieldName] = name
					}
				}
			}
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		walkAssignments(node.NamedChild(i), content, out)
	}
}

// IsTypeOnlyImportOrExport reports whether node is `import type {...} from
// "..."` or `export type {...}`/`export type * from "..."` — these carry
// no runtime behavior and spec §4.E excludes them from the top-level
// runtime fingerprint.
func IsTypeOnlyImportOrExport(node *sitter.Node, content []byte) bool {
	if node == nil {
		return false
	}
	switch node.Type() {
	case "import_statement", "export_statement":
	default:
		return false
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.IsNamed() {
			// The first named child terminates the search for the
			// "type" keyword, which always appears before it.
			break
		}
		if strings.TrimSpace(c.Content(content)) == "type" {
			return true
		}
	}
	return false
}

// IsTopLevelRuntimeRelevant reports whether node contributes to spec
// §4.E's top-level runtime fingerprint: it excludes type-only
// imports/exports, interface/type-alias declarations, and class
// declarations (class bodies are diffed at member granularity instead).
func IsTopLevelRuntimeRelevant(node *sitter.Node, content []byte) bool {
	if node == nil {
		return false
	}
	if IsClassDeclaration(node) {
		return false
	}
	switch node.Type() {
	case "interface_declaration", "type_alias_declaration":
		return false
	case "export_statement":
		if IsTypeOnlyImportOrExport(node, content) {
			return false
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			c := node.NamedChild(i)
			if IsClassDeclaration(c) || c.Type() == "interface_declaration" || c.Type() == "type_alias_declaration" {
				return false
			}
		}
		return true
	case "import_statement":
		return !IsTypeOnlyImportOrExport(node, content)
	default:
		return true
	}
}

func startsUpper(s string) bool {
	if s == "" {
		return false
	}
	r := s[0]
	return r >= 'A' && r <= 'Z'
}
