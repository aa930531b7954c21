// Package fixturemap implements Component C, the Fixture Map Parser: it
// turns a single types-declaration file into the bidirectional
// fixture-key/class-name mapping the spec selection pipeline (Component H)
// binds specs against.
package fixturemap

import (
	"context"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kestrel-ci/pomimpact/internal/tsast"
)

// Map is the bidirectional fixture binding table from spec §3.
type Map struct {
	ClassToFixtureKeys map[string]map[string]bool
	FixtureKeyToClass  map[string]string
}

func newMap() *Map {
	return &Map{
		ClassToFixtureKeys: make(map[string]map[string]bool),
		FixtureKeyToClass:  make(map[string]string),
	}
}

func (m *Map) add(property, className string) {
	if property == "" || className == "" {
		return
	}
	if m.ClassToFixtureKeys[className] == nil {
		m.ClassToFixtureKeys[className] = make(map[string]bool)
	}
	m.ClassToFixtureKeys[className][property] = true
	// Last writer wins for the inverse map when two classes happen to
	// share a fixture key; the spec's Map<FixtureKey, ClassName> is
	// single-valued by definition.
	m.FixtureKeyToClass[property] = className
}

// ParseFile reads path (missing file yields empty maps per spec §4.C) and
// parses it with lang.
func ParseFile(ctx context.Context, lang tsast.Language, path string) (*Map, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newMap(), nil
		}
		return nil, err
	}
	return Parse(ctx, lang, content)
}

// Parse builds the fixture map from content.
func Parse(ctx context.Context, lang tsast.Language, content []byte) (*Map, error) {
	tree, err := tsast.Parse(ctx, lang, content)
	if err != nil {
		return newMap(), nil
	}

	decls := make(map[string]*sitter.Node)
	tsast.WalkTopLevel(tree.RootNode(), func(node *sitter.Node) {
		decl := unwrapExport(node)
		if decl == nil {
			return
		}
		switch decl.Type() {
		case "type_alias_declaration", "interface_declaration":
			name := fieldText(decl, "name", content)
			if name != "" {
				decls[name] = decl
			}
		}
	})

	m := newMap()
	r := &resolver{decls: decls, content: content, visiting: make(map[string]bool)}
	for name, decl := range decls {
		for _, pair := range r.resolveDeclaration(name) {
			m.add(pair.property, pair.class)
		}
		_ = decl
	}
	return m, nil
}

func unwrapExport(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Type() == "type_alias_declaration" || node.Type() == "interface_declaration" {
		return node
	}
	if node.Type() != "export_statement" {
		return nil
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		c := node.NamedChild(i)
		if c.Type() == "type_alias_declaration" || c.Type() == "interface_declaration" {
			return c
		}
	}
	return nil
}

type pair struct {
	property string
	class    string
}

// resolver walks declared types to (property, class) pairs, memoizing by
// declaration name and guarding against reference cycles (spec §4.C).
type resolver struct {
	decls    map[string]*sitter.Node
	content  []byte
	visiting map[string]bool
	memo     map[string][]pair
}

func (r *resolver) resolveDeclaration(name string) []pair {
	if r.memo == nil {
		r.memo = make(map[string][]pair)
	}
	if cached, ok := r.memo[name]; ok {
		return cached
	}
	if r.visiting[name] {
		return nil // cycle guard
	}
	decl, ok := r.decls[name]
	if !ok {
		return nil
	}
	r.visiting[name] = true
	defer delete(r.visiting, name)

	var out []pair
	switch decl.Type() {
	case "type_alias_declaration":
		value := decl.ChildByFieldName("value")
		out = r.resolveType(value)
	case "interface_declaration":
		body := decl.ChildByFieldName("body")
		out = append(out, r.resolveObjectLike(body)...)
		out = append(out, r.resolveHeritage(decl)...)
	}

	r.memo[name] = out
	return out
}

func (r *resolver) resolveHeritage(interfaceDecl *sitter.Node) []pair {
	var out []pair
	for i := 0; i < int(interfaceDecl.NamedChildCount()); i++ {
		c := interfaceDecl.NamedChild(i)
		if c.Type() != "extends_type_clause" && c.Type() != "extends_clause" {
			continue
		}
		for j := 0; j < int(c.NamedChildCount()); j++ {
			base := c.NamedChild(j)
			name := leadingIdentifierText(base, r.content)
			if name != "" {
				out = append(out, r.resolveDeclaration(name)...)
			}
		}
	}
	return out
}

func (r *resolver) resolveType(node *sitter.Node) []pair {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "parenthesized_type":
		if node.NamedChildCount() > 0 {
			return r.resolveType(node.NamedChild(0))
		}
		return nil
	case "intersection_type", "union_type":
		var out []pair
		for i := 0; i < int(node.NamedChildCount()); i++ {
			out = append(out, r.resolveType(node.NamedChild(i))...)
		}
		return out
	case "object_type", "interface_body":
		return r.resolveObjectLike(node)
	case "type_identifier":
		name := qualifiedRightmost(node.Content(r.content))
		return r.resolveDeclaration(name)
	case "generic_type":
		name := fieldText(node, "name", r.content)
		if name == "" && node.NamedChildCount() > 0 {
			name = qualifiedRightmost(node.NamedChild(0).Content(r.content))
		}
		return r.resolveDeclaration(qualifiedRightmost(name))
	default:
		return nil
	}
}

func (r *resolver) resolveObjectLike(node *sitter.Node) []pair {
	var out []pair
	if node == nil {
		return out
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		prop := node.NamedChild(i)
		if prop.Type() != "property_signature" {
			continue
		}
		name := fieldText(prop, "name", r.content)
		if name == "" {
			continue
		}
		typeNode := propertyTypeNode(prop)
		className := leadingIdentifierText(typeNode, r.content)
		if className != "" && startsUpper(className) {
			out = append(out, pair{property: name, class: className})
		}
	}
	return out
}

func propertyTypeNode(property *sitter.Node) *sitter.Node {
	if t := property.ChildByFieldName("type"); t != nil {
		if t.Type() == "type_annotation" && t.NamedChildCount() > 0 {
			return t.NamedChild(0)
		}
		return t
	}
	for i := 0; i < int(property.NamedChildCount()); i++ {
		c := property.NamedChild(i)
		if c.Type() == "type_annotation" && c.NamedChildCount() > 0 {
			return c.NamedChild(0)
		}
	}
	return nil
}

func leadingIdentifierText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "identifier", "type_identifier":
		return qualifiedRightmost(node.Content(content))
	case "generic_type":
		if node.NamedChildCount() > 0 {
			return leadingIdentifierText(node.NamedChild(0), content)
		}
	case "nested_type_identifier", "member_expression":
		return qualifiedRightmost(node.Content(content))
	}
	if node.NamedChildCount() > 0 {
		return leadingIdentifierText(node.NamedChild(0), content)
	}
	return ""
}

// qualifiedRightmost returns the final segment of a dotted name (`A.B.C`
// -> `C`), per spec §4.C: "qualified names yield the rightmost identifier".
func qualifiedRightmost(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '.'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func startsUpper(s string) bool {
	if s == "" {
		return false
	}
	return s[0] >= 'A' && s[0] <= 'Z'
}

func fieldText(node *sitter.Node, field string, content []byte) string {
	f := node.ChildByFieldName(field)
	if f == nil {
		return ""
	}
	return f.Content(content)
}
