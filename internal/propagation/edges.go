package propagation

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kestrel-ci/pomimpact/pkg/types"
)

// WarnFunc records a non-fatal diagnostic (spec §7 category 4).
type WarnFunc func(kind, path, message string)

// EdgeSet is the direct call-edge map from spec §4.F, plus its transpose.
type EdgeSet struct {
	Direct  map[types.MemberKey]map[types.MemberKey]bool
	Reverse map[types.MemberKey]map[types.MemberKey]bool
}

func newEdgeSet() *EdgeSet {
	return &EdgeSet{
		Direct:  make(map[types.MemberKey]map[types.MemberKey]bool),
		Reverse: make(map[types.MemberKey]map[types.MemberKey]bool),
	}
}

func (e *EdgeSet) add(from, to types.MemberKey) {
	if e.Direct[from] == nil {
		e.Direct[from] = make(map[types.MemberKey]bool)
	}
	e.Direct[from][to] = true
	if e.Reverse[to] == nil {
		e.Reverse[to] = make(map[types.MemberKey]bool)
	}
	e.Reverse[to][from] = true
}

// ExtractEdges walks every callable body in the graph and records the
// direct call edges described by spec §4.F's resolution table.
func (g *Graph) ExtractEdges(warn WarnFunc) *EdgeSet {
	edges := newEdgeSet()

	for key, node := range g.nodeByKey {
		callerClass := string(key)
		if idx := strings.IndexByte(callerClass, '#'); idx >= 0 {
			callerClass = callerClass[:idx]
		}
		content := g.contentByPath[string(key)]

		walkCallExpressions(node, func(call *sitter.Node) {
			callee := call.ChildByFieldName("function")
			if callee == nil {
				return
			}
			g.resolveCallEdge(key, callerClass, callee, content, edges, warn)
		})
	}

	return edges
}

func (g *Graph) resolveCallEdge(caller types.MemberKey, callerClass string, callee *sitter.Node, content []byte, edges *EdgeSet, warn WarnFunc) {
	obj, name, dynamic, ok := memberParts(callee, content)
	if !ok {
		return
	}

	if isIdentifierText(obj, content, "this") {
		if dynamic {
			g.fanOutToEveryCallable(caller, callerClass, edges)
			if warn != nil {
				warn("dynamic-this-index", callerClass, "this[...] call with non-literal index")
			}
			return
		}
		if key, ok := g.resolveInLineage(callerClass, name); ok {
			edges.add(caller, key)
		} else if warn != nil {
			warn("unresolved-this-call", callerClass, "could not resolve this."+name+"(...)")
		}
		return
	}

	if isIdentifierText(obj, content, "super") {
		parent := g.Inheritance.ParentsByChild[callerClass]
		if parent == "" {
			if warn != nil {
				warn("unresolved-super-call", callerClass, "super."+name+"(...) with no known parent class")
			}
			return
		}
		if dynamic {
			g.fanOutToEveryCallable(caller, callerClass, edges)
			if warn != nil {
				warn("dynamic-this-index", callerClass, "super[...] call with non-literal index")
			}
			return
		}
		if key, ok := g.resolveInLineage(parent, name); ok {
			edges.add(caller, key)
		} else if warn != nil {
			warn("unresolved-super-call", callerClass, "could not resolve super."+name+"(...)")
		}
		return
	}

	// this.<field>.<name>(...): the object of the callee is itself a
	// member/subscript access rooted at `this` one level up.
	if fieldObj, field, fieldDynamic, ok2 := memberParts(obj, content); ok2 && isIdentifierText(fieldObj, content, "this") {
		if dynamic || fieldDynamic {
			g.fanOutToEveryCallable(caller, callerClass, edges)
			if warn != nil {
				warn("dynamic-this-index", callerClass, "this.<field>[...] call with a dynamic segment")
			}
			return
		}
		fieldClass, ok3 := g.resolveComposedField(callerClass, field)
		if !ok3 {
			if warn != nil {
				warn("unresolved-composed-field", callerClass, "could not resolve composed field \""+field+"\"")
			}
			return
		}
		if key, ok := g.resolveInLineage(fieldClass, name); ok {
			edges.add(caller, key)
		} else if warn != nil {
			warn("unresolved-this-call", fieldClass, "could not resolve this."+field+"."+name+"(...)")
		}
		return
	}

	// Anything rooted at `this` beyond depth 2 is a deep chain: fan out
	// and warn, the conservative fail-open choice spec §4.F prescribes.
	if rootIsThis(obj, content) {
		g.fanOutToEveryCallable(caller, callerClass, edges)
		if warn != nil {
			warn("deep-this-chain", callerClass, "this.* chain of depth >= 2 before the call")
		}
		return
	}
	// Not a this/super-rooted call; out of scope for the class-scoped
	// call graph (e.g. a free function or an unrelated object's method).
}

func (g *Graph) fanOutToEveryCallable(caller types.MemberKey, callerClass string, edges *EdgeSet) {
	for name, key := range g.callableKeyByClassAndName[callerClass] {
		_ = name
		edges.add(caller, key)
	}
}

func walkCallExpressions(node *sitter.Node, fn func(call *sitter.Node)) {
	if node == nil {
		return
	}
	if node.Type() == "call_expression" {
		fn(node)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		walkCallExpressions(node.NamedChild(i), fn)
	}
}

// memberParts extracts (object, name, dynamic, ok) from a member_expression
// or subscript_expression node, regardless of what its object happens to
// be — the caller decides what "this"/"super"-rootedness means.
func memberParts(node *sitter.Node, content []byte) (object *sitter.Node, name string, dynamic bool, ok bool) {
	if node == nil {
		return nil, "", false, false
	}
	switch node.Type() {
	case "member_expression":
		object = node.ChildByFieldName("object")
		prop := node.ChildByFieldName("property")
		if object == nil || prop == nil {
			return nil, "", false, false
		}
		return object, prop.Content(content), false, true
	case "subscript_expression":
		object = node.ChildByFieldName("object")
		idx := node.ChildByFieldName("index")
		if object == nil || idx == nil {
			return nil, "", false, false
		}
		if idx.Type() == "string" {
			return object, unquote(idx.Content(content)), false, true
		}
		return object, "", true, true
	default:
		return nil, "", false, false
	}
}

func isIdentifierText(node *sitter.Node, content []byte, text string) bool {
	if node == nil {
		return false
	}
	switch node.Type() {
	case "identifier", "this", "super":
		return strings.TrimSpace(node.Content(content)) == text
	default:
		return false
	}
}

// rootIsThis walks down the object chain of a member/subscript expression
// until it bottoms out, and reports whether that root is `this`.
func rootIsThis(node *sitter.Node, content []byte) bool {
	cur := node
	for cur != nil {
		if isIdentifierText(cur, content, "this") {
			return true
		}
		obj, _, _, ok := memberParts(cur, content)
		if !ok {
			return false
		}
		cur = obj
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
