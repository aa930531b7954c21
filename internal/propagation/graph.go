// Package propagation implements Component F, the Impact Propagation
// Engine: it builds the call/composition graphs from the analysis roots,
// seeds a BFS from the semantic detector's changed-member output, and
// projects the reachable members back onto impacted classes.
package propagation

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kestrel-ci/pomimpact/internal/classmodel"
	"github.com/kestrel-ci/pomimpact/internal/inheritance"
	"github.com/kestrel-ci/pomimpact/internal/tsast"
	"github.com/kestrel-ci/pomimpact/pkg/types"
)

// Graph is the call/composition model built once per invocation from
// every file under the analysis roots.
type Graph struct {
	Inheritance *inheritance.Graph

	callableKeyByClassAndName map[string]map[string]types.MemberKey
	composedFieldByClass      map[string]map[string]string
	composedOwners            map[string]map[string]bool // composed class -> owner classes
	nodeByKey                 map[types.MemberKey]*sitter.Node
	contentByPath             map[string][]byte
}

// SourceFile is one parsed-or-parseable file under the analysis roots.
type SourceFile struct {
	Path     string
	Language tsast.Language
	Content  []byte
}

// Build parses every file once and extracts the graph's node/edge inputs.
// The inheritance graph is passed in rather than rebuilt, since Component
// D already scanned the same roots (spec §2 data flow: D and C run
// independently of, and before, F).
func Build(ctx context.Context, files []SourceFile, inh *inheritance.Graph) *Graph {
	g := &Graph{
		Inheritance:               inh,
		callableKeyByClassAndName: make(map[string]map[string]types.MemberKey),
		composedFieldByClass:      make(map[string]map[string]string),
		composedOwners:            make(map[string]map[string]bool),
		nodeByKey:                 make(map[types.MemberKey]*sitter.Node),
		contentByPath:             make(map[string][]byte),
	}

	for _, f := range files {
		tree, err := tsast.Parse(ctx, f.Language, f.Content)
		if err != nil {
			continue
		}
		fm := classmodel.BuildFile(f.Path, tree.RootNode(), f.Content)
		for _, cls := range fm.Classes {
			if g.callableKeyByClassAndName[cls.Name] == nil {
				g.callableKeyByClassAndName[cls.Name] = make(map[string]types.MemberKey)
			}
			for name, member := range cls.CallableMembersByName {
				key := types.NewMemberKey(cls.Name, name)
				g.callableKeyByClassAndName[cls.Name][name] = key
				if member.ImplementationNode != nil {
					if node, ok := member.ImplementationNode.(*sitter.Node); ok {
						g.nodeByKey[key] = node
						g.contentByPath[string(key)] = f.Content
					}
				}
			}
			if len(cls.ComposedFieldClassByName) > 0 {
				g.composedFieldByClass[cls.Name] = cls.ComposedFieldClassByName
				for _, fieldClass := range cls.ComposedFieldClassByName {
					if g.composedOwners[fieldClass] == nil {
						g.composedOwners[fieldClass] = make(map[string]bool)
					}
					g.composedOwners[fieldClass][cls.Name] = true
				}
			}
		}
	}

	return g
}

// resolveInLineage walks class's lineage looking for a callable named
// name, closest ancestor first.
func (g *Graph) resolveInLineage(class, name string) (types.MemberKey, bool) {
	for _, c := range g.Inheritance.Lineage(class) {
		if byName, ok := g.callableKeyByClassAndName[c]; ok {
			if key, ok := byName[name]; ok {
				return key, true
			}
		}
	}
	return "", false
}

// resolveComposedField looks up field in the caller's lineage composed-
// field map (spec §4.F's `this.<field>.<name>(...)` resolution rule).
func (g *Graph) resolveComposedField(class, field string) (string, bool) {
	for _, c := range g.Inheritance.Lineage(class) {
		if fields, ok := g.composedFieldByClass[c]; ok {
			if cls, ok := fields[field]; ok {
				return cls, true
			}
		}
	}
	return "", false
}
