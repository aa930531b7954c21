// Package inheritance implements Component D, the Inheritance Graph
// Builder: scan configured analysis roots and extract single-parent
// `extends` relations. Only direct class inheritance is modeled — mixins,
// interface implements clauses, and multiple inheritance are explicitly
// out of scope per spec §4.D.
package inheritance

import (
	"context"

	"github.com/kestrel-ci/pomimpact/internal/classmodel"
	"github.com/kestrel-ci/pomimpact/internal/tsast"
)

// Graph is the immutable-after-construction parent/child relation.
type Graph struct {
	ParentsByChild   map[string]string
	ChildrenByParent map[string]map[string]bool
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		ParentsByChild:   make(map[string]string),
		ChildrenByParent: make(map[string]map[string]bool),
	}
}

// Add records a parent/child edge. A class with no `extends` clause is
// never added, so ParentsByChild lookups for it simply miss.
func (g *Graph) Add(child, parent string) {
	if child == "" || parent == "" {
		return
	}
	g.ParentsByChild[child] = parent
	if g.ChildrenByParent[parent] == nil {
		g.ChildrenByParent[parent] = make(map[string]bool)
	}
	g.ChildrenByParent[parent][child] = true
}

// Lineage returns class followed by every ancestor, closest first, the
// order member resolution walks in spec §4.F's "resolve up the lineage".
func (g *Graph) Lineage(class string) []string {
	seen := make(map[string]bool)
	var chain []string
	cur := class
	for cur != "" && !seen[cur] {
		chain = append(chain, cur)
		seen[cur] = true
		cur = g.ParentsByChild[cur]
	}
	return chain
}

// Descendants returns every transitive child of class (not including class
// itself), used by propagation's "descendants are equally impacted" rule.
func (g *Graph) Descendants(class string) []string {
	var out []string
	visited := make(map[string]bool)
	var stack []string
	for c := range g.ChildrenByParent[class] {
		stack = append(stack, c)
	}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[c] {
			continue
		}
		visited[c] = true
		out = append(out, c)
		for gc := range g.ChildrenByParent[c] {
			stack = append(stack, gc)
		}
	}
	return out
}

// SourceFile is one file's content paired with its detected language, the
// shape every analysis-roots scanner collaborator should hand to Build.
type SourceFile struct {
	Path     string
	Language tsast.Language
	Content  []byte
}

// Build parses every file and records extends relations for each class it
// finds. Files that fail to parse are skipped here (spec §7 category 3:
// per-file recoverable failure).
func Build(ctx context.Context, files []SourceFile) (*Graph, error) {
	g := New()
	for _, f := range files {
		tree, err := tsast.Parse(ctx, f.Language, f.Content)
		if err != nil {
			continue
		}
		fm := classmodel.BuildFile(f.Path, tree.RootNode(), f.Content)
		for _, cls := range fm.Classes {
			if cls.SuperName != "" {
				g.Add(cls.Name, cls.SuperName)
			}
		}
	}
	return g, nil
}
