// Package importgraph implements Component G, the Import-Graph Selector:
// a reverse-dependency graph seeded from every spec file, so a changed
// source file can be traced forward to every spec that (transitively)
// imports it.
package importgraph

import (
	"context"

	"github.com/kestrel-ci/pomimpact/internal/moduleresolve"
	"github.com/kestrel-ci/pomimpact/internal/tsast"
)

// WarnFunc records a non-fatal diagnostic.
type WarnFunc func(kind, path, message string)

// ContentReader reads a repo-relative path's current content.
type ContentReader func(path string) ([]byte, error)

// Graph is the reverse-dependency view: DependentsOf[dep] is the set of
// files (specs or intermediate sources) that directly import dep.
type Graph struct {
	DependentsOf map[string]map[string]bool
}

func newGraph() *Graph {
	return &Graph{DependentsOf: make(map[string]map[string]bool)}
}

func (g *Graph) addEdge(dep, dependent string) {
	set, ok := g.DependentsOf[dep]
	if !ok {
		set = make(map[string]bool)
		g.DependentsOf[dep] = set
	}
	set[dependent] = true
}

// Build parses every spec under specs, extracts its module references,
// resolves each against resolver, and records a reverse edge for every
// resolved in-repo dependency. It then follows those dependencies
// recursively so transitive imports are also captured, per spec §4.G.
func Build(ctx context.Context, specs []string, resolver *moduleresolve.Resolver, langFor func(path string) tsast.Language, read ContentReader, warn WarnFunc) *Graph {
	g := newGraph()
	visited := make(map[string]bool)

	var visit func(path string)
	visit = func(path string) {
		if visited[path] {
			return
		}
		visited[path] = true

		content, err := read(path)
		if err != nil {
			if warn != nil {
				warn("per-file-read-error", path, "could not read for import graph: "+err.Error())
			}
			return
		}
		lang := langFor(path)
		tree, err := tsast.Parse(ctx, lang, content)
		if err != nil {
			if warn != nil {
				warn("parse-error", path, "could not parse for import graph: "+err.Error())
			}
			return
		}

		refs := moduleresolve.ExtractReferences(tree.RootNode(), content)
		for _, ref := range refs {
			resolved, ok := resolver.Resolve(path, ref.Specifier)
			if !ok {
				continue
			}
			g.addEdge(resolved, path)
			if !ref.IsAsset {
				visit(resolved)
			}
		}
	}

	for _, spec := range specs {
		visit(spec)
	}

	return g
}

// SelectSpecs traverses from the changed-source seed set through reverse
// edges, returning every spec (member of specs) transitively reached.
func (g *Graph) SelectSpecs(seeds map[string]bool, specs []string) map[string]bool {
	specSet := make(map[string]bool, len(specs))
	for _, s := range specs {
		specSet[s] = true
	}

	visited := make(map[string]bool)
	var queue []string
	for seed := range seeds {
		queue = append(queue, seed)
	}

	selected := make(map[string]bool)
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if visited[path] {
			continue
		}
		visited[path] = true

		for dependent := range g.DependentsOf[path] {
			if specSet[dependent] {
				selected[dependent] = true
			}
			if !visited[dependent] {
				queue = append(queue, dependent)
			}
		}
	}

	return selected
}
