package propagation

import "github.com/kestrel-ci/pomimpact/pkg/types"

// UnresolvedChange records a changed-method entry from the detector whose
// name could not be resolved to a MemberKey in the class's own lineage
// (removed or renamed member), kept for projection rule 2 in spec §4.F.
type UnresolvedChange struct {
	OriginClass string
	Name        string
}

// Seed resolves each (class, member-name) pair from the detector's
// changed_methods_by_class into a MemberKey where possible, returning the
// resolved seed set and the unresolved leftovers.
func (g *Graph) Seed(changedMethodsByClass map[string]map[string]bool) (map[types.MemberKey]bool, []UnresolvedChange) {
	seeds := make(map[types.MemberKey]bool)
	var unresolved []UnresolvedChange

	for class, names := range changedMethodsByClass {
		for name := range names {
			if key, ok := g.resolveInLineage(class, name); ok {
				seeds[key] = true
			} else {
				unresolved = append(unresolved, UnresolvedChange{OriginClass: class, Name: name})
			}
		}
	}
	return seeds, unresolved
}

// BFS traverses reverse_edges from seeds with a visited set, guaranteeing
// termination on recursive/mutually-recursive call graphs (spec §4.F).
func BFS(edges *EdgeSet, seeds map[types.MemberKey]bool) map[types.MemberKey]bool {
	visited := make(map[types.MemberKey]bool, len(seeds))
	queue := make([]types.MemberKey, 0, len(seeds))
	for k := range seeds {
		visited[k] = true
		queue = append(queue, k)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for caller := range edges.Reverse[cur] {
			if visited[caller] {
				continue
			}
			visited[caller] = true
			queue = append(queue, caller)
		}
	}

	return visited
}

// Result is the propagation engine's output: impacted classes and, per
// class, the impacted callable member names.
type Result struct {
	ImpactedClasses       map[string]bool
	ImpactedMethodsByClass map[string]map[string]bool
}

func classOf(key types.MemberKey) string {
	s := string(key)
	for i := 0; i < len(s); i++ {
		if s[i] == '#' {
			return s[:i]
		}
	}
	return s
}

func nameOf(key types.MemberKey) string {
	s := string(key)
	for i := 0; i < len(s); i++ {
		if s[i] == '#' {
			return s[i+1:]
		}
	}
	return ""
}

// Project implements spec §4.F's projection step: expand the visited
// member-key set's classes through composition and inheritance, then for
// every (class, member-name) pair in the Cartesian product of projected
// classes and visited member names, apply the three inclusion conditions.
func (g *Graph) Project(visited map[types.MemberKey]bool, unresolved []UnresolvedChange) *Result {
	baseClasses := make(map[string]bool)
	memberNames := make(map[string]bool)
	for key := range visited {
		baseClasses[classOf(key)] = true
		memberNames[nameOf(key)] = true
	}
	for _, u := range unresolved {
		baseClasses[u.OriginClass] = true
		memberNames[u.Name] = true
	}

	projectedClasses := g.closeClasses(baseClasses)

	result := &Result{
		ImpactedClasses:        make(map[string]bool),
		ImpactedMethodsByClass: make(map[string]map[string]bool),
	}

	for class := range projectedClasses {
		for name := range memberNames {
			if g.memberImpacted(class, name, visited, unresolved) {
				result.ImpactedClasses[class] = true
				if result.ImpactedMethodsByClass[class] == nil {
					result.ImpactedMethodsByClass[class] = make(map[string]bool)
				}
				result.ImpactedMethodsByClass[class][name] = true
			}
		}
	}

	return result
}

// closeClasses computes the transitive closure over composition owners and
// inheritance descendants, starting from base.
func (g *Graph) closeClasses(base map[string]bool) map[string]bool {
	closed := make(map[string]bool)
	var queue []string
	for c := range base {
		queue = append(queue, c)
	}

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if closed[c] {
			continue
		}
		closed[c] = true

		for owner := range g.composedOwners[c] {
			if !closed[owner] {
				queue = append(queue, owner)
			}
		}
		for d := range g.Inheritance.ChildrenByParent[c] {
			if !closed[d] {
				queue = append(queue, d)
			}
		}
	}
	return closed
}

// memberImpacted applies spec §4.F's three inclusion conditions for one
// (class, member-name) pair.
func (g *Graph) memberImpacted(class, name string, visited map[types.MemberKey]bool, unresolved []UnresolvedChange) bool {
	if g.conditionOneOrTwo(class, name, visited, unresolved) {
		return true
	}
	// Condition 3: a composed field whose type's lineage satisfies (1) or (2).
	for _, c := range g.Inheritance.Lineage(class) {
		fields, ok := g.composedFieldByClass[c]
		if !ok {
			continue
		}
		for _, fieldClass := range fields {
			if g.conditionOneOrTwo(fieldClass, name, visited, unresolved) {
				return true
			}
		}
	}
	return false
}

func (g *Graph) conditionOneOrTwo(class, name string, visited map[types.MemberKey]bool, unresolved []UnresolvedChange) bool {
	// Condition 1: name resolves in class's lineage to a visited key.
	if key, ok := g.resolveInLineage(class, name); ok && visited[key] {
		return true
	}
	// Condition 2: name was directly changed somewhere in class's lineage
	// with no resolvable key.
	lineage := g.Inheritance.Lineage(class)
	inLineage := make(map[string]bool, len(lineage))
	for _, c := range lineage {
		inLineage[c] = true
	}
	for _, u := range unresolved {
		if u.Name == name && inLineage[u.OriginClass] {
			return true
		}
	}
	return false
}
