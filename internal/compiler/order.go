package compiler

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/viewmerge/internal/ir"
)

// OrderWarning reports a module order that disagrees with declared
// dependencies.
//
// These are warnings, not errors: the manifest order is the resolution order
// and is used as given. A warning only means extension fragments from a
// module may be applied before those of a module it depends on.
type OrderWarning struct {
	Path    []string `json:"path"`    // ["sale", "base"] or a cycle ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// AnalyzeModuleOrder checks the manifest order against declared depends.
//
// Modules on a dependency cycle (strongly connected components of the
// depends graph, found with Tarjan's algorithm, plus self-dependencies) get
// one warning per cycle, whose path starts at the member listed first.
// Every other dependency listed after its dependent gets its own warning.
// Unknown dependencies are ignored. Warnings come out in manifest order.
func AnalyzeModuleOrder(m *ir.Manifest) []OrderWarning {
	warnings := []OrderWarning{}
	if len(m.Modules) == 0 {
		return warnings
	}

	g := newModuleGraph(m)
	onCycle := make(map[string]bool)
	for _, comp := range g.components() {
		if len(comp) == 1 && !g.dependsOn(comp[0], comp[0]) {
			continue
		}
		for _, name := range comp {
			onCycle[name] = true
		}
		warnings = append(warnings, cycleWarning(g.cycleFrom(comp)))
	}

	for _, name := range g.order {
		if onCycle[name] {
			continue
		}
		for _, dep := range g.deps[name] {
			if g.rank[dep] > g.rank[name] {
				warnings = append(warnings, OrderWarning{
					Path:    []string{name, dep},
					Message: fmt.Sprintf("module %s is listed before its dependency %s", name, dep),
					Level:   "warning",
				})
			}
		}
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		return g.rank[warnings[i].Path[0]] < g.rank[warnings[j].Path[0]]
	})
	return warnings
}

// moduleGraph is the depends graph restricted to manifest modules.
type moduleGraph struct {
	order []string
	rank  map[string]int
	deps  map[string][]string
}

func newModuleGraph(m *ir.Manifest) *moduleGraph {
	g := &moduleGraph{
		order: make([]string, 0, len(m.Modules)),
		rank:  make(map[string]int, len(m.Modules)),
		deps:  make(map[string][]string, len(m.Modules)),
	}
	for i, mod := range m.Modules {
		g.order = append(g.order, mod.Name)
		g.rank[mod.Name] = i
	}
	for _, mod := range m.Modules {
		for _, dep := range mod.Depends {
			if _, ok := g.rank[dep]; ok {
				g.deps[mod.Name] = append(g.deps[mod.Name], dep)
			}
		}
	}
	return g
}

func (g *moduleGraph) dependsOn(name, dep string) bool {
	return slices.Contains(g.deps[name], dep)
}

// components returns the strongly connected components, each sorted by
// manifest rank.
func (g *moduleGraph) components() [][]string {
	t := &tarjan{
		g:     g,
		index: make(map[string]int, len(g.order)),
		low:   make(map[string]int, len(g.order)),
		on:    make(map[string]bool, len(g.order)),
	}
	for _, name := range g.order {
		if _, seen := t.index[name]; !seen {
			t.visit(name)
		}
	}
	for _, comp := range t.out {
		sort.Slice(comp, func(i, j int) bool { return g.rank[comp[i]] < g.rank[comp[j]] })
	}
	return t.out
}

type tarjan struct {
	g     *moduleGraph
	next  int
	index map[string]int
	low   map[string]int
	on    map[string]bool
	stack []string
	out   [][]string
}

func (t *tarjan) visit(v string) {
	t.index[v], t.low[v] = t.next, t.next
	t.next++
	t.stack = append(t.stack, v)
	t.on[v] = true

	for _, w := range t.g.deps[v] {
		if _, seen := t.index[w]; !seen {
			t.visit(w)
			t.low[v] = min(t.low[v], t.low[w])
		} else if t.on[w] {
			t.low[v] = min(t.low[v], t.index[w])
		}
	}
	if t.low[v] != t.index[v] {
		return
	}

	var comp []string
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.on[w] = false
		comp = append(comp, w)
		if w == v {
			break
		}
	}
	t.out = append(t.out, comp)
}

// cycleFrom returns the shortest dependency cycle through the first module
// of comp, as a closed path. Every member of a component reaches every
// other, so a breadth-first search from the start always gets back to it.
func (g *moduleGraph) cycleFrom(comp []string) []string {
	start := comp[0]
	if g.dependsOn(start, start) {
		return []string{start, start}
	}

	inComp := make(map[string]bool, len(comp))
	for _, name := range comp {
		inComp[name] = true
	}
	parent := map[string]string{}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range g.deps[cur] {
			if dep == start {
				path := []string{start}
				for n := cur; n != start; n = parent[n] {
					path = append(path, n)
				}
				slices.Reverse(path[1:])
				return append(path, start)
			}
			if _, seen := parent[dep]; seen || !inComp[dep] {
				continue
			}
			parent[dep] = cur
			queue = append(queue, dep)
		}
	}
	return []string{start, start}
}

func cycleWarning(path []string) OrderWarning {
	msg := fmt.Sprintf("dependency cycle: %s", strings.Join(path, " → "))
	if len(path) == 2 {
		msg = fmt.Sprintf("module %s depends on itself", path[0])
	}
	return OrderWarning{Path: path, Message: msg, Level: "warning"}
}
