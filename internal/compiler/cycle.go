package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/relpath/internal/schema"
)

// CycleWarning represents a cycle in the model relationship graph.
//
// Relationship cycles are normal (an author has books, a book has an
// author), so they are reported at info level. They matter when reading
// paths: a dotted path through a cycle can grow without bound, and
// resolution never rejects a path for revisiting a model.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["Author", "Book", "Author"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles finds cycles in the graph of direct relationships between
// models.
//
// The algorithm:
//  1. Build model → target model edges from direct relationships
//     (composites add nothing their links do not)
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle
//
// Output is deterministic: nodes and edges are visited in name order and
// each cycle path starts at its smallest model name.
func AnalyzeCycles(defs []schema.ModelDef) []CycleWarning {
	if len(defs) == 0 {
		return []CycleWarning{}
	}

	graph := buildRelationshipGraph(defs)
	sccs := tarjanSCC(graph)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}

	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// relationshipGraph maps model name → target model names.
type relationshipGraph map[string][]string

func buildRelationshipGraph(defs []schema.ModelDef) relationshipGraph {
	known := make(map[string]string, len(defs))
	for _, def := range defs {
		known[schema.NormalizeName(def.Name)] = def.Name
	}

	graph := make(relationshipGraph)
	for _, def := range defs {
		if graph[def.Name] == nil {
			graph[def.Name] = []string{}
		}
		for _, rd := range def.Relationships {
			if len(rd.Through) > 0 {
				continue
			}
			target, ok := known[schema.NormalizeName(rd.Target)]
			if !ok {
				continue
			}
			if !slices.Contains(graph[def.Name], target) {
				graph[def.Name] = append(graph[def.Name], target)
			}
		}
		slices.Sort(graph[def.Name])
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph relationshipGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of model names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph relationshipGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, graph relationshipGraph) CycleWarning {
	if len(scc) == 1 {
		model := scc[0]
		return CycleWarning{
			Path:    []string{model, model},
			Message: fmt.Sprintf("Self-referencing model: %s → %s", model, model),
			Level:   "info",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Relationship cycle: %s", strings.Join(path, " → ")),
		Level:   "info",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: start at the smallest name in the SCC, follow edges to other
// SCC members, continue until we return to the start node.
func reconstructCyclePath(scc []string, graph relationshipGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	start := slices.Min(scc)
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		// Prefer unvisited members; close the cycle only when none remain.
		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && !visited[neighbor] {
				next = neighbor
				break
			}
		}
		if next == "" && slices.Contains(graph[current], start) {
			next = start
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
