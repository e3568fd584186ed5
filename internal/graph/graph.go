// Package graph models the directed note graph and computes its layouts.
package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/slipbox/internal/models"
)

// Graph is a directed graph over note ids.
type Graph struct {
	nodes map[int]bool
	out   map[int]map[int]bool
	in    map[int]map[int]bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[int]bool),
		out:   make(map[int]map[int]bool),
		in:    make(map[int]map[int]bool),
	}
}

// FromLinks builds a graph with a node per id and an edge per link whose
// endpoints are both nodes. When orient is set, backward links are reversed.
func FromLinks(ids []int, links []models.Link, orient bool) *Graph {
	g := New()
	for _, id := range ids {
		g.AddNode(id)
	}
	for _, l := range links {
		if !g.nodes[l.Src] || !g.nodes[l.Dest] {
			continue
		}
		if orient && l.Direction == models.Backward {
			g.AddEdge(l.Dest, l.Src)
		} else {
			g.AddEdge(l.Src, l.Dest)
		}
	}
	return g
}

// AddNode adds id if absent.
func (g *Graph) AddNode(id int) {
	g.nodes[id] = true
}

// AddEdge adds src -> dest and both endpoints.
func (g *Graph) AddEdge(src, dest int) {
	g.AddNode(src)
	g.AddNode(dest)
	if g.out[src] == nil {
		g.out[src] = make(map[int]bool)
	}
	if g.in[dest] == nil {
		g.in[dest] = make(map[int]bool)
	}
	g.out[src][dest] = true
	g.in[dest][src] = true
}

// Has reports whether id is a node.
func (g *Graph) Has(id int) bool { return g.nodes[id] }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns the node ids in ascending order.
func (g *Graph) Nodes() []int {
	return sortedKeys(g.nodes)
}

// Successors returns the targets of the edges leaving id, ascending.
func (g *Graph) Successors(id int) []int { return sortedKeys(g.out[id]) }

// Predecessors returns the sources of the edges entering id, ascending.
func (g *Graph) Predecessors(id int) []int { return sortedKeys(g.in[id]) }

// Edge is a directed edge.
type Edge struct {
	Src, Dest int
}

// Edges returns every edge ordered by (src, dest).
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, src := range g.Nodes() {
		for _, dest := range g.Successors(src) {
			out = append(out, Edge{Src: src, Dest: dest})
		}
	}
	return out
}

// Subgraph returns the graph induced by ids. Unknown ids are ignored.
func (g *Graph) Subgraph(ids []int) *Graph {
	keep := make(map[int]bool, len(ids))
	for _, id := range ids {
		if g.nodes[id] {
			keep[id] = true
		}
	}
	sub := New()
	for id := range keep {
		sub.AddNode(id)
		for dest := range g.out[id] {
			if keep[dest] {
				sub.AddEdge(id, dest)
			}
		}
	}
	return sub
}

// Neighborhood returns the subgraph induced by seeds plus their predecessors and successors.
func (g *Graph) Neighborhood(seeds []int) *Graph {
	var ids []int
	for _, id := range seeds {
		if !g.nodes[id] {
			continue
		}
		ids = append(ids, id)
		ids = append(ids, g.Successors(id)...)
		ids = append(ids, g.Predecessors(id)...)
	}
	return g.Subgraph(ids)
}

// WithoutSelfLoops returns a copy with every self-loop removed.
func (g *Graph) WithoutSelfLoops() *Graph {
	c := New()
	for id := range g.nodes {
		c.AddNode(id)
		for dest := range g.out[id] {
			if dest != id {
				c.AddEdge(id, dest)
			}
		}
	}
	return c
}

// WeakComponents returns the weakly connected components, each sorted, ordered by smallest id.
func (g *Graph) WeakComponents() [][]int {
	seen := make(map[int]bool, len(g.nodes))
	var out [][]int
	for _, start := range g.Nodes() {
		if seen[start] {
			continue
		}
		var comp []int
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, id)
			for _, next := range [2]map[int]bool{g.out[id], g.in[id]} {
				for n := range next {
					if !seen[n] {
						seen[n] = true
						stack = append(stack, n)
					}
				}
			}
		}
		sort.Ints(comp)
		out = append(out, comp)
	}
	return out
}

// CycleNodes returns, in ascending order, every node that lies on a directed
// cycle: members of strongly connected components with more than one node
// and nodes with a self-loop.
func (g *Graph) CycleNodes() []int {
	var (
		index   = 0
		indices = make(map[int]int, len(g.nodes))
		low     = make(map[int]int, len(g.nodes))
		onStack = make(map[int]bool)
		stack   []int
		result  []int
	)
	var connect func(v int)
	connect = func(v int) {
		indices[v] = index
		low[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.Successors(v) {
			if _, visited := indices[w]; !visited {
				connect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], indices[w])
			}
		}

		if low[v] != indices[v] {
			return
		}
		var scc []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 || g.out[v][v] {
			result = append(result, scc...)
		}
	}
	for _, v := range g.Nodes() {
		if _, visited := indices[v]; !visited {
			connect(v)
		}
	}
	sort.Ints(result)
	return result
}

// Serialize renders the graph as one line per node, ascending, each listing
// the node followed by its sorted successors. Equal graphs serialize equally.
func (g *Graph) Serialize() string {
	lines := make([]string, 0, len(g.nodes))
	for _, id := range g.Nodes() {
		parts := []string{strconv.Itoa(id)}
		for _, dest := range g.Successors(id) {
			parts = append(parts, strconv.Itoa(dest))
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return strings.Join(lines, "\n")
}

// Deserialize parses the output of Serialize.
func Deserialize(s string) (*Graph, error) {
	g := New()
	for _, line := range strings.Split(s, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		ids := make([]int, len(fields))
		for i, f := range fields {
			id, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("graph: deserialize: %w", err)
			}
			ids[i] = id
		}
		g.AddNode(ids[0])
		for _, dest := range ids[1:] {
			g.AddEdge(ids[0], dest)
		}
	}
	return g, nil
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
