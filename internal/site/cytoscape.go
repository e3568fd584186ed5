package site

import (
	"strconv"

	"github.com/starford/slipbox/internal/graph"
	"github.com/starford/slipbox/internal/models"
)

// cyGraph is the cytoscape.js elements JSON of a graph.
type cyGraph struct {
	Data       []any      `json:"data"`
	Directed   bool       `json:"directed"`
	Multigraph bool       `json:"multigraph"`
	Elements   cyElements `json:"elements"`
}

type cyElements struct {
	Nodes []cyNode `json:"nodes"`
	Edges []cyEdge `json:"edges"`
}

type cyNode struct {
	Data     cyNodeData  `json:"data"`
	Position *cyPosition `json:"position,omitempty"`
}

type cyNodeData struct {
	ID       string `json:"id"`
	Value    int    `json:"value"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

type cyPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type cyEdge struct {
	Data cyEdgeData `json:"data"`
}

type cyEdgeData struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// toCytoscape converts g into cytoscape JSON. Coordinates are doubled and the
// y axis flipped so that edges point downward.
func toCytoscape(g *graph.Graph, notes map[int]models.Note, layout graph.Layout) cyGraph {
	out := cyGraph{
		Data:     []any{},
		Directed: true,
		Elements: cyElements{Nodes: []cyNode{}, Edges: []cyEdge{}},
	}
	for _, id := range g.Nodes() {
		n := notes[id]
		node := cyNode{Data: cyNodeData{
			ID:       strconv.Itoa(id),
			Value:    id,
			Name:     strconv.Itoa(id),
			Title:    n.Title,
			Filename: n.Filename,
			Path:     "#" + strconv.Itoa(id),
		}}
		if p, ok := layout[id]; ok {
			node.Position = &cyPosition{X: 2 * p.X, Y: -2 * p.Y}
		}
		out.Elements.Nodes = append(out.Elements.Nodes, node)
	}
	for _, e := range g.Edges() {
		if e.Src == e.Dest {
			continue
		}
		out.Elements.Edges = append(out.Elements.Edges, cyEdge{Data: cyEdgeData{Source: e.Src, Target: e.Dest}})
	}
	return out
}
