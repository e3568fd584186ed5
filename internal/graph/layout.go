package graph

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strconv"
	"strings"

	"github.com/starford/slipbox/internal/apperr"
)

// SmallGraph is the node count below which the hierarchical engine is used.
const SmallGraph = 100

// Position is a node coordinate in layout units.
type Position struct {
	X float64
	Y float64
}

// Layout maps node ids to positions.
type Layout map[int]Position

// Engine computes node positions for a graph.
type Engine interface {
	Layout(ctx context.Context, g *Graph) (Layout, error)
}

// Program returns the graphviz layout program suited to the size of g.
func Program(g *Graph) string {
	if g.Len() < SmallGraph {
		return "dot"
	}
	return "fdp"
}

// DOT renders g in the graphviz language.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph {\n")
	for _, id := range g.Nodes() {
		fmt.Fprintf(&b, "  %d;\n", id)
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "  %d -> %d;\n", e.Src, e.Dest)
	}
	b.WriteString("}\n")
	return b.String()
}

// Dot runs the graphviz executable.
type Dot struct {
	Path string
}

// Check reports apperr.ErrLayoutMissing if the executable cannot be found.
func (d Dot) Check() error {
	if _, err := exec.LookPath(d.Path); err != nil {
		return fmt.Errorf("graph: %s: %w", d.Path, apperr.ErrLayoutMissing)
	}
	return nil
}

// Layout runs `dot -K<program> -Tplain` with the graph on stdin.
func (d Dot) Layout(ctx context.Context, g *Graph) (Layout, error) {
	if g.Len() == 0 {
		return Layout{}, nil
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.Path, "-K"+Program(g), "-Tplain")
	cmd.Stdin = strings.NewReader(g.DOT())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("graph: %s: %w", d.Path, apperr.ErrLayoutMissing)
		}
		msg, _, _ := strings.Cut(strings.TrimSpace(stderr.String()), "\n")
		return nil, fmt.Errorf("graph: layout: %w: %s", err, msg)
	}
	return ParsePlain(&stdout)
}

// ParsePlain reads the node lines of graphviz plain output.
func ParsePlain(r io.Reader) (Layout, error) {
	out := make(Layout)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] != "node" {
			continue
		}
		id, err := strconv.Atoi(strings.Trim(fields[1], `"`))
		if err != nil {
			return nil, fmt.Errorf("graph: plain node %q: %w", fields[1], err)
		}
		x, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("graph: plain x: %w", err)
		}
		y, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("graph: plain y: %w", err)
		}
		out[id] = Position{X: x, Y: y}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("graph: read plain: %w", err)
	}
	return out, nil
}
