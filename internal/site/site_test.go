package site

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/slipbox/internal/graph"
	"github.com/starford/slipbox/internal/index"
	"github.com/starford/slipbox/internal/models"
	"github.com/starford/slipbox/internal/testutil"
)

type gridEngine struct{}

func (gridEngine) Layout(_ context.Context, g *graph.Graph) (graph.Layout, error) {
	l := graph.Layout{}
	for i, id := range g.Nodes() {
		l[id] = graph.Position{X: float64(i), Y: 1.5}
	}
	return l, nil
}

func seedSite(t *testing.T) *index.DB {
	t.Helper()
	db := testutil.TestDB(t)
	testutil.Seed(t, db).
		Notes("a.md",
			models.Note{ID: 1, Title: "First", HTML: `<section id="1" class="level1"><h1>First</h1><p>Body one</p></section>`},
			models.Note{ID: 2, Title: "Second", HTML: `<section id="2" class="level1"><h1>Second</h1></section>`},
		).
		Notes("b.md", models.Note{ID: 3, Title: "Lonely <3>"}).
		Links(models.Link{Src: 1, Dest: 2}, models.Link{Src: 2, Dest: 1, Direction: models.Backward}).
		Tags(models.Tag{Tag: "#idea", NoteID: 1}, models.Tag{Tag: "#idea", NoteID: 3}).
		Reference("ref-knuth", "<p>Knuth, TAOCP</p>", 2).
		Image("pics/a.png", []byte("png"), 1)
	return db
}

func readJSON(t *testing.T, p string) cyGraph {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	var g cyGraph
	require.NoError(t, json.Unmarshal(data, &g))
	return g
}

func nodeIDs(g cyGraph) []string {
	var out []string
	for _, n := range g.Elements.Nodes {
		out = append(out, n.Data.ID)
	}
	return out
}

func TestGenerate(t *testing.T) {
	db := seedSite(t)
	cache := graph.NewCache(db, gridEngine{}, testutil.DiscardLogger())
	e := New(db, cache, WithTitle("Zettel"), WithWorkers(2), WithLogger(testutil.DiscardLogger()))

	parent := t.TempDir()
	out := filepath.Join(parent, "public")
	require.NoError(t, os.MkdirAll(out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "stale.txt"), []byte("x"), 0o644))

	require.NoError(t, e.Generate(context.Background(), out))

	html, err := os.ReadFile(filepath.Join(out, IndexFile))
	require.NoError(t, err)
	page := string(html)
	require.Contains(t, page, "<title>Zettel</title>")
	require.Contains(t, page, "<p>Body one</p>")
	require.Contains(t, page, `<section id="3" class="level1"><h1>Lonely &lt;3&gt;</h1></section>`)
	require.Contains(t, page, `id="tags/idea"`)
	require.Contains(t, page, `id="ref-knuth"`)
	require.Contains(t, page, "<p>Knuth, TAOCP</p>")
	require.Contains(t, page, `[1] <a href="#1">First</a>`)
	require.Contains(t, page, "<h2>Untagged notes</h2>\n<ul>\n<li>[2] <a href=\"#2\">Second</a></li>\n</ul>")

	for _, name := range []string{"style.css", "app.js", "images/pics/a.png"} {
		_, err := os.Stat(filepath.Join(out, filepath.FromSlash(name)))
		require.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(out, "stale.txt"))
	require.True(t, os.IsNotExist(err))

	full := readJSON(t, filepath.Join(out, "graph", "data.json"))
	require.Equal(t, []string{"1", "2", "3"}, nodeIDs(full))
	require.Len(t, full.Elements.Edges, 1)
	require.Equal(t, cyEdgeData{Source: 1, Target: 2}, full.Elements.Edges[0].Data)
	require.Equal(t, &cyPosition{X: 2, Y: -3}, full.Elements.Nodes[1].Position)
	require.Equal(t, "#2", full.Elements.Nodes[1].Data.Path)

	tag := readJSON(t, filepath.Join(out, "graph", "tag", "idea.json"))
	require.Equal(t, []string{"1", "2", "3"}, nodeIDs(tag))

	one := readJSON(t, filepath.Join(out, "graph", "note", "1.json"))
	require.Equal(t, []string{"1", "2"}, nodeIDs(one))
	three := readJSON(t, filepath.Join(out, "graph", "note", "3.json"))
	require.Equal(t, []string{"3"}, nodeIDs(three))

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	require.Len(t, entries, 1, "scratch directory must be gone")
}

func TestGenerateWithoutLayouts(t *testing.T) {
	db := seedSite(t)
	out := filepath.Join(t.TempDir(), "site")
	require.NoError(t, New(db, nil, WithLogger(testutil.DiscardLogger())).Generate(context.Background(), out))

	full := readJSON(t, filepath.Join(out, "graph", "data.json"))
	for _, n := range full.Elements.Nodes {
		require.Nil(t, n.Position)
	}

	html, err := os.ReadFile(filepath.Join(out, IndexFile))
	require.NoError(t, err)
	require.Contains(t, string(html), "<title>"+DefaultName+"</title>")
}

func TestTagAnchor(t *testing.T) {
	require.Equal(t, "tags/idea", TagAnchor("#idea"))
	require.Equal(t, "tags/#deep", TagAnchor("##deep"))
}
