// Package site renders the note index into a static HTML site with graph data.
package site

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/slipbox/internal/graph"
	"github.com/starford/slipbox/internal/index"
	"github.com/starford/slipbox/internal/models"
	"github.com/starford/slipbox/internal/storage"
)

//go:embed assets/style.css assets/app.js
var staticFS embed.FS

// Output layout.
const (
	IndexFile   = "index.html"
	GraphDir    = "graph"
	ImagesDir   = "images"
	DefaultName = "Slipbox"
)

// Emitter writes the site for a read-only index.
type Emitter struct {
	reader  index.Reader
	layouts *graph.Cache
	title   string
	workers int
	logger  *slog.Logger
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithTitle sets the site title.
func WithTitle(title string) Option {
	return func(e *Emitter) {
		if title != "" {
			e.title = title
		}
	}
}

// WithWorkers bounds the number of concurrent layout jobs.
func WithWorkers(n int) Option {
	return func(e *Emitter) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Emitter) { e.logger = l }
}

// New returns an Emitter reading from r. layouts may be nil, in which case
// graph data carries no positions.
func New(r index.Reader, layouts *graph.Cache, opts ...Option) *Emitter {
	e := &Emitter{
		reader:  r,
		layouts: layouts,
		title:   DefaultName,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate renders the site into a scratch directory next to outDir and
// replaces outDir with it once every file has been written.
func (e *Emitter) Generate(ctx context.Context, outDir string) error {
	outDir, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("site: resolve output: %w", err)
	}
	parent := filepath.Dir(outDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("site: mkdir: %w", err)
	}
	scratch, err := os.MkdirTemp(parent, "."+filepath.Base(outDir)+"-*")
	if err != nil {
		return fmt.Errorf("site: scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch) //nolint:errcheck

	if err := os.Chmod(scratch, 0o755); err != nil {
		return fmt.Errorf("site: chmod: %w", err)
	}
	out, err := storage.NewFS(scratch)
	if err != nil {
		return err
	}
	if err := e.write(ctx, out); err != nil {
		return err
	}

	if err := os.RemoveAll(outDir); err != nil {
		return fmt.Errorf("site: clear output: %w", err)
	}
	if err := os.Rename(scratch, outDir); err != nil {
		return fmt.Errorf("site: swap output: %w", err)
	}
	e.logger.Info("site generated", slog.String("dir", outDir))
	return nil
}

func (e *Emitter) write(ctx context.Context, out *storage.FS) error {
	notes, err := e.reader.Notes(ctx)
	if err != nil {
		return err
	}

	page, err := loadPage(ctx, e.reader, e.title, notes)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := renderPage(&buf, page); err != nil {
		return err
	}
	if err := out.Write(IndexFile, buf.Bytes()); err != nil {
		return err
	}

	for _, name := range []string{"style.css", "app.js"} {
		data, err := staticFS.ReadFile("assets/" + name)
		if err != nil {
			return fmt.Errorf("site: read %s: %w", name, err)
		}
		if err := out.Write(name, data); err != nil {
			return err
		}
	}

	if err := e.writeImages(ctx, out); err != nil {
		return err
	}
	return e.writeGraphs(ctx, out, notes)
}

func (e *Emitter) writeImages(ctx context.Context, out *storage.FS) error {
	images, err := e.reader.Images(ctx)
	if err != nil {
		return err
	}
	for _, img := range images {
		if err := out.Write(path.Join(ImagesDir, img.Filename), img.Binary); err != nil {
			return err
		}
	}
	return nil
}

type graphJob struct {
	graph *graph.Graph
	paths []string
}

func (e *Emitter) writeGraphs(ctx context.Context, out *storage.FS, notes []models.Note) error {
	ids := make([]int, len(notes))
	byID := make(map[int]models.Note, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
		byID[n.ID] = n
	}
	links, err := e.reader.ValidLinks(ctx)
	if err != nil {
		return err
	}
	tags, err := e.reader.Tags(ctx)
	if err != nil {
		return err
	}

	full := graph.FromLinks(ids, links, true)
	jobs := []graphJob{{graph: full, paths: []string{path.Join(GraphDir, "data.json")}}}

	tagged := make(map[string][]int)
	var order []string
	for _, t := range tags {
		if _, ok := tagged[t.Tag]; !ok {
			order = append(order, t.Tag)
		}
		tagged[t.Tag] = append(tagged[t.Tag], t.NoteID)
	}
	for _, tag := range order {
		jobs = append(jobs, graphJob{
			graph: full.Neighborhood(tagged[tag]),
			paths: []string{path.Join(GraphDir, "tag", strings.TrimPrefix(tag, "#")+".json")},
		})
	}

	for _, comp := range full.WeakComponents() {
		job := graphJob{graph: full.Subgraph(comp)}
		for _, id := range comp {
			job.paths = append(job.paths, path.Join(GraphDir, "note", strconv.Itoa(id)+".json"))
		}
		jobs = append(jobs, job)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, job := range jobs {
		g.Go(func() error {
			var layout graph.Layout
			if e.layouts != nil {
				l, err := e.layouts.Get(ctx, job.graph)
				if err != nil {
					return err
				}
				layout = l
			}
			data, err := json.Marshal(toCytoscape(job.graph, byID, layout))
			if err != nil {
				return fmt.Errorf("site: encode graph: %w", err)
			}
			for _, p := range job.paths {
				if err := out.Write(p, data); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
