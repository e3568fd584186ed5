package testutil

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/starford/slipbox/internal/pandoc"
	"github.com/starford/slipbox/internal/parser"
	"github.com/starford/slipbox/internal/report"
)

var (
	fenceFieldRe = regexp.MustCompile(`^\s*([A-Za-z_]+)=(.*)$`)
	linkRe       = regexp.MustCompile(`(!?)\[([^\]]*)\]\(([^)\s]*)(?:\s+"([^"]*)")?\)`)
	citeRe       = regexp.MustCompile(`\[@([-_A-Za-z0-9]+)\]`)
	tagRe        = regexp.MustCompile(`(?:^|\s)(#+[-_a-zA-Z0-9]+)`)
)

// ErrConversionFailed is returned by FakeConverter when Fail is set.
var ErrConversionFailed = errors.New("fake converter: exit 1")

// FakeConverter stands in for pandoc and the filter in tests. It understands
// the metadata fences of every dialect, "# <id> <title>" headings,
// [text](#id "direction") links, [@key] citations, ![alt](src) images and
// hashtags, and writes the same sideband files the filter does.
type FakeConverter struct {
	// References maps citation keys (without the ref- prefix) to rendered HTML.
	References map[string]string
	// Fail makes every run return ErrConversionFailed without writing output.
	Fail bool

	mu          sync.Mutex
	invocations []pandoc.Invocation
}

var _ pandoc.Runner = (*FakeConverter)(nil)

// Invocations returns the runs seen so far.
func (f *FakeConverter) Invocations() []pandoc.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pandoc.Invocation(nil), f.invocations...)
}

type fakeNote struct {
	id       int
	title    string
	filename string
	body     []string
}

// Run converts inv.Input and writes the sidebands into inv.Scratch.
func (f *FakeConverter) Run(_ context.Context, inv pandoc.Invocation) error {
	f.mu.Lock()
	f.invocations = append(f.invocations, inv)
	f.mu.Unlock()
	if f.Fail {
		return ErrConversionFailed
	}

	data, err := os.ReadFile(inv.Input)
	if err != nil {
		return err
	}

	var (
		files, notesCSV, tags, links  [][]string
		images, imageLinks, citations [][]string
		messages                      []report.Message
		notes                         []*fakeNote
		owners                        = map[int]*fakeNote{}
		seenImages                    = map[string]bool{}
		citedKeys                     = map[string]bool{}
		file                          string
		current                       *fakeNote
	)

	lines := strings.Split(string(data), "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.Contains(line, pandoc.MetadataHeader) {
			fields := map[string]string{}
			for i+1 < len(lines) {
				m := fenceFieldRe.FindStringSubmatch(strings.TrimSuffix(lines[i+1], "</pre>"))
				if m == nil {
					break
				}
				fields[m[1]] = strings.TrimSpace(m[2])
				i++
			}
			file = fields["filename"]
			files = append(files, []string{file, fields["hash"]})
			current = nil
			continue
		}
		if strings.HasPrefix(line, "# ") {
			current = nil
			h, ok := parser.ParseHeading(line[2:])
			if !ok || file == "" {
				continue
			}
			if prev, dup := owners[h.ID]; dup {
				messages = append(messages, report.Message{Kind: report.DuplicateNoteID, Notes: []report.Note{
					{ID: h.ID, Title: prev.title, Filename: prev.filename},
					{ID: h.ID, Title: h.Title, Filename: file},
				}})
				continue
			}
			current = &fakeNote{id: h.ID, title: h.Title, filename: file}
			owners[h.ID] = current
			notes = append(notes, current)
			notesCSV = append(notesCSV, []string{strconv.Itoa(h.ID), h.Title, file})
			continue
		}
		if current == nil {
			continue
		}
		current.body = append(current.body, line)
		id := strconv.Itoa(current.id)

		for _, m := range linkRe.FindAllStringSubmatch(line, -1) {
			target := m[3]
			if m[1] == "!" {
				if target == "" || strings.Contains(target, "://") || strings.HasPrefix(target, "/") {
					continue
				}
				if dir := path.Dir(current.filename); dir != "." {
					target = dir + "/" + target
				}
				if !seenImages[target] {
					seenImages[target] = true
					images = append(images, []string{target})
				}
				imageLinks = append(imageLinks, []string{id, target})
				continue
			}
			dest, ok := parser.ParseLinkTarget(target)
			if !ok {
				continue
			}
			links = append(links, []string{id, strconv.Itoa(dest), m[4]})
			if target == "" {
				messages = append(messages, report.NoteMessage(report.EmptyLinkTarget,
					report.Note{ID: current.id, Title: current.title, Filename: current.filename}))
			}
		}
		for _, m := range citeRe.FindAllStringSubmatch(line, -1) {
			citations = append(citations, []string{id, "ref-" + m[1]})
			citedKeys[m[1]] = true
		}
		for _, m := range tagRe.FindAllStringSubmatch(line, -1) {
			tags = append(tags, []string{m[1], id})
		}
	}

	var bibliography [][]string
	if inv.Options.Bibliography != "" {
		for key, body := range f.References {
			if citedKeys[key] {
				bibliography = append(bibliography, []string{"ref-" + key, body})
			}
		}
	}

	sidebands := map[string][][]string{
		"files.csv":        files,
		"notes.csv":        notesCSV,
		"tags.csv":         tags,
		"links.csv":        links,
		"images.csv":       images,
		"image_links.csv":  imageLinks,
		"bibliography.csv": bibliography,
		"citations.csv":    citations,
	}
	for name, rows := range sidebands {
		if err := writeCSV(filepath.Join(inv.Scratch, name), rows); err != nil {
			return err
		}
	}

	if messages == nil {
		messages = []report.Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(inv.Scratch, "messages.json"), raw, 0o644); err != nil {
		return err
	}

	var out strings.Builder
	for _, n := range notes {
		fmt.Fprintf(&out, "<section id=\"%d\" class=\"level1\">\n<h1>%d %s</h1>\n<p>%s</p>\n</section>\n",
			n.id, n.id, html.EscapeString(n.title), html.EscapeString(strings.TrimSpace(strings.Join(n.body, " "))))
	}
	return os.WriteFile(inv.Output, []byte(out.String()), 0o644)
}

func writeCSV(p string, rows [][]string) error {
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
