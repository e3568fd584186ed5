package site

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/starford/slipbox/internal/index"
	"github.com/starford/slipbox/internal/models"
)

//go:embed assets/index.html.tmpl
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "assets/index.html.tmpl"))

type noteView struct {
	ID    int
	Title string
	HTML  template.HTML
}

type tagView struct {
	Tag    string
	Anchor string
	Notes  []noteView
}

type referenceView struct {
	Key   string
	Label string
	HTML  template.HTML
	Notes []noteView
}

type pageData struct {
	Title      string
	Notes      []noteView
	Tags       []tagView
	Untagged   []noteView
	References []referenceView
}

// TagAnchor returns the section id of a tag page. Hashtag links in notes point here.
func TagAnchor(tag string) string {
	return "tags/" + strings.TrimPrefix(tag, "#")
}

func loadPage(ctx context.Context, r index.Reader, title string, notes []models.Note) (pageData, error) {
	data := pageData{Title: title}
	byID := make(map[int]models.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
		html := n.HTML
		if html == "" {
			html = fmt.Sprintf(`<section id="%d" class="level1"><h1>%s</h1></section>`,
				n.ID, template.HTMLEscapeString(n.Title))
		}
		data.Notes = append(data.Notes, noteView{ID: n.ID, Title: n.Title, HTML: template.HTML(html)}) //nolint:gosec
	}

	tags, err := r.Tags(ctx)
	if err != nil {
		return pageData{}, err
	}
	for _, t := range tags {
		if len(data.Tags) == 0 || data.Tags[len(data.Tags)-1].Tag != t.Tag {
			data.Tags = append(data.Tags, tagView{Tag: t.Tag, Anchor: TagAnchor(t.Tag)})
		}
		last := &data.Tags[len(data.Tags)-1]
		last.Notes = append(last.Notes, plainView(byID[t.NoteID]))
	}

	untagged, err := r.UntaggedNotes(ctx)
	if err != nil {
		return pageData{}, err
	}
	for _, n := range untagged {
		data.Untagged = append(data.Untagged, plainView(n))
	}

	refs, err := r.Bibliography(ctx)
	if err != nil {
		return pageData{}, err
	}
	citations, err := r.Citations(ctx)
	if err != nil {
		return pageData{}, err
	}
	citedBy := make(map[string][]noteView)
	for _, c := range citations {
		citedBy[c.Key] = append(citedBy[c.Key], plainView(byID[c.NoteID]))
	}
	for _, b := range refs {
		data.References = append(data.References, referenceView{
			Key:   b.Key,
			Label: "@" + strings.TrimPrefix(b.Key, models.ReferencePrefix),
			HTML:  template.HTML(b.HTML), //nolint:gosec
			Notes: citedBy[b.Key],
		})
	}
	return data, nil
}

func plainView(n models.Note) noteView {
	return noteView{ID: n.ID, Title: n.Title}
}

func renderPage(w io.Writer, data pageData) error {
	if err := indexTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("site: render index: %w", err)
	}
	return nil
}
