package processor

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/index"
	"github.com/starford/slipbox/internal/models"
	"github.com/starford/slipbox/internal/parser"
	"github.com/starford/slipbox/internal/report"
)

// Sideband file names written by the converter filter.
const (
	FilesCSV        = "files.csv"
	NotesCSV        = "notes.csv"
	TagsCSV         = "tags.csv"
	LinksCSV        = "links.csv"
	ImagesCSV       = "images.csv"
	ImageLinksCSV   = "image_links.csv"
	BibliographyCSV = "bibliography.csv"
	CitationsCSV    = "citations.csv"
	MessagesJSON    = "messages.json"
)

// ingester loads the sideband files of one batch into a transaction.
type ingester struct {
	tx        *index.Tx
	scratch   string
	files     map[string]bool // relative paths in the batch
	notes     map[int]bool    // ids inserted by this batch
	readImage func(rel string) ([]byte, error)
	formatter *report.Formatter
	logger    *slog.Logger
	failed    bool
}

// run ingests every sideband in dependency order.
func (in *ingester) run(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context, []string) error
	}{
		{FilesCSV, in.file},
		{NotesCSV, in.note},
		{TagsCSV, in.tag},
		{LinksCSV, in.link},
		{ImagesCSV, in.image},
		{ImageLinksCSV, in.imageLink},
		{BibliographyCSV, in.reference},
		{CitationsCSV, in.citation},
	}
	for _, s := range steps {
		if err := in.each(ctx, s.name, s.fn); err != nil {
			return err
		}
	}
	return nil
}

func (in *ingester) each(ctx context.Context, name string, fn func(context.Context, []string) error) error {
	f, err := os.Open(filepath.Join(in.scratch, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("processor: open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("processor: read %s: %w", name, err)
		}
		if err := fn(ctx, row); err != nil {
			return err
		}
	}
}

func (in *ingester) skip(kind string, row []string) {
	in.logger.Warn("processor: skipped malformed row",
		slog.String("sideband", kind), slog.String("row", strings.Join(row, ",")))
}

func (in *ingester) file(ctx context.Context, row []string) error {
	if len(row) < 2 || !in.files[row[0]] {
		in.skip(FilesCSV, row)
		return nil
	}
	return in.tx.InsertFile(ctx, models.File{Path: row[0], Hash: row[1]})
}

func (in *ingester) note(ctx context.Context, row []string) error {
	if len(row) < 3 {
		in.skip(NotesCSV, row)
		return nil
	}
	id, ok := parser.ParseID(row[0])
	title := strings.TrimSpace(row[1])
	if !ok || title == "" || !in.files[row[2]] {
		in.skip(NotesCSV, row)
		return nil
	}
	n := models.Note{ID: id, Title: title, Filename: row[2]}
	existing, err := in.tx.InsertNote(ctx, n)
	if errors.Is(err, apperr.ErrDuplicateNote) {
		in.failed = true
		in.formatter.Add(report.Message{
			Kind: report.DuplicateNoteID,
			Notes: []report.Note{
				{ID: id, Title: existing.Title, Filename: existing.Filename},
				{ID: id, Title: n.Title, Filename: n.Filename},
			},
		})
		return nil
	}
	if err != nil {
		return err
	}
	in.notes[id] = true
	return nil
}

func (in *ingester) tag(ctx context.Context, row []string) error {
	if len(row) < 2 {
		in.skip(TagsCSV, row)
		return nil
	}
	tag, ok := parser.NormalizeTag(row[0])
	id, idOK := parser.ParseID(row[1])
	if !ok || !idOK || !in.notes[id] {
		in.skip(TagsCSV, row)
		return nil
	}
	return in.tx.InsertTag(ctx, models.Tag{Tag: tag, NoteID: id})
}

func (in *ingester) link(ctx context.Context, row []string) error {
	if len(row) < 2 {
		in.skip(LinksCSV, row)
		return nil
	}
	src, ok := parser.ParseID(row[0])
	dest, destOK := parser.ParseDest(row[1])
	if !ok || !destOK || !in.notes[src] {
		in.skip(LinksCSV, row)
		return nil
	}
	l := models.Link{Src: src, Dest: dest}
	if len(row) > 2 {
		l.Direction = models.ParseDirection(row[2])
	}
	return in.tx.InsertLink(ctx, l)
}

func (in *ingester) image(ctx context.Context, row []string) error {
	if len(row) < 1 || row[0] == "" {
		return nil
	}
	data, err := in.readImage(row[0])
	if err != nil {
		in.logger.Debug("processor: image not readable", slog.String("filename", row[0]), slog.String("error", err.Error()))
		return nil
	}
	return in.tx.InsertImage(ctx, models.Image{Filename: row[0], Binary: data})
}

func (in *ingester) imageLink(ctx context.Context, row []string) error {
	if len(row) < 2 {
		in.skip(ImageLinksCSV, row)
		return nil
	}
	id, ok := parser.ParseID(row[0])
	if !ok || !in.notes[id] {
		in.skip(ImageLinksCSV, row)
		return nil
	}
	_, err := in.tx.InsertImageLink(ctx, models.ImageLink{NoteID: id, Filename: row[1]})
	return err
}

func (in *ingester) reference(ctx context.Context, row []string) error {
	if len(row) < 2 || !parser.IsReferenceKey(row[0]) {
		in.skip(BibliographyCSV, row)
		return nil
	}
	return in.tx.InsertBibliography(ctx, models.BibliographyEntry{Key: row[0], HTML: row[1]})
}

func (in *ingester) citation(ctx context.Context, row []string) error {
	if len(row) < 2 {
		in.skip(CitationsCSV, row)
		return nil
	}
	id, ok := parser.ParseID(row[0])
	if !ok || !in.notes[id] || !parser.IsReferenceKey(row[1]) {
		in.skip(CitationsCSV, row)
		return nil
	}
	_, err := in.tx.InsertCitation(ctx, models.Citation{NoteID: id, Key: row[1]})
	return err
}
