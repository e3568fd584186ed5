package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/slipbox/internal/index"
	"github.com/starford/slipbox/internal/models"
)

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Seeder writes index rows in a single committed transaction per call.
type Seeder struct {
	t  *testing.T
	db *index.DB
}

// Seed returns a Seeder for db.
func Seed(t *testing.T, db *index.DB) *Seeder {
	return &Seeder{t: t, db: db}
}

func (s *Seeder) tx(fn func(ctx context.Context, tx *index.Tx) error) *Seeder {
	s.t.Helper()
	ctx := context.Background()
	tx, err := s.db.Begin(ctx)
	if err != nil {
		s.t.Fatal(err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := fn(ctx, tx); err != nil {
		s.t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		s.t.Fatal(err)
	}
	return s
}

// Notes records file and the given notes inside it.
func (s *Seeder) Notes(file string, notes ...models.Note) *Seeder {
	s.t.Helper()
	return s.tx(func(ctx context.Context, tx *index.Tx) error {
		if err := tx.InsertFile(ctx, models.File{Path: file, Hash: "h-" + file}); err != nil {
			return err
		}
		for _, n := range notes {
			n.Filename = file
			if _, err := tx.InsertNote(ctx, n); err != nil {
				return err
			}
			if n.HTML != "" {
				if err := tx.SetNoteHTML(ctx, n.ID, n.HTML); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Links records links.
func (s *Seeder) Links(links ...models.Link) *Seeder {
	s.t.Helper()
	return s.tx(func(ctx context.Context, tx *index.Tx) error {
		for _, l := range links {
			if err := tx.InsertLink(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
}

// Tags records tags.
func (s *Seeder) Tags(tags ...models.Tag) *Seeder {
	s.t.Helper()
	return s.tx(func(ctx context.Context, tx *index.Tx) error {
		for _, tag := range tags {
			if err := tx.InsertTag(ctx, tag); err != nil {
				return err
			}
		}
		return nil
	})
}

// Reference records a bibliography entry and the notes citing it.
func (s *Seeder) Reference(key, html string, citedBy ...int) *Seeder {
	s.t.Helper()
	return s.tx(func(ctx context.Context, tx *index.Tx) error {
		if err := tx.InsertBibliography(ctx, models.BibliographyEntry{Key: key, HTML: html}); err != nil {
			return err
		}
		for _, id := range citedBy {
			if _, err := tx.InsertCitation(ctx, models.Citation{NoteID: id, Key: key}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Image records an image and the notes embedding it.
func (s *Seeder) Image(filename string, data []byte, embeddedBy ...int) *Seeder {
	s.t.Helper()
	return s.tx(func(ctx context.Context, tx *index.Tx) error {
		if err := tx.InsertImage(ctx, models.Image{Filename: filename, Binary: data}); err != nil {
			return err
		}
		for _, id := range embeddedBy {
			if _, err := tx.InsertImageLink(ctx, models.ImageLink{NoteID: id, Filename: filename}); err != nil {
				return err
			}
		}
		return nil
	})
}
