package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/models"
)

// Tx is a write transaction scoped to one batch of source files.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a write transaction.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("index: begin tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("index: rollback: %w", err)
	}
	return nil
}

// InsertFile records a processed source file. Existing rows are left untouched.
func (t *Tx) InsertFile(ctx context.Context, f models.File) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO Files (filename, hash) VALUES (?, ?)`, f.Path, f.Hash)
	if err != nil {
		return fmt.Errorf("index: insert file: %w", err)
	}
	return nil
}

// InsertNote inserts a note. If the id is already taken it returns the note
// that owns it together with apperr.ErrDuplicateNote.
func (t *Tx) InsertNote(ctx context.Context, n models.Note) (*models.Note, error) {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO Notes (id, title, filename) VALUES (?, ?, ?)`, n.ID, n.Title, n.Filename)
	if err == nil {
		return nil, nil
	}
	if !isConstraint(err, sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique) {
		return nil, fmt.Errorf("index: insert note %d: %w", n.ID, err)
	}
	var existing models.Note
	row := t.tx.QueryRowContext(ctx, `SELECT id, title, filename FROM Notes WHERE id = ?`, n.ID)
	if err := row.Scan(&existing.ID, &existing.Title, &existing.Filename); err != nil {
		return nil, fmt.Errorf("index: lookup note %d: %w", n.ID, err)
	}
	return &existing, apperr.ErrDuplicateNote
}

// SetNoteHTML stores the rendered fragment of a note.
func (t *Tx) SetNoteHTML(ctx context.Context, id int, html string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE Notes SET html = ? WHERE id = ?`, html, id)
	if err != nil {
		return fmt.Errorf("index: set html %d: %w", id, err)
	}
	return nil
}

// InsertTag tags a note. Repeated tags are ignored.
func (t *Tx) InsertTag(ctx context.Context, tag models.Tag) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO Tags (tag, id) VALUES (?, ?)`, tag.Tag, tag.NoteID)
	if err != nil {
		return fmt.Errorf("index: insert tag: %w", err)
	}
	return nil
}

// InsertLink records a link. Repeated links are ignored.
func (t *Tx) InsertLink(ctx context.Context, l models.Link) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO Links (src, dest, direction) VALUES (?, ?, ?)`,
		l.Src, l.Dest, string(l.Direction))
	if err != nil {
		return fmt.Errorf("index: insert link: %w", err)
	}
	return nil
}

// InsertBibliography stores a rendered reference. The first rendering of a key wins.
func (t *Tx) InsertBibliography(ctx context.Context, b models.BibliographyEntry) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO Bibliography (key, html) VALUES (?, ?)`, b.Key, b.HTML)
	if err != nil {
		return fmt.Errorf("index: insert bibliography: %w", err)
	}
	return nil
}

// InsertCitation records a citation when the cited reference exists.
// It reports whether a row was written.
func (t *Tx) InsertCitation(ctx context.Context, c models.Citation) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO Citations (note, reference)
		SELECT ?, ? WHERE EXISTS (SELECT 1 FROM Bibliography WHERE key = ?)
	`, c.NoteID, c.Key, c.Key)
	if err != nil {
		return false, fmt.Errorf("index: insert citation: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// InsertImage stores an image. Images already present keep their contents.
func (t *Tx) InsertImage(ctx context.Context, img models.Image) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO Images (filename, binary) VALUES (?, ?)`, img.Filename, img.Binary)
	if err != nil {
		return fmt.Errorf("index: insert image: %w", err)
	}
	return nil
}

// InsertImageLink records that a note embeds an image when the image exists.
func (t *Tx) InsertImageLink(ctx context.Context, l models.ImageLink) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO ImageLinks (note, filename)
		SELECT ?, ? WHERE EXISTS (SELECT 1 FROM Images WHERE filename = ?)
	`, l.NoteID, l.Filename, l.Filename)
	if err != nil {
		return false, fmt.Errorf("index: insert image link: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteFiles removes the given source files. Their notes and everything
// attached to those notes cascade. Images no longer linked by any note are dropped.
func (db *DB) DeleteFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM Files WHERE filename = ?`)
	if err != nil {
		return fmt.Errorf("index: prepare delete: %w", err)
	}
	defer stmt.Close()
	for _, p := range paths {
		if _, err := stmt.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("index: delete file %s: %w", p, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM Images WHERE filename NOT IN (SELECT filename FROM ImageLinks)`); err != nil {
		return fmt.Errorf("index: prune images: %w", err)
	}
	return tx.Commit()
}

func isConstraint(err error, codes ...sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	for _, c := range codes {
		if se.ExtendedCode == c {
			return true
		}
	}
	return false
}
