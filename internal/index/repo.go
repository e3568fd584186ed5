package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/models"
)

// FileHashes returns the recorded hash of every source file keyed by relative path.
func (db *DB) FileHashes(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT filename, hash FROM Files`)
	if err != nil {
		return nil, fmt.Errorf("index: file hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, hash string
		if err := rows.Scan(&name, &hash); err != nil {
			return nil, fmt.Errorf("index: scan file: %w", err)
		}
		out[name] = hash
	}
	return out, rows.Err()
}

// Note returns a single note by id, including its HTML fragment.
func (db *DB) Note(ctx context.Context, id int) (*models.Note, error) {
	var n models.Note
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, filename, COALESCE(html, '') FROM Notes WHERE id = ?`, id,
	).Scan(&n.ID, &n.Title, &n.Filename, &n.HTML)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return &n, nil
}

// Notes returns every note ordered by id, including HTML fragments.
func (db *DB) Notes(ctx context.Context) ([]models.Note, error) {
	return db.queryNotes(ctx, `SELECT id, title, filename, COALESCE(html, '') FROM Notes ORDER BY id`)
}

// NoteIDs returns the ids of every note in ascending order.
func (db *DB) NoteIDs(ctx context.Context) ([]int, error) {
	return db.queryInts(ctx, `SELECT id FROM Notes ORDER BY id`)
}

// IsolatedNotes returns notes with no valid link in either direction.
func (db *DB) IsolatedNotes(ctx context.Context) ([]models.Note, error) {
	return db.queryNotes(ctx, `
		SELECT id, title, filename, '' FROM Notes
		WHERE id NOT IN (SELECT src FROM ValidLinks)
		  AND id NOT IN (SELECT dest FROM ValidLinks)
		ORDER BY id
	`)
}

// UntaggedNotes returns notes without any tag.
func (db *DB) UntaggedNotes(ctx context.Context) ([]models.Note, error) {
	return db.queryNotes(ctx, `SELECT id, title, filename, '' FROM Untagged ORDER BY id`)
}

// NotesWithEmptyLinks returns notes containing at least one link with an empty target.
func (db *DB) NotesWithEmptyLinks(ctx context.Context) ([]models.Note, error) {
	return db.queryNotes(ctx, `
		SELECT id, title, filename, '' FROM Notes
		WHERE id IN (SELECT src FROM Links WHERE dest < 0)
		ORDER BY id
	`)
}

// UncitedNotes returns notes that cite no reference.
func (db *DB) UncitedNotes(ctx context.Context) ([]models.Note, error) {
	return db.queryNotes(ctx, `
		SELECT id, title, filename, '' FROM Notes
		WHERE id NOT IN (SELECT note FROM Citations)
		ORDER BY id
	`)
}

// NotesByIDs returns the notes with the given ids in the order given, skipping unknown ids.
func (db *DB) NotesByIDs(ctx context.Context, ids []int) ([]models.Note, error) {
	out := make([]models.Note, 0, len(ids))
	for _, id := range ids {
		n, err := db.Note(ctx, id)
		if errors.Is(err, apperr.ErrNoteNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		n.HTML = ""
		out = append(out, *n)
	}
	return out, nil
}

// InvalidLink is a link whose destination is not a note.
type InvalidLink struct {
	Src  models.Note
	Dest int
}

// InvalidLinks returns links with a non-empty destination that does not exist.
func (db *DB) InvalidLinks(ctx context.Context) ([]InvalidLink, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT n.id, n.title, n.filename, l.dest
		FROM Links l JOIN Notes n ON n.id = l.src
		WHERE l.dest >= 0 AND l.dest NOT IN (SELECT id FROM Notes)
		ORDER BY n.id, l.dest
	`)
	if err != nil {
		return nil, fmt.Errorf("index: invalid links: %w", err)
	}
	defer rows.Close()

	var out []InvalidLink
	for rows.Next() {
		var il InvalidLink
		if err := rows.Scan(&il.Src.ID, &il.Src.Title, &il.Src.Filename, &il.Dest); err != nil {
			return nil, fmt.Errorf("index: scan invalid link: %w", err)
		}
		out = append(out, il)
	}
	return out, rows.Err()
}

// ValidLinks returns links between existing notes ordered by (src, dest).
// Links that differ only in direction are merged.
func (db *DB) ValidLinks(ctx context.Context) ([]models.Link, error) {
	return db.queryLinks(ctx, `
		SELECT src, dest, MIN(direction) FROM ValidLinks
		GROUP BY src, dest ORDER BY src, dest
	`)
}

// LinksFrom returns the valid outgoing links of a note.
func (db *DB) LinksFrom(ctx context.Context, id int) ([]models.Link, error) {
	return db.queryLinks(ctx, `
		SELECT src, dest, MIN(direction) FROM ValidLinks WHERE src = ?
		GROUP BY src, dest ORDER BY dest
	`, id)
}

// Backlinks returns the valid incoming links of a note.
func (db *DB) Backlinks(ctx context.Context, id int) ([]models.Link, error) {
	return db.queryLinks(ctx, `
		SELECT src, dest, MIN(direction) FROM ValidLinks WHERE dest = ?
		GROUP BY src, dest ORDER BY src
	`, id)
}

// Tags returns every (tag, note) pair ordered by tag then note id.
func (db *DB) Tags(ctx context.Context) ([]models.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT tag, id FROM Tags ORDER BY tag, id`)
	if err != nil {
		return nil, fmt.Errorf("index: tags: %w", err)
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.Tag, &t.NoteID); err != nil {
			return nil, fmt.Errorf("index: scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TagsOf returns the tags of one note in sorted order.
func (db *DB) TagsOf(ctx context.Context, id int) ([]string, error) {
	return db.queryStrings(ctx, `SELECT tag FROM Tags WHERE id = ? ORDER BY tag`, id)
}

// Bibliography returns every reference ordered by key.
func (db *DB) Bibliography(ctx context.Context) ([]models.BibliographyEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT key, html FROM Bibliography ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("index: bibliography: %w", err)
	}
	defer rows.Close()

	var out []models.BibliographyEntry
	for rows.Next() {
		var b models.BibliographyEntry
		if err := rows.Scan(&b.Key, &b.HTML); err != nil {
			return nil, fmt.Errorf("index: scan bibliography: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Citations returns every citation ordered by reference then note.
func (db *DB) Citations(ctx context.Context) ([]models.Citation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT note, reference FROM Citations ORDER BY reference, note`)
	if err != nil {
		return nil, fmt.Errorf("index: citations: %w", err)
	}
	defer rows.Close()

	var out []models.Citation
	for rows.Next() {
		var c models.Citation
		if err := rows.Scan(&c.NoteID, &c.Key); err != nil {
			return nil, fmt.Errorf("index: scan citation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CitationsOf returns the reference keys cited by a note.
func (db *DB) CitationsOf(ctx context.Context, id int) ([]string, error) {
	return db.queryStrings(ctx,
		`SELECT reference FROM Citations WHERE note = ? ORDER BY reference`, id)
}

// Images returns every stored image ordered by filename.
func (db *DB) Images(ctx context.Context) ([]models.Image, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT filename, binary FROM Images ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("index: images: %w", err)
	}
	defer rows.Close()

	var out []models.Image
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.Filename, &img.Binary); err != nil {
			return nil, fmt.Errorf("index: scan image: %w", err)
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// Layout returns a cached layout by key.
func (db *DB) Layout(ctx context.Context, key string) (string, bool, error) {
	var layout string
	err := db.conn.QueryRowContext(ctx, `SELECT layout FROM LayoutCache WHERE key = ?`, key).Scan(&layout)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("index: layout: %w", err)
	}
	return layout, true, nil
}

// SaveLayout stores a layout under key.
func (db *DB) SaveLayout(ctx context.Context, key, layout string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO LayoutCache (key, layout) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET layout = excluded.layout
	`, key, layout)
	if err != nil {
		return fmt.Errorf("index: save layout: %w", err)
	}
	return nil
}

func (db *DB) queryNotes(ctx context.Context, query string, args ...any) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Filename, &n.HTML); err != nil {
			return nil, fmt.Errorf("index: scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (db *DB) queryLinks(ctx context.Context, query string, args ...any) ([]models.Link, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query links: %w", err)
	}
	defer rows.Close()

	var out []models.Link
	for rows.Next() {
		var l models.Link
		var dir string
		if err := rows.Scan(&l.Src, &l.Dest, &dir); err != nil {
			return nil, fmt.Errorf("index: scan link: %w", err)
		}
		l.Direction = models.Direction(dir)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (db *DB) queryInts(ctx context.Context, query string, args ...any) ([]int, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("index: scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (db *DB) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("index: scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
