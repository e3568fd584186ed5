package index

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir + "/slipbox.db")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seed writes one file with the given notes in a committed transaction.
func seed(t *testing.T, db *DB, file string, notes ...models.Note) {
	t.Helper()
	ctx := context.Background()
	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := tx.InsertFile(ctx, models.File{Path: file, Hash: "h-" + file}); err != nil {
		t.Fatalf("InsertFile: %v", err)
	}
	for _, n := range notes {
		n.Filename = file
		if _, err := tx.InsertNote(ctx, n); err != nil {
			t.Fatalf("InsertNote(%d): %v", n.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func links(t *testing.T, db *DB, ls ...models.Link) {
	t.Helper()
	ctx := context.Background()
	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx.Rollback() //nolint:errcheck
	for _, l := range ls {
		if err := tx.InsertLink(ctx, l); err != nil {
			t.Fatalf("InsertLink: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"Files", "Notes", "Tags", "Links", "Bibliography", "Citations", "Images", "ImageLinks", "ValidLinks", "Untagged", "LayoutCache"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s missing: %v", table, err)
		}
	}
	v, err := db.UserVersion(context.Background())
	if err != nil {
		t.Fatalf("UserVersion: %v", err)
	}
	ms, _ := Migrations()
	if v != ms[len(ms)-1].Version {
		t.Errorf("user_version = %d, want %d", v, ms[len(ms)-1].Version)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestMigrationsSorted(t *testing.T) {
	ms, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	if len(ms) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(ms))
	}
	for i := 1; i < len(ms); i++ {
		if ms[i-1].Version >= ms[i].Version {
			t.Errorf("migrations out of order: %d before %d", ms[i-1].Version, ms[i].Version)
		}
	}
}

func TestInsertAndQueryNotes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed(t, db, "a.md", models.Note{ID: 1, Title: "One"}, models.Note{ID: 0, Title: "Zero"})

	ids, err := db.NoteIDs(ctx)
	if err != nil {
		t.Fatalf("NoteIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 1 {
		t.Errorf("ids = %v, want [0 1]", ids)
	}

	n, err := db.Note(ctx, 1)
	if err != nil {
		t.Fatalf("Note: %v", err)
	}
	if n.Title != "One" || n.Filename != "a.md" {
		t.Errorf("note = %+v", n)
	}

	hashes, err := db.FileHashes(ctx)
	if err != nil {
		t.Fatalf("FileHashes: %v", err)
	}
	if hashes["a.md"] != "h-a.md" {
		t.Errorf("hash = %q, want %q", hashes["a.md"], "h-a.md")
	}
}

func TestNote_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.Note(context.Background(), 42); !errors.Is(err, apperr.ErrNoteNotFound) {
		t.Errorf("err = %v, want ErrNoteNotFound", err)
	}
}

func TestInsertNote_Duplicate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed(t, db, "a.md", models.Note{ID: 7, Title: "First"})

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := tx.InsertFile(ctx, models.File{Path: "b.md", Hash: "x"}); err != nil {
		t.Fatalf("InsertFile: %v", err)
	}
	existing, err := tx.InsertNote(ctx, models.Note{ID: 7, Title: "Second", Filename: "b.md"})
	if !errors.Is(err, apperr.ErrDuplicateNote) {
		t.Fatalf("err = %v, want ErrDuplicateNote", err)
	}
	if existing == nil || existing.Filename != "a.md" || existing.Title != "First" {
		t.Errorf("existing = %+v", existing)
	}
}

func TestSetNoteHTML(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed(t, db, "a.md", models.Note{ID: 1, Title: "One"})

	tx, _ := db.Begin(ctx)
	if err := tx.SetNoteHTML(ctx, 1, "<h1>One</h1>"); err != nil {
		t.Fatalf("SetNoteHTML: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	n, _ := db.Note(ctx, 1)
	if n.HTML != "<h1>One</h1>" {
		t.Errorf("html = %q", n.HTML)
	}
}

func TestRollbackDiscardsBatch(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	tx, _ := db.Begin(ctx)
	_ = tx.InsertFile(ctx, models.File{Path: "a.md", Hash: "x"})
	_, _ = tx.InsertNote(ctx, models.Note{ID: 1, Title: "One", Filename: "a.md"})
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	ids, _ := db.NoteIDs(ctx)
	if len(ids) != 0 {
		t.Errorf("ids after rollback = %v", ids)
	}
	hashes, _ := db.FileHashes(ctx)
	if len(hashes) != 0 {
		t.Errorf("files after rollback = %v", hashes)
	}
}

func TestLinkQueries(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed(t, db, "a.md",
		models.Note{ID: 1, Title: "One"},
		models.Note{ID: 2, Title: "Two"},
		models.Note{ID: 3, Title: "Three"},
		models.Note{ID: 4, Title: "Four"},
	)
	links(t, db,
		models.Link{Src: 1, Dest: 2},
		models.Link{Src: 1, Dest: 2, Direction: models.Forward},
		models.Link{Src: 2, Dest: 9},
		models.Link{Src: 3, Dest: models.EmptyTarget},
	)

	valid, err := db.ValidLinks(ctx)
	if err != nil {
		t.Fatalf("ValidLinks: %v", err)
	}
	if len(valid) != 1 || valid[0].Src != 1 || valid[0].Dest != 2 {
		t.Errorf("valid = %+v, want [1->2]", valid)
	}

	invalid, err := db.InvalidLinks(ctx)
	if err != nil {
		t.Fatalf("InvalidLinks: %v", err)
	}
	if len(invalid) != 1 || invalid[0].Src.ID != 2 || invalid[0].Dest != 9 {
		t.Errorf("invalid = %+v, want [2->9]", invalid)
	}

	empty, _ := db.NotesWithEmptyLinks(ctx)
	if len(empty) != 1 || empty[0].ID != 3 {
		t.Errorf("empty = %+v, want [3]", empty)
	}

	isolated, _ := db.IsolatedNotes(ctx)
	if len(isolated) != 2 || isolated[0].ID != 3 || isolated[1].ID != 4 {
		t.Errorf("isolated = %+v, want [3 4]", isolated)
	}

	back, _ := db.Backlinks(ctx, 2)
	if len(back) != 1 || back[0].Src != 1 {
		t.Errorf("backlinks = %+v", back)
	}
	out, _ := db.LinksFrom(ctx, 1)
	if len(out) != 1 || out[0].Dest != 2 {
		t.Errorf("links from 1 = %+v", out)
	}
}

func TestTagsAndUntagged(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed(t, db, "a.md", models.Note{ID: 1, Title: "One"}, models.Note{ID: 2, Title: "Two"})

	tx, _ := db.Begin(ctx)
	_ = tx.InsertTag(ctx, models.Tag{Tag: "#go", NoteID: 1})
	_ = tx.InsertTag(ctx, models.Tag{Tag: "#go", NoteID: 1})
	_ = tx.InsertTag(ctx, models.Tag{Tag: "#db", NoteID: 1})
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tags, _ := db.TagsOf(ctx, 1)
	if len(tags) != 2 || tags[0] != "#db" || tags[1] != "#go" {
		t.Errorf("tags = %v", tags)
	}
	untagged, _ := db.UntaggedNotes(ctx)
	if len(untagged) != 1 || untagged[0].ID != 2 {
		t.Errorf("untagged = %+v", untagged)
	}
}

func TestCitationRequiresReference(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed(t, db, "a.md", models.Note{ID: 1, Title: "One"}, models.Note{ID: 2, Title: "Two"})

	tx, _ := db.Begin(ctx)
	_ = tx.InsertBibliography(ctx, models.BibliographyEntry{Key: "ref-knuth", HTML: "<p>Knuth</p>"})
	ok, err := tx.InsertCitation(ctx, models.Citation{NoteID: 1, Key: "ref-knuth"})
	if err != nil || !ok {
		t.Fatalf("InsertCitation known = %v, %v", ok, err)
	}
	ok, err = tx.InsertCitation(ctx, models.Citation{NoteID: 2, Key: "ref-missing"})
	if err != nil || ok {
		t.Fatalf("InsertCitation unknown = %v, %v", ok, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	uncited, _ := db.UncitedNotes(ctx)
	if len(uncited) != 1 || uncited[0].ID != 2 {
		t.Errorf("uncited = %+v", uncited)
	}
	keys, _ := db.CitationsOf(ctx, 1)
	if len(keys) != 1 || keys[0] != "ref-knuth" {
		t.Errorf("citations = %v", keys)
	}
}

func TestDeleteFilesCascades(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed(t, db, "a.md", models.Note{ID: 1, Title: "One"})
	seed(t, db, "b.md", models.Note{ID: 2, Title: "Two"})
	links(t, db, models.Link{Src: 1, Dest: 2}, models.Link{Src: 2, Dest: 1})

	tx, _ := db.Begin(ctx)
	_ = tx.InsertTag(ctx, models.Tag{Tag: "#x", NoteID: 1})
	_ = tx.InsertImage(ctx, models.Image{Filename: "pic.png", Binary: []byte{1, 2}})
	if ok, err := tx.InsertImageLink(ctx, models.ImageLink{NoteID: 1, Filename: "pic.png"}); err != nil || !ok {
		t.Fatalf("InsertImageLink = %v, %v", ok, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := db.DeleteFiles(ctx, []string{"a.md"}); err != nil {
		t.Fatalf("DeleteFiles: %v", err)
	}
	ids, _ := db.NoteIDs(ctx)
	if len(ids) != 1 || ids[0] != 2 {
		t.Errorf("ids = %v, want [2]", ids)
	}
	tags, _ := db.Tags(ctx)
	if len(tags) != 0 {
		t.Errorf("tags = %+v, want none", tags)
	}
	valid, _ := db.ValidLinks(ctx)
	if len(valid) != 0 {
		t.Errorf("valid links = %+v, want none", valid)
	}
	imgs, _ := db.Images(ctx)
	if len(imgs) != 0 {
		t.Errorf("images = %+v, want pruned", imgs)
	}
}

func TestLayoutCache(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if _, ok, err := db.Layout(ctx, "k"); err != nil || ok {
		t.Fatalf("Layout before save = %v, %v", ok, err)
	}
	if err := db.SaveLayout(ctx, "k", "one"); err != nil {
		t.Fatalf("SaveLayout: %v", err)
	}
	if err := db.SaveLayout(ctx, "k", "two"); err != nil {
		t.Fatalf("SaveLayout overwrite: %v", err)
	}
	got, ok, err := db.Layout(ctx, "k")
	if err != nil || !ok || got != "two" {
		t.Errorf("Layout = %q, %v, %v", got, ok, err)
	}
}

func TestBackupAndRestore(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed(t, db, "a.md", models.Note{ID: 1, Title: "One"})

	path, err := db.Backup(ctx)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backup file: %v", err)
	}

	seed(t, db, "b.md", models.Note{ID: 2, Title: "Two"})
	if err := db.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	ids, _ := db.NoteIDs(ctx)
	if len(ids) != 1 || ids[0] != 1 {
		t.Errorf("ids after restore = %v, want [1]", ids)
	}

	if err := db.RemoveBackup(); err != nil {
		t.Fatalf("RemoveBackup: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("backup still present: %v", err)
	}
	if err := db.RemoveBackup(); err != nil {
		t.Errorf("RemoveBackup twice: %v", err)
	}
}
