package index

import (
	"context"

	"github.com/starford/slipbox/internal/models"
)

// Reader is the read-only view of the index used by the checker, the site
// emitter and the query commands. Consumers should depend on this interface
// rather than the concrete *DB type.
type Reader interface {
	Note(ctx context.Context, id int) (*models.Note, error)
	Notes(ctx context.Context) ([]models.Note, error)
	NoteIDs(ctx context.Context) ([]int, error)
	NotesByIDs(ctx context.Context, ids []int) ([]models.Note, error)
	IsolatedNotes(ctx context.Context) ([]models.Note, error)
	UntaggedNotes(ctx context.Context) ([]models.Note, error)
	NotesWithEmptyLinks(ctx context.Context) ([]models.Note, error)
	UncitedNotes(ctx context.Context) ([]models.Note, error)
	InvalidLinks(ctx context.Context) ([]InvalidLink, error)
	ValidLinks(ctx context.Context) ([]models.Link, error)
	LinksFrom(ctx context.Context, id int) ([]models.Link, error)
	Backlinks(ctx context.Context, id int) ([]models.Link, error)
	Tags(ctx context.Context) ([]models.Tag, error)
	TagsOf(ctx context.Context, id int) ([]string, error)
	Bibliography(ctx context.Context) ([]models.BibliographyEntry, error)
	Citations(ctx context.Context) ([]models.Citation, error)
	CitationsOf(ctx context.Context, id int) ([]string, error)
	Images(ctx context.Context) ([]models.Image, error)
}

// Verify *DB satisfies Reader at compile time.
var _ Reader = (*DB)(nil)
