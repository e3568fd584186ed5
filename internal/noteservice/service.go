// Package noteservice answers read-only questions about indexed notes for the
// CLI and the MCP server.
package noteservice

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/slipbox/internal/index"
	"github.com/starford/slipbox/internal/models"
)

// LinkRef is one end of a link as shown in note info.
type LinkRef struct {
	ID    int    `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// NoteInfo is the full description of a note.
type NoteInfo struct {
	ID        int       `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Filename  string    `json:"filename" yaml:"filename"`
	Tags      []string  `json:"tags" yaml:"tags"`
	Links     []LinkRef `json:"links" yaml:"links"`
	Backlinks []LinkRef `json:"backlinks" yaml:"backlinks"`
	Citations []string  `json:"citations" yaml:"citations"`
}

// YAML renders the info as a YAML document.
func (n *NoteInfo) YAML() (string, error) {
	out, err := yaml.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("noteservice: encode info: %w", err)
	}
	return string(out), nil
}

// TagCount is a tag and the number of notes carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Service reads from the index.
type Service struct {
	db index.Reader
}

// NewService creates a service over r.
func NewService(r index.Reader) *Service {
	return &Service{db: r}
}

// Info returns everything known about a note. It returns apperr.ErrNoteNotFound
// for unknown ids.
func (s *Service) Info(ctx context.Context, id int) (*NoteInfo, error) {
	n, err := s.db.Note(ctx, id)
	if err != nil {
		return nil, err
	}
	info := &NoteInfo{ID: n.ID, Title: n.Title, Filename: n.Filename}

	if info.Tags, err = s.db.TagsOf(ctx, id); err != nil {
		return nil, err
	}
	out, err := s.db.LinksFrom(ctx, id)
	if err != nil {
		return nil, err
	}
	if info.Links, err = s.refs(ctx, out, func(l models.Link) int { return l.Dest }); err != nil {
		return nil, err
	}
	in, err := s.db.Backlinks(ctx, id)
	if err != nil {
		return nil, err
	}
	if info.Backlinks, err = s.refs(ctx, in, func(l models.Link) int { return l.Src }); err != nil {
		return nil, err
	}
	if info.Citations, err = s.db.CitationsOf(ctx, id); err != nil {
		return nil, err
	}
	info.Tags = nonNil(info.Tags)
	info.Citations = nonNil(info.Citations)
	return info, nil
}

func (s *Service) refs(ctx context.Context, links []models.Link, end func(models.Link) int) ([]LinkRef, error) {
	ids := make([]int, len(links))
	for i, l := range links {
		ids[i] = end(l)
	}
	notes, err := s.db.NotesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]LinkRef, len(notes))
	for i, n := range notes {
		out[i] = LinkRef{ID: n.ID, Title: n.Title}
	}
	return out, nil
}

// ListNotes returns notes ordered by id, optionally restricted to a tag.
// limit <= 0 means no limit.
func (s *Service) ListNotes(ctx context.Context, tag string, limit int) ([]models.Note, error) {
	var (
		notes []models.Note
		err   error
	)
	if tag == "" {
		notes, err = s.db.Notes(ctx)
	} else {
		notes, err = s.notesTagged(ctx, normalizeTag(tag))
	}
	if err != nil {
		return nil, err
	}
	for i := range notes {
		notes[i].HTML = ""
	}
	if limit > 0 && len(notes) > limit {
		notes = notes[:limit]
	}
	return notes, nil
}

func (s *Service) notesTagged(ctx context.Context, tag string) ([]models.Note, error) {
	tags, err := s.db.Tags(ctx)
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, t := range tags {
		if t.Tag == tag {
			ids = append(ids, t.NoteID)
		}
	}
	sort.Ints(ids)
	return s.db.NotesByIDs(ctx, ids)
}

// Tags returns every tag with its note count, ordered by tag.
func (s *Service) Tags(ctx context.Context) ([]TagCount, error) {
	tags, err := s.db.Tags(ctx)
	if err != nil {
		return nil, err
	}
	var out []TagCount
	for _, t := range tags {
		if len(out) > 0 && out[len(out)-1].Tag == t.Tag {
			out[len(out)-1].Count++
			continue
		}
		out = append(out, TagCount{Tag: t.Tag, Count: 1})
	}
	return out, nil
}

// SuggestIDs returns the n smallest positive ids not used by any note.
// n is raised to at least 1.
func (s *Service) SuggestIDs(ctx context.Context, n int) ([]int, error) {
	ids, err := s.db.NoteIDs(ctx)
	if err != nil {
		return nil, err
	}
	n = max(n, 1)
	out := make([]int, 0, n)
	for id := range unused(ids) {
		out = append(out, id)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// unused yields the positive integers missing from the ascending ids, without end.
func unused(ids []int) iter.Seq[int] {
	return func(yield func(int) bool) {
		next := 1
		for _, id := range ids {
			for ; next < id; next++ {
				if !yield(next) {
					return
				}
			}
			next = max(next, id+1)
		}
		for ; ; next++ {
			if !yield(next) {
				return
			}
		}
	}
}

// JoinIDs formats ids comma-separated.
func JoinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}

func normalizeTag(tag string) string {
	if strings.HasPrefix(tag, "#") {
		return tag
	}
	return "#" + tag
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
