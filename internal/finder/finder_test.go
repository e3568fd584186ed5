package finder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/slipbox/internal/checksum"
	"github.com/starford/slipbox/internal/storage"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func collect(t *testing.T, f *Finder) []string {
	t.Helper()
	root := f.store.Root()
	var out []string
	for abs, err := range f.Paths() {
		require.NoError(t, err)
		rel, err := filepath.Rel(root, abs)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestMatch(t *testing.T) {
	f := &Finder{
		include: []string{"*.md", "*.rst", "notes/*.txt"},
		exclude: []string{"draft-*", "private/*"},
	}
	tests := []struct {
		rel  string
		want bool
	}{
		{"a.md", true},
		{"deep/dir/b.rst", true},
		{"notes/c.txt", true},
		{"x/notes/c.txt", true},
		{"c.txt", false},
		{"draft-1.md", false},
		{"private/secret.md", false},
		{"a.markdown", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			require.Equal(t, tt.want, f.Match(tt.rel))
		})
	}
}

func TestPaths(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"b.md":                "b",
		"a/z.md":              "z",
		"a/skip.txt":          "t",
		"draft.md":            "d",
		".slipbox/notes.md":   "hidden",
		"public/index.md":     "out",
		"sub/deeper/note.rst": "r",
	})
	store, err := storage.NewFS(root)
	require.NoError(t, err)

	f := New(store, map[string]bool{"*.md": true, "*.rst": true, "draft.md": false}, WithSkipDirs("public"))
	require.Equal(t, []string{"a/z.md", "b.md", "sub/deeper/note.rst"}, collect(t, f))
}

func TestPathsStopsEarly(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.md": "a", "b.md": "b", "c.md": "c"})
	store, err := storage.NewFS(root)
	require.NoError(t, err)

	f := New(store, map[string]bool{"*.md": true})
	var seen int
	for _, err := range f.Paths() {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	require.Equal(t, 2, seen)
}

func TestDiff(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"same.md":    "same",
		"changed.md": "new contents",
		"fresh.md":   "fresh",
	})
	store, err := storage.NewFS(root)
	require.NoError(t, err)

	recorded := map[string]string{
		"same.md":    checksum.Sum([]byte("same")),
		"changed.md": checksum.Sum([]byte("old contents")),
		"gone.md":    checksum.Sum([]byte("gone")),
	}
	f := New(store, map[string]bool{"*.md": true})
	c, err := Diff(store.Root(), f.Paths(), recorded)
	require.NoError(t, err)

	require.Equal(t, []string{"same.md"}, c.Unchanged)
	require.Equal(t, []string{"changed.md"}, c.Outdated)
	require.Equal(t, []string{"fresh.md"}, c.New)
	require.Equal(t, []string{"gone.md"}, c.Missing)
	require.Equal(t, []string{"changed.md", "gone.md"}, c.Stale())
	require.Equal(t, []string{"changed.md", "fresh.md"}, c.Pending())
	require.Equal(t, checksum.Sum([]byte("fresh")), c.Hashes["fresh.md"])
	require.False(t, c.Empty())
}

func TestDiffNothingToDo(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.md": "a"})
	store, err := storage.NewFS(root)
	require.NoError(t, err)

	f := New(store, map[string]bool{"*.md": true})
	c, err := Diff(store.Root(), f.Paths(), map[string]string{"a.md": checksum.Sum([]byte("a"))})
	require.NoError(t, err)
	require.True(t, c.Empty())
	require.Empty(t, c.Pending())
}
