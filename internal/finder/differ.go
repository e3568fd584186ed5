package finder

import (
	"fmt"
	"iter"
	"path/filepath"
	"sort"

	"github.com/starford/slipbox/internal/checksum"
)

// Changes classifies the files found on disk against the recorded hashes.
// All paths are slash-separated and relative to the root.
type Changes struct {
	Unchanged []string
	// Outdated files exist on disk with a hash different from the recorded one.
	Outdated []string
	New      []string
	// Missing files are recorded but no longer found.
	Missing []string
	// Hashes holds the current digest of every file found.
	Hashes map[string]string
}

// Stale returns the recorded paths that must be deleted from the index.
func (c Changes) Stale() []string {
	out := append(append([]string{}, c.Outdated...), c.Missing...)
	sort.Strings(out)
	return out
}

// Pending returns the paths that must be (re)processed.
func (c Changes) Pending() []string {
	out := append(append([]string{}, c.Outdated...), c.New...)
	sort.Strings(out)
	return out
}

// Empty reports whether nothing needs to be done.
func (c Changes) Empty() bool {
	return len(c.Outdated) == 0 && len(c.New) == 0 && len(c.Missing) == 0
}

// Diff hashes every path in paths and compares it with recorded, which maps
// relative paths to their stored hash.
func Diff(root string, paths iter.Seq2[string, error], recorded map[string]string) (Changes, error) {
	c := Changes{Hashes: make(map[string]string)}
	for abs, err := range paths {
		if err != nil {
			return Changes{}, err
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return Changes{}, fmt.Errorf("finder: relative path: %w", err)
		}
		rel = filepath.ToSlash(rel)
		sum, err := checksum.SumFile(abs)
		if err != nil {
			return Changes{}, err
		}
		c.Hashes[rel] = sum

		prev, ok := recorded[rel]
		switch {
		case !ok:
			c.New = append(c.New, rel)
		case prev != sum:
			c.Outdated = append(c.Outdated, rel)
		default:
			c.Unchanged = append(c.Unchanged, rel)
		}
	}
	for rel := range recorded {
		if _, ok := c.Hashes[rel]; !ok {
			c.Missing = append(c.Missing, rel)
		}
	}
	sort.Strings(c.Unchanged)
	sort.Strings(c.Outdated)
	sort.Strings(c.New)
	sort.Strings(c.Missing)
	return c, nil
}
