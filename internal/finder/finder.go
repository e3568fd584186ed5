// Package finder locates note files under the slipbox root and compares them
// with what the index has recorded.
package finder

import (
	"errors"
	"io/fs"
	"iter"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/slipbox/internal/storage"
)

// HiddenDir is the directory holding the index and configuration. It is never searched.
const HiddenDir = ".slipbox"

var errStop = errors.New("finder: stop")

// Finder yields the files under a root that match its patterns.
type Finder struct {
	store    storage.Provider
	include  []string
	exclude  []string
	skipDirs map[string]bool
}

// Option configures a Finder.
type Option func(*Finder)

// WithSkipDirs excludes directories (relative to the root) from the search.
func WithSkipDirs(dirs ...string) Option {
	return func(f *Finder) {
		for _, d := range dirs {
			d = strings.Trim(filepath.ToSlash(filepath.Clean(d)), "/")
			if d != "" && d != "." {
				f.skipDirs[d] = true
			}
		}
	}
}

// New returns a Finder over store. patterns maps glob patterns to true
// (include) or false (exclude).
func New(store storage.Provider, patterns map[string]bool, opts ...Option) *Finder {
	f := &Finder{
		store:    store,
		skipDirs: map[string]bool{HiddenDir: true},
	}
	for p, on := range patterns {
		if on {
			f.include = append(f.include, p)
		} else {
			f.exclude = append(f.exclude, p)
		}
	}
	sort.Strings(f.include)
	sort.Strings(f.exclude)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Match reports whether rel (slash-separated, relative to the root) matches
// at least one include pattern and no exclude pattern.
func (f *Finder) Match(rel string) bool {
	return matchAny(f.include, rel) && !matchAny(f.exclude, rel)
}

// Paths yields the absolute path of every matching regular file in lexical
// walk order. Iteration stops early when the consumer stops.
func (f *Finder) Paths() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		root := f.store.Root()
		err := f.store.Walk(func(rel string, d fs.DirEntry) error {
			if d.IsDir() {
				if f.skipDirs[rel] {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !f.Match(rel) {
				return nil
			}
			if !yield(filepath.Join(root, filepath.FromSlash(rel)), nil) {
				return errStop
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStop) {
			yield("", err)
		}
	}
}

// matchAny matches patterns without a slash against the base name and
// patterns with a slash against the trailing path components.
func matchAny(patterns []string, rel string) bool {
	parts := strings.Split(rel, "/")
	for _, p := range patterns {
		n := strings.Count(p, "/") + 1
		if n > len(parts) {
			continue
		}
		tail := strings.Join(parts[len(parts)-n:], "/")
		if ok, err := path.Match(p, tail); err == nil && ok {
			return true
		}
	}
	return false
}
