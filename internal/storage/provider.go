// Package storage confines file access to a directory: the notes root when
// reading sources and the site scratch directory when writing output.
package storage

import "io/fs"

// WalkFunc receives every entry below the root with its slash-separated
// relative path. Returning fs.SkipDir prunes a directory.
type WalkFunc func(rel string, d fs.DirEntry) error

// Provider reads and writes files addressed relative to a root.
type Provider interface {
	Root() string
	Walk(fn WalkFunc) error
	Read(rel string) ([]byte, error)
	// Write replaces the file atomically.
	Write(rel string, content []byte) error
}
