package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// TempPattern names the scratch files Write renames into place.
const TempPattern = ".slipbox-tmp-*"

// FS is a Provider over a directory of the local file system.
type FS struct {
	root string
}

var _ Provider = (*FS)(nil)

// NewFS returns an FS rooted at dir, which must be an existing directory.
func NewFS(dir string) (*FS, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: root %s: %w", dir, err)
	}
	info, err := os.Stat(root)
	switch {
	case err != nil:
		return nil, fmt.Errorf("storage: root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage: root %s is not a directory", root)
	}
	return &FS{root: root}, nil
}

// abs maps a slash-separated path to an absolute one. Paths that are
// absolute or climb out of the root are rejected.
func (f *FS) abs(rel string) (string, error) {
	p := filepath.FromSlash(rel)
	if !filepath.IsLocal(p) {
		return "", fmt.Errorf("storage: %q is outside the root", rel)
	}
	return filepath.Join(f.root, p), nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string { return f.root }

// Walk visits every entry below the root in lexical order.
func (f *FS) Walk(fn WalkFunc) error {
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == f.root {
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), d)
	})
	if err != nil {
		return fmt.Errorf("storage: walk: %w", err)
	}
	return nil
}

// Read returns the contents of the file at rel.
func (f *FS) Read(rel string) ([]byte, error) {
	p, err := f.abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("storage: read: %w", err)
	}
	return data, nil
}

// Write replaces the file at rel with content, creating parent directories.
// Readers see either the old or the new content, never a partial write.
func (f *FS) Write(rel string, content []byte) error {
	p, err := f.abs(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", rel, err)
	}
	if err := writeAtomic(dir, p, content); err != nil {
		return fmt.Errorf("storage: write %s: %w", rel, err)
	}
	return nil
}

func writeAtomic(dir, dst string, content []byte) (err error) {
	tmp, err := os.CreateTemp(dir, TempPattern)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
