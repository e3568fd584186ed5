package pandoc

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

// FilterName is the file name the filter is written under in a scratch directory.
const FilterName = "filter.lua"

//go:embed filter.lua
var filterSource []byte

// WriteFilter writes the embedded filter into dir and returns its path.
func WriteFilter(dir string) (string, error) {
	p := filepath.Join(dir, FilterName)
	if err := os.WriteFile(p, filterSource, 0o644); err != nil {
		return "", fmt.Errorf("pandoc: write filter: %w", err)
	}
	return p, nil
}
