// Package batch groups source files by extension so that each group can be
// converted with a single metadata-fence dialect.
package batch

import (
	"path"
	"sort"
)

// Batch is a set of files sharing an extension.
type Batch struct {
	// Extension is the verbatim extension including the dot, or "" for files without one.
	Extension string
	Paths     []string
}

// Group splits paths (slash-separated) into batches ordered by extension.
// Paths inside a batch are sorted.
func Group(paths []string) []Batch {
	byExt := make(map[string][]string)
	for _, p := range paths {
		ext := path.Ext(path.Base(p))
		byExt[ext] = append(byExt[ext], p)
	}
	exts := make([]string, 0, len(byExt))
	for ext := range byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	out := make([]Batch, 0, len(exts))
	for _, ext := range exts {
		ps := byExt[ext]
		sort.Strings(ps)
		out = append(out, Batch{Extension: ext, Paths: ps})
	}
	return out
}
