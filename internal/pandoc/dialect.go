// Package pandoc drives the external document converter and owns the
// metadata fences that tie converted sections back to their source files.
package pandoc

import (
	"sort"
	"strings"
)

// MetadataHeader opens every metadata fence.
const MetadataHeader = "[slipbox-metadata]"

// dialect describes how a fence is written for one input format.
type dialect struct {
	template string // %s receives the key=value lines
	indent   string // prefix for every key=value line after the first
}

var (
	markdownFence = dialect{template: "\n```\n" + MetadataHeader + "\n%s\n```\n"}
	latexFence    = dialect{template: "\n\\begin{verbatim}\n" + MetadataHeader + "\n%s\n\\end{verbatim}\n"}
)

var dialects = map[string]dialect{
	".dokuwiki": {template: "\n<code>\n" + MetadataHeader + "\n%s\n</code>\n"},
	".latex":    latexFence,
	".markdown": markdownFence,
	".md":       markdownFence,
	".mdown":    markdownFence,
	".org":      {template: "\n#+begin_example\n" + MetadataHeader + "\n%s\n#+end_example\n"},
	".rst":      {template: "\n.. code::\n\n    " + MetadataHeader + "\n    %s\n\n", indent: "    "},
	".t2t":      markdownFence,
	".tex":      latexFence,
	".textile":  {template: "\nbc. " + MetadataHeader + "\n%s\n\n"},
	".wiki":     {template: "\n<pre>" + MetadataHeader + "\n%s</pre>\n"},
}

// readers names the converter input format of each extension.
var readers = map[string]string{
	".dokuwiki": "dokuwiki",
	".latex":    "latex",
	".markdown": "markdown",
	".md":       "markdown",
	".mdown":    "markdown",
	".org":      "org",
	".rst":      "rst",
	".t2t":      "t2t",
	".tex":      "latex",
	".textile":  "textile",
	".wiki":     "mediawiki",
}

// Reader returns the input format for ext, or "" to let the converter
// guess from the file name.
func Reader(ext string) string {
	return readers[ext]
}

// Field is one key=value line of a metadata fence.
type Field struct {
	Key   string
	Value string
}

// Fence renders a metadata fence for a file with the given extension.
// Unknown extensions use the Markdown form.
func Fence(ext string, fields ...Field) string {
	d, ok := dialects[ext]
	if !ok {
		d = markdownFence
	}
	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = f.Key + "=" + f.Value
	}
	body := strings.Join(lines, "\n"+d.indent)
	return strings.Replace(d.template, "%s", body, 1)
}

// FileFence renders the fence that precedes a source file in a batch.
func FileFence(ext, filename, hash string) string {
	return Fence(ext, Field{Key: "filename", Value: filename}, Field{Key: "hash", Value: hash})
}

// Known reports whether ext has a dedicated fence dialect.
func Known(ext string) bool {
	_, ok := dialects[ext]
	return ok
}

// Formats returns the supported extensions in sorted order.
func Formats() []string {
	out := make([]string, 0, len(dialects))
	for ext := range dialects {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
