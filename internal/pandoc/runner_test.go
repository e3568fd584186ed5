package pandoc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/slipbox/internal/apperr"
)

func TestArgs(t *testing.T) {
	inv := Invocation{
		Input:  "/tmp/s/input.md",
		From:   "markdown",
		Output: "/tmp/s/temp.html",
		Filter: "/tmp/s/filter.lua",
		Options: Options{
			Bibliography:  "/notes/refs.bib",
			CSL:           "/notes/style.csl",
			StripComments: true,
			ResourcePath:  "/notes",
		},
	}
	require.Equal(t, []string{
		"/tmp/s/input.md",
		"--from=markdown",
		"--bibliography", "/notes/refs.bib", "--citeproc",
		"--csl", "/notes/style.csl",
		"--lua-filter=/tmp/s/filter.lua",
		"--strip-comments",
		"--section-divs",
		"--mathjax",
		"-Mlink-citations:true",
		"--resource-path=/notes",
		"-o", "/tmp/s/temp.html",
	}, inv.Args())
}

func TestArgsMinimal(t *testing.T) {
	inv := Invocation{Input: "in.rst", Output: "out.html", Filter: "f.lua", Options: Options{CSL: "ignored.csl"}}
	require.Equal(t, []string{
		"in.rst",
		"--lua-filter=f.lua",
		"--section-divs",
		"--mathjax",
		"-Mlink-citations:true",
		"-o", "out.html",
	}, inv.Args())
}

func TestWriteFilter(t *testing.T) {
	dir := t.TempDir()
	p, err := WriteFilter(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, FilterName), p)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(data), "slipbox%-metadata")
	require.Contains(t, string(data), "SLIPBOX_TMPDIR")
}

func TestExecRunnerMissingBinary(t *testing.T) {
	r := NewExecRunner(filepath.Join(t.TempDir(), "no-such-pandoc"), nil)
	require.True(t, errors.Is(r.Check(), apperr.ErrConverterMissing))

	err := r.Run(context.Background(), Invocation{Input: "x.md", Output: "x.html", Filter: "f.lua", Scratch: t.TempDir()})
	require.True(t, errors.Is(err, apperr.ErrConverterMissing))
}
