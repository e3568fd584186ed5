package pandoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/starford/slipbox/internal/apperr"
)

// EnvScratchDir tells the filter where to write its sideband files.
const EnvScratchDir = "SLIPBOX_TMPDIR"

// Options are the format-agnostic converter settings taken from the configuration.
type Options struct {
	// Bibliography is an absolute path; empty disables citation processing.
	Bibliography  string
	CSL           string
	StripComments bool
	// ResourcePath is the notes root, searched for images and includes.
	ResourcePath string
}

// Invocation is one converter run over a preprocessed batch.
type Invocation struct {
	Input   string
	// From is the input format; empty leaves it to the converter.
	From    string
	Output  string
	Filter  string
	Scratch string
	Options Options
}

// Args returns the converter command line, without the program name.
// Citation processing runs before the filter so the filter sees the rendered bibliography.
func (inv Invocation) Args() []string {
	args := []string{inv.Input}
	if inv.From != "" {
		args = append(args, "--from="+inv.From)
	}
	if inv.Options.Bibliography != "" {
		args = append(args, "--bibliography", inv.Options.Bibliography, "--citeproc")
		if inv.Options.CSL != "" {
			args = append(args, "--csl", inv.Options.CSL)
		}
	}
	args = append(args, "--lua-filter="+inv.Filter)
	if inv.Options.StripComments {
		args = append(args, "--strip-comments")
	}
	args = append(args,
		"--section-divs",
		"--mathjax",
		"-Mlink-citations:true",
	)
	if inv.Options.ResourcePath != "" {
		args = append(args, "--resource-path="+inv.Options.ResourcePath)
	}
	return append(args, "-o", inv.Output)
}

// Runner executes a converter invocation.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// ExecRunner runs the pandoc binary.
type ExecRunner struct {
	Path   string
	Logger *slog.Logger
}

var _ Runner = (*ExecRunner)(nil)

// NewExecRunner returns a runner for the program at path ("pandoc" when empty).
func NewExecRunner(path string, logger *slog.Logger) *ExecRunner {
	if path == "" {
		path = "pandoc"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{Path: path, Logger: logger}
}

// Check verifies that the converter can be found.
func (r *ExecRunner) Check() error {
	if _, err := exec.LookPath(r.Path); err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrConverterMissing, r.Path)
	}
	return nil
}

// Run starts the converter in the scratch directory and waits for it.
// A nonzero exit is returned as an error carrying the converter's stderr.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) error {
	cmd := exec.CommandContext(ctx, r.Path, inv.Args()...)
	cmd.Dir = inv.Scratch
	cmd.Env = append(os.Environ(), EnvScratchDir+"="+inv.Scratch)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.Logger.Debug("pandoc: run", slog.String("input", inv.Input), slog.String("args", strings.Join(inv.Args(), " ")))
	err := cmd.Run()
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		r.Logger.Warn("pandoc: stderr", slog.String("input", inv.Input), slog.String("output", msg))
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", apperr.ErrConverterMissing, r.Path)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("pandoc: exit %d: %s", exitErr.ExitCode(), firstLine(stderr.String()))
	}
	return fmt.Errorf("pandoc: run: %w", err)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
