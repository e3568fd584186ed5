// Package internal wires the slipbox commands to the index, the converter and
// the site emitter.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/finder"
	"github.com/starford/slipbox/internal/graph"
	"github.com/starford/slipbox/internal/index"
	"github.com/starford/slipbox/internal/pandoc"
	"github.com/starford/slipbox/internal/report"
	"github.com/starford/slipbox/internal/storage"
	pkgconfig "github.com/starford/slipbox/pkg/config"
)

// Files inside the hidden directory.
const (
	DatabaseFile = "data.db"
	ConfigFile   = "config.cfg"
)

// App bundles the state shared by every command run inside a notes root.
type App struct {
	root     string
	config   *Config
	db       *index.DB
	store    *storage.FS
	runner   pandoc.Runner
	layout   graph.Engine
	logger   *slog.Logger
	logLevel slog.Level
	logFile  io.Closer
	stdout   io.Writer
	stderr   io.Writer
	color    bool
}

// FindRoot walks upward from dir to the first directory containing the hidden
// directory. It returns apperr.ErrNotInitialized when there is none.
func FindRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("find root: %w", err)
	}
	for {
		info, err := os.Stat(filepath.Join(dir, finder.HiddenDir))
		if err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", apperr.ErrNotInitialized
		}
		dir = parent
	}
}

// Open locates the notes root, loads the configuration and opens the index.
// The caller must Close the App.
func Open(ctx context.Context, opts ...Option) (*App, error) {
	a := &App{
		logLevel: slog.LevelInfo,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		color:    true,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		if a.root, err = FindRoot(wd); err != nil {
			return nil, err
		}
	}
	hidden := filepath.Join(a.root, finder.HiddenDir)

	if a.config == nil {
		a.config = NewDefaultConfig()
		if err := pkgconfig.LoadWithDefaults(filepath.Join(hidden, ConfigFile), a.config); err != nil {
			return nil, err
		}
		a.config.ReadEnv()
	}

	if a.logger == nil {
		a.logger, a.logFile = NewLogger(a.root, a.logLevel)
	}
	slog.SetDefault(a.logger)

	store, err := storage.NewFS(a.root)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a.store = store

	db, err := index.Open(filepath.Join(hidden, DatabaseFile))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init index: %w", err)
	}
	a.db = db

	if a.runner == nil {
		a.runner = pandoc.NewExecRunner(a.config.Paths.Pandoc, a.logger)
	}
	if a.layout == nil {
		a.layout = graph.Dot{Path: a.config.Paths.Dot}
	}

	a.logger.DebugContext(ctx, "slipbox opened",
		slog.String("root", a.root),
		slog.String("index", db.Path()),
		slog.String("pandoc", a.config.Paths.Pandoc),
		slog.String("dot", a.config.Paths.Dot))
	return a, nil
}

// Root returns the notes root.
func (a *App) Root() string { return a.root }

// Config returns the active configuration.
func (a *App) Config() *Config { return a.config }

// DB returns the index.
func (a *App) DB() *index.DB { return a.db }

// Close releases the index and the log file.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}

func (a *App) newFormatter(strict bool, extra ...report.Option) *report.Formatter {
	opts := []report.Option{report.WithStrict(strict)}
	if !a.color {
		opts = append(opts, report.WithoutColor())
	}
	return report.New(append(opts, extra...)...)
}

func (a *App) hasBibliography() bool {
	return a.config.PandocOptions.Bibliography != ""
}

func (a *App) converterOptions() pandoc.Options {
	o := a.config.PandocOptions
	opts := pandoc.Options{StripComments: o.StripComments, ResourcePath: a.root}
	if o.Bibliography != "" {
		opts.Bibliography = a.resolve(o.Bibliography)
	}
	if o.CSL != "" {
		opts.CSL = a.resolve(o.CSL)
	}
	return opts
}

func (a *App) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.root, p)
}

func (a *App) outputDir() string {
	return filepath.Join(a.root, a.config.Slipbox.OutputDirectory)
}
