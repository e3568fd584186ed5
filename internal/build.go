package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/batch"
	"github.com/starford/slipbox/internal/check"
	"github.com/starford/slipbox/internal/finder"
	"github.com/starford/slipbox/internal/graph"
	"github.com/starford/slipbox/internal/processor"
	"github.com/starford/slipbox/internal/report"
	"github.com/starford/slipbox/internal/site"
)

// BuildOptions controls Build.
type BuildOptions struct {
	// NoOutput updates the index without generating the site.
	NoOutput bool
}

// Build brings the index up to date with the notes on disk, runs the
// configured checks and regenerates the site.
//
// The index is backed up first. Fatal failures restore the backup; failed
// batches and check errors do not, and are reported as apperr.ErrBuildFailed
// after everything else has run.
func (a *App) Build(ctx context.Context, opts BuildOptions) error {
	if c, ok := a.runner.(interface{ Check() error }); ok {
		if err := c.Check(); err != nil {
			return err
		}
	}
	if _, err := a.db.Backup(ctx); err != nil {
		return err
	}

	err := a.build(ctx, opts)
	if err != nil && !errors.Is(err, apperr.ErrBuildFailed) {
		a.logger.Error("build aborted, restoring index", slog.String("error", err.Error()))
		if rerr := a.db.Restore(ctx); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}
	if rerr := a.db.RemoveBackup(); rerr != nil {
		a.logger.Warn("remove backup", slog.String("error", rerr.Error()))
	}
	return err
}

func (a *App) build(ctx context.Context, opts BuildOptions) error {
	sel, err := check.Select(a.config.Checks, nil, nil)
	if err != nil {
		return err
	}
	formatter := a.newFormatter(false, report.WithFilter(sel.Has))

	fd := finder.New(a.store, a.config.NotePatterns, finder.WithSkipDirs(a.config.Slipbox.OutputDirectory))
	recorded, err := a.db.FileHashes(ctx)
	if err != nil {
		return err
	}
	changes, err := finder.Diff(a.root, fd.Paths(), recorded)
	if err != nil {
		return err
	}
	a.logger.Info("build started",
		slog.Int("new", len(changes.New)),
		slog.Int("outdated", len(changes.Outdated)),
		slog.Int("missing", len(changes.Missing)),
		slog.Int("unchanged", len(changes.Unchanged)))

	if err := a.db.DeleteFiles(ctx, changes.Stale()); err != nil {
		return err
	}

	proc := processor.New(a.store, a.db, a.runner, formatter,
		processor.WithOptions(a.converterOptions()),
		processor.WithLogger(a.logger))
	failed := 0
	for _, b := range batch.Group(changes.Pending()) {
		err := proc.Process(ctx, b)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperr.ErrBuildFailed) {
			return err
		}
		failed++
		a.logger.Error("batch failed",
			slog.String("extension", b.Extension),
			slog.Int("files", len(b.Paths)),
			slog.String("error", err.Error()))
	}

	clean, err := check.Run(ctx, a.db, formatter, check.Options{
		Selection:    sel,
		Bibliography: a.hasBibliography(),
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}
	if err := formatter.Format(a.stdout); err != nil {
		return err
	}

	if !opts.NoOutput {
		cache := graph.NewCache(a.db, a.layout, a.logger)
		emitter := site.New(a.db, cache,
			site.WithTitle(a.config.Slipbox.Title),
			site.WithLogger(a.logger))
		if err := emitter.Generate(ctx, a.outputDir()); err != nil {
			return err
		}
	}

	switch {
	case failed > 0:
		return fmt.Errorf("%w: %d batch(es) failed", apperr.ErrBuildFailed, failed)
	case !clean || formatter.HasErrors():
		return fmt.Errorf("%w: errors found", apperr.ErrBuildFailed)
	}
	a.logger.Info("build finished")
	return nil
}

// ignored reports whether a path relative to the root never affects the
// index: hidden files and directories, and the site output.
func (a *App) ignored(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	out := path.Clean(strings.ReplaceAll(a.config.Slipbox.OutputDirectory, `\`, "/"))
	return rel == out || strings.HasPrefix(rel, out+"/")
}
