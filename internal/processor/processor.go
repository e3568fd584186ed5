// Package processor turns a batch of source files into index rows and
// per-note HTML by running them through the converter.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/batch"
	"github.com/starford/slipbox/internal/checksum"
	"github.com/starford/slipbox/internal/index"
	"github.com/starford/slipbox/internal/pandoc"
	"github.com/starford/slipbox/internal/report"
	"github.com/starford/slipbox/internal/storage"
)

// OutputHTML is the converter output file inside the scratch directory.
const OutputHTML = "temp.html"

// Processor converts batches and writes the results into the index.
type Processor struct {
	store     storage.Provider
	db        *index.DB
	runner    pandoc.Runner
	options   pandoc.Options
	formatter *report.Formatter
	logger    *slog.Logger
	tempDir   string
}

// Option configures a Processor.
type Option func(*Processor)

// WithOptions sets the converter options. ResourcePath defaults to the root.
func WithOptions(o pandoc.Options) Option {
	return func(p *Processor) { p.options = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithTempDir sets the parent of the per-batch scratch directories.
func WithTempDir(dir string) Option {
	return func(p *Processor) { p.tempDir = dir }
}

// New returns a Processor reading sources from store and writing into db.
// Diagnostics are added to formatter.
func New(store storage.Provider, db *index.DB, runner pandoc.Runner, formatter *report.Formatter, opts ...Option) *Processor {
	p := &Processor{
		store:     store,
		db:        db,
		runner:    runner,
		formatter: formatter,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.options.ResourcePath == "" {
		p.options.ResourcePath = store.Root()
	}
	return p
}

// Process converts one batch and commits it in a single transaction.
// A failed batch leaves the index untouched and returns an error wrapping
// apperr.ErrBuildFailed, or apperr.ErrConverterMissing when the converter
// cannot be started.
func (p *Processor) Process(ctx context.Context, b batch.Batch) error {
	if len(b.Paths) == 0 {
		return nil
	}
	log := p.logger.With(slog.String("extension", b.Extension), slog.Int("files", len(b.Paths)))

	scratch, err := os.MkdirTemp(p.tempDir, "slipbox-batch-*")
	if err != nil {
		return fmt.Errorf("processor: scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	input, err := p.preprocess(scratch, b)
	if err != nil {
		return err
	}
	filter, err := pandoc.WriteFilter(scratch)
	if err != nil {
		return err
	}
	output := filepath.Join(scratch, OutputHTML)

	err = p.runner.Run(ctx, pandoc.Invocation{
		Input:   input,
		From:    pandoc.Reader(b.Extension),
		Output:  output,
		Filter:  filter,
		Scratch: scratch,
		Options: p.options,
	})
	if errors.Is(err, apperr.ErrConverterMissing) {
		return err
	}
	if err != nil {
		log.Error("processor: conversion failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: convert %q batch: %v", apperr.ErrBuildFailed, b.Extension, err)
	}

	hasErrors, err := p.formatter.LoadFile(filepath.Join(scratch, MessagesJSON))
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrBuildFailed, err)
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	in := &ingester{
		tx:        tx,
		scratch:   scratch,
		files:     make(map[string]bool, len(b.Paths)),
		notes:     make(map[int]bool),
		readImage: p.store.Read,
		formatter: p.formatter,
		logger:    log,
	}
	for _, rel := range b.Paths {
		in.files[rel] = true
	}
	if err := in.run(ctx); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrBuildFailed, err)
	}
	if err := p.storeSections(ctx, tx, output, in.notes); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrBuildFailed, err)
	}
	if hasErrors || in.failed {
		log.Warn("processor: batch rejected")
		return fmt.Errorf("%w: %q batch has errors", apperr.ErrBuildFailed, b.Extension)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info("processor: batch committed", slog.Int("notes", len(in.notes)))
	return nil
}

// preprocess writes the concatenation of every fenced source file and
// returns the path of the scratch input.
func (p *Processor) preprocess(scratch string, b batch.Batch) (string, error) {
	var buf bytes.Buffer
	for _, rel := range b.Paths {
		data, err := p.store.Read(rel)
		if err != nil {
			return "", fmt.Errorf("processor: %w", err)
		}
		buf.WriteString(pandoc.FileFence(b.Extension, rel, checksum.Sum(data)))
		buf.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	input := filepath.Join(scratch, "input"+b.Extension)
	if err := os.WriteFile(input, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("processor: write input: %w", err)
	}
	return input, nil
}

// storeSections writes the HTML fragment of every note inserted by the batch.
func (p *Processor) storeSections(ctx context.Context, tx *index.Tx, output string, notes map[int]bool) error {
	f, err := os.Open(output)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("processor: open output: %w", err)
	}
	defer f.Close()

	sections, err := SplitSections(f)
	if err != nil {
		return err
	}
	for _, s := range sections {
		if !notes[s.ID] {
			continue
		}
		if err := tx.SetNoteHTML(ctx, s.ID, s.HTML); err != nil {
			return err
		}
	}
	return nil
}
