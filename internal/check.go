package internal

import (
	"bytes"
	"context"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/check"
	"github.com/starford/slipbox/internal/report"
)

// CheckOptions controls Check.
type CheckOptions struct {
	Enable  []string
	Disable []string
	Strict  bool
}

// Check runs the selected checks against the index and prints the report.
// It returns apperr.ErrCheckFailed when errors were found, or warnings in strict mode.
func (a *App) Check(ctx context.Context, opts CheckOptions) error {
	f := a.newFormatter(opts.Strict)
	clean, err := a.runChecks(ctx, f, opts)
	if err != nil {
		return err
	}
	if err := f.Format(a.stdout); err != nil {
		return err
	}
	if !clean {
		return apperr.ErrCheckFailed
	}
	return nil
}

func (a *App) runChecks(ctx context.Context, f *report.Formatter, opts CheckOptions) (bool, error) {
	sel, err := check.Select(a.config.Checks, opts.Enable, opts.Disable)
	if err != nil {
		return false, err
	}
	return check.Run(ctx, a.db, f, check.Options{
		Selection:    sel,
		Strict:       opts.Strict,
		Bibliography: a.hasBibliography(),
		Logger:       a.logger,
	})
}

// reportChecker adapts the App to the MCP check tool.
type reportChecker struct {
	app *App
}

func (c reportChecker) Check(ctx context.Context, enable, disable []string, strict bool) (string, bool, error) {
	f := report.New(report.WithStrict(strict), report.WithoutColor())
	clean, err := c.app.runChecks(ctx, f, CheckOptions{Enable: enable, Disable: disable, Strict: strict})
	if err != nil {
		return "", false, err
	}
	var buf bytes.Buffer
	if err := f.Format(&buf); err != nil {
		return "", false, err
	}
	return buf.String(), clean, nil
}
