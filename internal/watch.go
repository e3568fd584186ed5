package internal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/watch"
)

// Watch builds once and then rebuilds whenever a file under the root changes,
// until ctx is cancelled. Failed rebuilds are logged and watching continues.
func (a *App) Watch(ctx context.Context, opts BuildOptions) error {
	if err := a.Build(ctx, opts); err != nil && !errors.Is(err, apperr.ErrBuildFailed) {
		return err
	}
	a.logger.Info("watching for changes", slog.String("root", a.root))
	return watch.Run(ctx, a.root, watch.Options{
		Skip:   a.ignored,
		Logger: a.logger,
	}, func(ctx context.Context) error {
		return a.Build(ctx, opts)
	})
}
