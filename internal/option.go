package internal

import (
	"io"
	"log/slog"

	"github.com/starford/slipbox/internal/graph"
	"github.com/starford/slipbox/internal/pandoc"
)

// Option is a functional option for configuring the application.
type Option func(*App)

// WithConfig sets the configuration instead of reading .slipbox/config.cfg.
func WithConfig(cfg *Config) Option {
	return func(a *App) {
		a.config = cfg
	}
}

// WithRoot sets the notes root instead of searching upward from the working directory.
func WithRoot(root string) Option {
	return func(a *App) {
		a.root = root
	}
}

// WithLogger sets the logger instead of the rotating file logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithLogLevel sets the level of the default logger.
func WithLogLevel(level slog.Level) Option {
	return func(a *App) {
		a.logLevel = level
	}
}

// WithRunner sets the converter.
func WithRunner(r pandoc.Runner) Option {
	return func(a *App) {
		a.runner = r
	}
}

// WithLayoutEngine sets the graph layout engine.
func WithLayoutEngine(e graph.Engine) Option {
	return func(a *App) {
		a.layout = e
	}
}

// WithOutput sets where command output and reports are written.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithColor toggles ANSI colors in reports.
func WithColor(on bool) Option {
	return func(a *App) {
		a.color = on
	}
}
