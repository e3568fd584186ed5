package internal

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/slipbox/internal/finder"
)

// LogFile is the rotating log inside the hidden directory.
const LogFile = "slipbox.log"

// NewLogger returns a JSON logger. Inside a notes root it writes to a rotating
// file in the hidden directory so that command output stays clean; otherwise
// it writes warnings and above to stderr. The returned closer releases the file.
func NewLogger(root string, level slog.Level) (*slog.Logger, io.Closer) {
	if root == "" {
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: max(level, slog.LevelWarn),
		}))
		return logger, io.NopCloser(nil)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(root, finder.HiddenDir, LogFile),
		MaxSize:    5, // megabytes
		MaxBackups: 3,
	}
	logger := slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: level,
	}))
	return logger, file
}
