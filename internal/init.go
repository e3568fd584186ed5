package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/finder"
	"github.com/starford/slipbox/internal/index"
	pkgconfig "github.com/starford/slipbox/pkg/config"
)

// InitOptions controls Init.
type InitOptions struct {
	// Config seeds the new configuration from an existing config file.
	Config string
	Quiet  bool
}

// Init creates the hidden directory in dir with a configuration file and an
// empty index. It fails with apperr.ErrAlreadyInitialized when dir or one of
// its parents is already a notes root.
func Init(dir string, opts InitOptions, w io.Writer) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if _, err := FindRoot(root); err == nil {
		return apperr.ErrAlreadyInitialized
	} else if !errors.Is(err, apperr.ErrNotInitialized) {
		return err
	}

	cfg := NewDefaultConfig()
	if opts.Config != "" {
		if err := pkgconfig.Load(opts.Config, cfg); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}

	hidden := filepath.Join(root, finder.HiddenDir)
	if err := os.MkdirAll(hidden, 0o755); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := cfg.Write(filepath.Join(hidden, ConfigFile)); err != nil {
		return err
	}
	db, err := index.Open(filepath.Join(hidden, DatabaseFile))
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := db.Close(); err != nil {
		return err
	}

	if opts.Quiet {
		return nil
	}
	_, err = fmt.Fprintf(w, "slipbox initialized in %s\nYou can configure slipbox by editing %s.\n",
		root, filepath.ToSlash(filepath.Join(finder.HiddenDir, ConfigFile)))
	return err
}
