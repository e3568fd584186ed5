package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/ini.v1"

	"github.com/starford/slipbox/internal/finder"
)

// Config file sections.
const (
	sectionSlipbox       = "slipbox"
	sectionNotePatterns  = "note-patterns"
	sectionPaths         = "paths"
	sectionPandocOptions = "pandoc-options"
	sectionCheck         = "check"
)

// Config represents the contents of .slipbox/config.cfg.
type Config struct {
	Slipbox       SlipboxConfig
	NotePatterns  map[string]bool
	Paths         PathsConfig
	PandocOptions PandocConfig
	// Checks enables or disables individual checks by name.
	Checks map[string]bool
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Slipbox.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c.NotePatterns, validation.Required.Error("at least one note pattern is required")); err != nil {
		return fmt.Errorf("%s: %w", sectionNotePatterns, err)
	}
	return c.Paths.Validate()
}

// SlipboxConfig holds site-level settings.
type SlipboxConfig struct {
	OutputDirectory string `ini:"output_directory"`
	Title           string `ini:"title"`
}

// Validate validates the site settings.
func (c *SlipboxConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OutputDirectory, validation.Required, validation.By(insideRoot)),
		validation.Field(&c.Title, validation.Required),
	)
}

// PathsConfig names the external executables.
type PathsConfig struct {
	Pandoc string `ini:"pandoc"`
	Dot    string `ini:"dot"`
}

// Validate validates the executable paths.
func (c *PathsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Pandoc, validation.Required),
		validation.Field(&c.Dot, validation.Required),
	)
}

// PandocConfig holds converter options.
type PandocConfig struct {
	Bibliography  string `ini:"bibliography,omitempty"`
	CSL           string `ini:"csl,omitempty"`
	StripComments bool   `ini:"strip-comments"`
}

// ReadEnv lets PANDOC and DOT override the configured executables.
func (c *Config) ReadEnv() {
	if v := os.Getenv("PANDOC"); v != "" {
		c.Paths.Pandoc = v
	}
	if v := os.Getenv("DOT"); v != "" {
		c.Paths.Dot = v
	}
}

// DecodeINI reads every known section. Missing sections keep their defaults;
// a present [note-patterns] section replaces the default patterns.
func (c *Config) DecodeINI(f *ini.File) error {
	if sec, err := f.GetSection(sectionSlipbox); err == nil {
		if err := sec.MapTo(&c.Slipbox); err != nil {
			return fmt.Errorf("%s: %w", sectionSlipbox, err)
		}
	}
	if sec, err := f.GetSection(sectionPaths); err == nil {
		if err := sec.MapTo(&c.Paths); err != nil {
			return fmt.Errorf("%s: %w", sectionPaths, err)
		}
	}
	if sec, err := f.GetSection(sectionPandocOptions); err == nil {
		if err := sec.MapTo(&c.PandocOptions); err != nil {
			return fmt.Errorf("%s: %w", sectionPandocOptions, err)
		}
	}
	if sec, err := f.GetSection(sectionNotePatterns); err == nil {
		patterns, err := boolKeys(sec)
		if err != nil {
			return fmt.Errorf("%s: %w", sectionNotePatterns, err)
		}
		c.NotePatterns = patterns
	}
	if sec, err := f.GetSection(sectionCheck); err == nil {
		checks, err := boolKeys(sec)
		if err != nil {
			return fmt.Errorf("%s: %w", sectionCheck, err)
		}
		c.Checks = checks
	}
	return nil
}

func boolKeys(sec *ini.Section) (map[string]bool, error) {
	out := make(map[string]bool, len(sec.Keys()))
	for _, k := range sec.Keys() {
		v, err := k.Bool()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k.Name(), err)
		}
		out[k.Name()] = v
	}
	return out, nil
}

// Write saves the configuration as INI.
func (c *Config) Write(path string) error {
	f := ini.Empty()
	sections := []struct {
		name string
		src  any
	}{
		{sectionSlipbox, &c.Slipbox},
		{sectionPaths, &c.Paths},
		{sectionPandocOptions, &c.PandocOptions},
	}
	for _, s := range sections {
		sec, err := f.NewSection(s.name)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if err := sec.ReflectFrom(s.src); err != nil {
			return fmt.Errorf("config: %s: %w", s.name, err)
		}
	}
	if err := writeBoolKeys(f, sectionNotePatterns, c.NotePatterns); err != nil {
		return err
	}
	if len(c.Checks) > 0 {
		if err := writeBoolKeys(f, sectionCheck, c.Checks); err != nil {
			return err
		}
	}
	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("config: save %s: %w", path, err)
	}
	return nil
}

func writeBoolKeys(f *ini.File, name string, m map[string]bool) error {
	sec, err := f.NewSection(name)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := sec.NewKey(k, fmt.Sprint(m[k])); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

func insideRoot(value any) error {
	dir, _ := value.(string)
	clean := filepath.Clean(dir)
	switch {
	case filepath.IsAbs(clean):
		return errors.New("must be relative to the slipbox root")
	case clean == "." || clean == ".." || len(clean) > 2 && clean[:3] == ".."+string(filepath.Separator):
		return errors.New("must be a directory inside the slipbox root")
	case clean == finder.HiddenDir:
		return fmt.Errorf("must not be %s", finder.HiddenDir)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		Slipbox: SlipboxConfig{
			OutputDirectory: "public",
			Title:           "Slipbox",
		},
		NotePatterns: map[string]bool{
			"*.md":       true,
			"*.markdown": true,
			"*.rst":      true,
		},
		Paths: PathsConfig{
			Pandoc: "pandoc",
			Dot:    "dot",
		},
		PandocOptions: PandocConfig{
			StripComments: true,
		},
	}
}
