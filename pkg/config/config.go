// Package config provides INI-based configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Decoder is implemented by targets that read sections themselves instead of
// relying on ini struct mapping.
type Decoder interface {
	DecodeINI(f *ini.File) error
}

// Load loads configuration from an INI file with environment variable expansion.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := Parse(data, target); err != nil {
		return fmt.Errorf("config file %s: %w", filename, err)
	}
	return nil
}

// Parse decodes INI data into target and validates it.
func Parse[T any](data []byte, target *T) error {
	expanded := os.ExpandEnv(string(data))

	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, []byte(expanded))
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if d, ok := any(target).(Decoder); ok {
		err = d.DecodeINI(f)
	} else {
		err = f.MapTo(target)
	}
	if err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// LoadWithDefaults loads configuration from filename when it exists and
// leaves target untouched otherwise.
func LoadWithDefaults[T any](filename string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if validator, ok := any(target).(Validator); ok {
			return validator.Validate()
		}
		return nil
	}
	return Load(filename, target)
}
