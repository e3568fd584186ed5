package internal

import (
	"fmt"
	"io"

	"github.com/starford/slipbox/internal/pandoc"
)

// Formats prints a glob pattern for every extension the converter can read, one per line.
func Formats(w io.Writer) error {
	for _, ext := range pandoc.Formats() {
		if _, err := fmt.Fprintf(w, "*%s\n", ext); err != nil {
			return err
		}
	}
	return nil
}
