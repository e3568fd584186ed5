package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// ClosingLine is printed after the report when the outcome is an error.
const ClosingLine = "Found errors :("

// Formatter accumulates messages and renders them grouped by kind.
// It is safe for concurrent use.
type Formatter struct {
	mu       sync.Mutex
	messages []Message
	strict   bool
	noColor  bool
	keep     func(Kind) bool
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithStrict promotes warnings to errors.
func WithStrict(strict bool) Option {
	return func(f *Formatter) { f.strict = strict }
}

// WithoutColor disables ANSI colors in headers.
func WithoutColor() Option {
	return func(f *Formatter) { f.noColor = true }
}

// WithFilter drops warning messages whose kind keep rejects. Errors are always kept.
func WithFilter(keep func(Kind) bool) Option {
	return func(f *Formatter) { f.keep = keep }
}

// New returns an empty Formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Add records messages.
func (f *Formatter) Add(msgs ...Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		if f.keep != nil && m.Kind.Severity() == Warning && !f.keep(m.Kind) {
			continue
		}
		f.messages = append(f.messages, m)
	}
}

// LoadFile reads a JSON array of messages and records them.
// It reports whether any of them has error severity.
func (f *Formatter) LoadFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("report: read %s: %w", path, err)
	}
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return false, fmt.Errorf("report: decode %s: %w", path, err)
	}
	f.Add(msgs...)
	for _, m := range msgs {
		if m.Kind.Severity() == Error {
			return true, nil
		}
	}
	return false, nil
}

// Messages returns a copy of the recorded messages.
func (f *Formatter) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.messages...)
}

// Len returns the number of recorded messages.
func (f *Formatter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *Formatter) severity(k Kind) Severity {
	if f.strict {
		return Error
	}
	return k.Severity()
}

// HasErrors reports whether any recorded message is an error after strict promotion.
func (f *Formatter) HasErrors() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if f.severity(m.Kind) == Error {
			return true
		}
	}
	return false
}

// Reset discards every recorded message.
func (f *Formatter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = nil
}

// Format writes one section per kind with at least one message. Identical
// rows are printed once. The closing line follows when HasErrors is true.
func (f *Formatter) Format(w io.Writer) error {
	f.mu.Lock()
	byKind := make(map[Kind][]Message)
	var extra []Kind
	for _, m := range f.messages {
		if _, known := descriptions[m.Kind]; !known && len(byKind[m.Kind]) == 0 {
			extra = append(extra, m.Kind)
		}
		byKind[m.Kind] = append(byKind[m.Kind], m)
	}
	f.mu.Unlock()

	hasError := false
	for _, kind := range append(append([]Kind{}, Kinds...), extra...) {
		msgs := byKind[kind]
		if len(msgs) == 0 {
			continue
		}
		sev := f.severity(kind)
		if sev == Error {
			hasError = true
		}
		if err := f.section(w, kind, sev, msgs); err != nil {
			return err
		}
	}
	if hasError {
		if _, err := fmt.Fprintln(w, ClosingLine); err != nil {
			return err
		}
	}
	return nil
}

func (f *Formatter) section(w io.Writer, kind Kind, sev Severity, msgs []Message) error {
	c := color.New(color.FgYellow, color.Bold)
	if sev == Error {
		c = color.New(color.FgRed, color.Bold)
	}
	if f.noColor {
		c.DisableColor()
	}
	if _, err := c.Fprintf(w, "%s: %s\n", sev, kind.Description()); err != nil {
		return err
	}
	written := make(map[string]bool)
	for _, m := range msgs {
		for _, n := range m.Notes {
			line := "  " + n.String()
			if written[line] {
				continue
			}
			written[line] = true
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}
