// Package check runs consistency checks over the note index and reports
// findings through a report.Formatter.
package check

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/slipbox/internal/graph"
	"github.com/starford/slipbox/internal/index"
	"github.com/starford/slipbox/internal/models"
	"github.com/starford/slipbox/internal/report"
)

// All selects every known check.
const All = "all"

type checkFunc func(ctx context.Context, r index.Reader, opts Options) ([]report.Message, error)

type definition struct {
	kind    report.Kind
	enabled bool
	run     checkFunc
}

var registry = []definition{
	{kind: report.InvalidLink, enabled: true, run: invalidLinks},
	{kind: report.EmptyLinkTarget, enabled: true, run: emptyLinks},
	{kind: report.GraphCycle, enabled: false, run: cycles},
	{kind: report.IsolatedNote, enabled: true, run: isolatedNotes},
	{kind: report.MissingCitations, enabled: true, run: missingCitations},
}

// Names returns the names of every known check in report order.
func Names() []string {
	out := make([]string, len(registry))
	for i, d := range registry {
		out[i] = string(d.kind)
	}
	return out
}

// Defaults returns the checks enabled when nothing is configured.
func Defaults() Selection {
	s := make(Selection)
	for _, d := range registry {
		if d.enabled {
			s[d.kind] = true
		}
	}
	return s
}

// Selection is the set of checks to run.
type Selection map[report.Kind]bool

// Has reports whether kind is selected.
func (s Selection) Has(kind report.Kind) bool { return s[kind] }

// Select starts from the defaults, applies configured overrides, then
// removes disabled and adds enabled checks. The name "all" stands for every check.
func Select(configured map[string]bool, enable, disable []string) (Selection, error) {
	s := Defaults()
	names := make([]string, 0, len(configured))
	for name := range configured {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		kinds, err := resolve(name)
		if err != nil {
			return nil, err
		}
		for _, k := range kinds {
			s[k] = configured[name]
		}
	}
	for _, name := range disable {
		kinds, err := resolve(name)
		if err != nil {
			return nil, err
		}
		for _, k := range kinds {
			delete(s, k)
		}
	}
	for _, name := range enable {
		kinds, err := resolve(name)
		if err != nil {
			return nil, err
		}
		for _, k := range kinds {
			s[k] = true
		}
	}
	for k, on := range s {
		if !on {
			delete(s, k)
		}
	}
	return s, nil
}

func resolve(name string) ([]report.Kind, error) {
	name = strings.TrimSpace(name)
	if name == All {
		out := make([]report.Kind, len(registry))
		for i, d := range registry {
			out[i] = d.kind
		}
		return out, nil
	}
	for _, d := range registry {
		if string(d.kind) == name {
			return []report.Kind{d.kind}, nil
		}
	}
	return nil, fmt.Errorf("check: unknown check %q (valid: %s, %s)", name, strings.Join(Names(), ", "), All)
}

// Options controls a check run.
type Options struct {
	Selection Selection
	// Strict promotes warnings to errors.
	Strict bool
	// Bibliography enables the missing-citations check.
	Bibliography bool
	Logger       *slog.Logger
}

// Run executes the selected checks in report order and adds their findings
// to f. It reports true when no error was found and, in strict mode, no
// warning either.
func Run(ctx context.Context, r index.Reader, f *report.Formatter, opts Options) (bool, error) {
	if opts.Selection == nil {
		opts.Selection = Defaults()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var hasError, hasWarning bool
	for _, d := range registry {
		if !opts.Selection.Has(d.kind) {
			continue
		}
		msgs, err := d.run(ctx, r, opts)
		if err != nil {
			return false, fmt.Errorf("check: %s: %w", d.kind, err)
		}
		if len(msgs) == 0 {
			continue
		}
		logger.Info("check findings", slog.String("check", string(d.kind)), slog.Int("count", len(msgs)))
		if d.kind.Severity() == report.Error {
			hasError = true
		} else {
			hasWarning = true
		}
		f.Add(msgs...)
	}
	return !hasError && (!opts.Strict || !hasWarning), nil
}

func noteRef(n models.Note) report.Note {
	return report.Note{ID: n.ID, Title: n.Title, Filename: n.Filename}
}

func noteMessages(kind report.Kind, notes []models.Note) []report.Message {
	out := make([]report.Message, 0, len(notes))
	for _, n := range notes {
		out = append(out, report.NoteMessage(kind, noteRef(n)))
	}
	return out
}

func invalidLinks(ctx context.Context, r index.Reader, _ Options) ([]report.Message, error) {
	links, err := r.InvalidLinks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]report.Message, 0, len(links))
	for _, l := range links {
		out = append(out, report.Message{
			Kind:   report.InvalidLink,
			Notes:  []report.Note{noteRef(l.Src)},
			Target: l.Dest,
		})
	}
	return out, nil
}

func emptyLinks(ctx context.Context, r index.Reader, _ Options) ([]report.Message, error) {
	notes, err := r.NotesWithEmptyLinks(ctx)
	if err != nil {
		return nil, err
	}
	return noteMessages(report.EmptyLinkTarget, notes), nil
}

func isolatedNotes(ctx context.Context, r index.Reader, _ Options) ([]report.Message, error) {
	notes, err := r.IsolatedNotes(ctx)
	if err != nil {
		return nil, err
	}
	return noteMessages(report.IsolatedNote, notes), nil
}

func missingCitations(ctx context.Context, r index.Reader, opts Options) ([]report.Message, error) {
	if !opts.Bibliography {
		return nil, nil
	}
	notes, err := r.UncitedNotes(ctx)
	if err != nil {
		return nil, err
	}
	return noteMessages(report.MissingCitations, notes), nil
}

func cycles(ctx context.Context, r index.Reader, _ Options) ([]report.Message, error) {
	ids, err := r.NoteIDs(ctx)
	if err != nil {
		return nil, err
	}
	links, err := r.ValidLinks(ctx)
	if err != nil {
		return nil, err
	}
	onCycle := graph.FromLinks(ids, links, false).CycleNodes()
	if len(onCycle) == 0 {
		return nil, nil
	}
	notes, err := r.NotesByIDs(ctx, onCycle)
	if err != nil {
		return nil, err
	}
	return noteMessages(report.GraphCycle, notes), nil
}
