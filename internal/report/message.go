// Package report collects diagnostics from the build and the checks and
// prints them grouped by kind.
package report

import (
	"encoding/json"
	"fmt"
)

// Severity classifies a message.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Kind names a diagnostic.
type Kind string

const (
	DuplicateNoteID  Kind = "duplicate-note-id"
	InvalidLink      Kind = "invalid-link"
	EmptyLinkTarget  Kind = "empty-link-target"
	GraphCycle       Kind = "graph-cycle"
	IsolatedNote     Kind = "isolated-note"
	MissingCitations Kind = "missing-citations"
)

// Kinds lists every kind in report order.
var Kinds = []Kind{DuplicateNoteID, InvalidLink, EmptyLinkTarget, GraphCycle, IsolatedNote, MissingCitations}

var descriptions = map[Kind]string{
	DuplicateNoteID:  "Duplicate note ID",
	InvalidLink:      "Invalid link",
	EmptyLinkTarget:  "Empty link target",
	GraphCycle:       "Cycle in the note graph",
	IsolatedNote:     "Isolated note",
	MissingCitations: "Note without citations",
}

// Severity returns the severity of the kind before strict promotion.
func (k Kind) Severity() Severity {
	switch k {
	case DuplicateNoteID, InvalidLink:
		return Error
	default:
		return Warning
	}
}

// Description returns the section header text of the kind.
func (k Kind) Description() string {
	if d, ok := descriptions[k]; ok {
		return d
	}
	return string(k)
}

// Note identifies a note in a message.
type Note struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
}

func (n Note) String() string {
	return fmt.Sprintf("#%d %s (%s)", n.ID, n.Title, n.Filename)
}

// Message is one diagnostic. Notes are the rows printed for it.
type Message struct {
	Kind  Kind
	Notes []Note
	// Target is the missing destination of an invalid link.
	Target int
}

// NoteMessage builds a message about a single note.
func NoteMessage(kind Kind, n Note) Message {
	return Message{Kind: kind, Notes: []Note{n}}
}

type envelope struct {
	Name  Kind            `json:"name"`
	Value json.RawMessage `json:"value"`
}

type duplicateValue struct {
	ID    int    `json:"id"`
	Notes []Note `json:"notes"`
}

type invalidLinkValue struct {
	Note   Note `json:"note"`
	Target int  `json:"target"`
}

// UnmarshalJSON decodes the {"name": ..., "value": ...} envelope written by the converter filter.
func (m *Message) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	m.Kind = env.Name
	switch env.Name {
	case DuplicateNoteID:
		var v duplicateValue
		if err := json.Unmarshal(env.Value, &v); err != nil {
			return fmt.Errorf("report: decode %s: %w", env.Name, err)
		}
		for i := range v.Notes {
			v.Notes[i].ID = v.ID
		}
		m.Notes = v.Notes
	case InvalidLink:
		var v invalidLinkValue
		if err := json.Unmarshal(env.Value, &v); err != nil {
			return fmt.Errorf("report: decode %s: %w", env.Name, err)
		}
		m.Notes = []Note{v.Note}
		m.Target = v.Target
	default:
		var n Note
		if err := json.Unmarshal(env.Value, &n); err != nil {
			return fmt.Errorf("report: decode %s: %w", env.Name, err)
		}
		m.Notes = []Note{n}
	}
	return nil
}

// MarshalJSON encodes the message in the same envelope UnmarshalJSON reads.
func (m Message) MarshalJSON() ([]byte, error) {
	var value any
	switch m.Kind {
	case DuplicateNoteID:
		v := duplicateValue{Notes: m.Notes}
		if len(m.Notes) > 0 {
			v.ID = m.Notes[0].ID
		}
		value = v
	case InvalidLink:
		var n Note
		if len(m.Notes) > 0 {
			n = m.Notes[0]
		}
		value = invalidLinkValue{Note: n, Target: m.Target}
	default:
		var n Note
		if len(m.Notes) > 0 {
			n = m.Notes[0]
		}
		value = n
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Name: m.Kind, Value: raw})
}
