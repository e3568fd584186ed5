package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeMessages(t *testing.T) {
	raw := `[
		{"name":"duplicate-note-id","value":{"id":1,"notes":[{"title":"A","filename":"a.md"},{"title":"B","filename":"b.md"}]}},
		{"name":"empty-link-target","value":{"id":2,"title":"C","filename":"c.md"}},
		{"name":"invalid-link","value":{"note":{"id":3,"title":"D","filename":"d.md"},"target":9}}
	]`
	var msgs []Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msgs))
	require.Len(t, msgs, 3)

	require.Equal(t, DuplicateNoteID, msgs[0].Kind)
	require.Equal(t, []Note{{ID: 1, Title: "A", Filename: "a.md"}, {ID: 1, Title: "B", Filename: "b.md"}}, msgs[0].Notes)
	require.Equal(t, []Note{{ID: 2, Title: "C", Filename: "c.md"}}, msgs[1].Notes)
	require.Equal(t, 9, msgs[2].Target)
	require.Equal(t, 3, msgs[2].Notes[0].ID)
}

func TestEncodeDecodeDuplicate(t *testing.T) {
	in := Message{Kind: DuplicateNoteID, Notes: []Note{{ID: 4, Title: "X", Filename: "x.md"}, {ID: 4, Title: "Y", Filename: "y.md"}}}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	require.Contains(t, string(data), `"name":"duplicate-note-id"`)

	var out Message
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, in, out)
}

func TestFormat(t *testing.T) {
	f := New(WithoutColor())
	f.Add(
		NoteMessage(IsolatedNote, Note{ID: 5, Title: "Alone", Filename: "a.md"}),
		NoteMessage(IsolatedNote, Note{ID: 5, Title: "Alone", Filename: "a.md"}),
		Message{Kind: InvalidLink, Notes: []Note{{ID: 1, Title: "Src", Filename: "s.md"}}, Target: 9},
	)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf))
	want := "error: Invalid link\n" +
		"  #1 Src (s.md)\n" +
		"\n" +
		"warning: Isolated note\n" +
		"  #5 Alone (a.md)\n" +
		"\n" +
		ClosingLine + "\n"
	require.Equal(t, want, buf.String())
	require.True(t, f.HasErrors())
}

func TestFormatWarningsOnly(t *testing.T) {
	f := New(WithoutColor())
	f.Add(NoteMessage(EmptyLinkTarget, Note{ID: 2, Title: "Two", Filename: "t.md"}))

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf))
	require.Equal(t, "warning: Empty link target\n  #2 Two (t.md)\n\n", buf.String())
	require.False(t, f.HasErrors())
}

func TestStrictPromotesWarnings(t *testing.T) {
	f := New(WithoutColor(), WithStrict(true))
	f.Add(NoteMessage(EmptyLinkTarget, Note{ID: 2, Title: "Two", Filename: "t.md"}))

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf))
	require.Equal(t, "error: Empty link target\n  #2 Two (t.md)\n\n"+ClosingLine+"\n", buf.String())
	require.True(t, f.HasErrors())
}

func TestFormatEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(WithoutColor()).Format(&buf))
	require.Empty(t, buf.String())
}

func TestFilterKeepsErrors(t *testing.T) {
	f := New(WithoutColor(), WithFilter(func(Kind) bool { return false }))
	f.Add(
		NoteMessage(EmptyLinkTarget, Note{ID: 1}),
		Message{Kind: DuplicateNoteID, Notes: []Note{{ID: 1}}},
	)
	msgs := f.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, DuplicateNoteID, msgs[0].Kind)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "messages.json")
	require.NoError(t, os.WriteFile(p, []byte(`[{"name":"empty-link-target","value":{"id":1,"title":"T","filename":"f.md"}}]`), 0o644))

	f := New()
	hasErrors, err := f.LoadFile(p)
	require.NoError(t, err)
	require.False(t, hasErrors)
	require.Equal(t, 1, f.Len())

	require.NoError(t, os.WriteFile(p, []byte(`[{"name":"duplicate-note-id","value":{"id":1,"notes":[]}}]`), 0o644))
	hasErrors, err = f.LoadFile(p)
	require.NoError(t, err)
	require.True(t, hasErrors)

	hasErrors, err = f.LoadFile(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	require.False(t, hasErrors)

	require.NoError(t, os.WriteFile(p, []byte(`not json`), 0o644))
	_, err = f.LoadFile(p)
	require.Error(t, err)
}

func TestConcurrentAdd(t *testing.T) {
	f := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			f.Add(NoteMessage(IsolatedNote, Note{ID: id}))
		}(i)
	}
	wg.Wait()
	require.Equal(t, 20, f.Len())
}
