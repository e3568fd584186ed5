package check

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/slipbox/internal/models"
	"github.com/starford/slipbox/internal/report"
	"github.com/starford/slipbox/internal/testutil"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		configured map[string]bool
		enable     []string
		disable    []string
		want       Selection
	}{
		{
			name: "defaults",
			want: Selection{report.InvalidLink: true, report.EmptyLinkTarget: true, report.IsolatedNote: true, report.MissingCitations: true},
		},
		{
			name:    "disable then enable",
			disable: []string{"isolated-note", "missing-citations"},
			enable:  []string{"graph-cycle"},
			want:    Selection{report.InvalidLink: true, report.EmptyLinkTarget: true, report.GraphCycle: true},
		},
		{
			name:    "enable wins over disable",
			disable: []string{All},
			enable:  []string{"invalid-link"},
			want:    Selection{report.InvalidLink: true},
		},
		{
			name:       "configured overrides defaults",
			configured: map[string]bool{"graph-cycle": true, "empty-link-target": false},
			want:       Selection{report.InvalidLink: true, report.GraphCycle: true, report.IsolatedNote: true, report.MissingCitations: true},
		},
		{
			name:   "all",
			enable: []string{All},
			want:   Selection{report.InvalidLink: true, report.EmptyLinkTarget: true, report.GraphCycle: true, report.IsolatedNote: true, report.MissingCitations: true},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Select(tc.configured, tc.enable, tc.disable)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSelectUnknown(t *testing.T) {
	_, err := Select(nil, []string{"spelling"}, nil)
	require.ErrorContains(t, err, `unknown check "spelling"`)
}

func TestRunCleanIndex(t *testing.T) {
	db := testutil.TestDB(t)
	testutil.Seed(t, db).
		Notes("a.md", models.Note{ID: 1, Title: "One"}, models.Note{ID: 2, Title: "Two"}).
		Links(models.Link{Src: 1, Dest: 2})

	f := report.New(report.WithoutColor())
	clean, err := Run(context.Background(), db, f, Options{Strict: true, Logger: testutil.DiscardLogger()})
	require.NoError(t, err)
	require.True(t, clean)
	require.Zero(t, f.Len())
}

func TestRunInvalidLink(t *testing.T) {
	db := testutil.TestDB(t)
	testutil.Seed(t, db).
		Notes("a.md", models.Note{ID: 1, Title: "One"}, models.Note{ID: 2, Title: "Two"}).
		Links(models.Link{Src: 1, Dest: 2}, models.Link{Src: 1, Dest: 9})

	f := report.New(report.WithoutColor())
	clean, err := Run(context.Background(), db, f, Options{Logger: testutil.DiscardLogger()})
	require.NoError(t, err)
	require.False(t, clean)

	msgs := f.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, report.InvalidLink, msgs[0].Kind)
	require.Equal(t, 9, msgs[0].Target)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf))
	require.Equal(t, "error: Invalid link\n  #1 One (a.md)\n\n"+report.ClosingLine+"\n", buf.String())
}

func TestRunWarningsRespectStrict(t *testing.T) {
	db := testutil.TestDB(t)
	testutil.Seed(t, db).
		Notes("a.md", models.Note{ID: 1, Title: "One"}, models.Note{ID: 2, Title: "Two"}, models.Note{ID: 3, Title: "Alone"}).
		Links(models.Link{Src: 1, Dest: 2}, models.Link{Src: 2, Dest: models.EmptyTarget})

	ctx := context.Background()
	f := report.New(report.WithoutColor())
	clean, err := Run(ctx, db, f, Options{Logger: testutil.DiscardLogger()})
	require.NoError(t, err)
	require.True(t, clean)

	kinds := map[report.Kind][]int{}
	for _, m := range f.Messages() {
		kinds[m.Kind] = append(kinds[m.Kind], m.Notes[0].ID)
	}
	require.Equal(t, map[report.Kind][]int{
		report.EmptyLinkTarget: {2},
		report.IsolatedNote:    {3},
	}, kinds)

	strict := report.New(report.WithoutColor(), report.WithStrict(true))
	clean, err = Run(ctx, db, strict, Options{Strict: true, Logger: testutil.DiscardLogger()})
	require.NoError(t, err)
	require.False(t, clean)
	require.True(t, strict.HasErrors())
}

func TestRunMissingCitationsNeedsBibliography(t *testing.T) {
	db := testutil.TestDB(t)
	testutil.Seed(t, db).
		Notes("a.md", models.Note{ID: 1, Title: "Cited"}, models.Note{ID: 2, Title: "Uncited"}).
		Links(models.Link{Src: 1, Dest: 2}).
		Reference("ref-knuth", "<p>Knuth</p>", 1)

	ctx := context.Background()
	sel := Selection{report.MissingCitations: true}

	f := report.New()
	_, err := Run(ctx, db, f, Options{Selection: sel, Logger: testutil.DiscardLogger()})
	require.NoError(t, err)
	require.Zero(t, f.Len())

	_, err = Run(ctx, db, f, Options{Selection: sel, Bibliography: true, Logger: testutil.DiscardLogger()})
	require.NoError(t, err)
	msgs := f.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, 2, msgs[0].Notes[0].ID)
}

func TestRunGraphCycle(t *testing.T) {
	db := testutil.TestDB(t)
	testutil.Seed(t, db).
		Notes("a.md",
			models.Note{ID: 1, Title: "A"}, models.Note{ID: 2, Title: "B"},
			models.Note{ID: 3, Title: "C"}, models.Note{ID: 4, Title: "D"}).
		Links(
			models.Link{Src: 1, Dest: 2},
			models.Link{Src: 2, Dest: 3},
			models.Link{Src: 3, Dest: 1, Direction: models.Backward},
			models.Link{Src: 3, Dest: 4},
		)

	ctx := context.Background()
	f := report.New()
	clean, err := Run(ctx, db, f, Options{Logger: testutil.DiscardLogger()})
	require.NoError(t, err)
	require.True(t, clean)
	require.Zero(t, f.Len(), "graph-cycle is off by default")

	sel, err := Select(nil, []string{"graph-cycle"}, nil)
	require.NoError(t, err)
	clean, err = Run(ctx, db, f, Options{Selection: sel, Logger: testutil.DiscardLogger()})
	require.NoError(t, err)
	require.True(t, clean)

	var ids []int
	for _, m := range f.Messages() {
		require.Equal(t, report.GraphCycle, m.Kind)
		ids = append(ids, m.Notes[0].ID)
	}
	require.Equal(t, []int{1, 2, 3}, ids)
}
