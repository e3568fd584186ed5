package parser

import (
	"testing"

	"github.com/starford/slipbox/internal/models"
)

func TestParseHeading(t *testing.T) {
	cases := []struct {
		in    string
		id    int
		title string
		ok    bool
	}{
		{"0 Test", 0, "Test", true},
		{"  12   Spaced title  ", 12, "Spaced title", true},
		{"1e1 Bad", 0, "", false},
		{"-1 Negative", 0, "", false},
		{"Title only", 0, "", false},
		{"3", 0, "", false},
	}
	for _, tc := range cases {
		h, ok := ParseHeading(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseHeading(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && (h.ID != tc.id || h.Title != tc.title) {
			t.Errorf("ParseHeading(%q) = %+v", tc.in, h)
		}
	}
}

func TestNormalizeTag_StripsTrailingPunctuation(t *testing.T) {
	cases := map[string]string{
		"#tag.":     "#tag",
		"#tags.":    "#tags",
		"#0.":       "#0",
		"##nested,": "##nested",
		"#a-b_c!":   "#a-b_c",
	}
	for in, want := range cases {
		got, ok := NormalizeTag(in)
		if !ok || got != want {
			t.Errorf("NormalizeTag(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	for _, in := range []string{"tag", "#", "#.", ""} {
		if _, ok := NormalizeTag(in); ok {
			t.Errorf("NormalizeTag(%q) should fail", in)
		}
	}
}

func TestParseLinkTarget(t *testing.T) {
	if id, ok := ParseLinkTarget("#42"); !ok || id != 42 {
		t.Errorf("ParseLinkTarget(#42) = %d, %v", id, ok)
	}
	if id, ok := ParseLinkTarget(""); !ok || id != models.EmptyTarget {
		t.Errorf("empty target = %d, %v", id, ok)
	}
	for _, in := range []string{"#abc", "42", "http://example.com", "#4 2"} {
		if _, ok := ParseLinkTarget(in); ok {
			t.Errorf("ParseLinkTarget(%q) should fail", in)
		}
	}
}

func TestParseDest(t *testing.T) {
	if d, ok := ParseDest("-1"); !ok || d != models.EmptyTarget {
		t.Errorf("ParseDest(-1) = %d, %v", d, ok)
	}
	if d, ok := ParseDest("7"); !ok || d != 7 {
		t.Errorf("ParseDest(7) = %d, %v", d, ok)
	}
	if _, ok := ParseDest("x"); ok {
		t.Error("ParseDest(x) should fail")
	}
}

func TestParseID_RejectsNonDecimal(t *testing.T) {
	for _, in := range []string{"1e1", "+3", " ", "0x1"} {
		if _, ok := ParseID(in); ok {
			t.Errorf("ParseID(%q) should fail", in)
		}
	}
}

func TestIsReferenceKey(t *testing.T) {
	if !IsReferenceKey("ref-knuth") {
		t.Error("ref-knuth should be a reference key")
	}
	if IsReferenceKey("knuth") || IsReferenceKey("ref-") {
		t.Error("unexpected reference key match")
	}
}
