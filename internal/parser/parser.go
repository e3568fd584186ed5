// Package parser implements the note grammar: level-1 headings, hashtags and link targets.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/slipbox/internal/models"
)

var (
	headingRe   = regexp.MustCompile(`^\s*(\d+)\s+(.+?)\s*$`)
	hashtagRe   = regexp.MustCompile(`^#+[-_a-zA-Z0-9]+`)
	targetRe    = regexp.MustCompile(`^#(\d+)$`)
	referenceRe = regexp.MustCompile(`^ref-.+$`)
)

// Heading is a parsed note heading.
type Heading struct {
	ID    int
	Title string
}

// ParseHeading parses the text of a level-1 heading of the form "<id> <title>".
// Headings whose id is not a non-negative decimal integer are rejected.
func ParseHeading(text string) (Heading, bool) {
	m := headingRe.FindStringSubmatch(text)
	if m == nil {
		return Heading{}, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id < 0 {
		return Heading{}, false
	}
	return Heading{ID: id, Title: m[2]}, true
}

// ParseID parses a note id column. Only non-negative decimal integers are accepted.
func ParseID(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, false
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return id, true
}

// NormalizeTag returns the hashtag prefix of text with trailing punctuation removed.
// "#tag." yields "#tag"; text that does not start with a hashtag yields false.
func NormalizeTag(text string) (string, bool) {
	tag := hashtagRe.FindString(strings.TrimSpace(text))
	if tag == "" {
		return "", false
	}
	return tag, true
}

// ParseLinkTarget parses an anchor target of the form "#<id>".
// The empty target maps to models.EmptyTarget.
func ParseLinkTarget(target string) (int, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		return models.EmptyTarget, true
	}
	m := targetRe.FindStringSubmatch(target)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// ParseDest parses the dest column of links.csv: a note id or the empty-target sentinel.
func ParseDest(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil && n < 0 {
		return models.EmptyTarget, true
	}
	return ParseID(s)
}

// IsReferenceKey reports whether key is a bibliography key ("ref-<name>").
func IsReferenceKey(key string) bool {
	return referenceRe.MatchString(key)
}
