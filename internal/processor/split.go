package processor

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/slipbox/internal/parser"
)

// Section is the outer HTML of a converter section keyed by note id.
type Section struct {
	ID   int
	HTML string
}

// SplitSections returns every <section> whose id attribute is a decimal
// integer, in document order. Other sections are skipped but still searched
// for nested note sections.
func SplitSections(r io.Reader) ([]Section, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("processor: parse html: %w", err)
	}
	var out []Section
	var walk func(n *html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode && n.DataAtom == atom.Section {
			if id, ok := parser.ParseID(attr(n, "id")); ok {
				var buf bytes.Buffer
				if err := html.Render(&buf, n); err != nil {
					return fmt.Errorf("processor: render section %d: %w", id, err)
				}
				out = append(out, Section{ID: id, HTML: buf.String()})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc); err != nil {
		return nil, err
	}
	return out, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}
