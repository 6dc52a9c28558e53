package dom

import (
	"errors"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoMatch is returned when a selector matches nothing in a document.
var ErrNoMatch = errors.New("selector matched no element")

type selectionNode struct {
	sel *goquery.Selection
}

// FromSelection wraps the first element of a goquery selection.
func FromSelection(sel *goquery.Selection) Node {
	return selectionNode{sel: sel.First()}
}

// Find returns the first element of doc matching selector.
func Find(doc *goquery.Document, selector string) (Node, error) {
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	return FromSelection(sel), nil
}

// Parse reads an HTML document and returns the first element matching
// selector.
func Parse(r io.Reader, selector string) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return Find(doc, selector)
}

func (n selectionNode) Tag() string {
	return n.sel.AttrOr("class", "")
}

func (n selectionNode) Text() string {
	return n.sel.Text()
}

func (n selectionNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n selectionNode) Children(kind ChildKind) []Node {
	var sel *goquery.Selection
	switch kind {
	case Groups:
		sel = n.sel.Children()
	case Spans, SubSpans:
		sel = n.sel.ChildrenFiltered("span")
	case TableSpans:
		sel = n.sel.Find("td > span")
	default:
		return nil
	}

	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, selectionNode{sel: s})
	})
	return nodes
}
