package dom

import "strings"

// Element is an in-memory Node for building chapter fixtures without a
// document. An element holds either text or children.
type Element struct {
	Name    string
	Class   string
	Content string
	Attrs   map[string]string
	Kids    []*Element
}

// Div returns a div element with the given class and children.
func Div(class string, kids ...*Element) *Element {
	return &Element{Name: "div", Class: class, Kids: kids}
}

// Span returns a span element with the given class and children.
func Span(class string, kids ...*Element) *Element {
	return &Element{Name: "span", Class: class, Kids: kids}
}

// TextSpan returns a span element holding only text.
func TextSpan(class, text string) *Element {
	return &Element{Name: "span", Class: class, Content: text}
}

// Cell returns a table cell holding the given spans.
func Cell(kids ...*Element) *Element {
	return &Element{Name: "td", Kids: kids}
}

// Row returns a table row holding the given cells.
func Row(cells ...*Element) *Element {
	return &Element{Name: "tr", Kids: cells}
}

// WithAttr sets an attribute and returns the element for chaining.
func (e *Element) WithAttr(name, value string) *Element {
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	e.Attrs[name] = value
	return e
}

// WithRef sets the verse reference attribute.
func (e *Element) WithRef(ref string) *Element {
	return e.WithAttr(RefAttr, ref)
}

func (e *Element) Tag() string {
	return e.Class
}

func (e *Element) Text() string {
	if len(e.Kids) == 0 {
		return e.Content
	}
	var b strings.Builder
	b.WriteString(e.Content)
	for _, kid := range e.Kids {
		b.WriteString(kid.Text())
	}
	return b.String()
}

func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

func (e *Element) Children(kind ChildKind) []Node {
	var nodes []Node
	switch kind {
	case Groups:
		for _, kid := range e.Kids {
			nodes = append(nodes, kid)
		}
	case Spans, SubSpans:
		for _, kid := range e.Kids {
			if kid.Name == "span" {
				nodes = append(nodes, kid)
			}
		}
	case TableSpans:
		e.collectCellSpans(&nodes, false)
	}
	return nodes
}

func (e *Element) collectCellSpans(nodes *[]Node, inCell bool) {
	for _, kid := range e.Kids {
		if inCell && kid.Name == "span" {
			*nodes = append(*nodes, kid)
			continue
		}
		kid.collectCellSpans(nodes, kid.Name == "td")
	}
}
