// Package dom exposes the narrow view of rendered chapter markup that the
// chapter parser needs: a class tag, text, attributes and children of a few
// structural kinds. Real pages are adapted from goquery selections; tests
// build the same shapes from Element fixtures.
package dom

// ChildKind selects which children of a node are returned.
type ChildKind int

const (
	// Groups are the immediate element children of a chapter container.
	Groups ChildKind = iota
	// Spans are the direct span children of a group.
	Spans
	// TableSpans are the spans nested in the cells of a table group.
	TableSpans
	// SubSpans are the direct span children of a span.
	SubSpans
)

// RefAttr is the attribute carrying a verse reference.
const RefAttr = "data-usfm"

// Node is one element of rendered chapter markup.
type Node interface {
	// Tag returns the raw class attribute used for classification.
	Tag() string
	// Text returns the rendered text of the node and its descendants.
	Text() string
	// Attr returns the value of an attribute and whether it is present.
	Attr(name string) (string, bool)
	// Children returns the children of the requested kind in document order.
	Children(kind ChildKind) []Node
}
