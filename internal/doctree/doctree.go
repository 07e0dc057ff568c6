// Package doctree is the tree model shared by the parser and both rewrite
// passes. Every block node covers whole source lines and every tiled
// container covers its range with contiguous children, so an untouched tree
// renders back to the exact source bytes.
package doctree

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrStructure reports a violated tree invariant. It always indicates a bug
// in a pass, never a problem with user input.
var ErrStructure = errors.New("doctree: structural inconsistency")

// Kind identifies the variant of a Node.
type Kind int

const (
	KindDocument Kind = iota
	KindParagraph
	KindHeading
	KindList
	KindListItem
	KindBlockquote
	KindCode
	KindTable
	KindHTMLBlock
	KindHTMLInline
	KindText
	KindEmphasis
	KindStrong
	KindDelete
	KindCodeSpan
	KindLink
	KindImage
	KindHardBreak
	KindThematicBreak
	KindSeparator
	KindRaw
)

var kindNames = [...]string{
	KindDocument:      "Document",
	KindParagraph:     "Paragraph",
	KindHeading:       "Heading",
	KindList:          "List",
	KindListItem:      "ListItem",
	KindBlockquote:    "Blockquote",
	KindCode:          "Code",
	KindTable:         "Table",
	KindHTMLBlock:     "HTMLBlock",
	KindHTMLInline:    "HTMLInline",
	KindText:          "Text",
	KindEmphasis:      "Emphasis",
	KindStrong:        "Strong",
	KindDelete:        "Delete",
	KindCodeSpan:      "CodeSpan",
	KindLink:          "Link",
	KindImage:         "Image",
	KindHardBreak:     "HardBreak",
	KindThematicBreak: "ThematicBreak",
	KindSeparator:     "Separator",
	KindRaw:           "Raw",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsHTML reports whether k is one of the two HTML node kinds.
func (k Kind) IsHTML() bool {
	return k == KindHTMLBlock || k == KindHTMLInline
}

// Span is a 1-based source position. It is only used for diagnostics.
type Span struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// Node is a single element of the tree.
type Node struct {
	Kind     Kind
	Parent   *Node
	Children []*Node

	// Literal holds the source bytes the node was parsed from, or the
	// replacement text for nodes produced by a pass.
	Literal []byte
	Pos     Span

	// Tag is set on HTMLInline tiles that hold a single tag.
	Tag *HTMLTag
	// Level is the heading level for KindHeading.
	Level int
	// Opaque marks nodes whose content must never be tokenized or split
	// (raw-text HTML blocks such as <pre>, <script> and comments).
	Opaque bool

	modified bool
}

// NewNode returns a detached node holding a copy of literal.
func NewNode(kind Kind, literal []byte) *Node {
	return &Node{Kind: kind, Literal: bytes.Clone(literal)}
}

// NewSeparator returns a blank-line separator.
func NewSeparator() *Node {
	return &Node{Kind: KindSeparator, Literal: []byte("\n")}
}

// Modified reports whether the node's children were changed by a pass.
func (n *Node) Modified() bool { return n.modified }

// MarkModified flags n and all of its ancestors so they render from their
// children instead of their original literal.
func (n *Node) MarkModified() {
	for p := n; p != nil; p = p.Parent {
		p.modified = true
	}
}

// Index returns the position of n among its parent's children, or -1 when
// n is detached or its parent does not list it.
func (n *Node) Index() int {
	if n.Parent == nil {
		return -1
	}
	for i, c := range n.Parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// Prev returns the previous sibling or nil.
func (n *Node) Prev() *Node {
	i := n.Index()
	if i <= 0 {
		return nil
	}
	return n.Parent.Children[i-1]
}

// Next returns the next sibling or nil.
func (n *Node) Next() *Node {
	i := n.Index()
	if i < 0 || i+1 >= len(n.Parent.Children) {
		return nil
	}
	return n.Parent.Children[i+1]
}

// AppendChild attaches c as the last child of n without marking n modified.
// It is meant for tree construction.
func (n *Node) AppendChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// InsertChildren inserts nodes before position i.
func (n *Node) InsertChildren(i int, nodes ...*Node) {
	for _, c := range nodes {
		c.Parent = n
	}
	n.Children = append(n.Children[:i], append(append([]*Node(nil), nodes...), n.Children[i:]...)...)
	n.MarkModified()
}

// ReplaceChildren replaces children[i:j] with nodes.
func (n *Node) ReplaceChildren(i, j int, nodes ...*Node) {
	for _, c := range nodes {
		c.Parent = n
	}
	tail := append([]*Node(nil), n.Children[j:]...)
	n.Children = append(append(n.Children[:i], nodes...), tail...)
	if len(n.Children) == 0 {
		// An emptied container renders nothing.
		n.Literal = nil
	}
	n.MarkModified()
}

// RemoveChild removes the child at position i.
func (n *Node) RemoveChild(i int) {
	n.Children[i].Parent = nil
	n.ReplaceChildren(i, i+1)
}

// SetLiteral replaces the literal of a leaf and marks it modified.
func (n *Node) SetLiteral(b []byte) {
	n.Literal = b
	n.MarkModified()
}

// Render returns the text of n: its literal when untouched, otherwise the
// concatenation of its children.
func (n *Node) Render() []byte {
	var buf bytes.Buffer
	n.render(&buf)
	return buf.Bytes()
}

func (n *Node) render(buf *bytes.Buffer) {
	if !n.modified || len(n.Children) == 0 {
		buf.Write(n.Literal)
		return
	}
	for _, c := range n.Children {
		c.render(buf)
	}
}

// Document is the root of a parsed Markdown file.
type Document struct {
	// FrontMatter is the verbatim metadata header including its delimiters.
	FrontMatter []byte
	// Meta is the decoded frontmatter, nil when there is none.
	Meta map[string]any
	Root *Node
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Root: &Node{Kind: KindDocument}}
}

// Blocks returns the top-level block nodes.
func (d *Document) Blocks() []*Node {
	return d.Root.Children
}

// Render serializes the document.
func Render(d *Document) []byte {
	var buf bytes.Buffer
	buf.Write(d.FrontMatter)
	for _, c := range d.Root.Children {
		c.render(&buf)
	}
	return buf.Bytes()
}

// CheckParents verifies that every node below root points back at its
// parent.
func CheckParents(root *Node) error {
	var err error
	Walk(root, func(n *Node, entering bool) WalkStatus {
		if !entering {
			return WalkContinue
		}
		for _, c := range n.Children {
			if c.Parent != n {
				err = fmt.Errorf("%w: %s at %s is not attached to its %s parent", ErrStructure, c.Kind, c.Pos, n.Kind)
				return WalkStop
			}
		}
		return WalkContinue
	})
	return err
}
