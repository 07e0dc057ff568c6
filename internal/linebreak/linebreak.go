// Package linebreak implements the structural pass: every top-level HTML/JSX
// block ends up on its own lines with exactly one blank line before and after
// it, so a Markdown parser no longer folds tags into neighbouring paragraphs.
package linebreak

import (
	"bytes"
	"fmt"

	"github.com/dgallion1/mdxprep/internal/doctree"
)

// Stats counts what the pass changed.
type Stats struct {
	// Split is the number of paragraphs and HTML blocks broken apart.
	Split int `json:"split"`
	// Separators is the number of blank lines inserted.
	Separators int `json:"separators"`
}

// inlineVoid tags stay inside a paragraph even when they fill a line.
var inlineVoid = map[string]bool{"br": true, "wbr": true, "img": true}

// Insert rewrites doc in place. Only direct children of the document are
// touched; HTML nested in lists, blockquotes and code is left alone.
func Insert(doc *doctree.Document) (Stats, error) {
	var stats Stats
	root := doc.Root

	for i := 0; i < len(root.Children); i++ {
		n := root.Children[i]
		if n.Parent != root {
			return stats, fmt.Errorf("%w: %s at %s has no parent", doctree.ErrStructure, n.Kind, n.Pos)
		}
		var parts []*doctree.Node
		switch {
		case n.Kind == doctree.KindParagraph:
			parts = splitParagraph(n)
		case n.Kind == doctree.KindHTMLBlock && !n.Opaque:
			parts = splitHTMLBlock(n)
		}
		if len(parts) > 1 {
			root.ReplaceChildren(i, i+1, parts...)
			stats.Split++
			i += len(parts) - 1
		}
	}

	for i := 0; i < len(root.Children); i++ {
		if root.Children[i].Kind != doctree.KindHTMLBlock {
			continue
		}
		if i > 0 && !isSeparator(root.Children[i-1]) {
			insertSeparator(root, i)
			stats.Separators++
			i++
		}
		if i+1 < len(root.Children) && !isSeparator(root.Children[i+1]) {
			insertSeparator(root, i+1)
			stats.Separators++
		}
	}

	collapseSeparators(root)
	return stats, doctree.CheckParents(root)
}

func isSeparator(n *doctree.Node) bool {
	return n.Kind == doctree.KindSeparator
}

// insertSeparator puts a blank line before position i. The node before it
// must end its line first; only the last line of a file can lack a newline.
func insertSeparator(root *doctree.Node, i int) {
	sep := doctree.NewSeparator()
	prev := root.Children[i-1]
	sep.Pos = doctree.Advance(prev.Pos, prev.Render())
	if !bytes.HasSuffix(prev.Render(), []byte("\n")) {
		sep.Literal = []byte("\n\n")
	}
	root.InsertChildren(i, sep)
}

// collapseSeparators merges runs of adjacent separators into one node. The
// bytes are kept; only the node count changes.
func collapseSeparators(root *doctree.Node) {
	for i := 1; i < len(root.Children); i++ {
		prev, cur := root.Children[i-1], root.Children[i]
		if isSeparator(prev) && isSeparator(cur) {
			merged := doctree.NewNode(doctree.KindSeparator, append(prev.Render(), cur.Render()...))
			merged.Pos = prev.Pos
			root.ReplaceChildren(i-1, i+1, merged)
			i--
		}
	}
}
