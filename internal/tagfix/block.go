package tagfix

import (
	"bytes"
	"strings"

	"github.com/dgallion1/mdxprep/internal/doctree"
)

// fixBlocks resolves the tags of all top-level HTML blocks as one scope,
// since an element opened in one block is usually closed in a later one.
func (f *Fixer) fixBlocks(root *doctree.Node, r *Report) {
	m := newMatcher(f.managed)
	for _, b := range root.Children {
		if b.Kind != doctree.KindHTMLBlock || b.Opaque {
			continue
		}
		for _, t := range b.Children {
			if t.Kind == doctree.KindHTMLInline {
				m.add(t)
			}
		}
	}
	if len(m.entries) == 0 {
		return
	}

	// Repairs first, so a pair completed by a synthesized closing tag is
	// converted in the same run.
	for _, e := range m.entries {
		if e.stray && live(e) {
			f.stray(e, r, func() { dropTile(root, e.tile) })
		}
	}

	for _, e := range m.implicit() {
		if !live(e) || !live(e.before) {
			continue
		}
		b := e.before.tile.Parent
		tile := closingTile(e)
		b.InsertChildren(e.before.tile.Index(), tile)
		m.close(e, tile)
		f.repaired(e, r)
	}

	dangling := m.dangling()
	var floor *doctree.Node
	for i := len(dangling) - 1; i >= 0; i-- {
		e := dangling[i]
		if !live(e) {
			continue
		}
		floor = f.closeBlock(root, m, e, floor)
		m.close(e, floor.Children[0])
		f.repaired(e, r)
	}

	// Outer pairs first: a converted fragment takes its inner tags with it.
	for _, e := range m.entries {
		if !live(e) {
			continue
		}
		switch {
		case e.void:
			f.blockVoid(root, e, r)
		case e.match != nil && e.tag.Form == doctree.FormOpen && live(e.match):
			f.blockPair(root, e, e.match, r)
		}
	}
}

// live reports whether the tile of e is still part of the document.
func live(e *entry) bool {
	b := e.tile.Parent
	return b != nil && e.tile.Index() >= 0 && b.Index() >= 0
}

func (f *Fixer) blockVoid(root *doctree.Node, e *entry, r *Report) {
	b := e.tile.Parent
	if f.convertible(e.tag) && alone(b, e.tile) {
		switch e.tag.Name {
		case "hr":
			if len(e.tag.Attrs) == 0 {
				marker := "---"
				if prev := b.Prev(); prev == nil || prev.Kind != doctree.KindSeparator {
					// "---" under text is a setext underline and at the top of
					// a file it opens frontmatter.
					marker = "***"
				}
				replaceBlock(root, b, doctree.KindThematicBreak, marker+lineEnding(b))
				r.record(e, Converted)
				return
			}
		case "img":
			if lit, ok := imageMarkdown(e.tag); ok {
				replaceBlock(root, b, doctree.KindParagraph, lit+lineEnding(b))
				r.record(e, Converted)
				return
			}
		}
	}
	if f.convertible(e.tag) {
		f.skipped(e, r)
	}
	f.normalize(e, r)
}

func (f *Fixer) blockPair(root *doctree.Node, open, close *entry, r *Report) {
	t := open.tag
	if !f.convertible(t) {
		f.unchanged(open, r)
		return
	}
	ok := false
	switch {
	case headingLevels[t.Name] > 0:
		ok = headingBlock(root, open, close)
	case fragmentKinds[t.Name] != 0:
		ok = fragmentBlock(root, open, close)
	}
	if !ok {
		f.skipped(open, r)
		f.unchanged(open, r)
		return
	}
	r.record(open, Converted)
}

// headingBlock converts a block holding exactly <hN>text</hN>.
func headingBlock(root *doctree.Node, open, close *entry) bool {
	b := open.tile.Parent
	if close.tile.Parent != b || len(open.tag.Attrs) > 0 {
		return false
	}
	i, j := open.tile.Index(), close.tile.Index()
	if j != i+2 || !blankTiles(b.Children[:i]) || !blankTiles(b.Children[j+1:]) {
		return false
	}
	text := b.Children[i+1]
	title := strings.TrimSpace(string(text.Literal))
	if text.Kind != doctree.KindText || title == "" || strings.ContainsAny(title, "\r\n") {
		return false
	}
	level := headingLevels[open.tag.Name]
	n := replaceBlock(root, b, doctree.KindHeading, strings.Repeat("#", level)+" "+title+lineEnding(b))
	n.Level = level
	return true
}

// fragmentBlock converts the run of HTML blocks from open to close with
// html-to-markdown.
func fragmentBlock(root *doctree.Node, open, close *entry) bool {
	a, z := open.tile.Parent, close.tile.Parent
	ia, iz := a.Index(), z.Index()
	if ia < 0 || iz < ia {
		return false
	}
	if !blankTiles(a.Children[:open.tile.Index()]) || !blankTiles(z.Children[close.tile.Index()+1:]) {
		return false
	}

	var buf bytes.Buffer
	for _, n := range root.Children[ia : iz+1] {
		if n.Opaque || n.Kind != doctree.KindHTMLBlock && n.Kind != doctree.KindSeparator {
			return false
		}
		buf.Write(n.Render())
	}
	md, ok := convertFragment(open.tag.Name, buf.String())
	if !ok {
		return false
	}

	n := doctree.NewNode(fragmentKinds[open.tag.Name], []byte(md+lineEnding(z)))
	n.Pos = a.Pos
	root.ReplaceChildren(ia, iz+1, n)
	return true
}

// closeBlock synthesizes the closing tag for a dangling opening tag of the
// document scope. The closing tag goes after the last block before the
// first boundary, and never before floor, the closing tag of an element
// nested inside this one.
func (f *Fixer) closeBlock(root *doctree.Node, m *matcher, e *entry, floor *doctree.Node) *doctree.Node {
	start := e.tile.Parent.Index()
	end := len(root.Children)
	for i := start + 1; i < len(root.Children); i++ {
		if isBoundary(root.Children[i], m, e) {
			end = i
			break
		}
	}
	last := end - 1
	for last > start && root.Children[last].Kind == doctree.KindSeparator {
		last--
	}
	if floor != nil {
		last = max(last, floor.Index())
	}

	blk := closingBlock(e)
	prev := root.Children[last]
	sep := doctree.NewSeparator()
	if !bytes.HasSuffix(prev.Render(), []byte("\n")) {
		sep.Literal = []byte("\n\n")
	}
	sep.Pos = doctree.Advance(prev.Pos, prev.Render())
	blk.Pos = doctree.Advance(sep.Pos, sep.Literal)

	nodes := []*doctree.Node{sep, blk}
	if at := last + 1; at < len(root.Children) && root.Children[at].Kind != doctree.KindSeparator {
		nodes = append(nodes, doctree.NewSeparator())
	}
	root.InsertChildren(last+1, nodes...)
	return blk
}

// isBoundary reports whether n ends the content a dangling e may enclose:
// a heading, a thematic break, or an HTML block that starts by opening an
// element of the same or higher precedence or by closing one opened
// before e.
func isBoundary(n *doctree.Node, m *matcher, e *entry) bool {
	switch n.Kind {
	case doctree.KindHeading, doctree.KindThematicBreak:
		return true
	case doctree.KindHTMLBlock:
		first := firstEntry(n, m)
		if first == nil || first.void {
			return false
		}
		if first.tag.Form == doctree.FormOpen {
			return tagPrecedence(first.tag) >= tagPrecedence(e.tag)
		}
		return first.stray || first.match != nil && first.match.seq < e.seq
	}
	return false
}

func firstEntry(b *doctree.Node, m *matcher) *entry {
	for _, t := range b.Children {
		if e, ok := m.byTile[t]; ok {
			return e
		}
	}
	return nil
}

func closingBlock(e *entry) *doctree.Node {
	tile := closingTile(e)
	blk := doctree.NewNode(doctree.KindHTMLBlock, append(bytes.Clone(tile.Literal), '\n'))
	blk.AppendChild(tile)
	blk.AppendChild(doctree.NewNode(doctree.KindText, []byte("\n")))
	return blk
}

// dropTile removes a tile from its block, and the block itself once
// nothing but whitespace is left. The separator after the block goes too
// when the block sat between two separators.
func dropTile(root *doctree.Node, tile *doctree.Node) {
	b := tile.Parent
	b.RemoveChild(tile.Index())
	if !doctree.IsBlank(b.Render()) {
		return
	}
	i := b.Index()
	prev, next := b.Prev(), b.Next()
	if prev != nil && next != nil && prev.Kind == doctree.KindSeparator && next.Kind == doctree.KindSeparator {
		root.ReplaceChildren(i, i+2)
		return
	}
	root.RemoveChild(i)
}

func replaceBlock(root, b *doctree.Node, kind doctree.Kind, lit string) *doctree.Node {
	n := doctree.NewNode(kind, []byte(lit))
	n.Pos = b.Pos
	i := b.Index()
	root.ReplaceChildren(i, i+1, n)
	return n
}

// alone reports whether tile is the only non-blank tile of b.
func alone(b, tile *doctree.Node) bool {
	for _, t := range b.Children {
		if t != tile && (t.Kind != doctree.KindText || !doctree.IsBlank(t.Literal)) {
			return false
		}
	}
	return true
}

func blankTiles(tiles []*doctree.Node) bool {
	for _, t := range tiles {
		if t.Kind != doctree.KindText || !doctree.IsBlank(t.Literal) {
			return false
		}
	}
	return true
}

func lineEnding(b *doctree.Node) string {
	lit := b.Render()
	switch {
	case bytes.HasSuffix(lit, []byte("\r\n")):
		return "\r\n"
	case bytes.HasSuffix(lit, []byte("\n")):
		return "\n"
	}
	return ""
}
