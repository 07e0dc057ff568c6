package tagfix

import (
	"bytes"
	"unicode/utf8"

	"github.com/dgallion1/mdxprep/internal/doctree"
)

// inlineMode describes how an inline container is repaired.
type inlineMode struct {
	// lineEnd closes dangling tags at the end of their line instead of the
	// end of the container.
	lineEnd bool
	// breaks allows <br> to become a hard line break.
	breaks bool
}

var inlineModes = map[doctree.Kind]inlineMode{
	doctree.KindParagraph:  {breaks: true},
	doctree.KindHeading:    {lineEnd: true},
	doctree.KindTable:      {lineEnd: true},
	doctree.KindList:       {lineEnd: true},
	doctree.KindBlockquote: {lineEnd: true},
}

// fixInline resolves the tags of one tiled container.
func (f *Fixer) fixInline(c *doctree.Node, mode inlineMode, r *Report) {
	m := newMatcher(f.managed)
	for _, t := range c.Children {
		if t.Kind == doctree.KindHTMLInline {
			m.add(t)
		}
	}
	if len(m.entries) == 0 {
		return
	}

	// Repairs first, so a pair completed by a synthesized closing tag is
	// converted in the same run.
	for _, e := range m.entries {
		if e.stray {
			f.stray(e, r, func() { c.RemoveChild(e.tile.Index()) })
		}
	}

	for _, e := range m.implicit() {
		tile := closingTile(e)
		c.InsertChildren(e.before.tile.Index(), tile)
		m.close(e, tile)
		f.repaired(e, r)
	}

	dangling := m.dangling()
	var floor *doctree.Node
	for i := len(dangling) - 1; i >= 0; i-- {
		e := dangling[i]
		at := closeIndex(c, e.tile.Index(), mode.lineEnd)
		if floor != nil {
			at = max(at, floor.Index()+1)
		}
		tile := closingTile(e)
		c.InsertChildren(at, tile)
		m.close(e, tile)
		floor = tile
		f.repaired(e, r)
	}

	for _, e := range m.entries {
		if e.void {
			f.inlineVoid(c, e, mode, r)
		}
	}
	// Closing tags come after everything they enclose, so converting in
	// closing-tag order handles inner pairs before the pairs around them.
	for _, e := range m.byClose() {
		f.inlinePair(c, e, e.match, r)
	}
}

func (f *Fixer) inlineVoid(c *doctree.Node, e *entry, mode inlineMode, r *Report) {
	if f.convertible(e.tag) {
		switch e.tag.Name {
		case "br":
			if mode.breaks && len(e.tag.Attrs) == 0 && hardBreak(c, e.tile) {
				r.record(e, Converted)
				return
			}
		case "img":
			if lit, ok := imageMarkdown(e.tag); ok {
				img := doctree.NewNode(doctree.KindImage, []byte(lit))
				img.Pos = e.tile.Pos
				i := e.tile.Index()
				c.ReplaceChildren(i, i+1, img)
				r.record(e, Converted)
				return
			}
		}
		f.skipped(e, r)
	}
	f.normalize(e, r)
}

func (f *Fixer) inlinePair(c *doctree.Node, open, close *entry, r *Report) {
	conv, ok := inlineConversions[open.tag.Name]
	if !ok || !f.convertible(open.tag) {
		f.unchanged(open, r)
		return
	}
	i, j := open.tile.Index(), close.tile.Index()
	if i < 0 || j <= i {
		f.unchanged(open, r)
		return
	}

	content := append([]*doctree.Node(nil), c.Children[i+1:j]...)
	lit, ok := inlineMarkdown(open.tag, conv, content, lastRune(c, i), firstRune(c, j))
	if !ok {
		f.skipped(open, r)
		f.unchanged(open, r)
		return
	}

	n := doctree.NewNode(conv.kind, []byte(lit))
	n.Pos = open.tile.Pos
	c.ReplaceChildren(i, j+1, n)
	for _, t := range content {
		n.AppendChild(t)
	}
	r.record(open, Converted)
}

// hardBreak replaces the <br> tile with a Markdown hard break. The break
// needs text before it on its line and more text after it; when the tag
// ends its line only the backslash is needed.
func hardBreak(c *doctree.Node, tile *doctree.Node) bool {
	i := tile.Index()
	var before, after bytes.Buffer
	for _, n := range c.Children[:i] {
		before.Write(n.Render())
	}
	for _, n := range c.Children[i+1:] {
		after.Write(n.Render())
	}

	line := before.Bytes()
	if k := bytes.LastIndexByte(line, '\n'); k >= 0 {
		line = line[k+1:]
	}
	if doctree.IsBlank(line) || bytes.HasSuffix(bytes.TrimRight(line, " \t"), []byte(`\`)) {
		return false
	}

	rest := after.Bytes()
	eol := bytes.IndexByte(rest, '\n')
	if eol >= 0 && doctree.IsBlank(rest[:eol]) {
		if doctree.IsBlank(rest[eol+1:]) {
			return false
		}
		brk := doctree.NewNode(doctree.KindHardBreak, []byte(`\`))
		brk.Pos = tile.Pos
		c.ReplaceChildren(i, i+1, brk)
		if next := brk.Next(); next != nil && next.Kind == doctree.KindText {
			next.SetLiteral(bytes.TrimLeft(next.Literal, " \t"))
		}
		return true
	}

	tail := bytes.TrimLeft(rest, " \t")
	if len(tail) == 0 || startsBlock(tail) {
		return false
	}
	brk := doctree.NewNode(doctree.KindHardBreak, []byte("\\\n"))
	brk.Pos = tile.Pos
	c.ReplaceChildren(i, i+1, brk)
	return true
}

// startsBlock reports whether a line starting with b could open a new
// Markdown block and so end the paragraph.
func startsBlock(b []byte) bool {
	switch b[0] {
	case '#', '>', '-', '+', '*', '=', '`', '~', '<', '|', '_':
		return true
	}
	return b[0] >= '0' && b[0] <= '9'
}

// closeIndex splits tiles as needed and returns the index where a closing
// tag for the tag at position from belongs: before the end of its line or
// before the trailing whitespace of the container.
func closeIndex(c *doctree.Node, from int, lineEnd bool) int {
	if lineEnd {
		for i := from + 1; i < len(c.Children); i++ {
			t := c.Children[i]
			if t.Kind != doctree.KindText {
				continue
			}
			if j := bytes.IndexByte(t.Literal, '\n'); j >= 0 {
				if j > 0 && t.Literal[j-1] == '\r' {
					j--
				}
				return doctree.SplitText(c, i, j)
			}
		}
	}
	last := len(c.Children) - 1
	if t := c.Children[last]; t.Kind == doctree.KindText {
		return doctree.SplitText(c, last, len(t.Literal)-doctree.TrailingSpace(t.Literal))
	}
	return len(c.Children)
}

func lastRune(c *doctree.Node, i int) rune {
	if i == 0 {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeLastRune(c.Children[i-1].Render())
	return r
}

func firstRune(c *doctree.Node, j int) rune {
	if j+1 >= len(c.Children) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRune(c.Children[j+1].Render())
	return r
}
