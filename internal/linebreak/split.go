package linebreak

import (
	"bytes"

	"github.com/dgallion1/mdxprep/internal/doctree"
	"github.com/dgallion1/mdxprep/internal/tagfix"
)

// line is one source line of a tiled block, as a byte range of its text.
type line struct {
	from, to int
	tagOnly  bool
	indent   int
	// cut is where a trailing run of unmatched block-level closing tags
	// starts, or -1.
	cut int
}

type tagSpan struct {
	from, to int
	name     string
	key      string
	form     doctree.TagForm
	block    bool
}

type group struct {
	from, to int
	tagOnly  bool
}

// splitParagraph breaks a paragraph at every line that holds nothing but
// tags. CommonMark does not let most tags interrupt a paragraph, so without
// this a JSX opener on its own line would stay inline.
func splitParagraph(n *doctree.Node) []*doctree.Node {
	groups := groupLines(analyze(n, true))
	if len(groups) < 2 {
		return nil
	}
	out := make([]*doctree.Node, 0, len(groups))
	for _, g := range groups {
		kind := doctree.KindParagraph
		if g.tagOnly {
			kind = doctree.KindHTMLBlock
		}
		out = append(out, carve(n, kind, g.from, g.to))
	}
	return out
}

// splitHTMLBlock separates the tag-only lines of a multi-line HTML block
// from the content between them. Content that starts with a tag stays HTML;
// anything else becomes a paragraph so it is read as Markdown. A block with
// a code fence line stays whole: split out, the fence would run on to the
// end of the document.
func splitHTMLBlock(n *doctree.Node) []*doctree.Node {
	text := n.Render()
	if hasFence(text) {
		return nil
	}
	groups := groupLines(analyze(n, false))
	if len(groups) < 2 {
		return nil
	}
	out := make([]*doctree.Node, 0, len(groups))
	for _, g := range groups {
		kind := doctree.KindParagraph
		if g.tagOnly || bytes.HasPrefix(bytes.TrimLeft(text[g.from:g.to], " \t"), []byte("<")) {
			kind = doctree.KindHTMLBlock
		}
		out = append(out, carve(n, kind, g.from, g.to))
	}
	return out
}

// analyze classifies the lines of a tiled block.
func analyze(n *doctree.Node, inParagraph bool) []line {
	text := n.Render()

	var spans []tagSpan
	off := 0
	for _, c := range n.Children {
		size := len(c.Render())
		if c.Kind == doctree.KindHTMLInline && c.Tag != nil && c.Tag.Form != doctree.FormOther {
			spans = append(spans, tagSpan{
				from:  off,
				to:    off + size,
				name:  c.Tag.Name,
				key:   tagfix.MatchKey(c.Tag),
				form:  c.Tag.Form,
				block: tagfix.BlockLevel(c.Tag),
			})
		}
		off += size
	}

	var lines []line
	// pending counts the opening tags of the current run of content lines
	// that are still waiting for their closing tag.
	pending := map[string]int{}
	for start := 0; start < len(text); {
		end := len(text)
		if i := bytes.IndexByte(text[start:], '\n'); i >= 0 {
			end = start + i + 1
		}
		ln := line{
			from:    start,
			to:      end,
			indent:  indentWidth(text[start:end]),
			tagOnly: tagOnly(text, start, end, spans, inParagraph),
			cut:     -1,
		}
		switch {
		case ln.tagOnly:
			clear(pending)
		case ln.indent < 4:
			ln.cut = trailingClose(text, start, end, spans, pending)
		}
		lines = append(lines, ln)
		start = end
	}
	return lines
}

// tagOnly reports whether text[start:end] consists of whole tags and
// whitespace. Inside paragraphs a line of inline void tags such as <br>
// does not count.
func tagOnly(text []byte, start, end int, spans []tagSpan, inParagraph bool) bool {
	if doctree.IsBlank(text[start:end]) {
		return false
	}
	covered, blockish := 0, false
	pos := start
	for _, s := range spans {
		if s.to <= start || s.from >= end {
			continue
		}
		if s.from < start || s.to > end {
			return false
		}
		if !doctree.IsBlank(text[pos:s.from]) {
			return false
		}
		pos = s.to
		covered++
		if !inlineVoid[s.name] {
			blockish = true
		}
	}
	if covered == 0 || !doctree.IsBlank(text[pos:end]) {
		return false
	}
	return blockish || !inParagraph
}

// trailingClose finds the block-level closing tags that end a content line
// and whose opening tag is not part of the same content run, such as the
// </div> of "text</div>" after a "<div>" line. It returns the offset where
// they start, or -1. pending is updated with the tags before the cut.
func trailingClose(text []byte, start, end int, spans []tagSpan, pending map[string]int) int {
	var on []tagSpan
	for _, s := range spans {
		if s.from >= start && s.to <= end {
			on = append(on, s)
		}
	}

	// Trailing run of block-level closing tags.
	first, pos := len(on), end
	for i := len(on) - 1; i >= 0; i-- {
		s := on[i]
		if s.form != doctree.FormClose || !s.block || !doctree.IsBlank(text[s.to:pos]) {
			break
		}
		first, pos = i, s.from
	}

	count := func(s tagSpan) {
		switch s.form {
		case doctree.FormOpen:
			pending[s.key]++
		case doctree.FormClose:
			if pending[s.key] > 0 {
				pending[s.key]--
			}
		}
	}
	for _, s := range on[:first] {
		count(s)
	}

	// Closing tags that match an open of this run stay on the line.
	cut := -1
	for _, s := range on[first:] {
		if cut < 0 && pending[s.key] > 0 {
			count(s)
			continue
		}
		if cut < 0 {
			cut = s.from
		}
	}
	if cut < 0 || doctree.IsBlank(text[start:cut]) {
		return -1
	}
	return cut
}

// groupLines merges lines into the blocks the split produces: every
// tag-only line alone, every run of other lines together. Lines indented
// four or more columns always stay with the line above, since separating
// them would turn them into indented code. A line with a cut ends its run
// and its trailing closing tags become a tag-only group.
func groupLines(lines []line) []group {
	var groups []group
	content := func(from, to int) {
		last := len(groups) - 1
		if last >= 0 && !groups[last].tagOnly {
			groups[last].to = to
			return
		}
		groups = append(groups, group{from: from, to: to})
	}
	for _, ln := range lines {
		last := len(groups) - 1
		switch {
		case last >= 0 && ln.indent >= 4:
			groups[last].to = ln.to
		case ln.tagOnly:
			groups = append(groups, group{from: ln.from, to: ln.to, tagOnly: true})
		case ln.cut >= 0:
			content(ln.from, ln.cut)
			groups = append(groups, group{from: ln.cut, to: ln.to, tagOnly: true})
		default:
			content(ln.from, ln.to)
		}
	}
	return groups
}

// hasFence reports whether any line of b opens a fenced code block.
func hasFence(b []byte) bool {
	for _, l := range bytes.Split(b, []byte("\n")) {
		trimmed := bytes.TrimLeft(l, " ")
		if len(l)-len(trimmed) > 3 {
			continue
		}
		if bytes.HasPrefix(trimmed, []byte("```")) || bytes.HasPrefix(trimmed, []byte("~~~")) {
			return true
		}
	}
	return false
}

// carve returns a new block holding bytes [from, to) of n and the matching
// tiles.
func carve(n *doctree.Node, kind doctree.Kind, from, to int) *doctree.Node {
	text := n.Render()
	b := doctree.NewNode(kind, text[from:to])
	b.Pos = doctree.Advance(n.Pos, text[:from])
	for _, t := range doctree.Slice(n, from, to) {
		b.AppendChild(t)
	}
	return b
}

func indentWidth(b []byte) int {
	w := 0
	for _, c := range b {
		switch c {
		case ' ':
			w++
		case '\t':
			w += 4 - w%4
		default:
			return w
		}
	}
	return w
}
