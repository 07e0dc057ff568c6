package parser

import (
	"bytes"
	"math"
	"sort"

	"github.com/dgallion1/mdxprep/internal/doctree"
	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// located is a top-level goldmark block anchored to its first source line.
type located struct {
	node  gast.Node
	first int
}

// buildBlocks parses body with goldmark and appends one doctree block per
// top-level goldmark block to root. Each block owns the lines from its first
// line up to the next block's first line; trailing blank lines are split off
// into a Separator.
func buildBlocks(root *doctree.Node, body []byte, lines *lineIndex) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
	gdoc := md.Parser().Parse(text.NewReader(body))

	blocks := locateBlocks(gdoc, lines)
	n := lines.count()

	head := n
	if len(blocks) > 0 {
		head = blocks[0].first
	}
	appendLoose(root, lines, 0, head)

	for i, b := range blocks {
		next := n
		if i+1 < len(blocks) {
			next = blocks[i+1].first
		}
		stop := next
		for stop > b.first+1 && lines.blank(stop-1) {
			stop--
		}
		root.AppendChild(newBlock(b.node, lines, b.first, stop))
		if stop < next {
			root.AppendChild(lineRange(doctree.KindSeparator, lines, stop, next))
		}
	}
}

// locateBlocks finds the first source line of every top-level block. Blocks
// whose position cannot be established are folded into their predecessor.
func locateBlocks(gdoc gast.Node, lines *lineIndex) []located {
	var out []located
	cursor, prevFirst := 0, -1

	for c := gdoc.FirstChild(); c != nil; c = c.NextSibling() {
		var first, last int
		if lo, hi, ok := segmentBounds(c); ok {
			first = lines.lineOf(lo)
			last = lines.lineOf(max(lo, hi-1))
			if f, fenced := c.(*gast.FencedCodeBlock); fenced && f.Info == nil {
				// The opening fence carries no segment of its own.
				first--
			}
		} else {
			first = lines.nextNonBlank(cursor)
			last = first
		}
		last = extendBlockEnd(c, first, last, lines)

		if first <= prevFirst || first < 0 || first >= lines.count() {
			continue
		}
		out = append(out, located{node: c, first: first})
		prevFirst = first
		cursor = max(cursor, last+1)
	}
	return out
}

// extendBlockEnd accounts for trailing lines goldmark keeps no segment for:
// setext underlines and closing code fences.
func extendBlockEnd(n gast.Node, first, last int, lines *lineIndex) int {
	switch n.(type) {
	case *gast.Heading:
		if first < lines.count() && !bytes.HasPrefix(bytes.TrimLeft(lines.line(first), " "), []byte("#")) {
			return last + 1
		}
	case *gast.FencedCodeBlock:
		if last+1 < lines.count() {
			l := bytes.TrimLeft(lines.line(last+1), " ")
			if bytes.HasPrefix(l, []byte("```")) || bytes.HasPrefix(l, []byte("~~~")) {
				return last + 1
			}
		}
	}
	return last
}

// segmentBounds returns the smallest and largest source offsets referenced
// anywhere in n's subtree.
func segmentBounds(n gast.Node) (lo, hi int, ok bool) {
	lo = math.MaxInt
	add := func(s text.Segment) {
		lo = min(lo, s.Start)
		hi = max(hi, s.Stop)
		ok = true
	}
	addAll := func(segs *text.Segments) {
		if segs == nil {
			return
		}
		for i := 0; i < segs.Len(); i++ {
			add(segs.At(i))
		}
	}

	_ = gast.Walk(n, func(c gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		if c.Type() == gast.TypeBlock {
			addAll(c.Lines())
		}
		switch v := c.(type) {
		case *gast.Text:
			add(v.Segment)
		case *gast.RawHTML:
			addAll(v.Segments)
		case *gast.FencedCodeBlock:
			if v.Info != nil {
				add(v.Info.Segment)
			}
		case *gast.HTMLBlock:
			if v.HasClosure() {
				add(v.ClosureLine)
			}
		}
		return gast.WalkContinue, nil
	})
	return lo, hi, ok
}

// appendLoose appends lines not claimed by any block: blank runs become
// Separators, everything else Raw.
func appendLoose(root *doctree.Node, lines *lineIndex, from, to int) {
	for i := from; i < to; {
		j := i
		blank := lines.blank(i)
		for j < to && lines.blank(j) == blank {
			j++
		}
		kind := doctree.KindRaw
		if blank {
			kind = doctree.KindSeparator
		}
		root.AppendChild(lineRange(kind, lines, i, j))
		i = j
	}
}

func lineRange(kind doctree.Kind, lines *lineIndex, from, to int) *doctree.Node {
	lo, hi := lines.start(from), lines.end(to-1)
	n := doctree.NewNode(kind, lines.src[lo:hi])
	n.Pos = lines.pos(lo)
	return n
}

func kindOf(n gast.Node) doctree.Kind {
	switch n.Kind() {
	case gast.KindParagraph, gast.KindTextBlock:
		return doctree.KindParagraph
	case gast.KindHeading:
		return doctree.KindHeading
	case gast.KindList:
		return doctree.KindList
	case gast.KindBlockquote:
		return doctree.KindBlockquote
	case gast.KindFencedCodeBlock, gast.KindCodeBlock:
		return doctree.KindCode
	case gast.KindHTMLBlock:
		return doctree.KindHTMLBlock
	case gast.KindThematicBreak:
		return doctree.KindThematicBreak
	case east.KindTable:
		return doctree.KindTable
	default:
		return doctree.KindRaw
	}
}

// newBlock builds the doctree block for lines [from, to) and tiles it.
func newBlock(g gast.Node, lines *lineIndex, from, to int) *doctree.Node {
	node := lineRange(kindOf(g), lines, from, to)
	lo, hi := lines.start(from), lines.end(to-1)

	switch node.Kind {
	case doctree.KindHeading:
		node.Level = g.(*gast.Heading).Level
		tileInline(node, g, lines, lo, hi)
	case doctree.KindParagraph, doctree.KindTable, doctree.KindList, doctree.KindBlockquote:
		tileInline(node, g, lines, lo, hi)
	case doctree.KindHTMLBlock:
		hb := g.(*gast.HTMLBlock)
		if hb.HTMLBlockType != gast.HTMLBlockType6 && hb.HTMLBlockType != gast.HTMLBlockType7 {
			node.Opaque = true
			break
		}
		for _, t := range TokenizeTags(node.Literal, node.Pos) {
			node.AppendChild(t)
		}
	}
	return node
}

// tileInline covers [lo, hi) with Text tiles and one HTMLInline tile per
// inline HTML tag goldmark recognized. Tags inside code spans are never
// RawHTML, so they stay in Text tiles.
func tileInline(node *doctree.Node, g gast.Node, lines *lineIndex, lo, hi int) {
	var spans [][2]int
	_ = gast.Walk(g, func(c gast.Node, entering bool) (gast.WalkStatus, error) {
		raw, ok := c.(*gast.RawHTML)
		if !entering || !ok || raw.Segments == nil || raw.Segments.Len() == 0 {
			return gast.WalkContinue, nil
		}
		s := raw.Segments.At(0).Start
		e := raw.Segments.At(raw.Segments.Len() - 1).Stop
		if s >= lo && e <= hi && s < e {
			spans = append(spans, [2]int{s, e})
		}
		return gast.WalkContinue, nil
	})
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })

	off := lo
	for _, sp := range spans {
		if sp[0] < off {
			continue
		}
		if sp[0] > off {
			node.AppendChild(textTile(lines, off, sp[0]))
		}
		node.AppendChild(tagTile(lines.src[sp[0]:sp[1]], lines.pos(sp[0])))
		off = sp[1]
	}
	if off < hi {
		node.AppendChild(textTile(lines, off, hi))
	}
}

func textTile(lines *lineIndex, lo, hi int) *doctree.Node {
	t := doctree.NewNode(doctree.KindText, lines.src[lo:hi])
	t.Pos = lines.pos(lo)
	return t
}
