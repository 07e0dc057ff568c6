package parser

import (
	"bytes"

	"github.com/dgallion1/mdxprep/internal/doctree"
	"golang.org/x/net/html"
)

// ParseTag describes a single raw HTML tag. Comments, declarations and
// anything the tokenizer does not read as a tag come back as FormOther.
func ParseTag(raw []byte) *doctree.HTMLTag {
	tag := &doctree.HTMLTag{Raw: string(raw), Form: doctree.FormOther}

	z := html.NewTokenizer(bytes.NewReader(raw))
	switch z.Next() {
	case html.StartTagToken:
		tag.Form = doctree.FormOpen
	case html.EndTagToken:
		tag.Form = doctree.FormClose
	case html.SelfClosingTagToken:
		tag.Form = doctree.FormSelfClosing
	default:
		return tag
	}

	tok := z.Token()
	tag.Name = tok.Data
	tag.RawName = rawTagName(raw)
	for _, a := range tok.Attr {
		tag.Attrs = append(tag.Attrs, doctree.Attr{Key: a.Key, Val: a.Val})
	}
	return tag
}

// TokenizeTags splits a raw HTML block into tiles: one HTMLInline per tag,
// comment or doctype and Text for everything in between. The tiles cover raw
// exactly.
func TokenizeTags(raw []byte, pos doctree.Span) []*doctree.Node {
	var tiles []*doctree.Node
	z := html.NewTokenizer(bytes.NewReader(raw))

	off, textStart := 0, 0
	textPos := pos
	flush := func() {
		if off > textStart {
			t := doctree.NewNode(doctree.KindText, raw[textStart:off])
			t.Pos = textPos
			tiles = append(tiles, t)
		}
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		n := len(z.Raw())
		seg := raw[off : off+n]
		switch tt {
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken, html.CommentToken, html.DoctypeToken:
			flush()
			tiles = append(tiles, tagTile(seg, pos))
			off += n
			pos = doctree.Advance(pos, seg)
			textStart, textPos = off, pos
		default:
			off += n
			pos = doctree.Advance(pos, seg)
		}
	}

	// The tokenizer stops short on a truncated tag; keep those bytes as text.
	off = len(raw)
	flush()
	return tiles
}

func tagTile(raw []byte, pos doctree.Span) *doctree.Node {
	t := doctree.NewNode(doctree.KindHTMLInline, raw)
	t.Pos = pos
	t.Tag = ParseTag(raw)
	return t
}

// rawTagName returns the tag name with its source letter case.
func rawTagName(raw []byte) string {
	i := 0
	if i < len(raw) && raw[i] == '<' {
		i++
	}
	if i < len(raw) && raw[i] == '/' {
		i++
	}
	j := i
	for j < len(raw) && isNameByte(raw[j]) {
		j++
	}
	return string(raw[i:j])
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '.' || c == ':' || c == '_'
}
