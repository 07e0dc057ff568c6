package tagfix

import (
	"bytes"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/dgallion1/mdxprep/internal/doctree"
)

// selfClosing rewrites "<br>" as "<br />".
func selfClosing(raw string) string {
	s := strings.TrimSuffix(raw, ">")
	s = strings.TrimRight(s, " \t\r\n")
	return s + " />"
}

// plainAttrs returns the attributes of t when every key is allowed and no
// value holds a JSX expression or needs escaping in Markdown.
func plainAttrs(t *doctree.HTMLTag, allowed ...string) (map[string]string, bool) {
	if strings.ContainsAny(t.Raw, "{}") {
		return nil, false
	}
	out := make(map[string]string, len(t.Attrs))
	for _, a := range t.Attrs {
		if !slices.Contains(allowed, a.Key) || strings.ContainsAny(a.Val, "\"\\\r\n") {
			return nil, false
		}
		out[a.Key] = a.Val
	}
	return out, true
}

// destination formats a link or image target.
func destination(url, title string) (string, bool) {
	if url == "" || strings.ContainsAny(url, " \t()<>") {
		return "", false
	}
	if title != "" {
		return url + ` "` + title + `"`, true
	}
	return url, true
}

func imageMarkdown(t *doctree.HTMLTag) (string, bool) {
	attrs, ok := plainAttrs(t, "src", "alt", "title")
	if !ok {
		return "", false
	}
	alt := attrs["alt"]
	if strings.ContainsAny(alt, "[]") {
		return "", false
	}
	dest, ok := destination(attrs["src"], attrs["title"])
	if !ok {
		return "", false
	}
	return "![" + alt + "](" + dest + ")", true
}

// inlineMarkdown renders an open...close span as Markdown. before and after
// are the runes adjacent to the span, or utf8.RuneError at the edges.
func inlineMarkdown(t *doctree.HTMLTag, conv inlineConversion, content []*doctree.Node, before, after rune) (string, bool) {
	var body bytes.Buffer
	for _, n := range content {
		switch {
		case n.Kind == doctree.KindText:
			if conv.kind == doctree.KindLink && bytes.ContainsAny(n.Literal, "[]") {
				return "", false
			}
		case convertedKinds[n.Kind] && conv.kind != doctree.KindCodeSpan:
		default:
			return "", false
		}
		body.Write(n.Render())
	}
	s := body.String()
	if s == "" || strings.TrimSpace(s) != s || strings.ContainsAny(s, "\r\n") {
		return "", false
	}

	switch conv.kind {
	case doctree.KindLink:
		attrs, ok := plainAttrs(t, "href", "title")
		if !ok {
			return "", false
		}
		dest, ok := destination(attrs["href"], attrs["title"])
		if !ok {
			return "", false
		}
		return "[" + s + "](" + dest + ")", true
	case doctree.KindCodeSpan:
		if len(t.Attrs) > 0 || strings.ContainsAny(s, "`*_[]<>&\\~") {
			return "", false
		}
		return conv.open + s + conv.close, true
	default:
		if len(t.Attrs) > 0 || strings.Contains(s, conv.open[:1]) || !flanking(s, before, after) {
			return "", false
		}
		return conv.open + s + conv.close, true
	}
}

// flanking reports whether delimiters around s would still open and close
// emphasis: punctuation at an edge of s needs whitespace or punctuation on
// the outside.
func flanking(s string, before, after rune) bool {
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	if isPunct(first) && !outerOK(before) {
		return false
	}
	if isPunct(last) && !outerOK(after) {
		return false
	}
	return true
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func outerOK(r rune) bool {
	return r == utf8.RuneError || unicode.IsSpace(r) || isPunct(r)
}

// convertFragment turns a block HTML fragment rooted at a single name
// element into Markdown. Fragments holding components, JSX expressions,
// scripts or form controls are left alone.
func convertFragment(name, fragment string) (string, bool) {
	if strings.ContainsAny(fragment, "{}") {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", false
	}
	top := doc.Find("body").Children()
	if top.Length() != 1 || goquery.NodeName(top) != name {
		return "", false
	}
	if top.Find("script, style, iframe, form, input, button, select, textarea").Length() > 0 {
		return "", false
	}
	standard := true
	top.Find("*").Each(func(_ int, s *goquery.Selection) {
		if s.Nodes[0].DataAtom == 0 {
			standard = false
		}
	})
	if !standard {
		return "", false
	}

	md, err := htmltomarkdown.ConvertNode(top.Nodes[0])
	if err != nil {
		return "", false
	}
	out := strings.TrimSpace(string(md))
	if out == "" {
		return "", false
	}
	return out, true
}
