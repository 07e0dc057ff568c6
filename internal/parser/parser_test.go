package parser

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dgallion1/mdxprep/internal/doctree"
)

func TestParse_RoundTrip(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"no newline":     "just text",
		"paragraphs":     "One\ntwo\n\n\nThree\n",
		"leading blanks": "\n\n# Title\n",
		"setext":         "Title\n=====\n\nBody\n",
		"fenced":         "```go\nfunc main() {}\n```\n\nafter\n",
		"bare fence":     "```\n<div>\n```\n",
		"html block":     "<div class=\"x\">\n  <span>hi</span>\n</div>\n",
		"comment":        "<!-- note\n\nstill note -->\ntext\n",
		"inline html":    "Text with <kbd>Ctrl</kbd> and <br> inside.\n",
		"list":           "- one <b>bold</b>\n- two\n\n1. three\n",
		"blockquote":     "> quoted <em>x</em>\n> more\n",
		"table":          "| a | b |\n|---|---|\n| <br> | 2 |\n",
		"indented code":  "    <div>\n    code\n",
		"jsx":            "<Tabs>\n<Tab label=\"a\">\n\nBody\n\n</Tab>\n</Tabs>\n",
		"frontmatter":    "---\ntitle: Hello\n---\n# Hi\n",
		"toml front":     "+++\ntitle = \"Hello\"\n+++\nBody\n",
		"crlf":           "Line one\r\nline two\r\n\r\n<div>\r\n",
		"thematic":       "a\n\n---\n\nb",
		"trailing space": "text   \n\n   \n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			doc, err := Parse([]byte(src))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := string(doctree.Render(doc)); got != src {
				t.Errorf("round trip changed text:\nwant %q\ngot  %q", src, got)
			}
			if err := doctree.CheckParents(doc.Root); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestParse_Blocks(t *testing.T) {
	src := "# Title\n\nIntro <b>x</b>\n\n<div>\n\n---\n"
	doc, err := Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	var kinds []doctree.Kind
	for _, b := range doc.Blocks() {
		kinds = append(kinds, b.Kind)
	}
	want := []doctree.Kind{
		doctree.KindHeading, doctree.KindSeparator,
		doctree.KindParagraph, doctree.KindSeparator,
		doctree.KindHTMLBlock, doctree.KindSeparator,
		doctree.KindThematicBreak,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected kinds %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("block %d: expected %s, got %s", i, want[i], kinds[i])
		}
	}
	if h := doc.Blocks()[0]; h.Level != 1 {
		t.Errorf("expected heading level 1, got %d", h.Level)
	}
}

func TestParse_InlineTiles(t *testing.T) {
	doc, err := Parse([]byte("a <span class=\"x\">b</span> `<i>`\n"))
	if err != nil {
		t.Fatal(err)
	}
	p := doc.Blocks()[0]
	var tags []*doctree.HTMLTag
	for _, c := range p.Children {
		if c.Kind == doctree.KindHTMLInline {
			tags = append(tags, c.Tag)
		}
	}
	// The tag inside the code span is text.
	if len(tags) != 2 {
		t.Fatalf("expected 2 inline tags, got %d", len(tags))
	}
	if tags[0].Name != "span" || tags[0].Form != doctree.FormOpen {
		t.Errorf("unexpected first tag %+v", tags[0])
	}
	if v, ok := tags[0].Attr("class"); !ok || v != "x" {
		t.Errorf("expected class=x, got %q", v)
	}
	if tags[1].Form != doctree.FormClose {
		t.Errorf("expected closing tag, got %s", tags[1].Form)
	}
}

func TestParse_Positions(t *testing.T) {
	doc, err := Parse([]byte("---\na: 1\n---\nfirst\n\n<div>\n"))
	if err != nil {
		t.Fatal(err)
	}
	blocks := doc.Blocks()
	if got := blocks[0].Pos; got.Line != 4 || got.Column != 1 {
		t.Errorf("expected paragraph at 4:1, got %s", got)
	}
	last := blocks[len(blocks)-1]
	if last.Kind != doctree.KindHTMLBlock || last.Pos.Line != 6 {
		t.Errorf("expected HTML block on line 6, got %s at %s", last.Kind, last.Pos)
	}
	if doc.Meta["a"] != 1 {
		t.Errorf("expected decoded frontmatter, got %v", doc.Meta)
	}
}

func TestParse_OpaqueBlocks(t *testing.T) {
	for _, src := range []string{
		"<pre>\n<b>\n</pre>\n",
		"<script>\nlet a = \"<div>\";\n</script>\n",
		"<!-- <div> -->\n",
	} {
		doc, err := Parse([]byte(src))
		if err != nil {
			t.Fatal(err)
		}
		b := doc.Blocks()[0]
		if b.Kind != doctree.KindHTMLBlock || !b.Opaque {
			t.Errorf("%q: expected opaque HTML block, got %s opaque=%v", src, b.Kind, b.Opaque)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	for name, src := range map[string]string{
		"invalid utf8":    "ok \xff\xfe",
		"bad frontmatter": "---\ntitle: [unclosed\n---\nbody\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			if !errors.Is(err, ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		raw     string
		name    string
		rawName string
		form    doctree.TagForm
	}{
		{"<div>", "div", "div", doctree.FormOpen},
		{"</DIV>", "div", "DIV", doctree.FormClose},
		{"<br/>", "br", "br", doctree.FormSelfClosing},
		{"<Tab label=\"x\">", "tab", "Tab", doctree.FormOpen},
		{"<!-- c -->", "", "", doctree.FormOther},
	}
	for _, tt := range tests {
		tag := ParseTag([]byte(tt.raw))
		if tag.Name != tt.name || tag.RawName != tt.rawName || tag.Form != tt.form {
			t.Errorf("ParseTag(%q) = %q/%q/%s, want %q/%q/%s", tt.raw, tag.Name, tag.RawName, tag.Form, tt.name, tt.rawName, tt.form)
		}
	}
}

func TestTokenizeTags_Covers(t *testing.T) {
	raw := "<div a=\"1\">text <b>bold</b>\n<broken"
	var got []byte
	for _, tile := range TokenizeTags([]byte(raw), doctree.Span{Line: 1, Column: 1}) {
		got = append(got, tile.Literal...)
	}
	if string(got) != raw {
		t.Errorf("tiles do not cover input:\nwant %q\ngot  %q", raw, got)
	}
}

func TestIsMarkdownFile(t *testing.T) {
	for name, want := range map[string]bool{
		"a.md": true, "b.MDX": true, "c.markdown": true, "d.txt": false, "noext": false,
	} {
		if got := IsMarkdownFile(name); got != want {
			t.Errorf("IsMarkdownFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParse_NestedFrontMatter(t *testing.T) {
	doc, err := Parse([]byte("---\nauthor:\n  name: Ada\ntags:\n  - a\n  - {k: v}\n---\nbody\n"))
	if err != nil {
		t.Fatal(err)
	}
	author, ok := doc.Meta["author"].(map[string]any)
	if !ok || author["name"] != "Ada" {
		t.Fatalf("expected string-keyed nested map, got %#v", doc.Meta["author"])
	}
	tags, ok := doc.Meta["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Fatalf("unexpected tags %#v", doc.Meta["tags"])
	}
	if _, ok := tags[1].(map[string]any); !ok {
		t.Errorf("expected list items converted too, got %#v", tags[1])
	}
	if _, err := json.Marshal(doc.Meta); err != nil {
		t.Errorf("metadata does not encode as JSON: %v", err)
	}
}
