package tagfix

import (
	"strings"
	"testing"

	"github.com/dgallion1/mdxprep/internal/doctree"
	"github.com/dgallion1/mdxprep/internal/parser"
)

func fix(t *testing.T, src string, policy Policy, opts Options) (string, Report) {
	t.Helper()
	doc, err := parser.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r, err := New(policy, opts).Fix(doc)
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	return string(doctree.Render(doc)), r
}

func TestFix(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		policy Policy
		opts   Options
		want   string
	}{
		{
			name:   "br mid line becomes hard break",
			in:     "line1<br>line2\n",
			policy: NewPolicy("br"),
			want:   "line1\\\nline2\n",
		},
		{
			name:   "br at line end becomes hard break",
			in:     "line1<br>\nline2\n",
			policy: NewPolicy("br"),
			want:   "line1\\\nline2\n",
		},
		{
			name:   "br ending paragraph is normalized",
			in:     "text<br>\n",
			policy: NewPolicy("br"),
			want:   "text<br />\n",
		},
		{
			name: "required br is normalized",
			in:   "a<br>b\n",
			want: "a<br />b\n",
		},
		{
			name: "self-closing br untouched",
			in:   "a<br/>b\n",
			want: "a<br/>b\n",
		},
		{
			name:   "emphasis",
			in:     "a <em>word</em> b\n",
			policy: NewPolicy("em"),
			want:   "a *word* b\n",
		},
		{
			name:   "strong",
			in:     "a <strong>bold text</strong> b\n",
			policy: NewPolicy("strong"),
			want:   "a **bold text** b\n",
		},
		{
			name:   "strikethrough",
			in:     "a <del>gone</del> b\n",
			policy: NewPolicy("del"),
			want:   "a ~~gone~~ b\n",
		},
		{
			name: "required emphasis kept",
			in:   "a <em>word</em> b\n",
			want: "a <em>word</em> b\n",
		},
		{
			name:   "attributes block conversion",
			in:     "a <b class=\"x\">w</b> b\n",
			policy: NewPolicy("b"),
			want:   "a <b class=\"x\">w</b> b\n",
		},
		{
			name:   "link",
			in:     "See <a href=\"https://x.io\">docs</a>.\n",
			policy: NewPolicy("a"),
			want:   "See [docs](https://x.io).\n",
		},
		{
			name:   "link with title",
			in:     "See <a href=\"/d\" title=\"Docs\">docs</a> now\n",
			policy: NewPolicy("a"),
			want:   "See [docs](/d \"Docs\") now\n",
		},
		{
			name:   "code",
			in:     "use <code>go test</code> now\n",
			policy: NewPolicy("code"),
			want:   "use `go test` now\n",
		},
		{
			name:   "inline image",
			in:     "An <img src=\"a.png\" alt=\"A\"> image\n",
			policy: NewPolicy("img"),
			want:   "An ![A](a.png) image\n",
		},
		{
			name:   "image with expression stays HTML",
			in:     "An <img src={logo} alt=\"A\"> image\n",
			policy: NewPolicy("img"),
			want:   "An <img src={logo} alt=\"A\" /> image\n",
		},
		{
			name: "stray closing tag kept",
			in:   "text</span>more text\n",
			want: "text</span>more text\n",
		},
		{
			name: "stray closing tag dropped on request",
			in:   "text</span>more text\n",
			opts: Options{DropStrayClosing: true},
			want: "textmore text\n",
		},
		{
			name:   "stray closing br dropped",
			in:     "a</br>b\n",
			policy: NewPolicy("br"),
			want:   "ab\n",
		},
		{
			name: "dangling inline tag closed",
			in:   "Some <span>text\n",
			want: "Some <span>text</span>\n",
		},
		{
			name:   "dangling optional tag repaired and converted",
			in:     "a <em>b\n",
			policy: NewPolicy("em"),
			want:   "a *b*\n",
		},
		{
			name:   "implicitly closed optional tag converted",
			in:     "a <span><b>x</span> b\n",
			policy: NewPolicy("b"),
			want:   "a <span>**x**</span> b\n",
		},
		{
			name: "dangling tag in heading closed at line end",
			in:   "# Title <em>x\n",
			want: "# Title <em>x</em>\n",
		},
		{
			name: "inner tag closed with outer",
			in:   "a <span><b>x</span> b\n",
			want: "a <span><b>x</b></span> b\n",
		},
		{
			name: "dangling inner tags closed innermost first",
			in:   "a <span><b>x\n",
			want: "a <span><b>x</b></span>\n",
		},
		{
			name: "dangling block closed before heading",
			in:   "<div>unclosed paragraph\n\n# Heading\n",
			want: "<div>unclosed paragraph\n\n</div>\n\n# Heading\n",
		},
		{
			name: "nested dangling blocks",
			in:   "<section>\n\n<div>\n\ntext\n",
			want: "<section>\n\n<div>\n\ntext\n\n</div>\n\n</section>\n",
		},
		{
			name: "dangling block closed before thematic break",
			in:   "<div>\n\ntext\n\n***\n\nafter\n",
			want: "<div>\n\ntext\n\n</div>\n\n***\n\nafter\n",
		},
		{
			name:   "dangling component closed",
			in:     "<Tabs>\n\ncontent\n",
			policy: NewPolicy("Tabs"),
			want:   "<Tabs>\n\ncontent\n\n</Tabs>\n",
		},
		{
			name: "balanced blocks untouched",
			in:   "<div>\n\ntext\n\n</div>\n",
			want: "<div>\n\ntext\n\n</div>\n",
		},
		{
			name: "stray block close kept",
			in:   "text\n\n</div>\n\nmore\n",
			want: "text\n\n</div>\n\nmore\n",
		},
		{
			name: "stray block close dropped",
			in:   "text\n\n</div>\n\nmore\n",
			opts: Options{DropStrayClosing: true},
			want: "text\n\nmore\n",
		},
		{
			name:   "hr between separators",
			in:     "a\n\n<hr>\n\nb\n",
			policy: NewPolicy("hr"),
			want:   "a\n\n---\n\nb\n",
		},
		{
			name:   "hr at document start",
			in:     "<hr>\n\nb\n",
			policy: NewPolicy("hr"),
			want:   "***\n\nb\n",
		},
		{
			name: "required hr normalized",
			in:   "a\n\n<hr>\n\nb\n",
			want: "a\n\n<hr />\n\nb\n",
		},
		{
			name:   "heading block",
			in:     "<h2>Install</h2>\n\ntext\n",
			policy: NewPolicy("h2"),
			want:   "## Install\n\ntext\n",
		},
		{
			name:   "heading with attributes kept",
			in:     "<h2 id=\"x\">Install</h2>\n",
			policy: NewPolicy("h2"),
			want:   "<h2 id=\"x\">Install</h2>\n",
		},
		{
			name:   "component named like an element",
			in:     "See <Link href=\"/x\">Docs</Link>\n",
			policy: NewPolicy("link", "a"),
			want:   "See <Link href=\"/x\">Docs</Link>\n",
		},
		{
			name: "code spans are not tags",
			in:   "use `<div>` here\n",
			want: "use `<div>` here\n",
		},
		{
			name: "unmanaged tags pass through",
			in:   "a <foo-bar>x\n",
			want: "a <foo-bar>x\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := fix(t, tt.in, tt.policy, tt.opts)
			if got != tt.want {
				t.Errorf("\nin   %q\nwant %q\ngot  %q", tt.in, tt.want, got)
			}
		})
	}
}

func TestFix_FragmentList(t *testing.T) {
	got, r := fix(t, "<ul>\n<li>One</li>\n<li>Two</li>\n</ul>\n\nafter\n", NewPolicy("ul"), Options{})
	if strings.Contains(got, "<ul>") || strings.Contains(got, "<li>") {
		t.Fatalf("expected list converted, got %q", got)
	}
	if !strings.Contains(got, "One") || !strings.Contains(got, "Two") || !strings.HasSuffix(got, "\n\nafter\n") {
		t.Errorf("unexpected conversion %q", got)
	}
	if r.Count(Converted) != 1 {
		t.Errorf("expected 1 conversion, got %d", r.Count(Converted))
	}
}

func TestFix_FragmentWithComponent(t *testing.T) {
	in := "<ul>\n<li><Badge /></li>\n</ul>\n"
	got, r := fix(t, in, NewPolicy("ul"), Options{})
	if got != in {
		t.Errorf("expected fragment kept, got %q", got)
	}
	if len(r.Diagnostics) == 0 || r.Diagnostics[0].Severity != doctree.SeverityInfo {
		t.Errorf("expected an info diagnostic, got %v", r.Diagnostics)
	}
}

func TestFix_Report(t *testing.T) {
	_, r := fix(t, "text</span>more <i>x\n", Policy{}, Options{})
	if r.Count(Stray) != 1 || r.Count(Repaired) != 1 {
		t.Fatalf("unexpected outcomes %+v", r.Outcomes)
	}
	var warned bool
	for _, d := range r.Diagnostics {
		if d.Severity == doctree.SeverityWarning && strings.Contains(d.Message, "</span>") {
			warned = true
			if d.Pos.Line != 1 || d.Pos.Column != 5 {
				t.Errorf("expected warning at 1:5, got %s", d.Pos)
			}
		}
	}
	if !warned {
		t.Errorf("expected a warning for the stray tag, got %v", r.Diagnostics)
	}
}

func TestFix_Idempotent(t *testing.T) {
	inputs := []string{
		"a <em>word</em> and <span>open\n",
		"a <em>b\n",
		"x <b>y\n\n</b> z\n",
		"<div>unclosed paragraph\n\n# Heading\n",
		"<section>\n\n<div>\n\ntext\n",
		"line1<br>line2\n\n<hr>\n",
	}
	policy := NewPolicy("em", "b", "br", "hr")
	for _, in := range inputs {
		once, _ := fix(t, in, policy, Options{})
		twice, r := fix(t, once, policy, Options{})
		if twice != once {
			t.Errorf("second run changed output:\nonce  %q\ntwice %q", once, twice)
		}
		if r.Count(Repaired) != 0 || r.Count(Converted) != 0 {
			t.Errorf("second run still rewrote %q: %+v", once, r.Outcomes)
		}
	}
}

func TestFix_Balanced(t *testing.T) {
	in := "<div>\n\n<section>\n\na <span><b>x</span>\n\n# H\n"
	got, _ := fix(t, in, Policy{}, Options{})
	for _, name := range []string{"div", "section", "span", "b"} {
		opens := strings.Count(got, "<"+name+">")
		closes := strings.Count(got, "</"+name+">")
		if opens != closes {
			t.Errorf("%s: %d opening vs %d closing tags in %q", name, opens, closes, got)
		}
	}
}

func TestFix_RepairedOutcome(t *testing.T) {
	_, r := fix(t, "a <em>b\n", NewPolicy("em"), Options{})
	if r.Count(Repaired) != 1 || r.Count(Converted) != 1 {
		t.Errorf("expected the tag repaired then converted, got %+v", r.Outcomes)
	}

	_, r = fix(t, "a <span>b\n", Policy{}, Options{})
	if r.Count(Unchanged) != 0 || r.Count(Repaired) != 1 {
		t.Errorf("expected a single repaired outcome, got %+v", r.Outcomes)
	}
}

func TestFix_FragmentRepaired(t *testing.T) {
	got, r := fix(t, "<ul>\n\n<li>a</li>\n", NewPolicy("ul"), Options{})
	if strings.Contains(got, "<") {
		t.Errorf("expected the repaired list converted, got %q", got)
	}
	if r.Count(Repaired) != 1 || r.Count(Converted) != 1 {
		t.Errorf("unexpected outcomes %+v", r.Outcomes)
	}
}

func TestFix_OutcomeDepth(t *testing.T) {
	_, r := fix(t, "a <span><b>x</b></span>\n", Policy{}, Options{})
	depth := map[string]int{}
	for _, o := range r.Outcomes {
		depth[o.Tag] = o.Depth
	}
	if depth["<span>"] != 0 || depth["<b>"] != 1 {
		t.Errorf("unexpected depths %v", depth)
	}
}
