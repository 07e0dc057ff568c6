package pipeline

import (
	"fmt"

	"github.com/dgallion1/mdxprep/internal/doctree"
	"github.com/dgallion1/mdxprep/internal/linebreak"
	"github.com/dgallion1/mdxprep/internal/parser"
	"github.com/dgallion1/mdxprep/internal/tagfix"
)

// Option tunes Process and Pass2.
type Option func(*tagfix.Options)

// WithDropStrayClosing removes every stray closing tag instead of reporting
// the ones that carry no Markdown equivalent.
func WithDropStrayClosing(drop bool) Option {
	return func(o *tagfix.Options) { o.DropStrayClosing = drop }
}

// Result is the outcome of a full two-pass run over one document.
type Result struct {
	Text        string               `json:"text"`
	Changed     bool                 `json:"changed"`
	Diagnostics []doctree.Diagnostic `json:"diagnostics"`
	LineBreaks  linebreak.Stats      `json:"line_breaks"`
	Tags        []tagfix.Outcome     `json:"tags"`
	// Meta is the decoded frontmatter, nil when the document has none.
	Meta map[string]any `json:"meta,omitempty"`
}

// Process runs both passes over text. Each pass parses its input into a
// fresh tree, so the second pass sees the blank lines the first one added.
// On error no text is returned.
func Process(text string, policy tagfix.Policy, opts ...Option) (Result, error) {
	mid, breaks, err := pass1(text)
	if err != nil {
		return Result{}, err
	}
	out, report, meta, err := pass2(mid, policy, opts)
	if err != nil {
		return Result{}, err
	}
	diags := report.Diagnostics
	if diags == nil {
		diags = []doctree.Diagnostic{}
	}
	return Result{
		Text:        out,
		Changed:     out != text,
		Diagnostics: diags,
		LineBreaks:  breaks,
		Tags:        report.Outcomes,
		Meta:        meta,
	}, nil
}

// Pass1 puts every block-level HTML tag on its own lines between blank
// lines.
func Pass1(text string) (string, error) {
	out, _, err := pass1(text)
	return out, err
}

// Pass2 converts or repairs HTML tags according to policy.
func Pass2(text string, policy tagfix.Policy, opts ...Option) (string, []doctree.Diagnostic, error) {
	out, report, _, err := pass2(text, policy, opts)
	if err != nil {
		return "", nil, err
	}
	return out, report.Diagnostics, nil
}

func pass1(text string) (string, linebreak.Stats, error) {
	doc, err := parser.Parse([]byte(text))
	if err != nil {
		return "", linebreak.Stats{}, fmt.Errorf("line breaks: %w", err)
	}
	stats, err := linebreak.Insert(doc)
	if err != nil {
		return "", stats, fmt.Errorf("line breaks: %w", err)
	}
	return string(doctree.Render(doc)), stats, nil
}

func pass2(text string, policy tagfix.Policy, opts []Option) (string, tagfix.Report, map[string]any, error) {
	var o tagfix.Options
	for _, opt := range opts {
		opt(&o)
	}
	doc, err := parser.Parse([]byte(text))
	if err != nil {
		return "", tagfix.Report{}, nil, fmt.Errorf("tag fix: %w", err)
	}
	report, err := tagfix.New(policy, o).Fix(doc)
	if err != nil {
		return "", report, nil, fmt.Errorf("tag fix: %w", err)
	}
	return string(doctree.Render(doc)), report, doc.Meta, nil
}
