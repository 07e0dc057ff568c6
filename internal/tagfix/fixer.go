// Package tagfix implements the tag repair pass. Every managed HTML tag is
// resolved against a Policy: balanced optional tags with a Markdown form are
// converted, dangling opening tags get a synthesized closing tag, and stray
// closing tags are dropped or reported.
package tagfix

import (
	"fmt"

	"github.com/dgallion1/mdxprep/internal/doctree"
)

// Resolution is what happened to one tag.
type Resolution int

const (
	// Unchanged tags were left exactly as written.
	Unchanged Resolution = iota
	// Converted tags were replaced by Markdown.
	Converted
	// Repaired tags got a synthesized closing tag.
	Repaired
	// Normalized void tags were rewritten in self-closing form.
	Normalized
	// Dropped stray closing tags were removed.
	Dropped
	// Stray closing tags were kept verbatim with a warning.
	Stray
)

var resolutionNames = [...]string{
	Unchanged:  "unchanged",
	Converted:  "converted",
	Repaired:   "repaired",
	Normalized: "normalized",
	Dropped:    "dropped",
	Stray:      "stray",
}

func (r Resolution) String() string {
	if r >= 0 && int(r) < len(resolutionNames) {
		return resolutionNames[r]
	}
	return fmt.Sprintf("Resolution(%d)", int(r))
}

func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Outcome records the resolution of a single tag.
type Outcome struct {
	Tag        string       `json:"tag"`
	Resolution Resolution   `json:"resolution"`
	Pos        doctree.Span `json:"pos"`
	// Depth is the number of tags of the same scope enclosing this one.
	Depth int `json:"depth"`
}

// Report collects the outcomes and diagnostics of one Fix call.
type Report struct {
	Outcomes    []Outcome            `json:"outcomes"`
	Diagnostics []doctree.Diagnostic `json:"diagnostics"`
}

// Count returns the number of outcomes with the given resolution.
func (r *Report) Count(res Resolution) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Resolution == res {
			n++
		}
	}
	return n
}

func (r *Report) record(e *entry, res Resolution) {
	r.Outcomes = append(r.Outcomes, Outcome{Tag: e.tag.Raw, Resolution: res, Pos: e.tile.Pos, Depth: e.tag.Depth})
}

func (r *Report) note(pos doctree.Span, sev doctree.Severity, format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, doctree.Diagnostic{
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
		Severity: sev,
	})
}

// Options tune the pass.
type Options struct {
	// DropStrayClosing removes every stray closing tag instead of only the
	// ones for optional body-less tags.
	DropStrayClosing bool
}

// Fixer runs the tag repair pass. A Fixer holds no per-document state, but
// it is not meant to be shared between goroutines.
type Fixer struct {
	policy Policy
	opts   Options
}

// New returns a Fixer for policy.
func New(policy Policy, opts Options) *Fixer {
	return &Fixer{policy: policy, opts: opts}
}

// Fix rewrites doc in place. Inline containers are each resolved on their
// own first; the tags of top-level HTML blocks are then resolved together
// as one document scope.
func (f *Fixer) Fix(doc *doctree.Document) (Report, error) {
	var r Report
	root := doc.Root

	blocks := append([]*doctree.Node(nil), root.Children...)
	for _, n := range blocks {
		if n.Parent != root {
			return r, fmt.Errorf("%w: %s at %s has no parent", doctree.ErrStructure, n.Kind, n.Pos)
		}
		if mode, ok := inlineModes[n.Kind]; ok {
			f.fixInline(n, mode, &r)
		}
	}
	f.fixBlocks(root, &r)

	return r, doctree.CheckParents(root)
}

// managed tags take part in matching. Everything else passes through.
func (f *Fixer) managed(t *doctree.HTMLTag) bool {
	return isStandard(t) || f.policy.IsOptional(t.Name)
}

// convertible reports whether t may be replaced by Markdown.
func (f *Fixer) convertible(t *doctree.HTMLTag) bool {
	return !isComponent(t) && f.policy.IsOptional(t.Name) && hasConversion(t.Name)
}

// droppable reports whether a stray closing tag may be removed.
func (f *Fixer) droppable(t *doctree.HTMLTag) bool {
	if f.opts.DropStrayClosing {
		return true
	}
	return !isComponent(t) && f.policy.IsOptional(t.Name) && bodyless[t.Name]
}

// normalize rewrites a void tag written as a plain opening tag in
// self-closing form.
func (f *Fixer) normalize(e *entry, r *Report) {
	if e.tag.Form != doctree.FormOpen {
		r.record(e, Unchanged)
		return
	}
	e.tile.SetLiteral([]byte(selfClosing(e.tag.Raw)))
	r.record(e, Normalized)
}

// unchanged records a pair left as HTML. A repaired pair already has its
// outcome.
func (f *Fixer) unchanged(e *entry, r *Report) {
	if !e.repaired {
		r.record(e, Unchanged)
	}
}

// skipped notes an optional tag that had to stay HTML.
func (f *Fixer) skipped(e *entry, r *Report) {
	if f.convertible(e.tag) {
		r.note(e.tile.Pos, doctree.SeverityInfo, "kept %s as HTML: its content has no Markdown form", e.tag.Raw)
	}
}

func (f *Fixer) stray(e *entry, r *Report, drop func()) {
	if f.droppable(e.tag) {
		drop()
		r.record(e, Dropped)
		r.note(e.tile.Pos, doctree.SeverityInfo, "dropped stray closing tag %s", e.tag.Raw)
		return
	}
	r.record(e, Stray)
	r.note(e.tile.Pos, doctree.SeverityWarning, "closing tag %s has no matching opening tag", e.tag.Raw)
}

func (f *Fixer) repaired(e *entry, r *Report) {
	e.repaired = true
	r.record(e, Repaired)
	r.note(e.tile.Pos, doctree.SeverityInfo, "inserted missing %s for %s", e.tag.ClosingTag(), e.tag.Raw)
}

// closingTile builds the synthesized closing tag for the opening tag e.
func closingTile(e *entry) *doctree.Node {
	raw := e.tag.ClosingTag()
	n := doctree.NewNode(doctree.KindHTMLInline, []byte(raw))
	n.Pos = e.tile.Pos
	n.Tag = &doctree.HTMLTag{
		Raw:     raw,
		Name:    e.tag.Name,
		RawName: e.tag.RawName,
		Form:    doctree.FormClose,
		Depth:   e.tag.Depth,
	}
	return n
}
