package parser

import (
	"bytes"
	"sort"

	"github.com/dgallion1/mdxprep/internal/doctree"
)

// lineIndex maps byte offsets of a source buffer to lines. Every line
// includes its terminating newline, so lines tile the buffer exactly.
type lineIndex struct {
	src    []byte
	starts []int
	// base is the number of file lines that precede src (frontmatter).
	base int
}

func newLineIndex(src []byte, base int) *lineIndex {
	idx := &lineIndex{src: src, base: base}
	if len(src) == 0 {
		return idx
	}
	idx.starts = append(idx.starts, 0)
	for i, c := range src {
		if c == '\n' && i+1 < len(src) {
			idx.starts = append(idx.starts, i+1)
		}
	}
	return idx
}

func (l *lineIndex) count() int { return len(l.starts) }

func (l *lineIndex) start(i int) int { return l.starts[i] }

func (l *lineIndex) end(i int) int {
	if i+1 < len(l.starts) {
		return l.starts[i+1]
	}
	return len(l.src)
}

func (l *lineIndex) line(i int) []byte { return l.src[l.start(i):l.end(i)] }

func (l *lineIndex) blank(i int) bool { return doctree.IsBlank(l.line(i)) }

// lineOf returns the line containing byte offset off.
func (l *lineIndex) lineOf(off int) int {
	i := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > off })
	return max(i-1, 0)
}

// nextNonBlank returns the first non-blank line at or after from.
func (l *lineIndex) nextNonBlank(from int) int {
	for i := from; i < l.count(); i++ {
		if !l.blank(i) {
			return i
		}
	}
	return l.count()
}

func (l *lineIndex) pos(off int) doctree.Span {
	if len(l.starts) == 0 {
		return doctree.Span{Line: l.base + 1, Column: 1}
	}
	i := l.lineOf(off)
	return doctree.Span{Line: l.base + i + 1, Column: off - l.starts[i] + 1}
}

func countLines(b []byte) int {
	return bytes.Count(b, []byte("\n"))
}
