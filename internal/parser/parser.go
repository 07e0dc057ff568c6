// Package parser turns Markdown source into a doctree.Document. goldmark
// classifies blocks and finds inline HTML; the tree itself is cut from the
// source lines so that rendering an untouched document is lossless.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/mdxprep/internal/doctree"
)

// ErrParse marks input that cannot be tokenized. It is fatal for the
// document only.
var ErrParse = errors.New("parse failure")

// SupportedExtensions lists the Markdown file extensions this service handles.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".mdx":      true,
	".markdown": true,
}

// IsMarkdownFile checks if a file extension is supported.
func IsMarkdownFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Parse converts Markdown source into a document tree.
func Parse(src []byte) (*doctree.Document, error) {
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("%w: input is not valid UTF-8", ErrParse)
	}

	front, meta, body, err := splitFrontMatter(src)
	if err != nil {
		return nil, err
	}

	doc := doctree.NewDocument()
	doc.FrontMatter = front
	doc.Meta = meta

	lines := newLineIndex(body, countLines(front))
	buildBlocks(doc.Root, body, lines)
	return doc, nil
}
