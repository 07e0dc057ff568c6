package doctree

import "strings"

// TagForm distinguishes the syntactic shapes of an HTML tag.
type TagForm int

const (
	// FormOther covers comments, declarations and processing instructions.
	FormOther TagForm = iota
	FormOpen
	FormClose
	FormSelfClosing
)

func (f TagForm) String() string {
	switch f {
	case FormOpen:
		return "open"
	case FormClose:
		return "close"
	case FormSelfClosing:
		return "self-closing"
	default:
		return "other"
	}
}

// Attr is a single tag attribute.
type Attr struct {
	Key string
	Val string
}

// HTMLTag describes the tag held by an HTMLInline tile.
type HTMLTag struct {
	Raw string
	// Name is lowercased; RawName keeps the source letter case so that JSX
	// component names survive synthesized closing tags.
	Name    string
	RawName string
	Form    TagForm
	Attrs   []Attr
	// Depth is the number of tags still open in the same scope when this
	// tag was seen.
	Depth int
}

// Attr returns the value of the named attribute.
func (t *HTMLTag) Attr(key string) (string, bool) {
	for _, a := range t.Attrs {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// ClosingTag returns the closing form of t using its source letter case.
func (t *HTMLTag) ClosingTag() string {
	name := t.RawName
	if name == "" {
		name = t.Name
	}
	return "</" + name + ">"
}
