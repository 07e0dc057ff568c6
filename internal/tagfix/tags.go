package tagfix

import (
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/mdxprep/internal/doctree"
	"golang.org/x/net/html/atom"
)

// voidTags never take a closing tag.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// bodyless tags have a Markdown form that needs no content, so a stray
// closing tag for one of them carries nothing worth keeping.
var bodyless = map[string]bool{"br": true, "hr": true, "img": true}

// precedence ranks container tags; a higher rank encloses a lower one.
// Standard elements not listed are inline (10); custom components rank
// with div.
var precedence = map[string]int{
	"html": 100,
	"head": 95, "body": 95,
	"main": 80, "article": 80, "section": 80, "aside": 80, "nav": 80, "header": 80, "footer": 80,
	"div": 70, "form": 70, "figure": 70, "details": 70, "fieldset": 70, "table": 70, "blockquote": 70, "center": 70,
	"ul": 60, "ol": 60, "dl": 60, "thead": 60, "tbody": 60, "tfoot": 60,
	"tr": 50, "li": 50, "dt": 50, "dd": 50, "summary": 50, "figcaption": 50, "caption": 50, "legend": 50,
	"td": 40, "th": 40, "p": 40, "pre": 40,
	"h1": 40, "h2": 40, "h3": 40, "h4": 40, "h5": 40, "h6": 40,
}

const (
	inlinePrecedence    = 10
	componentPrecedence = 70
)

// inlineConversion maps an optional tag to Markdown delimiters.
type inlineConversion struct {
	kind        doctree.Kind
	open, close string
}

var inlineConversions = map[string]inlineConversion{
	"em":     {doctree.KindEmphasis, "*", "*"},
	"i":      {doctree.KindEmphasis, "*", "*"},
	"strong": {doctree.KindStrong, "**", "**"},
	"b":      {doctree.KindStrong, "**", "**"},
	"del":    {doctree.KindDelete, "~~", "~~"},
	"s":      {doctree.KindDelete, "~~", "~~"},
	"strike": {doctree.KindDelete, "~~", "~~"},
	"code":   {doctree.KindCodeSpan, "`", "`"},
	"a":      {doctree.KindLink, "[", "]"},
}

var headingLevels = map[string]int{"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6}

// fragmentKinds are block elements converted as a whole HTML fragment when
// every block between the tags is HTML.
var fragmentKinds = map[string]doctree.Kind{
	"ul":         doctree.KindList,
	"ol":         doctree.KindList,
	"blockquote": doctree.KindBlockquote,
}

// hasConversion reports whether name has any Markdown form.
func hasConversion(name string) bool {
	_, inline := inlineConversions[name]
	_, fragment := fragmentKinds[name]
	return inline || fragment || bodyless[name] || headingLevels[name] > 0
}

// convertedKinds are inline Markdown constructs produced by the fixer.
var convertedKinds = map[doctree.Kind]bool{
	doctree.KindEmphasis:  true,
	doctree.KindStrong:    true,
	doctree.KindDelete:    true,
	doctree.KindCodeSpan:  true,
	doctree.KindLink:      true,
	doctree.KindImage:     true,
	doctree.KindHardBreak: true,
}

// isComponent reports whether the tag is a JSX component. Components are
// capitalized and never get HTML semantics, even when their lowercased
// name collides with an element such as <Link>.
func isComponent(t *doctree.HTMLTag) bool {
	r, _ := utf8.DecodeRuneInString(t.RawName)
	return unicode.IsUpper(r)
}

func isStandard(t *doctree.HTMLTag) bool {
	return !isComponent(t) && atom.Lookup([]byte(t.Name)) != 0
}

func isVoid(t *doctree.HTMLTag) bool {
	return isStandard(t) && voidTags[t.Name]
}

func tagPrecedence(t *doctree.HTMLTag) int {
	if !isStandard(t) {
		return componentPrecedence
	}
	if p, ok := precedence[t.Name]; ok {
		return p
	}
	return inlinePrecedence
}

// BlockLevel reports whether t is a container that encloses blocks rather
// than inline text. Components and custom elements count as block level.
func BlockLevel(t *doctree.HTMLTag) bool {
	return tagPrecedence(t) > inlinePrecedence
}
