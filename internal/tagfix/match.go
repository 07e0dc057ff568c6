package tagfix

import (
	"sort"

	"github.com/dgallion1/mdxprep/internal/doctree"
)

// entry is one managed tag seen in a scope.
type entry struct {
	tile *doctree.Node
	tag  *doctree.HTMLTag
	seq  int

	// match links an opening tag and its closing tag.
	match *entry
	// before is set on an opening tag left open when an enclosing element
	// was closed; its closing tag belongs just before that one.
	before *entry
	stray  bool
	void   bool
	// repaired is set once a closing tag was synthesized for e.
	repaired bool
}

// matcher pairs opening and closing tags of one scope using a stack of
// pending opens per tag name.
type matcher struct {
	managed func(*doctree.HTMLTag) bool

	entries []*entry
	byTile  map[*doctree.Node]*entry
	stacks  map[string][]*entry
	open    []*entry
}

func newMatcher(managed func(*doctree.HTMLTag) bool) *matcher {
	return &matcher{
		managed: managed,
		byTile:  make(map[*doctree.Node]*entry),
		stacks:  make(map[string][]*entry),
	}
}

// MatchKey identifies a tag for matching. Component names are
// case-sensitive.
func MatchKey(t *doctree.HTMLTag) string {
	if isComponent(t) {
		return t.RawName
	}
	return t.Name
}

func (m *matcher) add(tile *doctree.Node) {
	t := tile.Tag
	if t == nil || t.Form == doctree.FormOther || t.Name == "" || !m.managed(t) {
		return
	}
	e := &entry{tile: tile, tag: t, seq: len(m.entries)}
	m.entries = append(m.entries, e)
	m.byTile[tile] = e
	t.Depth = len(m.open)

	k := MatchKey(t)
	switch {
	case t.Form == doctree.FormSelfClosing, t.Form == doctree.FormOpen && isVoid(t):
		e.void = true
	case t.Form == doctree.FormOpen:
		m.stacks[k] = append(m.stacks[k], e)
		m.open = append(m.open, e)
	default:
		stack := m.stacks[k]
		if len(stack) == 0 || isVoid(t) {
			e.stray = true
			return
		}
		opener := stack[len(stack)-1]
		m.stacks[k] = stack[:len(stack)-1]

		at := m.indexOpen(opener)
		for _, inner := range m.open[at+1:] {
			inner.before = e
			m.pop(inner)
		}
		m.open = m.open[:at]
		opener.match, e.match = e, opener
		t.Depth = at
	}
}

func (m *matcher) indexOpen(e *entry) int {
	for i, o := range m.open {
		if o == e {
			return i
		}
	}
	return -1
}

// pop removes e from its name stack after it was closed implicitly.
func (m *matcher) pop(e *entry) {
	k := MatchKey(e.tag)
	stack := m.stacks[k]
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == e {
			m.stacks[k] = append(stack[:i], stack[i+1:]...)
			return
		}
	}
}

// close pairs the opening tag e with a synthesized closing tile.
func (m *matcher) close(e *entry, tile *doctree.Node) {
	c := &entry{tile: tile, tag: tile.Tag, seq: len(m.entries), match: e}
	m.byTile[tile] = c
	e.match = c
}

// byClose returns the opening tags that have a closing tag, ordered by the
// position of that closing tag. Synthesized closing tags are included.
func (m *matcher) byClose() []*entry {
	var out []*entry
	for _, e := range m.entries {
		if e.match != nil && e.tag.Form == doctree.FormOpen {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return before(out[i].match.tile, out[j].match.tile)
	})
	return out
}

// before reports whether tile a comes before tile b in document order.
// Both must be attached to a container.
func before(a, b *doctree.Node) bool {
	pa, pb := a.Parent, b.Parent
	if pa != pb {
		return pa.Index() < pb.Index()
	}
	return a.Index() < b.Index()
}

// dangling returns the opening tags never closed, in document order.
func (m *matcher) dangling() []*entry {
	return m.open
}

// implicit returns the opening tags closed by an enclosing closing tag,
// innermost first.
func (m *matcher) implicit() []*entry {
	var out []*entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].before != nil {
			out = append(out, m.entries[i])
		}
	}
	return out
}
