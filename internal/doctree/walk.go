package doctree

import "bytes"

// WalkStatus controls traversal.
type WalkStatus int

const (
	WalkContinue WalkStatus = iota
	WalkSkipChildren
	WalkStop
)

// Walker is called twice per node: once entering and once leaving.
type Walker func(n *Node, entering bool) WalkStatus

// Walk visits n and its descendants in document order.
func Walk(n *Node, fn Walker) WalkStatus {
	status := fn(n, true)
	if status == WalkStop {
		return WalkStop
	}
	if status != WalkSkipChildren {
		// Copy so callers may mutate the children they are visiting.
		children := append([]*Node(nil), n.Children...)
		for _, c := range children {
			if Walk(c, fn) == WalkStop {
				return WalkStop
			}
		}
	}
	return fn(n, false)
}

// Find returns the nodes below n (inclusive) of the given kind in document
// order.
func Find(n *Node, kind Kind) []*Node {
	var out []*Node
	Walk(n, func(c *Node, entering bool) WalkStatus {
		if entering && c.Kind == kind {
			out = append(out, c)
		}
		return WalkContinue
	})
	return out
}

// IsBlank reports whether b holds only spaces, tabs and line endings.
func IsBlank(b []byte) bool {
	return len(bytes.TrimLeft(b, " \t\r\n")) == 0
}

// TrailingSpace returns the number of trailing whitespace bytes in b.
func TrailingSpace(b []byte) int {
	return len(b) - len(bytes.TrimRight(b, " \t\r\n"))
}

// SplitText splits the Text tile at position i of parent at byte offset off
// and returns the index of the right-hand part. Offsets at either edge are
// no-ops that return the index where a node inserted at off should go.
func SplitText(parent *Node, i, off int) int {
	t := parent.Children[i]
	if off <= 0 {
		return i
	}
	if off >= len(t.Literal) {
		return i + 1
	}
	left := &Node{Kind: t.Kind, Literal: bytes.Clone(t.Literal[:off]), Pos: t.Pos}
	right := &Node{Kind: t.Kind, Literal: bytes.Clone(t.Literal[off:]), Pos: Advance(t.Pos, t.Literal[:off])}
	parent.ReplaceChildren(i, i+1, left, right)
	return i + 1
}

// Slice returns detached copies of the tiles of parent covering the byte
// range [from, to) of its rendered text, splitting Text tiles at the edges.
// HTML tiles are never split: a tile that straddles an edge is included
// whole.
func Slice(parent *Node, from, to int) []*Node {
	var out []*Node
	off := 0
	for _, c := range parent.Children {
		lit := c.Render()
		start, end := off, off+len(lit)
		off = end
		if end <= from || start >= to {
			continue
		}
		if c.Kind != KindText || (start >= from && end <= to) {
			cp := *c
			cp.Parent = nil
			cp.Literal = lit
			cp.modified = false
			cp.Children = nil
			out = append(out, &cp)
			continue
		}
		lo, hi := max(from, start)-start, min(to, end)-start
		out = append(out, &Node{Kind: KindText, Literal: bytes.Clone(lit[lo:hi]), Pos: Advance(c.Pos, lit[:lo])})
	}
	return out
}

// Advance moves pos past the bytes in b.
func Advance(pos Span, b []byte) Span {
	for _, c := range b {
		if c == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
	}
	return pos
}
