package parser

import (
	"bytes"
	"fmt"

	"github.com/adrg/frontmatter"
)

// splitFrontMatter separates a leading YAML (---) or TOML (+++) header from
// the Markdown body. The header is returned verbatim and also decoded so
// that malformed metadata is reported instead of being parsed as Markdown.
func splitFrontMatter(src []byte) (front []byte, meta map[string]any, body []byte, err error) {
	end := frontMatterEnd(src)
	if end < 0 {
		return nil, nil, src, nil
	}

	front = src[:end]
	meta = map[string]any{}
	if _, err := frontmatter.Parse(bytes.NewReader(front), &meta); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: frontmatter: %v", ErrParse, err)
	}
	return front, stringKeys(meta).(map[string]any), src[end:], nil
}

// stringKeys converts the map[any]any values YAML produces for nested
// mappings into map[string]any so metadata can be encoded as JSON.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = stringKeys(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = stringKeys(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = stringKeys(e)
		}
		return t
	}
	return v
}

// frontMatterEnd returns the offset just past the closing delimiter line, or
// -1 when src does not open with a delimiter that is closed later.
func frontMatterEnd(src []byte) int {
	first, rest, ok := bytes.Cut(src, []byte("\n"))
	if !ok {
		return -1
	}
	delim := bytes.TrimRight(first, " \t\r")
	if !bytes.Equal(delim, []byte("---")) && !bytes.Equal(delim, []byte("+++")) {
		return -1
	}

	off := len(first) + 1
	for len(rest) > 0 {
		line, next, found := bytes.Cut(rest, []byte("\n"))
		lineLen := len(line)
		if found {
			lineLen++
		}
		if bytes.Equal(bytes.TrimRight(line, " \t\r"), delim) {
			return off + lineLen
		}
		off += lineLen
		rest = next
	}
	return -1
}
