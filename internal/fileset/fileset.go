// Package fileset is the file collaborator of the batch runner: it lists
// the Markdown files below a directory and reads and rewrites them.
package fileset

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/dgallion1/mdxprep/internal/parser"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{"node_modules": true, ".git": true}

// Dir is a tree of Markdown files. Names are slash-separated and relative
// to Root.
type Dir struct {
	Root string
	// Exclude holds glob patterns matched against relative names and base
	// names; a matching directory is skipped whole.
	Exclude []string
}

// List returns the Markdown files below Root in lexical order.
func (d Dir) List(ctx context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if entry.IsDir() {
			if rel != "." && (skipDirs[entry.Name()] || d.excluded(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || !parser.IsMarkdownFile(rel) || d.excluded(rel) {
			return nil
		}
		names = append(names, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", d.Root, err)
	}
	sort.Strings(names)
	return names, nil
}

func (d Dir) excluded(rel string) bool {
	base := filepath.Base(rel)
	for _, pattern := range d.Exclude {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func (d Dir) path(name string) string {
	return filepath.Join(d.Root, filepath.FromSlash(name))
}

// Read returns the contents of name.
func (d Dir) Read(name string) (string, error) {
	b, err := os.ReadFile(d.path(name))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(b), nil
}

// Write replaces the contents of name. The text goes to a temporary file in
// the same directory first and is renamed over the original, so a failed
// write never leaves a truncated file. The file mode is kept.
func (d Dir) Write(name, text string) error {
	target := d.path(name)
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".mdxprep-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
