package fileset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, name, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"index.md",
		"docs/guide.mdx",
		"docs/notes.markdown",
		"docs/image.png",
		"drafts/wip.md",
		"node_modules/pkg/readme.md",
		".git/info.md",
		"docs/skip.draft.md",
	} {
		writeFile(t, root, name, "x")
	}

	d := Dir{Root: root, Exclude: []string{"drafts", "*.draft.md"}}
	got, err := d.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"docs/guide.mdx", "docs/notes.markdown", "index.md"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestList_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Dir{Root: root}).List(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestReadWrite(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/a.md", "before")
	if err := os.Chmod(filepath.Join(root, "docs", "a.md"), 0o600); err != nil {
		t.Fatal(err)
	}

	d := Dir{Root: root}
	if err := d.Write("docs/a.md", "after"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := d.Read("docs/a.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "after" {
		t.Errorf("expected %q, got %q", "after", got)
	}

	info, err := os.Stat(filepath.Join(root, "docs", "a.md"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected mode 0600 to be kept, got %v", info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Join(root, "docs"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no temporary files left behind, got %d entries", len(entries))
	}
}

func TestRead_Missing(t *testing.T) {
	if _, err := (Dir{Root: t.TempDir()}).Read("nope.md"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
