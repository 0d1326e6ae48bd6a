package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestIsSpecFile(t *testing.T) {
	cases := map[string]bool{
		"spec.md":        true,
		"SPEC.MD":        true,
		"notes.markdown": true,
		"readme.txt":     false,
		"plan.yaml":      false,
	}
	for name, want := range cases {
		if got := IsSpecFile(name); got != want {
			t.Errorf("IsSpecFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestCollectSpecFilesFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"))
	writeFile(t, filepath.Join(dir, "sub", "b.md"))
	writeFile(t, filepath.Join(dir, "ignore.txt"))
	writeFile(t, filepath.Join(dir, ".git", "c.md"))

	files, err := CollectSpecFiles([]string{dir})
	if err != nil {
		t.Fatalf("CollectSpecFiles failed: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 spec files, got %v", files)
	}
	if filepath.Base(files[0]) != "a.md" || filepath.Base(files[1]) != "b.md" {
		t.Errorf("unexpected files: %v", files)
	}
}

func TestCollectSpecFilesDeduplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	writeFile(t, path)

	files, err := CollectSpecFiles([]string{path, path, dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Errorf("expected deduplicated result, got %v", files)
	}
}

func TestCollectSpecFilesMissingPath(t *testing.T) {
	if _, err := CollectSpecFiles([]string{filepath.Join(t.TempDir(), "absent")}); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestCollectSpecFilesNoneFound(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "only.txt"))

	if _, err := CollectSpecFiles([]string{dir}); err == nil {
		t.Fatal("expected error when no spec files match")
	}
}
