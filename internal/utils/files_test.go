package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFileReplacesContent(t *testing.T) {
	p := filepath.Join(t.TempDir(), "state.json")
	if err := SafeWriteFile(p, []byte("one")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := SafeWriteFile(p, []byte("two")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "two" {
		t.Fatalf("got %q", b)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestExpandPathsGlobAndDedup(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.csv", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	got := ExpandPaths([]string{
		filepath.Join(dir, "*.csv"),
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "missing.csv"),
	})
	want := []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
