package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entry.gpg")

	if err := WriteFileAtomic(path, []byte("first"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic overwrite failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestWriteFileAtomicFailedRenameKeepsOldContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entry.gpg")
	if err := os.WriteFile(path, []byte("old"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	crash := errors.New("power loss")
	err := WriteFileAtomicWith(path, []byte("new"), 0600, func(string, string) error { return crash })
	if !errors.Is(err, crash) {
		t.Fatalf("expected rename error, got %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "old" {
		t.Errorf("content = %q, want old content preserved", got)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if IsTempFile(e.Name()) {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestIsTempFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".gmail.com.gpg.tmp-12345", true},
		{"gmail.com.gpg", false},
		{".gpg-id", false},
		{"notes.tmp-1", false},
		{".foo.tmp-x.gpg.meta", false},
		{".foo.tmp-12.gpg.meta", false},
		{".foo.tmp-12.gpg.meta.tmp-987", true},
		{".tmp-", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTempFile(tc.name); got != tc.want {
				t.Errorf("IsTempFile(%q) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestRemoveEmptyParents(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(deep, 0700); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "a", "keep"), nil, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := RemoveEmptyParents(deep, root, nil); err != nil {
		t.Fatalf("RemoveEmptyParents failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "a", "b")); !os.IsNotExist(err) {
		t.Errorf("expected a/b to be removed")
	}
	if _, err := os.Stat(filepath.Join(root, "a")); err != nil {
		t.Errorf("expected a to survive: %v", err)
	}
}

func TestRemoveEmptyParentsStopsAtKeep(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "work", "x")
	if err := os.MkdirAll(deep, 0700); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	keepWork := func(dir string) bool { return filepath.Base(dir) == "work" }
	if err := RemoveEmptyParents(deep, root, keepWork); err != nil {
		t.Fatalf("RemoveEmptyParents failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "work")); err != nil {
		t.Errorf("expected work to be kept: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root must never be removed: %v", err)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := Confirm(strings.NewReader(tc.input), "Overwrite?"); got != tc.want {
			t.Errorf("Confirm(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestDedupeAndSplitFields(t *testing.T) {
	got := Dedupe([]string{"a", "b", "a", "c", "b"})
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("Dedupe = %v", got)
	}
	if SplitFields("   ") != nil {
		t.Errorf("SplitFields of blanks should be nil")
	}
	if f := SplitFields(" K1  K2 "); len(f) != 2 || f[1] != "K2" {
		t.Errorf("SplitFields = %v", f)
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	got, err := ExpandHome("~/.password-store")
	if err != nil {
		t.Fatalf("ExpandHome failed: %v", err)
	}
	if got != "/home/tester/.password-store" {
		t.Errorf("ExpandHome = %q", got)
	}
	if got, _ := ExpandHome("/abs"); got != "/abs" {
		t.Errorf("ExpandHome(/abs) = %q", got)
	}
}
