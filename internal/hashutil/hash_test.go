package hashutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSHA256FileKnownVector(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := SHA256File(path)
	if err != nil {
		t.Fatalf("SHA256File: %v", err)
	}

	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestSHA256FileIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video.bin")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 100000)), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	first, err := SHA256File(path)
	if err != nil {
		t.Fatalf("SHA256File (first): %v", err)
	}
	second, err := SHA256File(path)
	if err != nil {
		t.Fatalf("SHA256File (second): %v", err)
	}

	if first != second {
		t.Fatalf("hash not idempotent: %s != %s", first, second)
	}
}

func TestSHA256FileMissing(t *testing.T) {
	_, err := SHA256File(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSHA256FileLowercaseHex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	if err := os.WriteFile(path, []byte{0xAB, 0xCD, 0xEF}, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := SHA256File(path)
	if err != nil {
		t.Fatalf("SHA256File: %v", err)
	}
	if got != strings.ToLower(got) {
		t.Fatalf("expected lowercase hex digest, got %s", got)
	}
}
