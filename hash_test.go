package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHasherDigestFileDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	writeFile(t, path, "hello")

	h := Hasher{}
	d1, err := h.Digest(path)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	d2, err := h.Digest(path)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if d1 != d2 {
		t.Errorf("digest should be deterministic: %s != %s", d1, d2)
	}
	if len(d1) != 32 {
		t.Errorf("expected 32-char hex MD5, got %q", d1)
	}
}

func TestHasherDigestChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	h := Hasher{}

	writeFile(t, path, "version 1")
	d1, _ := h.Digest(path)
	writeFile(t, path, "version 2")
	d2, _ := h.Digest(path)

	if d1 == d2 {
		t.Error("digest should change when content changes")
	}
}

func TestHasherDigestDirIsStructureSensitive(t *testing.T) {
	h := Hasher{}

	dirA := t.TempDir()
	writeFile(t, filepath.Join(dirA, "a.txt"), "content")

	dirB := t.TempDir()
	os.MkdirAll(filepath.Join(dirB, "sub"), 0755)
	writeFile(t, filepath.Join(dirB, "sub", "a.txt"), "content")

	dA, err := h.Digest(dirA)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	dB, err := h.Digest(dirB)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if dA == dB {
		t.Error("same file content at different relative paths should hash differently")
	}
}

func TestHasherDigestMissingPath(t *testing.T) {
	h := Hasher{}
	_, err := h.Digest(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected an error for a missing path")
	}
}

func TestHasherFollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	os.MkdirAll(target, 0755)
	writeFile(t, filepath.Join(target, "f.txt"), "content")

	link := filepath.Join(dir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	h := Hasher{}
	direct, err := h.Digest(target)
	if err != nil {
		t.Fatalf("Digest direct: %v", err)
	}
	viaLink, err := h.Digest(link)
	if err != nil {
		t.Fatalf("Digest via symlink: %v", err)
	}
	if direct != viaLink {
		t.Errorf("digest via symlink should match the target: %s != %s", viaLink, direct)
	}
}

func TestHasherSizeSumsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "12345")
	writeFile(t, filepath.Join(dir, "b.txt"), "1234567890")

	h := Hasher{}
	size, err := h.Size(dir)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 15 {
		t.Errorf("expected 15, got %d", size)
	}
}
