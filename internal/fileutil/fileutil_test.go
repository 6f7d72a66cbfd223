package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	payload := []byte("not really a jpeg but good enough")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("copied content mismatch")
	}
}

func TestListRegularFilesSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"metadata.json", "frame_0002.jpg", "frame_0001.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files, err := ListRegularFiles(dir)
	if err != nil {
		t.Fatalf("ListRegularFiles: %v", err)
	}
	want := []string{"frame_0001.jpg", "frame_0002.jpg", "metadata.json"}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %d: %v", len(want), len(files), files)
	}
	for i, name := range want {
		if filepath.Base(files[i]) != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, filepath.Base(files[i]))
		}
	}
}

func TestRemoveDirIfExistsOnMissingDir(t *testing.T) {
	if err := RemoveDirIfExists(filepath.Join(t.TempDir(), "never-created")); err != nil {
		t.Fatalf("expected success for missing directory, got %v", err)
	}
}

func TestRemoveDirIfExistsDeletesContents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "frame_0001.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := RemoveDirIfExists(dir); err != nil {
		t.Fatalf("RemoveDirIfExists: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("directory should be gone, stat err = %v", err)
	}
}
