package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TRACK01.MUS")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindCaseInsensitive(dir, "track01.mus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Fatalf("got %q, want %q", got, path)
	}
}

func TestFindCaseInsensitiveMissing(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindCaseInsensitive(dir, "missing.mid"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadScoreFileExactMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mid")
	want := []byte("MThd")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadScoreFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReadScoreFileCaseFallback(t *testing.T) {
	dir := t.TempDir()
	actual := filepath.Join(dir, "SONG.MID")
	want := []byte("MThd")
	if err := os.WriteFile(actual, want, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadScoreFile(filepath.Join(dir, "song.mid"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}
