package kvstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSortedGenerationsIgnoresJunk(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1.log", "2.log", "10.log", "3.tmp", "notanumber.log", "4.txt", "5.log.bak"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	gens, err := sortedGenerations(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint64{1, 2, 10}
	if len(gens) != len(want) {
		t.Fatalf("sortedGenerations = %v, want %v", gens, want)
	}
	for i := range want {
		if gens[i] != want[i] {
			t.Fatalf("sortedGenerations = %v, want %v", gens, want)
		}
	}
}

func TestOpenWriterAppendsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	w1, err := openWriter(dir, 1, blessed)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w1.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	w1.Close()

	w2, err := openWriter(dir, 1, blessed)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w2.Write([]byte("world")); err != nil {
		t.Fatal(err)
	}
	w2.Close()

	got, err := os.ReadFile(generationPath(dir, 1, blessed))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "helloworld" {
		t.Fatalf("file contents = %q, want %q", got, "helloworld")
	}
}

func TestRenameGeneration(t *testing.T) {
	dir := t.TempDir()
	w, err := openWriter(dir, 1, temporary)
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("data"))
	w.Close()
	if err := renameGeneration(dir, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(generationPath(dir, 1, temporary)); !os.IsNotExist(err) {
		t.Fatal("temporary file still exists after rename")
	}
	if _, err := os.Stat(generationPath(dir, 1, blessed)); err != nil {
		t.Fatalf("blessed file missing after rename: %v", err)
	}
}
