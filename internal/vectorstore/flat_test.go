package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFlatIndex_AddAndSearch(t *testing.T) {
	idx, err := NewFlatIndex(4)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	ids := []string{"a", "b", "c"}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
	if err := idx.Add(ctx, ids, vectors); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("size: got %d, want 3", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{0, 1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	if results[0].ID != "b" {
		t.Errorf("top result: got %s, want b", results[0].ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("results should be ordered by descending score")
	}
}

func TestFlatIndex_SearchKLargerThanSize(t *testing.T) {
	idx, err := NewFlatIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"only"}, [][]float32{{1, 0}}); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("results: got %d, want 1", len(results))
	}
}

func TestFlatIndex_SaveAndOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "idx.bin")

	idx, err := NewFlatIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"x", "y"}, [][]float32{{1, 0, 0}, {0, 0, 1}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := OpenFlatIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 || loaded.Dimensions() != 3 {
		t.Errorf("loaded size=%d dims=%d", loaded.Size(), loaded.Dimensions())
	}
	results, err := loaded.Search(ctx, []float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "y" {
		t.Errorf("results: %+v", results)
	}
}

func TestOpenFlatIndex_Corrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bin")
	if err := os.WriteFile(path, []byte("not an index"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFlatIndex(path); err == nil {
		t.Error("expected error for corrupt artifact")
	}
}

func TestOpenFlatIndex_Missing(t *testing.T) {
	if _, err := OpenFlatIndex(filepath.Join(t.TempDir(), "nope.bin")); err == nil {
		t.Error("expected error for missing artifact")
	}
}

func TestFlatIndex_AddDimensionMismatch(t *testing.T) {
	idx, err := NewFlatIndex(4)
	if err != nil {
		t.Fatal(err)
	}
	err = idx.Add(context.Background(), []string{"a"}, [][]float32{{1, 0}})
	if err == nil {
		t.Error("expected dimension mismatch error")
	}
}
