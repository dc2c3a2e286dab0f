package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/embedding"
	"github.com/askdocs/askdocs/internal/loader"
	"github.com/askdocs/askdocs/internal/models"
	"github.com/askdocs/askdocs/internal/storage"
	"github.com/askdocs/askdocs/internal/vectorstore"
)

func newTestIngester(t *testing.T, deleteAfter bool) (*Ingester, storage.Storage, *vectorstore.Store) {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	vs := vectorstore.NewStore(dir, "test", embedding.NewMockEmbedder(8), logger)
	ld := loader.NewFileLoader(nil, logger)
	chunker := NewChunker(100, 20, logger)
	return NewIngester(ld, chunker, store, vs, deleteAfter, logger), store, vs
}

// threeParagraphs is sized so that each paragraph becomes exactly one chunk
// at size 100 / overlap 20.
const threeParagraphs = `The first paragraph describes the ingestion pipeline and how raw files are turned into text.

The second paragraph covers the chunking stage which bounds segments to a character budget.

The third paragraph explains how chunk embeddings end up in the persisted vector index on disk.`

func TestIngester_Success(t *testing.T) {
	ing, store, vs := newTestIngester(t, false)
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.txt")
	if err := os.WriteFile(path, []byte(threeParagraphs), 0600); err != nil {
		t.Fatal(err)
	}

	summary := ing.Ingest(context.Background(), path)
	if summary.Status != models.StatusOK {
		t.Fatalf("status: %s, errors: %v", summary.Status, summary.Errors)
	}
	if summary.File != path {
		t.Errorf("file: got %s", summary.File)
	}
	if summary.PagesLoaded != 1 {
		t.Errorf("pages_loaded: got %d, want 1", summary.PagesLoaded)
	}
	if summary.ChunksCreated != 3 {
		t.Errorf("chunks_created: got %d, want 3", summary.ChunksCreated)
	}
	if summary.IndexedCount != summary.ChunksCreated {
		t.Errorf("indexed_count %d != chunks_created %d", summary.IndexedCount, summary.ChunksCreated)
	}
	if len(summary.Errors) != 0 {
		t.Errorf("errors: %v", summary.Errors)
	}

	ctx := context.Background()
	docCount, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if docCount != 1 {
		t.Errorf("documents: got %d, want 1", docCount)
	}
	chunks, err := store.AllChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("stored chunks: got %d, want 3", len(chunks))
	}
	for _, ch := range chunks {
		if ch.Source != "pipeline.txt" {
			t.Errorf("chunk source: got %q", ch.Source)
		}
		if ch.DocumentID == "" {
			t.Error("chunk document_id should be set")
		}
	}
	handle, err := vs.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if handle.Size() != 3 {
		t.Errorf("index size: got %d, want 3", handle.Size())
	}
}

func TestIngester_MissingPath(t *testing.T) {
	ing, _, _ := newTestIngester(t, false)
	summary := ing.Ingest(context.Background(), "/nonexistent/file.txt")
	if summary.Status != models.StatusFailed {
		t.Fatalf("status: got %s, want failed", summary.Status)
	}
	if summary.PagesLoaded != 0 || summary.ChunksCreated != 0 || summary.IndexedCount != 0 {
		t.Errorf("counts should be zero: %+v", summary)
	}
	if len(summary.Errors) != 1 || !strings.Contains(summary.Errors[0], "not found") {
		t.Errorf("errors: %v", summary.Errors)
	}
}

func TestIngester_UnsupportedFile(t *testing.T) {
	ing, _, _ := newTestIngester(t, false)
	dir := t.TempDir()
	path := filepath.Join(dir, "binary.xyz")
	if err := os.WriteFile(path, []byte("data"), 0600); err != nil {
		t.Fatal(err)
	}
	summary := ing.Ingest(context.Background(), path)
	if summary.Status != models.StatusFailed {
		t.Fatalf("status: got %s, want failed", summary.Status)
	}
	if len(summary.Errors) == 0 {
		t.Error("expected an error reason")
	}
}

func TestIngester_SecondFileAppends(t *testing.T) {
	ing, store, vs := newTestIngester(t, false)
	dir := t.TempDir()
	ctx := context.Background()

	first := filepath.Join(dir, "first.txt")
	if err := os.WriteFile(first, []byte("the first file mentions alpaca farming"), 0600); err != nil {
		t.Fatal(err)
	}
	if s := ing.Ingest(ctx, first); s.Status != models.StatusOK {
		t.Fatalf("first ingest failed: %v", s.Errors)
	}

	second := filepath.Join(dir, "second.txt")
	if err := os.WriteFile(second, []byte("the second file mentions beekeeping"), 0600); err != nil {
		t.Fatal(err)
	}
	if s := ing.Ingest(ctx, second); s.Status != models.StatusOK {
		t.Fatalf("second ingest failed: %v", s.Errors)
	}

	docCount, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if docCount != 2 {
		t.Errorf("documents: got %d, want 2", docCount)
	}
	handle, err := vs.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if handle.Size() != 2 {
		t.Errorf("index size: got %d, want 2", handle.Size())
	}
}

func TestIngester_DirectoryIngest(t *testing.T) {
	ing, store, _ := newTestIngester(t, false)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first note"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("second note"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "skip.xyz"), []byte("binary"), 0600); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	summary := ing.Ingest(ctx, dir)
	if summary.Status != models.StatusOK {
		t.Fatalf("status: %s, errors: %v", summary.Status, summary.Errors)
	}
	if summary.PagesLoaded != 2 {
		t.Errorf("pages_loaded: got %d, want 2", summary.PagesLoaded)
	}
	docCount, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if docCount != 2 {
		t.Errorf("documents: got %d, want 2", docCount)
	}
}

func TestIngester_DeleteAfterIndex(t *testing.T) {
	ing, _, _ := newTestIngester(t, true)
	dir := t.TempDir()
	path := filepath.Join(dir, "ephemeral.txt")
	if err := os.WriteFile(path, []byte("delete me after indexing"), 0600); err != nil {
		t.Fatal(err)
	}
	summary := ing.Ingest(context.Background(), path)
	if summary.Status != models.StatusOK {
		t.Fatalf("status: %s, errors: %v", summary.Status, summary.Errors)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("source file should be deleted after successful ingest")
	}
}

func TestIngester_DeleteAfterIndexKeepsDirectories(t *testing.T) {
	ing, _, _ := newTestIngester(t, true)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("keep the directory"), 0600); err != nil {
		t.Fatal(err)
	}
	summary := ing.Ingest(context.Background(), dir)
	if summary.Status != models.StatusOK {
		t.Fatalf("status: %s, errors: %v", summary.Status, summary.Errors)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory should survive ingest: %v", err)
	}
}

func TestIngester_ReingestAccumulates(t *testing.T) {
	ing, store, vs := newTestIngester(t, false)
	dir := t.TempDir()
	path := filepath.Join(dir, "again.txt")
	if err := os.WriteFile(path, []byte("the same file twice"), 0600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if s := ing.Ingest(ctx, path); s.Status != models.StatusOK {
		t.Fatalf("first ingest: %v", s.Errors)
	}
	if s := ing.Ingest(ctx, path); s.Status != models.StatusOK {
		t.Fatalf("second ingest: %v", s.Errors)
	}
	chunkCount, err := store.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if chunkCount != 2 {
		t.Errorf("chunks: got %d, want 2 (re-ingest appends)", chunkCount)
	}
	handle, err := vs.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if handle.Size() != 2 {
		t.Errorf("index size: got %d, want 2", handle.Size())
	}
}
