// Package vectorstore provides the similarity index and its persistence lifecycle.
package vectorstore

import "context"

// Index supports nearest-neighbor lookup over chunk embeddings.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Save(path string) error
	Size() int
}

// Appender is the incremental-add capability. An Index that does not
// implement it cannot accept appends; the store reports that explicitly
// instead of probing for alternative mutation paths.
type Appender interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
}

// Result is a single similarity hit: the chunk ID and its cosine score.
type Result struct {
	ID    string
	Score float64
}
