// Package models defines core data structures for documents, chunks, queries, and answers.
package models

import "time"

// Metadata keys set by the loader and chunker.
const (
	MetaSource     = "source"
	MetaTitle      = "title"
	MetaPage       = "page"
	MetaChunkIndex = "chunk_index"
)

// Document is a raw loaded document: text plus provenance metadata.
// The loader produces one Document per page (PDF) or sheet (XLSX);
// metadata always carries "source" (origin file base name).
type Document struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Source returns the document's origin identifier from metadata, or "" if unset.
func (d *Document) Source() string {
	if d.Metadata == nil {
		return ""
	}
	if s, ok := d.Metadata[MetaSource].(string); ok {
		return s
	}
	return ""
}

// Chunk is a bounded, overlapping segment of one source document's text.
// Chunks are the only unit ever embedded or indexed. Metadata is a copy of
// the source document's metadata plus "chunk_index".
type Chunk struct {
	ID         string                 `json:"id" db:"id"`
	DocumentID string                 `json:"document_id" db:"document_id"`
	Content    string                 `json:"content" db:"content"`
	ChunkIndex int                    `json:"chunk_index" db:"chunk_index"`
	Source     string                 `json:"source" db:"source"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}

// StoredDocument is a document row as persisted in storage, used by the
// documents listing API and by rebuilds.
type StoredDocument struct {
	ID        string                 `json:"id" db:"id"`
	Source    string                 `json:"source" db:"source"`
	Content   string                 `json:"content" db:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// IngestSummary is the structured outcome of ingesting one artifact.
// It is always returned, never raised, so batch callers can aggregate
// per-item outcomes.
type IngestSummary struct {
	File          string   `json:"file"`
	Status        string   `json:"status"` // "ok" or "failed"
	PagesLoaded   int      `json:"pages_loaded"`
	ChunksCreated int      `json:"chunks_created"`
	IndexedCount  int      `json:"indexed_count"`
	Errors        []string `json:"errors"`
}

// StatusOK and StatusFailed are the two IngestSummary states.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// NewIngestSummary returns a summary for path with status ok and an empty
// (non-nil) error list.
func NewIngestSummary(path string) *IngestSummary {
	return &IngestSummary{File: path, Status: StatusOK, Errors: []string{}}
}

// Fail marks the summary failed and records the reason.
func (s *IngestSummary) Fail(reason string) *IngestSummary {
	s.Status = StatusFailed
	s.Errors = append(s.Errors, reason)
	return s
}

// Source is one cited passage in an answer: origin identifier plus a
// content preview.
type Source struct {
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
}

// AnswerResult is the outcome of one query. Produced fresh per query,
// never cached.
type AnswerResult struct {
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	UsedDirectPath bool     `json:"used_direct_path"`
	DebugHistory   []Turn   `json:"debug_history,omitempty"`
}
