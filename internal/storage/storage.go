// Package storage persists ingested documents and chunks.
//
// The chunk table is the full accumulated chunk set: it backs chunk lookup
// for similarity hits and is the rebuild source when the vector index
// cannot accept an incremental append.
package storage

import (
	"context"

	"github.com/askdocs/askdocs/internal/models"
)

// Storage defines document and chunk persistence operations.
type Storage interface {
	CreateDocument(ctx context.Context, doc *models.StoredDocument) error
	GetDocument(ctx context.Context, id string) (*models.StoredDocument, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.StoredDocument, error)

	BatchCreateChunks(ctx context.Context, chunks []models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunks(ctx context.Context, ids []string) ([]models.Chunk, error)
	AllChunks(ctx context.Context) ([]models.Chunk, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
