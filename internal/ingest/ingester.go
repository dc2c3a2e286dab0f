package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/loader"
	"github.com/askdocs/askdocs/internal/models"
	"github.com/askdocs/askdocs/internal/storage"
	"github.com/askdocs/askdocs/internal/vectorstore"
)

// Ingester runs the load, clean, chunk, persist, index pipeline for one
// artifact and reports a structured outcome.
type Ingester struct {
	loader      loader.Loader
	chunker     *Chunker
	storage     storage.Storage
	store       *vectorstore.Store
	deleteAfter bool
	logger      *zap.Logger
}

// NewIngester creates an ingester. When deleteAfter is set, successfully
// indexed source files are removed afterwards.
func NewIngester(l loader.Loader, c *Chunker, st storage.Storage, vs *vectorstore.Store, deleteAfter bool, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{
		loader:      l,
		chunker:     c,
		storage:     st,
		store:       vs,
		deleteAfter: deleteAfter,
		logger:      logger,
	}
}

// Ingest processes the artifact at path. The summary is always returned,
// never raised, so batch callers can aggregate per-item outcomes.
func (ing *Ingester) Ingest(ctx context.Context, path string) *models.IngestSummary {
	summary := models.NewIngestSummary(path)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return summary.Fail(fmt.Sprintf("%v: %s", models.ErrNotFound, path))
		}
		return summary.Fail(fmt.Sprintf("stat %s: %v", path, err))
	}

	docs := ing.loader.Load(path)
	if len(docs) == 0 && !info.IsDir() {
		// Direct load came up empty; fall back to loading the parent
		// directory and keeping only documents from the target file. This
		// covers loaders that only expose directory-level APIs.
		base := filepath.Base(path)
		for _, d := range ing.loader.Load(filepath.Dir(path)) {
			if d.Source() == base || d.Source() == path {
				docs = append(docs, d)
			}
		}
	}
	if len(docs) == 0 {
		return summary.Fail("no documents or pages were loaded; check the loader and file format")
	}
	summary.PagesLoaded = len(docs)

	for i := range docs {
		docs[i].Content = Clean(docs[i].Content)
	}
	chunks := ing.chunker.Chunk(docs)
	summary.ChunksCreated = len(chunks)
	if len(chunks) == 0 {
		return summary.Fail("chunker produced 0 chunks")
	}

	if err := ing.persist(ctx, docs, chunks); err != nil {
		return summary.Fail(fmt.Sprintf("store chunks: %v", err))
	}
	if err := ing.index(ctx, chunks); err != nil {
		return summary.Fail(err.Error())
	}
	summary.IndexedCount = len(chunks)

	if ing.deleteAfter && !info.IsDir() {
		if err := os.Remove(path); err != nil {
			ing.logger.Warn("unable to delete ingested source", zap.String("path", path), zap.Error(err))
		} else {
			ing.logger.Info("deleted ingested source", zap.String("path", path))
		}
	}

	ing.logger.Info("ingest complete",
		zap.String("path", path),
		zap.Int("pages", summary.PagesLoaded),
		zap.Int("chunks", summary.ChunksCreated),
	)
	return summary
}

// persist stores one document row per source plus all chunks, wiring each
// chunk to its document row. The chunk table is the accumulated set used
// for rebuilds.
func (ing *Ingester) persist(ctx context.Context, docs []models.Document, chunks []models.Chunk) error {
	docIDs := make(map[string]string)
	contents := make(map[string]string)
	metadata := make(map[string]map[string]interface{})
	var order []string
	for _, d := range docs {
		source := chunkSource(d.Metadata)
		if _, ok := docIDs[source]; !ok {
			docIDs[source] = uuid.New().String()
			metadata[source] = d.Metadata
			order = append(order, source)
		}
		if contents[source] != "" {
			contents[source] += "\n\n"
		}
		contents[source] += d.Content
	}
	for _, source := range order {
		if err := ing.storage.CreateDocument(ctx, &models.StoredDocument{
			ID:       docIDs[source],
			Source:   source,
			Content:  contents[source],
			Metadata: metadata[source],
		}); err != nil {
			return err
		}
	}
	for i := range chunks {
		chunks[i].DocumentID = docIDs[chunks[i].Source]
	}
	return ing.storage.BatchCreateChunks(ctx, chunks)
}

// index appends chunks to the existing index, builds a fresh one when no
// index exists, and rebuilds from the full stored chunk set when the loaded
// structure cannot append incrementally.
func (ing *Ingester) index(ctx context.Context, chunks []models.Chunk) error {
	handle, err := ing.store.Load(ctx)
	if err != nil {
		return err
	}
	if handle == nil {
		ing.logger.Info("no existing index, building fresh", zap.Int("chunks", len(chunks)))
		_, err = ing.store.Build(ctx, chunks)
		return err
	}
	_, err = ing.store.Append(ctx, handle, chunks)
	if errors.Is(err, models.ErrAppendUnsupported) {
		ing.logger.Warn("index cannot append incrementally, rebuilding from stored chunks", zap.Error(err))
		all, allErr := ing.storage.AllChunks(ctx)
		if allErr != nil {
			return fmt.Errorf("collect chunks for rebuild: %w", allErr)
		}
		_, err = ing.store.Build(ctx, all)
	}
	return err
}
