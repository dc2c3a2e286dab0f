package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/embedding"
	"github.com/askdocs/askdocs/internal/models"
	"github.com/askdocs/askdocs/pkg/utils"
)

// Handle is the authoritative reference to the similarity structure at one
// persist location. At most one handle is cached per Store; mutation always
// goes through the Store so it can be serialized.
type Handle struct {
	Index Index
}

// Size returns the number of indexed vectors, or 0 for a nil handle.
func (h *Handle) Size() int {
	if h == nil || h.Index == nil {
		return 0
	}
	return h.Index.Size()
}

// Store owns the persisted similarity index for one location: build, load,
// append, and query-by-text. Reads run concurrently; mutations (build,
// append, persist) are serialized behind a write lock. Persistence is
// write-then-rename, so a failed write never corrupts the previous artifact.
type Store struct {
	path     string
	embedder embedding.Embedder
	logger   *zap.Logger

	mu     sync.RWMutex
	handle *Handle
}

// NewStore creates a store persisting at dir/name.idx.
func NewStore(dir, name string, embedder embedding.Embedder, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:     filepath.Join(dir, name+".idx"),
		embedder: embedder,
		logger:   logger,
	}
}

// Path returns the persist location of the index artifact.
func (s *Store) Path() string {
	return s.path
}

// Build embeds chunks, constructs a fresh index, persists it atomically
// (overwriting any prior artifact), caches and returns the handle.
// Returns ErrEmptyInput when chunks is empty.
func (s *Store) Build(ctx context.Context, chunks []models.Chunk) (*Handle, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("build: %w", models.ErrEmptyInput)
	}
	ids, vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	index, err := NewFlatIndex(s.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	if err := index.Add(ctx, ids, vectors); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(index); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}
	s.handle = &Handle{Index: index}
	s.logger.Info("index built", zap.String("path", s.path), zap.Int("vectors", index.Size()))
	return s.handle, nil
}

// Load returns the handle for the persisted index, or (nil, nil) when the
// persist location holds no valid index. A missing artifact and an
// unreadable one both read as absent; they are distinguished in logs only.
func (s *Store) Load(ctx context.Context) (*Handle, error) {
	s.mu.RLock()
	handle := s.handle
	s.mu.RUnlock()
	if handle != nil {
		return handle, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check: another goroutine may have loaded while we waited.
	if s.handle != nil {
		return s.handle, nil
	}
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no index artifact", zap.String("path", s.path))
			return nil, nil
		}
		s.logger.Warn("index artifact unreadable, treated as absent", zap.String("path", s.path), zap.Error(err))
		return nil, nil
	}
	index, err := OpenFlatIndex(s.path)
	if err != nil {
		s.logger.Warn("index artifact corrupt, treated as absent", zap.String("path", s.path), zap.Error(err))
		return nil, nil
	}
	s.handle = &Handle{Index: index}
	s.logger.Info("index loaded", zap.String("path", s.path), zap.Int("vectors", index.Size()))
	return s.handle, nil
}

// Append adds chunks to an existing handle. If the handle's index lacks the
// Appender capability the append fails with ErrAppendUnsupported before any
// write, leaving the persisted artifact untouched; the caller must rebuild
// from the full accumulated chunk set. On success the updated index is
// persisted; a persistence failure is logged as a durability risk and the
// updated in-memory handle is still returned.
func (s *Store) Append(ctx context.Context, handle *Handle, chunks []models.Chunk) (*Handle, error) {
	if handle == nil || handle.Index == nil {
		return nil, fmt.Errorf("append: no index handle")
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("append: %w", models.ErrEmptyInput)
	}
	appender, ok := handle.Index.(Appender)
	if !ok {
		return nil, fmt.Errorf("append to %T: %w", handle.Index, models.ErrAppendUnsupported)
	}
	ids, vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := appender.Add(ctx, ids, vectors); err != nil {
		return nil, fmt.Errorf("append vectors: %w", err)
	}
	s.handle = handle
	if err := s.persist(handle.Index); err != nil {
		s.logger.Warn("appended in memory but persistence failed; append may not survive a restart",
			zap.String("path", s.path), zap.Error(err))
		return handle, nil
	}
	s.logger.Info("index appended", zap.String("path", s.path), zap.Int("added", len(chunks)), zap.Int("vectors", handle.Index.Size()))
	return handle, nil
}

// Search embeds question and returns the top-k nearest chunk IDs. An absent
// index yields an empty result, not an error.
func (s *Store) Search(ctx context.Context, question string, k int) ([]*Result, error) {
	handle, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	utils.NormalizeL2(vec)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return handle.Index.Search(ctx, vec, k)
}

// Size returns the cached handle's vector count without touching disk.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle.Size()
}

// embedChunks batch-embeds chunk contents and normalizes the vectors.
func (s *Store) embedChunks(ctx context.Context, chunks []models.Chunk) ([]string, [][]float32, error) {
	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
		ids[i] = ch.ID
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	for _, v := range vectors {
		utils.NormalizeL2(v)
	}
	return ids, vectors, nil
}

// persist writes index to a temp file in the target directory and renames
// it over the artifact. Callers hold the write lock.
func (s *Store) persist(index Index) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := index.Save(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace index artifact: %w", err)
	}
	return nil
}
