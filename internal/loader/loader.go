// Package loader reads source files and directories into page-level documents.
package loader

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/models"
)

// Loader produces documents from a location (file or directory).
type Loader interface {
	Load(location string) []models.Document
}

// DefaultExtensions are the file types the FileLoader recognizes.
var DefaultExtensions = []string{".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".txt", ".md", ".rst"}

// FileLoader loads documents from the local filesystem. A directory yields
// the documents of every eligible file in it (immediate entries only); a
// single file yields its page- or sheet-level documents. A missing location
// or a location with no eligible files yields an empty slice; one file's
// failure is logged and skipped, never aborting the batch.
type FileLoader struct {
	extensions map[string]bool
	logger     *zap.Logger
}

// NewFileLoader creates a loader recognizing the given extensions
// (DefaultExtensions when nil or empty).
func NewFileLoader(extensions []string, logger *zap.Logger) *FileLoader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[strings.ToLower(e)] = true
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileLoader{extensions: exts, logger: logger}
}

// Load reads location and returns its documents. Every document's metadata
// carries "source" set to the originating file's base name.
func (l *FileLoader) Load(location string) []models.Document {
	info, err := os.Stat(location)
	if err != nil {
		l.logger.Warn("load location missing", zap.String("location", location), zap.Error(err))
		return nil
	}
	if info.IsDir() {
		return l.loadDir(location)
	}
	docs, err := l.loadFile(location)
	if err != nil {
		l.logger.Error("load file failed", zap.String("file", location), zap.Error(err))
		return nil
	}
	return docs
}

func (l *FileLoader) loadDir(dir string) []models.Document {
	entries, err := os.ReadDir(dir)
	if err != nil {
		l.logger.Warn("read directory failed", zap.String("dir", dir), zap.Error(err))
		return nil
	}
	var all []models.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if !l.extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			l.logger.Debug("skipping unsupported file", zap.String("file", entry.Name()))
			continue
		}
		docs, err := l.loadFile(path)
		if err != nil {
			l.logger.Error("load file failed", zap.String("file", path), zap.Error(err))
			continue
		}
		all = append(all, docs...)
	}
	l.logger.Info("directory loaded", zap.String("dir", dir), zap.Int("documents", len(all)))
	return all
}

// loadFile dispatches on extension and returns the file's documents.
func (l *FileLoader) loadFile(path string) ([]models.Document, error) {
	base := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path, base)
	case ".docx", ".odt", ".rtf":
		return loadOffice(path, base)
	case ".xlsx":
		return loadExcel(path, base)
	default:
		return loadPlain(path, base)
	}
}
