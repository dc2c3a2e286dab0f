package ingest

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/models"
)

// separators in preference order: paragraph, line, word, hard character cut.
var separators = []string{"\n\n", "\n", " ", ""}

// Chunker splits documents into bounded overlapping segments, preferring to
// break at paragraph, then line, then word boundaries before falling back
// to a hard character cut. Size and overlap are in characters.
type Chunker struct {
	size    int
	overlap int
	logger  *zap.Logger
}

// NewChunker creates a chunker with the given size and overlap.
func NewChunker(size, overlap int, logger *zap.Logger) *Chunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chunker{size: size, overlap: overlap, logger: logger}
}

// Chunk splits each document's trimmed content into chunks. Documents that
// are empty after trimming are skipped. Each chunk's metadata is a copy of
// its document's metadata plus "chunk_index"; chunk_index counts 0..n-1 per
// source across all documents sharing that source. A chunk never has empty
// content, and its source falls back to the title field or "unknown".
func (c *Chunker) Chunk(docs []models.Document) []models.Chunk {
	var out []models.Chunk
	perSource := make(map[string]int)
	for _, doc := range docs {
		text := strings.TrimSpace(doc.Content)
		if text == "" {
			c.logger.Debug("skipping empty document", zap.String("source", doc.Source()))
			continue
		}
		pieces := c.splitText(text, separators)
		if len(pieces) == 0 {
			// degrade to the whole text rather than dropping the document
			pieces = []string{text}
		}
		source := chunkSource(doc.Metadata)
		for _, piece := range pieces {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			idx := perSource[source]
			perSource[source] = idx + 1
			metadata := make(map[string]interface{}, len(doc.Metadata)+2)
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			metadata[models.MetaChunkIndex] = idx
			metadata[models.MetaSource] = source
			out = append(out, models.Chunk{
				ID:         uuid.New().String(),
				Content:    piece,
				ChunkIndex: idx,
				Source:     source,
				Metadata:   metadata,
			})
		}
	}
	c.logger.Info("chunking complete",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(out)),
		zap.Int("chunk_size", c.size),
		zap.Int("chunk_overlap", c.overlap),
	)
	return out
}

// chunkSource resolves a non-empty source identifier from document metadata.
func chunkSource(metadata map[string]interface{}) string {
	if s, ok := metadata[models.MetaSource].(string); ok && s != "" {
		return s
	}
	if t, ok := metadata[models.MetaTitle].(string); ok && t != "" {
		return t
	}
	return "unknown"
}

// splitText splits text using the first separator present in it, recursing
// with finer separators for any part still over size, and merging adjacent
// parts into windows of at most size characters with overlap carried between
// consecutive windows.
func (c *Chunker) splitText(text string, seps []string) []string {
	if len(text) <= c.size {
		return []string{text}
	}
	sep := ""
	var finer []string
	for i, s := range seps {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			finer = seps[i+1:]
			break
		}
	}
	if sep == "" {
		return c.hardCut(text)
	}

	var out []string
	var pending []string
	for _, part := range strings.Split(text, sep) {
		if part == "" {
			continue
		}
		if len(part) <= c.size {
			pending = append(pending, part)
			continue
		}
		out = append(out, c.merge(pending, sep)...)
		pending = nil
		out = append(out, c.splitText(part, finer)...)
	}
	return append(out, c.merge(pending, sep)...)
}

// merge greedily joins parts into chunks of at most size characters. When a
// chunk is emitted, parts are dropped from the front of the window until at
// most overlap characters remain AND the incoming part fits within size, so
// consecutive chunks share a tail and no chunk ever exceeds size.
func (c *Chunker) merge(parts []string, sep string) []string {
	var chunks []string
	var window []string
	for _, part := range parts {
		if len(window) > 0 && joinedLen(window, sep)+len(sep)+len(part) > c.size {
			chunks = append(chunks, strings.Join(window, sep))
			for len(window) > 0 && (joinedLen(window, sep) > c.overlap ||
				joinedLen(window, sep)+len(sep)+len(part) > c.size) {
				window = window[1:]
			}
		}
		window = append(window, part)
	}
	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, sep))
	}
	return chunks
}

func joinedLen(parts []string, sep string) int {
	n := len(sep) * (len(parts) - 1)
	for _, p := range parts {
		n += len(p)
	}
	return n
}

// hardCut splits text into fixed windows of size characters stepping by
// size-overlap, adjusting cut points so multi-byte runes are never split.
func (c *Chunker) hardCut(text string) []string {
	step := c.size - c.overlap
	if step <= 0 {
		step = 1
	}
	var out []string
	for start := 0; start < len(text); {
		end := start + c.size
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		for end > start && text[end]&0xc0 == 0x80 {
			end--
		}
		out = append(out, text[start:end])
		next := start + step
		for next < len(text) && text[next]&0xc0 == 0x80 {
			next++
		}
		start = next
	}
	return out
}
