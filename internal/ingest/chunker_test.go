package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/askdocs/askdocs/internal/models"
)

func doc(content, source string) models.Document {
	return models.Document{
		Content:  content,
		Metadata: map[string]interface{}{models.MetaSource: source},
	}
}

func TestChunker_ShortDocumentSingleChunk(t *testing.T) {
	c := NewChunker(800, 150, nil)
	chunks := c.Chunk([]models.Document{doc("short text", "a.txt")})
	if len(chunks) != 1 {
		t.Fatalf("chunks: got %d, want 1", len(chunks))
	}
	if chunks[0].Content != "short text" {
		t.Errorf("content: got %q", chunks[0].Content)
	}
	if chunks[0].Source != "a.txt" || chunks[0].ChunkIndex != 0 {
		t.Errorf("chunk: %+v", chunks[0])
	}
	if chunks[0].ID == "" {
		t.Error("chunk ID should be set")
	}
}

func TestChunker_SplitsLongText(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("This paragraph talks about the system at some length and keeps going for a while.\n\n")
	}
	c := NewChunker(800, 150, nil)
	chunks := c.Chunk([]models.Document{doc(b.String(), "long.txt")})
	if len(chunks) < 3 {
		t.Fatalf("chunks: got %d, want >= 3", len(chunks))
	}
	for i, ch := range chunks {
		if strings.TrimSpace(ch.Content) == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if len(ch.Content) > 800 {
			t.Errorf("chunk %d is %d chars, want <= 800", i, len(ch.Content))
		}
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, ch.ChunkIndex)
		}
	}
}

func TestChunker_ConsecutiveChunksOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("alpha bravo charlie delta echo ")
	}
	c := NewChunker(200, 50, nil)
	chunks := c.Chunk([]models.Document{doc(b.String(), "o.txt")})
	if len(chunks) < 2 {
		t.Fatalf("chunks: got %d, want >= 2", len(chunks))
	}
	// Each chunk after the first starts with text carried over from its
	// predecessor.
	for i := 1; i < len(chunks); i++ {
		head := chunks[i].Content
		if len(head) > 30 {
			head = head[:30]
		}
		if !strings.Contains(chunks[i-1].Content, head) {
			t.Errorf("chunk %d does not overlap its predecessor", i)
		}
	}
}

func TestChunker_OverlapRemnantNeverOversizesChunk(t *testing.T) {
	// A near-size paragraph arriving while the window still holds an
	// overlap remnant must not be glued onto it past the size bound.
	parts := []string{
		strings.Repeat("a", 40),
		strings.Repeat("b", 40),
		strings.Repeat("c", 180),
		strings.Repeat("d", 40),
	}
	c := NewChunker(200, 150, nil)
	chunks := c.Chunk([]models.Document{doc(strings.Join(parts, "\n\n"), "remnant.txt")})
	if len(chunks) != 3 {
		t.Fatalf("chunks: got %d, want 3", len(chunks))
	}
	for i, ch := range chunks {
		if len(ch.Content) > 200 {
			t.Errorf("chunk %d is %d chars, want <= 200", i, len(ch.Content))
		}
	}
	if chunks[1].Content != parts[2] {
		t.Errorf("large paragraph should stand alone, got %d chars", len(chunks[1].Content))
	}
}

func TestChunker_IndexCountsPerSource(t *testing.T) {
	c := NewChunker(800, 150, nil)
	chunks := c.Chunk([]models.Document{
		doc("page one of the report", "report.pdf"),
		doc("page two of the report", "report.pdf"),
		doc("unrelated note", "note.txt"),
	})
	if len(chunks) != 3 {
		t.Fatalf("chunks: got %d, want 3", len(chunks))
	}
	bySource := make(map[string][]int)
	for _, ch := range chunks {
		bySource[ch.Source] = append(bySource[ch.Source], ch.ChunkIndex)
		if got := ch.Metadata[models.MetaChunkIndex]; got != ch.ChunkIndex {
			t.Errorf("metadata chunk_index = %v, want %d", got, ch.ChunkIndex)
		}
	}
	if got := bySource["report.pdf"]; len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("report.pdf indexes: %v", got)
	}
	if got := bySource["note.txt"]; len(got) != 1 || got[0] != 0 {
		t.Errorf("note.txt indexes: %v", got)
	}
}

func TestChunker_SkipsEmptyDocuments(t *testing.T) {
	c := NewChunker(800, 150, nil)
	chunks := c.Chunk([]models.Document{
		doc("   \n\t ", "empty.txt"),
		doc("kept", "kept.txt"),
	})
	if len(chunks) != 1 || chunks[0].Source != "kept.txt" {
		t.Errorf("chunks: %+v", chunks)
	}
}

func TestChunker_SourceFallback(t *testing.T) {
	c := NewChunker(800, 150, nil)
	chunks := c.Chunk([]models.Document{
		{Content: "titled", Metadata: map[string]interface{}{models.MetaTitle: "Sheet1"}},
		{Content: "bare", Metadata: nil},
	})
	if len(chunks) != 2 {
		t.Fatalf("chunks: got %d, want 2", len(chunks))
	}
	if chunks[0].Source != "Sheet1" {
		t.Errorf("title fallback: got %q", chunks[0].Source)
	}
	if chunks[1].Source != "unknown" {
		t.Errorf("unknown fallback: got %q", chunks[1].Source)
	}
}

func TestChunker_HardCutWithoutSeparators(t *testing.T) {
	text := strings.Repeat("x", 2000)
	c := NewChunker(800, 150, nil)
	chunks := c.Chunk([]models.Document{doc(text, "blob.txt")})
	if len(chunks) < 3 {
		t.Fatalf("chunks: got %d, want >= 3", len(chunks))
	}
	for i, ch := range chunks {
		if len(ch.Content) > 800 {
			t.Errorf("chunk %d is %d chars", i, len(ch.Content))
		}
	}
}

func TestChunker_HardCutRuneSafe(t *testing.T) {
	text := strings.Repeat("日本語のテキスト", 200)
	c := NewChunker(100, 20, nil)
	chunks := c.Chunk([]models.Document{doc(text, "jp.txt")})
	if len(chunks) < 2 {
		t.Fatalf("chunks: got %d, want >= 2", len(chunks))
	}
	for i, ch := range chunks {
		if !utf8.ValidString(ch.Content) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
	}
}

func TestChunker_MetadataIsCopied(t *testing.T) {
	meta := map[string]interface{}{models.MetaSource: "m.txt", models.MetaPage: 3}
	c := NewChunker(800, 150, nil)
	chunks := c.Chunk([]models.Document{{Content: "content", Metadata: meta}})
	if len(chunks) != 1 {
		t.Fatalf("chunks: got %d", len(chunks))
	}
	chunks[0].Metadata[models.MetaPage] = 99
	if meta[models.MetaPage] != 3 {
		t.Error("document metadata was mutated through the chunk")
	}
	if chunks[0].Metadata[models.MetaPage] != 99 {
		t.Error("chunk metadata should be independent")
	}
}
