package loader

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/askdocs/askdocs/internal/models"
)

// loadPDF returns one document per page, with "page" metadata starting at 1.
// Pages whose text cannot be extracted are skipped; an unreadable file is an error.
func loadPDF(path, source string) ([]models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	docs := make([]models.Document, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		docs = append(docs, models.Document{
			Content: text,
			Metadata: map[string]interface{}{
				models.MetaSource: source,
				models.MetaPage:   i,
			},
		})
	}
	return docs, nil
}
