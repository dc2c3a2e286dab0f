package loader

import (
	"fmt"
	"os"
	"strings"

	"github.com/lu4p/cat"
	"github.com/xuri/excelize/v2"

	"github.com/askdocs/askdocs/internal/models"
)

// loadOffice extracts text from DOCX, ODT, and RTF files as a single document.
func loadOffice(path, source string) ([]models.Document, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", source, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []models.Document{{
		Content:  text,
		Metadata: map[string]interface{}{models.MetaSource: source},
	}}, nil
}

// loadExcel returns one document per non-empty sheet, rows joined with tabs.
// Sheet name is carried in the "title" metadata field.
func loadExcel(path, source string) ([]models.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var docs []models.Document
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		var buf strings.Builder
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
		text := strings.TrimSpace(buf.String())
		if text == "" {
			continue
		}
		docs = append(docs, models.Document{
			Content: text,
			Metadata: map[string]interface{}{
				models.MetaSource: source,
				models.MetaTitle:  sheet,
			},
		})
	}
	return docs, nil
}

// loadPlain reads a text file as a single document, replacing invalid UTF-8.
func loadPlain(path, source string) ([]models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	text := strings.ToValidUTF8(string(content), "�")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []models.Document{{
		Content:  text,
		Metadata: map[string]interface{}{models.MetaSource: source},
	}}, nil
}
