// Package ingest provides text cleanup, chunking, and the ingestion pipeline.
package ingest

import (
	"regexp"
	"strings"
)

var (
	blankLineRuns  = regexp.MustCompile(`\n\s*\n+`)
	horizontalRuns = regexp.MustCompile(`[ \t]+`)
)

// Clean normalizes raw extracted text: runs of two or more newlines collapse
// to exactly one blank line, runs of horizontal whitespace collapse to a
// single space, and leading/trailing whitespace is trimmed. Idempotent, and
// never lengthens its input.
func Clean(text string) string {
	if text == "" {
		return text
	}
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	text = horizontalRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
