package models

import "errors"

// Error kinds for expected failure conditions. Callers check these with
// errors.Is; public operations convert them into structured results
// instead of letting them escape.
//
// Index deserialization failure has no sentinel: the store logs it and
// treats the artifact as absent.
var (
	// ErrNotFound reports a missing source path.
	ErrNotFound = errors.New("source path not found")

	// ErrEmptyInput reports that there are no documents or chunks to index.
	ErrEmptyInput = errors.New("no documents or chunks to index")

	// ErrAppendUnsupported reports that the loaded index structure lacks
	// incremental add; the index must be rebuilt from the full accumulated
	// chunk set in storage.
	ErrAppendUnsupported = errors.New("index does not support incremental append; rebuild from stored chunks")

	// ErrServiceUnavailable reports a failed embedding or completion call.
	ErrServiceUnavailable = errors.New("embedding or completion service unavailable")

	// ErrAnswerSynthesisFailed reports that neither synthesis path produced
	// answer text. Retrieved sources are still returned alongside it.
	ErrAnswerSynthesisFailed = errors.New("answer synthesis produced no text")
)
