package ingest

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when the caller's context is observed cancelled
// at a file boundary or while awaiting the worker. Callers distinguish it
// from genuine parse failures (e.g. to suppress error toasts in the UI).
var ErrCancelled = errors.New("ingestion cancelled")

// MalformedInputError reports an outer JSON parse failure for one source.
// It aborts the whole batch; no partial results are returned.
type MalformedInputError struct {
	Source string
	Err    error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }
