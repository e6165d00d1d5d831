// Package domain defines the dataset and insight records and the error kinds the
// services surface to callers.
package domain

import "fmt"

// NotFoundError indicates a dataset or insight id is unknown.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// IngestionError indicates raw table bytes could not be parsed. Err carries the
// parser's diagnostic.
type IngestionError struct {
	Message string
	Err     error
}

func (e *IngestionError) Error() string {
	if e.Err == nil {
		return "ingest: " + e.Message
	}
	return fmt.Sprintf("ingest: %s: %v", e.Message, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// RenderError indicates a single column's plot could not be produced.
type RenderError struct {
	Column string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render plot for column %q: %v", e.Column, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrIngestion creates an IngestionError wrapping the parser diagnostic.
func ErrIngestion(err error, format string, args ...interface{}) *IngestionError {
	return &IngestionError{Message: fmt.Sprintf(format, args...), Err: err}
}
