package rollup

import "fmt"

// ValidationError reports missing or malformed input, detected before any
// write is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

// NotFoundError reports a single-row lookup that matched nothing. Range
// and bucket queries never return it; they report zero-valued results.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// StorageError wraps a persistence failure. The whole unit of work was
// rolled back; the caller should retry the entire operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
