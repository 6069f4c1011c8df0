package matching

import "fmt"

// InputError reports an unusable input (missing or unreadable image, invalid upload).
// It is never retried.
type InputError struct {
	Input string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %q: %v", e.Input, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// DataSourceError reports a catalog that could not be fetched. A resolution never
// proceeds with a partial or missing catalog.
type DataSourceError struct {
	Collection string
	Err        error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("catalog %q unavailable: %v", e.Collection, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}
